package flags

import (
	"strings"
	"testing"

	"github.com/urfave/cli/v2"
)

func TestMerge(t *testing.T) {
	a := []cli.Flag{&cli.StringFlag{Name: "a"}}
	b := []cli.Flag{&cli.StringFlag{Name: "b"}, &cli.IntFlag{Name: "c"}}
	merged := Merge(a, nil, b)
	if len(merged) != 3 {
		t.Fatalf("merged %d flags, want 3", len(merged))
	}
	if merged[2].Names()[0] != "c" {
		t.Fatalf("unexpected order: %v", merged[2].Names())
	}
}

func TestNewAppVersion(t *testing.T) {
	app := NewApp("0123456789abcdef", "20260101", "test")
	if !strings.HasSuffix(app.Version, "-stable-01234567") {
		t.Fatalf("version %q lacks commit suffix", app.Version)
	}
	if app.Usage != "test" {
		t.Fatalf("usage %q", app.Usage)
	}
}
