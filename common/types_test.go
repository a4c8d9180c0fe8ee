package common

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestHashTextForm(t *testing.T) {
	var zero Hash
	if got := zero.Hex(); got != strings.Repeat("0", 64) {
		t.Fatalf("zero hash hex mismatch: have %q", got)
	}
	h := BytesToHash([]byte{0xde, 0xad, 0xbe, 0xef})
	enc, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if want := `"` + strings.Repeat("0", 56) + `deadbeef"`; string(enc) != want {
		t.Fatalf("unexpected json: have %s want %s", enc, want)
	}
	var dec Hash
	if err := json.Unmarshal(enc, &dec); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if dec != h {
		t.Fatalf("round trip mismatch: have %x want %x", dec, h)
	}
}

func TestParseHash(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
	}{
		{strings.Repeat("ab", 32), true},
		{"0x" + strings.Repeat("ab", 32), true},
		{strings.Repeat("ab", 31), false},
		{strings.Repeat("zz", 32), false},
		{"", false},
	}
	for _, tt := range tests {
		_, err := ParseHash(tt.input)
		if (err == nil) != tt.ok {
			t.Errorf("ParseHash(%q): err=%v, want ok=%v", tt.input, err, tt.ok)
		}
	}
}

func TestBytesToHashCropsLeft(t *testing.T) {
	b := make([]byte, 40)
	b[39] = 0x01
	b[0] = 0xff
	h := BytesToHash(b)
	if h[31] != 0x01 || h[0] != 0x00 {
		t.Fatalf("unexpected crop result: %x", h)
	}
}

func TestHexToHashPadsLeft(t *testing.T) {
	h := HexToHash("0x1234")
	if h[30] != 0x12 || h[31] != 0x34 {
		t.Fatalf("unexpected hash: %x", h)
	}
	if HexToHash("abc") != BytesToHash([]byte{0x0a, 0xbc}) {
		t.Fatal("odd length input not left padded")
	}
}
