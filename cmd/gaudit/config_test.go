package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tos-network/gaudit/audit"
)

func TestConfigRoundTrip(t *testing.T) {
	want := defaultConfig()
	want.Audit.Store = audit.StoreLevelDB
	want.Audit.KeyDir = "keys"
	want.API.CORSOrigins = []string{"https://audit.example"}
	want.Metrics.Enabled = true

	out, err := tomlSettings.Marshal(&want)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "gaudit.toml")
	require.NoError(t, os.WriteFile(path, out, 0644))

	got := defaultConfig()
	require.NoError(t, loadConfig(path, &got))
	require.Equal(t, want, got)
}

func TestConfigPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gaudit.toml")
	doc := `
[Audit]
Validators = 7
RejectMode = "auditlog"

[[Audit.Users]]
Name = "bob"
Role = "submitter"

[API]
Port = 9090
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	cfg := defaultConfig()
	require.NoError(t, loadConfig(path, &cfg))
	require.Equal(t, 7, cfg.Audit.Validators)
	require.Equal(t, audit.RejectToAuditLog, cfg.Audit.RejectMode)
	require.Equal(t, []audit.User{{Name: "bob", Role: audit.RoleSubmitter}}, cfg.Audit.Users)
	require.Equal(t, 9090, cfg.API.Port)
	require.Equal(t, audit.Defaults.ChainFile, cfg.Audit.ChainFile)
}

func TestConfigUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gaudit.toml")
	require.NoError(t, os.WriteFile(path, []byte("[Audit]\nQuorum = 3\n"), 0644))

	cfg := defaultConfig()
	err := loadConfig(path, &cfg)
	require.Error(t, err)
	require.True(t, strings.HasPrefix(err.Error(), path), err.Error())
	require.Contains(t, err.Error(), "Quorum")
}
