// Copyright 2019 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

// Package utils contains internal helper functions for gaudit commands.
package utils

import (
	"flag"
	"reflect"
	"testing"

	"github.com/tos-network/gaudit/audit"
	"github.com/tos-network/gaudit/internal/auditapi"
	"github.com/tos-network/gaudit/internal/flags"
	"github.com/tos-network/gaudit/metrics"
	"github.com/urfave/cli/v2"
)

func newContext(t *testing.T, fs []cli.Flag, args ...string) *cli.Context {
	t.Helper()
	app := cli.NewApp()
	app.Flags = fs

	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range app.Flags {
		if err := f.Apply(set); err != nil {
			t.Fatalf("apply flag: %v", err)
		}
	}
	if err := set.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cli.NewContext(app, set, nil)
}

func Test_SplitAndTrim(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{" a , b ,, c ", []string{"a", "b", "c"}},
		{",,", nil},
	}
	for _, tt := range tests {
		if got := SplitAndTrim(tt.input); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitAndTrim(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestSetAuditConfigDefaults(t *testing.T) {
	ctx := newContext(t, AuditFlags)
	cfg := audit.Defaults
	SetAuditConfig(ctx, &cfg)
	if !reflect.DeepEqual(cfg, audit.Defaults) {
		t.Fatalf("unset flags changed the config: %+v", cfg)
	}
}

func TestSetAuditConfigOverrides(t *testing.T) {
	ctx := newContext(t, AuditFlags,
		"--datadir=/var/lib/gaudit",
		"--store=leveldb",
		"--reject.mode=auditlog",
		"--snapshot.interval=16",
		"--validators=7",
		"--signer=schnorr",
		"--keyseed=secret",
	)
	cfg := audit.Defaults
	SetAuditConfig(ctx, &cfg)

	if cfg.DataDir != "/var/lib/gaudit" || cfg.Store != audit.StoreLevelDB || cfg.RejectMode != audit.RejectToAuditLog {
		t.Fatalf("storage flags not applied: %+v", cfg)
	}
	if cfg.SnapshotInterval != 16 {
		t.Fatalf("snapshot interval %d, want 16", cfg.SnapshotInterval)
	}
	if cfg.Validators != 7 || cfg.SignerType != "schnorr" || cfg.KeySeed != "secret" || cfg.KeyDir != "" {
		t.Fatalf("validator flags not applied: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Users, audit.DefaultUsers(7)) {
		t.Fatalf("default users not resized: %+v", cfg.Users)
	}
}

func TestSetAuditConfigKeepsCustomUsers(t *testing.T) {
	ctx := newContext(t, AuditFlags, "--validators=3")
	cfg := audit.Defaults
	cfg.Users = []audit.User{{Name: "bob", Role: audit.RoleSubmitter}}
	SetAuditConfig(ctx, &cfg)
	if len(cfg.Users) != 1 || cfg.Users[0].Name != "bob" {
		t.Fatalf("custom users replaced: %+v", cfg.Users)
	}
}

func TestSetAPIAndMetricsConfig(t *testing.T) {
	ctx := newContext(t, flags.Merge(APIFlags, MetricsFlags),
		"--http.addr=0.0.0.0",
		"--http.port=9000",
		"--http.corsdomain=https://a.example, https://b.example",
		"--metrics",
		"--metrics.port=7070",
	)
	api := auditapi.DefaultConfig
	SetAPIConfig(ctx, &api)
	if api.Endpoint() != "0.0.0.0:9000" {
		t.Fatalf("endpoint %s", api.Endpoint())
	}
	if !reflect.DeepEqual(api.CORSOrigins, []string{"https://a.example", "https://b.example"}) {
		t.Fatalf("cors origins %v", api.CORSOrigins)
	}

	m := metrics.DefaultConfig
	SetMetricsConfig(ctx, &m)
	if !m.Enabled || m.Port != 7070 || m.HTTP != metrics.DefaultConfig.HTTP {
		t.Fatalf("metrics config %+v", m)
	}
}
