// Copyright 2015 The go-ethereum Authors
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
	"fmt"
	"reflect"
	"strings"

	"github.com/tos-network/gaudit/audit"
	"github.com/tos-network/gaudit/internal/auditapi"
	"github.com/tos-network/gaudit/internal/flags"
	"github.com/tos-network/gaudit/log"
	"github.com/tos-network/gaudit/metrics"
	"github.com/urfave/cli/v2"
)

// These are all the command line flags we support.
// If you add to this list, please remember to include the
// flag in the appropriate command definition.
//
// The flags are defined here so their names and help texts
// are the same for all commands.

var (
	// General settings
	ConfigFileFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "TOML configuration file",
		Category: flags.AuditCategory,
	}
	DataDirFlag = &cli.PathFlag{
		Name:     "datadir",
		Usage:    "Data directory for the ledger, database and keystore",
		Value:    audit.Defaults.DataDir,
		Category: flags.AuditCategory,
	}
	RejectModeFlag = &cli.StringFlag{
		Name:     "reject.mode",
		Usage:    `Where rejected blocks go ("chain" or "auditlog")`,
		Value:    audit.Defaults.RejectMode,
		Category: flags.AuditCategory,
	}

	// Storage settings
	StoreFlag = &cli.StringFlag{
		Name:     "store",
		Usage:    `Ledger backend ("file", "leveldb" or "memory")`,
		Value:    audit.Defaults.Store,
		Category: flags.StorageCategory,
	}
	ChainFileFlag = &cli.StringFlag{
		Name:     "chainfile",
		Usage:    "Ledger document for the file backend, relative to the data directory",
		Value:    audit.Defaults.ChainFile,
		Category: flags.StorageCategory,
	}
	SnapshotIntervalFlag = &cli.Uint64Flag{
		Name:     "snapshot.interval",
		Usage:    "Blocks between database snapshots (0 = never)",
		Value:    audit.Defaults.SnapshotInterval,
		Category: flags.StorageCategory,
	}
	CacheFlag = &cli.IntFlag{
		Name:     "cache",
		Usage:    "Megabytes of memory allocated to the database",
		Value:    audit.Defaults.DatabaseCache,
		Category: flags.StorageCategory,
	}

	// Validator settings
	ValidatorsFlag = &cli.IntFlag{
		Name:     "validators",
		Usage:    "Number of quorum validators",
		Value:    audit.Defaults.Validators,
		Category: flags.ValidatorCategory,
	}
	ExtraNodesFlag = &cli.IntFlag{
		Name:     "nodes",
		Usage:    "Number of non-voting identities",
		Value:    audit.Defaults.ExtraNodes,
		Category: flags.ValidatorCategory,
	}
	SignerFlag = &cli.StringFlag{
		Name:     "signer",
		Usage:    `Validator signature scheme ("ed25519" or "schnorr")`,
		Value:    audit.Defaults.SignerType,
		Category: flags.ValidatorCategory,
	}
	KeyStoreDirFlag = &cli.PathFlag{
		Name:     "keystore",
		Usage:    "Directory persisting validator keys (relative to the data directory)",
		Category: flags.ValidatorCategory,
	}
	KeySeedFlag = &cli.StringFlag{
		Name:     "keyseed",
		Usage:    "Secret validator keys are derived from",
		Category: flags.ValidatorCategory,
	}

	// HTTP API settings
	HTTPListenAddrFlag = &cli.StringFlag{
		Name:     "http.addr",
		Usage:    "HTTP API listening interface",
		Value:    auditapi.DefaultConfig.Host,
		Category: flags.APICategory,
	}
	HTTPPortFlag = &cli.IntFlag{
		Name:     "http.port",
		Usage:    "HTTP API listening port",
		Value:    auditapi.DefaultConfig.Port,
		Category: flags.APICategory,
	}
	HTTPCORSDomainFlag = &cli.StringFlag{
		Name:     "http.corsdomain",
		Usage:    "Comma separated list of domains from which to accept cross origin requests (browser enforced)",
		Category: flags.APICategory,
	}

	// Logging
	VerbosityFlag = &cli.IntFlag{
		Name:     "verbosity",
		Usage:    "Logging verbosity: 0=crit, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value:    int(log.LvlInfo),
		Category: flags.LoggingCategory,
	}
	LogJSONFlag = &cli.BoolFlag{
		Name:     "log.json",
		Usage:    "Format logs with JSON",
		Category: flags.LoggingCategory,
	}

	// Metrics
	MetricsEnabledFlag = &cli.BoolFlag{
		Name:     "metrics",
		Usage:    "Enable metrics collection and reporting",
		Category: flags.MetricsCategory,
	}
	MetricsHTTPFlag = &cli.StringFlag{
		Name:     "metrics.addr",
		Usage:    "Enable stand-alone metrics HTTP server listening interface",
		Value:    metrics.DefaultConfig.HTTP,
		Category: flags.MetricsCategory,
	}
	MetricsPortFlag = &cli.IntFlag{
		Name:     "metrics.port",
		Usage:    "Metrics HTTP server listening port",
		Value:    metrics.DefaultConfig.Port,
		Category: flags.MetricsCategory,
	}
)

var (
	// AuditFlags configure the ledger service.
	AuditFlags = []cli.Flag{
		DataDirFlag,
		RejectModeFlag,
		StoreFlag,
		ChainFileFlag,
		SnapshotIntervalFlag,
		CacheFlag,
		ValidatorsFlag,
		ExtraNodesFlag,
		SignerFlag,
		KeyStoreDirFlag,
		KeySeedFlag,
	}
	// APIFlags configure the HTTP adapter.
	APIFlags = []cli.Flag{
		HTTPListenAddrFlag,
		HTTPPortFlag,
		HTTPCORSDomainFlag,
	}
	// MetricsFlags configure the metrics endpoint.
	MetricsFlags = []cli.Flag{
		MetricsEnabledFlag,
		MetricsHTTPFlag,
		MetricsPortFlag,
	}
	// LoggingFlags configure the root logger.
	LoggingFlags = []cli.Flag{
		VerbosityFlag,
		LogJSONFlag,
	}
)

// SplitAndTrim splits input separated by a comma
// and trims excessive white space from the substrings.
func SplitAndTrim(input string) (ret []string) {
	l := strings.Split(input, ",")
	for _, r := range l {
		if r = strings.TrimSpace(r); r != "" {
			ret = append(ret, r)
		}
	}
	return ret
}

// SetAuditConfig applies audit-related command line flags to the config.
func SetAuditConfig(ctx *cli.Context, cfg *audit.Config) {
	CheckExclusive(ctx, KeyStoreDirFlag, KeySeedFlag)

	if ctx.IsSet(DataDirFlag.Name) {
		cfg.DataDir = ctx.Path(DataDirFlag.Name)
	}
	if ctx.IsSet(RejectModeFlag.Name) {
		cfg.RejectMode = ctx.String(RejectModeFlag.Name)
	}
	if ctx.IsSet(StoreFlag.Name) {
		cfg.Store = ctx.String(StoreFlag.Name)
	}
	if ctx.IsSet(ChainFileFlag.Name) {
		cfg.ChainFile = ctx.String(ChainFileFlag.Name)
	}
	if ctx.IsSet(SnapshotIntervalFlag.Name) {
		cfg.SnapshotInterval = ctx.Uint64(SnapshotIntervalFlag.Name)
	}
	if ctx.IsSet(CacheFlag.Name) {
		cfg.DatabaseCache = ctx.Int(CacheFlag.Name)
	}
	if ctx.IsSet(ValidatorsFlag.Name) {
		cfg.Validators = ctx.Int(ValidatorsFlag.Name)
		if reflect.DeepEqual(cfg.Users, audit.Defaults.Users) {
			cfg.Users = audit.DefaultUsers(cfg.Validators)
		}
	}
	if ctx.IsSet(ExtraNodesFlag.Name) {
		cfg.ExtraNodes = ctx.Int(ExtraNodesFlag.Name)
	}
	if ctx.IsSet(SignerFlag.Name) {
		cfg.SignerType = ctx.String(SignerFlag.Name)
	}
	if ctx.IsSet(KeyStoreDirFlag.Name) {
		cfg.KeyDir = ctx.Path(KeyStoreDirFlag.Name)
		cfg.KeySeed = ""
	}
	if ctx.IsSet(KeySeedFlag.Name) {
		cfg.KeySeed = ctx.String(KeySeedFlag.Name)
		cfg.KeyDir = ""
	}
	if err := cfg.Validate(); err != nil {
		Fatalf("Invalid configuration: %v", err)
	}
}

// SetAPIConfig applies HTTP-related command line flags to the config.
func SetAPIConfig(ctx *cli.Context, cfg *auditapi.Config) {
	if ctx.IsSet(HTTPListenAddrFlag.Name) {
		cfg.Host = ctx.String(HTTPListenAddrFlag.Name)
	}
	if ctx.IsSet(HTTPPortFlag.Name) {
		cfg.Port = ctx.Int(HTTPPortFlag.Name)
	}
	if ctx.IsSet(HTTPCORSDomainFlag.Name) {
		cfg.CORSOrigins = SplitAndTrim(ctx.String(HTTPCORSDomainFlag.Name))
	}
}

// SetMetricsConfig applies metrics-related command line flags to the config.
func SetMetricsConfig(ctx *cli.Context, cfg *metrics.Config) {
	if ctx.IsSet(MetricsEnabledFlag.Name) {
		cfg.Enabled = ctx.Bool(MetricsEnabledFlag.Name)
	}
	if ctx.IsSet(MetricsHTTPFlag.Name) {
		cfg.HTTP = ctx.String(MetricsHTTPFlag.Name)
	}
	if ctx.IsSet(MetricsPortFlag.Name) {
		cfg.Port = ctx.Int(MetricsPortFlag.Name)
	}
}

// SetupLogging installs the root logger configured by the logging flags.
func SetupLogging(ctx *cli.Context) {
	lvl := log.Lvl(ctx.Int(VerbosityFlag.Name))
	log.SetRoot(log.NewLogger(lvl, ctx.Bool(LogJSONFlag.Name)))
}

// CheckExclusive verifies that only a single instance of the provided flags was
// set by the user. Each flag might optionally be followed by a string type to
// specialize it further.
func CheckExclusive(ctx *cli.Context, args ...interface{}) {
	set := make([]string, 0, 1)
	for i := 0; i < len(args); i++ {
		// Make sure the next argument is a flag and skip if not set
		flag, ok := args[i].(cli.Flag)
		if !ok {
			panic(fmt.Sprintf("invalid argument, not cli.Flag type: %T", args[i]))
		}
		// Check if next arg extends current and expand its name if so
		name := flag.Names()[0]

		if i+1 < len(args) {
			switch option := args[i+1].(type) {
			case string:
				// Extended flag check, make sure value set doesn't conflict with passed in option
				if ctx.String(flag.Names()[0]) == option {
					name += "=" + option
					set = append(set, "--"+name)
				}
				// shift arguments and continue
				i++
				continue

			case cli.Flag:
			default:
				panic(fmt.Sprintf("invalid argument, not cli.Flag or string extension: %T", args[i+1]))
			}
		}
		// Mark the flag if it's set
		if ctx.IsSet(flag.Names()[0]) {
			set = append(set, "--"+name)
		}
	}
	if len(set) > 1 {
		Fatalf("Flags %v can't be used at the same time", strings.Join(set, ", "))
	}
}
