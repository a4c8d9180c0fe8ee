package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"unicode"

	"github.com/naoina/toml"
	"github.com/tos-network/gaudit/audit"
	"github.com/tos-network/gaudit/cmd/utils"
	"github.com/tos-network/gaudit/internal/auditapi"
	"github.com/tos-network/gaudit/internal/flags"
	"github.com/tos-network/gaudit/metrics"
	"github.com/urfave/cli/v2"
)

var (
	dumpConfigCommand = &cli.Command{
		Action:      dumpConfig,
		Name:        "dumpconfig",
		Usage:       "Show configuration values",
		ArgsUsage:   "[<file>]",
		Flags:       flags.Merge(nodeFlags, []cli.Flag{utils.ConfigFileFlag}),
		Description: `The dumpconfig command shows configuration values.`,
	}
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

type gauditConfig struct {
	Audit   audit.Config
	API     auditapi.Config
	Metrics metrics.Config
}

func defaultConfig() gauditConfig {
	return gauditConfig{
		Audit:   audit.Defaults,
		API:     auditapi.DefaultConfig,
		Metrics: metrics.DefaultConfig,
	}
}

func loadConfig(file string, cfg *gauditConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig loads the configuration file, if any, and applies the command
// line flags on top.
func makeConfig(ctx *cli.Context) gauditConfig {
	cfg := defaultConfig()
	if file := ctx.String(utils.ConfigFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			utils.Fatalf("%v", err)
		}
	}
	utils.SetAuditConfig(ctx, &cfg.Audit)
	utils.SetAPIConfig(ctx, &cfg.API)
	utils.SetMetricsConfig(ctx, &cfg.Metrics)
	return cfg
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg := makeConfig(ctx)
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}

	dump := os.Stdout
	if ctx.NArg() > 0 {
		dump, err = os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer dump.Close()
	}
	_, err = dump.Write(out)
	return err
}
