// gaudit is the command line client of the supply-chain audit ledger.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tos-network/gaudit/audit"
	"github.com/tos-network/gaudit/cmd/utils"
	"github.com/tos-network/gaudit/internal/auditapi"
	"github.com/tos-network/gaudit/internal/flags"
	"github.com/tos-network/gaudit/log"
	"github.com/tos-network/gaudit/metrics"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

const clientIdentifier = "gaudit" // Client identifier printed by the version command

var (
	// Git SHA1 commit hash of the release (set via linker flags)
	gitCommit = ""
	gitDate   = ""
	// The app that holds all commands and flags.
	app = flags.NewApp(gitCommit, gitDate, "the permissioned supply-chain audit ledger")

	// flags that configure the ledger service
	nodeFlags = flags.Merge(
		utils.AuditFlags,
		utils.APIFlags,
		utils.MetricsFlags,
	)
)

func init() {
	// Initialize the CLI app and start gaudit
	app.Action = gaudit
	app.Commands = []*cli.Command{
		// See chaincmd.go:
		chainCommand,
		verifyCommand,
		// See keycmd.go:
		keysCommand,
		// See simulatecmd.go:
		simulateCommand,
		// See config.go
		dumpConfigCommand,
		// See misccmd.go:
		versionCommand,
	}
	app.Flags = flags.Merge(
		nodeFlags,
		[]cli.Flag{utils.ConfigFileFlag},
		utils.LoggingFlags,
	)
	app.Before = func(ctx *cli.Context) error {
		utils.SetupLogging(ctx)
		return nil
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// gaudit is the main entry point into the system if no special subcommand is
// run. It opens the ledger and serves the HTTP API until interrupted.
func gaudit(ctx *cli.Context) error {
	if args := ctx.Args().Slice(); len(args) > 0 {
		return fmt.Errorf("invalid command: %q", args[0])
	}
	cfg := makeConfig(ctx)

	var (
		reg        *prometheus.Registry
		registerer prometheus.Registerer
		gatherer   prometheus.Gatherer
	)
	if cfg.Metrics.Enabled {
		log.Info("Enabling metrics collection")
		reg = metrics.NewRegistry()
		registerer, gatherer = reg, reg
	}
	service, err := audit.New(cfg.Audit, registerer)
	if err != nil {
		return err
	}
	defer func() {
		if err := service.Close(); err != nil {
			log.Error("Failed to close ledger", "err", err)
		}
	}()
	api, err := auditapi.New(service, registerer, gatherer)
	if err != nil {
		return err
	}

	sigctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(sigctx)
	g.Go(func() error {
		return auditapi.Serve(gctx, cfg.API, api.Handler(cfg.API.CORSOrigins))
	})
	if cfg.Metrics.Enabled && cfg.Metrics.HTTP != "" {
		mcfg := auditapi.DefaultConfig
		mcfg.Host, mcfg.Port = cfg.Metrics.HTTP, cfg.Metrics.Port
		log.Info("Enabling stand-alone metrics HTTP endpoint", "address", mcfg.Endpoint())
		g.Go(func() error {
			return auditapi.Serve(gctx, mcfg, metrics.Handler(reg))
		})
	}
	return g.Wait()
}

// openService opens the ledger described by the flags without metrics.
func openService(ctx *cli.Context) (*audit.Service, error) {
	cfg := makeConfig(ctx)
	return audit.New(cfg.Audit, nil)
}
