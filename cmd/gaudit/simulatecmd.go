package main

import (
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/tos-network/gaudit/audit"
	"github.com/tos-network/gaudit/cmd/utils"
	"github.com/tos-network/gaudit/consensus/bft"
	"github.com/tos-network/gaudit/internal/flags"
	"github.com/urfave/cli/v2"
)

var (
	simBlocksFlag = &cli.IntFlag{
		Name:  "blocks",
		Usage: "Number of intakes to run through the quorum",
		Value: 3,
	}
	simStageFlag = &cli.StringFlag{
		Name:  "stage",
		Usage: "Stage label of the simulated intakes",
		Value: "Harvest",
	}
	simRejectFlag = &cli.BoolFlag{
		Name:  "reject-last",
		Usage: "Reject the last proposal instead of signing it",
	}
	simPersistFlag = &cli.BoolFlag{
		Name:  "persist",
		Usage: "Write to the configured store instead of an in-memory ledger",
	}

	simulateCommand = &cli.Command{
		Action:    runSimulation,
		Name:      "simulate",
		Usage:     "Run intakes through a local validator quorum",
		ArgsUsage: " ",
		Flags: flags.Merge(utils.AuditFlags, []cli.Flag{
			utils.ConfigFileFlag,
			simBlocksFlag,
			simStageFlag,
			simRejectFlag,
			simPersistFlag,
		}),
		Description: `
The simulate command submits intakes as the first configured submitter and signs
each proposal with the validators in rotation order until the quorum is reached,
printing every signing step and the resulting ledger.`,
	}
)

type simOptions struct {
	Blocks     int
	Stage      string
	RejectLast bool
}

// simStep is one signing or rejection call.
type simStep struct {
	Proposal  uint64
	Validator string
	Result    *bft.Result
}

func runSimulation(ctx *cli.Context) error {
	cfg := makeConfig(ctx)
	if !ctx.Bool(simPersistFlag.Name) {
		cfg.Audit.Store = audit.StoreMemory
	}
	service, err := audit.New(cfg.Audit, nil)
	if err != nil {
		return err
	}
	defer service.Close()

	steps, err := simulate(service, simOptions{
		Blocks:     ctx.Int(simBlocksFlag.Name),
		Stage:      ctx.String(simStageFlag.Name),
		RejectLast: ctx.Bool(simRejectFlag.Name),
	})
	renderSteps(os.Stdout, steps)
	if err != nil {
		return err
	}
	renderBlocks(os.Stdout, service.Chain())
	fmt.Printf("Ledger valid: %t\n", service.IsValid())
	return nil
}

// simulate drives opts.Blocks intakes through service and returns every
// step taken.
func simulate(service *audit.Service, opts simOptions) ([]simStep, error) {
	submitter, err := firstUser(service, audit.RoleSubmitter)
	if err != nil {
		return nil, err
	}
	var steps []simStep
	for n := 1; n <= opts.Blocks; n++ {
		view, err := service.Submit(submitter, audit.Intake{
			Batch:       fmt.Sprintf("SIM-%03d", n),
			Responsible: submitter.Username,
			Stage:       opts.Stage,
		})
		if err != nil {
			return steps, err
		}
		for _, v := range service.Registry().Validators() {
			id, err := service.Identify(v.ID)
			if err != nil {
				return steps, err
			}
			var res *bft.Result
			if opts.RejectLast && n == opts.Blocks {
				res, err = service.Reject(id, view.ID, "simulated rejection")
			} else {
				res, err = service.Sign(id, view.ID)
			}
			if err != nil {
				return steps, err
			}
			steps = append(steps, simStep{Proposal: view.ID, Validator: v.ID, Result: res})
			if res.Final() {
				break
			}
		}
	}
	return steps, nil
}

func firstUser(service *audit.Service, role string) (audit.Identity, error) {
	cfg := service.Config()
	users := cfg.Users
	if len(users) == 0 {
		users = audit.DefaultUsers(cfg.Validators)
	}
	for _, u := range users {
		if u.Role == role {
			return service.Identify(u.Name)
		}
	}
	return audit.Identity{}, fmt.Errorf("no user with role %s", role)
}

func renderSteps(w io.Writer, steps []simStep) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Proposal", "Validator", "Status", "Progress", "Message"})
	table.SetAutoWrapText(false)
	for _, s := range steps {
		table.Append([]string{
			fmt.Sprintf("%d", s.Proposal),
			s.Validator,
			s.Result.Status,
			s.Result.Progress(),
			s.Result.Message,
		})
	}
	table.Render()
}
