package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/tos-network/gaudit/cmd/utils"
	"github.com/tos-network/gaudit/core/types"
	"github.com/tos-network/gaudit/internal/flags"
	"github.com/urfave/cli/v2"
)

var (
	rejectedFlag = &cli.BoolFlag{
		Name:  "rejected",
		Usage: "List the rejected blocks kept outside the ledger",
	}
	jsonFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "Output JSON instead of a table",
	}

	chainCommand = &cli.Command{
		Action:    showChain,
		Name:      "chain",
		Usage:     "Print the blocks of the ledger",
		ArgsUsage: " ",
		Flags:     flags.Merge(utils.AuditFlags, []cli.Flag{utils.ConfigFileFlag, rejectedFlag, jsonFlag}),
		Description: `
The chain command loads the ledger and prints one row per block. With --rejected
it prints the audit log of rejected blocks instead (reject mode "auditlog").`,
	}
	verifyCommand = &cli.Command{
		Action:    verifyChain,
		Name:      "verify",
		Usage:     "Check hash links, block hashes and validator signatures",
		ArgsUsage: " ",
		Flags:     flags.Merge(utils.AuditFlags, []cli.Flag{utils.ConfigFileFlag}),
		Description: `
The verify command recomputes every block hash, checks the hash links and verifies
every stored signature against the current validator keys. Signatures made with
keys that no longer exist (ephemeral keys of an earlier run) are reported.`,
	}
)

func showChain(ctx *cli.Context) error {
	service, err := openService(ctx)
	if err != nil {
		return err
	}
	defer service.Close()

	blocks := service.Chain()
	if ctx.Bool(rejectedFlag.Name) {
		blocks = service.Rejected()
	}
	if ctx.Bool(jsonFlag.Name) {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "    ")
		return enc.Encode(blocks)
	}
	renderBlocks(os.Stdout, blocks)
	return nil
}

func renderBlocks(w io.Writer, blocks []*types.Block) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Index", "Hash", "Previous", "Timestamp", "Leader", "Stage", "Status", "Signatures"})
	table.SetAutoWrapText(false)
	for _, b := range blocks {
		sigs := strconv.Itoa(len(b.Signatures))
		if b.Certificate != nil && b.Certificate.QRequired > 0 {
			sigs = fmt.Sprintf("%d/%d", len(b.Signatures), b.Certificate.QRequired)
		}
		table.Append([]string{
			strconv.FormatUint(b.Index, 10),
			b.Hash.TerminalString(),
			b.PreviousHash.TerminalString(),
			b.Timestamp,
			b.Leader,
			b.StageName,
			b.Status(),
			sigs,
		})
	}
	table.Render()
}

func verifyChain(ctx *cli.Context) error {
	service, err := openService(ctx)
	if err != nil {
		return err
	}
	defer service.Close()

	length := len(service.Chain())
	if !service.IsValid() {
		return fmt.Errorf("ledger of %d blocks has broken hash links", length)
	}
	unverified, err := service.Verify()
	if len(unverified) > 0 {
		fmt.Printf("Signatures that no longer verify: %v\n", unverified)
	}
	if err != nil {
		var joined interface{ Unwrap() []error }
		if errors.As(err, &joined) {
			for _, e := range joined.Unwrap() {
				fmt.Println(" -", e)
			}
		}
		return fmt.Errorf("ledger of %d blocks failed verification", length)
	}
	fmt.Printf("Ledger of %d blocks verified\n", length)
	return nil
}
