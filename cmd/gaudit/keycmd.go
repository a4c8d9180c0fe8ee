package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/tos-network/gaudit/accounts/keystore"
	"github.com/tos-network/gaudit/cmd/utils"
	"github.com/tos-network/gaudit/internal/flags"
	"github.com/tos-network/gaudit/validator"
	"github.com/urfave/cli/v2"
)

var (
	keyFlags = flags.Merge(
		[]cli.Flag{utils.ConfigFileFlag, utils.DataDirFlag},
		[]cli.Flag{utils.ValidatorsFlag, utils.ExtraNodesFlag, utils.SignerFlag, utils.KeyStoreDirFlag, utils.KeySeedFlag},
	)

	keysCommand = &cli.Command{
		Name:  "keys",
		Usage: "Manage validator keys",
		Subcommands: []*cli.Command{
			{
				Name:      "init",
				Usage:     "Create the missing validator key files in the keystore",
				ArgsUsage: " ",
				Action:    initKeys,
				Flags:     keyFlags,
				Description: `
Creates one key file per validator and non-voting node in the --keystore
directory. Existing key files are kept, so the command is safe to rerun.`,
			},
			{
				Name:      "list",
				Usage:     "Print the validator identities and public keys",
				ArgsUsage: " ",
				Action:    listKeys,
				Flags:     keyFlags,
			},
		},
	}
)

func initKeys(ctx *cli.Context) error {
	cfg := makeConfig(ctx)
	if cfg.Audit.KeyDir == "" {
		return errors.New("no keystore directory given (--keystore)")
	}
	reg, err := validator.Setup(cfg.Audit.ValidatorConfig())
	if err != nil {
		return err
	}
	ks := keystore.NewKeyStore(cfg.Audit.ValidatorConfig().KeyDir)
	owners, err := ks.Owners()
	if err != nil {
		return err
	}
	fmt.Printf("Keystore %s holds %d keys\n", ks.Dir(), len(owners))
	renderValidators(os.Stdout, append(reg.Validators(), reg.Nodes()...))
	return nil
}

func listKeys(ctx *cli.Context) error {
	cfg := makeConfig(ctx)
	reg, err := validator.Setup(cfg.Audit.ValidatorConfig())
	if err != nil {
		return err
	}
	renderValidators(os.Stdout, append(reg.Validators(), reg.Nodes()...))
	return nil
}

func renderValidators(w io.Writer, vals []*validator.Validator) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Identity", "Validator", "Certificate", "Signer", "Public key"})
	table.SetAutoWrapText(false)
	for _, v := range vals {
		table.Append([]string{
			v.ID,
			fmt.Sprintf("%t", v.IsValidator),
			v.Certificate,
			v.PublicKey.Type,
			v.PublicHex(),
		})
	}
	table.Render()
}
