package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewResolveCmd creates the resolve command.
func NewResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <name>",
		Short: "Resolve a compound name to SMILES",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			svc, closeFn, err := cliCtx.Service(false)
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
			defer cancel()

			res, err := svc.Resolve(ctx, strings.TrimSpace(strings.Join(args, " ")))
			if err != nil {
				return err
			}

			switch cliCtx.OutputFormat {
			case FormatJSON:
				return printJSON(cmd, res)
			case FormatTable:
				table := tablewriter.NewWriter(cmd.OutOrStdout())
				table.SetHeader([]string{"Name", "SMILES", "Source", "Cached"})
				table.SetAutoWrapText(false)
				table.Append([]string{res.Name, res.SMILES, res.Source, fmt.Sprint(res.Cached)})
				table.Render()
				return nil
			default:
				fmt.Fprintln(cmd.OutOrStdout(), res.SMILES)
				return nil
			}
		},
	}
}

//Personal.AI order the ending
