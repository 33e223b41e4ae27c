package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/IsomerScope/internal/application/isomer"
)

type submitOptions struct {
	smiles bool
	export bool
	id     string
}

// NewSubmitCmd queues an analysis for the worker instead of running it.
func NewSubmitCmd() *cobra.Command {
	opts := &submitOptions{}
	cmd := &cobra.Command{
		Use:   "submit <name>",
		Short: "Queue an analysis request on Kafka",
		Example: `  isoscope submit "penta-2,3-diene" --export
  isoscope submit --smiles "CC=C=CC" --id job-42`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			sub, closeFn, err := cliCtx.Submitter()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
			defer cancel()

			req := &isomer.Request{ID: opts.id, Export: opts.export}
			input := strings.Join(args, " ")
			if opts.smiles {
				req.SMILES = input
			} else {
				req.Name = input
			}
			id, err := sub.Submit(ctx, req)
			if err != nil {
				return err
			}

			if cliCtx.OutputFormat == FormatJSON {
				return printJSON(cmd, map[string]string{"request_id": id, "topic": cliCtx.Config.Kafka.RequestTopic})
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.smiles, "smiles", false, "treat the argument as SMILES")
	cmd.Flags().BoolVar(&opts.export, "export", false, "ask the worker to upload the report")
	cmd.Flags().StringVar(&opts.id, "id", "", "request id (default: random UUID)")
	return cmd
}

//Personal.AI order the ending
