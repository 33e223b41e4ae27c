package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/turtacn/IsomerScope/internal/application/isomer"
	"github.com/turtacn/IsomerScope/internal/domain/stereo"
	"github.com/turtacn/IsomerScope/pkg/errors"
)

type analyzeOptions struct {
	smiles bool
	export bool
	outDir string
}

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze <name>",
		Short: "Enumerate and render the stereoisomers of a compound",
		Long: "Resolve <name> (OPSIN, then PubChem), enumerate its stereoisomers and print one\n" +
			"entry per isomer. With --smiles the argument is parsed as SMILES directly.",
		Example: `  isoscope analyze "1,3-Dimethyl-3-phenylallene"
  isoscope analyze --smiles "CC=C=C(C)c1ccccc1" -o table --out-dir ./out`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, strings.Join(args, " "), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.smiles, "smiles", false, "treat the argument as SMILES")
	cmd.Flags().BoolVar(&opts.export, "export", false, "upload the report to object storage")
	cmd.Flags().StringVar(&opts.outDir, "out-dir", "", "write isomer-N.png and isomer-N.mol files here")
	return cmd
}

func runAnalyze(cmd *cobra.Command, input string, opts *analyzeOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	svc, closeFn, err := cliCtx.Service(opts.export)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
	defer cancel()

	req := &isomer.Request{Export: opts.export}
	if opts.smiles {
		req.SMILES = strings.TrimSpace(input)
	} else {
		req.Name = strings.TrimSpace(input)
	}
	result, err := svc.Run(ctx, req)
	if err != nil {
		return err
	}

	if opts.outDir != "" {
		if err := writeIsomerFiles(opts.outDir, result); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	switch cliCtx.OutputFormat {
	case FormatJSON:
		return printJSON(cmd, result)
	case FormatTable:
		return printAnalysisTable(out, result)
	default:
		printAnalysisText(out, result)
		return nil
	}
}

// writeIsomerFiles writes the 2D PNG and the best available mol block of
// every isomer. The 3D block wins over the 2D one.
func writeIsomerFiles(dir string, result *isomer.AnalysisResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "cannot create output directory").WithDetail(dir)
	}
	for _, iso := range result.Isomers {
		base := filepath.Join(dir, "isomer-"+strconv.Itoa(iso.Index))
		if len(iso.PNG) > 0 {
			if err := os.WriteFile(base+".png", iso.PNG, 0o644); err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "cannot write image").WithDetail(base + ".png")
			}
		}
		block := iso.MolBlock
		if iso.Viewer != nil && iso.Viewer.MolBlock != "" {
			block = iso.Viewer.MolBlock
		}
		if block != "" {
			if err := os.WriteFile(base+".mol", []byte(block), 0o644); err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "cannot write mol block").WithDetail(base + ".mol")
			}
		}
	}
	return nil
}

func printAnalysisText(w io.Writer, result *isomer.AnalysisResult) {
	header := result.SMILES
	if result.Name != "" {
		header = fmt.Sprintf("%s (%s via %s)", result.Name, result.SMILES, result.Source)
	}
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, color.New(color.Bold).Sprint(result.Summary))
	fmt.Fprintln(w, strings.Repeat("-", 40))
	for _, iso := range result.Isomers {
		fmt.Fprintf(w, "Isomer %d: %s\n", iso.Index, colorizeLabel(iso.Label))
		fmt.Fprintf(w, "  SMILES: %s\n", iso.SMILES)
		if d := formatDescriptors(iso.Descriptors); d != "" {
			fmt.Fprintf(w, "  Centres: %s\n", d)
		}
		if iso.ViewerError != "" {
			fmt.Fprintf(w, "  3D: %s\n", color.YellowString("unavailable (%s)", iso.ViewerError))
		}
	}
	if result.Export != nil {
		fmt.Fprintf(w, "\nExported to %s/%s\n", result.Export.Bucket, result.Export.Prefix)
		for _, name := range sortedKeys(result.Export.URLs) {
			fmt.Fprintf(w, "  %s: %s\n", name, result.Export.URLs[name])
		}
	}
}

func printAnalysisTable(w io.Writer, result *isomer.AnalysisResult) error {
	fmt.Fprintf(w, "\n=== %s ===\n\n", result.Summary)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Label", "SMILES", "Centres", "3D"})
	table.SetAutoWrapText(false)
	for _, iso := range result.Isomers {
		viewer := "ok"
		if iso.Viewer == nil {
			viewer = "-"
		}
		table.Append([]string{
			strconv.Itoa(iso.Index),
			iso.Label,
			truncateString(iso.SMILES, 48),
			formatDescriptors(iso.Descriptors),
			viewer,
		})
	}
	table.Render()

	if result.AlleneCount > 0 {
		fmt.Fprintf(w, "\nAllene units: %d (terminal atoms %v)\n", result.AlleneCount, result.AlleneTerminals)
	}
	return nil
}

func formatDescriptors(ds []stereo.Descriptor) string {
	parts := make([]string, 0, len(ds))
	for _, d := range ds {
		if d.Bond >= 0 && d.Atom < 0 {
			parts = append(parts, fmt.Sprintf("b%d%s", d.Bond+1, d.Label))
			continue
		}
		parts = append(parts, fmt.Sprintf("%d%s", d.Atom+1, d.Label))
	}
	return strings.Join(parts, ",")
}

func colorizeLabel(label string) string {
	switch label {
	case "Ra", "R", "Z":
		return color.RedString(label)
	case "Sa", "S", "E":
		return color.BlueString(label)
	default:
		return label
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

//Personal.AI order the ending
