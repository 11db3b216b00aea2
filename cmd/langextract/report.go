package main

import (
	"github.com/spf13/cobra"

	"github.com/langextract/backend/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Extract and render the result as an HTML report",
	Long: `Report runs an extraction and writes a self-contained HTML page with the
entity spans highlighted in the source text, followed by entity and
relationship tables. Without --out the page goes to stdout.`,
	RunE: runReport,
}

func init() {
	addInputFlags(reportCmd)
	addExtractFlags(reportCmd)
	reportCmd.Flags().String("out", "", "output path (default stdout)")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd)
	if err != nil {
		return err
	}
	req, err := extractRequest(cmd, text)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	stack, err := buildStack(ctx)
	if err != nil {
		return err
	}
	defer stack.Close(ctx)

	resp, err := stack.Processor.Extract(ctx, req)
	if err != nil {
		return err
	}

	if out, _ := cmd.Flags().GetString("out"); out != "" {
		return writeReport(out, resp)
	}
	return report.Render(cmd.OutOrStdout(), report.Input{
		SourceText: resp.Text,
		Result:     resp.Result(),
		Language:   resp.Language,
		Model:      resp.Model,
	})
}
