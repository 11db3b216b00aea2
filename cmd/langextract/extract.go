package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/langextract/backend/internal/ingestion"
	"github.com/langextract/backend/internal/prompts"
	"github.com/langextract/backend/internal/report"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract entities and relationships from text",
	Long: `Extract sends the text to one model, split into overlapping windows when
it is longer than extraction.maxInputChars, and prints the merged entities
and relationships as JSON. With --backend-url the request is sent to a
running API server instead.`,
	RunE: runExtract,
}

func init() {
	addInputFlags(extractCmd)
	addExtractFlags(extractCmd)
	extractCmd.Flags().String("report-out", "", "also write an HTML report to this path")
	extractCmd.Flags().String("backend-url", "", "send the request to a running API server, e.g. http://localhost:8000")

	rootCmd.AddCommand(extractCmd)
}

func addExtractFlags(cmd *cobra.Command) {
	cmd.Flags().String("language", "", "prompt language (fa or en, default from config)")
	cmd.Flags().String("schema", "", "output schema name")
	cmd.Flags().String("domain", "", "domain: general, legal, medical or police")
	cmd.Flags().String("model", "", "model name (default from config)")
	cmd.Flags().Float64("temperature", -1, "sampling temperature (default from config)")
	cmd.Flags().Int("max-tokens", 0, "maximum output tokens (default from config)")
	cmd.Flags().String("examples", "", "JSON file with few-shot examples replacing the defaults")
}

func extractRequest(cmd *cobra.Command, text string) (ingestion.ExtractRequest, error) {
	req := ingestion.ExtractRequest{Text: text, Temperature: float64(cfg.LLM.Temperature)}
	req.Language, _ = cmd.Flags().GetString("language")
	req.Schema, _ = cmd.Flags().GetString("schema")
	req.Domain, _ = cmd.Flags().GetString("domain")
	req.Model, _ = cmd.Flags().GetString("model")
	req.MaxTokens, _ = cmd.Flags().GetInt("max-tokens")
	if t, _ := cmd.Flags().GetFloat64("temperature"); t >= 0 {
		req.Temperature = t
	}

	if path, _ := cmd.Flags().GetString("examples"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return req, fmt.Errorf("failed to read examples: %w", err)
		}
		var examples []prompts.Example
		if err := json.Unmarshal(data, &examples); err != nil {
			return req, fmt.Errorf("failed to parse examples: %w", err)
		}
		req.Examples = examples
	}
	return req, nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd)
	if err != nil {
		return err
	}
	req, err := extractRequest(cmd, text)
	if err != nil {
		return err
	}

	var resp ingestion.ExtractResponse
	if backend, _ := cmd.Flags().GetString("backend-url"); backend != "" {
		resp, err = postExtract(backend, cfg.LLM.Timeout()+30*time.Second, req)
	} else {
		resp, err = extractLocal(cmd.Context(), req)
	}
	if err != nil {
		return err
	}

	if out, _ := cmd.Flags().GetString("report-out"); out != "" {
		if err := writeReport(out, resp); err != nil {
			return err
		}
	}

	return writeJSON(cmd.OutOrStdout(), resp)
}

func extractLocal(ctx context.Context, req ingestion.ExtractRequest) (ingestion.ExtractResponse, error) {
	stack, err := buildStack(ctx)
	if err != nil {
		return ingestion.ExtractResponse{}, err
	}
	defer stack.Close(ctx)

	return stack.Processor.Extract(ctx, req)
}

func writeReport(path string, resp ingestion.ExtractResponse) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	defer f.Close()

	err = report.Render(f, report.Input{
		SourceText: resp.Text,
		Result:     resp.Result(),
		Language:   resp.Language,
		Model:      resp.Model,
	})
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return f.Close()
}
