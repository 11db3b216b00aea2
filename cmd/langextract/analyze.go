package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/langextract/backend/internal/consensus"
	"github.com/langextract/backend/internal/schema"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a two-model consensus analysis with a referee",
	Long: `Analyze extracts with --first and --second independently, scores their
entity agreement and asks --referee to produce the final answer. Progress
is reported on stderr; the consensus result is printed as JSON.`,
	RunE: runAnalyze,
}

func init() {
	addInputFlags(analyzeCmd)
	analyzeCmd.Flags().String("language", "", "prompt language (fa or en, default from config)")
	analyzeCmd.Flags().String("domain", "", "domain: general, legal, medical or police")
	analyzeCmd.Flags().String("first", "", "first model")
	analyzeCmd.Flags().String("second", "", "second model")
	analyzeCmd.Flags().String("referee", "", "referee model")
	analyzeCmd.Flags().String("models", "", "first,second,referee as one comma separated list")
	analyzeCmd.Flags().Float64("temperature", -1, "sampling temperature (default from config)")
	analyzeCmd.Flags().Int("max-tokens", 0, "maximum output tokens (default from config)")

	rootCmd.AddCommand(analyzeCmd)
}

func analyzeRequest(cmd *cobra.Command, text string) (consensus.Request, error) {
	req := consensus.Request{Text: text, Temperature: float64(cfg.LLM.Temperature)}
	req.Language, _ = cmd.Flags().GetString("language")
	req.Domain, _ = cmd.Flags().GetString("domain")
	req.ModelFirst, _ = cmd.Flags().GetString("first")
	req.ModelSecond, _ = cmd.Flags().GetString("second")
	req.ModelReferee, _ = cmd.Flags().GetString("referee")
	req.MaxTokens, _ = cmd.Flags().GetInt("max-tokens")
	if t, _ := cmd.Flags().GetFloat64("temperature"); t >= 0 {
		req.Temperature = t
	}

	if list, _ := cmd.Flags().GetString("models"); list != "" {
		models := splitList(list)
		if len(models) != 3 {
			return req, fmt.Errorf("--models needs exactly three names, got %d", len(models))
		}
		req.ModelFirst, req.ModelSecond, req.ModelReferee = models[0], models[1], models[2]
	}
	return req, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd)
	if err != nil {
		return err
	}
	req, err := analyzeRequest(cmd, text)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	stack, err := buildStack(ctx)
	if err != nil {
		return err
	}
	defer stack.Close(ctx)

	stderr := cmd.ErrOrStderr()
	resp, err := stack.Processor.Analyze(ctx, req, func(stage consensus.Stage, a schema.ModelAnalysis) {
		fmt.Fprintf(stderr, "%s: %s found %d entities, %d relationships\n",
			stage, a.ModelName, len(a.Entities), len(a.Relationships))
	})
	if err != nil {
		return err
	}

	return writeJSON(cmd.OutOrStdout(), resp)
}
