package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/langextract/backend/internal/evaluation"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score extraction quality against an annotated dataset",
	Long: `Evaluate runs an extraction for every item of a JSON dataset
({"items":[{"text", "language"?, "domain"?, "entities", "relationships"}]})
and reports precision, recall and F1 over exact entity and relationship keys.`,
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().String("dataset", "", "path to the annotated dataset")
	evaluateCmd.Flags().String("model", "", "model name (default from config)")
	evaluateCmd.Flags().Bool("json", false, "print the full report as JSON")
	_ = evaluateCmd.MarkFlagRequired("dataset")

	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("dataset")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read dataset: %w", err)
	}
	dataset, err := evaluation.LoadDatasetFromJSON(data)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	stack, err := buildStack(ctx)
	if err != nil {
		return err
	}
	defer stack.Close(ctx)

	model, _ := cmd.Flags().GetString("model")
	if model == "" {
		model = stack.LLM.DefaultModel()
	}

	report, err := evaluation.NewEvaluator(stack.Extractor, model).RunDatasetEvaluation(ctx, dataset)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), evaluation.GenerateReport(report))
	return err
}
