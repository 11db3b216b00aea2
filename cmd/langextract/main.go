// Package main is the langextract command line tool. It runs extractions and
// consensus analyses against the configured model backend and prints JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/langextract/backend/internal/app"
	"github.com/langextract/backend/pkg/config"
	"github.com/langextract/backend/pkg/logger"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "langextract",
	Short: "Extract entities and relationships from text with language models",
	Long: `langextract sends text to a chat model and normalizes the answer into
entities and relationships. Long input is split into overlapping windows.

The analyze command runs two models independently and asks a third to
reconcile their answers, reporting how much the first two agreed.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")

		var err error
		if path != "" {
			cfg, err = config.LoadFile(path)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return err
		}

		level, _ := cmd.Flags().GetString("log-level")
		if level == "" {
			level = cfg.Logging.Level
		}
		// stdout carries the result; logs go to stderr unless a file is configured.
		output := cfg.Logging.OutputPath
		if output == "" || output == "stdout" {
			output = "stderr"
		}
		return logger.Init(logger.Options{
			Level:      level,
			Format:     "console",
			OutputPath: output,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./config.yaml, ./config/config.yaml or /etc/langextract/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildStack(ctx context.Context) (*app.App, error) {
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return app.New(ctx, cfg)
}

// readInput returns the --text value, or the contents of --file ("-" reads stdin).
func readInput(cmd *cobra.Command) (string, error) {
	text, _ := cmd.Flags().GetString("text")
	file, _ := cmd.Flags().GetString("file")

	switch {
	case text != "" && file != "":
		return "", errors.New("use either --text or --file, not both")
	case text != "":
		return text, nil
	case file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read input file: %w", err)
		}
		return string(data), nil
	default:
		return "", errors.New("no input: pass --text or --file")
	}
}

func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().String("text", "", "text to analyze")
	cmd.Flags().String("file", "", "read text from a file, - for stdin")
}

// writeJSON prints v indented, leaving non-ASCII text readable.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
