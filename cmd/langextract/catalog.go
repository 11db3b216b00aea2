package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/langextract/backend/internal/prompts"
	"github.com/langextract/backend/internal/schema"
)

var schemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "List output schemas",
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		for _, name := range schema.ListSchemas() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
			if verbose {
				fmt.Fprintln(cmd.OutOrStdout(), schema.Instructions(name))
			}
		}
		return nil
	},
}

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "List domains and their entity types",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range prompts.ListDomains() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", name, strings.Join(prompts.EntityTypes(name), ", "))
		}
		return nil
	},
}

func init() {
	schemasCmd.Flags().BoolP("verbose", "v", false, "print the schema shape")

	rootCmd.AddCommand(schemasCmd)
	rootCmd.AddCommand(domainsCmd)
}
