// gk is the data hygiene CLI: scan the gear catalog for quality
// issues, triage entities into the priority queue, run checklist
// evaluations, and review the decisions the engine logged.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/schmelli/gearkeeper/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "gk",
	Short: "Data hygiene engine for the gear catalog",
	Long: `gk keeps the gear catalog clean. It detects transcription errors,
duplicates, bogus brands, and missing data; applies low-risk fixes
automatically; and records every decision in an append-only logbook
for review.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := config.Initialize(); err != nil {
			return err
		}
		// Explicit flags override env vars and config file.
		overlay := map[string]string{
			"json":    config.KeyJSON,
			"db":      config.KeyDBPath,
			"logbook": config.KeyLogbookPath,
		}
		for flagName, key := range overlay {
			if f := cmd.Flags().Lookup(flagName); f != nil && f.Changed {
				config.Set(key, f.Value.String())
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("db", "", "Catalog database path")
	rootCmd.PersistentFlags().String("logbook", "", "Logbook JSONL path")

	rootCmd.AddGroup(
		&cobra.Group{ID: "setup", Title: "Setup:"},
		&cobra.Group{ID: "hygiene", Title: "Hygiene:"},
		&cobra.Group{ID: "audit", Title: "Audit:"},
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
