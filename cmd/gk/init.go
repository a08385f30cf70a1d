package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/schmelli/gearkeeper/internal/config"
	"github.com/schmelli/gearkeeper/internal/store/sqlite"
	"github.com/schmelli/gearkeeper/internal/ui"
)

const defaultConfigYAML = `# gearkeeper configuration
# Values here are overridden by GK_* environment variables and flags.

batch-size: 10
triage-limit: 100

thresholds:
  similarity: 0.85
  completeness: 0.3

oracle:
  timeout: 30s
  retries: 1

# Directory of *.yaml dictionary overlays (transcription_errors,
# canonical_brands, generic_terms). Empty uses built-ins only.
dict-dir: ""
`

var initCmd = &cobra.Command{
	Use:     "init",
	GroupID: "setup",
	Short:   "Initialize gearkeeper in the current directory",
	Long: `Initialize gearkeeper by creating a .gearkeeper/ directory with the
catalog database, a config.yaml, and an empty hygiene logbook.`,
	Run: func(cmd *cobra.Command, _ []string) {
		quiet, _ := cmd.Flags().GetBool("quiet")
		force, _ := cmd.Flags().GetBool("force")

		dir := ".gearkeeper"
		configPath := filepath.Join(dir, "config.yaml")

		if !force {
			if _, err := os.Stat(configPath); err == nil {
				fatalf("%s already exists (use --force to reinitialize)", configPath)
			}
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fatalf("creating %s: %v", dir, err)
		}
		if err := os.WriteFile(configPath, []byte(defaultConfigYAML), 0o644); err != nil {
			fatalf("writing config: %v", err)
		}

		// Opening creates the schema.
		dbPath := config.GetString(config.KeyDBPath)
		if dbPath == "" {
			dbPath = filepath.Join(dir, "catalog.db")
		}
		s, err := sqlite.Open(dbPath)
		if err != nil {
			fatalf("creating catalog database: %v", err)
		}
		s.Close()

		if quiet {
			return
		}
		fmt.Printf("%s Initialized gearkeeper\n", ui.RenderGood("✓"))
		fmt.Printf("  config:  %s\n", configPath)
		fmt.Printf("  catalog: %s\n", dbPath)
		fmt.Printf("  logbook: %s\n", config.GetString(config.KeyLogbookPath))
	},
}

func init() {
	initCmd.Flags().Bool("quiet", false, "Suppress output")
	initCmd.Flags().Bool("force", false, "Reinitialize over an existing setup")
	rootCmd.AddCommand(initCmd)
}
