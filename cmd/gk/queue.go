package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/schmelli/gearkeeper/internal/config"
	"github.com/schmelli/gearkeeper/internal/ui"
)

var queueCmd = &cobra.Command{
	Use:     "queue",
	GroupID: "hygiene",
	Short:   "Inspect the processing queue",
}

var queueStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Triage the catalog and show how the queue would fill",
	Long: `Queue stats triages the catalog and reports the resulting queue:
how many entities land in each priority tier and their status mix.
The queue lives in process, so this reflects a fresh triage of the
catalog as it stands.`,
	Run: func(cmd *cobra.Command, _ []string) {
		a, err := openApp()
		if err != nil {
			fatalf("%v", err)
		}
		defer a.close()

		if _, err := a.engine.TriageAll(cmd.Context(), config.GetInt(config.KeyTriageLimit)); err != nil {
			fatalf("triage: %v", err)
		}

		stats := a.queue.Stats()
		if jsonOutput() {
			if err := printJSON(stats); err != nil {
				fatalf("%v", err)
			}
			return
		}

		fmt.Println(ui.Countf("total items", stats.TotalItems))
		fmt.Println(ui.Countf("pending", stats.Pending))

		tiers := make([]string, 0, len(stats.ByPriority))
		for tier := range stats.ByPriority {
			tiers = append(tiers, tier)
		}
		sort.Strings(tiers)
		fmt.Println("\nBy priority:")
		for _, tier := range tiers {
			fmt.Println(ui.Countf(tier, stats.ByPriority[tier]))
		}
	},
}

func init() {
	queueCmd.AddCommand(queueStatsCmd)
	rootCmd.AddCommand(queueCmd)
}
