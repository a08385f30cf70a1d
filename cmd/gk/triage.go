package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/schmelli/gearkeeper/internal/config"
	"github.com/schmelli/gearkeeper/internal/ui"
)

var triageCmd = &cobra.Command{
	Use:     "triage",
	GroupID: "hygiene",
	Short:   "Score catalog entities and sort them into priority tiers",
	Long: `Triage scores every entity's cleanliness from its fields alone and
assigns it a priority tier: the dirtier the data, the sooner and
cheaper the checks it gets. Use gk run to process the queue.`,
	Run: func(cmd *cobra.Command, _ []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		if limit == 0 {
			limit = config.GetInt(config.KeyTriageLimit)
		}

		a, err := openApp()
		if err != nil {
			fatalf("%v", err)
		}
		defer a.close()

		sum, err := a.engine.TriageAll(cmd.Context(), limit)
		if err != nil {
			fatalf("triage: %v", err)
		}

		if jsonOutput() {
			if err := printJSON(sum); err != nil {
				fatalf("%v", err)
			}
			return
		}

		fmt.Printf("%s Triaged %d of %d entities\n", ui.RenderGood("✓"), sum.Triaged, sum.Total)
		tiers := make([]string, 0, len(sum.ByPriority))
		for tier := range sum.ByPriority {
			tiers = append(tiers, tier)
		}
		sort.Strings(tiers)
		for _, tier := range tiers {
			fmt.Println(ui.Countf(tier, sum.ByPriority[tier]))
		}
	},
}

func init() {
	triageCmd.Flags().Int("limit", 0, "Maximum entities to triage (0 = configured default)")
	rootCmd.AddCommand(triageCmd)
}
