package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/schmelli/gearkeeper/internal/scanner"
	"github.com/schmelli/gearkeeper/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "audit",
	Short:   "Show catalog health and logbook statistics",
	Run: func(cmd *cobra.Command, _ []string) {
		a, err := openApp()
		if err != nil {
			fatalf("%v", err)
		}
		defer a.close()

		ctx := cmd.Context()
		entities := a.catalog.ListEntities(ctx, "GearItem")

		var completenessSum float64
		withSource, orphans := 0, 0
		for _, e := range entities {
			completenessSum += scanner.WeightedCompleteness(e)
			if e.SourceURL != "" {
				withSource++
			}
			if !e.HasRelationships() {
				orphans++
			}
		}
		avgCompleteness, coverage := 0.0, 0.0
		if len(entities) > 0 {
			avgCompleteness = completenessSum / float64(len(entities))
			coverage = float64(withSource) / float64(len(entities))
		}
		a.metrics.SetDataQuality(avgCompleteness, coverage, 0, orphans)

		lbStats := a.logbook.Stats()
		tr, br, gen := a.dicts.Sizes()

		if jsonOutput() {
			out := map[string]any{
				"items":            len(entities),
				"avg_completeness": avgCompleteness,
				"source_coverage":  coverage,
				"orphans":          orphans,
				"logbook":          lbStats,
				"dictionaries": map[string]int{
					"transcription_errors": tr,
					"canonical_brands":     br,
					"generic_terms":        gen,
				},
			}
			if err := printJSON(out); err != nil {
				fatalf("%v", err)
			}
			return
		}

		fmt.Println(ui.RenderAccent("Catalog"))
		fmt.Println(ui.Countf("items", len(entities)))
		fmt.Printf("  avg completeness: %.0f%%\n", avgCompleteness*100)
		fmt.Printf("  source coverage: %.0f%%\n", coverage*100)
		fmt.Println(ui.Countf("orphaned nodes", orphans))

		fmt.Println()
		fmt.Println(ui.RenderAccent("Logbook"))
		fmt.Println(ui.Countf("entries", lbStats.TotalEntries))
		fmt.Println(ui.Countf("pending reviews", lbStats.PendingReviews))
		fmt.Println(ui.Countf("auto-fixed", lbStats.AutoFixed))
		decisions := make([]string, 0, len(lbStats.ByDecision))
		for d := range lbStats.ByDecision {
			decisions = append(decisions, d)
		}
		sort.Strings(decisions)
		for _, d := range decisions {
			fmt.Println(ui.Countf("  "+d, lbStats.ByDecision[d]))
		}

		fmt.Println()
		fmt.Println(ui.RenderAccent("Dictionaries"))
		fmt.Println(ui.Countf("transcription errors", tr))
		fmt.Println(ui.Countf("canonical brands", br))
		fmt.Println(ui.Countf("generic terms", gen))
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
