package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schmelli/gearkeeper/internal/checklist"
	"github.com/schmelli/gearkeeper/internal/config"
	"github.com/schmelli/gearkeeper/internal/dict"
	"github.com/schmelli/gearkeeper/internal/engine"
	"github.com/schmelli/gearkeeper/internal/ui"
)

var runCmd = &cobra.Command{
	Use:     "run",
	GroupID: "hygiene",
	Short:   "Process a batch of entities through their checklists",
	Long: `Run triages the catalog if the queue is empty, then works through a
batch of queued entities. Each entity gets every check its tier
covers; low-risk findings are fixed on the spot, the rest are logged
for review. Every evaluation lands in the logbook.`,
	Run: func(cmd *cobra.Command, _ []string) {
		batchSize, _ := cmd.Flags().GetInt("batch")
		priority, _ := cmd.Flags().GetInt("priority")
		if batchSize == 0 {
			batchSize = config.GetInt(config.KeyBatchSize)
		}

		a, err := openApp()
		if err != nil {
			fatalf("%v", err)
		}
		defer a.close()

		// Long runs pick up dictionary overlay edits without a restart.
		if dir := config.GetString(config.KeyDictDir); dir != "" {
			if w, err := dict.Watch(a.dicts, dir); err == nil {
				defer w.Close()
			}
		}

		ctx := cmd.Context()

		var results []engine.ItemResult
		if priority > 0 {
			p := checklist.Priority(priority)
			if _, err := a.engine.TriageAll(ctx, config.GetInt(config.KeyTriageLimit)); err != nil {
				fatalf("triage: %v", err)
			}
			results, err = a.engine.ProcessPriorityLevel(ctx, p, batchSize)
			if err != nil {
				fatalf("processing P%d: %v", priority, err)
			}
		} else {
			var onEvent func(engine.Event)
			if !jsonOutput() {
				onEvent = func(ev engine.Event) {
					switch ev.Kind {
					case engine.EventProcessing:
						fmt.Printf("%s %s\n", ui.RenderAccent("→"), ev.Detail)
					case engine.EventItemComplete:
						if ev.Result != nil {
							fmt.Printf("  %s issues=%d fixes=%d\n", ui.RenderMuted("done"),
								len(ev.Result.IssuesFound), len(ev.Result.FixesApplied))
						}
					}
				}
			}
			results, err = a.engine.ProcessBatch(ctx, batchSize, onEvent)
			if err != nil {
				fatalf("processing batch: %v", err)
			}
		}

		report := a.engine.Status()
		if jsonOutput() {
			out := map[string]any{
				"results": results,
				"status":  report,
			}
			if err := printJSON(out); err != nil {
				fatalf("%v", err)
			}
			return
		}

		fmt.Printf("\n%s Processed %d items\n", ui.RenderGood("✓"), len(results))
		fmt.Println(ui.Countf("issues found", report.IssuesFound))
		fmt.Println(ui.Countf("fixes applied", report.FixesApplied))
		fmt.Println(ui.Countf("still pending", report.Queue.Pending))
	},
}

func init() {
	runCmd.Flags().Int("batch", 0, "Batch size (0 = configured default)")
	runCmd.Flags().Int("priority", 0, "Only process one tier, 1-5 (0 = queue order)")
	rootCmd.AddCommand(runCmd)
}
