package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/schmelli/gearkeeper/internal/logbook"
	"github.com/schmelli/gearkeeper/internal/ui"
)

var logbookCmd = &cobra.Command{
	Use:     "logbook",
	GroupID: "audit",
	Short:   "Inspect the hygiene decision log",
}

var logbookShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show logbook entries, newest last",
	Run: func(cmd *cobra.Command, _ []string) {
		entityID, _ := cmd.Flags().GetString("entity")
		decision, _ := cmd.Flags().GetString("decision")
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := openApp()
		if err != nil {
			fatalf("%v", err)
		}
		defer a.close()

		var entries []logbook.Entry
		switch {
		case entityID != "":
			entries = a.logbook.ForEntity(entityID)
		case decision != "":
			d := logbook.Decision(decision)
			if !d.IsValid() {
				fatalf("unknown decision: %s", decision)
			}
			entries = a.logbook.ByDecision(d)
		default:
			entries = a.logbook.Entries()
		}

		if limit > 0 && len(entries) > limit {
			entries = entries[len(entries)-limit:]
		}

		if jsonOutput() {
			if err := printJSON(entries); err != nil {
				fatalf("%v", err)
			}
			return
		}
		if len(entries) == 0 {
			fmt.Println(ui.RenderMuted("No logbook entries"))
			return
		}
		for _, e := range entries {
			printEntry(e)
		}
	},
}

var logbookPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Show flagged decisions awaiting review",
	Run: func(cmd *cobra.Command, _ []string) {
		a, err := openApp()
		if err != nil {
			fatalf("%v", err)
		}
		defer a.close()

		pending := a.logbook.PendingReviews()
		if jsonOutput() {
			if err := printJSON(pending); err != nil {
				fatalf("%v", err)
			}
			return
		}
		if len(pending) == 0 {
			fmt.Printf("%s Nothing awaiting review\n", ui.RenderGood("✓"))
			return
		}
		fmt.Printf("%d decisions awaiting review\n\n", len(pending))
		for _, e := range pending {
			printEntry(e)
		}
		fmt.Println(ui.RenderMuted("\nReview with: gk review <entry-id> --approve|--reject"))
	},
}

var logbookExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the logbook for review outside the tool",
	Run: func(cmd *cobra.Command, _ []string) {
		format, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("out")

		a, err := openApp()
		if err != nil {
			fatalf("%v", err)
		}
		defer a.close()

		var out string
		switch format {
		case "json":
			out, err = a.logbook.ExportJSON()
			if err != nil {
				fatalf("%v", err)
			}
		case "markdown", "md":
			out = a.logbook.ExportMarkdown()
		default:
			fatalf("unknown format: %s (want json or markdown)", format)
		}

		if outPath == "" {
			fmt.Print(out)
			return
		}
		if err := os.WriteFile(outPath, []byte(out), 0o644); err != nil {
			fatalf("writing %s: %v", outPath, err)
		}
		fmt.Printf("%s Wrote %s\n", ui.RenderGood("✓"), outPath)
	},
}

var logbookStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the logbook",
	Run: func(cmd *cobra.Command, _ []string) {
		a, err := openApp()
		if err != nil {
			fatalf("%v", err)
		}
		defer a.close()

		stats := a.logbook.Stats()
		if jsonOutput() {
			if err := printJSON(stats); err != nil {
				fatalf("%v", err)
			}
			return
		}

		fmt.Println(ui.Countf("entries", stats.TotalEntries))
		fmt.Println(ui.Countf("pending reviews", stats.PendingReviews))
		fmt.Println(ui.Countf("auto-fixed", stats.AutoFixed))
		if stats.WriteErrors > 0 {
			fmt.Println(ui.RenderBad(ui.Countf("write errors", stats.WriteErrors)))
		}

		decisions := make([]string, 0, len(stats.ByDecision))
		for d := range stats.ByDecision {
			decisions = append(decisions, d)
		}
		sort.Strings(decisions)
		fmt.Println("\nBy decision:")
		for _, d := range decisions {
			fmt.Println(ui.Countf(d, stats.ByDecision[d]))
		}
	},
}

func printEntry(e logbook.Entry) {
	label := e.EntityName
	if e.EntityBrand != "" {
		label = e.EntityBrand + " " + label
	}
	fmt.Printf("%s %s %s %s\n",
		ui.RenderMuted(e.Timestamp.Format("2006-01-02 15:04")),
		decisionBadge(e.Decision),
		e.CheckID,
		ui.Truncate(label, 40))
	fmt.Println(ui.RenderMuted(fmt.Sprintf("    id=%s %s", e.ID,
		ui.Truncate(e.Reasoning, ui.Width()-20))))
}

func decisionBadge(d logbook.Decision) string {
	switch d {
	case logbook.DecisionAutoFixed:
		return ui.RenderGood(string(d))
	case logbook.DecisionFlagged:
		return ui.RenderWarn(string(d))
	case logbook.DecisionSkipped:
		return ui.RenderMuted(string(d))
	default:
		return string(d)
	}
}

func init() {
	logbookShowCmd.Flags().String("entity", "", "Only entries for one entity id")
	logbookShowCmd.Flags().String("decision", "", "Only entries with this decision")
	logbookShowCmd.Flags().Int("limit", 20, "Maximum entries to show (0 = all)")

	logbookExportCmd.Flags().String("format", "markdown", "Export format: json or markdown")
	logbookExportCmd.Flags().String("out", "", "Write to a file instead of stdout")

	logbookCmd.AddCommand(logbookShowCmd)
	logbookCmd.AddCommand(logbookPendingCmd)
	logbookCmd.AddCommand(logbookStatsCmd)
	logbookCmd.AddCommand(logbookExportCmd)
	rootCmd.AddCommand(logbookCmd)
}
