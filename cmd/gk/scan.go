package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schmelli/gearkeeper/internal/types"
	"github.com/schmelli/gearkeeper/internal/ui"
)

var scanCmd = &cobra.Command{
	Use:     "scan",
	GroupID: "hygiene",
	Short:   "Run every batch detector over the catalog",
	Long: `Scan the whole catalog for data-quality issues: transcription
errors, potential duplicates, incomplete items, orphaned nodes, and
non-standard brand spellings. Scanning never writes; use --auto-fix
to also apply the low-risk fixes the scan proposes.`,
	Run: func(cmd *cobra.Command, _ []string) {
		autoFix, _ := cmd.Flags().GetBool("auto-fix")
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := openApp()
		if err != nil {
			fatalf("%v", err)
		}
		defer a.close()

		ctx := cmd.Context()
		issues := a.scanner.FullScan(ctx)
		a.metrics.RecordScan(issues)

		var fixResults []string
		if autoFix {
			for _, r := range a.fixer.ApplyAutoFixes(ctx, issues) {
				fixResults = append(fixResults, r.Message)
				a.metrics.RecordFix(r)
			}
		}

		shown := issues
		if limit > 0 && len(shown) > limit {
			shown = shown[:limit]
		}

		if jsonOutput() {
			out := map[string]any{
				"total_issues": len(issues),
				"issues":       shown,
			}
			if autoFix {
				out["auto_fixed"] = len(fixResults)
				out["fix_summary"] = a.fixer.GetSummary()
			}
			if err := printJSON(out); err != nil {
				fatalf("%v", err)
			}
			return
		}

		if len(issues) == 0 {
			fmt.Printf("%s No issues found\n", ui.RenderGood("✓"))
			return
		}

		fmt.Printf("Found %d issues\n\n", len(issues))
		for _, issue := range shown {
			printIssue(issue)
		}
		if len(shown) < len(issues) {
			fmt.Println(ui.RenderMuted(fmt.Sprintf("… and %d more (raise --limit to see them)", len(issues)-len(shown))))
		}

		if autoFix {
			s := a.fixer.GetSummary()
			fmt.Printf("\n%s Applied %d auto-fixes (%d failed)\n",
				ui.RenderGood("✓"), s.Successful, s.Failed)
		}
	},
}

func printIssue(issue *types.Issue) {
	fmt.Printf("%s [%s] %s\n",
		ui.RiskBadge(string(issue.RiskLevel())),
		issue.IssueType,
		ui.Truncate(issue.Description, ui.Width()-20))
	fmt.Println(ui.RenderMuted(fmt.Sprintf("    id=%s entity=%s confidence=%.0f%%",
		issue.ID, issue.EntityID, issue.Confidence*100)))
}

func init() {
	scanCmd.Flags().Bool("auto-fix", false, "Apply low-risk fixes immediately")
	scanCmd.Flags().Int("limit", 50, "Maximum issues to display (0 = all)")
	rootCmd.AddCommand(scanCmd)
}
