package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schmelli/gearkeeper/internal/types"
	"github.com/schmelli/gearkeeper/internal/ui"
)

var fixCmd = &cobra.Command{
	Use:     "fix",
	GroupID: "hygiene",
	Short:   "Scan and apply every fix that passes the auto-fix gate",
	Long: `Fix runs the batch detectors and applies every proposed fix that is
low risk and above its confidence threshold. Riskier findings are
listed but left untouched; approve them individually with gk review
after a gk run has logged them.`,
	Run: func(cmd *cobra.Command, _ []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		issueType, _ := cmd.Flags().GetString("type")

		a, err := openApp()
		if err != nil {
			fatalf("%v", err)
		}
		defer a.close()

		ctx := cmd.Context()
		issues := a.scanner.FullScan(ctx)
		a.metrics.RecordScan(issues)

		if issueType != "" {
			filtered := issues[:0]
			for _, issue := range issues {
				if string(issue.IssueType) == issueType {
					filtered = append(filtered, issue)
				}
			}
			issues = filtered
		}

		var fixable, skipped []*types.Issue
		for _, issue := range issues {
			if a.fixer.CanAutoFix(issue) {
				fixable = append(fixable, issue)
			} else {
				skipped = append(skipped, issue)
			}
		}

		if dryRun {
			if jsonOutput() {
				if err := printJSON(map[string]any{
					"would_fix": fixable,
					"skipped":   len(skipped),
				}); err != nil {
					fatalf("%v", err)
				}
				return
			}
			fmt.Printf("Would apply %d fixes (%d findings need review)\n\n", len(fixable), len(skipped))
			for _, issue := range fixable {
				printIssue(issue)
			}
			return
		}

		results := a.fixer.ApplyAutoFixes(ctx, fixable)
		for _, r := range results {
			a.metrics.RecordFix(r)
		}
		summary := a.fixer.GetSummary()

		if jsonOutput() {
			if err := printJSON(map[string]any{
				"summary":      summary,
				"results":      results,
				"needs_review": len(skipped),
			}); err != nil {
				fatalf("%v", err)
			}
			return
		}

		for _, r := range results {
			marker := ui.RenderGood("✓")
			if !r.Success {
				marker = ui.RenderBad("✗")
			}
			fmt.Printf("%s %s\n", marker, r.Message)
		}
		fmt.Printf("\n%s Applied %d of %d fixes", ui.RenderGood("✓"), summary.Successful, summary.TotalApplied)
		if len(skipped) > 0 {
			fmt.Printf("; %d findings need review", len(skipped))
		}
		fmt.Println()
	},
}

func init() {
	fixCmd.Flags().Bool("dry-run", false, "List what would be fixed without writing")
	fixCmd.Flags().String("type", "", "Only fix one issue type (e.g. typo, whitespace)")
	rootCmd.AddCommand(fixCmd)
}
