package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/schmelli/gearkeeper/internal/logbook"
	"github.com/schmelli/gearkeeper/internal/types"
	"github.com/schmelli/gearkeeper/internal/ui"
)

var reviewCmd = &cobra.Command{
	Use:     "review <entry-id>",
	GroupID: "audit",
	Short:   "Approve or reject a flagged decision",
	Long: `Review marks a flagged logbook entry as approved or rejected. When
an approved entry carries a field-update fix, the fix is applied to
the catalog. The review is persisted as a superseding logbook line;
the original entry is never rewritten.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		approve, _ := cmd.Flags().GetBool("approve")
		reject, _ := cmd.Flags().GetBool("reject")
		notes, _ := cmd.Flags().GetString("notes")
		reviewer, _ := cmd.Flags().GetString("by")

		if approve == reject {
			fatalf("exactly one of --approve or --reject is required")
		}
		if reviewer == "" {
			if hostname, err := os.Hostname(); err == nil {
				reviewer = hostname
			} else {
				reviewer = "unknown"
			}
		}

		a, err := openApp()
		if err != nil {
			fatalf("%v", err)
		}
		defer a.close()

		entry, err := a.logbook.MarkReviewed(args[0], reviewer, approve, notes)
		if err != nil {
			fatalf("%v", err)
		}

		var applied *string
		if approve {
			if msg, ok := applyReviewedFix(cmd, a, entry); ok {
				applied = &msg
				history := a.fixer.History()
				a.metrics.RecordFix(history[len(history)-1])
			}
		} else {
			a.metrics.RecordRejection()
		}

		if jsonOutput() {
			out := map[string]any{"entry": entry}
			if applied != nil {
				out["applied"] = *applied
			}
			if err := printJSON(out); err != nil {
				fatalf("%v", err)
			}
			return
		}

		verdict := ui.RenderGood("approved")
		if reject {
			verdict = ui.RenderBad("rejected")
		}
		fmt.Printf("%s Entry %s %s by %s\n", ui.RenderGood("✓"), entry.ID, verdict, reviewer)
		if applied != nil {
			fmt.Println("  " + *applied)
		}
	},
}

// applyReviewedFix applies the fix an approved entry proposes. Only
// field updates are reconstructable from a logbook line; anything
// else must be re-run through a scan.
func applyReviewedFix(cmd *cobra.Command, a *app, entry logbook.Entry) (string, bool) {
	if entry.FixType != string(types.FixUpdateField) || entry.Field == "" {
		return "", false
	}

	issue := types.NewIssue(types.IssueTypo, entry.EntityType, entry.EntityID,
		fmt.Sprintf("Reviewer-approved %s fix from entry %s", entry.CheckID, entry.ID),
		types.Fix{
			FixType:          types.FixUpdateField,
			TargetEntityType: entry.EntityType,
			TargetEntityID:   entry.EntityID,
			TargetField:      entry.Field,
			OldValue:         entry.OldValue,
			NewValue:         entry.NewValue,
			Confidence:       entry.Confidence,
			Reasoning:        entry.Reasoning,
		}, entry.Confidence)

	result := a.fixer.ApplyFix(cmd.Context(), issue, true)
	if !result.Success {
		fmt.Fprintf(os.Stderr, "Warning: approved fix failed: %s\n", result.Message)
		return "", false
	}
	return result.Message, true
}

func init() {
	reviewCmd.Flags().Bool("approve", false, "Approve the flagged fix")
	reviewCmd.Flags().Bool("reject", false, "Reject the flagged fix")
	reviewCmd.Flags().String("notes", "", "Review notes")
	reviewCmd.Flags().String("by", "", "Reviewer name (default: hostname)")
	rootCmd.AddCommand(reviewCmd)
}
