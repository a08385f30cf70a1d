package logbook

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExportJSON renders the full log as an indented JSON array.
func (lb *Logbook) ExportJSON() (string, error) {
	data, err := json.MarshalIndent(lb.Entries(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("exporting logbook: %w", err)
	}
	return string(data), nil
}

var decisionIcons = map[Decision]string{
	DecisionAutoFixed: "v",
	DecisionNoIssue:   "o",
	DecisionFlagged:   "!",
	DecisionApproved:  "v",
	DecisionRejected:  "x",
}

// ExportMarkdown renders the log grouped by entity, for handing to a
// reviewer outside the tool.
func (lb *Logbook) ExportMarkdown() string {
	entries := lb.Entries()

	var b strings.Builder
	b.WriteString("# Hygiene Decision Log\n\n")
	fmt.Fprintf(&b, "Session: %s\n", lb.SessionID())
	fmt.Fprintf(&b, "Total Entries: %d\n\n", len(entries))

	// Group by entity, preserving first-seen order.
	var order []string
	byEntity := make(map[string][]Entry)
	for _, e := range entries {
		key := fmt.Sprintf("%s (%s)", e.EntityName, e.EntityBrand)
		if _, ok := byEntity[key]; !ok {
			order = append(order, key)
		}
		byEntity[key] = append(byEntity[key], e)
	}

	for _, key := range order {
		fmt.Fprintf(&b, "## %s\n\n", key)
		for _, e := range byEntity[key] {
			icon, ok := decisionIcons[e.Decision]
			if !ok {
				icon = "-"
			}
			reasoning := e.Reasoning
			if len(reasoning) > 100 {
				reasoning = reasoning[:100] + "..."
			}
			fmt.Fprintf(&b, "- [%s] **%s**\n", icon, e.CheckName)
			fmt.Fprintf(&b, "  - Decision: %s\n", e.Decision)
			fmt.Fprintf(&b, "  - Confidence: %.0f%%\n", e.Confidence*100)
			fmt.Fprintf(&b, "  - Reasoning: %s\n", reasoning)
			if e.FixType != "" {
				fmt.Fprintf(&b, "  - Fix: `%v` -> `%v`\n", e.OldValue, e.NewValue)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
