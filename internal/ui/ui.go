// Package ui holds small terminal presentation helpers shared by the
// CLI commands: terminal detection, width, and accent rendering that
// degrades to plain text when output is piped.
package ui

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// ANSI styles used by the render helpers.
const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiDim    = "\x1b[2m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiRed    = "\x1b[31m"
	ansiCyan   = "\x1b[36m"
)

// DefaultWidth is used when the terminal size cannot be determined.
const DefaultWidth = 80

// IsTerminal reports whether stdout is attached to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// colorEnabled honors NO_COLOR and non-terminal output.
func colorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return IsTerminal()
}

// Width returns the terminal width, or DefaultWidth when unknown.
func Width() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return DefaultWidth
	}
	return w
}

func render(style, s string) string {
	if !colorEnabled() {
		return s
	}
	return style + s + ansiReset
}

// RenderAccent highlights a short marker or heading.
func RenderAccent(s string) string { return render(ansiBold+ansiCyan, s) }

// RenderMuted dims secondary text.
func RenderMuted(s string) string { return render(ansiDim, s) }

// RenderGood marks success output.
func RenderGood(s string) string { return render(ansiGreen, s) }

// RenderWarn marks cautionary output.
func RenderWarn(s string) string { return render(ansiYellow, s) }

// RenderBad marks failures and high-risk items.
func RenderBad(s string) string { return render(ansiRed, s) }

// Rule draws a horizontal divider sized to the terminal, capped so
// wide terminals do not get a wall of dashes.
func Rule() string {
	w := Width()
	if w > DefaultWidth {
		w = DefaultWidth
	}
	return strings.Repeat("─", w)
}

// Truncate shortens s to max runes with an ellipsis.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}

// RiskBadge renders a risk level with its conventional color.
func RiskBadge(level string) string {
	switch strings.ToLower(level) {
	case "low":
		return RenderGood(level)
	case "medium":
		return RenderWarn(level)
	case "high":
		return RenderBad(level)
	default:
		return level
	}
}

// Countf prints a labeled count line, e.g. "  issues: 42".
func Countf(label string, n int) string {
	return fmt.Sprintf("  %s: %d", label, n)
}
