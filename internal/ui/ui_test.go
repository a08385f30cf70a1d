package ui

import (
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"a longer string", 8, "a longe…"},
		{"héllo wörld", 6, "héllo…"},
		{"anything", 1, "…"},
		{"anything", 0, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestRenderPlainWhenPiped(t *testing.T) {
	// Tests never run attached to a terminal, so rendering must pass
	// text through untouched.
	if got := RenderAccent("x"); got != "x" {
		t.Errorf("accent = %q", got)
	}
	if got := RiskBadge("high"); got != "high" {
		t.Errorf("badge = %q", got)
	}
}

func TestRiskBadgeUnknownLevel(t *testing.T) {
	if got := RiskBadge("weird"); got != "weird" {
		t.Errorf("badge = %q", got)
	}
}

func TestRule(t *testing.T) {
	r := Rule()
	if !strings.HasPrefix(r, "─") {
		t.Errorf("rule = %q", r)
	}
	if n := len([]rune(r)); n > DefaultWidth {
		t.Errorf("rule length = %d", n)
	}
}

func TestCountf(t *testing.T) {
	if got := Countf("issues", 3); got != "  issues: 3" {
		t.Errorf("Countf = %q", got)
	}
}
