package main

import "testing"

func TestCommandsRegistered(t *testing.T) {
	want := []string{
		"init", "scan", "triage", "run", "queue", "logbook", "review", "fix", "status",
	}
	registered := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range want {
		if !registered[name] {
			t.Errorf("command %s not registered", name)
		}
	}
}

func TestLogbookSubcommands(t *testing.T) {
	var lb map[string]bool
	for _, c := range rootCmd.Commands() {
		if c.Name() == "logbook" {
			lb = make(map[string]bool)
			for _, sub := range c.Commands() {
				lb[sub.Name()] = true
			}
		}
	}
	if lb == nil {
		t.Fatal("logbook command missing")
	}
	for _, name := range []string{"show", "stats", "pending", "export"} {
		if !lb[name] {
			t.Errorf("logbook %s not registered", name)
		}
	}
}

func TestReviewRequiresVerdict(t *testing.T) {
	// --approve and --reject are mutually exclusive and one is
	// required; the command validates inside Run, so here we only
	// check the flags exist.
	for _, flag := range []string{"approve", "reject", "notes", "by"} {
		if reviewCmd.Flags().Lookup(flag) == nil {
			t.Errorf("review flag --%s missing", flag)
		}
	}
}
