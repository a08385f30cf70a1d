package config

import (
	"os"
	"path/filepath"
	"testing"
)

func initIn(t *testing.T, dir string) {
	t.Helper()
	ResetForTesting()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Chdir(old)
		ResetForTesting()
	})
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
}

func TestDefaults(t *testing.T) {
	initIn(t, t.TempDir())

	if got := GetInt(KeyBatchSize); got != 10 {
		t.Errorf("batch size = %d", got)
	}
	if got := GetInt(KeyTriageLimit); got != 100 {
		t.Errorf("triage limit = %d", got)
	}
	th := GetThresholds()
	if th.Similarity != 0.85 || th.Completeness != 0.3 {
		t.Errorf("thresholds = %+v", th)
	}
	oc := GetOracleConfig()
	if oc.Timeout.Seconds() != 30 || oc.Retries != 1 {
		t.Errorf("oracle config = %+v", oc)
	}
	if GetBool(KeyJSON) {
		t.Error("json output on by default")
	}
	if got := GetString(KeyDBPath); got != filepath.Join(".gearkeeper", "catalog.db") {
		t.Errorf("db path = %q", got)
	}
}

func TestProjectConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, ".gearkeeper")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := "batch-size: 25\nthresholds:\n  similarity: 0.9\n"
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	// Initialize from a subdirectory; the walk-up should find it.
	sub := filepath.Join(dir, "nested", "deeper")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	initIn(t, sub)

	if got := GetInt(KeyBatchSize); got != 25 {
		t.Errorf("batch size = %d", got)
	}
	if got := GetFloat(KeySimilarity); got != 0.9 {
		t.Errorf("similarity = %v", got)
	}
	// Unset keys keep their defaults.
	if got := GetFloat(KeyCompleteness); got != 0.3 {
		t.Errorf("completeness = %v", got)
	}
	if ConfigFileUsed() == "" {
		t.Error("config file not recorded")
	}
	if got := ValueSource(KeyBatchSize); got != SourceConfigFile {
		t.Errorf("source = %s", got)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("GK_BATCH_SIZE", "3")
	t.Setenv("GK_THRESHOLDS_SIMILARITY", "0.5")
	initIn(t, t.TempDir())

	if got := GetInt(KeyBatchSize); got != 3 {
		t.Errorf("batch size = %d", got)
	}
	if got := GetFloat(KeySimilarity); got != 0.5 {
		t.Errorf("similarity = %v", got)
	}
	if got := ValueSource(KeyBatchSize); got != SourceEnvVar {
		t.Errorf("source = %s", got)
	}
}

func TestSetOverridesAll(t *testing.T) {
	t.Setenv("GK_BATCH_SIZE", "3")
	initIn(t, t.TempDir())

	Set(KeyBatchSize, 50)
	if got := GetInt(KeyBatchSize); got != 50 {
		t.Errorf("batch size = %d", got)
	}
}

func TestUninitializedGetters(t *testing.T) {
	ResetForTesting()
	if GetString(KeyDBPath) != "" || GetInt(KeyBatchSize) != 0 || GetBool(KeyJSON) {
		t.Error("uninitialized getters returned non-zero values")
	}
	if ValueSource(KeyDBPath) != SourceDefault {
		t.Error("uninitialized source not default")
	}
}
