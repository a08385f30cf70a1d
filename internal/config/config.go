// Package config is the viper-backed configuration singleton. Values
// resolve env var > config file > default; command-line flags are
// applied on top by the CLI layer.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Well-known config keys.
const (
	KeyDBPath        = "db"
	KeyLogbookPath   = "logbook"
	KeyDictDir       = "dict-dir"
	KeyJSON          = "json"
	KeyBatchSize     = "batch-size"
	KeyTriageLimit   = "triage-limit"
	KeySimilarity    = "thresholds.similarity"
	KeyCompleteness  = "thresholds.completeness"
	KeyOracleTimeout = "oracle.timeout"
	KeyOracleRetries = "oracle.retries"
)

var v *viper.Viper

// Initialize sets up the configuration singleton. Call once at
// startup, before any getter.
//
// Config file precedence: project .gearkeeper/config.yaml (found by
// walking up from the working directory) > ~/.config/gk/config.yaml >
// ~/.gearkeeper/config.yaml. Environment variables use the GK_ prefix
// with dots and hyphens mapped to underscores, e.g. GK_BATCH_SIZE.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	configFileSet := false

	// Walk up from CWD so commands work from subdirectories.
	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			configPath := filepath.Join(dir, ".gearkeeper", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
				break
			}
		}
	}
	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			configPath := filepath.Join(configDir, "gk", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}
	if !configFileSet {
		if homeDir, err := os.UserHomeDir(); err == nil {
			configPath := filepath.Join(homeDir, ".gearkeeper", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	v.SetEnvPrefix("GK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyDBPath, defaultDBPath())
	v.SetDefault(KeyLogbookPath, defaultLogbookPath())
	v.SetDefault(KeyDictDir, "")
	v.SetDefault(KeyJSON, false)
	v.SetDefault(KeyBatchSize, 10)
	v.SetDefault(KeyTriageLimit, 100)
	v.SetDefault(KeySimilarity, 0.85)
	v.SetDefault(KeyCompleteness, 0.3)
	v.SetDefault(KeyOracleTimeout, "30s")
	v.SetDefault(KeyOracleRetries, 1)

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

func defaultDBPath() string {
	return filepath.Join(".gearkeeper", "catalog.db")
}

func defaultLogbookPath() string {
	return filepath.Join(".gearkeeper", "hygiene_logbook.jsonl")
}

// ResetForTesting clears the config state so Initialize can run again.
// Not thread-safe; call only from single-threaded test setup.
func ResetForTesting() {
	v = nil
}

// ConfigFileUsed returns the path of the loaded config file, or empty.
func ConfigFileUsed() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// Source reports where a configuration value came from.
type Source string

// Value sources, in ascending precedence.
const (
	SourceDefault    Source = "default"
	SourceConfigFile Source = "config_file"
	SourceEnvVar     Source = "env_var"
	SourceFlag       Source = "flag"
)

// ValueSource returns the source of a configuration value. Flags are
// layered on by the CLI, so this never reports SourceFlag.
func ValueSource(key string) Source {
	if v == nil {
		return SourceDefault
	}
	envKey := "GK_" + strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))
	if os.Getenv(envKey) != "" {
		return SourceEnvVar
	}
	if v.InConfig(key) {
		return SourceConfigFile
	}
	return SourceDefault
}

// GetString retrieves a string configuration value.
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value.
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt retrieves an integer configuration value.
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetFloat retrieves a float configuration value.
func GetFloat(key string) float64 {
	if v == nil {
		return 0
	}
	return v.GetFloat64(key)
}

// GetDuration retrieves a duration configuration value.
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set overrides a configuration value, typically from a CLI flag.
func Set(key string, value any) {
	if v != nil {
		v.Set(key, value)
	}
}

// AllSettings returns every configuration setting as a map.
func AllSettings() map[string]any {
	if v == nil {
		return map[string]any{}
	}
	return v.AllSettings()
}

// Thresholds bundles the detector tuning knobs.
type Thresholds struct {
	Similarity   float64
	Completeness float64
}

// GetThresholds returns the configured detector thresholds.
func GetThresholds() Thresholds {
	return Thresholds{
		Similarity:   GetFloat(KeySimilarity),
		Completeness: GetFloat(KeyCompleteness),
	}
}

// OracleConfig bundles research oracle settings.
type OracleConfig struct {
	Timeout time.Duration
	Retries int
}

// GetOracleConfig returns the configured oracle settings.
func GetOracleConfig() OracleConfig {
	return OracleConfig{
		Timeout: GetDuration(KeyOracleTimeout),
		Retries: GetInt(KeyOracleRetries),
	}
}
