package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/schmelli/gearkeeper/internal/config"
	"github.com/schmelli/gearkeeper/internal/corrections"
	"github.com/schmelli/gearkeeper/internal/dict"
	"github.com/schmelli/gearkeeper/internal/dispatch"
	"github.com/schmelli/gearkeeper/internal/engine"
	"github.com/schmelli/gearkeeper/internal/fixer"
	"github.com/schmelli/gearkeeper/internal/logbook"
	"github.com/schmelli/gearkeeper/internal/metrics"
	"github.com/schmelli/gearkeeper/internal/oracle"
	"github.com/schmelli/gearkeeper/internal/queue"
	"github.com/schmelli/gearkeeper/internal/scanner"
	"github.com/schmelli/gearkeeper/internal/store"
	"github.com/schmelli/gearkeeper/internal/store/sqlite"
)

// app bundles the wired hygiene stack for one command invocation.
type app struct {
	catalog  *store.Catalog
	dicts    *dict.Dictionaries
	scanner  *scanner.Scanner
	fixer    *fixer.Fixer
	recorder *corrections.Recorder
	logbook  *logbook.Logbook
	queue    *queue.Queue
	metrics  *metrics.Collector
	engine   *engine.Engine

	close func() error
}

// openApp wires the full stack from config. Call close when done.
func openApp() (*app, error) {
	s, err := sqlite.Open(config.GetString(config.KeyDBPath))
	if err != nil {
		return nil, err
	}

	dicts, err := dict.Load(config.GetString(config.KeyDictDir))
	if err != nil {
		s.Close()
		return nil, err
	}

	lb, err := logbook.Open(config.GetString(config.KeyLogbookPath))
	if err != nil {
		s.Close()
		return nil, err
	}

	catalog := store.NewCatalog(s)

	scan := scanner.New(catalog, dicts)
	th := config.GetThresholds()
	if th.Similarity > 0 {
		scan.SimilarityThreshold = th.Similarity
	}
	if th.Completeness > 0 {
		scan.CompletenessThreshold = th.Completeness
	}

	recorder := corrections.NewRecorder()
	fix := fixer.New(catalog, recorder)

	// No search provider is wired by default: research checks record
	// skipped decisions instead of guessing.
	research := oracle.NewWebResearcher(catalog, nil)
	oc := config.GetOracleConfig()
	if oc.Timeout > 0 {
		research.Timeout = oc.Timeout
	}
	if oc.Retries >= 0 {
		research.MaxRetries = uint64(oc.Retries)
	}

	q := queue.New()
	collector := metrics.NewCollector()
	d := dispatch.New(catalog, dicts, scan, oracle.NewRuleJudge(catalog, dicts), research, fix, lb)
	eng := engine.New(catalog, dicts, q, d, lb, collector)

	return &app{
		catalog:  catalog,
		dicts:    dicts,
		scanner:  scan,
		fixer:    fix,
		recorder: recorder,
		logbook:  lb,
		queue:    q,
		metrics:  collector,
		engine:   eng,
		close:    s.Close,
	}, nil
}

func jsonOutput() bool {
	return config.GetBool(config.KeyJSON)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
