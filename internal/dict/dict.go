// Package dict holds the correction dictionaries the scanner and
// handlers consult: known transcription errors, canonical brand forms,
// and generic terms that are never brand names. Built-in defaults can
// be extended with YAML files and reloaded while the engine runs.
package dict

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Dictionaries is the merged, read-only view handed to detectors.
// Lookups are case-sensitive for transcription errors (they encode
// observed miswritings verbatim) and lowercase-keyed for brands.
type Dictionaries struct {
	mu sync.RWMutex

	transcriptionErrors map[string]string
	canonicalBrands     map[string]string
	genericTerms        map[string]bool
}

// overlayFile is the on-disk YAML shape for dictionary extensions.
type overlayFile struct {
	TranscriptionErrors map[string]string `yaml:"transcription_errors"`
	CanonicalBrands     map[string]string `yaml:"canonical_brands"`
	GenericTerms        []string          `yaml:"generic_terms"`
}

// Default returns the built-in dictionaries.
func Default() *Dictionaries {
	d := &Dictionaries{
		transcriptionErrors: make(map[string]string, len(defaultTranscriptionErrors)),
		canonicalBrands:     make(map[string]string, len(defaultCanonicalBrands)),
		genericTerms:        make(map[string]bool, len(defaultGenericTerms)),
	}
	for k, v := range defaultTranscriptionErrors {
		d.transcriptionErrors[k] = v
	}
	for k, v := range defaultCanonicalBrands {
		d.canonicalBrands[strings.ToLower(k)] = v
	}
	for _, t := range defaultGenericTerms {
		d.genericTerms[t] = true
	}
	return d
}

// Load returns the defaults merged with every *.yaml/*.yml file in
// dir. Overlay entries win over built-ins. A missing dir is not an
// error; a malformed file is.
func Load(dir string) (*Dictionaries, error) {
	d := Default()
	if dir == "" {
		return d, nil
	}
	if err := d.mergeDir(dir); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dictionaries) mergeDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading dictionary dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if err := d.mergeFile(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dictionaries) mergeFile(path string) error {
	data, err := os.ReadFile(path) // #nosec G304 - controlled path from config
	if err != nil {
		return fmt.Errorf("reading dictionary file %s: %w", filepath.Base(path), err)
	}
	var f overlayFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parsing dictionary file %s: %w", filepath.Base(path), err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for k, v := range f.TranscriptionErrors {
		d.transcriptionErrors[k] = v
	}
	for k, v := range f.CanonicalBrands {
		d.canonicalBrands[strings.ToLower(k)] = v
	}
	for _, t := range f.GenericTerms {
		d.genericTerms[strings.ToLower(t)] = true
	}
	return nil
}

// CorrectTranscription returns the known correction for a string that
// matches a recorded transcription error, or false.
func (d *Dictionaries) CorrectTranscription(s string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.transcriptionErrors[s]
	return v, ok
}

// TranscriptionErrors returns a copy of the error→correction table.
// The scanner iterates it to substring-match entity names.
func (d *Dictionaries) TranscriptionErrors() map[string]string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]string, len(d.transcriptionErrors))
	for k, v := range d.transcriptionErrors {
		out[k] = v
	}
	return out
}

// CanonicalBrand returns the canonical form for a brand spelling, or
// false if the spelling is not a known variant. Matching ignores case.
func (d *Dictionaries) CanonicalBrand(brand string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.canonicalBrands[strings.ToLower(brand)]
	return v, ok
}

// IsGenericTerm reports whether the string is a generic gear term that
// must never appear in a brand field. Matching ignores case.
func (d *Dictionaries) IsGenericTerm(s string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.genericTerms[strings.ToLower(s)]
}

// Sizes returns the table sizes, for status output.
func (d *Dictionaries) Sizes() (transcription, brands, generic int) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.transcriptionErrors), len(d.canonicalBrands), len(d.genericTerms)
}
