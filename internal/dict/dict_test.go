package dict

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultLookups(t *testing.T) {
	d := Default()

	tests := []struct {
		name string
		got  func() (string, bool)
		want string
	}{
		{"transcription brand", func() (string, bool) { return d.CorrectTranscription("Big Agnus") }, "Big Agnes"},
		{"transcription product", func() (string, bool) { return d.CorrectTranscription("Neo Air") }, "NeoAir"},
		{"brand abbreviation", func() (string, bool) { return d.CanonicalBrand("hmg") }, "Hyperlite Mountain Gear"},
		{"brand upper", func() (string, bool) { return d.CanonicalBrand("ZPACKS") }, "Zpacks"},
		{"brand mixed case", func() (string, bool) { return d.CanonicalBrand("Tarp Tent") }, "Tarptent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.got()
			if !ok || got != tt.want {
				t.Errorf("got %q/%v, want %q", got, ok, tt.want)
			}
		})
	}

	if _, ok := d.CorrectTranscription("Osprey"); ok {
		t.Error("correct spelling matched a transcription error")
	}
	if _, ok := d.CanonicalBrand("Durston"); ok {
		t.Error("unknown brand matched a canonical form")
	}
}

func TestIsGenericTerm(t *testing.T) {
	d := Default()
	for _, term := range []string{"ultralight", "Ultralight", "SLEEPING BAG", "tent"} {
		if !d.IsGenericTerm(term) {
			t.Errorf("IsGenericTerm(%q) = false", term)
		}
	}
	for _, term := range []string{"Zpacks", "Osprey", ""} {
		if d.IsGenericTerm(term) {
			t.Errorf("IsGenericTerm(%q) = true", term)
		}
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	overlay := `transcription_errors:
  "Ospray": "Osprey"
canonical_brands:
  "rab": "Rab"
generic_terms:
  - quilt
`
	if err := os.WriteFile(filepath.Join(dir, "local.yaml"), []byte(overlay), 0o644); err != nil {
		t.Fatal(err)
	}

	d, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got, ok := d.CorrectTranscription("Ospray"); !ok || got != "Osprey" {
		t.Errorf("overlay transcription = %q/%v", got, ok)
	}
	if got, ok := d.CanonicalBrand("RAB"); !ok || got != "Rab" {
		t.Errorf("overlay brand = %q/%v", got, ok)
	}
	if !d.IsGenericTerm("Quilt") {
		t.Error("overlay generic term not merged")
	}
	// Built-ins survive the merge.
	if got, ok := d.CorrectTranscription("Zpack"); !ok || got != "Zpacks" {
		t.Errorf("builtin lost after merge: %q/%v", got, ok)
	}
}

func TestLoadMissingDir(t *testing.T) {
	d, err := Load(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("Load on missing dir: %v", err)
	}
	if _, ok := d.CanonicalBrand("msr"); !ok {
		t.Error("defaults missing")
	}
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(":\n  - ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("Load accepted malformed YAML")
	}
}

func TestSizes(t *testing.T) {
	tr, br, ge := Default().Sizes()
	if tr == 0 || br == 0 || ge == 0 {
		t.Errorf("Sizes() = %d, %d, %d", tr, br, ge)
	}
}
