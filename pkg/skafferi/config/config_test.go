package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/cognicore/skafferi/pkg/skafferi/internalerr"
	"github.com/cognicore/skafferi/pkg/skafferi/store"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadEngineKeepsDefaults(t *testing.T) {
	path := writeFile(t, "engine.yaml", `locale: tr
max_limit: 50
`)

	cfg, err := LoadEngine(path)
	if err != nil {
		t.Fatalf("Failed to load engine config: %v", err)
	}

	want := DefaultEngine()
	want.Locale = "tr"
	want.MaxLimit = 50
	if cfg != want {
		t.Errorf("got %+v; want %+v", cfg, want)
	}
}

func TestLoadEngineRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"threshold too high", "accept_threshold: 1.5\n"},
		{"negative threshold", "accept_threshold: -0.1\n"},
		{"zero default limit", "default_limit: 0\n"},
		{"max below default", "default_limit: 20\nmax_limit: 5\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadEngine(writeFile(t, "engine.yaml", tc.content))
			if !errors.Is(err, internalerr.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadEngineMalformed(t *testing.T) {
	_, err := LoadEngine(writeFile(t, "engine.yaml", "locale: [unterminated\n"))
	if err == nil {
		t.Error("Should error on malformed YAML")
	}
}

func TestValidateNaNThreshold(t *testing.T) {
	cfg := DefaultEngine()
	cfg.AcceptThreshold = math.NaN()
	if err := cfg.Validate(); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for NaN, got %v", err)
	}
}

func TestClampLimit(t *testing.T) {
	cfg := Engine{DefaultLimit: 10, MaxLimit: 25}
	tests := []struct{ in, want int }{
		{0, 10},
		{-3, 10},
		{7, 7},
		{25, 25},
		{1000, 25},
	}
	for _, tc := range tests {
		if got := cfg.ClampLimit(tc.in); got != tc.want {
			t.Errorf("ClampLimit(%d) = %d; want %d", tc.in, got, tc.want)
		}
	}
}

func TestLoadCatalog(t *testing.T) {
	path := writeFile(t, "catalog.yaml", `foods:
  - name: Gul lök
    aliases:
      - Lök
      - Gullök
  - name: Ägg
    status: approved
  - name: Okänd grönsak
    status: pending

units:
  - name: matsked
    plural: matskedar
    abbreviation: msk
  - name: deciliter
    abbreviation: dl
`)

	cat, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("Failed to load catalog: %v", err)
	}

	if len(cat.Foods) != 3 {
		t.Fatalf("Expected 3 foods, got %d", len(cat.Foods))
	}
	if cat.Foods[0].Status != store.StatusApproved {
		t.Errorf("missing status should default to approved, got %q", cat.Foods[0].Status)
	}
	if len(cat.Foods[0].Aliases) != 2 {
		t.Errorf("Expected 2 aliases, got %v", cat.Foods[0].Aliases)
	}
	if cat.Foods[2].Status != store.StatusPending {
		t.Errorf("status = %q; want pending", cat.Foods[2].Status)
	}

	if len(cat.Units) != 2 {
		t.Fatalf("Expected 2 units, got %d", len(cat.Units))
	}
	if cat.Units[0].Abbreviation != "msk" || cat.Units[0].Plural != "matskedar" {
		t.Errorf("unexpected unit %+v", cat.Units[0])
	}
}

func TestLoadCatalogRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"food without name", "foods:\n  - status: approved\n"},
		{"unknown status", "foods:\n  - name: Ägg\n    status: maybe\n"},
		{"unit without name", "units:\n  - abbreviation: msk\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadCatalog(writeFile(t, "catalog.yaml", tc.content))
			if !errors.Is(err, internalerr.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadCatalogMissingFile(t *testing.T) {
	if _, err := LoadCatalog("/nonexistent/catalog.yaml"); err == nil {
		t.Error("Should error on nonexistent file")
	}
}
