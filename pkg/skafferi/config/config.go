package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/skafferi/pkg/skafferi/internalerr"
	"github.com/cognicore/skafferi/pkg/skafferi/store"
)

// Engine holds the tunables of the matching engine
type Engine struct {
	// Locale is a BCP 47 tag used for case folding.
	Locale string `yaml:"locale"`
	// AcceptThreshold is the rank a match must exceed to be accepted.
	AcceptThreshold float64 `yaml:"accept_threshold"`
	DefaultLimit    int     `yaml:"default_limit"`
	MaxLimit        int     `yaml:"max_limit"`
}

// DefaultEngine returns the configuration used when no file is given
func DefaultEngine() Engine {
	return Engine{
		Locale:          "sv",
		AcceptThreshold: 0.5,
		DefaultLimit:    10,
		MaxLimit:        100,
	}
}

// Validate reports the first invalid field
func (e Engine) Validate() error {
	switch {
	case math.IsNaN(e.AcceptThreshold) || e.AcceptThreshold < 0 || e.AcceptThreshold >= 1:
		return fmt.Errorf("accept_threshold %v outside [0, 1): %w", e.AcceptThreshold, internalerr.ErrInvalidConfig)
	case e.DefaultLimit <= 0:
		return fmt.Errorf("default_limit %d must be positive: %w", e.DefaultLimit, internalerr.ErrInvalidConfig)
	case e.MaxLimit < e.DefaultLimit:
		return fmt.Errorf("max_limit %d below default_limit %d: %w", e.MaxLimit, e.DefaultLimit, internalerr.ErrInvalidConfig)
	}
	return nil
}

// ClampLimit maps a requested result limit into [1, MaxLimit]; zero or
// negative requests get DefaultLimit.
func (e Engine) ClampLimit(limit int) int {
	if limit <= 0 {
		return e.DefaultLimit
	}
	if limit > e.MaxLimit {
		return e.MaxLimit
	}
	return limit
}

// LoadEngine loads engine configuration from a YAML file. Fields missing
// from the file keep their defaults.
func LoadEngine(path string) (Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Engine{}, err
	}

	cfg := DefaultEngine()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Engine{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Engine{}, err
	}
	return cfg, nil
}

// Catalog is a seed file of foods and units
type Catalog struct {
	Foods []CatalogFood `yaml:"foods"`
	Units []CatalogUnit `yaml:"units"`
}

// CatalogFood is a canonical food and the alternative names that alias it
type CatalogFood struct {
	Name    string           `yaml:"name"`
	Status  store.FoodStatus `yaml:"status"`
	Aliases []string         `yaml:"aliases"`
}

// CatalogUnit is a measurement unit
type CatalogUnit struct {
	Name         string `yaml:"name"`
	Plural       string `yaml:"plural"`
	Abbreviation string `yaml:"abbreviation"`
}

// LoadCatalog loads a catalog seed from a YAML file
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	for i, f := range cat.Foods {
		if f.Name == "" {
			return nil, fmt.Errorf("food #%d has no name: %w", i+1, internalerr.ErrInvalidConfig)
		}
		switch f.Status {
		case "":
			cat.Foods[i].Status = store.StatusApproved
		case store.StatusApproved, store.StatusPending, store.StatusRejected:
		default:
			return nil, fmt.Errorf("food %q: unknown status %q: %w", f.Name, f.Status, internalerr.ErrInvalidConfig)
		}
	}
	for i, u := range cat.Units {
		if u.Name == "" {
			return nil, fmt.Errorf("unit #%d has no name: %w", i+1, internalerr.ErrInvalidConfig)
		}
	}

	return &cat, nil
}
