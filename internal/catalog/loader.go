// Package catalog loads and validates the questionnaire definition.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/terra-clan/iso-assessment/internal/models"
)

//go:embed default.yaml
var defaultCatalog []byte

// OptionCount is the fixed size of the option scale
const OptionCount = 6

var (
	ErrNoDomains       = errors.New("catalog has no domains")
	ErrDuplicateID     = errors.New("duplicate id")
	ErrEmptyID         = errors.New("empty id")
	ErrInvalidOptions  = errors.New("invalid option scale")
	ErrCatalogNotFound = errors.New("catalog file not found")
)

// catalogFile represents the YAML structure of a catalog file
type catalogFile struct {
	Domains []models.Domain `yaml:"domains"`
	Options []models.Option `yaml:"options"`
}

// Load returns the catalog at path, or the embedded default when path is empty
func Load(path string) (*models.Catalog, error) {
	if path == "" {
		slog.Info("loading embedded default catalog")
		return Parse(defaultCatalog)
	}
	return LoadFromFile(path)
}

// Default returns the embedded ISO 27001 catalog
func Default() (*models.Catalog, error) {
	return Parse(defaultCatalog)
}

// LoadFromFile loads a catalog from a YAML (or JSON) file
func LoadFromFile(path string) (*models.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCatalogNotFound, path)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}

	slog.Info("catalog loaded", "path", path, "domains", len(c.Domains), "questions", c.TotalQuestions())
	return c, nil
}

// Parse decodes and validates catalog YAML
func Parse(data []byte) (*models.Catalog, error) {
	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := Validate(cf.Domains, cf.Options); err != nil {
		return nil, err
	}

	return models.NewCatalog(cf.Domains, cf.Options), nil
}

// Validate checks the structural invariants of a catalog
func Validate(domains []models.Domain, options []models.Option) error {
	if len(domains) == 0 {
		return ErrNoDomains
	}

	domainIDs := make(map[string]bool, len(domains))
	questionIDs := make(map[string]bool)

	for _, d := range domains {
		if d.ID == "" {
			return fmt.Errorf("domain %q: %w", d.Title, ErrEmptyID)
		}
		if domainIDs[d.ID] {
			return fmt.Errorf("domain %s: %w", d.ID, ErrDuplicateID)
		}
		domainIDs[d.ID] = true

		for _, q := range d.Questions {
			if q.ID == "" {
				return fmt.Errorf("question in domain %s: %w", d.ID, ErrEmptyID)
			}
			if questionIDs[q.ID] {
				return fmt.Errorf("question %s: %w", q.ID, ErrDuplicateID)
			}
			questionIDs[q.ID] = true
		}
	}

	return validateOptions(options)
}

// validateOptions requires exactly the numerals "0".."5", each scoring its own value
func validateOptions(options []models.Option) error {
	if len(options) != OptionCount {
		return fmt.Errorf("%w: expected %d options, got %d", ErrInvalidOptions, OptionCount, len(options))
	}

	seen := make(map[string]bool, len(options))
	for _, o := range options {
		n, err := strconv.Atoi(o.Value)
		if err != nil || n < 0 || n >= OptionCount || strconv.Itoa(n) != o.Value {
			return fmt.Errorf("%w: illegal value %q", ErrInvalidOptions, o.Value)
		}
		if seen[o.Value] {
			return fmt.Errorf("%w: value %q repeated", ErrInvalidOptions, o.Value)
		}
		if o.Score != n {
			return fmt.Errorf("%w: value %q scores %d", ErrInvalidOptions, o.Value, o.Score)
		}
		seen[o.Value] = true
	}

	return nil
}
