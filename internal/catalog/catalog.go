// Package catalog defines the versioned system taxonomy that seeding applies
// to every owner.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Veraticus/taskflow/internal/model"
	"gopkg.in/yaml.v3"
)

// ErrInvalidCatalog is returned when a catalog definition fails validation.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Entry is one system category with its ordered subcategory names.
type Entry struct {
	Name          string   `yaml:"name" json:"name"`
	Icon          string   `yaml:"icon" json:"icon,omitempty"`
	Color         string   `yaml:"color" json:"color,omitempty"`
	Description   string   `yaml:"description" json:"description,omitempty"`
	Subcategories []string `yaml:"subcategories" json:"subcategories"`
}

// Catalog is an immutable, versioned system taxonomy. Build one with New,
// Load or Default; the zero value is empty.
type Catalog struct {
	version  string
	fallback string
	entries  []Entry
}

// definition is the on-disk YAML shape.
type definition struct {
	Version  string  `yaml:"version"`
	Fallback string  `yaml:"fallback"`
	Entries  []Entry `yaml:"categories"`
}

// New validates and copies the given entries into a Catalog.
func New(version, fallback string, entries []Entry) (*Catalog, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		return nil, fmt.Errorf("%w: missing version", ErrInvalidCatalog)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no categories", ErrInvalidCatalog)
	}

	seen := make(map[string]bool, len(entries))
	copied := make([]Entry, 0, len(entries))
	for i, e := range entries {
		e.Name = strings.TrimSpace(e.Name)
		if e.Name == "" {
			return nil, fmt.Errorf("%w: category %d has no name", ErrInvalidCatalog, i)
		}
		key := model.NormalizeName(e.Name)
		if seen[key] {
			return nil, fmt.Errorf("%w: duplicate category %q", ErrInvalidCatalog, e.Name)
		}
		seen[key] = true

		subs := make([]string, 0, len(e.Subcategories))
		seenSub := make(map[string]bool, len(e.Subcategories))
		for _, sub := range e.Subcategories {
			sub = strings.TrimSpace(sub)
			if sub == "" {
				return nil, fmt.Errorf("%w: empty subcategory under %q", ErrInvalidCatalog, e.Name)
			}
			if seenSub[model.NormalizeName(sub)] {
				return nil, fmt.Errorf("%w: duplicate subcategory %q under %q", ErrInvalidCatalog, sub, e.Name)
			}
			seenSub[model.NormalizeName(sub)] = true
			subs = append(subs, sub)
		}
		e.Subcategories = subs
		copied = append(copied, e)
	}

	fallback = strings.TrimSpace(fallback)
	if fallback != "" && !seen[model.NormalizeName(fallback)] {
		return nil, fmt.Errorf("%w: fallback %q is not a catalog category", ErrInvalidCatalog, fallback)
	}

	return &Catalog{version: version, fallback: fallback, entries: copied}, nil
}

// Parse reads a catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	var def definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	return New(def.Version, def.Fallback, def.Entries)
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Version identifies this catalog revision in the sync audit trail.
func (c *Catalog) Version() string { return c.version }

// Fallback names the category that link repair prefers for dangling tasks.
// Empty means "first category by order".
func (c *Catalog) Fallback() string { return c.fallback }

// Len returns the number of categories.
func (c *Catalog) Len() int { return len(c.entries) }

// Entries returns a copy of the catalog in order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	for i, e := range c.entries {
		e.Subcategories = append([]string(nil), e.Subcategories...)
		out[i] = e
	}
	return out
}

// Lookup finds an entry by case-insensitive name.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	key := model.NormalizeName(name)
	for _, e := range c.entries {
		if model.NormalizeName(e.Name) == key {
			e.Subcategories = append([]string(nil), e.Subcategories...)
			return e, true
		}
	}
	return Entry{}, false
}

// Marshal renders the catalog as YAML in the format Load accepts.
func (c *Catalog) Marshal() ([]byte, error) {
	return yaml.Marshal(definition{Version: c.version, Fallback: c.fallback, Entries: c.Entries()})
}
