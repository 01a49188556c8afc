package manifest

import (
	"fmt"

	"github.com/avjpl/gallery-assets-json-generation/internal/domain"
	"github.com/duke-git/lancet/v2/slice"
)

// Manifest is the aggregated gallery index
type Manifest struct {
	Category []string        `json:"category"`
	Data     []domain.Bundle `json:"data"`
}

// New returns an empty manifest. Both sequences are non-nil so an empty
// manifest encodes as [] rather than null.
func New() *Manifest {
	return &Manifest{
		Category: []string{},
		Data:     []domain.Bundle{},
	}
}

// Add appends a bundle and records its category on first appearance
func (m *Manifest) Add(b domain.Bundle) {
	m.Data = append(m.Data, b)
	if c := b.Category(); !slice.Contain(m.Category, c) {
		m.Category = append(m.Category, c)
	}
}

// Merge folds other into m, as if its bundles had been added one by one
func (m *Manifest) Merge(other *Manifest) {
	if other == nil {
		return
	}
	for _, b := range other.Data {
		m.Add(b)
	}
}

// Len returns the number of bundles
func (m *Manifest) Len() int {
	return len(m.Data)
}

// Validate checks the invariants of a complete manifest
func (m *Manifest) Validate() error {
	seen := make(map[string]bool, len(m.Category))
	for _, c := range m.Category {
		if seen[c] {
			return fmt.Errorf("%w: %q", ErrDuplicateCategory, c)
		}
		seen[c] = true
	}

	for i, b := range m.Data {
		if err := validateBundle(b); err != nil {
			return fmt.Errorf("data[%d]: %w", i, err)
		}
		if !seen[b.Category()] {
			return fmt.Errorf("data[%d]: %w: %q", i, ErrUnlistedCategory, b.Category())
		}
	}

	return nil
}

func validateBundle(b domain.Bundle) error {
	category := b.Category()
	if category == "" {
		return fmt.Errorf("%w: empty category", ErrInconsistentBundle)
	}

	variants := b.Variants()
	for i, size := range domain.Sizes() {
		v := variants[i]
		if v.Width != size.Width {
			return fmt.Errorf("%w: %s width is %d, want %d", ErrInconsistentBundle, size.Name, v.Width, size.Width)
		}
		if v.Category != category {
			return fmt.Errorf("%w: %s category %q differs from %q", ErrInconsistentBundle, size.Name, v.Category, category)
		}
		if v.Src == "" {
			return fmt.Errorf("%w: %s has no src", ErrInconsistentBundle, size.Name)
		}
	}
	return nil
}
