package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/avjpl/gallery-assets-json-generation/internal/domain"
)

// Loader reads a written manifest back from disk
type Loader struct{}

// NewLoader creates a new manifest loader
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads, parses and validates the manifest at path
func (l *Loader) Load(path string) (*Manifest, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".json" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedExt, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	return l.LoadFromBytes(data)
}

// LoadFromBytes parses and validates a manifest from raw JSON
func (l *Loader) LoadFromBytes(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	if m.Category == nil {
		m.Category = []string{}
	}
	if m.Data == nil {
		m.Data = []domain.Bundle{}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}
