package output

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/avjpl/gallery-assets-json-generation/internal/domain"
	"github.com/avjpl/gallery-assets-json-generation/internal/manifest"
	"github.com/avjpl/gallery-assets-json-generation/internal/utils"
)

// Writer writes the manifest to <Directory>/<Filename>
type Writer struct {
	baseDir  string
	filename string
	dryRun   bool
}

// WriterOptions contains options for the writer
type WriterOptions struct {
	Directory string
	Filename  string
	DryRun    bool
}

// NewWriter creates a new output writer
func NewWriter(opts WriterOptions) *Writer {
	if opts.Directory == "" {
		opts.Directory = "assets"
	}
	if opts.Filename == "" {
		opts.Filename = "assets.json"
	}

	return &Writer{
		baseDir:  opts.Directory,
		filename: opts.Filename,
		dryRun:   opts.DryRun,
	}
}

// Path returns the destination of the manifest
func (w *Writer) Path() string {
	return filepath.Join(w.baseDir, w.filename)
}

// Write encodes m and replaces the manifest file atomically. In dry-run mode
// the manifest is encoded but nothing touches the disk.
func (w *Writer) Write(ctx context.Context, m *manifest.Manifest) (string, error) {
	path := w.Path()

	if err := ctx.Err(); err != nil {
		return path, err
	}

	data, err := Encode(m)
	if err != nil {
		return path, domain.NewWriteError(path, err)
	}

	if w.dryRun {
		return path, nil
	}

	if err := utils.WriteFileAtomic(path, data, 0644); err != nil {
		return path, domain.NewWriteError(path, err)
	}

	return path, nil
}

// Encode renders m as tab-indented JSON with a trailing newline. URLs are
// written verbatim, without HTML escaping.
func Encode(m *manifest.Manifest) ([]byte, error) {
	if m == nil {
		m = manifest.New()
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "\t")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
