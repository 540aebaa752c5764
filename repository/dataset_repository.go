package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"loraset/model"
)

// DatasetRepository persists dataset documents.
type DatasetRepository interface {
	Save(path string, doc *model.DatasetDocument) error
	Load(path string) (*model.DatasetDocument, error)
}

// jsonDatasetRepository stores one dataset per JSON file.
type jsonDatasetRepository struct{}

// NewJSONDatasetRepository creates a file backed DatasetRepository.
func NewJSONDatasetRepository() DatasetRepository {
	return &jsonDatasetRepository{}
}

// Save writes doc as indented UTF-8 JSON, creating parent directories.
func (r *jsonDatasetRepository) Save(path string, doc *model.DatasetDocument) error {
	data, err := encodeJSON(doc)
	if err != nil {
		return fmt.Errorf("failed to encode dataset for %s: %w", path, err)
	}
	return writeFile(path, data)
}

// Load reads a dataset document. Unknown keys are ignored and absent keys default.
func (r *jsonDatasetRepository) Load(path string) (*model.DatasetDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("dataset %s: %w", path, model.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read dataset %s: %v: %w", path, err, model.ErrIO)
	}
	var doc model.DatasetDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse dataset %s: %v: %w", path, err, model.ErrParse)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("failed to parse dataset %s: %w", path, err)
	}
	return &doc, nil
}

// SaveManifest writes a preprocessing manifest.
func SaveManifest(path string, manifest *model.Manifest) error {
	data, err := encodeJSON(manifest)
	if err != nil {
		return fmt.Errorf("failed to encode manifest for %s: %w", path, err)
	}
	return writeFile(path, data)
}

// LoadManifest reads a preprocessing manifest.
func LoadManifest(path string) (*model.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("manifest %s: %w", path, model.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read manifest %s: %v: %w", path, err, model.ErrIO)
	}
	var m model.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %v: %w", path, err, model.ErrParse)
	}
	return &m, nil
}

func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %v: %w", path, err, model.ErrIO)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %v: %w", path, err, model.ErrIO)
	}
	return nil
}
