package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"crowdfund-scraper/models"
)

// JSONWriter writes a run's records as one indented JSON array. Each Write
// replaces the file contents.
type JSONWriter struct {
	mu   sync.Mutex
	path string
}

// NewJSONWriter prepares path, creating intermediate directories.
func NewJSONWriter(path string) (*JSONWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("json: create output dir: %w", err)
	}
	return &JSONWriter{path: path}, nil
}

func (j *JSONWriter) Write(records []*models.EnrichedRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows := make([]map[string]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.Map())
	}

	f, err := os.Create(j.path)
	if err != nil {
		return fmt.Errorf("json: create file %q: %w", j.path, err)
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("json: encode: %w", err)
	}
	return f.Close()
}

func (j *JSONWriter) Close() error { return nil }
