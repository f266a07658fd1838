package feed

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Taxonomy maps numeric Google product category ids to their full paths.
// A nil or empty taxonomy labels every value as itself.
type Taxonomy struct {
	paths map[string]string
	mu    sync.RWMutex
}

func NewTaxonomy() *Taxonomy {
	return &Taxonomy{paths: make(map[string]string)}
}

// LoadFile reads Google's "taxonomy-with-ids" text file. A missing file is
// not an error; labels then fall back to raw values.
func (t *Taxonomy) LoadFile(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Warn("Taxonomy file not found, category ids will be shown raw", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read taxonomy file: %w", err)
	}

	return t.Load(bytes.NewReader(data))
}

func (t *Taxonomy) Load(r io.Reader) error {
	paths := make(map[string]string)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		id, path, ok := strings.Cut(line, " - ")
		if !ok {
			continue
		}
		paths[strings.TrimSpace(id)] = strings.TrimSpace(path)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to parse taxonomy: %w", err)
	}

	t.mu.Lock()
	t.paths = paths
	t.mu.Unlock()

	slog.Debug("Taxonomy loaded", "categories", len(paths))
	return nil
}

func (t *Taxonomy) Len() int {
	if t == nil {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.paths)
}

// Label returns the category path for a numeric id, or value unchanged.
func (t *Taxonomy) Label(value string) string {
	if t == nil {
		return value
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	if path, ok := t.paths[strings.TrimSpace(value)]; ok {
		return path
	}
	return value
}
