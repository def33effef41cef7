package jsonldb

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// TempSuffix is appended to the target path while a save is in flight.
const TempSuffix = ".tmp"

// Document stores a collection of rows as one JSON array file.
type Document[T any] struct {
	path string
	mu   sync.Mutex
}

// NewDocument creates a Document bound to path, creating its directory.
//
// The file itself is created lazily on the first Load or Save.
func NewDocument[T any](path string) (*Document[T], error) {
	if path == "" {
		return nil, errors.New("document path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // G301: data directories are meant to be shared
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return &Document[T]{path: path}, nil
}

// Path returns the backing file path.
func (d *Document[T]) Path() string {
	return d.path
}

// Load returns every row stored in the file.
//
// A missing file is created containing an empty array. Unparseable content is
// reset to an empty array. Only I/O failures are returned as errors.
func (d *Document[T]) Load() ([]T, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.load()
}

// Save atomically replaces the file content with rows.
func (d *Document[T]) Save(rows []T) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.save(rows)
}

// Modify loads the rows, passes them to fn and saves what fn returns, holding
// the lock for the whole cycle. Nothing is written when fn returns an error.
func (d *Document[T]) Modify(fn func(rows []T) ([]T, error)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	rows, err := d.load()
	if err != nil {
		return err
	}
	rows, err = fn(rows)
	if err != nil {
		return err
	}
	return d.save(rows)
}

func (d *Document[T]) load() ([]T, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if err := d.save(nil); err != nil {
				return []T{}, fmt.Errorf("failed to create %s: %w", d.path, err)
			}
			return []T{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", d.path, err)
	}

	if !json.Valid(data) {
		slog.Warn("Resetting corrupted document", "path", d.path, "size", len(data))
		if err := d.save(nil); err != nil {
			slog.Error("Failed to reset corrupted document", "path", d.path, "err", err)
		}
		return []T{}, nil
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		slog.Warn("Document is not a JSON array, ignoring content", "path", d.path)
		return []T{}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// json.Valid passed and the value is an array; this can't happen.
		return []T{}, nil
	}
	rows := make([]T, 0, len(raw))
	for i, r := range raw {
		var row T
		if err := json.Unmarshal(r, &row); err != nil {
			slog.Debug("Skipping undecodable row", "path", d.path, "index", i, "err", err)
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (d *Document[T]) save(rows []T) (err error) {
	if rows == nil {
		rows = []T{}
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal rows: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil { //nolint:gosec // G301: data directories are meant to be shared
		return fmt.Errorf("failed to create directory for %s: %w", d.path, err)
	}

	tmpPath := d.path + TempSuffix
	f, err := os.Create(tmpPath) //nolint:gosec // G304: path comes from configuration
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, removeIfExists(tmpPath))
		}
	}()
	if _, err := f.Write(data); err != nil {
		return errors.Join(fmt.Errorf("failed to write temp file: %w", err), f.Close())
	}
	if err := f.Sync(); err != nil {
		return errors.Join(fmt.Errorf("failed to sync temp file: %w", err), f.Close())
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, d.path); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", d.path, err)
	}
	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove temp file: %w", err)
	}
	return nil
}
