package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var scopeSanitizer = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// FileStore writes one JSON file per scope under a directory.
type FileStore struct {
	directory string
}

func NewFileStore(directory string) *FileStore {
	return &FileStore{directory: directory}
}

func (f *FileStore) path(scope string) string {
	safe := scopeSanitizer.ReplaceAllString(scope, "_")
	return filepath.Join(f.directory, safe+".json")
}

func (f *FileStore) Load(_ context.Context, scope string) ([]byte, error) {
	data, err := os.ReadFile(f.path(scope)) // #nosec G304 - path is built from the configured directory
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read index file: %w", err)
	}
	return data, nil
}

// Save writes to a temp file and renames it over the old one so readers
// never see a half-written index.
func (f *FileStore) Save(_ context.Context, scope string, blob []byte) error {
	if err := os.MkdirAll(f.directory, 0o750); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	filename := f.path(scope)
	tempFile := filename + ".tmp"

	if err := os.WriteFile(tempFile, blob, 0o600); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to save index file: %w", err)
	}
	return nil
}

func (f *FileStore) Delete(_ context.Context, scope string) error {
	err := os.Remove(f.path(scope))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete index file: %w", err)
	}
	return nil
}

func (f *FileStore) Close() error {
	return nil
}
