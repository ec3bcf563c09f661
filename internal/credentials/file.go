package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists the credential record as a JSON document at a fixed
// per-user path. Writes use temp file + rename for crash safety.
type FileStore struct {
	filePath string

	// Serializes read-merge-write cycles within this process. Concurrent
	// external edits are not reconciled; last writer wins.
	mu sync.Mutex
}

// Compile-time check to ensure FileStore implements Store
var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore for the given path, creating parent
// directories with 0700 permissions if they don't exist.
func NewFileStore(filePath string) (*FileStore, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	return &FileStore{
		filePath: filePath,
	}, nil
}

// Load returns the stored record. A missing file yields the zero Record;
// read or parse failures are logged and also degrade to the zero Record.
func (f *FileStore) Load(ctx context.Context) Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load(ctx)
}

// Save persists the record best-effort.
func (f *FileStore) Save(ctx context.Context, rec Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.save(ctx, rec)
}

// Update merges the partial into the stored record, persists and returns
// the merged result.
func (f *FileStore) Update(ctx context.Context, p Partial) Record {
	f.mu.Lock()
	defer f.mu.Unlock()

	merged := p.Apply(f.load(ctx))
	f.save(ctx, merged)
	return merged
}

func (f *FileStore) load(ctx context.Context) Record {
	data, err := os.ReadFile(f.filePath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.ErrorContext(ctx, "failed to read credential file", "path", f.filePath, "error", err)
		}
		return Record{}
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		slog.ErrorContext(ctx, "failed to parse credential file", "path", f.filePath, "error", err)
		return Record{}
	}
	return rec
}

func (f *FileStore) save(ctx context.Context, rec Record) {
	if err := f.write(rec); err != nil {
		slog.ErrorContext(ctx, "failed to persist credentials", "path", f.filePath, "error", err)
	}
}

// write atomically saves the record using temp file + rename, then sets
// file permissions to 0600 (owner read/write only).
func (f *FileStore) write(rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.filePath)
	tempFile, err := os.CreateTemp(dir, "*.tmp")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()
	// Cleanup deferred for all exit paths
	defer func() { _ = os.Remove(tempName) }()
	defer func() { _ = tempFile.Close() }()

	if _, err := tempFile.Write(append(data, '\n')); err != nil {
		return err
	}
	if err := tempFile.Close(); err != nil {
		return err
	}

	// Atomic rename to final location
	if err := os.Rename(tempName, f.filePath); err != nil {
		return err
	}

	return os.Chmod(f.filePath, 0600)
}
