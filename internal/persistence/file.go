// Package persistence implements the aggregator's crash-safe, full-store
// rewrite to a single JSON-array file. Writes go to a sibling temp file
// and are atomically renamed over the canonical path; a failed write
// leaves the previous file intact and is retried on the next trigger.
package persistence

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/i474232898/weatherfabric/internal/codec"
)

// Store is the sibling-file persistence layer for a single canonical
// path. It never calls into the HTTP surface and runs synchronously with
// its caller — there is no background writer queue, so "rename" is the
// only durability boundary that matters.
type Store struct {
	path string
}

// New returns a Store writing to path.
func New(path string) *Store {
	return &Store{path: path}
}

// Exists reports whether the canonical file is currently present. The
// HTTP surface checks this before Flush: a PUT replies 201 when no
// canonical file existed yet, even if it updated an existing station.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Flush atomically rewrites the canonical file with records. A write
// failure is logged and the previous file is left untouched; the caller
// is expected to retry on the next trigger (a mutating PUT or a sweep
// that removed something).
func (s *Store) Flush(records []*codec.Object) error {
	data := []byte(codec.EncodeArray(records))

	tmpPath := s.path + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		log.Printf("persistence: write %s failed: %v", tmpPath, err)
		return fmt.Errorf("persistence: write temp file: %w", err)
	}

	f, err := os.OpenFile(tmpPath, os.O_RDWR, 0o644)
	if err == nil {
		if syncErr := f.Sync(); syncErr != nil {
			log.Printf("persistence: fsync %s failed: %v", tmpPath, syncErr)
		}
		f.Close()
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		log.Printf("persistence: rename %s -> %s failed: %v", tmpPath, s.path, err)
		os.Remove(tmpPath)
		return fmt.Errorf("persistence: rename: %w", err)
	}
	return nil
}

// Load reads the canonical file and decodes it as an array of records.
// If the file does not exist this is not an error — it returns (nil,
// nil) so the caller starts with an empty store. Parse errors are
// logged and also returned as (nil, nil) so startup continues with an
// empty store rather than failing.
func (s *Store) Load() ([]*codec.Object, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("persistence: read %s: %w", s.path, err)
	}

	records, err := codec.DecodeArray(string(data))
	if err != nil {
		log.Printf("persistence: %s is not valid, starting with an empty store: %v", s.path, err)
		return nil, nil
	}
	return records, nil
}

// Dir returns the directory containing the canonical path, exported for
// callers that want to sanity-check write permissions at startup.
func (s *Store) Dir() string {
	return filepath.Dir(s.path)
}
