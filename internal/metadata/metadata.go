// Package metadata provides the authoritative mapping from document
// paths to descriptive metadata.
//
// The store persists as a single version-controlled JSON file at the
// workspace root, so metadata travels with repository history: replaying
// history at any past commit yields metadata consistent with the
// document set at that commit. Every mutation rewrites the whole file
// through a temp-file-and-rename sequence so a crash mid-write can never
// leave a half-updated document with no record at all.
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileName is the metadata file name at the workspace root.
const FileName = "vellum.json"

// FormatVersion is the persisted file format version.
const FormatVersion = 1

// ErrCorrupt is returned when the metadata file exists but fails to
// parse. Callers recover by rebuilding from the working tree rather
// than crashing.
var ErrCorrupt = errors.New("metadata file is corrupt")

// ErrNotFound is returned when no record exists for a path.
var ErrNotFound = errors.New("no metadata record for path")

// Record describes one document. Paths are slash-separated and relative
// to the workspace root; a path maps to at most one record.
type Record struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Tags     []string          `json:"tags,omitempty"`
	Created  time.Time         `json:"created"`
	Modified time.Time         `json:"modified"`
	Mode     string            `json:"mode"`
	Language string            `json:"language,omitempty"`
	Custom   map[string]string `json:"custom,omitempty"`
}

// WorkspaceInfo is the workspace block of the metadata file.
type WorkspaceInfo struct {
	Name        string    `json:"name"`
	Created     time.Time `json:"created"`
	Description string    `json:"description,omitempty"`
}

// file is the on-disk shape. The layout is stable across versions.
type file struct {
	Version   int               `json:"version"`
	Workspace WorkspaceInfo     `json:"workspace"`
	Documents map[string]Record `json:"documents"`
}

// Store is the metadata store for one workspace.
//
// The store assumes a single writer per workspace; concurrent writers
// from multiple application instances are out of scope.
type Store struct {
	path string

	mu   sync.RWMutex
	data file
}

// Create writes a fresh metadata file with no records and returns the
// store. Fails if the file already exists.
func Create(root string, ws WorkspaceInfo) (*Store, error) {
	path := filepath.Join(root, FileName)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("metadata file already exists: %s", path)
	}

	s := &Store{
		path: path,
		data: file{
			Version:   FormatVersion,
			Workspace: ws,
			Documents: make(map[string]Record),
		},
	}
	if err := s.save(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads the metadata file at the workspace root.
// Returns ErrCorrupt (wrapped) if the file exists but does not parse.
func Load(root string) (*Store, error) {
	path := filepath.Join(root, FileName)

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var data file
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if data.Documents == nil {
		data.Documents = make(map[string]Record)
	}

	return &Store{path: path, data: data}, nil
}

// Path returns the metadata file path.
func (s *Store) Path() string {
	return s.path
}

// Workspace returns the workspace block.
func (s *Store) Workspace() WorkspaceInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Workspace
}

// Get returns the record for a path.
func (s *Store) Get(path string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data.Documents[normalize(path)]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return rec, nil
}

// Upsert inserts or replaces the record for a path and durably rewrites
// the metadata file. Missing identity and timestamps are filled in.
func (s *Store) Upsert(path string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalize(path)
	now := time.Now().UTC()

	if prev, ok := s.data.Documents[key]; ok {
		if rec.ID == "" {
			rec.ID = prev.ID
		}
		if rec.Created.IsZero() {
			rec.Created = prev.Created
		}
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Created.IsZero() {
		rec.Created = now
	}
	if rec.Modified.IsZero() {
		rec.Modified = now
	}
	rec.Created = rec.Created.UTC()
	rec.Modified = rec.Modified.UTC()

	s.data.Documents[key] = rec
	return s.save()
}

// Remove deletes the record for a path and durably rewrites the file.
// Removing an absent path is not an error.
func (s *Store) Remove(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalize(path)
	if _, ok := s.data.Documents[key]; !ok {
		return nil
	}

	delete(s.data.Documents, key)
	return s.save()
}

// List returns all records keyed by path.
func (s *Store) List() map[string]Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Record, len(s.data.Documents))
	for k, v := range s.data.Documents {
		out[k] = v
	}
	return out
}

// save writes the whole file to a temp location in the same directory
// and atomically swaps it into place.
func (s *Store) save() error {
	raw, err := json.MarshalIndent(&s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	raw = append(raw, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".vellum-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp metadata file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp metadata file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace metadata file: %w", err)
	}

	return nil
}

// normalize converts a path to its canonical slash-separated form.
func normalize(path string) string {
	return filepath.ToSlash(filepath.Clean(strings.TrimSpace(path)))
}
