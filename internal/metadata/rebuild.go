package metadata

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Rebuild reconstructs a metadata store by walking the documents tree.
// It is the recovery path for a corrupt metadata file: records are
// regenerated with titles taken from the first markdown heading (or the
// file name) and timestamps from file modification times. The rebuilt
// file immediately replaces the corrupt one on disk.
func Rebuild(root string, ws WorkspaceInfo, docsDir string) (*Store, error) {
	s := &Store{
		path: filepath.Join(root, FileName),
		data: file{
			Version:   FormatVersion,
			Workspace: ws,
			Documents: make(map[string]Record),
		},
	}

	base := filepath.Join(root, docsDir)
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		mtime := info.ModTime().UTC()
		s.data.Documents[normalize(rel)] = Record{
			ID:       uuid.NewString(),
			Title:    titleFor(path),
			Created:  mtime,
			Modified: mtime,
			Mode:     modeFor(path),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk documents tree: %w", err)
	}

	if err := s.save(); err != nil {
		return nil, err
	}
	return s, nil
}

// titleFor extracts a display title: the first markdown heading if the
// file has one, otherwise the file name without extension.
func titleFor(path string) string {
	f, err := os.Open(path)
	if err == nil {
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, "#") {
				return strings.TrimSpace(strings.TrimLeft(line, "#"))
			}
			break
		}
	}

	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// modeFor guesses the editor mode from the file extension.
func modeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return "markdown"
	case ".txt", "":
		return "richtext"
	default:
		return "code"
	}
}

// LoadOrRebuild loads the metadata file, rebuilding it from the working
// tree when it is corrupt. The returned bool reports whether a rebuild
// happened.
func LoadOrRebuild(root string, ws WorkspaceInfo, docsDir string) (*Store, bool, error) {
	s, err := Load(root)
	if err == nil {
		return s, false, nil
	}
	if !errors.Is(err, ErrCorrupt) {
		return nil, false, err
	}

	s, rerr := Rebuild(root, ws, docsDir)
	if rerr != nil {
		return nil, false, fmt.Errorf("rebuild after corrupt metadata failed: %w", rerr)
	}
	return s, true, nil
}

// ReloadOrRebuild refreshes the store in place from the metadata file,
// rebuilding from the working tree when the file is corrupt. The store
// handle stays valid for concurrent readers; contents swap under its
// lock. Used after a pull rewrites the file underneath an open store.
func (s *Store) ReloadOrRebuild(ws WorkspaceInfo, docsDir string) (bool, error) {
	fresh, rebuilt, err := LoadOrRebuild(filepath.Dir(s.path), ws, docsDir)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	s.data = fresh.data
	s.mu.Unlock()
	return rebuilt, nil
}
