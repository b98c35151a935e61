package workspace

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/vellum-notes/vellum/internal/metadata"
	"github.com/vellum-notes/vellum/internal/search"
	"github.com/vellum-notes/vellum/internal/syncer"
	"github.com/vellum-notes/vellum/internal/vcs"
)

// Manager is the open-workspace handle the editors and the UI shell
// talk to. It owns the repository binding, the sync coordinator, the
// metadata store, the search index, and the background daemon, and it
// releases all of them on Close.
type Manager struct {
	ws     *Workspace
	repo   vcs.Repo
	coord  *syncer.Coordinator
	meta   *metadata.Store
	index  *search.Index
	logger *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// Open opens an already-bootstrapped workspace.
//
// A corrupt metadata file is rebuilt from the working tree instead of
// failing the open. The search index is opened (and created on first
// open) but not rebuilt; use RebuildIndex for a full repopulation.
func Open(root string, logger *log.Logger) (*Manager, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[workspace] ", log.LstdFlags)
	}

	repo, err := vcs.Open(root)
	if err != nil {
		return nil, err
	}
	if !repo.IsInitialized() {
		repo.Close()
		return nil, vcs.ErrNotInitialized
	}

	ws, err := openExisting(repo.Root())
	if err != nil {
		repo.Close()
		return nil, err
	}

	meta, rebuilt, err := metadata.LoadOrRebuild(ws.Root, metadata.WorkspaceInfo{
		Name:    ws.Name,
		Created: ws.Created,
	}, DocsDirName)
	if err != nil {
		repo.Close()
		return nil, err
	}
	if rebuilt {
		logger.Printf("metadata file was corrupt; rebuilt from working tree")
	}

	index, err := search.Open(IndexPath(ws.Root))
	if err != nil {
		repo.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		ws:     ws,
		repo:   repo,
		coord:  syncer.New(repo, logger),
		meta:   meta,
		index:  index,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	return m, nil
}

// Workspace returns the workspace handle.
func (m *Manager) Workspace() *Workspace {
	return m.ws
}

// Coordinator returns the sync coordinator.
func (m *Manager) Coordinator() *syncer.Coordinator {
	return m.coord
}

// Metadata returns the metadata store.
func (m *Manager) Metadata() *metadata.Store {
	return m.meta
}

// Index returns the search index.
func (m *Manager) Index() *search.Index {
	return m.index
}

// RemoteLink returns the active remote link, nil when unlinked.
func (m *Manager) RemoteLink() (*RemoteLink, error) {
	return remoteLinkFor(m.repo, m.coord.LastSync())
}

// Close releases the workspace: the daemon timer and watcher are
// cancelled first, then the index and repository handles. Files on
// disk are untouched. Safe to call more than once.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.cancel()
		m.wg.Wait()

		if cerr := m.index.Close(); cerr != nil {
			err = cerr
		}
		if cerr := m.repo.Close(); cerr != nil && err == nil {
			err = cerr
		}
	})
	return err
}

// Write stores document content and its metadata record as one unit:
// the file is written, the metadata file updated, both staged, and,
// when auto-commit is on, captured in a single commit. The search
// index is updated incrementally afterwards.
//
// Writes block while a pull is mutating the working tree and proceed
// concurrently with a push.
func (m *Manager) Write(ctx context.Context, relPath string, content []byte, rec metadata.Record) error {
	rel, err := m.cleanDocPath(relPath)
	if err != nil {
		return err
	}

	m.coord.AcquireWrite()
	defer m.coord.ReleaseWrite()

	abs := filepath.Join(m.ws.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("failed to create document directory: %w", err)
	}
	if err := os.WriteFile(abs, content, 0o644); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}

	if rec.Mode == "" {
		rec.Mode = m.ws.Settings.DefaultMode
	}
	if rec.Title == "" {
		rec.Title = strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
	}
	rec.Modified = time.Now().UTC()

	if err := m.meta.Upsert(rel, rec); err != nil {
		return err
	}
	stored, err := m.meta.Get(rel)
	if err != nil {
		return err
	}

	// Content and metadata always land in the same commit
	paths := []string{rel, metadata.FileName}
	if err := m.repo.Stage(paths); err != nil {
		return err
	}
	if m.ws.Settings.AutoCommit {
		if err := m.commitIfChanged(ctx, fmt.Sprintf("Update %s", rel), paths); err != nil {
			return err
		}
	}

	if err := m.index.IndexDocument(rel, stored, content); err != nil {
		// The index is derived state; a failed update is logged and
		// repaired by the next rebuild, not surfaced as a write failure
		m.logger.Printf("index update failed for %s: %v", rel, err)
	}

	return nil
}

// Read returns the current content of a document.
func (m *Manager) Read(relPath string) ([]byte, error) {
	rel, err := m.cleanDocPath(relPath)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(m.ws.Root, filepath.FromSlash(rel)))
}

// Remove deletes a document, its metadata record, and its index
// entries, committing file and metadata together when auto-commit is on.
func (m *Manager) Remove(ctx context.Context, relPath string) error {
	rel, err := m.cleanDocPath(relPath)
	if err != nil {
		return err
	}

	m.coord.AcquireWrite()
	defer m.coord.ReleaseWrite()

	abs := filepath.Join(m.ws.Root, filepath.FromSlash(rel))
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove document: %w", err)
	}

	if err := m.meta.Remove(rel); err != nil {
		return err
	}

	paths := []string{rel, metadata.FileName}
	if err := m.repo.Stage(paths); err != nil {
		return err
	}
	if m.ws.Settings.AutoCommit {
		if err := m.commitIfChanged(ctx, fmt.Sprintf("Remove %s", rel), paths); err != nil {
			return err
		}
	}

	if err := m.index.Delete(rel); err != nil {
		m.logger.Printf("index delete failed for %s: %v", rel, err)
	}

	return nil
}

// commitIfChanged commits the staged paths unless they are already
// clean, so replaying an identical write never fails on an empty commit.
func (m *Manager) commitIfChanged(ctx context.Context, message string, paths []string) error {
	dirty, err := m.repo.HasChanges(paths...)
	if err != nil {
		return err
	}
	if !dirty {
		return nil
	}
	return m.repo.Commit(ctx, vcs.CommitOptions{Message: message, Paths: paths})
}

// RebuildIndex repopulates the search index from the metadata store
// and working tree.
func (m *Manager) RebuildIndex(ctx context.Context) error {
	return m.index.RebuildAll(ctx, m.ws.Root, m.meta.List())
}

// cleanDocPath validates and normalizes a document path: it must stay
// inside the workspace and may not touch the reserved directories.
func (m *Manager) cleanDocPath(relPath string) (string, error) {
	rel := filepath.ToSlash(filepath.Clean(strings.TrimSpace(relPath)))
	if rel == "" || rel == "." || strings.HasPrefix(rel, "../") || filepath.IsAbs(relPath) {
		return "", fmt.Errorf("invalid document path: %q", relPath)
	}
	if rel == metadata.FileName || rel == ".gitignore" || strings.HasPrefix(rel, ConfigDirName+"/") {
		return "", fmt.Errorf("reserved path: %q", relPath)
	}
	return rel, nil
}
