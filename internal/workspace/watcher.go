package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vellum-notes/vellum/internal/metadata"
)

// debounceInterval batches rapid editor save bursts into one index
// update per file.
const debounceInterval = 200 * time.Millisecond

// StartWatcher watches the documents tree for out-of-band edits (made
// outside the Write boundary, e.g. by an external editor) and keeps the
// metadata timestamps and search index in step with the working tree.
//
// The watcher is owned by the manager lifecycle: Close cancels it
// before any handle is released.
func (m *Manager) StartWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	docsRoot := filepath.Join(m.ws.Root, DocsDirName)
	if err := addWatchTree(watcher, docsRoot); err != nil {
		watcher.Close()
		return err
	}

	var (
		queueMu sync.Mutex
		queue   = make(map[string]time.Time)
	)

	m.wg.Add(2)

	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-m.ctx.Done():
				watcher.Close()
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				// New directories need their own watches
				if event.Op&fsnotify.Create != 0 {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						_ = addWatchTree(watcher, event.Name)
						continue
					}
				}
				queueMu.Lock()
				queue[event.Name] = time.Now()
				queueMu.Unlock()

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				m.logger.Printf("watcher error: %v", err)
			}
		}
	}()

	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(debounceInterval)
		defer ticker.Stop()

		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				now := time.Now()
				queueMu.Lock()
				for path, queuedAt := range queue {
					if now.Sub(queuedAt) < debounceInterval {
						continue
					}
					delete(queue, path)
					if err := m.syncExternalChange(path); err != nil {
						m.logger.Printf("failed to sync external change %s: %v", path, err)
					}
				}
				queueMu.Unlock()
			}
		}
	}()

	return nil
}

// addWatchTree registers the directory and all its subdirectories.
func addWatchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
		}
		return nil
	})
}

// syncExternalChange reconciles one out-of-band file change with the
// metadata store and search index.
func (m *Manager) syncExternalChange(absPath string) error {
	rel, err := filepath.Rel(m.ws.Root, absPath)
	if err != nil {
		return err
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, DocsDirName+"/") {
		return nil
	}

	content, err := os.ReadFile(absPath)
	if os.IsNotExist(err) {
		// Deleted outside the app: drop the record and index entries
		if err := m.meta.Remove(rel); err != nil {
			return err
		}
		return m.index.Delete(rel)
	}
	if err != nil {
		return err
	}

	rec, err := m.meta.Get(rel)
	if err != nil {
		rec = metadata.Record{Mode: m.ws.Settings.DefaultMode}
	}
	rec.Modified = time.Now().UTC()

	if err := m.meta.Upsert(rel, rec); err != nil {
		return err
	}
	stored, err := m.meta.Get(rel)
	if err != nil {
		return err
	}
	return m.index.IndexDocument(rel, stored, content)
}
