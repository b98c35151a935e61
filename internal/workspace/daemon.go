package workspace

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/vellum-notes/vellum/internal/metadata"
	"github.com/vellum-notes/vellum/internal/vcs"
)

// DaemonLogger returns a logger writing to a rotated log file under
// the workspace logs directory. Used when vellum runs detached.
func DaemonLogger(root string) *log.Logger {
	return log.New(&lumberjack.Logger{
		Filename:   filepath.Join(root, ConfigDirName, LogsDirName, "daemon.log"),
		MaxSize:    5, // megabytes
		MaxBackups: 3,
		MaxAge:     30, // days
	}, "[daemon] ", log.LstdFlags)
}

// StartAutoSync starts the fixed-interval background pull-and-refresh.
//
// The timer is owned by the manager lifecycle, not free-running: Close
// cancels it before releasing any handle, so shutdown is always clean.
// Each tick pulls under the given per-attempt timeout and refreshes the
// index from whatever the pull brought in. A failed tick is logged and
// retried on the next interval; it never stops the loop.
func (m *Manager) StartAutoSync(timeout time.Duration) {
	interval := time.Duration(m.ws.Settings.SyncIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				m.autoSyncOnce(timeout)
			}
		}
	}()
}

// autoSyncOnce runs one background sync attempt.
func (m *Manager) autoSyncOnce(timeout time.Duration) {
	link, err := m.RemoteLink()
	if err != nil || link == nil {
		return // Nothing to sync against
	}

	ctx, cancel := context.WithTimeout(m.ctx, timeout)
	defer cancel()

	res, err := m.coord.Pull(ctx, vcs.DefaultRemote, "")
	if err != nil {
		// Timeouts and network errors are retryable on the next tick
		m.logger.Printf("background pull failed: %v", err)
		return
	}
	if res.Warning != "" {
		m.logger.Printf("background pull: %s", res.Warning)
	}

	// The pull may have changed documents and metadata on disk
	if err := m.reloadAfterPull(ctx); err != nil {
		m.logger.Printf("post-pull refresh failed: %v", err)
	}
}

// reloadAfterPull refreshes the metadata store in place and reindexes
// after the working tree changed underneath us. The store handle is
// shared with the watcher goroutines, so it is never swapped out.
func (m *Manager) reloadAfterPull(ctx context.Context) error {
	rebuilt, err := m.meta.ReloadOrRebuild(metadata.WorkspaceInfo{
		Name:    m.ws.Name,
		Created: m.ws.Created,
	}, DocsDirName)
	if err != nil {
		return err
	}
	if rebuilt {
		m.logger.Printf("metadata file was corrupt after pull; rebuilt from working tree")
	}

	return m.RebuildIndex(ctx)
}
