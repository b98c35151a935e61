// Package search provides the tiered search index over workspace
// documents.
//
// The index is derived state: it lives in .vellum/index.db, is excluded
// from version control, and can always be rebuilt from the working tree
// and metadata store. It is updated incrementally on every document
// write and never consulted as a source of truth.
//
// Three query tiers trade latency against completeness:
//   - Tier 1: metadata-only filters (title, tags, mode, date range)
//   - Tier 2: ranked full-text search over current content (FTS5)
//   - Tier 3: full-text search across historical revisions, opt-in,
//     bounded, and never exhaustive
//
// The database runs embedded with WAL mode so reads stay concurrent
// with the single writer.
package search

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/vellum-notes/vellum/internal/metadata"
)

// Index wraps the SQLite database holding the search index.
type Index struct {
	conn *sql.DB
	path string

	// writeMu serializes writers; SQLite allows one at a time.
	writeMu sync.Mutex
}

// Open creates or opens the index database at the specified path.
//
// The caller MUST call Close() when done.
func Open(path string) (*Index, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping index database: %w", err)
	}

	conn.SetMaxOpenConns(8)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	idx := &Index{conn: conn, path: path}

	// WAL keeps readers concurrent with the writer
	if _, err := idx.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := idx.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := idx.initSchema(); err != nil {
		_ = idx.Close()
		return nil, err
	}

	return idx, nil
}

// Close closes the index database.
func (idx *Index) Close() error {
	if idx.conn == nil {
		return nil
	}
	err := idx.conn.Close()
	idx.conn = nil
	return err
}

// Path returns the index database file path.
func (idx *Index) Path() string {
	return idx.path
}

func (idx *Index) initSchema() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			path     TEXT PRIMARY KEY,
			title    TEXT NOT NULL,
			mode     TEXT NOT NULL,
			language TEXT NOT NULL DEFAULT '',
			created  TEXT NOT NULL,
			modified TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS document_tags (
			path TEXT NOT NULL,
			tag  TEXT NOT NULL,
			PRIMARY KEY (path, tag)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_document_tags_tag ON document_tags(tag)`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS content USING fts5(path UNINDEXED, title, body)`,
	}

	for _, stmt := range schema {
		if _, err := idx.conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create index schema: %w", err)
		}
	}
	return nil
}

// IndexDocument inserts or replaces the index entries for one document.
func (idx *Index) IndexDocument(path string, rec metadata.Record, body []byte) error {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	tx, err := idx.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin index transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO documents (path, title, mode, language, created, modified)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title = excluded.title,
			mode = excluded.mode,
			language = excluded.language,
			created = excluded.created,
			modified = excluded.modified`,
		path, rec.Title, rec.Mode, rec.Language,
		rec.Created.UTC().Format(time.RFC3339), rec.Modified.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert document row: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM document_tags WHERE path = ?`, path); err != nil {
		return fmt.Errorf("failed to clear tags: %w", err)
	}
	for _, tag := range rec.Tags {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO document_tags (path, tag) VALUES (?, ?)`, path, tag); err != nil {
			return fmt.Errorf("failed to insert tag: %w", err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM content WHERE path = ?`, path); err != nil {
		return fmt.Errorf("failed to clear content row: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO content (path, title, body) VALUES (?, ?, ?)`,
		path, rec.Title, string(body)); err != nil {
		return fmt.Errorf("failed to insert content row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index transaction: %w", err)
	}
	return nil
}

// Delete removes all index entries for a document. Idempotent.
func (idx *Index) Delete(path string) error {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	tx, err := idx.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin index transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM documents WHERE path = ?`,
		`DELETE FROM document_tags WHERE path = ?`,
		`DELETE FROM content WHERE path = ?`,
	} {
		if _, err := tx.Exec(stmt, path); err != nil {
			return fmt.Errorf("failed to delete index entries: %w", err)
		}
	}

	return tx.Commit()
}

// RebuildAll drops and repopulates the index from the metadata store
// and working tree. File reads run in parallel; writes are serialized
// through IndexDocument.
func (idx *Index) RebuildAll(ctx context.Context, root string, records map[string]metadata.Record) error {
	idx.writeMu.Lock()
	for _, stmt := range []string{
		`DELETE FROM documents`, `DELETE FROM document_tags`, `DELETE FROM content`,
	} {
		if _, err := idx.conn.Exec(stmt); err != nil {
			idx.writeMu.Unlock()
			return fmt.Errorf("failed to clear index: %w", err)
		}
	}
	idx.writeMu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for path, rec := range records {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			body, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(path)))
			if err != nil {
				if os.IsNotExist(err) {
					return nil // Record without a file; skip
				}
				return fmt.Errorf("failed to read %s: %w", path, err)
			}

			return idx.IndexDocument(path, rec, body)
		})
	}

	return g.Wait()
}
