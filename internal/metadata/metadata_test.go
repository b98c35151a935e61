package metadata

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Create(t.TempDir(), WorkspaceInfo{Name: "test", Created: time.Now().UTC()})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s
}

func TestCreateAndLoad(t *testing.T) {
	root := t.TempDir()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	s, err := Create(root, WorkspaceInfo{Name: "notes", Created: created})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := s.Upsert("documents/a.md", Record{Title: "A"}); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	loaded, err := Load(root)
	if err != nil {
		t.Fatalf("Failed to load store: %v", err)
	}
	if ws := loaded.Workspace(); ws.Name != "notes" || !ws.Created.Equal(created) {
		t.Errorf("Unexpected workspace info: %+v", ws)
	}
	rec, err := loaded.Get("documents/a.md")
	if err != nil {
		t.Fatalf("Failed to get record: %v", err)
	}
	if rec.Title != "A" {
		t.Errorf("Expected title A, got %q", rec.Title)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got: %v", err)
	}
}

func TestLoadCorrupt(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, FileName), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(root)
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("Expected ErrCorrupt, got: %v", err)
	}
}

func TestUpsertFillsDefaults(t *testing.T) {
	s := newTestStore(t)

	if err := s.Upsert("documents/a.md", Record{Title: "A"}); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	rec, err := s.Get("documents/a.md")
	if err != nil {
		t.Fatalf("Failed to get: %v", err)
	}
	if rec.ID == "" {
		t.Error("Expected generated ID")
	}
	if rec.Created.IsZero() || rec.Modified.IsZero() {
		t.Error("Expected timestamps to be filled")
	}

	// Update keeps identity and creation time
	if err := s.Upsert("documents/a.md", Record{Title: "A2"}); err != nil {
		t.Fatalf("Failed to update: %v", err)
	}
	rec2, err := s.Get("documents/a.md")
	if err != nil {
		t.Fatal(err)
	}
	if rec2.ID != rec.ID {
		t.Errorf("Expected stable ID across updates, got %q then %q", rec.ID, rec2.ID)
	}
	if !rec2.Created.Equal(rec.Created) {
		t.Errorf("Expected stable creation time, got %v then %v", rec.Created, rec2.Created)
	}
	if rec2.Title != "A2" {
		t.Errorf("Expected updated title, got %q", rec2.Title)
	}
}

func TestPathNormalization(t *testing.T) {
	s := newTestStore(t)

	if err := s.Upsert("./documents//a.md", Record{Title: "A"}); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}
	if _, err := s.Get("documents/a.md"); err != nil {
		t.Errorf("Expected normalized path lookup to succeed, got: %v", err)
	}
}

func TestRemoveIdempotent(t *testing.T) {
	s := newTestStore(t)

	if err := s.Upsert("documents/a.md", Record{Title: "A"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove("documents/a.md"); err != nil {
		t.Fatalf("Failed to remove: %v", err)
	}
	if _, err := s.Get("documents/a.md"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after removal, got: %v", err)
	}
	// Removing again is not an error
	if err := s.Remove("documents/a.md"); err != nil {
		t.Errorf("Expected idempotent removal, got: %v", err)
	}
}

func TestPersistedFileShape(t *testing.T) {
	root := t.TempDir()
	s, err := Create(root, WorkspaceInfo{Name: "notes", Created: time.Now().UTC()})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert("documents/b.md", Record{Title: "B"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert("documents/a.md", Record{Title: "A"}); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(filepath.Join(root, FileName))
	if err != nil {
		t.Fatal(err)
	}

	var doc struct {
		Version   int                        `json:"version"`
		Workspace WorkspaceInfo              `json:"workspace"`
		Documents map[string]json.RawMessage `json:"documents"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("Persisted file is not valid JSON: %v", err)
	}
	if doc.Version != FormatVersion {
		t.Errorf("Expected version %d, got %d", FormatVersion, doc.Version)
	}
	if len(doc.Documents) != 2 {
		t.Errorf("Expected 2 documents, got %d", len(doc.Documents))
	}
}

func TestAllTags(t *testing.T) {
	s := newTestStore(t)

	seed := map[string][]string{
		"a.md": {"go", "notes"},
		"b.md": {"go"},
		"c.md": {"go", "ideas"},
	}
	for path, tags := range seed {
		if err := s.Upsert(path, Record{Title: path, Tags: tags}); err != nil {
			t.Fatal(err)
		}
	}

	tags := s.AllTags()
	if len(tags) != 3 {
		t.Fatalf("Expected 3 tags, got %d: %v", len(tags), tags)
	}
	if tags[0].Tag != "go" || tags[0].Count != 3 {
		t.Errorf("Expected go(3) first, got %+v", tags[0])
	}
	// Ties break by name
	if tags[1].Tag != "ideas" || tags[2].Tag != "notes" {
		t.Errorf("Expected alphabetical tie-break, got %+v", tags[1:])
	}
}

func TestRebuild(t *testing.T) {
	root := t.TempDir()
	docs := filepath.Join(root, "documents")
	if err := os.MkdirAll(filepath.Join(docs, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(docs, "a.md"), []byte("# Title From Heading\n\nbody\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(docs, "sub", "b.txt"), []byte("plain\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Rebuild(root, WorkspaceInfo{Name: "rebuilt"}, "documents")
	if err != nil {
		t.Fatalf("Failed to rebuild: %v", err)
	}

	records := s.List()
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d: %v", len(records), records)
	}
	rec, err := s.Get("documents/a.md")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Title != "Title From Heading" {
		t.Errorf("Expected title from first heading, got %q", rec.Title)
	}
	if _, err := s.Get("documents/sub/b.txt"); err != nil {
		t.Errorf("Expected nested document in rebuild, got: %v", err)
	}
}

func TestLoadOrRebuildRecoversCorruption(t *testing.T) {
	root := t.TempDir()
	docs := filepath.Join(root, "documents")
	if err := os.MkdirAll(docs, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(docs, "a.md"), []byte("# A\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, FileName), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, rebuilt, err := LoadOrRebuild(root, WorkspaceInfo{Name: "ws"}, "documents")
	if err != nil {
		t.Fatalf("Failed to recover: %v", err)
	}
	if !rebuilt {
		t.Error("Expected rebuilt=true for corrupt file")
	}
	if _, err := s.Get("documents/a.md"); err != nil {
		t.Errorf("Expected rebuilt record for documents/a.md, got: %v", err)
	}

	// Rebuild persisted a valid file
	if _, err := Load(root); err != nil {
		t.Errorf("Expected valid file after rebuild, got: %v", err)
	}

	// Intact file does not trigger a rebuild
	_, rebuilt, err = LoadOrRebuild(root, WorkspaceInfo{Name: "ws"}, "documents")
	if err != nil {
		t.Fatal(err)
	}
	if rebuilt {
		t.Error("Expected rebuilt=false for intact file")
	}
}

func TestReloadOrRebuildPicksUpExternalChanges(t *testing.T) {
	root := t.TempDir()
	s, err := Create(root, WorkspaceInfo{Name: "ws"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert("documents/a.md", Record{Title: "A"}); err != nil {
		t.Fatal(err)
	}

	// A second handle rewriting the file stands in for a pull
	other, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if err := other.Upsert("documents/b.md", Record{Title: "B"}); err != nil {
		t.Fatal(err)
	}

	rebuilt, err := s.ReloadOrRebuild(WorkspaceInfo{Name: "ws"}, "documents")
	if err != nil {
		t.Fatalf("Failed to reload: %v", err)
	}
	if rebuilt {
		t.Error("Expected rebuilt=false for intact file")
	}
	if _, err := s.Get("documents/b.md"); err != nil {
		t.Errorf("Expected reloaded handle to see documents/b.md, got: %v", err)
	}
}

func TestReloadOrRebuildRecoversCorruption(t *testing.T) {
	root := t.TempDir()
	docs := filepath.Join(root, "documents")
	if err := os.MkdirAll(docs, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(docs, "a.md"), []byte("# A\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Create(root, WorkspaceInfo{Name: "ws"})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, FileName), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	rebuilt, err := s.ReloadOrRebuild(WorkspaceInfo{Name: "ws"}, "documents")
	if err != nil {
		t.Fatalf("Failed to recover: %v", err)
	}
	if !rebuilt {
		t.Error("Expected rebuilt=true for corrupt file")
	}
	if _, err := s.Get("documents/a.md"); err != nil {
		t.Errorf("Expected rebuilt record for documents/a.md, got: %v", err)
	}
}

// The same handle is shared between the sync daemon and the watcher;
// readers must be safe against a concurrent in-place reload.
func TestReloadConcurrentWithReaders(t *testing.T) {
	root := t.TempDir()
	s, err := Create(root, WorkspaceInfo{Name: "ws"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert("documents/a.md", Record{Title: "A"}); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			s.List()
			s.Get("documents/a.md")
		}
	}()

	for i := 0; i < 25; i++ {
		if _, err := s.ReloadOrRebuild(WorkspaceInfo{Name: "ws"}, "documents"); err != nil {
			t.Errorf("Reload %d failed: %v", i, err)
			break
		}
	}
	close(done)
	wg.Wait()
}
