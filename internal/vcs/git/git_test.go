package git

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/vellum-notes/vellum/internal/vcs"
)

// newTestRepo creates an initialized repository with identity
// configured, rooted in a temp directory.
func newTestRepo(t *testing.T) *Git {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	g, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create repo handle: %v", err)
	}
	t.Cleanup(func() { g.Close() })

	if err := g.Init(context.Background()); err != nil {
		t.Fatalf("Failed to init repository: %v", err)
	}
	if err := g.ConfigSet("user.name", "tester"); err != nil {
		t.Fatalf("Failed to set user.name: %v", err)
	}
	if err := g.ConfigSet("user.email", "tester@localhost"); err != nil {
		t.Fatalf("Failed to set user.email: %v", err)
	}
	return g
}

// writeAndCommit writes a file and commits it.
func writeAndCommit(t *testing.T, g *Git, rel, content, message string) {
	t.Helper()
	path := filepath.Join(g.Root(), rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if err := g.Stage([]string{rel}); err != nil {
		t.Fatalf("Failed to stage %s: %v", rel, err)
	}
	if err := g.Commit(context.Background(), vcs.CommitOptions{Message: message}); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}
}

func TestInitAndDetect(t *testing.T) {
	g := newTestRepo(t)

	if !g.IsInitialized() {
		t.Error("Expected repository to be initialized")
	}

	branch, err := g.CurrentBranch()
	if err != nil {
		t.Fatalf("Failed to get current branch: %v", err)
	}
	if branch != vcs.DefaultBranch {
		t.Errorf("Expected branch %q, got %q", vcs.DefaultBranch, branch)
	}

	// A second handle on the same path detects the existing repository
	g2, err := New(g.Root())
	if err != nil {
		t.Fatalf("Failed to reopen: %v", err)
	}
	defer g2.Close()
	if !g2.IsInitialized() {
		t.Error("Expected reopened handle to detect the repository")
	}
}

func TestNotInitialized(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	g, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create repo handle: %v", err)
	}
	defer g.Close()

	if g.IsInitialized() {
		t.Error("Expected empty directory to not be a repository")
	}
	if _, err := g.Status(context.Background()); !errors.Is(err, vcs.ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized, got: %v", err)
	}
}

func TestConfigGetUnset(t *testing.T) {
	g := newTestRepo(t)

	val, err := g.ConfigGet("vellum.nonexistent")
	if err != nil {
		t.Fatalf("Expected unset key to return empty without error, got: %v", err)
	}
	if val != "" {
		t.Errorf("Expected empty value, got %q", val)
	}
}

func TestStatusPorcelain(t *testing.T) {
	g := newTestRepo(t)
	ctx := context.Background()

	writeAndCommit(t, g, "documents/a.md", "# A\n", "Add a")

	st, err := g.Status(ctx)
	if err != nil {
		t.Fatalf("Failed to get status: %v", err)
	}
	if !st.Clean() {
		t.Errorf("Expected clean tree after commit, got %+v", st)
	}

	// Modify tracked, add untracked, stage a third
	if err := os.WriteFile(filepath.Join(g.Root(), "documents/a.md"), []byte("# A changed\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(g.Root(), "new.md"), []byte("new\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(g.Root(), "staged.md"), []byte("staged\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := g.Stage([]string{"staged.md"}); err != nil {
		t.Fatal(err)
	}

	st, err = g.Status(ctx)
	if err != nil {
		t.Fatalf("Failed to get status: %v", err)
	}
	if len(st.Modified) != 1 || st.Modified[0] != "documents/a.md" {
		t.Errorf("Expected documents/a.md modified, got %v", st.Modified)
	}
	if len(st.Untracked) != 1 || st.Untracked[0] != "new.md" {
		t.Errorf("Expected new.md untracked, got %v", st.Untracked)
	}
	if len(st.Staged) != 1 || st.Staged[0] != "staged.md" {
		t.Errorf("Expected staged.md staged, got %v", st.Staged)
	}

	has, err := g.HasChanges()
	if err != nil {
		t.Fatalf("Failed HasChanges: %v", err)
	}
	if !has {
		t.Error("Expected HasChanges to be true")
	}
}

func TestLogAndReadFileAtRevision(t *testing.T) {
	g := newTestRepo(t)
	ctx := context.Background()

	writeAndCommit(t, g, "documents/a.md", "version one\n", "Add a")
	writeAndCommit(t, g, "documents/a.md", "version two\n", "Update a")

	commits, err := g.Log(ctx, "documents/a.md", 0)
	if err != nil {
		t.Fatalf("Failed to get log: %v", err)
	}
	if len(commits) != 2 {
		t.Fatalf("Expected 2 commits, got %d", len(commits))
	}
	if commits[0].Subject != "Update a" {
		t.Errorf("Expected newest commit first, got %q", commits[0].Subject)
	}
	if commits[0].Author != "tester" {
		t.Errorf("Expected author tester, got %q", commits[0].Author)
	}

	// Read the prior version
	content, err := g.ReadFileAtRevision(ctx, commits[1].Hash, "documents/a.md")
	if err != nil {
		t.Fatalf("Failed to read at revision: %v", err)
	}
	if string(content) != "version one\n" {
		t.Errorf("Expected prior content, got %q", content)
	}

	// maxCount limits the walk
	commits, err = g.Log(ctx, "documents/a.md", 1)
	if err != nil {
		t.Fatalf("Failed to get limited log: %v", err)
	}
	if len(commits) != 1 {
		t.Errorf("Expected 1 commit with maxCount=1, got %d", len(commits))
	}
}

func TestLogEmptyRepository(t *testing.T) {
	g := newTestRepo(t)

	commits, err := g.Log(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("Expected empty log without error, got: %v", err)
	}
	if len(commits) != 0 {
		t.Errorf("Expected no commits, got %d", len(commits))
	}
}

func TestStashSaveAndPop(t *testing.T) {
	g := newTestRepo(t)
	ctx := context.Background()

	writeAndCommit(t, g, "a.md", "base\n", "Add a")

	// Clean tree: nothing to stash
	if err := g.StashSave(ctx, "test"); !errors.Is(err, vcs.ErrNothingToStash) {
		t.Errorf("Expected ErrNothingToStash on clean tree, got: %v", err)
	}

	if err := os.WriteFile(filepath.Join(g.Root(), "a.md"), []byte("dirty\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := g.StashSave(ctx, "test"); err != nil {
		t.Fatalf("Failed to stash: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(g.Root(), "a.md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "base\n" {
		t.Errorf("Expected tree restored to base after stash, got %q", content)
	}

	if err := g.StashPop(ctx); err != nil {
		t.Fatalf("Failed to pop stash: %v", err)
	}
	content, err = os.ReadFile(filepath.Join(g.Root(), "a.md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "dirty\n" {
		t.Errorf("Expected dirty content back after pop, got %q", content)
	}
}

func TestRemotes(t *testing.T) {
	g := newTestRepo(t)

	if err := g.AddRemote("origin", "/tmp/nowhere.git"); err != nil {
		t.Fatalf("Failed to add remote: %v", err)
	}
	if err := g.AddRemote("origin", "/tmp/elsewhere.git"); !errors.Is(err, vcs.ErrRemoteExists) {
		t.Errorf("Expected ErrRemoteExists, got: %v", err)
	}

	if err := g.SetRemoteURL("origin", "/tmp/elsewhere.git"); err != nil {
		t.Fatalf("Failed to set remote URL: %v", err)
	}
	if err := g.SetRemoteURL("upstream", "/tmp/x.git"); !errors.Is(err, vcs.ErrRemoteNotFound) {
		t.Errorf("Expected ErrRemoteNotFound, got: %v", err)
	}

	remotes, err := g.ListRemotes()
	if err != nil {
		t.Fatalf("Failed to list remotes: %v", err)
	}
	if len(remotes) != 1 || remotes[0].Name != "origin" || remotes[0].URL != "/tmp/elsewhere.git" {
		t.Errorf("Unexpected remotes: %+v", remotes)
	}

	if err := g.RemoveRemote("origin"); err != nil {
		t.Fatalf("Failed to remove remote: %v", err)
	}
	if err := g.RemoveRemote("origin"); !errors.Is(err, vcs.ErrRemoteNotFound) {
		t.Errorf("Expected ErrRemoteNotFound after removal, got: %v", err)
	}
}

func TestMergeConflict(t *testing.T) {
	g := newTestRepo(t)
	ctx := context.Background()

	writeAndCommit(t, g, "a.md", "base\n", "Add a")

	// Create a divergent branch
	if _, err := g.run(ctx, "checkout", "-b", "other"); err != nil {
		t.Fatalf("Failed to branch: %v", err)
	}
	writeAndCommit(t, g, "a.md", "theirs\n", "Their change")
	if _, err := g.run(ctx, "checkout", vcs.DefaultBranch); err != nil {
		t.Fatalf("Failed to switch back: %v", err)
	}
	writeAndCommit(t, g, "a.md", "ours\n", "Our change")

	err := g.Merge(ctx, vcs.MergeOptions{Rev: "other"})
	if !errors.Is(err, vcs.ErrManualResolutionRequired) {
		t.Fatalf("Expected ErrManualResolutionRequired, got: %v", err)
	}

	conflicted, err := g.ConflictedFiles()
	if err != nil {
		t.Fatalf("Failed to list conflicted files: %v", err)
	}
	if len(conflicted) != 1 || conflicted[0] != "a.md" {
		t.Errorf("Expected a.md conflicted, got %v", conflicted)
	}

	// Conflict stages are readable
	ours, err := g.ReadFileAtRevision(ctx, ":2", "a.md")
	if err != nil {
		t.Fatalf("Failed to read ours stage: %v", err)
	}
	if string(ours) != "ours\n" {
		t.Errorf("Expected ours stage content, got %q", ours)
	}

	if err := g.AbortMerge(ctx); err != nil {
		t.Fatalf("Failed to abort merge: %v", err)
	}
	st, err := g.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Clean() {
		t.Errorf("Expected clean tree after abort, got %+v", st)
	}
}

func TestPullErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		expected error
	}{
		{
			name:     "overwrite",
			msg:      "error: Your local changes to the following files would be overwritten by merge",
			expected: vcs.ErrLocalChanges,
		},
		{
			name:     "diverged",
			msg:      "fatal: Not possible to fast-forward, aborting.",
			expected: vcs.ErrDivergedHistory,
		},
		{
			name:     "conflict",
			msg:      "CONFLICT (content): Merge conflict in a.md",
			expected: vcs.ErrManualResolutionRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyPullError(errors.New(tt.msg))
			if !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got: %v", tt.expected, err)
			}
		})
	}
}

func TestRemoteErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		expected error
	}{
		{
			name:     "auth",
			msg:      "fatal: Authentication failed for 'https://example.com/repo.git'",
			expected: vcs.ErrAuthenticationFailed,
		},
		{
			name:     "dns",
			msg:      "fatal: Could not resolve host: example.invalid",
			expected: vcs.ErrNetworkUnavailable,
		},
		{
			name:     "refused",
			msg:      "fatal: unable to access 'https://example.com/': Connection refused",
			expected: vcs.ErrNetworkUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyRemoteError("fetch", errors.New(tt.msg))
			if !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got: %v", tt.expected, err)
			}
		})
	}
}
