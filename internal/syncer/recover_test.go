package syncer

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/vellum-notes/vellum/internal/vcs"
)

// stubRepo scripts the binding calls the pull recovery machine makes.
// Only the pull path is implemented; anything else failing the test
// keeps the script honest.
type stubRepo struct {
	t *testing.T

	pullErrs []error // consumed one per Pull call
	pulls    int

	dirty    bool
	fetchErr error
	mergeErr error

	stashSaved  bool
	stashPopErr error
	stashPopped bool
}

func (s *stubRepo) Pull(ctx context.Context, opts vcs.PullOptions) error {
	if s.pulls >= len(s.pullErrs) {
		s.t.Fatalf("Unexpected Pull call %d", s.pulls+1)
	}
	err := s.pullErrs[s.pulls]
	s.pulls++
	return err
}

func (s *stubRepo) StashSave(ctx context.Context, message string) error {
	if !s.dirty {
		return vcs.ErrNothingToStash
	}
	s.stashSaved = true
	s.dirty = false
	return nil
}

func (s *stubRepo) StashPop(ctx context.Context) error {
	if !s.stashSaved {
		s.t.Fatal("StashPop without a saved stash")
	}
	if s.stashPopErr != nil {
		return s.stashPopErr
	}
	s.stashPopped = true
	return nil
}

func (s *stubRepo) HasChanges(paths ...string) (bool, error) { return s.dirty, nil }

func (s *stubRepo) Fetch(ctx context.Context, remote string) error { return s.fetchErr }

func (s *stubRepo) Merge(ctx context.Context, opts vcs.MergeOptions) error { return s.mergeErr }

func (s *stubRepo) Name() vcs.Type { return "stub" }

func (s *stubRepo) Root() string { return "" }

func (s *stubRepo) IsInitialized() bool { return true }

func (s *stubRepo) Init(ctx context.Context) error { s.t.Fatal("unexpected Init"); return nil }

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) ConfigSet(key, value string) error {
	s.t.Fatal("unexpected ConfigSet")
	return nil
}

func (s *stubRepo) ConfigGet(key string) (string, error) {
	s.t.Fatal("unexpected ConfigGet")
	return "", nil
}

func (s *stubRepo) Status(ctx context.Context) (*vcs.Status, error) {
	s.t.Fatal("unexpected Status")
	return nil, nil
}

func (s *stubRepo) Stage(paths []string) error { s.t.Fatal("unexpected Stage"); return nil }

func (s *stubRepo) Commit(ctx context.Context, opts vcs.CommitOptions) error {
	s.t.Fatal("unexpected Commit")
	return nil
}

func (s *stubRepo) ConflictedFiles() ([]string, error) {
	s.t.Fatal("unexpected ConflictedFiles")
	return nil, nil
}

func (s *stubRepo) CurrentBranch() (string, error) { return "main", nil }

func (s *stubRepo) Head(rev string) (string, error) {
	s.t.Fatal("unexpected Head")
	return "", nil
}

func (s *stubRepo) Log(ctx context.Context, path string, maxCount int) ([]vcs.CommitInfo, error) {
	s.t.Fatal("unexpected Log")
	return nil, nil
}

func (s *stubRepo) ReadFileAtRevision(ctx context.Context, rev, path string) ([]byte, error) {
	s.t.Fatal("unexpected ReadFileAtRevision")
	return nil, nil
}

func (s *stubRepo) AheadBehind(ctx context.Context, remote, branch string) (int, int, error) {
	s.t.Fatal("unexpected AheadBehind")
	return 0, 0, nil
}

func (s *stubRepo) AddRemote(name, url string) error {
	s.t.Fatal("unexpected AddRemote")
	return nil
}

func (s *stubRepo) SetRemoteURL(name, url string) error {
	s.t.Fatal("unexpected SetRemoteURL")
	return nil
}

func (s *stubRepo) RemoveRemote(name string) error {
	s.t.Fatal("unexpected RemoveRemote")
	return nil
}

func (s *stubRepo) ListRemotes() ([]vcs.RemoteInfo, error) {
	s.t.Fatal("unexpected ListRemotes")
	return nil, nil
}

func (s *stubRepo) SetUpstream(remote, branch string) error {
	s.t.Fatal("unexpected SetUpstream")
	return nil
}

func (s *stubRepo) Push(ctx context.Context, opts vcs.PushOptions) error {
	s.t.Fatal("unexpected Push")
	return nil
}

func (s *stubRepo) AbortMerge(ctx context.Context) error {
	s.t.Fatal("unexpected AbortMerge")
	return nil
}

func newStubCoordinator(stub *stubRepo) *Coordinator {
	return New(stub, log.New(io.Discard, "", 0))
}

// A pull retry failing after the auto-stash must put the local changes
// back into the tree instead of leaving them in an unannounced stash.
func TestPullRetryFailureRestoresStash(t *testing.T) {
	stub := &stubRepo{
		t:        t,
		dirty:    true,
		pullErrs: []error{vcs.ErrLocalChanges, vcs.ErrNetworkUnavailable},
	}
	c := newStubCoordinator(stub)

	res, err := c.Pull(context.Background(), "origin", "main")
	if !errors.Is(err, vcs.ErrNetworkUnavailable) {
		t.Fatalf("Expected the retry failure, got %v", err)
	}
	if res.State != StateFailed {
		t.Errorf("Expected failed state, got %s", res.State)
	}
	if !stub.stashPopped {
		t.Error("Expected the auto-stash to be popped back into the tree")
	}
	if res.StashPreserved {
		t.Errorf("Expected no preserved stash after restore, got warning %q", res.Warning)
	}
}

func TestPullRetryFailureWarnsWhenStashStuck(t *testing.T) {
	stub := &stubRepo{
		t:           t,
		dirty:       true,
		pullErrs:    []error{vcs.ErrLocalChanges, vcs.ErrNetworkUnavailable},
		stashPopErr: vcs.ErrManualResolutionRequired,
	}
	c := newStubCoordinator(stub)

	res, err := c.Pull(context.Background(), "origin", "main")
	if !errors.Is(err, vcs.ErrNetworkUnavailable) {
		t.Fatalf("Expected the retry failure, got %v", err)
	}
	if !res.StashPreserved {
		t.Error("Expected the unpoppable stash to be reported as preserved")
	}
	if res.Warning == "" {
		t.Error("Expected a warning about the preserved stash")
	}
}

// A conflicted merge cannot take the stash back; the stash stays put
// and the result says so rather than popping over conflict markers.
func TestMergeFailureKeepsStashOverConflicts(t *testing.T) {
	stub := &stubRepo{
		t:        t,
		dirty:    true,
		pullErrs: []error{vcs.ErrDivergedHistory},
		mergeErr: vcs.ErrManualResolutionRequired,
	}
	c := newStubCoordinator(stub)

	res, err := c.Pull(context.Background(), "origin", "main")
	if !errors.Is(err, vcs.ErrManualResolutionRequired) {
		t.Fatalf("Expected the merge conflict, got %v", err)
	}
	if stub.stashPopped {
		t.Error("Expected no stash pop over a conflicted tree")
	}
	if !res.StashPreserved || res.Warning == "" {
		t.Errorf("Expected a preserved-stash warning, got %+v", res)
	}
}

func TestMergeFailureRestoresStash(t *testing.T) {
	stub := &stubRepo{
		t:        t,
		dirty:    true,
		pullErrs: []error{vcs.ErrDivergedHistory},
		fetchErr: vcs.ErrNetworkUnavailable,
	}
	c := newStubCoordinator(stub)

	_, err := c.Pull(context.Background(), "origin", "main")
	if !errors.Is(err, vcs.ErrNetworkUnavailable) {
		t.Fatalf("Expected the fetch failure, got %v", err)
	}
	if !stub.stashPopped {
		t.Error("Expected the auto-stash to be popped after the failed merge")
	}
}
