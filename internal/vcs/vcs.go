// Package vcs provides the repository binding used by vellum workspaces.
//
// The binding is a thin mechanism layer over version-control primitives:
// init, status, stage, commit, push, pull, fetch, remote management, log,
// and reading file content at arbitrary revisions. It carries no sync
// policy; the stash/merge recovery sequences live in internal/syncer.
//
// # Architecture
//
// The Repo interface defines the operations the workspace core needs.
// Backends register a constructor with the registry in their init()
// function and the factory opens whichever backend owns the path:
//
//	repo, err := vcs.Open(path)
//	if err != nil {
//	    return err
//	}
//	defer repo.Close()
//
// # Implementations
//
//   - internal/vcs/git: git implementation driving the git CLI
//
// Tests may register an in-memory fake under a distinct backend type.
package vcs

import (
	"context"
	"time"
)

// Type identifies a repository backend.
type Type string

const (
	// TypeGit indicates a git repository backend.
	TypeGit Type = "git"
)

// String returns the string representation of the backend type.
func (t Type) String() string {
	return string(t)
}

// Repo is the repository binding contract.
//
// Every operation that requires an initialized repository returns
// ErrNotInitialized when invoked on a path that has not been through
// Init. Side effects are confined to the working tree and the object
// store; the binding never touches the metadata store or search index.
type Repo interface {
	// ===================
	// Identity & Lifecycle
	// ===================

	// Name returns the backend type.
	Name() Type

	// Root returns the repository root directory path.
	Root() string

	// Init initializes a repository at the root path with the default
	// branch. A no-op if the repository already exists.
	Init(ctx context.Context) error

	// IsInitialized reports whether the path holds an initialized repository.
	IsInitialized() bool

	// Close releases the repository handle. The handle must not be used
	// after Close; multiple workspaces may each own their own handle.
	Close() error

	// ===================
	// Configuration
	// ===================

	// ConfigSet sets a repository-scoped configuration value.
	ConfigSet(key, value string) error

	// ConfigGet reads a repository-scoped configuration value.
	// Returns an empty string if the key is unset.
	ConfigGet(key string) (string, error)

	// ===================
	// Working Tree
	// ===================

	// Status returns a point-in-time snapshot of the working tree.
	// The snapshot is recomputed on every call and never cached across
	// mutating operations.
	Status(ctx context.Context) (*Status, error)

	// HasChanges reports whether there are uncommitted changes.
	// If paths are given, only those paths are checked.
	HasChanges(paths ...string) (bool, error)

	// Stage stages the given paths for the next commit.
	Stage(paths []string) error

	// Commit creates a commit with the specified options.
	Commit(ctx context.Context, opts CommitOptions) error

	// ConflictedFiles returns the paths currently in conflict state.
	ConflictedFiles() ([]string, error)

	// ===================
	// References & History
	// ===================

	// CurrentBranch returns the current branch name, or an empty string
	// in detached HEAD state.
	CurrentBranch() (string, error)

	// Head returns the commit hash the given revision resolves to.
	Head(rev string) (string, error)

	// Log returns commits reachable from HEAD, most recent first.
	// If path is non-empty only commits touching it are returned;
	// maxCount <= 0 means no limit.
	Log(ctx context.Context, path string, maxCount int) ([]CommitInfo, error)

	// ReadFileAtRevision returns the file content stored at the given
	// revision. The path is relative to the repository root.
	ReadFileAtRevision(ctx context.Context, rev, path string) ([]byte, error)

	// AheadBehind counts commits only on the local branch (ahead) and
	// only on remote/branch (behind). If the remote tracking ref does
	// not exist locally both counts are zero.
	AheadBehind(ctx context.Context, remote, branch string) (ahead, behind int, err error)

	// ===================
	// Remotes
	// ===================

	// AddRemote registers a remote under the given name.
	AddRemote(name, url string) error

	// SetRemoteURL replaces the URL of an existing remote.
	SetRemoteURL(name, url string) error

	// RemoveRemote deletes a remote. Returns ErrRemoteNotFound when no
	// remote has that name.
	RemoveRemote(name string) error

	// ListRemotes returns the configured remotes.
	ListRemotes() ([]RemoteInfo, error)

	// SetUpstream makes remote/branch the upstream of the local branch
	// so future push/pull default correctly.
	SetUpstream(remote, branch string) error

	// ===================
	// Synchronization Mechanism
	// ===================

	// Fetch fetches refs from the remote without touching the working tree.
	Fetch(ctx context.Context, remote string) error

	// Pull fetches and integrates changes from remote/branch.
	// Failure classes are mapped onto the package sentinel errors so the
	// coordinator can pick a recovery path.
	Pull(ctx context.Context, opts PullOptions) error

	// Push publishes local commits. Never forces; a rejected
	// non-fast-forward push is returned as ErrRejectedNonFastForward.
	Push(ctx context.Context, opts PushOptions) error

	// Merge merges the given revision into the current branch.
	Merge(ctx context.Context, opts MergeOptions) error

	// AbortMerge aborts an in-progress merge, restoring the pre-merge tree.
	AbortMerge(ctx context.Context) error

	// ===================
	// Stash
	// ===================

	// StashSave sets uncommitted local changes aside under the given
	// message, including untracked files. Returns ErrNothingToStash if
	// the tree is clean.
	StashSave(ctx context.Context, message string) error

	// StashPop reapplies and drops the most recent stash. On conflict the
	// stash entry is preserved and ErrManualResolutionRequired returned.
	StashPop(ctx context.Context) error
}

// ===================
// Supporting Types
// ===================

// Status is a point-in-time snapshot of the working tree.
type Status struct {
	// Branch is the current branch name, empty when detached.
	Branch string

	// Ahead/Behind count commits relative to the upstream, both zero
	// when no upstream is configured or fetched.
	Ahead  int
	Behind int

	// Path sets, relative to the repository root.
	Modified   []string
	Staged     []string
	Untracked  []string
	Conflicted []string
}

// Clean reports whether all four path sets are empty.
func (s *Status) Clean() bool {
	return len(s.Modified) == 0 && len(s.Staged) == 0 &&
		len(s.Untracked) == 0 && len(s.Conflicted) == 0
}

// RemoteInfo describes a configured remote.
type RemoteInfo struct {
	// Name is the remote name (e.g., "origin").
	Name string

	// URL is the fetch URL.
	URL string
}

// CommitInfo describes a single commit in the log.
type CommitInfo struct {
	// Hash is the full commit hash.
	Hash string

	// Subject is the first line of the commit message.
	Subject string

	// Author is the author name.
	Author string

	// When is the author timestamp.
	When time.Time

	// Parents holds the parent commit hashes. A merge commit has two.
	Parents []string
}

// CommitOptions configures a commit operation.
type CommitOptions struct {
	// Message is the commit message (required).
	Message string

	// Paths limits the commit to the given paths. Empty commits all
	// staged changes.
	Paths []string

	// Author overrides the commit author (format: "Name <email>").
	Author string

	// AllowEmpty allows creating a commit with no changes.
	AllowEmpty bool
}

// PullOptions configures a pull operation.
type PullOptions struct {
	// Remote is the remote name. Empty uses the configured default.
	Remote string

	// Branch is the branch to pull. Empty uses the current branch.
	Branch string

	// FFOnly restricts the pull to fast-forward updates.
	FFOnly bool
}

// PushOptions configures a push operation.
type PushOptions struct {
	// Remote is the remote name. Empty uses the configured default.
	Remote string

	// Branch is the branch to push. Empty uses the current branch.
	Branch string

	// SetUpstream configures the upstream tracking reference.
	SetUpstream bool
}

// MergeOptions configures a merge operation.
type MergeOptions struct {
	// Rev is the revision to merge into the current branch (required).
	Rev string

	// Message overrides the generated merge commit message.
	Message string

	// AllowUnrelated permits merging histories with no common ancestor,
	// used when linking a locally-initialized workspace to an existing
	// remote.
	AllowUnrelated bool
}

// DefaultRemote is the canonical remote name for workspace sync.
const DefaultRemote = "origin"

// DefaultBranch is the branch created by workspace bootstrap.
const DefaultBranch = "main"
