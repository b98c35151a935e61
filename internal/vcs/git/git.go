// Package git provides the git implementation of the vcs.Repo interface.
//
// This implementation drives the git CLI via os/exec. Failure classes
// from remote operations are mapped onto the vcs sentinel errors by
// sniffing command output, so callers can pick recovery paths with
// errors.Is instead of parsing strings themselves.
package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/vellum-notes/vellum/internal/vcs"
)

// defaultTimeout bounds local git invocations that take no context.
const defaultTimeout = 30 * time.Second

// Git implements the vcs.Repo interface for git repositories.
type Git struct {
	// root is the repository root directory path
	root string

	// initialized tracks whether root holds a .git directory
	initialized bool

	// closed guards against use after Close
	closed bool
}

// New creates a git repository handle rooted at path. The handle is
// valid even when no repository exists yet; call Init to create one.
func New(path string) (*Git, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return nil, vcs.ErrBackendNotAvailable
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		absPath = resolved
	}

	g := &Git{root: absPath}
	g.initialized = g.detect()
	return g, nil
}

// detect checks whether root is the top of a git repository.
func (g *Git) detect() bool {
	out, err := vcs.ExecSimple(g.root, "git", "rev-parse", "--show-toplevel")
	if err != nil {
		return false
	}

	top := vcs.TrimOutput(out)
	if resolved, err := filepath.EvalSymlinks(top); err == nil {
		top = resolved
	}
	return top == g.root
}

// Name returns the backend type (git).
func (g *Git) Name() vcs.Type {
	return vcs.TypeGit
}

// Root returns the repository root directory path.
func (g *Git) Root() string {
	return g.root
}

// IsInitialized reports whether the root holds a git repository.
func (g *Git) IsInitialized() bool {
	return g.initialized
}

// Init initializes a repository at the root with the default branch.
// A no-op if the repository already exists.
func (g *Git) Init(ctx context.Context) error {
	if err := g.ensureOpen(); err != nil {
		return err
	}
	if g.initialized {
		return nil
	}

	if err := os.MkdirAll(g.root, 0o755); err != nil {
		return fmt.Errorf("failed to create repository directory: %w", err)
	}

	_, err := vcs.ExecContext(ctx, defaultTimeout, g.root, "git", "init",
		"--initial-branch", vcs.DefaultBranch)
	if err != nil {
		return fmt.Errorf("git init failed: %w", err)
	}

	g.initialized = true
	return nil
}

// Close releases the handle. Further calls return ErrNotInitialized.
func (g *Git) Close() error {
	g.closed = true
	return nil
}

// ConfigSet sets a repository-scoped configuration value.
func (g *Git) ConfigSet(key, value string) error {
	if err := g.ensureInit(); err != nil {
		return err
	}

	if _, err := vcs.ExecSimple(g.root, "git", "config", key, value); err != nil {
		return fmt.Errorf("git config %s failed: %w", key, err)
	}
	return nil
}

// ConfigGet reads a repository-scoped configuration value.
// Returns an empty string if the key is unset.
func (g *Git) ConfigGet(key string) (string, error) {
	if err := g.ensureInit(); err != nil {
		return "", err
	}

	out, err := vcs.ExecSimple(g.root, "git", "config", "--get", key)
	if err != nil {
		// Exit code 1 means the key is unset
		if vcs.GetExitCode(errors.Unwrap(err)) == 1 || strings.Contains(err.Error(), "exit status 1") {
			return "", nil
		}
		return "", fmt.Errorf("git config --get %s failed: %w", key, err)
	}

	return vcs.TrimOutput(out), nil
}

// ensureOpen fails if the handle has been closed.
func (g *Git) ensureOpen() error {
	if g.closed {
		return fmt.Errorf("%w: handle closed", vcs.ErrNotInitialized)
	}
	return nil
}

// ensureInit fails unless the repository exists and the handle is open.
func (g *Git) ensureInit() error {
	if err := g.ensureOpen(); err != nil {
		return err
	}
	if !g.initialized {
		return vcs.ErrNotInitialized
	}
	return nil
}

// run executes a git command in the repository root with the default
// timeout, returning combined diagnostics on failure.
func (g *Git) run(ctx context.Context, args ...string) ([]byte, error) {
	return vcs.ExecContext(ctx, defaultTimeout, g.root, "git", args...)
}

// runRemote executes a git command that talks to the network. No extra
// timeout is layered on; the caller-supplied context bounds the call.
func (g *Git) runRemote(ctx context.Context, args ...string) ([]byte, error) {
	return vcs.ExecContext(ctx, 0, g.root, "git", args...)
}
