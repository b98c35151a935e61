package syncer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vellum-notes/vellum/internal/vcs"
)

// Resolution names a conflict resolution strategy.
type Resolution string

const (
	// ResolveKeepLocal keeps the local ("ours") side.
	ResolveKeepLocal Resolution = "keep-local"

	// ResolveAcceptRemote takes the remote ("theirs") side.
	ResolveAcceptRemote Resolution = "accept-remote"

	// ResolveManual uses caller-supplied content.
	ResolveManual Resolution = "manual"
)

// Conflict captures one path in merge conflict state, with the three
// content snapshots a resolution decision needs. Records exist only
// between conflict detection and the resolving commit.
type Conflict struct {
	Path string

	// Base, Ours, Theirs are the common-ancestor, local, and remote
	// snapshots. A nil snapshot means the path did not exist on that
	// side (add/add or delete conflicts).
	Base   []byte
	Ours   []byte
	Theirs []byte

	// Resolved holds the chosen content once a strategy is applied.
	Resolved []byte
	Strategy Resolution
}

// Conflicts collects a record for every path currently in conflict
// state, reading the three snapshots from the merge index stages.
func (c *Coordinator) Conflicts(ctx context.Context) ([]*Conflict, error) {
	paths, err := c.repo.ConflictedFiles()
	if err != nil {
		return nil, err
	}

	conflicts := make([]*Conflict, 0, len(paths))
	for _, path := range paths {
		conflict := &Conflict{Path: path}

		// Index stages: 1 = base, 2 = ours, 3 = theirs. A missing
		// stage means the path is absent on that side.
		if b, err := c.repo.ReadFileAtRevision(ctx, ":1", path); err == nil {
			conflict.Base = b
		}
		if b, err := c.repo.ReadFileAtRevision(ctx, ":2", path); err == nil {
			conflict.Ours = b
		}
		if b, err := c.repo.ReadFileAtRevision(ctx, ":3", path); err == nil {
			conflict.Theirs = b
		}

		conflicts = append(conflicts, conflict)
	}

	return conflicts, nil
}

// Resolve applies a strategy to one conflict: the chosen content is
// written to the working tree and staged. The record's Resolved and
// Strategy fields are filled in. CommitResolution finishes the merge
// once every conflict is resolved.
func (c *Coordinator) Resolve(ctx context.Context, conflict *Conflict, strategy Resolution, manual []byte) error {
	var content []byte
	switch strategy {
	case ResolveKeepLocal:
		content = conflict.Ours
	case ResolveAcceptRemote:
		content = conflict.Theirs
	case ResolveManual:
		content = manual
	default:
		return fmt.Errorf("unknown resolution strategy: %s", strategy)
	}

	abs := filepath.Join(c.repo.Root(), filepath.FromSlash(conflict.Path))
	if content == nil {
		// Resolving to a side where the path does not exist deletes it
		if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", conflict.Path, err)
		}
	} else {
		if err := os.WriteFile(abs, content, 0o644); err != nil {
			return fmt.Errorf("failed to write resolved content: %w", err)
		}
	}

	if err := c.repo.Stage([]string{conflict.Path}); err != nil {
		return err
	}

	conflict.Resolved = content
	conflict.Strategy = strategy
	return nil
}

// CommitResolution commits the resolved merge. Fails with
// ErrManualResolutionRequired while any path remains conflicted.
func (c *Coordinator) CommitResolution(ctx context.Context, message string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	remaining, err := c.repo.ConflictedFiles()
	if err != nil {
		return err
	}
	if len(remaining) > 0 {
		return fmt.Errorf("%w: %d paths still conflicted", vcs.ErrManualResolutionRequired, len(remaining))
	}

	if message == "" {
		message = "Resolve merge conflicts"
	}
	return c.repo.Commit(ctx, vcs.CommitOptions{Message: message})
}
