package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/vellum-notes/vellum/internal/vcs"
)

// AddRemote registers a remote under the given name.
func (g *Git) AddRemote(name, url string) error {
	if err := g.ensureInit(); err != nil {
		return err
	}

	_, err := vcs.ExecSimple(g.root, "git", "remote", "add", name, url)
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return vcs.ErrRemoteExists
		}
		return fmt.Errorf("git remote add failed: %w", err)
	}

	return nil
}

// SetRemoteURL replaces the URL of an existing remote.
func (g *Git) SetRemoteURL(name, url string) error {
	if err := g.ensureInit(); err != nil {
		return err
	}

	_, err := vcs.ExecSimple(g.root, "git", "remote", "set-url", name, url)
	if err != nil {
		if strings.Contains(err.Error(), "No such remote") {
			return vcs.ErrRemoteNotFound
		}
		return fmt.Errorf("git remote set-url failed: %w", err)
	}

	return nil
}

// RemoveRemote deletes a remote and its remote-tracking refs.
func (g *Git) RemoveRemote(name string) error {
	if err := g.ensureInit(); err != nil {
		return err
	}

	_, err := vcs.ExecSimple(g.root, "git", "remote", "remove", name)
	if err != nil {
		if strings.Contains(err.Error(), "No such remote") {
			return vcs.ErrRemoteNotFound
		}
		return fmt.Errorf("git remote remove failed: %w", err)
	}

	return nil
}

// ListRemotes returns the configured remotes with their fetch URLs.
func (g *Git) ListRemotes() ([]vcs.RemoteInfo, error) {
	if err := g.ensureInit(); err != nil {
		return nil, err
	}

	out, err := vcs.ExecSimple(g.root, "git", "remote", "-v")
	if err != nil {
		return nil, fmt.Errorf("git remote -v failed: %w", err)
	}

	// Output: "origin url (fetch)" / "origin url (push)"
	seen := make(map[string]bool)
	var remotes []vcs.RemoteInfo
	for _, line := range vcs.ParseLines(out) {
		parts := strings.Fields(line)
		if len(parts) < 2 || seen[parts[0]] {
			continue
		}
		if len(parts) >= 3 && !strings.Contains(parts[2], "fetch") {
			continue
		}
		seen[parts[0]] = true
		remotes = append(remotes, vcs.RemoteInfo{Name: parts[0], URL: parts[1]})
	}

	return remotes, nil
}

// hasRemote reports whether any remote is configured.
func (g *Git) hasRemote() bool {
	out, err := vcs.ExecSimple(g.root, "git", "remote")
	if err != nil {
		return false
	}
	return len(vcs.TrimOutput(out)) > 0
}

// Fetch fetches refs from the remote without touching the working tree.
func (g *Git) Fetch(ctx context.Context, remote string) error {
	if err := g.ensureInit(); err != nil {
		return err
	}
	if !g.hasRemote() {
		return vcs.ErrNoRemote
	}
	if remote == "" {
		remote = vcs.DefaultRemote
	}

	if _, err := g.runRemote(ctx, "fetch", remote); err != nil {
		return classifyRemoteError("git fetch", err)
	}

	return nil
}

// Pull fetches and integrates changes from remote/branch.
func (g *Git) Pull(ctx context.Context, opts vcs.PullOptions) error {
	if err := g.ensureInit(); err != nil {
		return err
	}
	if !g.hasRemote() {
		return vcs.ErrNoRemote
	}

	remote := opts.Remote
	if remote == "" {
		remote = vcs.DefaultRemote
	}

	branch := opts.Branch
	if branch == "" {
		var err error
		branch, err = g.CurrentBranch()
		if err != nil {
			return err
		}
		if branch == "" {
			return vcs.ErrDetached
		}
	}

	args := []string{"pull", "--no-rebase"}
	if opts.FFOnly {
		args = append(args, "--ff-only")
	}
	args = append(args, remote, branch)

	if _, err := g.runRemote(ctx, args...); err != nil {
		return classifyPullError(err)
	}

	return nil
}

// Push publishes local commits. Never forces.
func (g *Git) Push(ctx context.Context, opts vcs.PushOptions) error {
	if err := g.ensureInit(); err != nil {
		return err
	}
	if !g.hasRemote() {
		return vcs.ErrNoRemote
	}

	remote := opts.Remote
	if remote == "" {
		remote = vcs.DefaultRemote
	}

	branch := opts.Branch
	if branch == "" {
		var err error
		branch, err = g.CurrentBranch()
		if err != nil {
			return err
		}
		if branch == "" {
			return vcs.ErrDetached
		}
	}

	args := []string{"push"}
	if opts.SetUpstream {
		args = append(args, "-u")
	}
	args = append(args, remote, branch)

	if _, err := g.runRemote(ctx, args...); err != nil {
		msg := err.Error()
		if strings.Contains(msg, "non-fast-forward") || strings.Contains(msg, "fetch first") ||
			strings.Contains(msg, "[rejected]") || strings.Contains(msg, "rejected") {
			return vcs.ErrRejectedNonFastForward
		}
		return classifyRemoteError("git push", err)
	}

	return nil
}

// Merge merges the given revision into the current branch. Always a
// true merge (both histories become parents); never a rebase.
func (g *Git) Merge(ctx context.Context, opts vcs.MergeOptions) error {
	if err := g.ensureInit(); err != nil {
		return err
	}
	if opts.Rev == "" {
		return fmt.Errorf("merge revision is required")
	}

	args := []string{"merge", "--no-ff", "--no-edit"}
	if opts.AllowUnrelated {
		args = append(args, "--allow-unrelated-histories")
	}
	if opts.Message != "" {
		args = append(args, "-m", opts.Message)
	}
	args = append(args, opts.Rev)

	if _, err := g.run(ctx, args...); err != nil {
		msg := err.Error()
		if strings.Contains(msg, "CONFLICT") || strings.Contains(msg, "Automatic merge failed") {
			return vcs.ErrManualResolutionRequired
		}
		if strings.Contains(msg, "unrelated histories") {
			return vcs.ErrDivergedHistory
		}
		return fmt.Errorf("git merge failed: %w", err)
	}

	return nil
}

// AbortMerge aborts an in-progress merge, restoring the pre-merge tree.
func (g *Git) AbortMerge(ctx context.Context) error {
	if err := g.ensureInit(); err != nil {
		return err
	}

	if _, err := g.run(ctx, "merge", "--abort"); err != nil {
		return fmt.Errorf("git merge --abort failed: %w", err)
	}

	return nil
}

// StashSave sets uncommitted local changes aside, including untracked
// files so a retried pull sees a clean tree.
func (g *Git) StashSave(ctx context.Context, message string) error {
	if err := g.ensureInit(); err != nil {
		return err
	}

	dirty, err := g.HasChanges()
	if err != nil {
		return err
	}
	if !dirty {
		return vcs.ErrNothingToStash
	}

	args := []string{"stash", "push", "--include-untracked"}
	if message != "" {
		args = append(args, "-m", message)
	}

	if _, err := g.run(ctx, args...); err != nil {
		return fmt.Errorf("git stash push failed: %w", err)
	}

	return nil
}

// StashPop reapplies and drops the most recent stash. On conflict git
// keeps the stash entry; surface that as manual resolution required.
func (g *Git) StashPop(ctx context.Context) error {
	if err := g.ensureInit(); err != nil {
		return err
	}

	if _, err := g.run(ctx, "stash", "pop"); err != nil {
		msg := err.Error()
		if strings.Contains(msg, "CONFLICT") || strings.Contains(msg, "conflict") {
			return vcs.ErrManualResolutionRequired
		}
		return fmt.Errorf("git stash pop failed: %w", err)
	}

	return nil
}

// classifyPullError maps git pull failures onto the sentinel taxonomy.
func classifyPullError(err error) error {
	msg := err.Error()

	switch {
	case strings.Contains(msg, "would be overwritten"),
		strings.Contains(msg, "commit your changes or stash them"),
		strings.Contains(msg, "You have unstaged changes"):
		return vcs.ErrLocalChanges

	case strings.Contains(msg, "Not possible to fast-forward"),
		strings.Contains(msg, "divergent branches"),
		strings.Contains(msg, "Need to specify how to reconcile"),
		strings.Contains(msg, "non-fast-forward"):
		return vcs.ErrDivergedHistory

	case strings.Contains(msg, "CONFLICT"),
		strings.Contains(msg, "Automatic merge failed"):
		return vcs.ErrManualResolutionRequired
	}

	return classifyRemoteError("git pull", err)
}

// classifyRemoteError maps network and credential failures onto the
// sentinel taxonomy; anything unrecognized is propagated unchanged.
func classifyRemoteError(op string, err error) error {
	msg := err.Error()

	switch {
	case strings.Contains(msg, "Authentication failed"),
		strings.Contains(msg, "could not read Username"),
		strings.Contains(msg, "Permission denied (publickey"),
		strings.Contains(msg, "invalid credentials"):
		return vcs.ErrAuthenticationFailed

	case strings.Contains(msg, "Could not resolve host"),
		strings.Contains(msg, "unable to access"),
		strings.Contains(msg, "Connection refused"),
		strings.Contains(msg, "Connection timed out"),
		strings.Contains(msg, "Could not read from remote repository"):
		return vcs.ErrNetworkUnavailable
	}

	return fmt.Errorf("%s failed: %w", op, err)
}
