package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vellum-notes/vellum/internal/vcs"
)

// CurrentBranch returns the current branch name.
// Returns empty string if in detached HEAD state.
func (g *Git) CurrentBranch() (string, error) {
	if err := g.ensureInit(); err != nil {
		return "", err
	}

	out, err := vcs.ExecSimple(g.root, "git", "symbolic-ref", "--short", "HEAD")
	if err != nil {
		if strings.Contains(err.Error(), "not a symbolic ref") {
			return "", nil // Detached HEAD
		}
		return "", fmt.Errorf("failed to get current branch: %w", err)
	}

	return vcs.TrimOutput(out), nil
}

// Head returns the commit hash the given revision resolves to.
func (g *Git) Head(rev string) (string, error) {
	if err := g.ensureInit(); err != nil {
		return "", err
	}
	if rev == "" {
		rev = "HEAD"
	}

	out, err := vcs.ExecSimple(g.root, "git", "rev-parse", "--verify", rev)
	if err != nil {
		return "", fmt.Errorf("failed to resolve revision %s: %w", rev, err)
	}

	return vcs.TrimOutput(out), nil
}

// logFieldSep separates fields in the custom log format. Unit separator
// cannot appear in commit subjects or author names.
const logFieldSep = "\x1f"

// Log returns commits reachable from HEAD, most recent first.
func (g *Git) Log(ctx context.Context, path string, maxCount int) ([]vcs.CommitInfo, error) {
	if err := g.ensureInit(); err != nil {
		return nil, err
	}

	args := []string{"log", "--format=%H" + logFieldSep + "%s" + logFieldSep + "%an" + logFieldSep + "%aI" + logFieldSep + "%P"}
	if maxCount > 0 {
		args = append(args, "-n", strconv.Itoa(maxCount))
	}
	if path != "" {
		args = append(args, "--", path)
	}

	out, err := g.run(ctx, args...)
	if err != nil {
		// A repository with no commits yet has an empty log
		if strings.Contains(err.Error(), "does not have any commits") {
			return nil, nil
		}
		return nil, fmt.Errorf("git log failed: %w", err)
	}

	var commits []vcs.CommitInfo
	for _, line := range vcs.ParseLines(out) {
		parts := strings.SplitN(line, logFieldSep, 5)
		if len(parts) < 5 {
			continue
		}

		info := vcs.CommitInfo{
			Hash:    parts[0],
			Subject: parts[1],
			Author:  parts[2],
		}
		if t, err := time.Parse(time.RFC3339, parts[3]); err == nil {
			info.When = t
		}
		if parts[4] != "" {
			info.Parents = strings.Fields(parts[4])
		}

		commits = append(commits, info)
	}

	return commits, nil
}

// ReadFileAtRevision returns the file content stored at the given revision.
func (g *Git) ReadFileAtRevision(ctx context.Context, rev, path string) ([]byte, error) {
	if err := g.ensureInit(); err != nil {
		return nil, err
	}

	out, err := g.run(ctx, "show", rev+":"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s at %s: %w", path, rev, err)
	}

	return out, nil
}

// AheadBehind counts commits only on the local branch vs only on
// remote/branch via a symmetric difference. A remote tracking ref that
// was never fetched yields zero for both counts.
func (g *Git) AheadBehind(ctx context.Context, remote, branch string) (int, int, error) {
	if err := g.ensureInit(); err != nil {
		return 0, 0, err
	}
	if remote == "" {
		remote = vcs.DefaultRemote
	}
	if branch == "" {
		var err error
		branch, err = g.CurrentBranch()
		if err != nil {
			return 0, 0, err
		}
		if branch == "" {
			return 0, 0, vcs.ErrDetached
		}
	}

	trackingRef := "refs/remotes/" + remote + "/" + branch
	if _, err := g.run(ctx, "rev-parse", "--verify", "--quiet", trackingRef); err != nil {
		return 0, 0, nil // Never fetched
	}

	return g.countLeftRight(ctx, branch, remote+"/"+branch)
}

// countLeftRight counts commits unique to each side of local...other.
func (g *Git) countLeftRight(ctx context.Context, local, other string) (int, int, error) {
	out, err := g.run(ctx, "rev-list", "--left-right", "--count", local+"..."+other)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count divergence: %w", err)
	}

	fields := strings.Fields(vcs.TrimOutput(out))
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("unexpected rev-list output: %q", vcs.TrimOutput(out))
	}

	ahead, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("unexpected ahead count %q: %w", fields[0], err)
	}
	behind, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("unexpected behind count %q: %w", fields[1], err)
	}

	return ahead, behind, nil
}

// SetUpstream makes remote/branch the upstream of the local branch.
func (g *Git) SetUpstream(remote, branch string) error {
	if err := g.ensureInit(); err != nil {
		return err
	}
	if remote == "" {
		remote = vcs.DefaultRemote
	}
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

	_, err := vcs.ExecSimple(g.root, "git", "branch", "--set-upstream-to", remote+"/"+branch, branch)
	if err != nil {
		return fmt.Errorf("failed to set upstream: %w", err)
	}

	return nil
}
