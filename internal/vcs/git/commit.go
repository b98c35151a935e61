package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/vellum-notes/vellum/internal/vcs"
)

// HasChanges returns true if there are uncommitted changes.
// If paths are specified, only checks those paths.
func (g *Git) HasChanges(paths ...string) (bool, error) {
	if err := g.ensureInit(); err != nil {
		return false, err
	}

	args := []string{"status", "--porcelain"}
	if len(paths) > 0 {
		args = append(args, "--")
		args = append(args, paths...)
	}

	out, err := vcs.ExecSimple(g.root, "git", args...)
	if err != nil {
		return false, fmt.Errorf("git status failed: %w", err)
	}

	return len(vcs.TrimOutput(out)) > 0, nil
}

// Stage stages the given paths for the next commit.
func (g *Git) Stage(paths []string) error {
	if err := g.ensureInit(); err != nil {
		return err
	}
	if len(paths) == 0 {
		return nil
	}

	args := append([]string{"add", "--"}, paths...)
	if _, err := vcs.ExecSimple(g.root, "git", args...); err != nil {
		return fmt.Errorf("git add failed: %w", err)
	}

	return nil
}

// Status returns a point-in-time snapshot of the working tree.
func (g *Git) Status(ctx context.Context) (*vcs.Status, error) {
	if err := g.ensureInit(); err != nil {
		return nil, err
	}

	st := &vcs.Status{}

	branch, err := g.CurrentBranch()
	if err != nil {
		return nil, err
	}
	st.Branch = branch

	// Ahead/behind relative to the upstream, if one is configured and
	// has been fetched. Absence of an upstream is not an error.
	if branch != "" {
		upstream, err := g.run(ctx, "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{upstream}")
		if err == nil {
			ahead, behind, err := g.countLeftRight(ctx, branch, vcs.TrimOutput(upstream))
			if err != nil {
				return nil, err
			}
			st.Ahead, st.Behind = ahead, behind
		}
	}

	out, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("git status failed: %w", err)
	}

	for _, line := range strings.Split(string(out), "\n") {
		if len(line) < 4 {
			continue
		}

		// Porcelain format: XY <path>
		// X = staging area status, Y = working tree status
		code := line[:2]
		path := strings.TrimSpace(line[3:])
		// Rename entries carry "old -> new"; the new path is the live one
		if i := strings.Index(path, " -> "); i >= 0 {
			path = path[i+4:]
		}
		path = strings.Trim(path, `"`)

		switch {
		case isConflictCode(code):
			st.Conflicted = append(st.Conflicted, path)
		case code == "??":
			st.Untracked = append(st.Untracked, path)
		default:
			if code[0] != ' ' {
				st.Staged = append(st.Staged, path)
			}
			if code[1] != ' ' {
				st.Modified = append(st.Modified, path)
			}
		}
	}

	return st, nil
}

// isConflictCode reports whether a porcelain XY code marks an unmerged path.
func isConflictCode(code string) bool {
	switch code {
	case "DD", "AU", "UD", "UA", "DU", "AA", "UU":
		return true
	}
	return false
}

// ConflictedFiles returns the paths currently in conflict state.
func (g *Git) ConflictedFiles() ([]string, error) {
	if err := g.ensureInit(); err != nil {
		return nil, err
	}

	out, err := vcs.ExecSimple(g.root, "git", "status", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("git status failed: %w", err)
	}

	var conflicts []string
	for _, line := range strings.Split(string(out), "\n") {
		if len(line) < 4 {
			continue
		}
		if isConflictCode(line[:2]) {
			conflicts = append(conflicts, strings.TrimSpace(line[3:]))
		}
	}

	return conflicts, nil
}

// Commit creates a commit with the specified options.
func (g *Git) Commit(ctx context.Context, opts vcs.CommitOptions) error {
	if err := g.ensureInit(); err != nil {
		return err
	}
	if opts.Message == "" {
		return fmt.Errorf("commit message is required")
	}

	if len(opts.Paths) > 0 {
		if err := g.Stage(opts.Paths); err != nil {
			return err
		}
	}

	args := []string{"commit", "-m", opts.Message}

	if opts.Author != "" {
		args = append(args, "--author", opts.Author)
	}

	if opts.AllowEmpty {
		args = append(args, "--allow-empty")
	}

	if len(opts.Paths) > 0 {
		args = append(args, "--")
		args = append(args, opts.Paths...)
	}

	if _, err := g.run(ctx, args...); err != nil {
		return fmt.Errorf("git commit failed: %w", err)
	}

	return nil
}
