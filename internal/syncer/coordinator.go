// Package syncer implements the pull/push policy for a workspace:
// stash-and-replay on local-change conflicts, auto-merge on diverged
// histories, ahead/behind computation, and first-time remote linkage.
//
// The coordinator owns failure recovery. The repository binding in
// internal/vcs supplies mechanism only; every policy decision (when to
// stash, when to merge, what is surfaced vs retried) lives here. No
// error is swallowed: every non-success path produces either a retry
// or a typed, surfaced error.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/vellum-notes/vellum/internal/vcs"
)

// Coordinator serializes sync operations for one open workspace.
//
// Exactly one coordinator is active per workspace. Sync operations on
// the same working tree are not safe to interleave, so a second request
// arriving while one is in flight queues on the operation mutex rather
// than running concurrently.
type Coordinator struct {
	repo   vcs.Repo
	logger *log.Logger

	// opMu serializes commit/push/pull/fetch/link on this workspace.
	opMu sync.Mutex

	// treeMu guards the working tree against concurrent mutation:
	// pull holds the write lock, document writes hold the read lock.
	// Push takes neither; it only reads committed history.
	treeMu sync.RWMutex

	ops opLog

	lastSync time.Time
	syncMu   sync.Mutex
}

// New creates a coordinator over the given repository binding.
// If logger is nil, a default logger writing to stderr is used.
func New(repo vcs.Repo, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Coordinator{repo: repo, logger: logger}
}

// Repo returns the underlying repository binding.
func (c *Coordinator) Repo() vcs.Repo {
	return c.repo
}

// Operations returns the recent sync operation records, newest first.
func (c *Coordinator) Operations() []Operation {
	return c.ops.recent()
}

// LastSync returns the time of the last successful pull or link,
// zero if none has succeeded yet.
func (c *Coordinator) LastSync() time.Time {
	c.syncMu.Lock()
	defer c.syncMu.Unlock()
	return c.lastSync
}

func (c *Coordinator) markSynced() {
	c.syncMu.Lock()
	c.lastSync = time.Now().UTC()
	c.syncMu.Unlock()
}

// AcquireWrite blocks while a pull is mutating the working tree, then
// registers an in-flight document write. Writes may proceed concurrently
// with a push. Callers must pair it with ReleaseWrite.
func (c *Coordinator) AcquireWrite() {
	c.treeMu.RLock()
}

// ReleaseWrite releases a write registration taken with AcquireWrite.
func (c *Coordinator) ReleaseWrite() {
	c.treeMu.RUnlock()
}

// PullResult reports the outcome of a pull attempt.
type PullResult struct {
	// State is the terminal state the recovery machine reached.
	State State

	// Merged is true when divergent histories were joined by a merge
	// commit during this pull.
	Merged bool

	// StashPreserved is true when local changes were stashed for the
	// pull and could not be reapplied. The stash is never discarded;
	// the changes are recoverable manually.
	StashPreserved bool

	// Warning carries a human-readable note for non-fatal anomalies,
	// currently only the preserved-stash case.
	Warning string
}

// Pull pulls remote/branch into the working tree, recovering from
// local-change and diverged-history failures per the state machine in
// state.go. Unrecognized failure classes are propagated unchanged.
//
// The caller bounds network time through ctx; a deadline expiry is a
// retryable failure, not a fatal error.
func (c *Coordinator) Pull(ctx context.Context, remote, branch string) (*PullResult, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.treeMu.Lock()
	defer c.treeMu.Unlock()

	op := c.ops.begin(KindPull)
	res, err := c.runPull(ctx, op, remote, branch)
	c.ops.finish(op, err)

	if err == nil {
		c.markSynced()
	}
	return res, err
}

// runPull drives the pull state machine to a terminal state.
func (c *Coordinator) runPull(ctx context.Context, op *Operation, remote, branch string) (*PullResult, error) {
	res := &PullResult{}
	state := next(StateIdle, OutcomeOK) // -> Pulling

	var (
		lastErr error
		stashed bool
	)

	for !state.Terminal() {
		c.ops.setPhase(op, state.String())

		switch state {
		case StatePulling:
			err := c.repo.Pull(ctx, vcs.PullOptions{Remote: remote, Branch: branch, FFOnly: true})
			lastErr = err
			state = next(state, classifyOutcome(err))

		case StateNeedsStash:
			err := c.repo.StashSave(ctx, "vellum: auto-stash before pull")
			if errors.Is(err, vcs.ErrNothingToStash) {
				// Tree went clean between attempts; retry the pull directly
				err = nil
			}
			lastErr = err
			if err == nil {
				stashed = true
			}
			state = next(state, classifyOutcome(err))

		case StateStashSaved:
			state = next(state, OutcomeOK)

		case StatePullRetry:
			err := c.repo.Pull(ctx, vcs.PullOptions{Remote: remote, Branch: branch, FFOnly: true})
			if err != nil {
				lastErr = err
				state = next(state, classifyOutcome(err))
				continue
			}

			outcome := OutcomeOK
			if stashed {
				outcome = c.restoreStash(ctx, res)
			}
			state = next(state, outcome)

		case StateNeedsMerge:
			state = next(state, OutcomeOK)

		case StateMergeAttempt:
			// A dirty tree blocks the merge the same way it blocks a
			// pull; set it aside first so nothing is overwritten.
			if !stashed {
				if dirty, derr := c.repo.HasChanges(); derr == nil && dirty {
					if serr := c.repo.StashSave(ctx, "vellum: auto-stash before merge"); serr == nil {
						stashed = true
					}
				}
			}

			err := c.mergeRemote(ctx, op, remote, branch)
			if err != nil {
				lastErr = err
				state = next(state, OutcomeError)
				continue
			}

			res.Merged = true
			outcome := OutcomeOK
			if stashed {
				outcome = c.restoreStash(ctx, res)
			}
			state = next(state, outcome)
		}
	}

	res.State = state

	switch state {
	case StateSucceeded:
		return res, nil
	case StateStashRestoreFailed:
		// The pull itself succeeded; local changes sit in the preserved
		// stash. Report success with a warning, never silent loss.
		c.logger.Printf("pull succeeded but stash could not be reapplied; local changes preserved in stash")
		return res, nil
	default:
		if stashed && !res.StashPreserved {
			c.recoverStash(ctx, res, lastErr)
		}
		if lastErr == nil {
			lastErr = fmt.Errorf("pull failed in state %s", state)
		}
		return res, lastErr
	}
}

// recoverStash puts auto-stashed local changes back into the tree after
// a failed pull, so the failure does not leave the user's edits sitting
// in an unannounced stash. A conflicted tree cannot take the stash
// back; the stash then stays preserved and the result carries a warning.
func (c *Coordinator) recoverStash(ctx context.Context, res *PullResult, cause error) {
	if errors.Is(cause, vcs.ErrManualResolutionRequired) {
		res.StashPreserved = true
		res.Warning = "local changes are preserved in the stash until the conflict is resolved"
		c.logger.Printf("leaving auto-stash in place over conflicted tree")
		return
	}

	if err := c.repo.StashPop(ctx); err != nil {
		res.StashPreserved = true
		res.Warning = "local changes could not be restored after the failed pull; they are preserved in the stash"
		c.logger.Printf("stash pop after failed pull: %v", err)
	}
}

// restoreStash attempts to reapply the auto-stash after a successful
// pull. A conflicting stash is preserved and reported as a warning.
func (c *Coordinator) restoreStash(ctx context.Context, res *PullResult) Outcome {
	err := c.repo.StashPop(ctx)
	if err == nil {
		return OutcomeOK
	}

	res.StashPreserved = true
	res.Warning = "local changes could not be reapplied after pull; they are preserved in the stash"
	c.logger.Printf("stash pop failed: %v", err)
	return OutcomeStashConflict
}

// mergeRemote joins diverged histories with a true merge, keeping both
// sides as parents. Rewriting history here could silently discard a
// commit pushed concurrently from another device.
func (c *Coordinator) mergeRemote(ctx context.Context, op *Operation, remote, branch string) error {
	if remote == "" {
		remote = vcs.DefaultRemote
	}
	if branch == "" {
		var err error
		branch, err = c.repo.CurrentBranch()
		if err != nil {
			return err
		}
		if branch == "" {
			return vcs.ErrDetached
		}
	}

	c.ops.setPhase(op, "fetching")
	if err := c.repo.Fetch(ctx, remote); err != nil {
		return err
	}

	c.ops.setPhase(op, "merging")
	return c.repo.Merge(ctx, vcs.MergeOptions{
		Rev:     remote + "/" + branch,
		Message: fmt.Sprintf("Merge remote changes from %s/%s", remote, branch),
	})
}

// classifyOutcome maps binding errors onto state machine outcomes.
func classifyOutcome(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, vcs.ErrLocalChanges):
		return OutcomeLocalChanges
	case errors.Is(err, vcs.ErrDivergedHistory):
		return OutcomeDiverged
	default:
		return OutcomeError
	}
}

// Push publishes local commits. A thin pass-through: it never forces
// and never auto-resolves a rejection. A rejected push surfaces as
// ErrRejectedNonFastForward, leaving the user to pull first.
func (c *Coordinator) Push(ctx context.Context, remote, branch string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	op := c.ops.begin(KindPush)
	err := c.repo.Push(ctx, vcs.PushOptions{Remote: remote, Branch: branch})
	c.ops.finish(op, err)
	return err
}

// Fetch updates remote tracking refs without touching the working tree.
func (c *Coordinator) Fetch(ctx context.Context, remote string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	op := c.ops.begin(KindFetch)
	err := c.repo.Fetch(ctx, remote)
	c.ops.finish(op, err)
	return err
}

// Commit stages the given paths and commits them.
func (c *Coordinator) Commit(ctx context.Context, message string, paths []string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	return c.repo.Commit(ctx, vcs.CommitOptions{Message: message, Paths: paths})
}

// AheadBehind reports commit counts relative to remote/branch. A remote
// branch that was never fetched reports zero for both counts.
func (c *Coordinator) AheadBehind(ctx context.Context, remote, branch string) (int, int, error) {
	return c.repo.AheadBehind(ctx, remote, branch)
}

// LinkRemote performs first-time remote linkage for the workspace.
//
// The canonical remote keeps a single identity: if it already exists
// its URL is updated in place, otherwise it is added. Local and remote
// histories are then fetched and merged allowing unrelated histories
// (the workspace may have been initialized independently). A merge
// conflict leaves the conflicted tree in place and surfaces
// ErrManualResolutionRequired; the coordinator never auto-resolves
// across unrelated histories.
func (c *Coordinator) LinkRemote(ctx context.Context, url string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.treeMu.Lock()
	defer c.treeMu.Unlock()

	op := c.ops.begin(KindLink)
	err := c.linkRemote(ctx, op, url)
	c.ops.finish(op, err)

	if err == nil {
		c.markSynced()
	}
	return err
}

func (c *Coordinator) linkRemote(ctx context.Context, op *Operation, url string) error {
	remote := vcs.DefaultRemote

	// Re-linking overwrites rather than duplicates
	c.ops.setPhase(op, "configuring remote")
	err := c.repo.SetRemoteURL(remote, url)
	if errors.Is(err, vcs.ErrRemoteNotFound) {
		err = c.repo.AddRemote(remote, url)
	}
	if err != nil {
		return err
	}

	c.ops.setPhase(op, "fetching")
	if err := c.repo.Fetch(ctx, remote); err != nil {
		return err
	}

	branch, err := c.repo.CurrentBranch()
	if err != nil {
		return err
	}
	if branch == "" {
		return vcs.ErrDetached
	}

	// An empty remote has nothing to merge; the first push creates the
	// branch and establishes tracking.
	if _, err := c.repo.Head(remote + "/" + branch); err != nil {
		c.ops.setPhase(op, "pushing initial branch")
		return c.repo.Push(ctx, vcs.PushOptions{Remote: remote, Branch: branch, SetUpstream: true})
	}

	c.ops.setPhase(op, "merging histories")
	err = c.repo.Merge(ctx, vcs.MergeOptions{
		Rev:            remote + "/" + branch,
		Message:        fmt.Sprintf("Merge workspace history with %s/%s", remote, branch),
		AllowUnrelated: true,
	})
	if err != nil {
		// Conflicted paths stay in the tree so conflict records can be
		// collected and resolved; nothing is auto-resolved here.
		return err
	}

	return c.repo.SetUpstream(remote, branch)
}

// UnlinkRemote removes the canonical remote. Local history and
// documents are untouched; only the link is dropped.
func (c *Coordinator) UnlinkRemote(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	return c.repo.RemoveRemote(vcs.DefaultRemote)
}
