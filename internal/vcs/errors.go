package vcs

import "errors"

// Common errors returned by repository binding operations.
//
// These errors can be checked using errors.Is() for proper error handling:
//
//	if errors.Is(err, vcs.ErrNotInitialized) {
//	    // Workspace bootstrap has not run yet
//	}
var (
	// ErrNotInitialized is returned when the operation requires an
	// initialized repository but none exists at the path.
	ErrNotInitialized = errors.New("repository not initialized")

	// ErrBackendNotAvailable is returned when the backend binary
	// (git) is not installed or not in PATH.
	ErrBackendNotAvailable = errors.New("VCS binary not available")

	// ErrAuthenticationFailed is returned when the remote rejected the
	// configured credentials.
	ErrAuthenticationFailed = errors.New("remote authentication failed")

	// ErrNetworkUnavailable is returned when the remote could not be
	// reached. Transient; the operation may be retried.
	ErrNetworkUnavailable = errors.New("remote unreachable")

	// ErrRejectedNonFastForward is returned when a push is rejected
	// because the remote has commits the local branch lacks. Never
	// auto-resolved; the caller must pull first.
	ErrRejectedNonFastForward = errors.New("push rejected: remote has newer commits")

	// ErrDivergedHistory is returned when a pull finds that local and
	// remote histories have both advanced and cannot fast-forward.
	ErrDivergedHistory = errors.New("local and remote histories have diverged")

	// ErrLocalChanges is returned when a pull would overwrite
	// uncommitted local changes. Recoverable via stash-and-replay.
	ErrLocalChanges = errors.New("uncommitted local changes block the operation")

	// ErrManualResolutionRequired is returned when a merge produced
	// conflicts that need a user decision.
	ErrManualResolutionRequired = errors.New("merge conflicts require manual resolution")

	// ErrNoRemote is returned when an operation requires a remote but
	// none is configured.
	ErrNoRemote = errors.New("no remote configured")

	// ErrRemoteExists is returned when adding a remote under a name
	// that is already taken.
	ErrRemoteExists = errors.New("remote already exists")

	// ErrRemoteNotFound is returned when operating on an unknown remote.
	ErrRemoteNotFound = errors.New("remote not found")

	// ErrNothingToStash is returned by StashSave when the working tree
	// is clean.
	ErrNothingToStash = errors.New("no local changes to stash")

	// ErrDetached is returned when an operation requires being on a
	// branch but HEAD is detached.
	ErrDetached = errors.New("not on a branch")

	// ErrTimeout is returned when a remote operation exceeds its
	// caller-supplied deadline.
	ErrTimeout = errors.New("operation timed out")
)

// IsRetryable returns true if the error is likely to succeed on retry,
// either on its own (transient network failure) or after a prior pull.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrTimeout) {
		return true
	}

	if errors.Is(err, ErrNetworkUnavailable) {
		return true
	}

	// Push rejections succeed after a pull
	if errors.Is(err, ErrRejectedNonFastForward) {
		return true
	}

	return false
}

// IsUserActionRequired returns true if the error needs user intervention
// (conflict resolution, credential fixes) before the operation can succeed.
func IsUserActionRequired(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrManualResolutionRequired) {
		return true
	}

	if errors.Is(err, ErrAuthenticationFailed) {
		return true
	}

	return false
}

// IsFatal returns true if the error indicates a state no retry can fix
// without re-initialization.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrNotInitialized) {
		return true
	}

	if errors.Is(err, ErrBackendNotAvailable) {
		return true
	}

	return false
}
