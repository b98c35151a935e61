package syncer

// Pull recovery is a short sequential state machine. Modeling it as an
// explicit transition function keeps every transition independently
// testable, instead of burying the policy in nested error handling.
//
//	Idle -> Pulling -> {Succeeded, NeedsStash, NeedsMerge, Failed}
//	NeedsStash -> StashSaved -> PullRetry -> {Succeeded, StashRestoreFailed, Failed}
//	NeedsMerge -> MergeAttempt -> {Succeeded, Failed}

// State is one node of the pull state machine.
type State int

const (
	StateIdle State = iota
	StatePulling
	StateNeedsStash
	StateStashSaved
	StatePullRetry
	StateNeedsMerge
	StateMergeAttempt
	StateStashRestoreFailed
	StateSucceeded
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePulling:
		return "pulling"
	case StateNeedsStash:
		return "needs-stash"
	case StateStashSaved:
		return "stash-saved"
	case StatePullRetry:
		return "pull-retry"
	case StateNeedsMerge:
		return "needs-merge"
	case StateMergeAttempt:
		return "merge-attempt"
	case StateStashRestoreFailed:
		return "stash-restore-failed"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition leaves the state.
// StashRestoreFailed is terminal: the pull itself succeeded and the
// stash is preserved for manual recovery.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateStashRestoreFailed:
		return true
	}
	return false
}

// Outcome classifies the result of the action performed in a state.
type Outcome int

const (
	// OutcomeOK: the action completed.
	OutcomeOK Outcome = iota

	// OutcomeLocalChanges: uncommitted local changes blocked the action.
	OutcomeLocalChanges

	// OutcomeDiverged: local and remote histories have both advanced.
	OutcomeDiverged

	// OutcomeStashConflict: the saved stash could not be reapplied.
	OutcomeStashConflict

	// OutcomeError: any other failure.
	OutcomeError
)

// next returns the state following s when its action produced outcome.
// Unknown combinations fail closed.
func next(s State, outcome Outcome) State {
	switch s {
	case StateIdle:
		return StatePulling

	case StatePulling:
		switch outcome {
		case OutcomeOK:
			return StateSucceeded
		case OutcomeLocalChanges:
			return StateNeedsStash
		case OutcomeDiverged:
			return StateNeedsMerge
		}
		return StateFailed

	case StateNeedsStash:
		if outcome == OutcomeOK {
			return StateStashSaved
		}
		return StateFailed

	case StateStashSaved:
		return StatePullRetry

	case StatePullRetry:
		switch outcome {
		case OutcomeOK:
			return StateSucceeded
		case OutcomeDiverged:
			return StateNeedsMerge
		case OutcomeStashConflict:
			return StateStashRestoreFailed
		}
		return StateFailed

	case StateNeedsMerge:
		return StateMergeAttempt

	case StateMergeAttempt:
		switch outcome {
		case OutcomeOK:
			return StateSucceeded
		case OutcomeStashConflict:
			return StateStashRestoreFailed
		}
		return StateFailed
	}

	return StateFailed
}
