package syncer

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind identifies what a sync operation does.
type Kind string

const (
	KindPush  Kind = "push"
	KindPull  Kind = "pull"
	KindFetch Kind = "fetch"
	KindLink  Kind = "link"
)

// OpStatus is the lifecycle status of a sync operation.
// Terminal states are success and error; once terminal the operation
// record is immutable.
type OpStatus string

const (
	OpPending    OpStatus = "pending"
	OpInProgress OpStatus = "in-progress"
	OpSuccess    OpStatus = "success"
	OpError      OpStatus = "error"
)

// Progress is an optional phase indicator on an in-flight operation.
type Progress struct {
	Phase  string `json:"phase"`
	Loaded int    `json:"loaded"`
	Total  int    `json:"total"`
}

// Operation records one sync attempt.
type Operation struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Status    OpStatus  `json:"status"`
	Started   time.Time `json:"started"`
	Completed time.Time `json:"completed,omitzero"`
	Progress  *Progress `json:"progress,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// historySize bounds the in-memory record of recent operations.
const historySize = 32

// opLog is a bounded, newest-first record of sync operations.
type opLog struct {
	mu  sync.Mutex
	ops []*Operation
}

// begin creates a pending operation and moves it to in-progress.
func (l *opLog) begin(kind Kind) *Operation {
	op := &Operation{
		ID:      uuid.NewString(),
		Kind:    kind,
		Status:  OpPending,
		Started: time.Now().UTC(),
	}

	l.mu.Lock()
	l.ops = append([]*Operation{op}, l.ops...)
	if len(l.ops) > historySize {
		l.ops = l.ops[:historySize]
	}
	op.Status = OpInProgress
	l.mu.Unlock()

	return op
}

// finish moves an operation to its terminal state. A second call on
// the same operation is ignored; terminal records never change.
func (l *opLog) finish(op *Operation, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if op.Status == OpSuccess || op.Status == OpError {
		return
	}

	op.Completed = time.Now().UTC()
	op.Progress = nil
	if err != nil {
		op.Status = OpError
		op.Error = err.Error()
	} else {
		op.Status = OpSuccess
	}
}

// setPhase updates the progress phase on an in-flight operation.
func (l *opLog) setPhase(op *Operation, phase string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if op.Status != OpInProgress {
		return
	}
	op.Progress = &Progress{Phase: phase}
}

// recent returns copies of the recorded operations, newest first.
func (l *opLog) recent() []Operation {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Operation, 0, len(l.ops))
	for _, op := range l.ops {
		out = append(out, *op)
	}
	return out
}
