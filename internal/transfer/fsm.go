package transfer

import (
	"context"
	"sync"

	"github.com/rendis/regraph/pkg/schema"
)

// Phase is a stage in the commit pipeline of a step transfer.
type Phase string

const (
	PhasePlanned       Phase = "planned"
	PhaseConverting    Phase = "converting"
	PhaseRepositioning Phase = "repositioning"
	PhaseEdgeRewriting Phase = "edgeRewriting"
	PhaseValidated     Phase = "validated"
	PhaseCommitted     Phase = "committed"
	PhaseFailed        Phase = "failed"
)

// ValidPhaseTransitions defines the allowed phase transitions for a
// transfer operation. Failure is reachable from every non-terminal phase.
var ValidPhaseTransitions = map[Phase][]Phase{
	PhasePlanned:       {PhaseConverting, PhaseFailed},
	PhaseConverting:    {PhaseRepositioning, PhaseFailed},
	PhaseRepositioning: {PhaseEdgeRewriting, PhaseFailed},
	PhaseEdgeRewriting: {PhaseValidated, PhaseFailed},
	PhaseValidated:     {PhaseCommitted, PhaseFailed},
}

// IsTerminalPhase reports whether no further transitions are possible.
func IsTerminalPhase(p Phase) bool {
	return p == PhaseCommitted || p == PhaseFailed
}

// PhaseHook is called before or after a phase transition.
type PhaseHook func(from, to Phase) error

// PhaseRecorder persists phase transitions of a transfer operation.
// Implemented by the operation log; nil disables recording.
type PhaseRecorder interface {
	RecordPhase(ctx context.Context, operationID string, from, to Phase) error
}

type phaseHookKey struct {
	from, to Phase
}

// FSM manages transfer operation phase transitions.
type FSM struct {
	mu       sync.Mutex
	recorder PhaseRecorder
	before   map[phaseHookKey][]PhaseHook
	after    map[phaseHookKey][]PhaseHook
}

// NewFSM creates an FSM that records transitions via the given recorder.
func NewFSM(recorder PhaseRecorder) *FSM {
	return &FSM{
		recorder: recorder,
		before:   make(map[phaseHookKey][]PhaseHook),
		after:    make(map[phaseHookKey][]PhaseHook),
	}
}

// OnBefore registers a hook called before a phase transition.
func (f *FSM) OnBefore(from, to Phase, hook PhaseHook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := phaseHookKey{from, to}
	f.before[key] = append(f.before[key], hook)
}

// OnAfter registers a hook called after a phase transition.
func (f *FSM) OnAfter(from, to Phase, hook PhaseHook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := phaseHookKey{from, to}
	f.after[key] = append(f.after[key], hook)
}

// Transition validates and executes a phase transition, recording it via
// the recorder when one is configured.
func (f *FSM) Transition(ctx context.Context, operationID string, from, to Phase) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !isValidPhaseTransition(from, to) {
		return schema.NewErrorf(schema.ErrCodeInvalidState,
			"invalid transfer phase transition: %s -> %s", from, to).
			WithDetails(map[string]any{"operation_id": operationID, "from": string(from), "to": string(to)})
	}

	key := phaseHookKey{from, to}

	for _, hook := range f.before[key] {
		if err := hook(from, to); err != nil {
			return err
		}
	}

	if f.recorder != nil {
		if err := f.recorder.RecordPhase(ctx, operationID, from, to); err != nil {
			return schema.NewErrorf(schema.ErrCodeStore, "record phase transition: %s", err.Error()).WithCause(err)
		}
	}

	for _, hook := range f.after[key] {
		if err := hook(from, to); err != nil {
			return err
		}
	}

	return nil
}

func isValidPhaseTransition(from, to Phase) bool {
	allowed, ok := ValidPhaseTransitions[from]
	if !ok {
		return false
	}
	for _, a := range allowed {
		if a == to {
			return true
		}
	}
	return false
}
