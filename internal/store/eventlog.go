package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rendis/regraph/internal/transfer"
	"github.com/rendis/regraph/pkg/schema"
)

// OperationLog provides operation event sourcing on top of a LibSQLStore.
// It implements transfer.PhaseRecorder so the executor's phase transitions
// land in the log as they happen.
type OperationLog struct {
	store   *LibSQLStore
	graphID string
}

// NewOperationLog wraps a LibSQLStore to provide the operation log.
func NewOperationLog(s *LibSQLStore) *OperationLog {
	return &OperationLog{store: s}
}

// ForGraph returns a copy of the log that stamps graphID on every event it
// appends. The FSM only knows operation ids; the binding carries the graph.
func (l *OperationLog) ForGraph(graphID string) *OperationLog {
	return &OperationLog{store: l.store, graphID: graphID}
}

// RecordPhase appends a phase-transition event for the operation.
func (l *OperationLog) RecordPhase(ctx context.Context, operationID string, from, to transfer.Phase) error {
	payload, err := json.Marshal(map[string]string{"from": string(from), "to": string(to)})
	if err != nil {
		return fmt.Errorf("marshal phase payload: %w", err)
	}
	return l.store.AppendOperationEvent(ctx, &OperationEvent{
		OperationID: operationID,
		GraphID:     l.graphID,
		Type:        EventPhaseTransition,
		Payload:     payload,
	})
}

// Append appends an arbitrary event for the operation, stamped with the
// bound graph id.
func (l *OperationLog) Append(ctx context.Context, operationID, eventType string, payload json.RawMessage) error {
	return l.store.AppendOperationEvent(ctx, &OperationEvent{
		OperationID: operationID,
		GraphID:     l.graphID,
		Type:        eventType,
		Payload:     payload,
	})
}

// PhaseHistory replays the phase-transition events of an operation and
// returns the phases it passed through, in order. Returns an error on
// sequence gaps, which would indicate log corruption.
func (l *OperationLog) PhaseHistory(ctx context.Context, operationID string) ([]transfer.Phase, error) {
	events, err := l.store.GetOperationEvents(ctx, operationID)
	if err != nil {
		return nil, fmt.Errorf("get events for replay: %w", err)
	}

	for i, e := range events {
		expected := int64(i + 1)
		if e.Sequence != expected {
			return nil, schema.NewErrorf(schema.ErrCodeStore,
				"sequence gap in operation %s: expected %d, got %d", operationID, expected, e.Sequence)
		}
	}

	var phases []transfer.Phase
	for _, e := range events {
		if e.Type != EventPhaseTransition {
			continue
		}
		var p struct {
			From string `json:"from"`
			To   string `json:"to"`
		}
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return nil, fmt.Errorf("unmarshal phase payload: %w", err)
		}
		if len(phases) == 0 {
			phases = append(phases, transfer.Phase(p.From))
		}
		phases = append(phases, transfer.Phase(p.To))
	}
	return phases, nil
}

var _ transfer.PhaseRecorder = (*OperationLog)(nil)
