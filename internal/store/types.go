package store

import (
	"encoding/json"
	"time"

	"github.com/rendis/regraph/pkg/schema"
)

// Operation event types.
const (
	EventPhaseTransition = "operation.phase"
	EventSnapshotSaved   = "snapshot.saved"
	EventBranchInserted  = "branch.inserted"
)

// Graph is a persisted workflow graph document. Its node/edge content lives
// in versioned snapshots.
type Graph struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SnapshotRecord is one committed version of a graph's node/edge set.
// OperationID links it to the transfer operation that produced it, if any.
type SnapshotRecord struct {
	GraphID     string          `json:"graph_id"`
	Version     int64           `json:"version"`
	Snapshot    schema.Snapshot `json:"snapshot"`
	OperationID string          `json:"operation_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// OperationEvent is an immutable entry in the operation log, sequenced per
// operation.
type OperationEvent struct {
	ID          int64           `json:"id"`
	OperationID string          `json:"operation_id"`
	GraphID     string          `json:"graph_id,omitempty"`
	Type        string          `json:"event_type"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
	Sequence    int64           `json:"sequence"`
}

// GraphFilter specifies criteria for listing graphs.
type GraphFilter struct {
	Name   string `json:"name,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// OperationEventFilter specifies criteria for listing operation events.
type OperationEventFilter struct {
	GraphID   string     `json:"graph_id,omitempty"`
	EventType string     `json:"event_type,omitempty"`
	Since     *time.Time `json:"since,omitempty"`
	Limit     int        `json:"limit,omitempty"`
}
