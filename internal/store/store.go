package store

import (
	"context"
	"time"

	"github.com/rendis/regraph/pkg/schema"
)

// Store defines the persistence layer contract for graphs, their committed
// snapshots, and the operation event log.
// All implementations must be safe for concurrent use.
type Store interface {
	// Graphs
	CreateGraph(ctx context.Context, g *Graph) error
	GetGraph(ctx context.Context, id string) (*Graph, error)
	RenameGraph(ctx context.Context, id, name string) error
	ListGraphs(ctx context.Context, filter GraphFilter) ([]*Graph, error)
	DeleteGraph(ctx context.Context, id string) error

	// Snapshots (versioned, append-only per graph)
	SaveSnapshot(ctx context.Context, graphID string, snap schema.Snapshot, operationID string) (int64, error)
	GetSnapshot(ctx context.Context, graphID string) (*SnapshotRecord, error)
	GetSnapshotVersion(ctx context.Context, graphID string, version int64) (*SnapshotRecord, error)
	ListSnapshotVersions(ctx context.Context, graphID string, limit int) ([]*SnapshotRecord, error)
	PruneSnapshots(ctx context.Context, graphID string, keep int) (int64, error)

	// Operation events (append-only)
	AppendOperationEvent(ctx context.Context, event *OperationEvent) error
	GetOperationEvents(ctx context.Context, operationID string) ([]*OperationEvent, error)
	ListOperationEvents(ctx context.Context, filter OperationEventFilter) ([]*OperationEvent, error)
	PruneOperationEvents(ctx context.Context, olderThan time.Time) (int64, error)

	// Maintenance
	Migrate(ctx context.Context) error
	Vacuum(ctx context.Context) error

	// Lifecycle
	Close() error
}
