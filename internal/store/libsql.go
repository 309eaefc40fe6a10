package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/rendis/regraph/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-20000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// DB returns the underlying *sql.DB for advanced usage (e.g. operation log).
func (s *LibSQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// Vacuum runs VACUUM on the database.
func (s *LibSQLStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// --- Graphs ---

func (s *LibSQLStore) CreateGraph(ctx context.Context, g *Graph) error {
	now := timeOrNow(g.CreatedAt)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO graphs (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		g.ID, g.Name, now, now,
	)
	return err
}

func (s *LibSQLStore) GetGraph(ctx context.Context, id string) (*Graph, error) {
	g := &Graph{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at FROM graphs WHERE id = ?`, id,
	).Scan(&g.ID, &g.Name, &g.CreatedAt, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("graph", id)
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (s *LibSQLStore) RenameGraph(ctx context.Context, id, name string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE graphs SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, name, id,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "graph", id)
}

func (s *LibSQLStore) ListGraphs(ctx context.Context, filter GraphFilter) ([]*Graph, error) {
	query := `SELECT id, name, created_at, updated_at FROM graphs`
	var where []string
	var args []any

	if filter.Name != "" {
		where = append(where, "name LIKE ?")
		args = append(args, "%"+filter.Name+"%")
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var graphs []*Graph
	for rows.Next() {
		g := &Graph{}
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		graphs = append(graphs, g)
	}
	return graphs, rows.Err()
}

func (s *LibSQLStore) DeleteGraph(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM graphs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "graph", id)
}

// --- Snapshots ---

// SaveSnapshot stores a new snapshot version for the graph and returns it.
// Versions are monotonically increasing per graph; the write runs in one
// transaction so concurrent saves cannot reuse a version.
func (s *LibSQLStore) SaveSnapshot(ctx context.Context, graphID string, snap schema.Snapshot, operationID string) (int64, error) {
	nodes, err := json.Marshal(snap.Nodes)
	if err != nil {
		return 0, fmt.Errorf("marshal nodes: %w", err)
	}
	edges, err := json.Marshal(snap.Edges)
	if err != nil {
		return 0, fmt.Errorf("marshal edges: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	var version int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM snapshots WHERE graph_id = ?`, graphID,
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("next snapshot version: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (graph_id, version, nodes, edges, operation_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		graphID, version, string(nodes), string(edges), nullStr(operationID), time.Now().UTC(),
	); err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE graphs SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, graphID,
	); err != nil {
		return 0, fmt.Errorf("touch graph: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit snapshot: %w", err)
	}
	return version, nil
}

// GetSnapshot returns the latest snapshot version for the graph.
func (s *LibSQLStore) GetSnapshot(ctx context.Context, graphID string) (*SnapshotRecord, error) {
	return s.scanSnapshot(s.db.QueryRowContext(ctx,
		`SELECT graph_id, version, nodes, edges, operation_id, created_at
		 FROM snapshots WHERE graph_id = ? ORDER BY version DESC LIMIT 1`, graphID),
		graphID)
}

// GetSnapshotVersion returns a specific snapshot version.
func (s *LibSQLStore) GetSnapshotVersion(ctx context.Context, graphID string, version int64) (*SnapshotRecord, error) {
	return s.scanSnapshot(s.db.QueryRowContext(ctx,
		`SELECT graph_id, version, nodes, edges, operation_id, created_at
		 FROM snapshots WHERE graph_id = ? AND version = ?`, graphID, version),
		graphID)
}

func (s *LibSQLStore) scanSnapshot(row *sql.Row, graphID string) (*SnapshotRecord, error) {
	rec := &SnapshotRecord{}
	var nodesJSON, edgesJSON string
	var opID sql.NullString
	err := row.Scan(&rec.GraphID, &rec.Version, &nodesJSON, &edgesJSON, &opID, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("snapshot for graph", graphID)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(nodesJSON), &rec.Snapshot.Nodes); err != nil {
		return nil, fmt.Errorf("unmarshal nodes: %w", err)
	}
	if err := json.Unmarshal([]byte(edgesJSON), &rec.Snapshot.Edges); err != nil {
		return nil, fmt.Errorf("unmarshal edges: %w", err)
	}
	rec.OperationID = opID.String
	return rec, nil
}

// ListSnapshotVersions returns snapshot records for the graph, newest first.
func (s *LibSQLStore) ListSnapshotVersions(ctx context.Context, graphID string, limit int) ([]*SnapshotRecord, error) {
	query := `SELECT graph_id, version, nodes, edges, operation_id, created_at
	          FROM snapshots WHERE graph_id = ? ORDER BY version DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, graphID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*SnapshotRecord
	for rows.Next() {
		rec := &SnapshotRecord{}
		var nodesJSON, edgesJSON string
		var opID sql.NullString
		if err := rows.Scan(&rec.GraphID, &rec.Version, &nodesJSON, &edgesJSON, &opID, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(nodesJSON), &rec.Snapshot.Nodes); err != nil {
			return nil, fmt.Errorf("unmarshal nodes: %w", err)
		}
		if err := json.Unmarshal([]byte(edgesJSON), &rec.Snapshot.Edges); err != nil {
			return nil, fmt.Errorf("unmarshal edges: %w", err)
		}
		rec.OperationID = opID.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// PruneSnapshots deletes all but the newest keep versions of the graph and
// returns the number of rows removed.
func (s *LibSQLStore) PruneSnapshots(ctx context.Context, graphID string, keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE graph_id = ? AND version NOT IN (
		     SELECT version FROM snapshots WHERE graph_id = ? ORDER BY version DESC LIMIT ?
		 )`, graphID, graphID, keep,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- Operation events ---

// AppendOperationEvent appends an event with a monotonically increasing
// per-operation sequence. The read and write share one transaction so
// concurrent appenders cannot interleave.
func (s *LibSQLStore) AppendOperationEvent(ctx context.Context, event *OperationEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin event tx: %w", err)
	}
	defer tx.Rollback()

	// Force write-lock acquisition up front; in WAL mode a deferred
	// transaction would otherwise take the lock only at the INSERT below,
	// after the sequence read.
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO schema_version (version, name) VALUES (-1, '_lock_noop')`); err != nil {
		return fmt.Errorf("acquire write lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM schema_version WHERE version = -1`); err != nil {
		return fmt.Errorf("cleanup write lock: %w", err)
	}

	var seq int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) + 1 FROM operation_events WHERE operation_id = ?`,
		event.OperationID,
	).Scan(&seq)
	if err != nil {
		return fmt.Errorf("get next sequence: %w", err)
	}
	event.Sequence = seq

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO operation_events (operation_id, graph_id, event_type, payload, timestamp, sequence)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		event.OperationID, nullStr(event.GraphID), event.Type, nullRaw(event.Payload), event.Timestamp, seq,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit event: %w", err)
	}
	return nil
}

// GetOperationEvents returns all events of an operation ordered by sequence.
func (s *LibSQLStore) GetOperationEvents(ctx context.Context, operationID string) ([]*OperationEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, operation_id, graph_id, event_type, payload, timestamp, sequence
		 FROM operation_events WHERE operation_id = ? ORDER BY sequence ASC`, operationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOperationEvents(rows)
}

// ListOperationEvents returns events matching the filter, newest first.
func (s *LibSQLStore) ListOperationEvents(ctx context.Context, filter OperationEventFilter) ([]*OperationEvent, error) {
	query := `SELECT id, operation_id, graph_id, event_type, payload, timestamp, sequence FROM operation_events`
	var where []string
	var args []any

	if filter.GraphID != "" {
		where = append(where, "graph_id = ?")
		args = append(args, filter.GraphID)
	}
	if filter.EventType != "" {
		where = append(where, "event_type = ?")
		args = append(args, filter.EventType)
	}
	if filter.Since != nil {
		where = append(where, "timestamp >= ?")
		args = append(args, *filter.Since)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp DESC, id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOperationEvents(rows)
}

// PruneOperationEvents deletes events older than the cutoff and returns the
// number of rows removed.
func (s *LibSQLStore) PruneOperationEvents(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM operation_events WHERE timestamp < ?`, olderThan,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanOperationEvents(rows *sql.Rows) ([]*OperationEvent, error) {
	var events []*OperationEvent
	for rows.Next() {
		e := &OperationEvent{}
		var graphID, payload sql.NullString
		if err := rows.Scan(&e.ID, &e.OperationID, &graphID, &e.Type, &payload, &e.Timestamp, &e.Sequence); err != nil {
			return nil, err
		}
		e.GraphID = graphID.String
		e.Payload = rawOrNil(payload)
		events = append(events, e)
	}
	return events, rows.Err()
}

// --- Helpers ---

func storeNotFound(resource, id string) *schema.GraphError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

func checkRowsAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(resource, id)
	}
	return nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullRaw(r json.RawMessage) any {
	if len(r) == 0 {
		return nil
	}
	return string(r)
}

func rawOrNil(ns sql.NullString) json.RawMessage {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.RawMessage(ns.String)
}

var _ Store = (*LibSQLStore)(nil)
