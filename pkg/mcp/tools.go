package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/regraph/internal/analysis"
	"github.com/rendis/regraph/internal/compose"
	"github.com/rendis/regraph/internal/diagram"
	"github.com/rendis/regraph/internal/edgeutil"
	"github.com/rendis/regraph/internal/store"
	"github.com/rendis/regraph/internal/transfer"
	"github.com/rendis/regraph/internal/validation"
	"github.com/rendis/regraph/pkg/schema"
)

// handleLoad validates a snapshot payload and stores it as a new version.
func (s *GraphServer) handleLoad(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	payload := mcp.ParseStringMap(req, "snapshot", nil)
	if payload == nil {
		return mcp.NewToolResultError("snapshot is required"), nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid snapshot: %v", err)), nil
	}
	if schemaErr := s.snapshots.ValidateJSON(data); schemaErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("snapshot rejected: %v", schemaErr)), nil
	}

	var snap schema.Snapshot
	if unmarshalErr := json.Unmarshal(data, &snap); unmarshalErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid snapshot: %v", unmarshalErr)), nil
	}

	if result := edgeutil.ValidateConnections(snap.Nodes, snap.Edges); !result.Valid() {
		report := validation.FormatForUser(result)
		return mcp.NewToolResultError(fmt.Sprintf("snapshot rejected: %v", report.Messages)), nil
	}

	graphID := req.GetString("graph_id", "")
	if graphID == "" {
		g := &store.Graph{ID: uuid.New().String(), Name: req.GetString("name", "untitled graph")}
		if createErr := s.store.CreateGraph(ctx, g); createErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create graph: %v", createErr)), nil
		}
		graphID = g.ID
	} else if _, getErr := s.store.GetGraph(ctx, graphID); getErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("graph lookup failed: %v", getErr)), nil
	}

	operationID := uuid.New().String()
	version, saveErr := s.store.SaveSnapshot(ctx, graphID, snap, operationID)
	if saveErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to store snapshot: %v", saveErr)), nil
	}

	s.captureSession(ctx, graphID)
	s.appendEvent(ctx, graphID, operationID, store.EventSnapshotSaved, map[string]any{"version": version})

	return marshalResult(map[string]any{
		"graph_id": graphID,
		"version":  version,
		"nodes":    len(snap.Nodes),
		"edges":    len(snap.Edges),
	})
}

// handleAnalyze plans a branch insertion without touching the graph.
func (s *GraphServer) handleAnalyze(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	graphID, err := req.RequireString("graph_id")
	if err != nil {
		return mcp.NewToolResultError("graph_id is required"), nil
	}
	targetNodeID, err := req.RequireString("target_node_id")
	if err != nil {
		return mcp.NewToolResultError("target_node_id is required"), nil
	}

	rec, loadErr := s.loadSnapshot(ctx, graphID, req.GetInt("version", 0))
	if loadErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("snapshot lookup failed: %v", loadErr)), nil
	}

	plan, planErr := analysis.AnalyzeBranchInsertion(targetNodeID, rec.Snapshot.Nodes, rec.Snapshot.Edges)
	if planErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", planErr)), nil
	}
	point, pointErr := analysis.OptimalInsertionPoint(targetNodeID, rec.Snapshot.Nodes, rec.Snapshot.Edges)
	if pointErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", pointErr)), nil
	}

	s.captureSession(ctx, graphID)
	return marshalResult(map[string]any{
		"plan":          plan,
		"strategy":      point.Strategy,
		"inbound_count": point.InboundCount,
		"version":       rec.Version,
	})
}

// handleValidate runs the validation passes over a fresh plan.
func (s *GraphServer) handleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	graphID, err := req.RequireString("graph_id")
	if err != nil {
		return mcp.NewToolResultError("graph_id is required"), nil
	}
	targetNodeID, err := req.RequireString("target_node_id")
	if err != nil {
		return mcp.NewToolResultError("target_node_id is required"), nil
	}

	rec, loadErr := s.loadSnapshot(ctx, graphID, req.GetInt("version", 0))
	if loadErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("snapshot lookup failed: %v", loadErr)), nil
	}

	plan, planErr := analysis.AnalyzeBranchInsertion(targetNodeID, rec.Snapshot.Nodes, rec.Snapshot.Edges)
	if planErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", planErr)), nil
	}

	result := validation.NewTransferValidator(s.conditions).Validate(plan, rec.Snapshot.Nodes, rec.Snapshot.Edges)

	s.captureSession(ctx, graphID)
	return marshalResult(map[string]any{
		"report":  validation.FormatForUser(result),
		"result":  result,
		"version": rec.Version,
	})
}

// handleTransfer plans, validates, commits and persists a branch insertion.
func (s *GraphServer) handleTransfer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	graphID, err := req.RequireString("graph_id")
	if err != nil {
		return mcp.NewToolResultError("graph_id is required"), nil
	}
	targetNodeID, err := req.RequireString("target_node_id")
	if err != nil {
		return mcp.NewToolResultError("target_node_id is required"), nil
	}

	rec, loadErr := s.loadSnapshot(ctx, graphID, req.GetInt("version", 0))
	if loadErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("snapshot lookup failed: %v", loadErr)), nil
	}

	executor := transfer.NewExecutor(transfer.ExecutorOptions{
		Recorder: s.recorderFor(graphID),
		Logger:   s.logger,
	})

	plan, planErr := executor.Plan(targetNodeID, rec.Snapshot)
	if planErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", planErr)), nil
	}

	result := validation.NewTransferValidator(s.conditions).Validate(plan, rec.Snapshot.Nodes, rec.Snapshot.Edges)
	if !result.Valid() {
		report := validation.FormatForUser(result)
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", report.Title, report.Messages)), nil
	}

	committed, commitErr := executor.Commit(ctx, plan, rec.Snapshot, transfer.Options{
		SkipRepositioning: req.GetBool("skip_repositioning", false),
	})
	if commitErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("transfer failed: %v", commitErr)), nil
	}

	version, saveErr := s.store.SaveSnapshot(ctx, graphID, committed.Snapshot, committed.OperationID)
	if saveErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to store snapshot: %v", saveErr)), nil
	}

	s.captureSession(ctx, graphID)
	s.appendEvent(ctx, graphID, committed.OperationID, store.EventBranchInserted, map[string]any{
		"target_node_id":       targetNodeID,
		"transferred_step_ids": committed.TransferredStepIDs,
		"version":              version,
	})
	s.notifyUpdated(ctx, graphID, version, committed.OperationID)

	return marshalResult(map[string]any{
		"graph_id":             graphID,
		"operation_id":         committed.OperationID,
		"version":              version,
		"transferred_step_ids": committed.TransferredStepIDs,
		"slot_ids":             committed.SlotIDs,
		"complexity":           plan.EstimatedComplexity,
	})
}

// handleBranch runs the drag composer: source becomes a branch, its
// downstream steps move under the first of two new slot nodes.
func (s *GraphServer) handleBranch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	graphID, err := req.RequireString("graph_id")
	if err != nil {
		return mcp.NewToolResultError("graph_id is required"), nil
	}
	sourceNodeID, err := req.RequireString("source_node_id")
	if err != nil {
		return mcp.NewToolResultError("source_node_id is required"), nil
	}
	targetNodeID, err := req.RequireString("target_node_id")
	if err != nil {
		return mcp.NewToolResultError("target_node_id is required"), nil
	}

	rec, loadErr := s.loadSnapshot(ctx, graphID, req.GetInt("version", 0))
	if loadErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("snapshot lookup failed: %v", loadErr)), nil
	}

	result := compose.InsertBranchWithDrag(ctx, sourceNodeID, targetNodeID, rec.Snapshot, compose.Options{
		Factory: slotNodeFactory,
		SlotLabels: [2]string{
			req.GetString("left_label", ""),
			req.GetString("right_label", ""),
		},
		Conditions: s.conditions,
		Recorder:   s.recorderFor(graphID),
		Logger:     s.logger,
	})
	if !result.Success {
		return mcp.NewToolResultError(fmt.Sprintf("branch insertion failed: %v", result.Err)), nil
	}

	snap := schema.Snapshot{Nodes: result.Nodes, Edges: result.Edges}
	version, saveErr := s.store.SaveSnapshot(ctx, graphID, snap, result.OperationID)
	if saveErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to store snapshot: %v", saveErr)), nil
	}

	s.captureSession(ctx, graphID)
	s.appendEvent(ctx, graphID, result.OperationID, store.EventBranchInserted, map[string]any{
		"source_node_id":       sourceNodeID,
		"transferred_step_ids": result.TransferredStepIDs,
		"version":              version,
	})
	s.notifyUpdated(ctx, graphID, version, result.OperationID)

	return marshalResult(map[string]any{
		"graph_id":             graphID,
		"operation_id":         result.OperationID,
		"version":              version,
		"transferred_count":    result.TransferredCount,
		"transferred_step_ids": result.TransferredStepIDs,
		"slot_node_ids":        result.SlotNodeIDs,
	})
}

// handleQuery runs a jq expression over a stored snapshot.
func (s *GraphServer) handleQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	graphID, err := req.RequireString("graph_id")
	if err != nil {
		return mcp.NewToolResultError("graph_id is required"), nil
	}
	expression, err := req.RequireString("expression")
	if err != nil {
		return mcp.NewToolResultError("expression is required"), nil
	}

	rec, loadErr := s.loadSnapshot(ctx, graphID, req.GetInt("version", 0))
	if loadErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("snapshot lookup failed: %v", loadErr)), nil
	}

	doc, docErr := snapshotDocument(rec)
	if docErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to build query document: %v", docErr)), nil
	}

	results, queryErr := s.query.EvaluateAll(ctx, expression, doc)
	if queryErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", queryErr)), nil
	}

	s.captureSession(ctx, graphID)
	return marshalResult(map[string]any{
		"results": results,
		"count":   len(results),
		"version": rec.Version,
	})
}

// handleDiagram renders a stored snapshot as a Mermaid flowchart.
func (s *GraphServer) handleDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	graphID, err := req.RequireString("graph_id")
	if err != nil {
		return mcp.NewToolResultError("graph_id is required"), nil
	}

	g, getErr := s.store.GetGraph(ctx, graphID)
	if getErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("graph lookup failed: %v", getErr)), nil
	}
	rec, loadErr := s.loadSnapshot(ctx, graphID, req.GetInt("version", 0))
	if loadErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("snapshot lookup failed: %v", loadErr)), nil
	}

	s.captureSession(ctx, graphID)
	return mcp.NewToolResultText(diagram.RenderMermaid(g.Name, rec.Snapshot)), nil
}

// --- Internal helpers ---

// loadSnapshot fetches a specific version, or the latest when version <= 0.
func (s *GraphServer) loadSnapshot(ctx context.Context, graphID string, version int) (*store.SnapshotRecord, error) {
	if version > 0 {
		return s.store.GetSnapshotVersion(ctx, graphID, int64(version))
	}
	return s.store.GetSnapshot(ctx, graphID)
}

// recorderFor binds the operation log to a graph so phase transitions carry
// its id. Returns nil when no log is configured.
func (s *GraphServer) recorderFor(graphID string) transfer.PhaseRecorder {
	if s.events == nil {
		return nil
	}
	return s.events.ForGraph(graphID)
}

// appendEvent records a domain event, best-effort.
func (s *GraphServer) appendEvent(ctx context.Context, graphID, operationID, eventType string, payload map[string]any) {
	if s.events == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if appendErr := s.events.ForGraph(graphID).Append(ctx, operationID, eventType, raw); appendErr != nil {
		s.logger.Warn("failed to append operation event",
			"graph_id", graphID, "event_type", eventType, "error", appendErr)
	}
}

// notifyUpdated pushes a graph-updated notification, best-effort.
func (s *GraphServer) notifyUpdated(ctx context.Context, graphID string, version int64, operationID string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyGraphUpdated(ctx, graphID, map[string]any{
		"event":        "graph.updated",
		"graph_id":     graphID,
		"version":      version,
		"operation_id": operationID,
	}); err != nil {
		s.logger.Warn("failed to push graph notification",
			"graph_id", graphID, "error", err)
	}
}

// slotNodeFactory mints the placeholder nodes heading the new branch paths.
func slotNodeFactory(pos schema.Position, variant schema.Variant, label string) schema.Node {
	n := schema.Node{ID: uuid.New().String(), Position: pos, Label: label}
	switch variant {
	case schema.VariantBranch:
		n.Detail = schema.BranchDetail{}
	case schema.VariantEnd:
		n.Detail = schema.EndDetail{}
	case schema.VariantJump:
		n.Detail = schema.JumpDetail{}
	default:
		n.Detail = schema.StepDetail{}
	}
	return n
}

// snapshotDocument renders a snapshot record as a jq input document.
func snapshotDocument(rec *store.SnapshotRecord) (map[string]any, error) {
	raw, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return nil, err
	}
	doc := map[string]any{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	doc["graphId"] = rec.GraphID
	doc["version"] = rec.Version
	return doc, nil
}

// captureSession maps the graph ID to the current MCP session for notifications.
func (s *GraphServer) captureSession(ctx context.Context, graphID string) {
	if session := server.ClientSessionFromContext(ctx); session != nil {
		s.sessions.Register(graphID, session.SessionID())
	}
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
