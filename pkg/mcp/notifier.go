package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/server"
)

// GraphNotifier pushes graph-change notifications to connected clients.
type GraphNotifier interface {
	NotifyGraphUpdated(ctx context.Context, graphID string, payload map[string]any) error
}

// MCPNotifier implements GraphNotifier using MCP push notifications.
type MCPNotifier struct {
	mcpServer *server.MCPServer
	sessions  *SessionRegistry
}

// NewMCPNotifier creates a notifier that pushes via the MCP transport.
func NewMCPNotifier(mcpServer *server.MCPServer, sessions *SessionRegistry) *MCPNotifier {
	return &MCPNotifier{mcpServer: mcpServer, sessions: sessions}
}

// NotifyGraphUpdated tells the session editing graphID that a new snapshot
// version exists. Best-effort: returns nil if no session tracks the graph.
func (n *MCPNotifier) NotifyGraphUpdated(_ context.Context, graphID string, payload map[string]any) error {
	sessionID, ok := n.sessions.SessionFor(graphID)
	if !ok {
		return nil
	}
	err := n.mcpServer.SendNotificationToSpecificClient(sessionID, "notifications/message", payload)
	if errors.Is(err, server.ErrSessionNotFound) {
		// Session expired between lookup and send, not an error.
		n.sessions.Remove(sessionID)
		return nil
	}
	return err
}
