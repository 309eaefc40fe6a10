package mcp

import "sync"

// SessionRegistry maps graph IDs to the MCP session last working on them.
// Populated automatically when a client calls any tool with a graph_id.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]string // graphID → sessionID
}

// NewSessionRegistry creates a new empty SessionRegistry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]string)}
}

// Register associates a graph ID with a session ID. A graph already bound
// to another session is rebound (last editor wins).
func (r *SessionRegistry) Register(graphID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[graphID] = sessionID
}

// SessionFor returns the session ID working on the given graph, if any.
func (r *SessionRegistry) SessionFor(graphID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sid, ok := r.sessions[graphID]
	return sid, ok
}

// Remove deletes all graph mappings for the given session ID.
// Called when a session disconnects.
func (r *SessionRegistry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for gid, sid := range r.sessions {
		if sid == sessionID {
			delete(r.sessions, gid)
		}
	}
}
