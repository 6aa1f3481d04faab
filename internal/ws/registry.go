package ws

import "sync"

// Registry tracks which connections belong to which sessions. A
// connection may be a member of several sessions at once, so a reverse
// index is kept for disconnect cleanup.
type Registry struct {
	mu sync.RWMutex
	// sessionID -> connectionID -> connection
	sessions map[string]map[string]*Connection
	// connectionID -> set of sessionIDs
	members map[string]map[string]bool
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]map[string]*Connection),
		members:  make(map[string]map[string]bool),
	}
}

// Join adds the connection to a session's broadcast set. Idempotent.
func (r *Registry) Join(sessionID string, conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sessions[sessionID] == nil {
		r.sessions[sessionID] = make(map[string]*Connection)
	}
	r.sessions[sessionID][conn.ID()] = conn

	if r.members[conn.ID()] == nil {
		r.members[conn.ID()] = make(map[string]bool)
	}
	r.members[conn.ID()][sessionID] = true
}

// Leave removes the connection from one session. Empty maps are dropped
// so long-running servers do not accumulate dead sessions.
func (r *Registry) Leave(sessionID string, conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(sessionID, conn.ID())
}

func (r *Registry) leaveLocked(sessionID, connID string) {
	if conns, ok := r.sessions[sessionID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.sessions, sessionID)
		}
	}
	if sessions, ok := r.members[connID]; ok {
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(r.members, connID)
		}
	}
}

// LeaveAll removes the connection from every session it joined and
// returns those session IDs so the caller can announce the departure.
func (r *Registry) LeaveAll(conn *Connection) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := r.members[conn.ID()]
	ids := make([]string, 0, len(sessions))
	for sessionID := range sessions {
		ids = append(ids, sessionID)
	}
	for _, sessionID := range ids {
		r.leaveLocked(sessionID, conn.ID())
	}
	return ids
}

// Connections snapshots a session's broadcast set.
func (r *Registry) Connections(sessionID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Connection, 0, len(r.sessions[sessionID]))
	for _, conn := range r.sessions[sessionID] {
		conns = append(conns, conn)
	}
	return conns
}

// Stats reports registry size for the health endpoint.
func (r *Registry) Stats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return map[string]int{
		"active_sessions":   len(r.sessions),
		"total_connections": len(r.members),
	}
}
