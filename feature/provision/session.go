package provision

import (
	"sync"
	"time"

	"schema-manager/core/dialect"
	"schema-manager/core/reconcile"
)

// Session is one isolated worker: its own execution context bound to one
// database. Calls on a session are serialized.
type Session struct {
	ID        string    `json:"id"`
	Database  string    `json:"database"`
	CreatedAt time.Time `json:"created_at"`

	mu      sync.Mutex
	manager *reconcile.Manager
	dialect dialect.Dialect
}

// Snapshot returns the cache state of the session.
func (s *Session) Snapshot() reconcile.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager.Context().Snapshot()
}
