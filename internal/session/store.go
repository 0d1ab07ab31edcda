package session

import (
	"context"
	"sync"
)

// Store maps session ids to their latest ProgressState snapshot. Put installs
// a whole snapshot atomically; readers never observe a partially written
// record. Writers to different sessions do not contend beyond the map itself.
type Store interface {
	Put(ctx context.Context, sessionID string, state ProgressState) error
	Get(ctx context.Context, sessionID string) (ProgressState, bool, error)
}

// MemoryStore is the in-process Store implementation.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]ProgressState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]ProgressState),
	}
}

// Put replaces the snapshot for sessionID.
func (s *MemoryStore) Put(ctx context.Context, sessionID string, state ProgressState) error {
	snapshot := state.clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = snapshot
	return nil
}

// Get returns the latest snapshot for sessionID, or ok=false when the session
// is unknown.
func (s *MemoryStore) Get(ctx context.Context, sessionID string) (ProgressState, bool, error) {
	s.mu.RLock()
	state, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok {
		return ProgressState{}, false, nil
	}
	return state.clone(), true, nil
}
