// Package prefs abstracts where a user's notification preferences live:
// the remote preferences table for signed-in users, process memory for
// anonymous devices (the app-side analog of local device storage).
package prefs

import (
	"context"
	"sync"

	"github.com/plazafinder/mall-radar/internal/domain"
)

// Store reads and writes preferences for one owner ID (a user ID or an
// anonymous device ID).
type Store interface {
	Get(ctx context.Context, ownerID string) (domain.Preferences, error)
	Put(ctx context.Context, ownerID string, p domain.Preferences) error
}

// MemoryStore keeps preferences in process memory, keyed by device ID.
// Unknown devices read defaults.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]domain.Preferences
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]domain.Preferences)}
}

func (s *MemoryStore) Get(_ context.Context, ownerID string) (domain.Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.entries[ownerID]; ok {
		return p, nil
	}
	return domain.DefaultPreferences(), nil
}

func (s *MemoryStore) Put(_ context.Context, ownerID string, p domain.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[ownerID] = p
	return nil
}
