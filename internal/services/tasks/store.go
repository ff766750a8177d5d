// Package tasks keeps the latest job queue listing pushed by the engine.
package tasks

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/prinde/internal/models"
)

// Snapshot is the stored listing and when it arrived. Zero UpdatedAt means none yet.
type Snapshot struct {
	models.TasksPayload
	UpdatedAt time.Time `json:"updated_at"`
}

// Store holds the most recent tasks payload.
type Store struct {
	mu      sync.RWMutex
	current Snapshot
	now     func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Replace decodes a tasks payload and replaces the stored one.
func (s *Store) Replace(raw json.RawMessage) (Snapshot, error) {
	var payload models.TasksPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Snapshot{}, fmt.Errorf("tasks payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Snapshot{TasksPayload: payload, UpdatedAt: s.now()}
	return s.current, nil
}

// Clear forgets the stored listing.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Snapshot{}
}

// Get returns the stored listing.
func (s *Store) Get() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}
