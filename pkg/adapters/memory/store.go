package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/vkarpenko/slotbot/pkg/domain"
)

// Store implements ports.SessionStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Session
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Session),
	}
}

// clone copies a session through a JSON round trip. Scratchpad values can be
// arbitrarily nested, so a field-by-field copy would still share the inner
// maps and slices; the round trip also gives them the same decoded shapes a
// persistent store would.
func clone(sess *domain.Session) (*domain.Session, error) {
	raw, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("failed to clone session: %w", err)
	}
	var copied domain.Session
	if err := json.Unmarshal(raw, &copied); err != nil {
		return nil, fmt.Errorf("failed to clone session: %w", err)
	}
	return &copied, nil
}

// Save persists the session in memory.
func (s *Store) Save(ctx context.Context, userID string, sess *domain.Session) error {
	copied, err := clone(sess)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[userID] = copied
	return nil
}

// Load retrieves the session from memory.
func (s *Store) Load(ctx context.Context, userID string) (*domain.Session, error) {
	s.mu.RLock()
	sess, ok := s.data[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	// Copy on read so the caller cannot mutate store state by pointer.
	return clone(sess)
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, userID)
	return nil
}

// List returns the IDs of stored sessions.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]string, 0, len(s.data))
	for id := range s.data {
		users = append(users, id)
	}
	return users, nil
}
