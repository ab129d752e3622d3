package ports

import (
	"context"

	"github.com/vkarpenko/slotbot/pkg/domain"
)

// SessionStore defines the interface for persisting per-user wizard sessions.
// This allows a conversation to survive process restarts.
type SessionStore interface {
	// Save persists the session for a given user ID.
	Save(ctx context.Context, userID string, sess *domain.Session) error

	// Load retrieves the session for a given user ID.
	// Returns domain.ErrSessionNotFound if the user has no session.
	Load(ctx context.Context, userID string) (*domain.Session, error)

	// Delete removes the session for a given user ID.
	Delete(ctx context.Context, userID string) error

	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
}
