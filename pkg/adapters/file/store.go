// Package file implements a filesystem-backed session store. Useful for
// single-instance deployments that need sessions to survive restarts without
// running Redis.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vkarpenko/slotbot/pkg/domain"
)

// Store implements ports.SessionStore on the local filesystem, one JSON file
// per user.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path. If basePath is empty, it
// defaults to ".slotbot/sessions".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".slotbot", "sessions")
	}
	return &Store{BasePath: basePath}
}

// Save persists the session to a JSON file atomically: write to a temp file,
// fsync, then rename over the destination.
func (s *Store) Save(ctx context.Context, userID string, sess *domain.Session) error {
	if userID == "" {
		return fmt.Errorf("userID cannot be empty")
	}

	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure session directory: %w", err)
	}

	destPath := filepath.Join(s.BasePath, userID+".json")

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// The temp file lives in the same directory so the rename stays on one
	// filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+userID+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // still present only if the rename never happened
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file into place: %w", err)
	}

	return nil
}

// Load retrieves the session from its JSON file.
func (s *Store) Load(ctx context.Context, userID string) (*domain.Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("userID cannot be empty")
	}

	filePath := filepath.Join(s.BasePath, userID+".json")

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if sess.Data == nil {
		sess.Data = make(map[string]any)
	}

	return &sess, nil
}

// Delete removes the session file. Deleting a non-existent session is not an
// error.
func (s *Store) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("userID cannot be empty")
	}

	filePath := filepath.Join(s.BasePath, userID+".json")

	err := os.Remove(filePath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}

	return nil
}

// List returns the ids of all stored sessions.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var users []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			name := entry.Name()
			users = append(users, name[:len(name)-len(".json")])
		}
	}

	return users, nil
}
