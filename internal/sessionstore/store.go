// Package sessionstore persists the webchat visitor session across restarts.
package sessionstore

import (
	"fmt"
	"log/slog"

	"github.com/livedesk/livedesk/internal/logging"
)

// Storage keys for the persisted visitor session.
const (
	KeySessionID   = "webchat_session_id"
	KeyVisitorName = "webchat_visitor_name"
)

// Saved is the persisted (session id, visitor name) pair.
type Saved struct {
	SessionID   string
	VisitorName string
}

// Store reads and writes the visitor session in a Storage.
type Store struct {
	storage Storage
	logger  *slog.Logger
}

// New wraps storage.
func New(storage Storage) *Store {
	return &Store{storage: storage, logger: logging.Store()}
}

// Save writes both values.
func (s *Store) Save(sessionID, visitorName string) error {
	if err := s.storage.Set(KeySessionID, sessionID); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if err := s.storage.Set(KeyVisitorName, visitorName); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.logger.Debug("session saved", "session_id", sessionID)
	return nil
}

// Load returns the saved pair. ok is false unless both keys are present.
func (s *Store) Load() (saved Saved, ok bool) {
	id, hasID := s.storage.Get(KeySessionID)
	name, hasName := s.storage.Get(KeyVisitorName)
	if !hasID || !hasName {
		return Saved{}, false
	}
	return Saved{SessionID: id, VisitorName: name}, true
}

// Clear removes both keys.
func (s *Store) Clear() error {
	if err := s.storage.Remove(KeySessionID, KeyVisitorName); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.logger.Debug("session cleared")
	return nil
}
