package catalog

import (
	"errors"
	"os"
	"sync"
	"time"

	appLog "raidcal/internal/log"
)

// Store holds the current catalog snapshot loaded from an ICS file on disk.
// Reload swaps the snapshot atomically; readers always see a consistent
// catalog. A failed reload keeps the previous snapshot so one bad write to
// the catalog file never blanks the running service.
type Store struct {
	path string

	mu       sync.RWMutex
	events   []Event
	loadedAt time.Time
}

// NewStore creates a Store for the given catalog file path. The catalog is
// empty until the first Reload.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Reload re-reads and re-parses the catalog file. On error the previous
// snapshot stays in place and the error is returned for the caller to log.
func (s *Store) Reload() error {
	if s.path == "" {
		return errors.New("catalog path is empty")
	}

	body, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	events, err := Parse(body)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.events = events
	s.loadedAt = time.Now()
	s.mu.Unlock()

	appLog.Info("catalog reloaded", "path", s.path, "event_count", len(events))
	return nil
}

// Events returns a copy of the current snapshot.
func (s *Store) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Find looks up an event by UID in the current snapshot.
func (s *Store) Find(uid string) (Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ev := range s.events {
		if ev.UID == uid {
			return ev, true
		}
	}
	return Event{}, false
}

// LoadedAt reports when the current snapshot was loaded. Zero before the
// first successful Reload.
func (s *Store) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}
