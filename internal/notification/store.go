package notification

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// API is the slice of the backend the store needs. internal/api provides
// the production implementation.
type API interface {
	List(ctx context.Context, roleID, userID string) ([]Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}

// Store holds the authoritative in-memory view of the current user's
// notifications for the lifetime of a session. Entries are ordered
// most-recent-first. Entries are never removed on read, only flagged.
type Store struct {
	mu    sync.RWMutex
	items []Notification

	api   API
	dedup bool
	log   *zap.Logger
}

type StoreOption func(*Store)

// WithDedup drops push arrivals whose id is already present. Off by
// default: the production feed can deliver a pushed copy of a row the
// initial load already returned, and the observed behavior keeps both.
func WithDedup(on bool) StoreOption {
	return func(s *Store) { s.dedup = on }
}

func NewStore(api API, log *zap.Logger, opts ...StoreOption) *Store {
	s := &Store{api: api, log: log}
	for _, o := range opts {
		o(s)
	}
	return s
}

// LoadInitial fetches the role/user scoped list and replaces the store
// contents wholesale. On failure prior contents are left untouched and
// the error is returned to the caller.
func (s *Store) LoadInitial(ctx context.Context, roleID, userID string) error {
	fetched, err := s.api.List(ctx, roleID, userID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.items = fetched
	s.mu.Unlock()
	s.log.Debug("notification store replaced", zap.Int("count", len(fetched)))
	return nil
}

// OnPush prepends a newly arrived, already-normalized notification.
func (s *Store) OnPush(n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dedup {
		for _, existing := range s.items {
			if existing.ID == n.ID {
				s.log.Debug("duplicate push dropped", zap.String("id", n.ID))
				return
			}
		}
	}
	s.items = append([]Notification{n}, s.items...)
}

// MarkRead acknowledges read status with the backend and, only on
// success, flips the matching entry's Read flag in place. There is no
// optimistic flip to roll back.
func (s *Store) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.api.MarkRead(ctx, id, userID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Read = true
		}
	}
	return nil
}

// UnreadCount is recomputed on demand, not cached.
func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, it := range s.items {
		if !it.Read {
			n++
		}
	}
	return n
}

// Snapshot returns a copy of the current entries, most recent first.
func (s *Store) Snapshot() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Notification, len(s.items))
	copy(out, s.items)
	return out
}
