// Package session holds each user's in-flight order draft. Drafts are
// partitioned by user id; all read-modify-write of one user's draft runs
// under that user's lock, so two updates from the same user never interleave.
package session

import (
	"sync"

	"order-intake-bot/internal/model"
)

type Store struct {
	mu      sync.Mutex
	entries map[int64]*entry
}

type entry struct {
	mu    sync.Mutex
	draft model.Draft
}

func NewStore() *Store {
	return &Store{
		entries: map[int64]*entry{},
	}
}

// Do runs fn with exclusive access to the user's draft. The draft pointer is
// only valid inside fn; an empty draft is created on first use.
func (s *Store) Do(userID int64, fn func(d *model.Draft) error) error {
	e := s.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(&e.draft)
}

// Snapshot returns a copy of the user's current draft.
func (s *Store) Snapshot(userID int64) model.Draft {
	var d model.Draft
	_ = s.Do(userID, func(cur *model.Draft) error {
		d = *cur
		return nil
	})
	return d
}

func (s *Store) entry(userID int64) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[userID]
	if !ok {
		e = &entry{}
		s.entries[userID] = e
	}
	return e
}
