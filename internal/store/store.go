// Package store holds the latest status snapshot received from the server.
package store

import (
	"sync"

	"github.com/park285/cheese-board-client/internal/board"
)

// Snapshot is a read-only copy of the held status plus the replace counter
// it was taken at.
type Snapshot struct {
	board.StatusSnapshot
	Version uint64
}

type subscriberEntry struct {
	id       int
	callback func(Snapshot)
}

// Store owns the current status. It is only ever replaced as a whole.
type Store struct {
	mu      sync.RWMutex
	current board.StatusSnapshot
	version uint64
	loaded  bool

	subM   sync.RWMutex
	subs   []subscriberEntry
	nextID int
}

func New() *Store {
	return &Store{}
}

// Replace overwrites the held status and notifies every subscriber before
// returning, in subscription order.
func (s *Store) Replace(snap board.StatusSnapshot) Snapshot {
	s.mu.Lock()
	s.current = snap.Clone()
	s.version++
	s.loaded = true
	out := Snapshot{StatusSnapshot: s.current.Clone(), Version: s.version}
	s.mu.Unlock()

	s.subM.RLock()
	subs := make([]subscriberEntry, len(s.subs))
	copy(subs, s.subs)
	s.subM.RUnlock()
	for _, entry := range subs {
		entry.callback(Snapshot{StatusSnapshot: out.Clone(), Version: out.Version})
	}
	return out
}

// Snapshot returns a copy of the held status; ok is false until the first Replace.
func (s *Store) Snapshot() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return Snapshot{}, false
	}
	return Snapshot{StatusSnapshot: s.current.Clone(), Version: s.version}, true
}

// Subscribe registers a callback for every Replace and returns its id.
func (s *Store) Subscribe(cb func(Snapshot)) int {
	if cb == nil {
		return 0
	}
	s.subM.Lock()
	defer s.subM.Unlock()
	s.nextID++
	s.subs = append(s.subs, subscriberEntry{id: s.nextID, callback: cb})
	return s.nextID
}

func (s *Store) Unsubscribe(id int) {
	s.subM.Lock()
	defer s.subM.Unlock()
	for i, entry := range s.subs {
		if entry.id == id {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}
