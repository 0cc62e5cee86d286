// Package session holds in-memory conversation histories keyed by an opaque
// id. Histories do not survive process restarts and there is no eviction;
// the turn log's retention settings are the long-term growth control.
package session

import (
	"sync"

	"github.com/AlaeddineMessadi/supertonic/internal/llm"
)

// Store maps conversation ids to ordered message histories. All operations
// are safe for concurrent use. Turn-level serialization is a separate,
// explicit discipline: callers wrap a whole turn in Lock/Unlock so two
// concurrent turns on the same id cannot interleave history mutations or
// double-inject the system prompt.
type Store struct {
	mu       sync.Mutex
	sessions map[string][]llm.Message
	locks    map[string]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string][]llm.Message),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Lock acquires the per-session turn lock, creating it on first use. Lock
// entries are never removed; a deleted conversation keeps its lock so an
// in-flight turn can still release it.
func (s *Store) Lock(id string) {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()
	l.Lock()
}

func (s *Store) Unlock(id string) {
	s.mu.Lock()
	l := s.locks[id]
	s.mu.Unlock()
	if l != nil {
		l.Unlock()
	}
}

// GetOrCreate returns a copy of the session history, creating an empty one
// for an unknown id. The system prompt is injected by the orchestrator, not
// here.
func (s *Store) GetOrCreate(id string) []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		s.sessions[id] = nil
	}
	return append([]llm.Message(nil), s.sessions[id]...)
}

// Get returns a copy of the history without creating the session.
func (s *Store) Get(id string) []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.Message(nil), s.sessions[id]...)
}

func (s *Store) Append(id string, msg llm.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = append(s.sessions[id], msg)
}

func (s *Store) Replace(id string, messages []llm.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = append([]llm.Message(nil), messages...)
}

// Delete clears a session's history. Idempotent.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len reports the number of known sessions; used by introspection handlers.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
