// Package rag exposes the caller-facing ingest and ask operations.
package rag

import "sync"

// Session carries the namespace of the last successful ingestion so that a
// caller can ask questions without naming the repository again. It is safe
// for concurrent use.
type Session struct {
	mu              sync.RWMutex
	activeNamespace string
}

// NewSession returns a session with no active namespace.
func NewSession() *Session {
	return &Session{}
}

// ActiveNamespace returns "" until an ingestion succeeds.
func (s *Session) ActiveNamespace() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeNamespace
}

func (s *Session) setActive(namespace string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeNamespace = namespace
}

// forget clears the active namespace if it is namespace.
func (s *Session) forget(namespace string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeNamespace == namespace {
		s.activeNamespace = ""
	}
}
