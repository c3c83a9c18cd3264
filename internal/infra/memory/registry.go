package memory

import (
	"sync"

	"trivia-quiz/internal/session"
)

// Registry is the in-memory implementation of session.Registry.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*session.Session),
	}
}

func (r *Registry) GetOrCreate(id string, create session.Factory) *session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s
	}
	s := create(id)
	r.sessions[id] = s
	return s
}

func (r *Registry) Get(id string) (*session.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}
