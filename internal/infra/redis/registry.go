package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"trivia-quiz/internal/session"
)

// Registry is a Redis-aware implementation of session.Registry.
// Notes:
//   - Sessions themselves stay in a local map; the state machine is an
//     in-process object with subscriber channels.
//   - Redis marks session liveness with a TTL key so an operator can see
//     active sessions across instances.
type Registry struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*session.Session
}

func NewRegistry(client *redis.Client, ttl time.Duration) *Registry {
	return &Registry{
		client:   client,
		ttl:      ttl,
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
	// best-effort liveness marker
	_ = r.client.Set(context.Background(), r.key(id), "1", r.ttl).Err()
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
	if _, ok := r.sessions[id]; !ok {
		return
	}
	delete(r.sessions, id)
	_ = r.client.Del(context.Background(), r.key(id)).Err()
}

func (r *Registry) key(id string) string {
	return "trivia:session:" + id
}
