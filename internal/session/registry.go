package session

// Factory builds a session for an ID the registry has not seen.
type Factory func(id string) *Session

// Registry abstracts how live sessions are tracked (in-memory, Redis, etc).
// One session exists per connected presentation client.
type Registry interface {
	GetOrCreate(id string, create Factory) *Session
	Get(id string) (*Session, bool)
	Delete(id string)
}
