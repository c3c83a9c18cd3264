package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"trivia-quiz/internal/normalize"
	"trivia-quiz/internal/session"
	"trivia-quiz/internal/source"
)

func testFactory(id string) *session.Session {
	return session.New(id, session.Config{Count: 1}, source.NewStatic(nil), normalize.New(nil), zerolog.Nop())
}

func TestRegistrySetsAndClearsLivenessKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	registry := NewRegistry(client, time.Minute)

	_ = registry.GetOrCreate("s1", testFactory)
	if !mr.Exists("trivia:session:s1") {
		t.Fatalf("expected liveness key to be set")
	}

	registry.Delete("s1")
	if mr.Exists("trivia:session:s1") {
		t.Fatalf("expected liveness key to be removed")
	}
}
