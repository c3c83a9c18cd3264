package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/source"
)

func sampleRecords() []domain.RawQuestion {
	return []domain.RawQuestion{
		{
			Question:         "What is 2 + 2?",
			CorrectAnswer:    "4",
			IncorrectAnswers: []string{"3", "5"},
		},
	}
}

func TestBatchCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	upstream := &countingSource{inner: source.NewStatic(sampleRecords())}
	cache := NewBatchCache(client, upstream, time.Minute)

	records, err := cache.Fetch(context.Background(), 1)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(records) != 1 || records[0].CorrectAnswer != "4" {
		t.Fatalf("unexpected batch: %+v", records)
	}
	if upstream.calls != 1 {
		t.Fatalf("expected upstream called once, got %d", upstream.calls)
	}
	if !mr.Exists("trivia:batch:1") {
		t.Fatalf("expected batch key in redis")
	}

	// Second call should hit redis, upstream not incremented.
	if _, err := cache.Fetch(context.Background(), 1); err != nil {
		t.Fatalf("fetch 2: %v", err)
	}
	if upstream.calls != 1 {
		t.Fatalf("expected cache hit, upstream calls=%d", upstream.calls)
	}
}

func TestBatchCacheRefetchesAfterExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	upstream := &countingSource{inner: source.NewStatic(sampleRecords())}
	cache := NewBatchCache(client, upstream, time.Minute)

	_, _ = cache.Fetch(context.Background(), 1)
	mr.FastForward(2 * time.Minute)
	_, _ = cache.Fetch(context.Background(), 1)
	if upstream.calls != 2 {
		t.Fatalf("expected refetch after expiry, got %d calls", upstream.calls)
	}
}

func TestBatchCacheCollapsesConcurrentFetches(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	upstream := &gatedCountingSource{
		inner:   source.NewStatic(sampleRecords()),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	cache := NewBatchCache(client, upstream, time.Minute)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Fetch(context.Background(), 1)
			errs <- err
		}()
	}

	// Hold the upstream open until the first caller is inside it; the rest
	// either join the in-flight call or read the freshly written redis key.
	<-upstream.entered
	close(upstream.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
	}
	if got := upstream.callCount(); got != 1 {
		t.Fatalf("expected concurrent fetches to collapse into one upstream call, got %d", got)
	}
}

type countingSource struct {
	inner *source.Static
	calls int
}

func (s *countingSource) Fetch(ctx context.Context, amount int) ([]domain.RawQuestion, error) {
	s.calls++
	return s.inner.Fetch(ctx, amount)
}

// gatedCountingSource blocks every fetch until release closes and signals
// the first arrival on entered.
type gatedCountingSource struct {
	inner   *source.Static
	entered chan struct{}
	release chan struct{}

	mu    sync.Mutex
	calls int
}

func (s *gatedCountingSource) Fetch(ctx context.Context, amount int) ([]domain.RawQuestion, error) {
	s.mu.Lock()
	s.calls++
	if s.calls == 1 {
		close(s.entered)
	}
	s.mu.Unlock()
	<-s.release
	return s.inner.Fetch(ctx, amount)
}

func (s *gatedCountingSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
