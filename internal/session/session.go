package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/normalize"
)

// Source delivers raw question batches (HTTP trivia API, local bank, etc).
type Source interface {
	Fetch(ctx context.Context, amount int) ([]domain.RawQuestion, error)
}

// Config carries the per-session quiz options.
type Config struct {
	// Count is how many questions to request per load.
	Count int
	// AllowSkip permits advancing past an unconfirmed question. The default
	// (strict) policy rejects an advance until the current answer is
	// confirmed; the lenient variant is an explicit choice, never implied.
	AllowSkip bool
}

// Session is the quiz state machine: an ordered question batch, the current
// position, per-question answer/confirmation state, and the running score.
// All mutations are serialized under one mutex; the only concurrency beyond
// caller intents is the load goroutine, which is fenced by a generation
// counter so a restart supersedes (never races) an in-flight load.
type Session struct {
	id     string
	cfg    Config
	source Source
	norm   *normalize.Normalizer
	log    zerolog.Logger

	mu          sync.RWMutex
	questions   []domain.Question
	current     int
	score       int
	loading     bool
	noQuestions bool
	lastErr     string
	gen         int
	subscribers map[chan domain.View]struct{}
}

// New builds a session in the LOADING state. Call LoadInitial exactly once
// afterwards to populate it.
func New(id string, cfg Config, src Source, norm *normalize.Normalizer, log zerolog.Logger) *Session {
	if cfg.Count <= 0 {
		cfg.Count = 5
	}
	return &Session{
		id:          id,
		cfg:         cfg,
		source:      src,
		norm:        norm,
		log:         log,
		loading:     true,
		subscribers: make(map[chan domain.View]struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// LoadInitial fetches and normalizes the first question batch. Invoked once
// at session creation; Restart uses the same path.
func (s *Session) LoadInitial(ctx context.Context) error {
	return s.load(ctx)
}

// Restart discards all question state and re-fetches a fresh batch. Score
// and position reset to zero. If a previous load is still in flight its
// result is discarded when it lands, not merged.
func (s *Session) Restart(ctx context.Context) error {
	return s.load(ctx)
}

func (s *Session) load(ctx context.Context) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.loading = true
	s.noQuestions = false
	s.lastErr = ""
	s.questions = nil
	s.current = 0
	s.score = 0
	s.broadcastLocked()
	s.mu.Unlock()

	raws, err := s.source.Fetch(ctx, s.cfg.Count)

	var questions []domain.Question
	var skipped int
	if err == nil {
		questions, skipped = s.norm.Batch(raws)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		// Superseded by a newer restart while we were fetching.
		return nil
	}
	if err != nil {
		s.lastErr = err.Error()
		s.log.Warn().Str("session", s.id).Err(err).Msg("question batch load failed")
		s.broadcastLocked()
		return err
	}
	if skipped > 0 {
		s.log.Warn().Str("session", s.id).Int("skipped", skipped).Msg("excluded malformed question records")
	}
	s.questions = questions
	s.loading = false
	s.noQuestions = len(questions) == 0
	s.broadcastLocked()
	if s.noQuestions {
		return domain.ErrNoQuestions
	}
	return nil
}

// SelectAnswer records the user's pick on the current question. Re-selection
// before confirmation is always allowed; after confirmation, or with empty
// text, or when no question is current, it is a silent no-op. The matched
// option's index is resolved here so correctness later reads the selected
// option's flag rather than re-deriving by text (duplicate option texts must
// not make the outcome order-dependent).
func (s *Session) SelectAnswer(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.currentLocked()
	if q == nil || q.Confirmed || text == "" {
		return
	}
	for i, opt := range q.Options {
		if opt.Text == text {
			q.SelectedAnswer = text
			q.SelectedIndex = i
			s.broadcastLocked()
			return
		}
	}
	// Text matching no option: the presentation layer should never emit it,
	// but the session cannot trust the caller.
}

// ConfirmAnswer locks in the current selection and scores it. A no-op with
// nothing selected or when already confirmed, so the score increment happens
// exactly once per question.
func (s *Session) ConfirmAnswer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.currentLocked()
	if q == nil || q.Confirmed || q.SelectedAnswer == "" {
		return
	}
	q.Confirmed = true
	if q.SelectedIndex >= 0 && q.Options[q.SelectedIndex].Correct {
		s.score++
	}
	s.broadcastLocked()
}

// Advance moves to the next question. Rejected while the current question is
// unconfirmed (unless AllowSkip), while loading, and once finished.
func (s *Session) Advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading || s.noQuestions || s.current >= len(s.questions) {
		return
	}
	if !s.questions[s.current].Confirmed && !s.cfg.AllowSkip {
		return
	}
	s.current++
	s.broadcastLocked()
}

// currentLocked returns the current question, or nil while loading, in
// NO_QUESTIONS, or finished.
func (s *Session) currentLocked() *domain.Question {
	if s.loading || s.noQuestions || s.current >= len(s.questions) {
		return nil
	}
	return &s.questions[s.current]
}

// View returns a snapshot of the session for rendering.
func (s *Session) View() domain.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel receiving a view snapshot on every state
// change, primed with the current state. The caller must invoke the returned
// cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.View, func()) {
	ch := make(chan domain.View, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	// Prime while still holding the lock: a broadcast landing between the
	// registration and the primed send would otherwise queue a fresher view
	// behind this stale one. The channel is fresh and buffered, so this
	// cannot block.
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() {
	view := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- view:
		default:
			// Slow subscriber: drop its stale pending snapshot so the latest
			// state always wins.
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
}

func (s *Session) snapshotLocked() domain.View {
	view := domain.View{
		Loading:     s.loading,
		NoQuestions: s.noQuestions,
		Error:       s.lastErr,
		Total:       len(s.questions),
		Score:       s.score,
	}
	if s.loading || s.noQuestions {
		return view
	}
	if s.current >= len(s.questions) {
		view.Finished = true
		view.Position = len(s.questions)
		return view
	}

	q := s.questions[s.current]
	view.Question = q.Text
	view.Position = q.Position
	view.Confirmed = q.Confirmed
	view.CanAdvance = q.Confirmed || s.cfg.AllowSkip
	view.Options = make([]domain.OptionView, len(q.Options))
	for i, opt := range q.Options {
		ov := domain.OptionView{
			Text:     opt.Text,
			Selected: i == q.SelectedIndex,
		}
		// Correctness is revealed to the presentation layer only on
		// confirmation.
		if q.Confirmed {
			ov.Correct = opt.Correct
			ov.Incorrect = ov.Selected && !opt.Correct
		}
		view.Options[i] = ov
	}
	return view
}
