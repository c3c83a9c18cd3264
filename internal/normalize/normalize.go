package normalize

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"

	"trivia-quiz/internal/domain"
)

// Normalizer turns raw question records into session-ready questions: text
// fields are decoded and stripped of markup, and the answer options are
// shuffled exactly once, at construction. The shuffled order is then fixed
// for the question's lifetime within a session.
type Normalizer struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New builds a Normalizer. Pass a seeded *rand.Rand for deterministic
// shuffles in tests; nil uses a time-based seed.
func New(rnd *rand.Rand) *Normalizer {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Normalizer{rnd: rnd}
}

// Question normalizes a single raw record. Position is the 1-based index the
// caller assigns from batch order. A record missing its correct answer or
// carrying no incorrect answers fails with ErrMalformedQuestion.
func (n *Normalizer) Question(raw domain.RawQuestion, position int) (domain.Question, error) {
	if raw.CorrectAnswer == "" {
		return domain.Question{}, fmt.Errorf("%w: missing correct_answer", domain.ErrMalformedQuestion)
	}
	if len(raw.IncorrectAnswers) == 0 {
		return domain.Question{}, fmt.Errorf("%w: empty incorrect_answers", domain.ErrMalformedQuestion)
	}

	options := make([]domain.AnswerOption, 0, len(raw.IncorrectAnswers)+1)
	for _, text := range raw.IncorrectAnswers {
		options = append(options, domain.AnswerOption{Text: Sanitize(text), Correct: false})
	}
	options = append(options, domain.AnswerOption{Text: Sanitize(raw.CorrectAnswer), Correct: true})

	n.mu.Lock()
	n.rnd.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	n.mu.Unlock()

	return domain.Question{
		Text:          Sanitize(raw.Question),
		Options:       options,
		Position:      position,
		SelectedIndex: -1,
	}, nil
}

// Batch normalizes a whole fetch result, excluding malformed records instead
// of failing the load. Positions are assigned 1..k over the surviving
// questions. The skipped count lets callers log what was dropped.
func (n *Normalizer) Batch(raws []domain.RawQuestion) (questions []domain.Question, skipped int) {
	questions = make([]domain.Question, 0, len(raws))
	for _, raw := range raws {
		q, err := n.Question(raw, len(questions)+1)
		if err != nil {
			skipped++
			continue
		}
		questions = append(questions, q)
	}
	return questions, skipped
}

// Sanitize decodes HTML entities and strips markup from upstream text. The
// source is third-party content rendered into documents, so structural and
// executable markup must never survive; script and style bodies are dropped
// entirely rather than flattened into text.
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skipDepth := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.StartTagToken:
			name, _ := z.TagName()
			if dropContent(string(name)) {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if dropContent(string(name)) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func dropContent(tag string) bool {
	return tag == "script" || tag == "style"
}
