package domain

import "errors"

var (
	// ErrSourceUnavailable indicates the question source could not deliver a
	// batch (network failure, non-success status, unparseable body).
	ErrSourceUnavailable = errors.New("question source unavailable")
	// ErrMalformedQuestion indicates a single record failed normalization and
	// was excluded from the batch.
	ErrMalformedQuestion = errors.New("malformed question record")
	// ErrNoQuestions indicates a load produced zero usable questions.
	ErrNoQuestions = errors.New("no usable questions in batch")
)
