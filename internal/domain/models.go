package domain

// RawQuestion is the wire record delivered by a question source.
type RawQuestion struct {
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

// AnswerOption is one selectable answer. Exactly one option per question
// carries Correct=true. Immutable once built.
type AnswerOption struct {
	Text    string `json:"text"`
	Correct bool   `json:"-"`
}

// Question is a session-ready question. Options are shuffled exactly once at
// normalization time and their order is fixed for the question's lifetime.
type Question struct {
	Text     string
	Options  []AnswerOption
	Position int // 1-based index within the session

	SelectedAnswer string
	SelectedIndex  int // -1 until an option is selected
	Confirmed      bool
}

// OptionView is an answer option as exposed to the presentation layer.
// Correct/Incorrect are only populated once the question is confirmed.
type OptionView struct {
	Text      string `json:"text"`
	Selected  bool   `json:"selected"`
	Correct   bool   `json:"correct"`
	Incorrect bool   `json:"incorrect"`
}

// View is the read model the presentation layer renders from. It is a
// snapshot; mutating it has no effect on the session.
type View struct {
	Loading     bool         `json:"loading"`
	NoQuestions bool         `json:"noQuestions"`
	Finished    bool         `json:"finished"`
	Error       string       `json:"error,omitempty"`
	Question    string       `json:"question,omitempty"`
	Options     []OptionView `json:"options,omitempty"`
	Position    int          `json:"position"`
	Total       int          `json:"total"`
	Confirmed   bool         `json:"confirmed"`
	CanAdvance  bool         `json:"canAdvance"`
	Score       int          `json:"score"`
}
