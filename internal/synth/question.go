// Package synth generates study questions from extracted document text.
// Each question type is served by its own inference backend over a shared
// Ollama engine; a retry loop with a quality gate filters weak output.
package synth

// QuestionType is the closed set of supported question kinds.
type QuestionType string

const (
	TypeMCQ       QuestionType = "MCQ"
	TypeShort     QuestionType = "SHORT"
	TypeTrueFalse QuestionType = "TRUE_FALSE"
	TypeLong      QuestionType = "LONG"
)

// ValidTypes returns all supported question types in a stable order.
func ValidTypes() []QuestionType {
	return []QuestionType{TypeMCQ, TypeShort, TypeTrueFalse, TypeLong}
}

// Difficulty is an optional hint steering prompt construction.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Question is a single generated study question. For MCQ the first option
// is always the correct answer; callers shuffle for presentation.
type Question struct {
	Text       string       `json:"question"`
	Answer     string       `json:"answer"`
	Type       QuestionType `json:"type"`
	Options    []string     `json:"options,omitempty"`
	Difficulty Difficulty   `json:"difficulty,omitempty"`
}

// Request describes one generation call.
type Request struct {
	Text       string
	Type       QuestionType
	Count      int
	Difficulty Difficulty
	Focus      string
}
