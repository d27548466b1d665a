package synth

import (
	"errors"
	"fmt"
)

// ErrEmptyContext is returned when the supplied text is empty or whitespace.
var ErrEmptyContext = errors.New("context cannot be empty")

// UnknownTypeError is returned for a question type outside the valid set.
type UnknownTypeError struct {
	Got string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("invalid question type %q, choose from %v", e.Got, ValidTypes())
}

// InitError reports that the backend for one question type could not be
// initialized. Other types remain usable.
type InitError struct {
	Role  QuestionType
	Model string
}

func (e *InitError) Error() string {
	return fmt.Sprintf("backend for %s unavailable: model %q not found", e.Role, e.Model)
}

// ExhaustedError is returned when the attempt budget produced no valid
// questions.
type ExhaustedError struct {
	Type     QuestionType
	Attempts int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed to generate valid %s questions after %d attempts", e.Type, e.Attempts)
}
