package synth

import (
	"context"
	"strings"

	"github.com/eduquest/eduquest/internal/ollama"
)

// Engine is the inference surface backends need, satisfied by *ollama.Client.
type Engine interface {
	Chat(ctx context.Context, model string, messages []ollama.Message, jsonSchema *ollama.Schema) (string, error)
	HasModel(ctx context.Context, name string) bool
}

// input carries one attempt's already-truncated context plus steering hints.
type input struct {
	context    string
	difficulty Difficulty
	focus      string
}

// backend produces a single candidate question of one type.
type backend interface {
	generate(ctx context.Context, in input) (Question, error)
}

// directives renders the optional difficulty and focus hints as prompt
// suffix lines.
func directives(in input) string {
	var b strings.Builder
	if in.difficulty != "" {
		b.WriteString("\nTarget difficulty: ")
		b.WriteString(string(in.difficulty))
		b.WriteString(".")
	}
	if in.focus != "" {
		b.WriteString("\nFocus on: ")
		b.WriteString(in.focus)
		b.WriteString(".")
	}
	return b.String()
}

// firstSentence returns the text up to the first period, used as a cheap
// answer extraction heuristic.
func firstSentence(text string) string {
	head, _, _ := strings.Cut(text, ".")
	if s := strings.TrimSpace(head); s != "" {
		return s
	}
	return "Answer not found"
}

// truncateRunes bounds text to at most limit runes without splitting a
// multi-byte character.
func truncateRunes(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
