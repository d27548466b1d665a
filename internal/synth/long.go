package synth

import (
	"context"
	"fmt"
	"strings"

	"github.com/eduquest/eduquest/internal/ollama"
)

// longBackend produces a long-form answer via summarization. The question
// wording is templated from the opening of the context.
type longBackend struct {
	engine Engine
	model  string
}

// longQuestionPrefixLen bounds how much of the context appears in the
// templated question wording.
const longQuestionPrefixLen = 100

func (b *longBackend) generate(ctx context.Context, in input) (Question, error) {
	prompt := fmt.Sprintf(
		"Summarize the following text in a detailed paragraph of a few "+
			"sentences.%s\n\nText: %s",
		directives(in), in.context,
	)
	summary, err := b.engine.Chat(ctx, b.model, []ollama.Message{
		{Role: "user", Content: prompt},
	}, nil)
	if err != nil {
		return Question{}, fmt.Errorf("summarization: %w", err)
	}

	return Question{
		Text:       "Provide a detailed explanation of: " + truncateRunes(in.context, longQuestionPrefixLen),
		Answer:     strings.TrimSpace(summary),
		Type:       TypeLong,
		Difficulty: in.difficulty,
	}, nil
}
