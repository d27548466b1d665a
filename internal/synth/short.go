package synth

import (
	"context"
	"fmt"
	"strings"

	"github.com/eduquest/eduquest/internal/ollama"
)

// shortBackend uses an extractive question-answering prompt: a fixed generic
// query pulls a span from the context, and that span becomes the question
// wording while the answer falls back to the first-sentence heuristic. This
// is a proxy for genuine question generation, kept for its predictability.
type shortBackend struct {
	engine Engine
	model  string
}

const shortQuery = "What is a good question about this text?"

func (b *shortBackend) generate(ctx context.Context, in input) (Question, error) {
	prompt := fmt.Sprintf(
		"Answer the question by quoting a short span from the context, "+
			"verbatim and nothing else.%s\n\nQuestion: %s\n\nContext: %s",
		directives(in), shortQuery, in.context,
	)
	span, err := b.engine.Chat(ctx, b.model, []ollama.Message{
		{Role: "user", Content: prompt},
	}, nil)
	if err != nil {
		return Question{}, fmt.Errorf("short answer extraction: %w", err)
	}

	return Question{
		Text:       strings.TrimSpace(span),
		Answer:     firstSentence(in.context),
		Type:       TypeShort,
		Difficulty: in.difficulty,
	}, nil
}
