package synth

import (
	"context"
	"fmt"
	"strings"

	"github.com/eduquest/eduquest/internal/ollama"
)

// distractorPool supplies the fixed wrong answers appended to every MCQ.
var distractorPool = []string{
	"None of the above",
	"All of the above",
	"The text doesn't say",
}

// mcqBackend asks a text-to-text generation model for the question wording
// and derives the answer from the context itself.
type mcqBackend struct {
	engine Engine
	model  string
}

func (b *mcqBackend) generate(ctx context.Context, in input) (Question, error) {
	prompt := fmt.Sprintf(
		"Generate a single multiple choice question about the following text. "+
			"Reply with only the question, no options and no answer.%s\n\nText: %s",
		directives(in), in.context,
	)
	text, err := b.engine.Chat(ctx, b.model, []ollama.Message{
		{Role: "user", Content: prompt},
	}, nil)
	if err != nil {
		return Question{}, fmt.Errorf("mcq generation: %w", err)
	}

	answer := firstSentence(in.context)
	options := make([]string, 0, len(distractorPool)+1)
	options = append(options, answer)
	for _, d := range distractorPool {
		// The correct answer must appear exactly once.
		if !strings.EqualFold(d, answer) {
			options = append(options, d)
		}
	}

	return Question{
		Text:       strings.TrimSpace(text),
		Answer:     answer,
		Type:       TypeMCQ,
		Options:    options,
		Difficulty: in.difficulty,
	}, nil
}
