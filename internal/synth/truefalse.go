package synth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/eduquest/eduquest/internal/ollama"
)

// trueFalseBackend runs an entailment-vs-contradiction classification over
// a statement drawn from the context. The predicted label decides the
// True/False answer.
type trueFalseBackend struct {
	engine Engine
	model  string
}

var entailmentSchema = &ollama.Schema{
	Type: "object",
	Properties: map[string]ollama.SchemaProperty{
		"label": {
			Type:        "string",
			Description: "Whether the statement is supported by the text",
			Enum:        []string{"entailment", "contradiction"},
		},
	},
	Required: []string{"label"},
}

func (b *trueFalseBackend) generate(ctx context.Context, in input) (Question, error) {
	statement := firstSentence(in.context)
	prompt := fmt.Sprintf(
		"Does the text entail or contradict the statement?%s\n\nText: %s\n\nStatement: %s",
		directives(in), in.context, statement,
	)
	raw, err := b.engine.Chat(ctx, b.model, []ollama.Message{
		{Role: "user", Content: prompt},
	}, entailmentSchema)
	if err != nil {
		return Question{}, fmt.Errorf("entailment classification: %w", err)
	}

	var verdict struct {
		Label string `json:"label"`
	}
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		return Question{}, fmt.Errorf("parsing entailment verdict: %w", err)
	}

	answer := "False"
	if verdict.Label == "entailment" {
		answer = "True"
	}
	return Question{
		Text:       "True or False: " + statement,
		Answer:     answer,
		Type:       TypeTrueFalse,
		Difficulty: in.difficulty,
	}, nil
}
