package synth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/eduquest/eduquest/internal/ollama"
)

// fakeEngine scripts Chat replies per call and tracks usage.
type fakeEngine struct {
	replies   []string
	err       error
	missing   map[string]bool
	chatCalls int
	lastModel string
	lastBody  string
}

func (f *fakeEngine) Chat(ctx context.Context, model string, messages []ollama.Message, jsonSchema *ollama.Schema) (string, error) {
	f.chatCalls++
	f.lastModel = model
	if len(messages) > 0 {
		f.lastBody = messages[len(messages)-1].Content
	}
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

func (f *fakeEngine) HasModel(ctx context.Context, name string) bool {
	return !f.missing[name]
}

func testModels() Models {
	return Models{
		Generation: "gen-model",
		QA:         "qa-model",
		Entailment: "nli-model",
		Summary:    "sum-model",
	}
}

func newTestSynthesizer(t *testing.T, engine *fakeEngine) *Synthesizer {
	t.Helper()
	return New(context.Background(), engine, testModels(), Options{})
}

const sampleContext = "The sky is blue. Light scattering explains the color."

func TestGenerateEmptyContextSkipsBackends(t *testing.T) {
	engine := &fakeEngine{}
	s := newTestSynthesizer(t, engine)

	_, err := s.Generate(context.Background(), Request{Text: "   \n\t", Type: TypeMCQ, Count: 3})
	if !errors.Is(err, ErrEmptyContext) {
		t.Fatalf("err = %v, want ErrEmptyContext", err)
	}
	if engine.chatCalls != 0 {
		t.Fatalf("backend was called %d times for empty context", engine.chatCalls)
	}
}

func TestGenerateUnknownType(t *testing.T) {
	engine := &fakeEngine{}
	s := newTestSynthesizer(t, engine)

	_, err := s.Generate(context.Background(), Request{Text: sampleContext, Type: "ESSAY", Count: 1})
	var ute *UnknownTypeError
	if !errors.As(err, &ute) {
		t.Fatalf("err = %v, want UnknownTypeError", err)
	}
	for _, qt := range ValidTypes() {
		if !strings.Contains(err.Error(), string(qt)) {
			t.Errorf("error %q does not list %s", err, qt)
		}
	}
}

func TestGenerateMissingBackendBlocksOnlyItsType(t *testing.T) {
	engine := &fakeEngine{
		missing: map[string]bool{"nli-model": true},
		replies: []string{"What color does Rayleigh scattering give the sky?"},
	}
	s := newTestSynthesizer(t, engine)

	_, err := s.Generate(context.Background(), Request{Text: sampleContext, Type: TypeTrueFalse, Count: 1})
	var ie *InitError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v, want InitError", err)
	}
	if ie.Role != TypeTrueFalse {
		t.Fatalf("init error role = %s, want TRUE_FALSE", ie.Role)
	}

	qs, err := s.Generate(context.Background(), Request{Text: sampleContext, Type: TypeMCQ, Count: 1})
	if err != nil {
		t.Fatalf("MCQ generation blocked by unrelated init failure: %v", err)
	}
	if len(qs) != 1 {
		t.Fatalf("got %d questions, want 1", len(qs))
	}
}

func TestGenerateMCQOptions(t *testing.T) {
	engine := &fakeEngine{replies: []string{"What color does Rayleigh scattering give the sky?"}}
	s := newTestSynthesizer(t, engine)

	qs, err := s.Generate(context.Background(), Request{Text: sampleContext, Type: TypeMCQ, Count: 1})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	q := qs[0]
	if q.Type != TypeMCQ {
		t.Fatalf("type = %s", q.Type)
	}
	if q.Answer != "The sky is blue" {
		t.Fatalf("answer = %q, want first sentence", q.Answer)
	}
	if len(q.Options) != 4 || q.Options[0] != q.Answer {
		t.Fatalf("options = %#v, want correct answer first of four", q.Options)
	}
	count := 0
	for _, o := range q.Options {
		if o == q.Answer {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("correct answer appears %d times in options", count)
	}
}

func TestGenerateTrueFalse(t *testing.T) {
	engine := &fakeEngine{replies: []string{`{"label": "entailment"}`}}
	s := newTestSynthesizer(t, engine)

	qs, err := s.Generate(context.Background(), Request{Text: sampleContext, Type: TypeTrueFalse, Count: 1})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	q := qs[0]
	if !strings.HasPrefix(q.Text, "True or False:") {
		t.Fatalf("question %q missing prefix", q.Text)
	}
	if q.Answer != "True" && q.Answer != "False" {
		t.Fatalf("answer = %q", q.Answer)
	}
	if engine.lastModel != "nli-model" {
		t.Fatalf("used model %q, want nli-model", engine.lastModel)
	}
}

func TestGenerateLongReferencesContextPrefix(t *testing.T) {
	engine := &fakeEngine{replies: []string{"A paragraph explaining Rayleigh scattering in the atmosphere in detail."}}
	s := newTestSynthesizer(t, engine)

	long := strings.Repeat("Atmospheric physics covers many scattering effects. ", 10)
	qs, err := s.Generate(context.Background(), Request{Text: long, Type: TypeLong, Count: 1})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	q := qs[0]
	if !strings.HasPrefix(q.Text, "Provide a detailed explanation of: ") {
		t.Fatalf("question %q missing template", q.Text)
	}
	ref := strings.TrimPrefix(q.Text, "Provide a detailed explanation of: ")
	if len([]rune(ref)) != longQuestionPrefixLen {
		t.Fatalf("question references %d chars of context, want %d", len([]rune(ref)), longQuestionPrefixLen)
	}
}

func TestGenerateExhaustedAfterBudget(t *testing.T) {
	engine := &fakeEngine{err: fmt.Errorf("model overloaded")}
	s := newTestSynthesizer(t, engine)

	_, err := s.Generate(context.Background(), Request{Text: sampleContext, Type: TypeMCQ, Count: 2})
	var ee *ExhaustedError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want ExhaustedError", err)
	}
	if ee.Attempts != 4 {
		t.Fatalf("attempts = %d, want 2x count", ee.Attempts)
	}
	if engine.chatCalls != 4 {
		t.Fatalf("backend called %d times, want 4", engine.chatCalls)
	}
}

func TestGenerateSkipsShortQuestions(t *testing.T) {
	engine := &fakeEngine{replies: []string{
		"Too short?",
		"What color does Rayleigh scattering give the daytime sky?",
	}}
	s := newTestSynthesizer(t, engine)

	qs, err := s.Generate(context.Background(), Request{Text: sampleContext, Type: TypeMCQ, Count: 1})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(qs) != 1 || !strings.Contains(qs[0].Text, "Rayleigh") {
		t.Fatalf("quality gate kept wrong question: %#v", qs)
	}
	if engine.chatCalls != 2 {
		t.Fatalf("backend called %d times, want 2", engine.chatCalls)
	}
}

func TestGenerateDeduplicates(t *testing.T) {
	engine := &fakeEngine{replies: []string{
		"What color does Rayleigh scattering give the sky?",
		"what color does rayleigh  scattering give the sky?",
		"Why does the horizon look pale at midday in summer?",
	}}
	s := newTestSynthesizer(t, engine)

	qs, err := s.Generate(context.Background(), Request{Text: sampleContext, Type: TypeMCQ, Count: 2})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("got %d questions, want 2 distinct", len(qs))
	}
	if normalizeQuestion(qs[0].Text) == normalizeQuestion(qs[1].Text) {
		t.Fatalf("duplicate questions kept: %#v", qs)
	}
}

func TestGenerateTruncatesContext(t *testing.T) {
	engine := &fakeEngine{replies: []string{"What does the opening of the document describe in detail?"}}
	s := New(context.Background(), engine, testModels(), Options{ContextLimit: 20})

	_, err := s.Generate(context.Background(), Request{Text: sampleContext, Type: TypeMCQ, Count: 1})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if strings.Contains(engine.lastBody, "scattering") {
		t.Fatalf("prompt carried text past the context limit: %q", engine.lastBody)
	}
}

func TestGenerateWiresDifficultyAndFocus(t *testing.T) {
	engine := &fakeEngine{replies: []string{"What color does Rayleigh scattering give the sky?"}}
	s := newTestSynthesizer(t, engine)

	_, err := s.Generate(context.Background(), Request{
		Text: sampleContext, Type: TypeMCQ, Count: 1,
		Difficulty: DifficultyHard, Focus: "light scattering",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(engine.lastBody, "Hard") {
		t.Fatalf("prompt missing difficulty: %q", engine.lastBody)
	}
	if !strings.Contains(engine.lastBody, "light scattering") {
		t.Fatalf("prompt missing focus: %q", engine.lastBody)
	}
}
