package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Models names the Ollama model filling each backend role.
type Models struct {
	Generation string // MCQ question wording
	QA         string // SHORT answer-span extraction
	Entailment string // TRUE_FALSE classification
	Summary    string // LONG answers
}

// Options tunes the synthesizer. Zero values fall back to defaults.
type Options struct {
	// ContextLimit bounds how many characters of the source text reach a
	// backend. Generation always reads from the beginning of the text.
	ContextLimit int
	// AttemptTimeout bounds each individual backend call.
	AttemptTimeout time.Duration
	Logger         *slog.Logger
}

const (
	defaultContextLimit   = 1000
	defaultAttemptTimeout = 30 * time.Second
)

// Synthesizer routes generation requests to per-type backends and enforces
// the retry and quality policy around them.
type Synthesizer struct {
	backends map[QuestionType]backend
	initErrs map[QuestionType]error

	contextLimit   int
	attemptTimeout time.Duration
	logger         *slog.Logger
}

// New builds a Synthesizer over the given engine. Each role's model is
// probed once; a missing model records an init error that blocks only its
// own question type.
func New(ctx context.Context, engine Engine, models Models, opts Options) *Synthesizer {
	if opts.ContextLimit <= 0 {
		opts.ContextLimit = defaultContextLimit
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = defaultAttemptTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Synthesizer{
		backends:       make(map[QuestionType]backend),
		initErrs:       make(map[QuestionType]error),
		contextLimit:   opts.ContextLimit,
		attemptTimeout: opts.AttemptTimeout,
		logger:         opts.Logger,
	}

	roles := []struct {
		qt      QuestionType
		model   string
		backend backend
	}{
		{TypeMCQ, models.Generation, &mcqBackend{engine: engine, model: models.Generation}},
		{TypeShort, models.QA, &shortBackend{engine: engine, model: models.QA}},
		{TypeTrueFalse, models.Entailment, &trueFalseBackend{engine: engine, model: models.Entailment}},
		{TypeLong, models.Summary, &longBackend{engine: engine, model: models.Summary}},
	}
	for _, r := range roles {
		if r.model == "" || !engine.HasModel(ctx, r.model) {
			s.initErrs[r.qt] = &InitError{Role: r.qt, Model: r.model}
			s.logger.Warn("question backend unavailable", "type", r.qt, "model", r.model)
			continue
		}
		s.backends[r.qt] = r.backend
	}
	return s
}

// Generate produces up to req.Count valid questions in first-valid-first
// order, spending at most twice that many backend attempts.
func (s *Synthesizer) Generate(ctx context.Context, req Request) ([]Question, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyContext
	}
	if _, known := s.backendFor(req.Type); !known {
		return nil, &UnknownTypeError{Got: string(req.Type)}
	}
	if req.Count <= 0 {
		return nil, errors.New("count must be positive")
	}
	if err := s.initErrs[req.Type]; err != nil {
		return nil, err
	}
	b := s.backends[req.Type]

	in := input{
		context:    truncateRunes(req.Text, s.contextLimit),
		difficulty: req.Difficulty,
		focus:      req.Focus,
	}

	maxAttempts := req.Count * 2
	questions := make([]Question, 0, req.Count)
	seen := make(map[string]bool)
	for attempt := 1; attempt <= maxAttempts && len(questions) < req.Count; attempt++ {
		q, err := s.attempt(ctx, b, in)
		if err != nil {
			s.logger.Warn("generation attempt failed",
				"type", req.Type, "attempt", attempt, "error", err)
			continue
		}
		if !validQuestion(q) {
			s.logger.Debug("discarding low-quality question",
				"type", req.Type, "attempt", attempt)
			continue
		}
		key := normalizeQuestion(q.Text)
		if seen[key] {
			continue
		}
		seen[key] = true
		questions = append(questions, q)
	}

	if len(questions) == 0 {
		return nil, &ExhaustedError{Type: req.Type, Attempts: maxAttempts}
	}
	return questions, nil
}

func (s *Synthesizer) attempt(ctx context.Context, b backend, in input) (Question, error) {
	ctx, cancel := context.WithTimeout(ctx, s.attemptTimeout)
	defer cancel()
	return b.generate(ctx, in)
}

func (s *Synthesizer) backendFor(qt QuestionType) (backend, bool) {
	switch qt {
	case TypeMCQ, TypeShort, TypeTrueFalse, TypeLong:
		return s.backends[qt], true
	default:
		return nil, false
	}
}

// validQuestion is the quality gate applied to every candidate.
func validQuestion(q Question) bool {
	if q.Type == "" {
		return false
	}
	if len(strings.TrimSpace(q.Text)) <= 10 {
		return false
	}
	return strings.TrimSpace(q.Answer) != ""
}

func normalizeQuestion(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// InitErrors reports which question types are unavailable, keyed by type.
// An empty map means every backend is ready.
func (s *Synthesizer) InitErrors() map[QuestionType]error {
	out := make(map[QuestionType]error, len(s.initErrs))
	for qt, err := range s.initErrs {
		out[qt] = err
	}
	return out
}

// String summarizes backend availability for startup logs.
func (s *Synthesizer) String() string {
	ready := make([]string, 0, len(s.backends))
	for _, qt := range ValidTypes() {
		if _, ok := s.backends[qt]; ok {
			ready = append(ready, string(qt))
		}
	}
	return fmt.Sprintf("synthesizer(ready: %s)", strings.Join(ready, ","))
}
