package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/eduquest/eduquest/internal/storage"
	"github.com/eduquest/eduquest/internal/synth"
)

// defaultReviewInterval seeds the spaced-repetition columns for fresh
// questions. No scheduler consumes them yet.
const defaultReviewInterval = 1

type generateRequest struct {
	ContentID  string `json:"content_id"`
	Type       string `json:"type"`
	Count      int    `json:"count"`
	Difficulty string `json:"difficulty"`
	Focus      string `json:"focus"`
}

type questionView struct {
	ID         string   `json:"id"`
	ContentID  string   `json:"content_id"`
	Type       string   `json:"type"`
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Options    []string `json:"options,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"`
	NextReview string   `json:"next_review,omitempty"`
}

func handleGenerateQuestions(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Count <= 0 {
			req.Count = 5
		}
		u, ok := requestUser(r)
		if !ok {
			httpError(w, http.StatusUnauthorized, "authentication_error", "no session user")
			return
		}

		contentID := req.ContentID
		if contentID == "" {
			contentID = u.ActiveContentID
		}
		if contentID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "no content_id given and no active content")
			return
		}
		content, err := deps.Store.GetContent(contentID)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "content not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "getting content: %v", err)
			return
		}

		questions, err := deps.Generator.Generate(r.Context(), synth.Request{
			Text:       content.RawText,
			Type:       synth.QuestionType(req.Type),
			Count:      req.Count,
			Difficulty: synth.Difficulty(req.Difficulty),
			Focus:      req.Focus,
		})
		if err != nil {
			writeGenerationError(w, err)
			return
		}

		now := time.Now().UTC()
		views := make([]questionView, 0, len(questions))
		for _, q := range questions {
			optionsJSON := ""
			if len(q.Options) > 0 {
				b, err := json.Marshal(q.Options)
				if err != nil {
					httpError(w, http.StatusInternalServerError, "api_error", "marshaling options: %v", err)
					return
				}
				optionsJSON = string(b)
			}
			row := storage.Question{
				ID:           uuid.NewString(),
				ContentID:    content.ID,
				Type:         string(q.Type),
				Text:         q.Text,
				Answer:       q.Answer,
				Options:      optionsJSON,
				Difficulty:   string(q.Difficulty),
				NextReview:   now.AddDate(0, 0, defaultReviewInterval),
				IntervalDays: defaultReviewInterval,
				CreatedAt:    now,
			}
			if err := deps.Store.SaveQuestion(row); err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "saving question: %v", err)
				return
			}
			views = append(views, questionView{
				ID:         row.ID,
				ContentID:  row.ContentID,
				Type:       row.Type,
				Question:   row.Text,
				Answer:     row.Answer,
				Options:    q.Options,
				Difficulty: row.Difficulty,
				NextReview: row.NextReview.Format(time.RFC3339),
			})
		}

		writeJSON(w, http.StatusOK, views)
	}
}

// writeGenerationError maps the synthesis error taxonomy onto HTTP codes:
// caller mistakes are 400, a missing backend is 503, a model that produced
// nothing usable is 502.
func writeGenerationError(w http.ResponseWriter, err error) {
	var (
		unknownType *synth.UnknownTypeError
		initErr     *synth.InitError
		exhausted   *synth.ExhaustedError
	)
	switch {
	case errors.As(err, &unknownType), errors.Is(err, synth.ErrEmptyContext):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	case errors.As(err, &initErr):
		httpError(w, http.StatusServiceUnavailable, "api_error", "%v", err)
	case errors.As(err, &exhausted):
		httpError(w, http.StatusBadGateway, "api_error", "%v", err)
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "generating questions: %v", err)
	}
}

func handleListQuestions(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := requestUser(r)
		if !ok {
			httpError(w, http.StatusUnauthorized, "authentication_error", "no session user")
			return
		}
		contentID := r.URL.Query().Get("content_id")
		if contentID == "" {
			contentID = u.ActiveContentID
		}
		if contentID == "" {
			writeJSON(w, http.StatusOK, []questionView{})
			return
		}

		rows, err := deps.Store.ListQuestionsByContent(contentID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing questions: %v", err)
			return
		}

		views := make([]questionView, 0, len(rows))
		for _, row := range rows {
			var options []string
			if row.Options != "" {
				if err := json.Unmarshal([]byte(row.Options), &options); err != nil {
					httpError(w, http.StatusInternalServerError, "api_error", "parsing options for %s: %v", row.ID, err)
					return
				}
			}
			views = append(views, questionView{
				ID:         row.ID,
				ContentID:  row.ContentID,
				Type:       row.Type,
				Question:   row.Text,
				Answer:     row.Answer,
				Options:    options,
				Difficulty: row.Difficulty,
				NextReview: row.NextReview.Format(time.RFC3339),
			})
		}
		writeJSON(w, http.StatusOK, views)
	}
}
