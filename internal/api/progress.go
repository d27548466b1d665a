package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/eduquest/eduquest/internal/storage"
)

type attemptRequest struct {
	QuestionID string `json:"question_id"`
	Correct    bool   `json:"correct"`
}

type progressView struct {
	QuestionID  string  `json:"question_id"`
	Attempts    int     `json:"attempts"`
	SuccessRate float64 `json:"success_rate"`
	LastAttempt string  `json:"last_attempt"`
}

func handleRecordProgress(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req attemptRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.QuestionID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "question_id is required")
			return
		}
		u, ok := requestUser(r)
		if !ok {
			httpError(w, http.StatusUnauthorized, "authentication_error", "no session user")
			return
		}

		if _, err := deps.Store.GetQuestion(req.QuestionID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				httpError(w, http.StatusNotFound, "not_found", "question not found")
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "getting question: %v", err)
			return
		}

		entry, err := deps.Store.RecordAttempt(u.ID, req.QuestionID, req.Correct, time.Now().UTC())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "recording attempt: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, progressView{
			QuestionID:  entry.QuestionID,
			Attempts:    entry.Attempts,
			SuccessRate: entry.SuccessRate,
			LastAttempt: entry.LastAttempt.Format(time.RFC3339),
		})
	}
}

func handleGetProgress(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := requestUser(r)
		if !ok {
			httpError(w, http.StatusUnauthorized, "authentication_error", "no session user")
			return
		}

		entries, err := deps.Store.GetProgress(u.ID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "getting progress: %v", err)
			return
		}

		views := make([]progressView, len(entries))
		for i, e := range entries {
			views[i] = progressView{
				QuestionID:  e.QuestionID,
				Attempts:    e.Attempts,
				SuccessRate: e.SuccessRate,
				LastAttempt: e.LastAttempt.Format(time.RFC3339),
			}
		}
		writeJSON(w, http.StatusOK, views)
	}
}

type shareRequest struct {
	QuestionID string `json:"question_id"`
	Platform   string `json:"platform"`
}

func handleCreateShare(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req shareRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.QuestionID == "" || req.Platform == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "question_id and platform are required")
			return
		}
		u, ok := requestUser(r)
		if !ok {
			httpError(w, http.StatusUnauthorized, "authentication_error", "no session user")
			return
		}

		if _, err := deps.Store.GetQuestion(req.QuestionID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				httpError(w, http.StatusNotFound, "not_found", "question not found")
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "getting question: %v", err)
			return
		}

		sh := storage.Share{
			ID:         uuid.NewString(),
			UserID:     u.ID,
			QuestionID: req.QuestionID,
			Platform:   req.Platform,
			SharedAt:   time.Now().UTC(),
		}
		if err := deps.Store.SaveShare(sh); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "saving share: %v", err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": sh.ID, "status": "shared"})
	}
}

func handleListShares(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := requestUser(r)
		if !ok {
			httpError(w, http.StatusUnauthorized, "authentication_error", "no session user")
			return
		}

		shares, err := deps.Store.ListShares(u.ID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing shares: %v", err)
			return
		}
		if shares == nil {
			shares = []storage.Share{}
		}

		type shareView struct {
			ID         string `json:"id"`
			QuestionID string `json:"question_id"`
			Platform   string `json:"platform"`
			SharedAt   string `json:"shared_at"`
		}
		views := make([]shareView, len(shares))
		for i, sh := range shares {
			views[i] = shareView{
				ID:         sh.ID,
				QuestionID: sh.QuestionID,
				Platform:   sh.Platform,
				SharedAt:   sh.SharedAt.Format(time.RFC3339),
			}
		}
		writeJSON(w, http.StatusOK, views)
	}
}
