package api

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/eduquest/eduquest/internal/extract"
	"github.com/eduquest/eduquest/internal/storage"
)

type uploadRequest struct {
	Content  string `json:"content"` // base64
	MIMEType string `json:"mime_type"`
}

type uploadResponse struct {
	ContentID    string `json:"content_id,omitempty"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
	Pages        int    `json:"pages"`
	Chars        int    `json:"chars"`
	Deduplicated bool   `json:"deduplicated"`
}

// handleUploadDocument extracts an uploaded file and stores its text as the
// user's active content. Extraction failures are reported data, so the
// response is 200 with an error status rather than a 4xx/5xx.
func handleUploadDocument(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBodySize)
		defer r.Body.Close()

		var req uploadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Content == "" || req.MIMEType == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "content and mime_type are required")
			return
		}
		data, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid base64 content")
			return
		}
		u, ok := requestUser(r)
		if !ok {
			httpError(w, http.StatusUnauthorized, "authentication_error", "no session user")
			return
		}

		res := deps.Extractor.Process(r.Context(), data, req.MIMEType)
		if res.Status != extract.StatusProcessed {
			writeJSON(w, http.StatusOK, uploadResponse{Status: string(res.Status), Error: res.Error})
			return
		}

		hash := sha256.Sum256(data)
		stored, deduplicated, err := deps.Store.SaveContent(storage.Content{
			ID:          uuid.NewString(),
			UserID:      u.ID,
			RawText:     res.Text,
			PageCount:   len(res.Pages),
			ContentHash: hex.EncodeToString(hash[:]),
			MIMEType:    req.MIMEType,
			UploadedAt:  time.Now().UTC(),
		})
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "saving content: %v", err)
			return
		}
		if err := deps.Store.SetActiveContent(u.ID, stored.ID); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "updating active content: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, uploadResponse{
			ContentID:    stored.ID,
			Status:       string(res.Status),
			Pages:        len(res.Pages),
			Chars:        len(res.Text),
			Deduplicated: deduplicated,
		})
	}
}

type documentSummary struct {
	ID         string `json:"id"`
	MIMEType   string `json:"mime_type"`
	Pages      int    `json:"pages"`
	Chars      int    `json:"chars"`
	UploadedAt string `json:"uploaded_at"`
	Active     bool   `json:"active"`
}

func handleListDocuments(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := requestUser(r)
		if !ok {
			httpError(w, http.StatusUnauthorized, "authentication_error", "no session user")
			return
		}

		contents, err := deps.Store.ListContentForUser(u.ID, 50)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing documents: %v", err)
			return
		}

		summaries := make([]documentSummary, len(contents))
		for i, c := range contents {
			summaries[i] = documentSummary{
				ID:         c.ID,
				MIMEType:   c.MIMEType,
				Pages:      c.PageCount,
				Chars:      len(c.RawText),
				UploadedAt: c.UploadedAt.Format(time.RFC3339),
				Active:     c.ID == u.ActiveContentID,
			}
		}
		writeJSON(w, http.StatusOK, summaries)
	}
}

func handleGetDocument(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		u, ok := requestUser(r)
		if !ok {
			httpError(w, http.StatusUnauthorized, "authentication_error", "no session user")
			return
		}

		c, err := deps.Store.GetContent(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "document not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "getting document: %v", err)
			return
		}
		// Content rows are hash-deduplicated across users, so a row uploaded
		// first by someone else can still be this user's active content.
		// Anything else stays invisible.
		if c.UserID != u.ID && c.ID != u.ActiveContentID {
			httpError(w, http.StatusNotFound, "not_found", "document not found")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"id":          c.ID,
			"mime_type":   c.MIMEType,
			"pages":       c.PageCount,
			"text":        c.RawText,
			"uploaded_at": c.UploadedAt.Format(time.RFC3339),
		})
	}
}
