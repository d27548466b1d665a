// Package api exposes the HTTP and MCP boundaries: account management,
// document upload and extraction, question generation, progress tracking,
// and sharing.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eduquest/eduquest/internal/auth"
	"github.com/eduquest/eduquest/internal/extract"
	"github.com/eduquest/eduquest/internal/storage"
	"github.com/eduquest/eduquest/internal/synth"
)

const maxUploadBodySize = 10 << 20 // 10MB

// Extractor turns uploaded bytes into text. Failures come back inside the
// Result, never as an error.
type Extractor interface {
	Process(ctx context.Context, data []byte, mimeType string) extract.Result
}

// Generator produces study questions from extracted text.
type Generator interface {
	Generate(ctx context.Context, req synth.Request) ([]synth.Question, error)
}

// AppDeps holds the dependencies of the HTTP API.
type AppDeps struct {
	Store     *storage.Store
	Auth      *auth.Manager
	Extractor Extractor
	Generator Generator
	// Token guards the account endpoints so only holders of the service
	// token can create users on a locally exposed instance.
	Token string
}

// NewAppHandler builds the full HTTP API.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Post("/auth/register", handleRegister(deps))
		r.Post("/auth/login", handleLogin(deps))
	})

	r.Group(func(r chi.Router) {
		r.Use(SessionAuth(deps.Auth))
		r.Post("/documents", handleUploadDocument(deps))
		r.Get("/documents", handleListDocuments(deps))
		r.Get("/documents/{id}", handleGetDocument(deps))
		r.Post("/questions/generate", handleGenerateQuestions(deps))
		r.Get("/questions", handleListQuestions(deps))
		r.Post("/progress", handleRecordProgress(deps))
		r.Get("/progress", handleGetProgress(deps))
		r.Post("/shares", handleCreateShare(deps))
		r.Get("/shares", handleListShares(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
