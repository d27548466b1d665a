package api

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/eduquest/eduquest/internal/storage"
	"github.com/eduquest/eduquest/internal/synth"
)

func newTestMCPDeps(t *testing.T) (MCPDeps, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	gen := &mockGenerator{questions: []synth.Question{{
		Text:   "True or False: The sky is blue",
		Answer: "True",
		Type:   synth.TypeTrueFalse,
	}}}
	return MCPDeps{Store: store, Generator: gen}, store
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func seedUserAndQuestion(t *testing.T, store *storage.Store) (storage.User, storage.Question) {
	t.Helper()
	u := storage.User{
		ID:           "u1",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "salt:hash",
		Preferences:  "{}",
		CreatedAt:    time.Now().UTC(),
	}
	if err := store.SaveUser(u); err != nil {
		t.Fatalf("saving user: %v", err)
	}
	c, _, err := store.SaveContent(storage.Content{
		ID: "c1", UserID: u.ID, RawText: "The sky is blue.",
		PageCount: 1, ContentHash: "h1", MIMEType: "text/plain",
		UploadedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("saving content: %v", err)
	}
	q := storage.Question{
		ID: "q1", ContentID: c.ID, Type: "TRUE_FALSE",
		Text: "True or False: The sky is blue", Answer: "True",
		NextReview: time.Now().UTC(), IntervalDays: 1,
		CreatedAt: time.Now().UTC(),
	}
	if err := store.SaveQuestion(q); err != nil {
		t.Fatalf("saving question: %v", err)
	}
	return u, q
}

func TestMCPTool_GenerateQuestions(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpGenerateQuestions(deps)

	req := makeCallToolRequest("generate_questions", map[string]interface{}{
		"text":  "The sky is blue.",
		"type":  "TRUE_FALSE",
		"count": 1,
	})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var questions []synth.Question
	if err := json.Unmarshal([]byte(toolText(t, result)), &questions); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	if len(questions) != 1 || questions[0].Answer != "True" {
		t.Fatalf("unexpected questions: %#v", questions)
	}
}

func TestMCPTool_GenerateQuestions_MissingText(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpGenerateQuestions(deps)

	result, err := handler(context.Background(), makeCallToolRequest("generate_questions", map[string]interface{}{
		"type": "MCQ",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for missing text")
	}
}

func TestMCPTool_GenerateQuestions_GenerationFailure(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	deps.Generator = &mockGenerator{err: &synth.ExhaustedError{Type: synth.TypeMCQ, Attempts: 10}}
	handler := mcpGenerateQuestions(deps)

	result, err := handler(context.Background(), makeCallToolRequest("generate_questions", map[string]interface{}{
		"text": "The sky is blue.",
		"type": "MCQ",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error when generation fails")
	}
}

func TestMCPTool_RecordProgress(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	_, q := seedUserAndQuestion(t, store)
	handler := mcpRecordProgress(deps)

	result, err := handler(context.Background(), makeCallToolRequest("record_progress", map[string]interface{}{
		"username":    "alice",
		"question_id": q.ID,
		"correct":     true,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	entries, err := store.GetProgress("u1")
	if err != nil {
		t.Fatalf("getting progress: %v", err)
	}
	if len(entries) != 1 || entries[0].Attempts != 1 || entries[0].SuccessRate != 1.0 {
		t.Fatalf("progress entries: %#v", entries)
	}
}

func TestMCPTool_RecordProgress_UnknownUser(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	_, q := seedUserAndQuestion(t, store)
	handler := mcpRecordProgress(deps)

	result, err := handler(context.Background(), makeCallToolRequest("record_progress", map[string]interface{}{
		"username":    "nobody",
		"question_id": q.ID,
		"correct":     true,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for unknown user")
	}
}

func TestMCPResource_Progress(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	u, q := seedUserAndQuestion(t, store)
	if _, err := store.RecordAttempt(u.ID, q.ID, true, time.Now().UTC()); err != nil {
		t.Fatalf("recording attempt: %v", err)
	}
	handler := mcpResourceProgress(deps)

	contents, err := handler(context.Background(), makeReadResourceRequest("study://progress"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("got %d contents, want 1", len(contents))
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}

	var summaries []map[string]any
	if err := json.Unmarshal([]byte(text.Text), &summaries); err != nil {
		t.Fatalf("parsing resource: %v", err)
	}
	if len(summaries) != 1 || summaries[0]["question_id"] != q.ID {
		t.Fatalf("summaries: %#v", summaries)
	}
}
