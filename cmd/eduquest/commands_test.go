package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:      ts.server.URL,
		serviceToken: "service-token",
		sessionToken: "session-token",
		httpClient:   ts.server.Client(),
	}
}

var ctx = context.Background()

func TestAccountRequestsUseServiceToken(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /auth/login": `{"token":"sess-1","user_id":"u1","expires_at":"2026-09-01T00:00:00Z"}`,
	})
	client := ts.client()

	resp, err := client.account(ctx, "POST", "/auth/login", map[string]string{
		"identifier": "alice",
		"password":   "Secret12",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var result map[string]string
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if result["token"] != "sess-1" {
		t.Errorf("token = %q, want sess-1", result["token"])
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	if ts.requests[0].Auth != "Bearer service-token" {
		t.Errorf("auth = %q, want the service token", ts.requests[0].Auth)
	}
}

func TestUserRequestsUseSessionToken(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /questions": `[]`,
	})
	client := ts.client()

	resp, err := client.get(ctx, "/questions")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out []json.RawMessage
	if err := decodeJSON(resp, &out); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if ts.requests[0].Auth != "Bearer session-token" {
		t.Errorf("auth = %q, want the session token", ts.requests[0].Auth)
	}
}

func TestUserRequestsRequireLogin(t *testing.T) {
	ts := newTestServer(t, nil)
	client := ts.client()
	client.sessionToken = ""

	if _, err := client.post(ctx, "/documents", map[string]string{}); err == nil {
		t.Fatal("expected error when not logged in")
	}
	if len(ts.requests) != 0 {
		t.Fatalf("request was sent without a session token")
	}
}

func TestDecodeJSONServerError(t *testing.T) {
	ts := newTestServer(t, nil)
	client := ts.client()

	resp, err := client.get(ctx, "/nope")
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	var out any
	if err := decodeJSON(resp, &out); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestUploadBodyShape(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /documents": `{"content_id":"c1","status":"processed","pages":1,"chars":16,"deduplicated":false}`,
	})
	client := ts.client()

	resp, err := client.post(ctx, "/documents", map[string]string{
		"content":   "VGhlIHNreSBpcyBibHVlLg==",
		"mime_type": "text/plain",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var result map[string]any
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if result["status"] != "processed" {
		t.Errorf("status = %v", result["status"])
	}

	var body map[string]string
	if err := json.Unmarshal([]byte(ts.requests[0].Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["mime_type"] != "text/plain" {
		t.Errorf("body.mime_type = %q", body["mime_type"])
	}
}

func TestDetectMIMEType(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"notes.pdf", "application/pdf"},
		{"scan.PNG", "image/png"},
		{"photo.jpeg", "image/jpeg"},
		{"chapter.txt", "text/plain"},
		{"unknown.xyz", "text/plain"},
	}
	for _, tc := range cases {
		if got := detectMIMEType(tc.path); got != tc.want {
			t.Errorf("detectMIMEType(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestStyleHonorsColorControls(t *testing.T) {
	t.Cleanup(func() { noColor = false })

	old, had := os.LookupEnv("NO_COLOR")
	os.Unsetenv("NO_COLOR")
	t.Cleanup(func() {
		if had {
			os.Setenv("NO_COLOR", old)
		}
	})

	noColor = false
	if got := bold("Q1"); got != ansiBold+"Q1"+ansiReset {
		t.Fatalf("styled output = %q", got)
	}

	noColor = true
	if got := style(ansiGreen, "done"); got != "done" {
		t.Fatalf("--no-color output = %q", got)
	}

	noColor = false
	os.Setenv("NO_COLOR", "1")
	if got := cyan("Answer:"); got != "Answer:" {
		t.Fatalf("NO_COLOR output = %q", got)
	}
}
