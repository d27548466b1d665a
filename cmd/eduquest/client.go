package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/eduquest/eduquest/internal/config"
)

// apiClient talks to a locally running eduquest server. Account endpoints
// use the service token; everything else uses the session token issued at
// login.
type apiClient struct {
	baseURL      string
	serviceToken string
	sessionToken string
	httpClient   *http.Client
}

var newAPIClient = func() (*apiClient, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	serviceToken, err := config.APIToken()
	if err != nil {
		return nil, fmt.Errorf("getting service token: %w", err)
	}
	sessionToken, _, err := config.SessionToken()
	if err != nil {
		return nil, fmt.Errorf("reading session token: %w", err)
	}

	return &apiClient{
		baseURL:      fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port),
		serviceToken: serviceToken,
		sessionToken: sessionToken,
		// Generation can take a while on cold models.
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

func (c *apiClient) do(ctx context.Context, method, path, token string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server not reachable — is eduquest running? (%w)", err)
	}
	return resp, nil
}

// account issues a request authenticated with the service token.
func (c *apiClient) account(ctx context.Context, method, path string, body any) (*http.Response, error) {
	return c.do(ctx, method, path, c.serviceToken, body)
}

func (c *apiClient) get(ctx context.Context, path string) (*http.Response, error) {
	if c.sessionToken == "" {
		return nil, fmt.Errorf("not logged in — run `eduquest login` first")
	}
	return c.do(ctx, http.MethodGet, path, c.sessionToken, nil)
}

func (c *apiClient) post(ctx context.Context, path string, body any) (*http.Response, error) {
	if c.sessionToken == "" {
		return nil, fmt.Errorf("not logged in — run `eduquest login` first")
	}
	return c.do(ctx, http.MethodPost, path, c.sessionToken, body)
}

func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("server returned %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
