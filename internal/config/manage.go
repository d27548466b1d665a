package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
)

// KeyInfo describes a config key for display purposes.
type KeyInfo struct {
	Key    string
	EnvVar string
	Value  string
}

// ShowAll returns all config key/value pairs from the current config.
func ShowAll(cfg Config) []KeyInfo {
	var result []KeyInfo
	for _, s := range specs {
		result = append(result, KeyInfo{
			Key:    s.key,
			EnvVar: s.env,
			Value:  fmt.Sprintf("%v", s.extract(cfg)),
		})
	}
	return result
}

// SetKey writes a config key to the file backend.
func SetKey(key, value string) error {
	b := newFileBackend()

	for _, s := range specs {
		if s.key != key {
			continue
		}
		switch s.typ {
		case kString:
			return b.SetString(key, value)
		case kInt:
			i, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid integer value for %s: %w", key, err)
			}
			return b.SetInt(key, i)
		}
	}

	return fmt.Errorf("unknown config key: %q", key)
}

// ValidKeys returns the list of valid config key names.
func ValidKeys() []string {
	var keys []string
	for _, s := range specs {
		keys = append(keys, s.key)
	}
	return keys
}

const (
	apiTokenKey     = "api.token"
	sessionTokenKey = "session.token"
)

// SessionToken returns the stored login session token, if any.
func SessionToken() (string, bool, error) {
	return newFileBackend().GetString(sessionTokenKey)
}

// SaveSessionToken persists the session token issued at login.
func SaveSessionToken(token string) error {
	return newFileBackend().SetString(sessionTokenKey, token)
}

// ClearSessionToken removes the stored session token.
func ClearSessionToken() error {
	return newFileBackend().Delete(sessionTokenKey)
}

func getenvToken() string {
	return os.Getenv("EDUQUEST_API_TOKEN")
}

// APIToken returns the service bearer token used by the CLI and the
// management endpoints, generating and persisting one on first use.
// EDUQUEST_API_TOKEN overrides the stored value.
func APIToken() (string, error) {
	return apiTokenWith(newFileBackend())
}

func apiTokenWith(b Backend) (string, error) {
	if tok := getenvToken(); tok != "" {
		return tok, nil
	}

	tok, ok, err := b.GetString(apiTokenKey)
	if err != nil {
		return "", fmt.Errorf("reading API token: %w", err)
	}
	if ok && tok != "" {
		return tok, nil
	}

	tok = uuid.New().String()
	if err := b.SetString(apiTokenKey, tok); err != nil {
		return "", fmt.Errorf("persisting API token: %w", err)
	}
	return tok, nil
}
