package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eduquest/eduquest/internal/storage"
)

// ErrInvalidCredentials is returned for an unknown user or wrong password.
// Both cases share one error so responses do not leak which field failed.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrSessionExpired is returned for a missing, revoked, or expired token.
var ErrSessionExpired = errors.New("session expired")

// userStore is the slice of the storage layer the manager needs.
type userStore interface {
	SaveUser(u storage.User) error
	GetUser(id string) (storage.User, error)
	GetUserByUsername(username string) (storage.User, error)
	GetUserByEmail(email string) (storage.User, error)
	TouchLastLogin(id string, at time.Time) error
	SaveSession(sess storage.Session) error
	GetSession(token string) (storage.Session, error)
	DeleteSession(token string) error
	DeleteExpiredSessions(now time.Time) error
}

// Manager implements registration, login, and session validation over the
// storage layer.
type Manager struct {
	store      userStore
	sessionTTL time.Duration
	now        func() time.Time
}

// NewManager wires a Manager. sessionTTL bounds how long issued tokens
// stay valid.
func NewManager(store userStore, sessionTTL time.Duration) *Manager {
	return &Manager{store: store, sessionTTL: sessionTTL, now: time.Now}
}

// Register creates a new user after checking the password policy. Duplicate
// usernames or emails surface storage.ErrDuplicate.
func (m *Manager) Register(username, email, password string) (storage.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" {
		return storage.User{}, errors.New("username and email are required")
	}
	if err := checkPasswordPolicy(password); err != nil {
		return storage.User{}, err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return storage.User{}, err
	}
	u := storage.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Preferences:  "{}",
		CreatedAt:    m.now().UTC(),
	}
	if err := m.store.SaveUser(u); err != nil {
		return storage.User{}, fmt.Errorf("saving user: %w", err)
	}
	return u, nil
}

// Login verifies credentials by username or email and issues a session
// token on success.
func (m *Manager) Login(identifier, password string) (storage.User, storage.Session, error) {
	u, err := m.lookup(identifier)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.User{}, storage.Session{}, ErrInvalidCredentials
		}
		return storage.User{}, storage.Session{}, err
	}
	if !verifyPassword(u.PasswordHash, password) {
		return storage.User{}, storage.Session{}, ErrInvalidCredentials
	}

	now := m.now().UTC()
	if err := m.store.TouchLastLogin(u.ID, now); err != nil {
		return storage.User{}, storage.Session{}, fmt.Errorf("updating last login: %w", err)
	}
	sess := storage.Session{
		Token:     uuid.NewString(),
		UserID:    u.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.sessionTTL),
	}
	if err := m.store.SaveSession(sess); err != nil {
		return storage.User{}, storage.Session{}, fmt.Errorf("saving session: %w", err)
	}
	return u, sess, nil
}

func (m *Manager) lookup(identifier string) (storage.User, error) {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		if u, err := m.store.GetUserByEmail(identifier); err == nil {
			return u, nil
		}
	}
	return m.store.GetUserByUsername(identifier)
}

// Validate resolves a session token to its user, rejecting expired tokens.
func (m *Manager) Validate(token string) (storage.User, error) {
	sess, err := m.store.GetSession(token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.User{}, ErrSessionExpired
		}
		return storage.User{}, err
	}
	if m.now().UTC().After(sess.ExpiresAt) {
		// Expired sessions are removed lazily on first rejected use.
		_ = m.store.DeleteSession(token)
		return storage.User{}, ErrSessionExpired
	}
	u, err := m.store.GetUser(sess.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.User{}, ErrSessionExpired
		}
		return storage.User{}, err
	}
	return u, nil
}

// Logout revokes a session token. Revoking an unknown token is not an error.
func (m *Manager) Logout(token string) error {
	return m.store.DeleteSession(token)
}

// Sweep removes all expired sessions.
func (m *Manager) Sweep() error {
	return m.store.DeleteExpiredSessions(m.now().UTC())
}
