package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/eduquest/eduquest/internal/storage"
)

func openTestManager(t *testing.T, ttl time.Duration) (*Manager, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewManager(store, ttl), store
}

func TestPasswordPolicy(t *testing.T) {
	cases := []struct {
		password string
		ok       bool
	}{
		{"Secret12", true},
		{"LongEnough1", true},
		{"short1A", false},
		{"alllowercase1", false},
		{"NoDigitsHere", false},
	}
	for _, tc := range cases {
		err := checkPasswordPolicy(tc.password)
		if tc.ok && err != nil {
			t.Errorf("checkPasswordPolicy(%q) = %v, want nil", tc.password, err)
		}
		if !tc.ok && !errors.Is(err, ErrWeakPassword) {
			t.Errorf("checkPasswordPolicy(%q) = %v, want ErrWeakPassword", tc.password, err)
		}
	}
}

func TestHashVerifyRoundTrip(t *testing.T) {
	hash, err := hashPassword("Secret12")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.Contains(hash, ":") {
		t.Fatalf("hash %q missing salt separator", hash)
	}
	if !verifyPassword(hash, "Secret12") {
		t.Fatal("correct password rejected")
	}
	if verifyPassword(hash, "Secret13") {
		t.Fatal("wrong password accepted")
	}
}

func TestHashesAreSalted(t *testing.T) {
	h1, _ := hashPassword("Secret12")
	h2, _ := hashPassword("Secret12")
	if h1 == h2 {
		t.Fatal("two hashes of the same password are identical")
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	m, _ := openTestManager(t, time.Hour)
	_, err := m.Register("alice", "alice@example.com", "weak")
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("err = %v, want ErrWeakPassword", err)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	m, _ := openTestManager(t, time.Hour)
	if _, err := m.Register("alice", "alice@example.com", "Secret12"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := m.Register("alice", "other@example.com", "Secret12")
	if !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
}

func TestLoginByUsernameAndEmail(t *testing.T) {
	m, _ := openTestManager(t, time.Hour)
	if _, err := m.Register("alice", "alice@example.com", "Secret12"); err != nil {
		t.Fatalf("register: %v", err)
	}

	for _, id := range []string{"alice", "alice@example.com"} {
		u, sess, err := m.Login(id, "Secret12")
		if err != nil {
			t.Fatalf("login %q: %v", id, err)
		}
		if u.Username != "alice" {
			t.Fatalf("login %q resolved user %q", id, u.Username)
		}
		if sess.Token == "" || !sess.ExpiresAt.After(time.Now()) {
			t.Fatalf("login %q issued bad session: %+v", id, sess)
		}
	}
}

func TestLoginWrongPassword(t *testing.T) {
	m, _ := openTestManager(t, time.Hour)
	if _, err := m.Register("alice", "alice@example.com", "Secret12"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, _, err := m.Login("alice", "Secret13")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	_, _, err = m.Login("nobody", "Secret12")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user err = %v, want ErrInvalidCredentials", err)
	}
}

func TestValidateSession(t *testing.T) {
	m, _ := openTestManager(t, time.Hour)
	if _, err := m.Register("alice", "alice@example.com", "Secret12"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, sess, err := m.Login("alice", "Secret12")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	u, err := m.Validate(sess.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if u.Username != "alice" {
		t.Fatalf("validate resolved %q", u.Username)
	}

	if _, err := m.Validate("no-such-token"); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("unknown token err = %v, want ErrSessionExpired", err)
	}
}

func TestValidateExpiredSession(t *testing.T) {
	m, _ := openTestManager(t, time.Hour)
	if _, err := m.Register("alice", "alice@example.com", "Secret12"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, sess, err := m.Login("alice", "Secret12")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// Move the manager clock past the TTL.
	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := m.Validate(sess.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	// The token is revoked on first rejected use.
	m.now = time.Now
	if _, err := m.Validate(sess.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("revoked token err = %v, want ErrSessionExpired", err)
	}
}

func TestLogout(t *testing.T) {
	m, _ := openTestManager(t, time.Hour)
	if _, err := m.Register("alice", "alice@example.com", "Secret12"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, sess, err := m.Login("alice", "Secret12")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := m.Logout(sess.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := m.Validate(sess.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err after logout = %v, want ErrSessionExpired", err)
	}
}
