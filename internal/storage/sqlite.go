package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for users, content,
// questions, progress, and shares.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "eduquest.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %q: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't
// been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			return fmt.Errorf("parsing migration version from %q: %w", entry.Name(), err)
		}

		var applied int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&applied); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if applied > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

// AppliedMigrations returns the list of applied migration versions in
// ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite reports constraint failures in the error text.
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

// --- Users ---

func (s *Store) SaveUser(u User) error {
	_, err := s.db.Exec(`
		INSERT INTO users (id, username, password_hash, email, preferences, created_at, last_login, active_content_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.PasswordHash, u.Email, orDefault(u.Preferences, "{}"),
		formatTime(u.CreatedAt), nullableTime(u.LastLogin), u.ActiveContentID,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

const userCols = "id, username, password_hash, email, preferences, created_at, last_login, active_content_id"

func (s *Store) scanUser(row *sql.Row) (User, error) {
	var u User
	var createdAt string
	var lastLogin, activeContent sql.NullString
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.Preferences, &createdAt, &lastLogin, &activeContent)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return User{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if u.LastLogin, err = parseTime(lastLogin.String); err != nil {
		return User{}, fmt.Errorf("parsing last_login: %w", err)
	}
	u.ActiveContentID = activeContent.String
	return u, nil
}

func (s *Store) GetUser(id string) (User, error) {
	return s.scanUser(s.db.QueryRow("SELECT "+userCols+" FROM users WHERE id = ?", id))
}

func (s *Store) GetUserByUsername(username string) (User, error) {
	return s.scanUser(s.db.QueryRow("SELECT "+userCols+" FROM users WHERE username = ?", username))
}

func (s *Store) GetUserByEmail(email string) (User, error) {
	return s.scanUser(s.db.QueryRow("SELECT "+userCols+" FROM users WHERE email = ?", email))
}

func (s *Store) TouchLastLogin(id string, at time.Time) error {
	res, err := s.db.Exec("UPDATE users SET last_login = ? WHERE id = ?", formatTime(at), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetActiveContent moves the user's active-content pointer. Questions tied
// to previously uploaded content stay in the database but are no longer
// served by default.
func (s *Store) SetActiveContent(userID, contentID string) error {
	res, err := s.db.Exec("UPDATE users SET active_content_id = ? WHERE id = ?", contentID, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Sessions ---

func (s *Store) SaveSession(sess Session) error {
	_, err := s.db.Exec(`
		INSERT INTO sessions (token, user_id, created_at, expires_at)
		VALUES (?, ?, ?, ?)`,
		sess.Token, sess.UserID, formatTime(sess.CreatedAt), formatTime(sess.ExpiresAt),
	)
	return err
}

func (s *Store) GetSession(token string) (Session, error) {
	var sess Session
	var createdAt, expiresAt string
	err := s.db.QueryRow(`
		SELECT token, user_id, created_at, expires_at FROM sessions WHERE token = ?`, token,
	).Scan(&sess.Token, &sess.UserID, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	if sess.CreatedAt, err = parseTime(createdAt); err != nil {
		return Session{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if sess.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return Session{}, fmt.Errorf("parsing expires_at: %w", err)
	}
	return sess, nil
}

func (s *Store) DeleteSession(token string) error {
	res, err := s.db.Exec("DELETE FROM sessions WHERE token = ?", token)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) DeleteExpiredSessions(now time.Time) error {
	_, err := s.db.Exec("DELETE FROM sessions WHERE expires_at <= ?", formatTime(now))
	return err
}

// --- Content ---

// SaveContent inserts a content row unless one with the same hash already
// exists. It returns the stored row and true when the row already existed
// (re-uploading identical bytes must not create a duplicate).
func (s *Store) SaveContent(c Content) (Content, bool, error) {
	_, err := s.db.Exec(`
		INSERT INTO content (id, user_id, raw_text, page_count, content_hash, mime_type, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_hash) DO NOTHING`,
		c.ID, c.UserID, c.RawText, c.PageCount, c.ContentHash, c.MIMEType, formatTime(c.UploadedAt),
	)
	if err != nil {
		return Content{}, false, err
	}

	stored, err := s.GetContentByHash(c.ContentHash)
	if err != nil {
		return Content{}, false, err
	}
	return stored, stored.ID != c.ID, nil
}

const contentCols = "id, user_id, raw_text, page_count, content_hash, mime_type, uploaded_at"

func scanContent(scan func(dest ...any) error) (Content, error) {
	var c Content
	var uploadedAt string
	err := scan(&c.ID, &c.UserID, &c.RawText, &c.PageCount, &c.ContentHash, &c.MIMEType, &uploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Content{}, ErrNotFound
	}
	if err != nil {
		return Content{}, err
	}
	if c.UploadedAt, err = parseTime(uploadedAt); err != nil {
		return Content{}, fmt.Errorf("parsing uploaded_at: %w", err)
	}
	return c, nil
}

func (s *Store) GetContent(id string) (Content, error) {
	return scanContent(s.db.QueryRow("SELECT "+contentCols+" FROM content WHERE id = ?", id).Scan)
}

func (s *Store) GetContentByHash(hash string) (Content, error) {
	return scanContent(s.db.QueryRow("SELECT "+contentCols+" FROM content WHERE content_hash = ?", hash).Scan)
}

func (s *Store) ListContentForUser(userID string, limit int) ([]Content, error) {
	rows, err := s.db.Query("SELECT "+contentCols+" FROM content WHERE user_id = ? ORDER BY uploaded_at DESC LIMIT ?", userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Content
	for rows.Next() {
		c, err := scanContent(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// --- Questions ---

func (s *Store) SaveQuestion(q Question) error {
	_, err := s.db.Exec(`
		INSERT INTO questions (id, content_id, question_type, question_text, correct_answer, options, difficulty, next_review, interval_days, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.ContentID, q.Type, q.Text, q.Answer, orDefault(q.Options, "[]"),
		q.Difficulty, nullableTime(q.NextReview), q.IntervalDays, formatTime(q.CreatedAt),
	)
	return err
}

const questionCols = "id, content_id, question_type, question_text, correct_answer, options, difficulty, next_review, interval_days, created_at"

func scanQuestion(scan func(dest ...any) error) (Question, error) {
	var q Question
	var createdAt string
	var nextReview sql.NullString
	err := scan(&q.ID, &q.ContentID, &q.Type, &q.Text, &q.Answer, &q.Options, &q.Difficulty, &nextReview, &q.IntervalDays, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, ErrNotFound
	}
	if err != nil {
		return Question{}, err
	}
	if q.CreatedAt, err = parseTime(createdAt); err != nil {
		return Question{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if q.NextReview, err = parseTime(nextReview.String); err != nil {
		return Question{}, fmt.Errorf("parsing next_review: %w", err)
	}
	return q, nil
}

func (s *Store) GetQuestion(id string) (Question, error) {
	return scanQuestion(s.db.QueryRow("SELECT "+questionCols+" FROM questions WHERE id = ?", id).Scan)
}

func (s *Store) ListQuestionsByContent(contentID string) ([]Question, error) {
	rows, err := s.db.Query("SELECT "+questionCols+" FROM questions WHERE content_id = ? ORDER BY created_at ASC, id ASC", contentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Question
	for rows.Next() {
		q, err := scanQuestion(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, q)
	}
	return results, rows.Err()
}

// --- Progress ---

// RecordAttempt upserts the (user, question) progress row: attempts is
// incremented and success_rate becomes the rolling mean of all attempts.
func (s *Store) RecordAttempt(userID, questionID string, correct bool, at time.Time) (ProgressEntry, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return ProgressEntry{}, fmt.Errorf("beginning attempt transaction: %w", err)
	}
	defer tx.Rollback()

	var p ProgressEntry
	var lastAttempt sql.NullString
	err = tx.QueryRow(`
		SELECT id, attempts, last_attempt, success_rate FROM progress
		WHERE user_id = ? AND question_id = ?`, userID, questionID,
	).Scan(&p.ID, &p.Attempts, &lastAttempt, &p.SuccessRate)

	outcome := 0.0
	if correct {
		outcome = 1.0
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		p = ProgressEntry{
			ID:          newRowID(),
			UserID:      userID,
			QuestionID:  questionID,
			Attempts:    1,
			LastAttempt: at,
			SuccessRate: outcome,
		}
		if _, err := tx.Exec(`
			INSERT INTO progress (id, user_id, question_id, attempts, last_attempt, success_rate)
			VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, p.UserID, p.QuestionID, p.Attempts, formatTime(p.LastAttempt), p.SuccessRate,
		); err != nil {
			return ProgressEntry{}, err
		}
	case err != nil:
		return ProgressEntry{}, err
	default:
		p.UserID = userID
		p.QuestionID = questionID
		p.SuccessRate = (p.SuccessRate*float64(p.Attempts) + outcome) / float64(p.Attempts+1)
		p.Attempts++
		p.LastAttempt = at
		if _, err := tx.Exec(`
			UPDATE progress SET attempts = ?, last_attempt = ?, success_rate = ? WHERE id = ?`,
			p.Attempts, formatTime(p.LastAttempt), p.SuccessRate, p.ID,
		); err != nil {
			return ProgressEntry{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return ProgressEntry{}, fmt.Errorf("committing attempt: %w", err)
	}
	return p, nil
}

func (s *Store) GetProgress(userID string) ([]ProgressEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, question_id, attempts, last_attempt, success_rate
		FROM progress WHERE user_id = ? ORDER BY last_attempt DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ProgressEntry
	for rows.Next() {
		var p ProgressEntry
		var lastAttempt sql.NullString
		if err := rows.Scan(&p.ID, &p.UserID, &p.QuestionID, &p.Attempts, &lastAttempt, &p.SuccessRate); err != nil {
			return nil, err
		}
		if p.LastAttempt, err = parseTime(lastAttempt.String); err != nil {
			return nil, fmt.Errorf("parsing last_attempt: %w", err)
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// RecentProgress returns the latest attempts across all users, newest first.
func (s *Store) RecentProgress(limit int) ([]ProgressEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, question_id, attempts, last_attempt, success_rate
		FROM progress ORDER BY last_attempt DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ProgressEntry
	for rows.Next() {
		var p ProgressEntry
		var lastAttempt sql.NullString
		if err := rows.Scan(&p.ID, &p.UserID, &p.QuestionID, &p.Attempts, &lastAttempt, &p.SuccessRate); err != nil {
			return nil, err
		}
		if p.LastAttempt, err = parseTime(lastAttempt.String); err != nil {
			return nil, fmt.Errorf("parsing last_attempt: %w", err)
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// --- Shares ---

func (s *Store) SaveShare(sh Share) error {
	_, err := s.db.Exec(`
		INSERT INTO shares (id, user_id, question_id, platform, shared_at)
		VALUES (?, ?, ?, ?, ?)`,
		sh.ID, sh.UserID, sh.QuestionID, sh.Platform, formatTime(sh.SharedAt),
	)
	return err
}

func (s *Store) ListShares(userID string) ([]Share, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, question_id, platform, shared_at
		FROM shares WHERE user_id = ? ORDER BY shared_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Share
	for rows.Next() {
		var sh Share
		var sharedAt string
		if err := rows.Scan(&sh.ID, &sh.UserID, &sh.QuestionID, &sh.Platform, &sharedAt); err != nil {
			return nil, err
		}
		if sh.SharedAt, err = parseTime(sharedAt); err != nil {
			return nil, fmt.Errorf("parsing shared_at: %w", err)
		}
		results = append(results, sh)
	}
	return results, rows.Err()
}
