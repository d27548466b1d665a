package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a uniqueness constraint.
var ErrDuplicate = errors.New("already exists")

type User struct {
	ID              string
	Username        string
	PasswordHash    string
	Email           string
	Preferences     string // JSON object stored as text
	CreatedAt       time.Time
	LastLogin       time.Time
	ActiveContentID string
}

type Session struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type Content struct {
	ID          string
	UserID      string
	RawText     string
	PageCount   int
	ContentHash string
	MIMEType    string
	UploadedAt  time.Time
}

type Question struct {
	ID           string
	ContentID    string
	Type         string // "MCQ", "SHORT", "TRUE_FALSE", "LONG"
	Text         string
	Answer       string
	Options      string // JSON array stored as text; empty for non-MCQ
	Difficulty   string
	NextReview   time.Time
	IntervalDays int
	CreatedAt    time.Time
}

type ProgressEntry struct {
	ID          string
	UserID      string
	QuestionID  string
	Attempts    int
	LastAttempt time.Time
	SuccessRate float64
}

type Share struct {
	ID         string
	UserID     string
	QuestionID string
	Platform   string
	SharedAt   time.Time
}
