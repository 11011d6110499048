// Package audit keeps an operator-facing trail of authentication outcomes.
// Passwords never reach this package.
package audit

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is one finished authentication attempt.
type Event struct {
	ID        string
	Username  string
	Outcome   string
	CreatedAt time.Time
}

// Recorder persists authentication events.
type Recorder interface {
	Record(event Event) error
}

// Noop discards every event.
type Noop struct{}

func (Noop) Record(Event) error { return nil }

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// Store writes events to the auth_events table in MariaDB.
type Store struct {
	db execer
}

const createTableQuery = `CREATE TABLE IF NOT EXISTS auth_events (
	id CHAR(36) NOT NULL PRIMARY KEY,
	username VARCHAR(255) NOT NULL,
	outcome VARCHAR(32) NOT NULL,
	created_at DATETIME(6) NOT NULL,
	INDEX idx_auth_events_created_at (created_at)
)`

const insertEventQuery = `INSERT INTO auth_events (id, username, outcome, created_at) VALUES (?, ?, ?, ?)`

const maxUsernameLength = 255

// NewStore creates the auth_events table if needed.
func NewStore(db execer) (*Store, error) {
	if _, err := db.Exec(createTableQuery); err != nil {
		return nil, fmt.Errorf("failed to create auth_events table: %w", err)
	}
	return &Store{db: db}, nil
}

// Record inserts event, filling in a missing ID or timestamp.
func (s *Store) Record(event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	username := []rune(event.Username)
	if len(username) > maxUsernameLength {
		username = username[:maxUsernameLength]
	}

	if _, err := s.db.Exec(insertEventQuery, event.ID, string(username), event.Outcome, event.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("failed to record auth event %s: %w", event.ID, err)
	}
	return nil
}
