// Package store persists orchestration history to SQLite: sessions and,
// per turn, the prompt, the resulting revision, and a unified diff of the
// draft across the turn. The draft text itself is never persisted; the
// buffer stays the in-memory source of truth.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // register sqlite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id       TEXT PRIMARY KEY,
	created  INTEGER NOT NULL,
	updated  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS turns (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL,
	prompt      TEXT NOT NULL,
	revision    INTEGER NOT NULL,
	diff        TEXT NOT NULL,
	created     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, id);
`

// Store is a SQLite-backed transcript store. All methods are safe to call
// on a nil receiver, which turns them into no-ops so the server can run
// without persistence.
type Store struct {
	db *sql.DB
}

// Turn is one persisted orchestration turn.
type Turn struct {
	ID       int64
	Prompt   string
	Revision int
	Diff     string
	Created  time.Time
}

// Open creates or opens the transcript database at the given path.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open transcript db: %w", err)
	}

	// SQLite pragmas for performance.
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// EnsureSession creates the session row if it does not exist and bumps its
// updated timestamp if it does.
func (s *Store) EnsureSession(id string) {
	if s == nil {
		return
	}
	now := time.Now().Unix()
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, created, updated) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated = excluded.updated`,
		id, now, now,
	)
	if err != nil {
		log.Warn().Err(err).Str("session", id).Msg("failed to ensure session")
	}
}

// SaveTurn appends one turn to the session transcript.
func (s *Store) SaveTurn(sessionID, prompt string, revision int, diff string) {
	if s == nil {
		return
	}
	_, err := s.db.Exec(
		`INSERT INTO turns (session_id, prompt, revision, diff, created)
		 VALUES (?, ?, ?, ?, ?)`,
		sessionID, prompt, revision, diff, time.Now().Unix(),
	)
	if err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("failed to save turn")
	}
}

// Turns returns a session's turns in chronological order.
func (s *Store) Turns(sessionID string) ([]Turn, error) {
	if s == nil {
		return nil, nil
	}
	rows, err := s.db.Query(
		`SELECT id, prompt, revision, diff, created FROM turns
		 WHERE session_id = ? ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var created int64
		if err := rows.Scan(&t.ID, &t.Prompt, &t.Revision, &t.Diff, &created); err != nil {
			log.Warn().Err(err).Msg("failed to scan turn row")
			continue
		}
		t.Created = time.Unix(created, 0)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Sessions returns all known session IDs, most recently updated first.
func (s *Store) Sessions() ([]string, error) {
	if s == nil {
		return nil, nil
	}
	rows, err := s.db.Query(`SELECT id FROM sessions ORDER BY updated DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PurgeSession deletes a session and all of its turns.
func (s *Store) PurgeSession(id string) {
	if s == nil {
		return
	}
	for _, stmt := range []string{
		`DELETE FROM turns WHERE session_id = ?`,
		`DELETE FROM sessions WHERE id = ?`,
	} {
		if _, err := s.db.Exec(stmt, id); err != nil {
			log.Warn().Err(err).Str("session", id).Msg("failed to purge session")
			return
		}
	}
}
