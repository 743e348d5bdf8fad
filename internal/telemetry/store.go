// Package telemetry records completion attempts for diagnostics.
//
// Emission is fire-and-forget: a sink must never block or fail the main
// completion flow. Failures are logged and dropped.
package telemetry

import (
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Event kinds.
const (
	KindCompletion = "completion"
	KindError      = "error"
	KindTruncated  = "truncated"
	KindAgentLimit = "agent_limit"
)

// Event is one completion attempt outcome.
type Event struct {
	Kind             string `json:"kind"`
	Model            string `json:"model,omitempty"`
	PromptTokens     int64  `json:"prompt_tokens,omitempty"`
	CompletionTokens int64  `json:"completion_tokens,omitempty"`
	Error            string `json:"error,omitempty"`
	CreatedAtUnixMs  int64  `json:"created_at_unix_ms"`
}

// Sink receives events. Emit never returns an error and never blocks on the
// caller's critical path beyond a local write.
type Sink interface {
	Emit(e Event)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Emit(Event) {}

// Store is a local SQLite-backed sink.
//
// A single connection is enough: events are low-volume (one per completion
// attempt) and writes are serialized by database/sql.
type Store struct {
	log *slog.Logger
	db  *sql.DB
}

// Open creates or opens the event database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	p := filepath.Clean(strings.TrimSpace(path))
	if p == "" {
		return nil, errors.New("missing db path")
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Store{log: logger, db: db}, nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			model TEXT NOT NULL DEFAULT '',
			prompt_tokens INTEGER NOT NULL DEFAULT 0,
			completion_tokens INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			created_at_unix_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at_unix_ms);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Emit appends an event. Errors are logged and swallowed.
func (s *Store) Emit(e Event) {
	if s == nil || s.db == nil {
		return
	}
	if strings.TrimSpace(e.Kind) == "" {
		e.Kind = KindCompletion
	}
	if e.CreatedAtUnixMs <= 0 {
		e.CreatedAtUnixMs = time.Now().UnixMilli()
	}
	_, err := s.db.Exec(
		`INSERT INTO events (kind, model, prompt_tokens, completion_tokens, error, created_at_unix_ms)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.Kind, e.Model, e.PromptTokens, e.CompletionTokens, e.Error, e.CreatedAtUnixMs,
	)
	if err != nil {
		s.log.Warn("telemetry emit failed", "kind", e.Kind, "error", err)
	}
}

// Recent returns up to limit events, newest first.
func (s *Store) Recent(limit int) ([]Event, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	rows, err := s.db.Query(
		`SELECT kind, model, prompt_tokens, completion_tokens, error, created_at_unix_ms
		 FROM events ORDER BY created_at_unix_ms DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Kind, &e.Model, &e.PromptTokens, &e.CompletionTokens, &e.Error, &e.CreatedAtUnixMs); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
