// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/sprint/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// BestWPMKey is the kv key holding the personal best.
const BestWPMKey = "typingBestWpm"

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for the best score and session history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			mode TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			reason TEXT NOT NULL,
			wpm INTEGER NOT NULL,
			accuracy INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			typed INTEGER NOT NULL,
			passage_len INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// BestWPM returns the stored personal best. A missing, non-numeric, or
// negative value reads as 0.
func (s *Store) BestWPM(ctx context.Context) (int, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, BestWPMKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return parseBest(raw), nil
}

func parseBest(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// SetBestWPM overwrites the stored personal best.
func (s *Store) SetBestWPM(ctx context.Context, wpm int) error {
	if wpm < 0 {
		return fmt.Errorf("best wpm must be >= 0, got %d", wpm)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		BestWPMKey, strconv.Itoa(wpm))
	return err
}

// ResetBest removes the stored personal best.
func (s *Store) ResetBest(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, BestWPMKey)
	return err
}

// RecordSession stores a finished session.
func (s *Store) RecordSession(ctx context.Context, r model.SessionResult) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, started_at, ended_at, mode, difficulty, reason, wpm, accuracy, correct, typed, passage_len, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		r.StartedAt.UTC().Format(timeLayout),
		r.EndedAt.UTC().Format(timeLayout),
		r.Mode.String(),
		r.Difficulty.String(),
		r.Reason.String(),
		r.WPM,
		r.Accuracy,
		r.Correct,
		r.Typed,
		r.PassageLen,
		r.DurationMs,
	)
	return err
}

// ListSessions returns finished sessions matching cfg, oldest first.
func (s *Store) ListSessions(ctx context.Context, cfg model.HistoryConfig) ([]model.SessionResult, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Mode != nil {
		clauses = append(clauses, "mode = ?")
		args = append(args, cfg.Mode.String())
	}
	if cfg.Difficulty != nil {
		clauses = append(clauses, "difficulty = ?")
		args = append(args, cfg.Difficulty.String())
	}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, cfg.Since.UTC().Format(timeLayout))
	}
	query := fmt.Sprintf(`SELECT id, started_at, ended_at, mode, difficulty, reason, wpm, accuracy, correct, typed, passage_len, duration_ms
		FROM sessions
		WHERE %s
		ORDER BY ended_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.SessionResult
	for rows.Next() {
		var r model.SessionResult
		var startedAt, endedAt, mode, difficulty, reason string
		if err := rows.Scan(&r.ID, &startedAt, &endedAt, &mode, &difficulty, &reason,
			&r.WPM, &r.Accuracy, &r.Correct, &r.Typed, &r.PassageLen, &r.DurationMs); err != nil {
			return nil, err
		}
		if r.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
			return nil, err
		}
		if r.EndedAt, err = time.Parse(timeLayout, endedAt); err != nil {
			return nil, err
		}
		if r.Mode, err = model.ParseMode(mode); err != nil {
			return nil, err
		}
		if r.Difficulty, err = model.ParseDifficulty(difficulty); err != nil {
			return nil, err
		}
		r.Reason = model.ParseReason(reason)
		sessions = append(sessions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if cfg.Last > 0 && len(sessions) > cfg.Last {
		sessions = sessions[len(sessions)-cfg.Last:]
	}
	return sessions, nil
}
