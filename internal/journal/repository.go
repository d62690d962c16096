package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/visionpilot/internal/engine"
)

// Listing bounds.
const (
	DefaultLimit = 20
	MaxLimit     = 200
)

// Session is one journaled controller run.
type Session struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at,omitzero"`
	Cycles      int       `json:"cycles"`
	Errors      int       `json:"errors"`
	Iterations  int       `json:"iterations"`
	DryRun      bool      `json:"dry_run"`
	EndReason   string    `json:"end_reason,omitempty"`
	Transitions int       `json:"transitions"`
}

// Running reports whether the session has not recorded an end yet.
func (s Session) Running() bool {
	return s.EndedAt.IsZero()
}

// TransitionRecord is a journaled state change.
type TransitionRecord struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}

// Repository defines journal persistence.
type Repository interface {
	RecordTransition(ctx context.Context, t engine.Transition) error
	EndSession(ctx context.Context, s engine.Summary) error
	GetSession(ctx context.Context, id string) (*Session, error)
	ListSessions(ctx context.Context, limit int) ([]Session, error)
	ListTransitions(ctx context.Context, sessionID string, limit int) ([]TransitionRecord, error)
}

const sessionColumns = `s.id, s.started_at, s.ended_at, s.cycles, s.errors, s.iterations,
		s.dry_run, s.end_reason, (SELECT COUNT(*) FROM transitions t WHERE t.session_id = s.id)`

// SQLiteRepository implements Repository on the journal tables.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on a migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// RecordTransition appends a transition, creating the session row on the
// first one seen for its id.
func (r *SQLiteRepository) RecordTransition(ctx context.Context, t engine.Transition) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transition insert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	at := formatTime(t.At)
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (id, started_at) VALUES (?, ?)`,
		t.SessionID, at,
	); err != nil {
		return fmt.Errorf("ensuring session row: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO transitions (session_id, from_state, to_state, reason, at) VALUES (?, ?, ?, ?, ?)`,
		t.SessionID, string(t.From), string(t.To), t.Reason, at,
	); err != nil {
		return fmt.Errorf("inserting transition: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transition: %w", err)
	}
	return nil
}

// EndSession stores the final counters. A session that never recorded a
// transition is created here.
func (r *SQLiteRepository) EndSession(ctx context.Context, s engine.Summary) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, started_at, ended_at, cycles, errors, iterations, dry_run, end_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			ended_at   = excluded.ended_at,
			cycles     = excluded.cycles,
			errors     = excluded.errors,
			iterations = excluded.iterations,
			dry_run    = excluded.dry_run,
			end_reason = excluded.end_reason`,
		s.SessionID, formatTime(s.StartedAt), formatTime(s.EndedAt),
		s.Cycles, s.Errors, s.Iterations, boolToInt(s.DryRun), s.Reason,
	)
	if err != nil {
		return fmt.Errorf("ending session %s: %w", s.SessionID, err)
	}
	return nil
}

// GetSession returns one session with its transition count.
func (r *SQLiteRepository) GetSession(ctx context.Context, id string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions s WHERE s.id = ?`, id)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return s, nil
}

// ListSessions returns the most recent sessions, newest first.
func (r *SQLiteRepository) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions s ORDER BY s.started_at DESC, s.id LIMIT ?`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

// ListTransitions returns a session's transitions in the order they happened.
func (r *SQLiteRepository) ListTransitions(ctx context.Context, sessionID string, limit int) ([]TransitionRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, from_state, to_state, reason, at
		FROM transitions WHERE session_id = ? ORDER BY id LIMIT ?`,
		sessionID, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying transitions: %w", err)
	}
	defer rows.Close()

	out := []TransitionRecord{}
	for rows.Next() {
		var t TransitionRecord
		var at string
		if err := rows.Scan(&t.ID, &t.SessionID, &t.From, &t.To, &t.Reason, &at); err != nil {
			return nil, fmt.Errorf("scanning transition: %w", err)
		}
		t.At = parseTime(at)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transitions: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var s Session
	var started string
	var ended, reason sql.NullString
	var dryRun int
	if err := row.Scan(&s.ID, &started, &ended, &s.Cycles, &s.Errors, &s.Iterations,
		&dryRun, &reason, &s.Transitions); err != nil {
		return nil, err
	}
	s.StartedAt = parseTime(started)
	if ended.Valid {
		s.EndedAt = parseTime(ended.String)
	}
	s.DryRun = dryRun != 0
	s.EndReason = reason.String
	return &s, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// Times are stored as RFC3339 with milliseconds so that text ordering
// matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s) //nolint:errcheck // written by formatTime
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
