// Package sqlite implements the durable tier of the hybrid session
// store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/balcao/pkg/domain"
	"github.com/aretw0/balcao/pkg/ports"

	// Pure-Go SQLite driver.
	_ "modernc.org/sqlite"
)

// Repository implements ports.SessionRepository using SQLite.
// It is the source of truth for sessions: it survives cache eviction
// and process restarts.
type Repository struct {
	db *sql.DB
}

// Open opens (and creates, if needed) the database at path and ensures
// the schema. Use ":memory:" for throwaway databases in tests.
func Open(ctx context.Context, path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent upserts.
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db}
	if err := repo.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *Repository) ensureSchema(ctx context.Context) error {
	stmt := `CREATE TABLE IF NOT EXISTS conversation_session (
		phone         TEXT NOT NULL PRIMARY KEY,
		state         TEXT NOT NULL,
		context_json  TEXT NOT NULL DEFAULT '{}',
		customer_id   TEXT NOT NULL DEFAULT '',
		last_activity INTEGER NOT NULL,
		expires_at    INTEGER NOT NULL
	)`
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to ensure session schema: %w", err)
	}
	if _, err := r.db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_conversation_session_expires ON conversation_session(expires_at)`); err != nil {
		return fmt.Errorf("failed to ensure session index: %w", err)
	}
	return nil
}

// FindByPhone returns the stored session for the phone number.
func (r *Repository) FindByPhone(ctx context.Context, phone string) (*ports.StoredSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT phone, state, context_json, customer_id, last_activity, expires_at
		 FROM conversation_session WHERE phone = ?`, phone)

	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return s, nil
}

// Create inserts the session, replacing any existing row for the phone.
func (r *Repository) Create(ctx context.Context, s *ports.StoredSession) error {
	return r.upsert(ctx, s)
}

// Update upserts the session row.
func (r *Repository) Update(ctx context.Context, s *ports.StoredSession) error {
	return r.upsert(ctx, s)
}

func (r *Repository) upsert(ctx context.Context, s *ports.StoredSession) error {
	contextJSON := s.ContextJSON
	if len(contextJSON) == 0 {
		contextJSON = []byte("{}")
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO conversation_session (phone, state, context_json, customer_id, last_activity, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(phone) DO UPDATE SET
			state = excluded.state,
			context_json = excluded.context_json,
			customer_id = excluded.customer_id,
			last_activity = excluded.last_activity,
			expires_at = excluded.expires_at`,
		s.Phone, s.State, string(contextJSON), s.CustomerID,
		s.LastActivity.UTC().Unix(), s.ExpiresAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

// Delete removes the session row.
func (r *Repository) Delete(ctx context.Context, phone string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM conversation_session WHERE phone = ?`, phone); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// FindActive returns all sessions whose expires_at is in the future.
func (r *Repository) FindActive(ctx context.Context) ([]*ports.StoredSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT phone, state, context_json, customer_id, last_activity, expires_at
		 FROM conversation_session WHERE expires_at > ? ORDER BY last_activity DESC`,
		time.Now().UTC().Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	defer rows.Close()

	var list []*ports.StoredSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	return list, nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*ports.StoredSession, error) {
	var (
		s            ports.StoredSession
		contextJSON  string
		lastActivity int64
		expiresAt    int64
	)
	if err := row.Scan(&s.Phone, &s.State, &contextJSON, &s.CustomerID, &lastActivity, &expiresAt); err != nil {
		return nil, err
	}
	s.ContextJSON = []byte(contextJSON)
	s.LastActivity = time.Unix(lastActivity, 0).UTC()
	s.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return &s, nil
}
