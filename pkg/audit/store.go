// Package audit persists the access-decision trail: remote decisions,
// local denials and remote failures, queryable from the admin audit
// screen. It implements the decision engine's Recorder contract.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/qrmfg/portal/pkg/observability"
)

// Entry is one recorded access decision.
type Entry struct {
	ID          int64     `json:"id"`
	PrincipalID string    `json:"principal_id"`
	Resource    string    `json:"resource"`
	Granted     bool      `json:"granted"`
	Source      string    `json:"source"`
	Reason      string    `json:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store writes and reads decision audit entries through database/sql.
type Store struct {
	db  *sql.DB
	log *observability.Logger
}

// NewStore creates an audit store over an open database handle.
func NewStore(db *sql.DB, log *observability.Logger) *Store {
	if log == nil {
		log = observability.NewLogger(observability.InfoLevel, os.Stdout)
	}
	return &Store{db: db, log: log.WithComponent("audit")}
}

// Migrate creates the audit table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS access_audit (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			principal_id TEXT NOT NULL,
			resource TEXT NOT NULL,
			granted INTEGER NOT NULL,
			source TEXT NOT NULL,
			reason TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create access_audit table: %w", err)
	}
	return nil
}

// RecordDecision satisfies the engine's Recorder contract. Failures are
// logged, never propagated: the audit trail must not affect decisions.
func (s *Store) RecordDecision(ctx context.Context, principalID, resource string, granted bool, source, reason string) {
	if err := s.insert(ctx, principalID, resource, granted, source, reason); err != nil {
		s.log.WithError(err).Warn("failed to record access decision")
	}
}

func (s *Store) insert(ctx context.Context, principalID, resource string, granted bool, source, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO access_audit (principal_id, resource, granted, source, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, principalID, resource, granted, source, reason, time.Now().UTC())
	return err
}

// Recent returns the newest entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, principal_id, resource, granted, source, reason, created_at
		FROM access_audit
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var reason sql.NullString
		if err := rows.Scan(&e.ID, &e.PrincipalID, &e.Resource, &e.Granted, &e.Source, &reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Reason = reason.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
