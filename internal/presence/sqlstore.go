package presence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"liveqa/internal/qa"
)

// SQLStore keeps participant records in the participant table (see
// internal/db/migrations). The queries run unchanged on Postgres through
// pgx's stdlib driver and on SQLite.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore returns a store backed by db.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const upsertParticipant = `
INSERT INTO participant (event_id, identity_key, user_id, session_id, joined_at, last_active_at)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (event_id, identity_key) DO UPDATE SET last_active_at = excluded.last_active_at
`

// Upsert creates the record for id or bumps its last-active timestamp.
func (s *SQLStore) Upsert(ctx context.Context, eventID string, id qa.Identity, at time.Time) error {
	key := id.Key()
	if key == "" {
		return ErrNoIdentity
	}
	_, err := s.db.ExecContext(ctx, upsertParticipant,
		eventID, key, nullString(id.UserID), nullString(id.SessionID), at.UTC())
	if err != nil {
		return fmt.Errorf("upsert participant: %w", err)
	}
	return nil
}

// Count returns the number of participant records for eventID.
func (s *SQLStore) Count(ctx context.Context, eventID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM participant WHERE event_id = $1`, eventID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
