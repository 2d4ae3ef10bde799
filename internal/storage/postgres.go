package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"soundlink/internal/shared"
)

// PostgresJournal stores entries in PostgreSQL via a pgx pool.
type PostgresJournal struct {
	pool *pgxpool.Pool
}

// NewPostgresJournal wraps a connected, migrated pool.
func NewPostgresJournal(pool *pgxpool.Pool) *PostgresJournal {
	return &PostgresJournal{pool: pool}
}

// Append implements Journal.
func (j *PostgresJournal) Append(ctx context.Context, e Entry) error {
	_, err := j.pool.Exec(ctx,
		`INSERT INTO reconnect_attempts (client_id, attempt, success, duration_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.ClientID, e.Attempt, e.Success, e.DurationMs, e.CreatedAt.UTC())
	return shared.Wrap(err, "pg journal append")
}

// RecentByClient implements Journal.
func (j *PostgresJournal) RecentByClient(ctx context.Context, clientID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.pool.Query(ctx,
		`SELECT id, client_id, attempt, success, duration_ms, created_at
		 FROM reconnect_attempts
		 WHERE client_id = $1
		 ORDER BY id DESC
		 LIMIT $2`,
		clientID, limit)
	if err != nil {
		return nil, shared.Wrap(err, "pg journal query")
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ClientID, &e.Attempt, &e.Success, &e.DurationMs, &e.CreatedAt); err != nil {
			return nil, shared.Wrap(err, "scan journal entry")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune implements Journal.
func (j *PostgresJournal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := j.pool.Exec(ctx,
		`DELETE FROM reconnect_attempts WHERE created_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, shared.Wrap(err, "pg journal prune")
	}
	return tag.RowsAffected(), nil
}

// Close implements Journal.
func (j *PostgresJournal) Close() error {
	j.pool.Close()
	return nil
}
