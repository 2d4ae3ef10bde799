package storage

import (
	"context"
	"database/sql"
	"time"

	"soundlink/internal/shared"
)

// SQLiteJournal stores entries in an embedded SQLite database.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal wraps an opened, migrated database.
func NewSQLiteJournal(db *sql.DB) *SQLiteJournal {
	return &SQLiteJournal{db: db}
}

// Append implements Journal.
func (j *SQLiteJournal) Append(ctx context.Context, e Entry) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO reconnect_attempts (client_id, attempt, success, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.ClientID, e.Attempt, e.Success, e.DurationMs, e.CreatedAt.UTC())
	return shared.Wrap(err, "sqlite journal append")
}

// RecentByClient implements Journal.
func (j *SQLiteJournal) RecentByClient(ctx context.Context, clientID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, client_id, attempt, success, duration_ms, created_at
		 FROM reconnect_attempts
		 WHERE client_id = ?
		 ORDER BY id DESC
		 LIMIT ?`,
		clientID, limit)
	if err != nil {
		return nil, shared.Wrap(err, "sqlite journal query")
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Prune implements Journal.
func (j *SQLiteJournal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx,
		`DELETE FROM reconnect_attempts WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, shared.Wrap(err, "sqlite journal prune")
	}
	return res.RowsAffected()
}

// Close implements Journal.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
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
