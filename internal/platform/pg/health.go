package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// WaitForDB blocks until the database behind dsn answers a ping, retrying
// with exponential backoff up to maxWait. Useful at startup when the
// database container may still be coming up.
func WaitForDB(ctx context.Context, dsn string, maxWait time.Duration) error {
	deadline := time.Now().Add(maxWait)
	interval := time.Second

	for {
		err := tryPing(ctx, dsn)
		if err == nil {
			return nil
		}
		if time.Now().Add(interval).After(deadline) {
			return fmt.Errorf("pg: database not reachable within %s: %w", maxWait, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
		interval *= 2
		if interval > 15*time.Second {
			interval = 15 * time.Second
		}
	}
}

func tryPing(ctx context.Context, dsn string) error {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return err
	}
	cfg.MaxConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return pool.Ping(pingCtx)
}
