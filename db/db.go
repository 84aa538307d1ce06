package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

const (
	minReconnectInterval = 2 * time.Second
	maxReconnectInterval = 30 * time.Second
)

// Connect opens a pooled connection to the shared store and verifies
// it within the timeout. The pool is sized for a single table agent,
// not a fleet; each device runs its own process.
func Connect(dsn string, timeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create database handle: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database within %v: %w (close also failed: %v)", timeout, err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database within %v: %w", timeout, err)
	}

	return db, nil
}

// NewListener opens a dedicated LISTEN connection. lib/pq reconnects
// it on its own; the callback only logs, since every subscription has
// a polling fallback that re-reads whatever notifications were missed.
func NewListener(dsn string, logger *slog.Logger) *pq.Listener {
	return pq.NewListener(dsn, minReconnectInterval, maxReconnectInterval, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("listener connection event", slog.Int("event", int(ev)), slog.Any("error", err))
		}
	})
}
