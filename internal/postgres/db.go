package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// The loyalty ledger does one short insert per order, so the pool stays
// small and lets idle connections go.
const (
	maxConns        = 4
	maxConnIdleTime = 5 * time.Minute
	maxConnLifetime = time.Hour
	pingTimeout     = 5 * time.Second
)

// Connect opens the pool and fails fast when the database is unreachable.
// app is reported as application_name unless the DSN already sets one.
func Connect(ctx context.Context, dsn, app string) (*pgxpool.Pool, error) {
	cfg, err := poolConfig(dsn, app)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.ConnConfig.Host, err)
	}
	return pool, nil
}

func poolConfig(dsn, app string) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = maxConns
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = maxConnIdleTime
	cfg.MaxConnLifetime = maxConnLifetime
	cfg.HealthCheckPeriod = 30 * time.Second
	if app != "" && cfg.ConnConfig.RuntimeParams["application_name"] == "" {
		cfg.ConnConfig.RuntimeParams["application_name"] = app
	}
	return cfg, nil
}
