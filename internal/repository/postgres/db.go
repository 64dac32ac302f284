package postgres

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"recivo/internal/config"
)

// connectTimeout bounds the initial connection attempt so a misconfigured
// DSN fails startup quickly instead of hanging.
const connectTimeout = 10 * time.Second

// NewDB creates a PostgreSQL connection pool sized from config. Receipt
// processing runs in background goroutines alongside request handling, so
// connections are recycled on a fixed lifetime to survive failovers.
func NewDB(cfg *config.DBConfig) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres %s/%s: %w", cfg.Host, cfg.Name, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpen)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}
