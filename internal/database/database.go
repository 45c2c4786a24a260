package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"freshcart/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DriverName is the database/sql driver registered by pgx.
const DriverName = "pgx"

// Service owns the process-wide connection pool.
type Service interface {
	DB() *sql.DB
	Health(ctx context.Context) map[string]string
	Close() error
}

type service struct {
	db *sql.DB
}

// New opens the connection pool and verifies it with a ping.
func New(ctx context.Context, cfg config.DatabaseConfig) (Service, error) {
	db, err := sql.Open(DriverName, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &service{db: db}, nil
}

func (s *service) DB() *sql.DB {
	return s.db
}

// Health reports pool statistics and whether the database answers a ping.
func (s *service) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	stats := make(map[string]string)

	if err := s.db.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = err.Error()
		return stats
	}

	dbStats := s.db.Stats()
	stats["status"] = "up"
	stats["open_connections"] = fmt.Sprintf("%d", dbStats.OpenConnections)
	stats["in_use"] = fmt.Sprintf("%d", dbStats.InUse)
	stats["idle"] = fmt.Sprintf("%d", dbStats.Idle)
	stats["wait_count"] = fmt.Sprintf("%d", dbStats.WaitCount)

	return stats
}

func (s *service) Close() error {
	return s.db.Close()
}
