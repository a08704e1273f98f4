package database

import (
	"context"
	"database/sql"
	"fmt"

	"smart2onyma/common/config"

	_ "github.com/lib/pq"
	_ "github.com/sijms/go-ora/v2"
)

// NewDB opens the source billing database for the configured dialect
func NewDB(ctx context.Context, cfg *config.DatabaseConfig) (*sql.DB, error) {
	driver, err := cfg.DriverName()
	if err != nil {
		return nil, err
	}
	dsn, err := cfg.GetDSN()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Close closes the database if it was opened
func Close(db *sql.DB) error {
	if db != nil {
		return db.Close()
	}
	return nil
}
