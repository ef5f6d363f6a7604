package repository

import (
	"fmt"
	"time"

	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/config"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // cgo-free sqlite driver
)

// NewDB opens the record store: Postgres when a DSN is configured,
// otherwise a local SQLite file. The schema is dialect-neutral, so both
// run the same embedded migrations and the same queries.
func NewDB(cfg *config.Config) (*sqlx.DB, error) {
	if cfg != nil && cfg.Database.DSN != "" {
		db, err := sqlx.Connect("pgx", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to db: %w", err)
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(1 * time.Hour)

		if err := RunMigrations(db.DB, "pgx"); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	}

	path := "./balgate.db"
	if cfg != nil && cfg.Database.SQLitePath != "" {
		path = cfg.Database.SQLitePath
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", path)

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	// Single writer avoids "database is locked" under concurrent cycles.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(db.DB, "sqlite"); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
