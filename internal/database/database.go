package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	_ "modernc.org/sqlite"

	"lumina/internal/config"
	"lumina/internal/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS preferences (
	device_id  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at BIGINT NOT NULL,
	PRIMARY KEY (device_id, key)
);`

// Connect opens the preference database selected by cfg.PrefsDriver and
// makes sure its schema exists.
func Connect(cfg *config.Config, log *logger.Logger) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)

	switch cfg.PrefsDriver {
	case config.DriverPostgres:
		db, err = sqlx.Connect("postgres", postgresDSN(cfg))
	default:
		db, err = Open(cfg.PrefsDSN)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	log.Info("Connected to preference database", "driver", cfg.PrefsDriver)
	return db, nil
}

// Open opens (or creates) an SQLite database at path.
func Open(path string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	// One writer keeps SQLite from returning SQLITE_BUSY under concurrent sessions.
	db.SetMaxOpenConns(1)
	return db, nil
}

// Migrate creates the preferences table if needed.
func Migrate(db *sqlx.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func postgresDSN(cfg *config.Config) string {
	if cfg.PrefsDSN != "" {
		return cfg.PrefsDSN
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=require",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)
}
