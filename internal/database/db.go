package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/iliyamo/visit-counter/internal/config"
)

// counterSchema backs the mysql counter store.  value is unsigned since the
// counter only ever grows.
const counterSchema = `CREATE TABLE IF NOT EXISTS counters (
	name  VARCHAR(191) NOT NULL PRIMARY KEY,
	value BIGINT UNSIGNED NOT NULL
) ENGINE=InnoDB`

// Open builds the MySQL pool.  It does not dial: only a malformed DSN fails
// here.  Reachability is checked separately by Ping so that the server can
// start while the database is still down.
func Open(cfg config.DBConfig) (*sql.DB, error) {
	auth := cfg.User
	if cfg.Pass != "" {
		auth = fmt.Sprintf("%s:%s", cfg.User, cfg.Pass)
	}
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC&timeout=5s",
		auth, cfg.Host, cfg.Port, cfg.Name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// Ping checks the database with a five second budget.
func Ping(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// EnsureSchema creates the counters table when it is missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, counterSchema); err != nil {
		return fmt.Errorf("create counters table: %w", err)
	}
	return nil
}
