package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/flaskr-go/flaskr/config"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const (
	defaultDBDriver    = "sqlite3"
	defaultPingTimeout = 5 * time.Second
)

// Open opens a single-connection handle to the SQLite database file.
// Rows are mapped to structs by column name through sqlx. The file's
// directory must already exist; see EnsureDir.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open(defaultDBDriver, cfg.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// EnsureDir creates the directory that holds the database file.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	return nil
}
