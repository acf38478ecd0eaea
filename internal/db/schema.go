package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsTable = "schema_migrations"

const dropSchema = `
DROP TABLE IF EXISTS post;
DROP TABLE IF EXISTS user;
DROP TABLE IF EXISTS ` + migrationsTable + `;`

// InitSchema drops all blog data and recreates the user and post tables.
// The caller keeps ownership of conn.
func InitSchema(ctx context.Context, conn *sql.DB) error {
	if _, err := conn.ExecContext(ctx, dropSchema); err != nil {
		return fmt.Errorf("drop schema failed: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations failed: %w", err)
	}

	driver, err := sqlite3.WithInstance(conn, &sqlite3.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return fmt.Errorf("init migration driver failed: %w", err)
	}

	// migrate.Close would close conn as well, so the migrator is left to the GC.
	migrator, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("init migrator failed: %w", err)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up failed: %w", err)
	}
	return nil
}
