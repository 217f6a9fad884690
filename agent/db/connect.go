// Package db opens the embedded libsql database and brings its schema up to
// date with goose migrations.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	_ "github.com/tursodatabase/go-libsql"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Connect opens (creating if needed) the embedded database at path, applies
// pending migrations, and verifies the FTS5 build capability the snippet
// index depends on.
func Connect(path string, logger zerolog.Logger) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create database directory %s: %w", dir, err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info().Str("path", path).Msg("database not found, creating a new one")
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("could not create db at %s: %w", path, err)
		}
		f.Close()
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=1&_journal_mode=WAL&_synchronous=NORMAL", path)
	conn, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open libsql connection: %w", err)
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	if err := verify(conn, logger); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func migrate(conn *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(conn, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// verify probes basic connectivity and the FTS5 capability of the build.
func verify(conn *sql.DB, logger zerolog.Logger) error {
	ctx := context.Background()

	var one int
	if err := conn.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("connectivity probe failed: %w", err)
	}

	if _, err := conn.ExecContext(ctx,
		"CREATE VIRTUAL TABLE IF NOT EXISTS temp._fts5_probe USING fts5(content)"); err != nil {
		logger.Warn().Err(err).Msg("fts5 not available in this build, snippet search degrades to the in-memory index")
	} else {
		_, _ = conn.ExecContext(ctx, "DROP TABLE IF EXISTS temp._fts5_probe")
	}
	return nil
}
