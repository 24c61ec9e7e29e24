package store

import (
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrate brings db up to the latest schema version using goose, the
// idiomatic Go analogue of the original implementation's one-shot
// `conn.execute_batch(SCHEMA)` — except ours is versioned and safe to run
// against an already-migrated database on every restart.
func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}
