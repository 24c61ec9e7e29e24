// Package store implements cloudemu's storage engine: a typed operation
// per entity family (spec.md §4.2) backed by an embedded SQLite metadata
// store and a content-addressed blob area on disk. Every exported method
// on Engine is sequentially consistent with every other — Engine.mu is the
// single write-serialization point spec.md §5 calls for.
package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/NVIDIA/cloudemu/cmn"
	"github.com/NVIDIA/cloudemu/store/blob"
)

// Engine is the process-wide storage engine handle. It has no package-level
// global: callers construct one in cmd/cloudemu and thread it through the
// router and every protocol adapter explicitly, per SPEC_FULL.md §9's
// "Global mutable state → engine handle" design note.
type Engine struct {
	mu     sync.Mutex
	db     *sqlx.DB
	blobs  *blob.Store
	region string
}

// Open creates (or reopens) the engine rooted at dataDir: dataDir/metadata.db
// for the SQL store, dataDir/objects for blobs.
func Open(dataDir, region string) (*Engine, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	dsn := filepath.Join(dataDir, "metadata.db")
	sqlDB, err := sql.Open("sqlite", dsn+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, err
	}
	// A single logical connection: the spec calls for "single connection
	// guarded by a mutex", and Engine.mu is that mutex. Limiting the pool to
	// one avoids SQLite's writer-lock contention masquerading as a second
	// serialization point.
	sqlDB.SetMaxOpenConns(1)
	if err := migrate(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}
	bstore, err := blob.Open(filepath.Join(dataDir, "objects"))
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	return &Engine{
		db:     sqlx.NewDb(sqlDB, "sqlite"),
		blobs:  bstore,
		region: region,
	}, nil
}

// OpenInMemory is the in-memory analogue used by tests.
func OpenInMemory(tmpObjectsDir, region string) (*Engine, error) {
	sqlDB, err := sql.Open("sqlite", "file::memory:?cache=shared&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := migrate(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}
	bstore, err := blob.Open(tmpObjectsDir)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	return &Engine{db: sqlx.NewDb(sqlDB, "sqlite"), blobs: bstore, region: region}, nil
}

func (e *Engine) Close() error { return e.db.Close() }

func (e *Engine) Region() string { return e.region }

// dbErr maps a raw database/sql error to cmn.Error, recognizing SQLite's
// unique-constraint wording the way the Rust original's engine.rs keyed off
// "UNIQUE constraint" substring matching on rusqlite errors.
func dbErr(err error) *cmn.Error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if containsUniqueConstraint(msg) {
		return cmn.ErrAlreadyExists("row", "unique constraint")
	}
	return cmn.ErrDatabase(errors.Wrap(err, "store"))
}

func containsUniqueConstraint(msg string) bool {
	return strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "constraint failed")
}
