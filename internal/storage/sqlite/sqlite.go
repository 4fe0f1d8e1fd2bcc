// Package sqlite implements the relational index: schema, migrations,
// CRUD for nodes and their child tables, the filter engine, FTS, the
// embedding index, graph traversal, and semantic search, all against a
// single embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/Whamp/sessionkg/internal/contentstore"
	"github.com/Whamp/sessionkg/internal/storeerr"
)

func init() {
	sqlite_vec.Auto()
}

// Options configures a new Storage instance. The vector dimension is
// fixed the first time migrations run and may not change afterwards.
type Options struct {
	// Path is the database file path. ":memory:" is accepted for tests.
	Path string
	// VectorDim is the fixed embedding dimension node_embeddings_vec is
	// created with. Required on first open; ignored on subsequent opens
	// against an existing database (the stored kv_config value wins).
	VectorDim int
	// EmbeddingModel is recorded in kv_config for observability; it does not
	// gate writes the way VectorDim does.
	EmbeddingModel string
}

// Storage is the engine's relational index: a single embedded SQLite
// database plus the FTS5 and vec0 virtual tables layered on top of it.
type Storage struct {
	db        *sql.DB
	vectorDim int
	content   *contentstore.Store
}

// Open opens (creating if necessary) the database at opts.Path, runs
// migrations, and returns a ready Storage. Single-writer: callers must
// not share a Storage across processes.
func Open(opts Options) (*Storage, error) {
	dsn := opts.Path
	if dsn != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", opts.Path)
	} else {
		dsn = "file::memory:?_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, storeerr.Wrap("sqlite.Open", err)
	}
	// A single connection preserves single-writer semantics and keeps
	// in-memory test databases from losing state across pooled conns.
	db.SetMaxOpenConns(1)

	s := &Storage{db: db}
	if err := s.migrate(opts); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Storage) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for collaborators (e.g. a CLI admin
// command) that need raw access beyond this package's surface.
func (s *Storage) DB() *sql.DB { return s.db }

// VectorDim returns the fixed embedding dimension node_embeddings_vec was
// created with.
func (s *Storage) VectorDim() int { return s.vectorDim }

// withTx runs fn inside a transaction, committing on success and rolling
// back otherwise.
func (s *Storage) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.beginImmediate(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storeerr.Wrap("sqlite.commit", err)
	}
	committed = true
	return nil
}

// beginImmediate starts a transaction, retrying briefly on SQLITE_BUSY.
func (s *Storage) beginImmediate(ctx context.Context) (*sql.Tx, error) {
	const maxAttempts = 5
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err == nil {
			return tx, nil
		}
		lastErr = err
		time.Sleep(time.Duration(attempt+1) * 20 * time.Millisecond)
	}
	return nil, storeerr.Wrap("sqlite.beginImmediate", lastErr)
}

// clearAllData truncates every table, auxiliary ones included. Runs inside
// one transaction so a crash mid-clear never leaves a partially-wiped
// database.
func (s *Storage) clearAllData(ctx context.Context) error {
	tables := []string{
		"tags", "topics", "lesson_tags", "lessons", "model_quirks",
		"tool_errors", "daemon_decisions", "edges", "node_embeddings",
		"analysis_queue", "failure_patterns", "lesson_patterns", "nodes",
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, t := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
				return storeerr.Wrapf(err, "sqlite.clearAllData: %s", t)
			}
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM nodes_fts"); err != nil {
			// FTS table may not exist in builds without FTS5; not fatal.
			_ = err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM node_embeddings_vec"); err != nil {
			_ = err
		}
		return nil
	})
}

// ClearAllData is the exported admin entry point.
func (s *Storage) ClearAllData(ctx context.Context) error {
	return s.clearAllData(ctx)
}
