// Package sqlite implements repository.Store on SQLite. Entities are kept as
// JSON bodies next to indexed columns for the queryable fields and metrics.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/trendetl/internal/adapters/repository"
	"github.com/okian/trendetl/internal/domain/model"
	"github.com/okian/trendetl/pkg/logger"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store is a SQLite-backed repository.Store.
type Store struct {
	db     *sql.DB
	logger logger.Logger

	// SQLite allows one writer; writes are serialized here rather than
	// retried on SQLITE_BUSY.
	writeMu sync.Mutex

	sounds    *entities[*model.Sound]
	templates *entities[*model.Template]
	reports   *reports
	jobs      *jobs
}

var _ repository.Store = (*Store)(nil)

// Open opens or creates the database at path and applies the schema.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("sqlite")
	}

	s.sounds = &entities[*model.Sound]{store: s, spec: soundSpec}
	s.templates = &entities[*model.Template]{store: s, spec: templateSpec}
	s.reports = &reports{store: s}
	s.jobs = &jobs{store: s}

	s.logger.Info(ctx, "sqlite store opened", logger.String("path", path))
	return s, nil
}

// Sounds implements repository.Store.
func (s *Store) Sounds() repository.SoundStore { return s.sounds }

// Templates implements repository.Store.
func (s *Store) Templates() repository.TemplateStore { return s.templates }

// Reports implements repository.Store.
func (s *Store) Reports() repository.ReportStore { return s.reports }

// Jobs implements repository.Store.
func (s *Store) Jobs() repository.JobStore { return s.jobs }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn in a transaction under the write lock.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func exists(ctx context.Context, q queryer, table, id string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, err
	default:
		return true, nil
	}
}
