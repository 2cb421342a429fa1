package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/lovenda/lovenda/internal/storage/migrations"
	"github.com/lovenda/lovenda/internal/types"
)

// SQLiteStorage persists tasks, template metadata and the audit trail in a
// single SQLite file. All access goes through one connection so every read
// observes the writes before it.
type SQLiteStorage struct {
	db     *sql.DB
	logger *slog.Logger

	subMu   sync.RWMutex
	subs    map[string]map[uint64]func(types.Snapshot)
	nextSub uint64
	version atomic.Int64
}

// Option configures a SQLiteStorage
type Option func(*SQLiteStorage)

// WithLogger sets the logger used for background diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(s *SQLiteStorage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New opens (creating if needed) the database at path and brings its schema up to date
func New(ctx context.Context, path string, opts ...Option) (*SQLiteStorage, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	applied, err := migrations.NewManager(schemaMigrations...).Apply(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s := &SQLiteStorage{
		db:     db,
		logger: slog.Default(),
		subs:   make(map[string]map[uint64]func(types.Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if applied > 0 {
		s.logger.Debug("applied schema migrations", "path", path, "count", applied)
	}
	return s, nil
}

func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	if path != ":memory:" {
		q.Add("_pragma", "journal_mode(wal)")
	}
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// Close releases the database and drops all subscribers
func (s *SQLiteStorage) Close() error {
	s.subMu.Lock()
	s.subs = make(map[string]map[uint64]func(types.Snapshot))
	s.subMu.Unlock()
	return s.db.Close()
}

// withTx runs fn in a transaction, committing only when fn succeeds
func (s *SQLiteStorage) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// timeLayout is fixed width so stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
