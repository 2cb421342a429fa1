package storage

import (
	"context"
	"log/slog"
	"os"

	"github.com/lovenda/lovenda/internal/events"
	"github.com/lovenda/lovenda/internal/storage/sqlite"
	"github.com/lovenda/lovenda/internal/types"
)

// DefaultPath is where the database lives when nothing else is configured
const DefaultPath = ".lovenda/lovenda.db"

// NotFoundError reports a task id with no row behind it
type NotFoundError = sqlite.NotFoundError

// StatusChangedError reports that a task left the status an update expected
type StatusChangedError = sqlite.StatusChangedError

// ExpectStatus is the UpdateTask precondition key
const ExpectStatus = sqlite.ExpectStatus

var (
	// ErrNotFound is matched by NotFoundError via errors.Is
	ErrNotFound = sqlite.ErrNotFound
	// ErrFieldNotUpdatable is returned by UpdateTask for keys outside the whitelist
	ErrFieldNotUpdatable = sqlite.ErrFieldNotUpdatable
	// ErrStatusChanged is matched by StatusChangedError via errors.Is
	ErrStatusChanged = sqlite.ErrStatusChanged
	// ErrAmbiguousID is returned by ResolveTaskID when a prefix matches several tasks
	ErrAmbiguousID = sqlite.ErrAmbiguousID
)

// Storage is the persisted task collection for every wedding
type Storage interface {
	// Tasks
	CreateTask(ctx context.Context, task *types.Task, actor string) error
	GetTask(ctx context.Context, id string) (*types.Task, error)
	ResolveTaskID(ctx context.Context, prefix string) (string, error)
	ListTasks(ctx context.Context, weddingID string) ([]types.Task, error)
	UpdateTask(ctx context.Context, id string, updates map[string]interface{}, actor string) error
	DeleteTask(ctx context.Context, id string, actor string) error

	// Generated plans
	ReplaceGenerated(ctx context.Context, weddingID string, clearPrevious bool, tasks []*types.Task, meta *types.TemplateMetadata, actor string) (int, error)
	GetTemplateMetadata(ctx context.Context, weddingID string) (*types.TemplateMetadata, error)

	// Audit trail
	StoreTaskEvent(ctx context.Context, event *events.TaskEvent) error
	GetTaskEvents(ctx context.Context, filter events.EventFilter) ([]*events.TaskEvent, error)
	CleanupEventsByAge(ctx context.Context, retentionDays, errorRetentionDays, batchSize int) (int, error)
	CleanupEventsByWeddingLimit(ctx context.Context, perWeddingLimit int) (int, error)

	// Live feed
	Subscribe(weddingID string, fn func(types.Snapshot)) (unsubscribe func())

	Close() error
}

var _ Storage = (*sqlite.SQLiteStorage)(nil)

// Config holds database configuration
type Config struct {
	// Path is the SQLite database file path.
	// ":memory:" creates an in-memory database (useful for tests).
	Path string

	Logger *slog.Logger
}

// DefaultConfig returns a config with the path from LOVENDA_DB, or DefaultPath
func DefaultConfig() *Config {
	path := DefaultPath
	if env := os.Getenv("LOVENDA_DB"); env != "" {
		path = env
	}
	return &Config{Path: path}
}

// NewStorage opens the SQLite backend described by cfg
func NewStorage(ctx context.Context, cfg *Config) (Storage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}
	return sqlite.New(ctx, path, sqlite.WithLogger(cfg.Logger))
}
