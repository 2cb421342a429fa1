package migrations

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

var widgetTable = Migration{
	Version:     1,
	Description: "Add widget table",
	Up: `
		CREATE TABLE IF NOT EXISTS widgets (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL
		)
	`,
	Down: `DROP TABLE IF EXISTS widgets`,
}

var widgetColour = Migration{
	Version:     2,
	Description: "Add widget colour",
	Up:          `ALTER TABLE widgets ADD COLUMN colour TEXT NOT NULL DEFAULT ''`,
	Down:        `ALTER TABLE widgets DROP COLUMN colour`,
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "m.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestApplyAndRollback(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)

	manager := NewManager(widgetColour, widgetTable)
	if manager.Latest() != 2 {
		t.Fatalf("expected latest 2, got %d", manager.Latest())
	}

	applied, err := manager.Apply(ctx, db)
	if err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}
	if applied != 2 {
		t.Errorf("expected 2 migrations applied, got %d", applied)
	}

	version, err := CurrentVersion(ctx, db)
	if err != nil {
		t.Fatalf("failed to read version: %v", err)
	}
	if version != 2 {
		t.Errorf("expected version 2, got %d", version)
	}

	if _, err := db.Exec("INSERT INTO widgets (id, name, colour) VALUES (1, 'w', 'red')"); err != nil {
		t.Fatalf("migrated table not usable: %v", err)
	}

	if err := manager.Rollback(ctx, db); err != nil {
		t.Fatalf("failed to rollback: %v", err)
	}
	version, _ = CurrentVersion(ctx, db)
	if version != 1 {
		t.Errorf("expected version 1 after rollback, got %d", version)
	}
	if _, err := db.Exec("INSERT INTO widgets (id, name, colour) VALUES (2, 'w', 'blue')"); err == nil {
		t.Error("colour column should have been dropped")
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	manager := NewManager(widgetTable)

	if _, err := manager.Apply(ctx, db); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	applied, err := manager.Apply(ctx, db)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if applied != 0 {
		t.Errorf("expected nothing to apply, got %d", applied)
	}
}

func TestFailedMigrationKeepsVersion(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	broken := Migration{Version: 2, Description: "broken", Up: "CREATE TABLE"}
	manager := NewManager(widgetTable, broken)

	applied, err := manager.Apply(ctx, db)
	if err == nil {
		t.Fatal("expected error from broken migration")
	}
	if applied != 1 {
		t.Errorf("expected 1 migration applied before failure, got %d", applied)
	}
	version, _ := CurrentVersion(ctx, db)
	if version != 1 {
		t.Errorf("expected version 1, got %d", version)
	}
}

func TestRollbackOnFreshDatabase(t *testing.T) {
	db := openDB(t)
	if err := NewManager(widgetTable).Rollback(context.Background(), db); err == nil {
		t.Error("expected error rolling back a fresh database")
	}
}
