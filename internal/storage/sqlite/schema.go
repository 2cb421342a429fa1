package sqlite

import "github.com/lovenda/lovenda/internal/storage/migrations"

// schemaMigrations is the full schema history. Append new versions, never edit old ones.
var schemaMigrations = []migrations.Migration{
	{
		Version:     1,
		Description: "tasks",
		Up: `
-- Task checklist, one row per task. Tags, subtasks and metadata are JSON documents.
CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    wedding_id TEXT NOT NULL,
    title TEXT NOT NULL CHECK(length(title) <= 500),
    category TEXT NOT NULL DEFAULT '',
    notes TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '[]',
    due_date TEXT,
    completed INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'pending',
    is_critical INTEGER NOT NULL DEFAULT 0,
    priority TEXT NOT NULL DEFAULT 'medium',
    subtasks TEXT NOT NULL DEFAULT '[]',
    metadata TEXT NOT NULL DEFAULT '{}',
    origin TEXT NOT NULL DEFAULT 'user',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    CHECK ((status = 'completed') = (completed = 1))
);

CREATE INDEX IF NOT EXISTS idx_tasks_wedding ON tasks(wedding_id);
CREATE INDEX IF NOT EXISTS idx_tasks_wedding_origin ON tasks(wedding_id, origin);
`,
		Down: `DROP TABLE IF EXISTS tasks;`,
	},
	{
		Version:     2,
		Description: "template metadata",
		Up: `
-- Last template applied to each wedding
CREATE TABLE IF NOT EXISTS template_metadata (
    wedding_id TEXT PRIMARY KEY,
    data TEXT NOT NULL,
    used_ai INTEGER NOT NULL DEFAULT 0,
    generated_at TEXT NOT NULL
);
`,
		Down: `DROP TABLE IF EXISTS template_metadata;`,
	},
	{
		Version:     3,
		Description: "task events",
		Up: `
-- Audit trail
CREATE TABLE IF NOT EXISTS task_events (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    timestamp TEXT NOT NULL,
    wedding_id TEXT NOT NULL,
    task_id TEXT NOT NULL DEFAULT '',
    actor TEXT NOT NULL DEFAULT '',
    severity TEXT NOT NULL DEFAULT 'info',
    message TEXT NOT NULL DEFAULT '',
    data TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_task_events_wedding ON task_events(wedding_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_task_events_task ON task_events(task_id);
`,
		Down: `DROP TABLE IF EXISTS task_events;`,
	},
}
