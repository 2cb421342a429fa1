package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/lovenda/lovenda/internal/events"
	"github.com/lovenda/lovenda/internal/types"
)

const taskColumns = `id, wedding_id, title, category, notes, tags, due_date, completed,
	status, is_critical, priority, subtasks, metadata, origin, created_at, updated_at`

// updatableFields are the keys UpdateTask accepts. The completed flag is
// derived from status and never written directly.
var updatableFields = map[string]bool{
	"title":       true,
	"category":    true,
	"notes":       true,
	"due_date":    true,
	"status":      true,
	"is_critical": true,
	"priority":    true,
	"tags":        true,
	"subtasks":    true,
	"metadata":    true,
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// prepareTask fills defaults for a new task and checks it
func prepareTask(task *types.Task, now time.Time) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.Status == "" {
		task.Status = types.StatusPending
	}
	if task.Priority == "" {
		task.Priority = types.PriorityMedium
	}
	if task.Origin == "" {
		task.Origin = types.OriginUser
	}
	task.SetStatus(task.Status)
	for i := range task.Subtasks {
		if task.Subtasks[i].ID == "" {
			task.Subtasks[i].ID = uuid.New().String()
		}
	}
	task.CreatedAt = now
	task.UpdatedAt = now
	if err := task.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// CreateTask inserts a task, assigning an id and defaults where missing
func (s *SQLiteStorage) CreateTask(ctx context.Context, task *types.Task, actor string) error {
	if err := prepareTask(task, time.Now()); err != nil {
		return err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertTask(ctx, tx, task); err != nil {
			return err
		}
		event := events.NewTaskEvent(events.EventTypeTaskCreated, task.WeddingID, task.ID, actor,
			events.SeverityInfo, fmt.Sprintf("created %q", task.Title), map[string]interface{}{"origin": string(task.Origin)})
		return insertEvent(ctx, tx, event)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, task.WeddingID)
	return nil
}

func insertTask(ctx context.Context, ex execer, task *types.Task) error {
	tags, err := json.Marshal(nonNilTags(task.Tags))
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	subtasks, err := json.Marshal(nonNilSubtasks(task.Subtasks))
	if err != nil {
		return fmt.Errorf("failed to marshal subtasks: %w", err)
	}
	metadata, err := json.Marshal(task.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		task.ID, task.WeddingID, task.Title, task.Category, task.Notes, string(tags),
		nullTime(task.DueDate), boolInt(task.Completed), task.Status, boolInt(task.IsCritical),
		task.Priority, string(subtasks), string(metadata), task.Origin,
		formatTime(task.CreatedAt), formatTime(task.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert task %s: %w", task.ID, err)
	}
	return nil
}

// GetTask retrieves a task by id. A missing id yields a *NotFoundError.
func (s *SQLiteStorage) GetTask(ctx context.Context, id string) (*types.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task %s: %w", id, err)
	}
	return task, nil
}

// ListTasks returns every task of a wedding in insertion order
func (s *SQLiteStorage) ListTasks(ctx context.Context, weddingID string) ([]types.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE wedding_id = ? ORDER BY rowid`, weddingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []types.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return tasks, nil
}

// ResolveTaskID expands an id prefix to the full task id. An exact match wins;
// otherwise the prefix must match exactly one task.
func (s *SQLiteStorage) ResolveTaskID(ctx context.Context, prefix string) (string, error) {
	if prefix == "" {
		return "", &NotFoundError{ID: prefix}
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM tasks WHERE id = ? OR substr(id, 1, ?) = ? ORDER BY id LIMIT 11`,
		prefix, len(prefix), prefix)
	if err != nil {
		return "", fmt.Errorf("failed to resolve task id: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("failed to scan task id: %w", err)
		}
		if id == prefix {
			return id, nil
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("failed to iterate task ids: %w", err)
	}

	switch len(ids) {
	case 0:
		return "", &NotFoundError{ID: prefix}
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %q matches %d tasks", ErrAmbiguousID, prefix, len(ids))
	}
}

// UpdateTask applies a partial update. Keys must come from the updatable set;
// a status change also sets the completed flag.
func (s *SQLiteStorage) UpdateTask(ctx context.Context, id string, updates map[string]interface{}, actor string) error {
	var expect types.Status
	if v, ok := updates[ExpectStatus]; ok {
		switch st := v.(type) {
		case types.Status:
			expect = st
		case string:
			expect = types.Status(st)
		default:
			return fmt.Errorf("invalid value for %s: %T", ExpectStatus, v)
		}
	}

	fields := make([]string, 0, len(updates))
	for key := range updates {
		if key == ExpectStatus {
			continue
		}
		if !updatableFields[key] {
			return fmt.Errorf("%w: %s", ErrFieldNotUpdatable, key)
		}
		fields = append(fields, key)
	}
	sort.Strings(fields)

	var weddingID string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
		task, err := scanTask(row)
		if errors.Is(err, sql.ErrNoRows) {
			return &NotFoundError{ID: id}
		}
		if err != nil {
			return fmt.Errorf("failed to load task %s: %w", id, err)
		}
		weddingID = task.WeddingID
		oldStatus := task.Status
		if expect != "" && oldStatus != expect {
			return &StatusChangedError{ID: id, Expected: expect, Actual: oldStatus}
		}

		for _, key := range fields {
			if err := applyField(task, key, updates[key]); err != nil {
				return err
			}
		}
		task.SetStatus(task.Status)
		task.UpdatedAt = time.Now()
		if err := task.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		if err := writeTask(ctx, tx, task); err != nil {
			return err
		}

		var edited []string
		for _, f := range fields {
			if f != "status" {
				edited = append(edited, f)
			}
		}
		if task.Status != oldStatus {
			event, err := events.NewStatusChangedEvent(task.WeddingID, task.ID, actor,
				fmt.Sprintf("%s -> %s", oldStatus, task.Status),
				events.StatusChangedData{From: string(oldStatus), To: string(task.Status)})
			if err != nil {
				return err
			}
			if err := insertEvent(ctx, tx, event); err != nil {
				return err
			}
		}
		if len(edited) > 0 {
			event, err := events.NewTaskUpdatedEvent(task.WeddingID, task.ID, actor,
				fmt.Sprintf("updated %v", edited), events.TaskUpdatedData{Fields: edited})
			if err != nil {
				return err
			}
			if err := insertEvent(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, weddingID)
	return nil
}

func writeTask(ctx context.Context, ex execer, task *types.Task) error {
	tags, err := json.Marshal(nonNilTags(task.Tags))
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	subtasks, err := json.Marshal(nonNilSubtasks(task.Subtasks))
	if err != nil {
		return fmt.Errorf("failed to marshal subtasks: %w", err)
	}
	metadata, err := json.Marshal(task.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = ex.ExecContext(ctx, `
		UPDATE tasks SET
			title = ?, category = ?, notes = ?, tags = ?, due_date = ?, completed = ?,
			status = ?, is_critical = ?, priority = ?, subtasks = ?, metadata = ?, updated_at = ?
		WHERE id = ?
	`,
		task.Title, task.Category, task.Notes, string(tags), nullTime(task.DueDate),
		boolInt(task.Completed), task.Status, boolInt(task.IsCritical), task.Priority,
		string(subtasks), string(metadata), formatTime(task.UpdatedAt), task.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", task.ID, err)
	}
	return nil
}

// applyField sets one whitelisted field from a loosely typed update value
func applyField(task *types.Task, key string, value interface{}) error {
	bad := func() error {
		return fmt.Errorf("invalid value for %s: %T", key, value)
	}

	switch key {
	case "title", "category", "notes":
		v, ok := value.(string)
		if !ok {
			return bad()
		}
		switch key {
		case "title":
			task.Title = v
		case "category":
			task.Category = v
		default:
			task.Notes = v
		}
	case "due_date":
		switch v := value.(type) {
		case nil:
			task.DueDate = nil
		case time.Time:
			task.DueDate = &v
		case *time.Time:
			if v == nil {
				task.DueDate = nil
			} else {
				d := *v
				task.DueDate = &d
			}
		default:
			return bad()
		}
	case "status":
		switch v := value.(type) {
		case types.Status:
			task.Status = v
		case string:
			task.Status = types.Status(v)
		default:
			return bad()
		}
	case "is_critical":
		v, ok := value.(bool)
		if !ok {
			return bad()
		}
		task.IsCritical = v
	case "priority":
		switch v := value.(type) {
		case types.Priority:
			task.Priority = v
		case string:
			task.Priority = types.Priority(v)
		default:
			return bad()
		}
	case "tags":
		v, ok := value.([]types.Tag)
		if !ok {
			return bad()
		}
		task.Tags = append([]types.Tag(nil), v...)
	case "subtasks":
		v, ok := value.([]types.Subtask)
		if !ok {
			return bad()
		}
		task.Subtasks = append([]types.Subtask(nil), v...)
		for i := range task.Subtasks {
			if task.Subtasks[i].ID == "" {
				task.Subtasks[i].ID = uuid.New().String()
			}
		}
	case "metadata":
		v, ok := value.(types.TaskMetadata)
		if !ok {
			return bad()
		}
		task.Metadata = v.Clone()
	default:
		return fmt.Errorf("%w: %s", ErrFieldNotUpdatable, key)
	}
	return nil
}

// DeleteTask removes a task. A missing id yields a *NotFoundError.
func (s *SQLiteStorage) DeleteTask(ctx context.Context, id string, actor string) error {
	var weddingID string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var title string
		err := tx.QueryRowContext(ctx, `SELECT wedding_id, title FROM tasks WHERE id = ?`, id).Scan(&weddingID, &title)
		if errors.Is(err, sql.ErrNoRows) {
			return &NotFoundError{ID: id}
		}
		if err != nil {
			return fmt.Errorf("failed to load task %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete task %s: %w", id, err)
		}
		event := events.NewTaskEvent(events.EventTypeTaskDeleted, weddingID, id, actor,
			events.SeverityInfo, fmt.Sprintf("deleted %q", title), nil)
		return insertEvent(ctx, tx, event)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, weddingID)
	return nil
}

// ReplaceGenerated installs a generated plan for a wedding in one transaction:
// optionally removing every generator-origin task, inserting the new tasks and
// recording the template metadata. User-origin tasks are never removed.
// It returns how many tasks were removed.
func (s *SQLiteStorage) ReplaceGenerated(ctx context.Context, weddingID string, clearPrevious bool, tasks []*types.Task, meta *types.TemplateMetadata, actor string) (int, error) {
	now := time.Now()
	for _, task := range tasks {
		task.WeddingID = weddingID
		if task.Origin == "" {
			task.Origin = types.OriginGenerator
		}
		if err := prepareTask(task, now); err != nil {
			return 0, err
		}
	}

	removed := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if clearPrevious {
			res, err := tx.ExecContext(ctx,
				`DELETE FROM tasks WHERE wedding_id = ? AND origin = ?`, weddingID, types.OriginGenerator)
			if err != nil {
				return fmt.Errorf("failed to clear generated tasks: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to count cleared tasks: %w", err)
			}
			removed = int(n)
		}

		for _, task := range tasks {
			if err := insertTask(ctx, tx, task); err != nil {
				return err
			}
		}

		if meta != nil {
			meta.WeddingID = weddingID
			if meta.GeneratedAt.IsZero() {
				meta.GeneratedAt = now
			}
			if err := upsertTemplateMetadata(ctx, tx, meta); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Debug("replaced generated tasks", "wedding", weddingID, "actor", actor, "removed", removed, "created", len(tasks))
	s.publish(ctx, weddingID)
	return removed, nil
}

func scanTask(row rowScanner) (*types.Task, error) {
	var (
		task                     types.Task
		tags, subtasks, metadata string
		dueDate                  sql.NullString
		completed, isCritical    int
		createdAt, updatedAt     string
	)
	err := row.Scan(
		&task.ID, &task.WeddingID, &task.Title, &task.Category, &task.Notes, &tags, &dueDate,
		&completed, &task.Status, &isCritical, &task.Priority, &subtasks, &metadata,
		&task.Origin, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Completed = completed != 0
	task.IsCritical = isCritical != 0
	if dueDate.Valid {
		d, err := parseTime(dueDate.String)
		if err != nil {
			return nil, fmt.Errorf("invalid due_date %q: %w", dueDate.String, err)
		}
		task.DueDate = &d
	}
	if task.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	if task.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at %q: %w", updatedAt, err)
	}
	if err := json.Unmarshal([]byte(tags), &task.Tags); err != nil {
		return nil, fmt.Errorf("invalid tags: %w", err)
	}
	if err := json.Unmarshal([]byte(subtasks), &task.Subtasks); err != nil {
		return nil, fmt.Errorf("invalid subtasks: %w", err)
	}
	if err := json.Unmarshal([]byte(metadata), &task.Metadata); err != nil {
		return nil, fmt.Errorf("invalid metadata: %w", err)
	}
	if len(task.Tags) == 0 {
		task.Tags = nil
	}
	if len(task.Subtasks) == 0 {
		task.Subtasks = nil
	}
	return &task, nil
}

func nonNilTags(tags []types.Tag) []types.Tag {
	if tags == nil {
		return []types.Tag{}
	}
	return tags
}

func nonNilSubtasks(subtasks []types.Subtask) []types.Subtask {
	if subtasks == nil {
		return []types.Subtask{}
	}
	return subtasks
}
