package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lovenda/lovenda/internal/events"
)

const eventColumns = `id, type, timestamp, wedding_id, task_id, actor, severity, message, data`

// StoreTaskEvent appends an event to the audit trail
func (s *SQLiteStorage) StoreTaskEvent(ctx context.Context, event *events.TaskEvent) error {
	return insertEvent(ctx, s.db, event)
}

func insertEvent(ctx context.Context, ex execer, event *events.TaskEvent) error {
	dataJSON, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO task_events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.ID, event.Type, formatTime(event.Timestamp), event.WeddingID, event.TaskID,
		event.Actor, event.Severity, event.Message, string(dataJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to store task event (type=%s, task=%s): %w", event.Type, event.TaskID, err)
	}
	return nil
}

// GetTaskEvents retrieves events matching the filter, most recent first
func (s *SQLiteStorage) GetTaskEvents(ctx context.Context, filter events.EventFilter) ([]*events.TaskEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM task_events WHERE 1=1`
	args := []interface{}{}

	if filter.WeddingID != "" {
		query += " AND wedding_id = ?"
		args = append(args, filter.WeddingID)
	}
	if filter.TaskID != "" {
		query += " AND task_id = ?"
		args = append(args, filter.TaskID)
	}
	if filter.Type != "" {
		query += " AND type = ?"
		args = append(args, filter.Type)
	}
	if filter.Severity != "" {
		query += " AND severity = ?"
		args = append(args, filter.Severity)
	}
	if !filter.AfterTime.IsZero() {
		query += " AND timestamp > ?"
		args = append(args, formatTime(filter.AfterTime))
	}

	query += " ORDER BY timestamp DESC, rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query task events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]*events.TaskEvent, error) {
	var result []*events.TaskEvent

	for rows.Next() {
		var event events.TaskEvent
		var dataJSON, timestamp string

		err := rows.Scan(
			&event.ID,
			&event.Type,
			&timestamp,
			&event.WeddingID,
			&event.TaskID,
			&event.Actor,
			&event.Severity,
			&event.Message,
			&dataJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task event: %w", err)
		}

		if event.Timestamp, err = parseTime(timestamp); err != nil {
			return nil, fmt.Errorf("invalid event timestamp %q: %w", timestamp, err)
		}

		event.Data = make(map[string]interface{})
		if dataJSON != "" && dataJSON != "{}" && dataJSON != "null" {
			if err := json.Unmarshal([]byte(dataJSON), &event.Data); err != nil {
				return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
			}
		}

		result = append(result, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task event rows: %w", err)
	}
	return result, nil
}

// CleanupEventsByAge deletes info and warning events older than retentionDays
// and error events older than errorRetentionDays, batchSize rows at a time.
func (s *SQLiteStorage) CleanupEventsByAge(ctx context.Context, retentionDays, errorRetentionDays, batchSize int) (int, error) {
	if retentionDays < 0 || errorRetentionDays < 0 {
		return 0, fmt.Errorf("retention days cannot be negative")
	}
	if batchSize < 1 {
		return 0, fmt.Errorf("batch size must be at least 1")
	}

	now := time.Now()
	deleted, err := s.deleteEventsBefore(ctx, now.AddDate(0, 0, -retentionDays),
		[]events.EventSeverity{events.SeverityInfo, events.SeverityWarning}, batchSize)
	if err != nil {
		return deleted, fmt.Errorf("failed to delete old events: %w", err)
	}

	n, err := s.deleteEventsBefore(ctx, now.AddDate(0, 0, -errorRetentionDays),
		[]events.EventSeverity{events.SeverityError}, batchSize)
	deleted += n
	if err != nil {
		return deleted, fmt.Errorf("failed to delete old error events: %w", err)
	}
	return deleted, nil
}

func (s *SQLiteStorage) deleteEventsBefore(ctx context.Context, cutoff time.Time, severities []events.EventSeverity, batchSize int) (int, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(severities)), ", ")
	query := fmt.Sprintf(`
		DELETE FROM task_events
		WHERE id IN (
			SELECT id FROM task_events
			WHERE timestamp < ? AND severity IN (%s)
			ORDER BY timestamp ASC
			LIMIT ?
		)
	`, placeholders)

	args := []interface{}{formatTime(cutoff)}
	for _, sev := range severities {
		args = append(args, sev)
	}
	args = append(args, batchSize)

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		result, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("failed to execute delete: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("failed to get rows affected: %w", err)
		}
		total += int(n)
		if n < int64(batchSize) {
			return total, nil
		}
	}
}

// CleanupEventsByWeddingLimit keeps at most perWeddingLimit non-error events
// per wedding, deleting the oldest first. A limit of 0 means unlimited.
func (s *SQLiteStorage) CleanupEventsByWeddingLimit(ctx context.Context, perWeddingLimit int) (int, error) {
	if perWeddingLimit < 0 {
		return 0, fmt.Errorf("per-wedding limit cannot be negative")
	}
	if perWeddingLimit == 0 {
		return 0, nil
	}

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM task_events
		WHERE id IN (
			SELECT id FROM (
				SELECT id, severity, ROW_NUMBER() OVER (
					PARTITION BY wedding_id ORDER BY timestamp DESC, rowid DESC
				) AS rn
				FROM task_events
				WHERE severity != ?
			)
			WHERE rn > ?
		)
	`, events.SeverityError, perWeddingLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to enforce per-wedding event limit: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}
