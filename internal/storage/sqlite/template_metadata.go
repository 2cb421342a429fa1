package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lovenda/lovenda/internal/types"
)

func upsertTemplateMetadata(ctx context.Context, ex execer, meta *types.TemplateMetadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal template metadata: %w", err)
	}
	_, err = ex.ExecContext(ctx, `
		INSERT INTO template_metadata (wedding_id, data, used_ai, generated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(wedding_id) DO UPDATE SET
			data = excluded.data,
			used_ai = excluded.used_ai,
			generated_at = excluded.generated_at
	`, meta.WeddingID, string(data), boolInt(meta.UsedAI), formatTime(meta.GeneratedAt))
	if err != nil {
		return fmt.Errorf("failed to store template metadata for %s: %w", meta.WeddingID, err)
	}
	return nil
}

// GetTemplateMetadata returns the last template applied to a wedding, or nil
// if none has been applied yet
func (s *SQLiteStorage) GetTemplateMetadata(ctx context.Context, weddingID string) (*types.TemplateMetadata, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM template_metadata WHERE wedding_id = ?`, weddingID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template metadata for %s: %w", weddingID, err)
	}

	var meta types.TemplateMetadata
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return nil, fmt.Errorf("invalid template metadata for %s: %w", weddingID, err)
	}
	return &meta, nil
}
