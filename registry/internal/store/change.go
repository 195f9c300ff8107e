// CLAUDE:SUMMARY Append-only change log writes and per-entity history reads.
package store

import (
	"context"
	"fmt"
	"time"
)

// AppendChange records an audit entry. The changes table is append-only;
// there is deliberately no update or delete.
func (s *Store) AppendChange(ctx context.Context, c *Change) error {
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().UnixMilli()
	}
	if c.DiffJSON == "" {
		c.DiffJSON = "{}"
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO changes (id, entity_id, change_type, diff_json, source_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.EntityID, c.ChangeType, c.DiffJSON, c.SourceURL, c.CreatedAt,
	)
	return err
}

// ChangeHistory returns audit entries for an entity, newest first.
func (s *Store) ChangeHistory(ctx context.Context, entityID string, limit int) ([]*Change, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, entity_id, change_type, diff_json, source_url, created_at
		FROM changes WHERE entity_id = ?
		ORDER BY created_at DESC LIMIT ?`, entityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Change
	for rows.Next() {
		var c Change
		if err := rows.Scan(&c.ID, &c.EntityID, &c.ChangeType, &c.DiffJSON,
			&c.SourceURL, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		result = append(result, &c)
	}
	return result, rows.Err()
}
