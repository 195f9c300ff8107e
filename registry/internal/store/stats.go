package store

import "context"

// GetStats returns aggregate registry counters for the status surface.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	var st Stats
	row := s.DB.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM sources),
		(SELECT COUNT(*) FROM sources WHERE enabled = 1),
		(SELECT COUNT(*) FROM entities),
		(SELECT COUNT(*) FROM changes)`)
	if err := row.Scan(&st.Sources, &st.Enabled, &st.Entities, &st.Changes); err != nil {
		return nil, err
	}
	return &st, nil
}
