// CLAUDE:SUMMARY Source CRUD, DueSources scheduling query, and fetch status recording.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// InsertSource adds a new scrape target.
func (s *Store) InsertSource(ctx context.Context, src *Source) error {
	now := time.Now().UnixMilli()
	if src.CreatedAt == 0 {
		src.CreatedAt = now
	}
	if src.UpdatedAt == 0 {
		src.UpdatedAt = now
	}
	if src.ParseType == "" {
		src.ParseType = "structured-text"
	}
	if src.RateLimitRPS <= 0 {
		src.RateLimitRPS = 1.0
	}
	if src.FetchInterval == 0 {
		src.FetchInterval = 86400000
	}
	if src.LastStatus == "" {
		src.LastStatus = "pending"
	}

	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO sources (id, name, agency, url, parse_type, selector,
		rate_limit_rps, fetch_interval, enabled, last_fetched_at, last_hash,
		last_http_code, last_status, last_error, fail_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		src.ID, src.Name, src.Agency, src.URL, src.ParseType, src.Selector,
		src.RateLimitRPS, src.FetchInterval, src.Enabled, src.LastFetchedAt, src.LastHash,
		src.LastHTTPCode, src.LastStatus, src.LastError, src.FailCount, src.CreatedAt, src.UpdatedAt,
	)
	return err
}

// GetSource retrieves a source by ID. Returns (nil, nil) when absent.
func (s *Store) GetSource(ctx context.Context, id string) (*Source, error) {
	row := s.DB.QueryRowContext(ctx, selectSource+` WHERE id = ?`, id)
	src, err := scanSource(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return src, err
}

// ListSources returns all sources, newest first.
func (s *Store) ListSources(ctx context.Context) ([]*Source, error) {
	rows, err := s.DB.QueryContext(ctx, selectSource+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSources(rows)
}

// ListEnabledSources returns enabled sources in creation order, the order
// batch mode walks them.
func (s *Store) ListEnabledSources(ctx context.Context) ([]*Source, error) {
	rows, err := s.DB.QueryContext(ctx, selectSource+` WHERE enabled = 1 ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSources(rows)
}

// UpdateSource updates a source's configurable fields.
func (s *Store) UpdateSource(ctx context.Context, src *Source) error {
	src.UpdatedAt = time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx,
		`UPDATE sources SET name=?, agency=?, url=?, parse_type=?, selector=?,
		rate_limit_rps=?, fetch_interval=?, enabled=?, updated_at=?
		WHERE id=?`,
		src.Name, src.Agency, src.URL, src.ParseType, src.Selector,
		src.RateLimitRPS, src.FetchInterval, src.Enabled, src.UpdatedAt, src.ID,
	)
	return err
}

// DueSources returns enabled sources whose next fetch time has passed,
// excluding ones past the failure cutoff.
// next fetch = last_fetched_at + fetch_interval; never-fetched sources are
// always due.
func (s *Store) DueSources(ctx context.Context, maxFailCount int) ([]*Source, error) {
	now := time.Now().UnixMilli()
	rows, err := s.DB.QueryContext(ctx, selectSource+`
		WHERE enabled = 1
		  AND fail_count < ?
		  AND (last_fetched_at IS NULL OR last_fetched_at + fetch_interval <= ?)
		ORDER BY last_fetched_at ASC NULLS FIRST`, maxFailCount, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSources(rows)
}

// RecordFetchSuccess updates a source after a successful fetch+process cycle.
func (s *Store) RecordFetchSuccess(ctx context.Context, id, hash string, httpCode int) error {
	now := time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx,
		`UPDATE sources SET last_fetched_at=?, last_hash=?, last_http_code=?,
		last_status='ok', last_error='', fail_count=0, updated_at=?
		WHERE id=?`, now, hash, httpCode, now, id)
	return err
}

// RecordFetchUnchanged stamps last_fetched_at without touching the hash.
func (s *Store) RecordFetchUnchanged(ctx context.Context, id string, httpCode int) error {
	now := time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx,
		`UPDATE sources SET last_fetched_at=?, last_http_code=?, last_status='unchanged',
		last_error='', fail_count=0, updated_at=?
		WHERE id=?`, now, httpCode, now, id)
	return err
}

// RecordFetchError updates a source after a failed fetch.
func (s *Store) RecordFetchError(ctx context.Context, id, errMsg string) error {
	now := time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx,
		`UPDATE sources SET last_fetched_at=?, last_status='error',
		last_error=?, fail_count=fail_count+1, updated_at=?
		WHERE id=?`, now, errMsg, now, id)
	return err
}

const selectSource = `SELECT id, name, agency, url, parse_type, selector,
	rate_limit_rps, fetch_interval, enabled, last_fetched_at, last_hash,
	last_http_code, last_status, last_error, fail_count, created_at, updated_at
	FROM sources`

func scanSource(scan func(...any) error) (*Source, error) {
	var src Source
	var enabled int
	err := scan(
		&src.ID, &src.Name, &src.Agency, &src.URL, &src.ParseType, &src.Selector,
		&src.RateLimitRPS, &src.FetchInterval, &enabled, &src.LastFetchedAt, &src.LastHash,
		&src.LastHTTPCode, &src.LastStatus, &src.LastError, &src.FailCount,
		&src.CreatedAt, &src.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan source: %w", err)
	}
	src.Enabled = enabled != 0
	return &src, nil
}

func collectSources(rows *sql.Rows) ([]*Source, error) {
	var sources []*Source
	for rows.Next() {
		src, err := scanSource(rows.Scan)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}
