// CLAUDE:SUMMARY Entity CRUD with JSON-encoded sector/function sets.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// InsertEntity persists a finalized office record. Field defaults are the
// orchestrator's responsibility; the store only supplies timestamps.
func (s *Store) InsertEntity(ctx context.Context, e *Entity) error {
	now := time.Now().UnixMilli()
	if e.CreatedAt == 0 {
		e.CreatedAt = now
	}
	if e.UpdatedAt == 0 {
		e.UpdatedAt = now
	}
	sectors, err := marshalSet(e.Sectors)
	if err != nil {
		return fmt.Errorf("marshal sectors: %w", err)
	}
	functions, err := marshalSet(e.Functions)
	if err != nil {
		return fmt.Errorf("marshal functions: %w", err)
	}

	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO entities (id, agency, name, role_type, address, city, state, zip,
		latitude, longitude, phone, email, website, sectors_json, functions_json,
		priority, last_verified, source_url, icon, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Agency, e.Name, e.RoleType, e.Address, e.City, e.State, e.Zip,
		e.Latitude, e.Longitude, e.Phone, e.Email, e.Website, sectors, functions,
		e.Priority, e.LastVerified, e.SourceURL, e.Icon, e.Notes, e.CreatedAt, e.UpdatedAt,
	)
	return err
}

// GetEntity retrieves an entity by ID. Returns (nil, nil) when absent.
func (s *Store) GetEntity(ctx context.Context, id string) (*Entity, error) {
	row := s.DB.QueryRowContext(ctx, selectEntity+` WHERE id = ?`, id)
	e, err := scanEntity(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// ListEntities returns entities ordered by priority then name.
func (s *Store) ListEntities(ctx context.Context, limit int) ([]*Entity, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.DB.QueryContext(ctx, selectEntity+` ORDER BY priority ASC, name ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []*Entity
	for rows.Next() {
		e, err := scanEntity(rows.Scan)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// UpdateEntity writes back an entity's mutable fields. updated_at must be
// set by the caller (the merge resolver stamps it explicitly).
func (s *Store) UpdateEntity(ctx context.Context, e *Entity) error {
	sectors, err := marshalSet(e.Sectors)
	if err != nil {
		return fmt.Errorf("marshal sectors: %w", err)
	}
	functions, err := marshalSet(e.Functions)
	if err != nil {
		return fmt.Errorf("marshal functions: %w", err)
	}

	_, err = s.DB.ExecContext(ctx,
		`UPDATE entities SET agency=?, name=?, role_type=?, address=?, city=?, state=?, zip=?,
		latitude=?, longitude=?, phone=?, email=?, website=?, sectors_json=?, functions_json=?,
		priority=?, last_verified=?, source_url=?, icon=?, notes=?, updated_at=?
		WHERE id=?`,
		e.Agency, e.Name, e.RoleType, e.Address, e.City, e.State, e.Zip,
		e.Latitude, e.Longitude, e.Phone, e.Email, e.Website, sectors, functions,
		e.Priority, e.LastVerified, e.SourceURL, e.Icon, e.Notes, e.UpdatedAt, e.ID,
	)
	return err
}

const selectEntity = `SELECT id, agency, name, role_type, address, city, state, zip,
	latitude, longitude, phone, email, website, sectors_json, functions_json,
	priority, last_verified, source_url, icon, notes, created_at, updated_at
	FROM entities`

func scanEntity(scan func(...any) error) (*Entity, error) {
	var e Entity
	var sectors, functions string
	err := scan(
		&e.ID, &e.Agency, &e.Name, &e.RoleType, &e.Address, &e.City, &e.State, &e.Zip,
		&e.Latitude, &e.Longitude, &e.Phone, &e.Email, &e.Website, &sectors, &functions,
		&e.Priority, &e.LastVerified, &e.SourceURL, &e.Icon, &e.Notes, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan entity: %w", err)
	}
	if err := json.Unmarshal([]byte(sectors), &e.Sectors); err != nil {
		e.Sectors = nil
	}
	if err := json.Unmarshal([]byte(functions), &e.Functions); err != nil {
		e.Functions = nil
	}
	return &e, nil
}

func marshalSet(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
