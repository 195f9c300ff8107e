// Package vecindex stores embedding vectors in SQLite and serves exact
// cosine top-K queries over them.
//
// The registry holds thousands of office records, not millions, so a full
// scan with precomputed norms is fast enough and keeps the index in the
// same database file as everything else. Vectors are stored as
// little-endian float32 blobs alongside a JSON metadata column so a query
// can return candidate records without a second lookup.
package vecindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/hazyhaar/fieldreg/embedding"
)

// Schema creates the vectors table. Safe to run on every startup.
const Schema = `
CREATE TABLE IF NOT EXISTS vectors (
	id TEXT PRIMARY KEY,
	embedding BLOB NOT NULL,
	dimension INTEGER NOT NULL,
	norm REAL NOT NULL,
	metadata TEXT NOT NULL DEFAULT '{}',
	updated_at INTEGER NOT NULL
);
`

// Match is one query result, best first.
type Match struct {
	ID       string
	Score    float64 // cosine similarity in [-1, 1]
	Metadata map[string]string
}

// Index is the vector store surface the duplicate detector needs.
type Index interface {
	// Upsert inserts or replaces the vector stored under id.
	Upsert(ctx context.Context, id string, vec []float32, metadata map[string]string) error

	// Query returns up to topK entries by cosine similarity to vec,
	// sorted descending.
	Query(ctx context.Context, vec []float32, topK int) ([]Match, error)

	// DeleteByIDs removes the given ids. Missing ids are not an error.
	DeleteByIDs(ctx context.Context, ids []string) error

	// Count returns the number of stored vectors.
	Count(ctx context.Context) (int, error)
}

// SQLite is the Index implementation used in production.
type SQLite struct {
	db *sql.DB
}

// NewSQLite wires an Index onto db. The caller is responsible for having
// applied Schema (dbopen.WithSchema does this).
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) Upsert(ctx context.Context, id string, vec []float32, metadata map[string]string) error {
	if len(vec) == 0 {
		return fmt.Errorf("vecindex: empty vector for id %q", id)
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("vecindex: marshal metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO vectors (id, embedding, dimension, norm, metadata, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			embedding = excluded.embedding,
			dimension = excluded.dimension,
			norm = excluded.norm,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`,
		id, embedding.Serialize(vec), len(vec), embedding.Norm(vec), string(meta),
		time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("vecindex: upsert %q: %w", id, err)
	}
	return nil
}

func (s *SQLite) Query(ctx context.Context, vec []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	queryNorm := embedding.Norm(vec)
	if queryNorm == 0 {
		// Zero query vector matches nothing meaningfully.
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, embedding, dimension, norm, metadata FROM vectors WHERE dimension = ?`,
		len(vec))
	if err != nil {
		return nil, fmt.Errorf("vecindex: query: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			id   string
			blob []byte
			dim  int
			norm float64
			meta string
		)
		if err := rows.Scan(&id, &blob, &dim, &norm, &meta); err != nil {
			return nil, fmt.Errorf("vecindex: scan: %w", err)
		}
		stored := embedding.Deserialize(blob)
		score := embedding.CosineWithNorms(vec, stored, queryNorm, norm)

		var metadata map[string]string
		if err := json.Unmarshal([]byte(meta), &metadata); err != nil {
			metadata = map[string]string{}
		}
		matches = append(matches, Match{ID: id, Score: score, Metadata: metadata})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vecindex: rows: %w", err)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *SQLite) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("vecindex: begin delete: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM vectors WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("vecindex: prepare delete: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("vecindex: delete %q: %w", id, err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vectors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("vecindex: count: %w", err)
	}
	return n, nil
}
