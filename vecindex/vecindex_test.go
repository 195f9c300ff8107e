package vecindex

// WHAT: SQLite-backed exact cosine vector index.
// WHY: duplicate detection ranks candidate office records by embedding
// similarity; ordering and upsert semantics must hold exactly.

import (
	"context"
	"math"
	"testing"

	"github.com/hazyhaar/fieldreg/dbopen"
	_ "modernc.org/sqlite"
)

func openIndex(t *testing.T) *SQLite {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	return NewSQLite(db)
}

func TestUpsertAndQueryOrdering(t *testing.T) {
	ctx := context.Background()
	idx := openIndex(t)

	// Three unit-ish vectors at increasing angles from the query.
	must(t, idx.Upsert(ctx, "exact", []float32{1, 0, 0}, map[string]string{"agency": "CISA"}))
	must(t, idx.Upsert(ctx, "close", []float32{0.9, 0.1, 0}, nil))
	must(t, idx.Upsert(ctx, "far", []float32{0, 1, 0}, nil))

	matches, err := idx.Query(ctx, []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matches))
	}
	if matches[0].ID != "exact" || matches[1].ID != "close" || matches[2].ID != "far" {
		t.Fatalf("bad ordering: %s, %s, %s", matches[0].ID, matches[1].ID, matches[2].ID)
	}
	if math.Abs(matches[0].Score-1.0) > 1e-6 {
		t.Fatalf("exact match score %v, want ~1", matches[0].Score)
	}
	if matches[0].Metadata["agency"] != "CISA" {
		t.Fatalf("metadata lost: %+v", matches[0].Metadata)
	}
}

func TestQueryTopKLimit(t *testing.T) {
	ctx := context.Background()
	idx := openIndex(t)

	must(t, idx.Upsert(ctx, "a", []float32{1, 0}, nil))
	must(t, idx.Upsert(ctx, "b", []float32{0.5, 0.5}, nil))
	must(t, idx.Upsert(ctx, "c", []float32{0, 1}, nil))

	matches, err := idx.Query(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != "a" {
		t.Fatalf("best match %s, want a", matches[0].ID)
	}
}

func TestUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	idx := openIndex(t)

	must(t, idx.Upsert(ctx, "office-1", []float32{1, 0}, nil))
	must(t, idx.Upsert(ctx, "office-1", []float32{0, 1}, map[string]string{"v": "2"}))

	n, err := idx.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 vector after upsert, got %d", n)
	}

	matches, err := idx.Query(ctx, []float32{0, 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(matches[0].Score-1.0) > 1e-6 {
		t.Fatalf("replaced vector not found: score %v", matches[0].Score)
	}
	if matches[0].Metadata["v"] != "2" {
		t.Fatalf("metadata not replaced: %+v", matches[0].Metadata)
	}
}

func TestZeroQueryVectorReturnsNothing(t *testing.T) {
	ctx := context.Background()
	idx := openIndex(t)
	must(t, idx.Upsert(ctx, "a", []float32{1, 0}, nil))

	matches, err := idx.Query(ctx, []float32{0, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Fatalf("zero query vector should match nothing, got %d", len(matches))
	}
}

func TestDeleteByIDs(t *testing.T) {
	ctx := context.Background()
	idx := openIndex(t)

	must(t, idx.Upsert(ctx, "a", []float32{1, 0}, nil))
	must(t, idx.Upsert(ctx, "b", []float32{0, 1}, nil))

	// Deleting a mix of present and absent ids succeeds.
	if err := idx.DeleteByIDs(ctx, []string{"a", "missing"}); err != nil {
		t.Fatal(err)
	}
	n, err := idx.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 vector after delete, got %d", n)
	}
}

func TestDimensionMismatchExcluded(t *testing.T) {
	ctx := context.Background()
	idx := openIndex(t)

	must(t, idx.Upsert(ctx, "d2", []float32{1, 0}, nil))
	must(t, idx.Upsert(ctx, "d3", []float32{1, 0, 0}, nil))

	matches, err := idx.Query(ctx, []float32{1, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].ID != "d2" {
		t.Fatalf("expected only d2, got %+v", matches)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
