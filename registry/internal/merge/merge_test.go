package merge

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/fieldreg/registry/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := store.ApplySchema(db); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.NewStore(db)
}

func seedEntity(t *testing.T, st *store.Store, e *store.Entity) {
	t.Helper()
	if err := st.InsertEntity(context.Background(), e); err != nil {
		t.Fatalf("seed entity: %v", err)
	}
}

func TestMergeFillsEmptyFieldsOnly(t *testing.T) {
	// WHAT: Merge adopts new values only where the stored record is empty;
	// populated fields survive untouched.
	// WHY: A re-scrape can be lower quality than what we already hold.
	st := openStore(t)
	ctx := context.Background()

	seedEntity(t, st, &store.Entity{
		ID:     "cisa-region-3-office",
		Agency: "CISA",
		Name:   "Region 3 Office",
		Phone:  "215-555-0100", // already known
	})

	lat := 39.9526
	incoming := &store.Entity{
		Phone:     "999-999-9999", // must NOT win
		Email:     "region3@cisa.example",
		Website:   "https://www.cisa.gov/region-3",
		Latitude:  &lat,
		SourceURL: "https://www.cisa.gov/about/regions",
	}

	r := NewResolver(st, nil, nil)
	if err := r.Merge(ctx, incoming, "cisa-region-3-office"); err != nil {
		t.Fatal(err)
	}

	got, _ := st.GetEntity(ctx, "cisa-region-3-office")
	if got.Phone != "215-555-0100" {
		t.Errorf("existing phone overwritten: %q", got.Phone)
	}
	if got.Email != "region3@cisa.example" {
		t.Errorf("empty email not filled: %q", got.Email)
	}
	if got.Website != "https://www.cisa.gov/region-3" {
		t.Errorf("empty website not filled: %q", got.Website)
	}
	if got.Latitude == nil || *got.Latitude != lat {
		t.Errorf("latitude not filled: %v", got.Latitude)
	}
}

func TestMergeAdoptsPhoneIntoEmptyField(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	seedEntity(t, st, &store.Entity{
		ID: "fbi-erie-resident-agency", Agency: "FBI", Name: "Erie Resident Agency",
	})

	r := NewResolver(st, nil, nil)
	incoming := &store.Entity{Phone: "814-555-0100", SourceURL: "https://fbi.example/field"}
	if err := r.Merge(ctx, incoming, "fbi-erie-resident-agency"); err != nil {
		t.Fatal(err)
	}
	got, _ := st.GetEntity(ctx, "fbi-erie-resident-agency")
	if got.Phone != "814-555-0100" {
		t.Errorf("phone not adopted: %q", got.Phone)
	}
}

func TestMergeRefreshesTimestamps(t *testing.T) {
	// WHAT: last_verified and updated_at always move forward on merge,
	// even when no field changes.
	st := openStore(t)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour).UnixMilli()
	seedEntity(t, st, &store.Entity{
		ID: "cisa-region-3-office", Agency: "CISA", Name: "Region 3 Office",
		Phone: "a", Email: "b", Website: "c", Address: "d",
		LastVerified: old, UpdatedAt: old,
	})

	r := NewResolver(st, nil, nil)
	if err := r.Merge(ctx, &store.Entity{Phone: "x"}, "cisa-region-3-office"); err != nil {
		t.Fatal(err)
	}
	got, _ := st.GetEntity(ctx, "cisa-region-3-office")
	if got.LastVerified <= old || got.UpdatedAt <= old {
		t.Fatalf("timestamps not refreshed: %d %d", got.LastVerified, got.UpdatedAt)
	}
}

func TestMergeAppendsChangeWithDiff(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	seedEntity(t, st, &store.Entity{ID: "e1", Agency: "CISA", Name: "Region 3 Office"})

	r := NewResolver(st, nil, nil)
	incoming := &store.Entity{Email: "new@cisa.example", SourceURL: "https://src.example"}
	if err := r.Merge(ctx, incoming, "e1"); err != nil {
		t.Fatal(err)
	}

	history, err := st.ChangeHistory(ctx, "e1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Fatalf("changes: %d", len(history))
	}
	c := history[0]
	if c.ChangeType != "merged" {
		t.Errorf("change type: %q", c.ChangeType)
	}
	if !strings.HasPrefix(c.ID, "chg_") {
		t.Errorf("change id: %q", c.ID)
	}
	if c.SourceURL != "https://src.example" {
		t.Errorf("change source url: %q", c.SourceURL)
	}
	var diff map[string]any
	if err := json.Unmarshal([]byte(c.DiffJSON), &diff); err != nil {
		t.Fatalf("diff not JSON: %v", err)
	}
	filled, _ := diff["filled"].(map[string]any)
	if filled["email"] != "new@cisa.example" {
		t.Errorf("diff missing filled email: %v", diff)
	}
}

func TestMergeMissingTargetNoOp(t *testing.T) {
	// WHAT: Referential inconsistency between index and store is logged
	// and ignored, not an error.
	st := openStore(t)
	r := NewResolver(st, nil, nil)
	if err := r.Merge(context.Background(), &store.Entity{Phone: "x"}, "nonexistent"); err != nil {
		t.Fatalf("missing target must no-op: %v", err)
	}
}
