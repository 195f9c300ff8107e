package dedupe

import (
	"context"
	"errors"
	"testing"

	"github.com/hazyhaar/fieldreg/registry/internal/store"
	"github.com/hazyhaar/fieldreg/vecindex"
)

// fakeEmbedder returns a fixed vector, or an error.
type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) { return f.vec, f.err }
func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = f.vec
	}
	return out, f.err
}
func (f *fakeEmbedder) Dimension() int { return len(f.vec) }

// fakeIndex returns canned query results.
type fakeIndex struct {
	results []vecindex.Match
	err     error
}

func (f *fakeIndex) Upsert(context.Context, string, []float32, map[string]string) error { return nil }
func (f *fakeIndex) Query(context.Context, []float32, int) ([]vecindex.Match, error) {
	return f.results, f.err
}
func (f *fakeIndex) DeleteByIDs(context.Context, []string) error { return nil }
func (f *fakeIndex) Count(context.Context) (int, error)          { return len(f.results), nil }

func newEntity() *store.Entity {
	return &store.Entity{
		ID:      "cisa-region-3-office",
		Name:    "CISA Region 3 Office",
		Agency:  "CISA",
		Address: "123 Main St",
		City:    "Philadelphia",
		State:   "PA",
	}
}

func resolverWith(idx *fakeIndex) *Resolver {
	return NewResolver(&fakeEmbedder{vec: []float32{1, 0, 0}}, idx, Config{})
}

// candidateMeta builds metadata that corroborates exactly the given fields
// of newEntity.
func candidateMeta(fields ...string) map[string]string {
	full := map[string]string{
		"name":    "CISA Region 3",
		"agency":  "CISA",
		"address": "123 Main Street",
	}
	meta := map[string]string{}
	for _, f := range fields {
		meta[f] = full[f]
	}
	return meta
}

func TestClassifySkipHighSimilarityThreeFields(t *testing.T) {
	// WHAT: similarity 0.96 with 3 corroborated fields is a confirmed
	// duplicate — skip.
	idx := &fakeIndex{results: []vecindex.Match{
		{ID: "existing", Score: 0.96, Metadata: candidateMeta("name", "agency", "address")},
	}}
	d, _ := resolverWith(idx).Resolve(context.Background(), newEntity())
	if d.Action != ActionSkip {
		t.Fatalf("action: %s, matched %v", d.Action, d.MatchedFields)
	}
	if d.MatchID != "existing" {
		t.Fatalf("match id: %q", d.MatchID)
	}
	if len(d.MatchedFields) != 3 {
		t.Fatalf("matched fields: %v", d.MatchedFields)
	}
}

func TestClassifyMergeTwoFields(t *testing.T) {
	// WHAT: similarity 0.90 with 2 corroborated fields folds new data in.
	idx := &fakeIndex{results: []vecindex.Match{
		{ID: "existing", Score: 0.90, Metadata: candidateMeta("name", "agency")},
	}}
	d, _ := resolverWith(idx).Resolve(context.Background(), newEntity())
	if d.Action != ActionMerge {
		t.Fatalf("action: %s, matched %v", d.Action, d.MatchedFields)
	}
}

func TestClassifyCreateOneField(t *testing.T) {
	// WHAT: similarity 0.90 with only 1 corroborated field is not enough
	// evidence — create.
	idx := &fakeIndex{results: []vecindex.Match{
		{ID: "existing", Score: 0.90, Metadata: candidateMeta("agency")},
	}}
	d, _ := resolverWith(idx).Resolve(context.Background(), newEntity())
	if d.Action != ActionCreate {
		t.Fatalf("action: %s, matched %v", d.Action, d.MatchedFields)
	}
}

func TestClassifyBelowThresholdExcluded(t *testing.T) {
	// WHAT: similarity 0.80 never becomes a candidate, regardless of
	// field overlap.
	idx := &fakeIndex{results: []vecindex.Match{
		{ID: "existing", Score: 0.80, Metadata: candidateMeta("name", "agency", "address")},
	}}
	d, _ := resolverWith(idx).Resolve(context.Background(), newEntity())
	if d.Action != ActionCreate {
		t.Fatalf("action: %s", d.Action)
	}
	if len(d.Candidates) != 0 {
		t.Fatalf("candidates should be empty: %+v", d.Candidates)
	}
}

func TestBestCandidateGoverns(t *testing.T) {
	// WHAT: the highest-similarity candidate decides the action even when
	// a lower one would classify differently.
	idx := &fakeIndex{results: []vecindex.Match{
		{ID: "weak", Score: 0.90, Metadata: candidateMeta("agency")},
		{ID: "strong", Score: 0.97, Metadata: candidateMeta("name", "agency", "address")},
	}}
	d, _ := resolverWith(idx).Resolve(context.Background(), newEntity())
	if d.Action != ActionSkip || d.MatchID != "strong" {
		t.Fatalf("decision: %+v", d)
	}
	if d.Candidates[0].EntityID != "strong" {
		t.Fatalf("candidates not sorted by similarity: %+v", d.Candidates)
	}
}

func TestEmbeddingFailureFallsBackToZeroVector(t *testing.T) {
	// WHAT: an embedding outage degrades to a zero vector and a create
	// decision, never an error.
	emb := &fakeEmbedder{err: errors.New("embedding server down")}
	r := NewResolver(emb, &fakeIndex{}, Config{})

	d, vec := r.Resolve(context.Background(), newEntity())
	if d.Action != ActionCreate {
		t.Fatalf("action: %s", d.Action)
	}
	if len(vec) != 768 {
		t.Fatalf("fallback vector dimension: %d", len(vec))
	}
	for _, v := range vec {
		if v != 0 {
			t.Fatal("fallback vector not zero")
		}
	}
}

func TestIndexFailureDegradesToCreate(t *testing.T) {
	idx := &fakeIndex{err: errors.New("index unavailable")}
	d, _ := resolverWith(idx).Resolve(context.Background(), newEntity())
	if d.Action != ActionCreate {
		t.Fatalf("action: %s", d.Action)
	}
}

func TestEmbedTextSkipsAbsentFields(t *testing.T) {
	e := &store.Entity{Name: "Region 3 Office", Agency: "CISA", State: "PA"}
	got := EmbedText(e)
	if got != "Region 3 Office CISA PA" {
		t.Fatalf("blob: %q", got)
	}
}

func TestScenarioNearDuplicateOffices(t *testing.T) {
	// WHAT: "CISA Region 3 Office, 123 Main St" vs indexed "CISA Region 3,
	// 123 Main Street" at similarity 0.93 with name/agency/address
	// corroboration. Three corroborated fields confirm the duplicate even
	// below the 0.95 bar — skip, don't re-create.
	idx := &fakeIndex{results: []vecindex.Match{
		{ID: "cisa-region-3", Score: 0.93, Metadata: candidateMeta("name", "agency", "address")},
	}}
	d, _ := resolverWith(idx).Resolve(context.Background(), newEntity())
	if len(d.MatchedFields) != 3 {
		t.Fatalf("matched fields: %v", d.MatchedFields)
	}
	if d.Action != ActionSkip {
		t.Fatalf("action: %s", d.Action)
	}
}
