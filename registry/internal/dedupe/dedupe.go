// CLAUDE:SUMMARY Similarity resolver: embedding + vector query + field corroboration + action classification.
// Package dedupe decides whether an extracted office record is new, a
// duplicate, or mergeable new data for an existing record.
//
// Two-stage matching: a nearest-neighbor vector query proposes candidates,
// then field-level fuzzy comparison corroborates them. Embedding similarity
// alone is noisy for short structured records — two different regional
// offices of the same agency embed close together — so skip/merge is only
// committed when raw field overlap backs the vector score up.
package dedupe

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/hazyhaar/fieldreg/embedding"
	"github.com/hazyhaar/fieldreg/registry/internal/store"
	"github.com/hazyhaar/fieldreg/vecindex"
)

// Action is the per-candidate verdict.
type Action string

const (
	ActionCreate Action = "create"
	ActionMerge  Action = "merge"
	ActionSkip   Action = "skip"
)

// Classification thresholds.
const (
	// DefaultThreshold is the minimum vector similarity for a candidate to
	// be considered at all.
	DefaultThreshold = 0.85

	skipSimilarity  = 0.95
	skipMinFields   = 3
	mergeSimilarity = 0.85
	mergeMinFields  = 2

	topK = 10
)

// Match is one scored candidate.
type Match struct {
	EntityID      string   `json:"entity_id"`
	Similarity    float64  `json:"similarity"`
	MatchedFields []string `json:"matched_fields"`
	Action        Action   `json:"action"`
}

// Decision is the final verdict for one extracted record.
type Decision struct {
	Action        Action   `json:"action"`
	MatchID       string   `json:"match_id,omitempty"`
	Similarity    float64  `json:"similarity,omitempty"`
	MatchedFields []string `json:"matched_fields,omitempty"`
	Candidates    []Match  `json:"candidates,omitempty"`
}

// Config tunes the resolver.
type Config struct {
	// Threshold is the minimum candidate similarity. Default 0.85.
	Threshold float64 `json:"threshold" yaml:"threshold"`

	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Resolver runs the two-stage duplicate check.
type Resolver struct {
	embedder embedding.Embedder
	index    vecindex.Index
	cfg      Config
}

// NewResolver wires the embedding client and vector index.
func NewResolver(emb embedding.Embedder, idx vecindex.Index, cfg Config) *Resolver {
	cfg.defaults()
	return &Resolver{embedder: emb, index: idx, cfg: cfg}
}

// Resolve classifies an extracted record against the index. The returned
// vector is the record's embedding (or the zero fallback) so the
// orchestrator can upsert it after a confirmed create without re-embedding.
func (r *Resolver) Resolve(ctx context.Context, e *store.Entity) (*Decision, []float32) {
	vec := r.embed(ctx, e)
	candidates := r.findCandidates(ctx, e, vec)
	return classify(candidates), vec
}

// embed builds the text blob and calls the embedding service, degrading to
// a zero vector on any failure. A zero vector scores against nothing,
// which safely biases the decision toward create.
func (r *Resolver) embed(ctx context.Context, e *store.Entity) []float32 {
	blob := EmbedText(e)
	vec, err := r.embedder.Embed(ctx, blob)
	if err != nil || len(vec) == 0 {
		dim := r.embedder.Dimension()
		if dim <= 0 {
			dim = 768
		}
		r.cfg.Logger.Warn("dedupe: embedding failed, using zero vector",
			"entity_id", e.ID, "error", err)
		return make([]float32, dim)
	}
	return vec
}

// findCandidates queries the index and corroborates survivors field by
// field. Index failures degrade to an empty candidate list.
func (r *Resolver) findCandidates(ctx context.Context, e *store.Entity, vec []float32) []Match {
	results, err := r.index.Query(ctx, vec, topK)
	if err != nil {
		r.cfg.Logger.Warn("dedupe: vector query failed", "entity_id", e.ID, "error", err)
		return nil
	}

	newFields := fieldMap(e)
	var matches []Match
	for _, res := range results {
		if res.Score < r.cfg.Threshold {
			continue
		}
		matched := corroborate(newFields, res.Metadata)
		matches = append(matches, Match{
			EntityID:      res.ID,
			Similarity:    res.Score,
			MatchedFields: matched,
			Action:        actionFor(res.Score, len(matched)),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches
}

// classify takes the best candidate's action; with no surviving candidate
// the decision is create.
func classify(candidates []Match) *Decision {
	if len(candidates) == 0 {
		return &Decision{Action: ActionCreate}
	}
	best := candidates[0]
	return &Decision{
		Action:        best.Action,
		MatchID:       best.EntityID,
		Similarity:    best.Similarity,
		MatchedFields: best.MatchedFields,
		Candidates:    candidates,
	}
}

func actionFor(similarity float64, matchedFields int) Action {
	switch {
	case similarity > skipSimilarity && matchedFields >= skipMinFields:
		return ActionSkip
	// Three corroborated fields on an above-threshold candidate is decisive
	// even below the high-similarity bar: vector scores in the 0.85-0.95
	// band are common for reworded listings of the same office.
	case similarity > mergeSimilarity && matchedFields >= skipMinFields:
		return ActionSkip
	case similarity > mergeSimilarity && matchedFields >= mergeMinFields:
		return ActionMerge
	default:
		return ActionCreate
	}
}

// corroborationFields are compared between the new record and a
// candidate's stored metadata.
var corroborationFields = []string{"name", "agency", "address", "city", "state", "phone", "website"}

func corroborate(newFields, candidate map[string]string) []string {
	var matched []string
	for _, f := range corroborationFields {
		if fieldsSimilar(newFields[f], candidate[f]) {
			matched = append(matched, f)
		}
	}
	return matched
}

func fieldMap(e *store.Entity) map[string]string {
	return map[string]string{
		"name":    e.Name,
		"agency":  e.Agency,
		"address": e.Address,
		"city":    e.City,
		"state":   e.State,
		"phone":   e.Phone,
		"website": e.Website,
	}
}

// EmbedText builds the embedding blob from the record's salient fields,
// skipping absent ones.
func EmbedText(e *store.Entity) string {
	parts := make([]string, 0, 6)
	for _, f := range []string{e.Name, e.Agency, e.Address, e.City, e.State, e.Website} {
		if f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, " ")
}

// Metadata builds the vector-index metadata stored alongside an entity's
// embedding; it is what future corroboration passes compare against.
func Metadata(e *store.Entity) map[string]string {
	return fieldMap(e)
}
