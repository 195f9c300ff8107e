// CLAUDE:SUMMARY Merge resolver: fill-if-empty field policy plus audit diff.
// Package merge folds a newly extracted observation into an existing
// record.
//
// Only a fixed list of improvable fields can change, and only when the
// existing value is empty — data already on the record is never
// overwritten by a possibly-lower-quality re-scrape. Every merge appends
// a change-log entry with the diff and contributing source URL.
package merge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/fieldreg/idgen"
	"github.com/hazyhaar/fieldreg/registry/internal/store"
)

// Resolver applies the merge policy against the store.
type Resolver struct {
	store  *store.Store
	newID  idgen.Generator
	logger *slog.Logger
}

// NewResolver wires the store. Change ids come from gen (chg_ prefixed in
// production).
func NewResolver(st *store.Store, gen idgen.Generator, logger *slog.Logger) *Resolver {
	if gen == nil {
		gen = idgen.Prefixed("chg_", idgen.Default)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: st, newID: gen, logger: logger}
}

// Merge folds incoming into the record stored under existingID. A missing
// target is logged and ignored — vector-index metadata can legitimately lag
// the authoritative store.
func (r *Resolver) Merge(ctx context.Context, incoming *store.Entity, existingID string) error {
	existing, err := r.store.GetEntity(ctx, existingID)
	if err != nil {
		return fmt.Errorf("merge: load %q: %w", existingID, err)
	}
	if existing == nil {
		r.logger.Warn("merge: target not found, skipping",
			"entity_id", existingID, "source_url", incoming.SourceURL)
		return nil
	}

	diff := applyImprovable(existing, incoming)

	// A merge event is itself evidence the office is still live.
	now := time.Now().UnixMilli()
	existing.LastVerified = now
	existing.UpdatedAt = now

	if err := r.store.UpdateEntity(ctx, existing); err != nil {
		return fmt.Errorf("merge: update %q: %w", existingID, err)
	}

	diffJSON, err := json.Marshal(diff)
	if err != nil {
		diffJSON = []byte("{}")
	}
	change := &store.Change{
		ID:         r.newID(),
		EntityID:   existingID,
		ChangeType: "merged",
		DiffJSON:   string(diffJSON),
		SourceURL:  incoming.SourceURL,
		CreatedAt:  now,
	}
	if err := r.store.AppendChange(ctx, change); err != nil {
		return fmt.Errorf("merge: append change for %q: %w", existingID, err)
	}
	return nil
}

// mergeDiff is the change-log payload for one merge.
type mergeDiff struct {
	Filled    map[string]string `json:"filled,omitempty"`
	SourceURL string            `json:"source_url"`
}

// applyImprovable fills empty improvable fields from incoming and returns
// the diff. Populated existing values are left alone.
func applyImprovable(existing, incoming *store.Entity) *mergeDiff {
	diff := &mergeDiff{Filled: map[string]string{}, SourceURL: incoming.SourceURL}

	fill := func(name string, dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
			diff.Filled[name] = src
		}
	}
	fill("address", &existing.Address, incoming.Address)
	fill("phone", &existing.Phone, incoming.Phone)
	fill("email", &existing.Email, incoming.Email)
	fill("website", &existing.Website, incoming.Website)

	if existing.Latitude == nil && incoming.Latitude != nil {
		existing.Latitude = incoming.Latitude
		diff.Filled["latitude"] = fmt.Sprintf("%v", *incoming.Latitude)
	}
	if existing.Longitude == nil && incoming.Longitude != nil {
		existing.Longitude = incoming.Longitude
		diff.Filled["longitude"] = fmt.Sprintf("%v", *incoming.Longitude)
	}
	return diff
}
