// CLAUDE:SUMMARY Shared extraction result contract and field-default stamping.
// Package extract turns parsed source text into partial office records.
//
// Two interchangeable strategies share the Result contract: a model-driven
// strategy that asks a generation service for a JSON array, and a
// pattern-driven strategy that runs a regex battery over stripped text.
// Both are pure over (content, source config); persistence belongs to the
// orchestrator.
package extract

import (
	"time"

	"github.com/hazyhaar/fieldreg/idgen"
	"github.com/hazyhaar/fieldreg/registry/internal/store"
)

// Result is one extraction pass outcome.
type Result struct {
	Entities   []*store.Entity
	Confidence float64 // 0.8 model with entities, 0.6 pattern with entities, else 0.1
	Method     string  // "model" | "pattern"
	Errors     []string
}

// finalize stamps the deterministic id, provenance, and inferred
// classification defaults onto a partial entity.
func finalize(e *store.Entity, agency, sourceURL string, now int64) {
	if e.Agency == "" {
		e.Agency = agency
	}
	e.ID = idgen.Office(e.Agency, e.Name)
	e.SourceURL = sourceURL
	e.LastVerified = now
	if len(e.Sectors) == 0 {
		e.Sectors = sectorsForAgency(e.Agency)
	}
	if e.Priority == 0 {
		e.Priority = priorityForRole(e.RoleType)
	}
}

func nowMilli() int64 { return time.Now().UnixMilli() }
