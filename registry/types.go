// CLAUDE:SUMMARY Public type surface: store re-exports plus the ScrapeResult summary.
package registry

import (
	"github.com/hazyhaar/fieldreg/registry/internal/dedupe"
	"github.com/hazyhaar/fieldreg/registry/internal/store"
)

// Re-exported store types so callers never import internal packages.
type (
	Source        = store.Source
	Entity        = store.Entity
	Change        = store.Change
	FetchLogEntry = store.FetchLogEntry
	Stats         = store.Stats

	Decision = dedupe.Decision
)

// ScrapeResult summarizes one per-source scrape cycle.
type ScrapeResult struct {
	SourceID          string  `json:"source_id"`
	EntitiesExtracted int     `json:"entities_extracted"`
	EntitiesCreated   int     `json:"entities_created"`
	EntitiesUpdated   int     `json:"entities_updated"`
	EntitiesSkipped   int     `json:"entities_skipped"`
	Confidence        float64 `json:"confidence"`
	Method            string  `json:"method,omitempty"`
	Timestamp         int64   `json:"timestamp"`

	// Skipped is set when the cycle was short-circuited before extraction
	// (source-level throttle, robots, unchanged content). Not an error.
	Skipped bool   `json:"skipped,omitempty"`
	Reason  string `json:"reason,omitempty"`

	// Error carries a per-source failure in batch mode.
	Error string `json:"error,omitempty"`
}
