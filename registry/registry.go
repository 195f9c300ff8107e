// CLAUDE:SUMMARY Service orchestrator: per-source scrape cycle, sequential batch mode, scheduler wiring, stats.
// Package registry resolves and deduplicates field-office records scraped
// from configured government sources.
//
// A scrape cycle fetches one source politely, extracts partial office
// records (model- or pattern-driven), resolves each against the vector
// index, and persists the outcome: create, merge into an existing record,
// or skip a confirmed duplicate. Entities within one source are resolved
// strictly sequentially so each resolution sees the creates before it.
package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/fieldreg/blobstore"
	"github.com/hazyhaar/fieldreg/embedding"
	"github.com/hazyhaar/fieldreg/genai"
	"github.com/hazyhaar/fieldreg/idgen"
	"github.com/hazyhaar/fieldreg/kvcache"
	"github.com/hazyhaar/fieldreg/ratelimit"
	"github.com/hazyhaar/fieldreg/registry/internal/content"
	"github.com/hazyhaar/fieldreg/registry/internal/dedupe"
	"github.com/hazyhaar/fieldreg/registry/internal/extract"
	"github.com/hazyhaar/fieldreg/registry/internal/fetch"
	"github.com/hazyhaar/fieldreg/registry/internal/merge"
	"github.com/hazyhaar/fieldreg/registry/internal/scheduler"
	"github.com/hazyhaar/fieldreg/registry/internal/store"
	"github.com/hazyhaar/fieldreg/vecindex"
)

// Schema is the combined SQL schema the service needs. Callers open the
// database and apply it (dbopen.WithSchema); the service never migrates.
var Schema = store.Schema + "\n" + vecindex.Schema

// ErrSourceNotFound is returned when a scrape names an unknown source.
var ErrSourceNotFound = errors.New("registry: source not found")

// ErrSourceDisabled is returned when a scrape names a disabled source.
var ErrSourceDisabled = errors.New("registry: source disabled")

// Service is the registry orchestrator.
type Service struct {
	store    *store.Store
	fetcher  *fetch.Fetcher
	parser   *content.Parser
	model    *extract.ModelExtractor
	pattern  *extract.PatternExtractor
	resolver *dedupe.Resolver
	merger   *merge.Resolver
	index    vecindex.Index
	sched    *scheduler.Scheduler

	config *Config
	logger *slog.Logger
	newID  idgen.Generator
	now    func() time.Time
	sleep  func(time.Duration)

	embedder  embedding.Embedder
	generator genai.Generator
}

// ServiceOption configures a Service during creation.
type ServiceOption func(*Service)

// WithEmbedder overrides the embedding client. Used in tests.
func WithEmbedder(e embedding.Embedder) ServiceOption {
	return func(s *Service) { s.embedder = e }
}

// WithGenerator overrides the text-generation client. Used in tests.
func WithGenerator(g genai.Generator) ServiceOption {
	return func(s *Service) { s.generator = g }
}

// WithFetcher overrides the fetcher.
func WithFetcher(f *fetch.Fetcher) ServiceOption {
	return func(s *Service) { s.fetcher = f }
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithSleep overrides the batch-mode delay function. Used in tests.
func WithSleep(sleep func(time.Duration)) ServiceOption {
	return func(s *Service) { s.sleep = sleep }
}

// New creates a registry Service over an opened database. The database
// must carry Schema.
func New(db *sql.DB, cfg *Config, logger *slog.Logger, opts ...ServiceOption) (*Service, error) {
	if cfg == nil {
		cfg = defaultConfig()
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	svc := &Service{
		store:   store.NewStore(db),
		parser:  content.NewParser(),
		pattern: extract.NewPatternExtractor(),
		index:   vecindex.NewSQLite(db),
		config:  cfg,
		logger:  logger,
		newID:   idgen.Default,
		now:     time.Now,
		sleep:   time.Sleep,
	}

	for _, opt := range opts {
		opt(svc)
	}

	if svc.embedder == nil {
		emb := cfg.Embedding
		emb.Logger = logger
		svc.embedder = embedding.New(emb)
	}
	if svc.generator == nil {
		gen := cfg.GenAI
		gen.Logger = logger
		svc.generator = genai.New(gen)
	}
	if svc.fetcher == nil {
		var blobs blobstore.Store
		if cfg.BlobDir != "" {
			blobs = blobstore.NewFS(cfg.BlobDir)
		}
		fc := cfg.Fetch
		fc.Logger = logger
		limiter := ratelimit.New(kvcache.NewMemory(), logger)
		svc.fetcher = fetch.New(limiter, blobs, fc)
	}

	dc := cfg.Dedupe
	dc.Logger = logger
	svc.resolver = dedupe.NewResolver(svc.embedder, svc.index, dc)
	svc.model = extract.NewModelExtractor(svc.generator)
	svc.merger = merge.NewResolver(svc.store, nil, logger)

	sink := func(ctx context.Context, job *scheduler.Job) error {
		_, err := svc.ScrapeSource(ctx, job.SourceID, false)
		return err
	}
	svc.sched = scheduler.New(svc.store, sink, cfg.Scheduler, logger)

	return svc, nil
}

// Store exposes the underlying store for source management.
func (svc *Service) Store() *store.Store { return svc.store }

// RunScheduler starts the periodic due-source poller. Blocks until ctx is
// cancelled.
func (svc *Service) RunScheduler(ctx context.Context) {
	svc.sched.Run(ctx)
}

// ScrapeSource runs one full source cycle: throttle, fetch, parse,
// extract, resolve each entity, persist, bookkeep.
//
// The returned error is non-nil only for definite failures (unknown
// source, fetch failure, unparsable content); admission rejections and
// unchanged content come back as a Skipped result with a nil error.
func (svc *Service) ScrapeSource(ctx context.Context, sourceID string, force bool) (*ScrapeResult, error) {
	now := svc.now().UnixMilli()
	result := &ScrapeResult{SourceID: sourceID, Timestamp: now}

	src, err := svc.store.GetSource(ctx, sourceID)
	if err != nil {
		result.Error = err.Error()
		return result, fmt.Errorf("registry: load source %s: %w", sourceID, err)
	}
	if src == nil {
		result.Error = ErrSourceNotFound.Error()
		return result, fmt.Errorf("%w: %s", ErrSourceNotFound, sourceID)
	}
	if !src.Enabled {
		result.Error = ErrSourceDisabled.Error()
		return result, fmt.Errorf("%w: %s", ErrSourceDisabled, sourceID)
	}

	// Source-level throttle, coarser than the domain limiter and layered
	// on purpose: one fetch per (1/rps) minutes per source.
	if !force && src.LastFetchedAt != nil {
		rps := src.RateLimitRPS
		if rps <= 0 {
			rps = 1
		}
		minGap := int64(60_000 / rps)
		if now-*src.LastFetchedAt < minGap {
			result.Skipped = true
			result.Reason = "Rate limited"
			return result, nil
		}
	}

	started := svc.now()
	scraped, err := svc.fetcher.Fetch(ctx, src)
	if err != nil {
		if errors.Is(err, fetch.ErrRateLimited) {
			result.Skipped = true
			result.Reason = "Rate limited"
			return result, nil
		}
		if errors.Is(err, fetch.ErrRobotsDisallowed) {
			result.Skipped = true
			result.Reason = "Robots disallowed"
			return result, nil
		}
		svc.recordFailure(ctx, src, started, err)
		result.Error = err.Error()
		return result, fmt.Errorf("registry: fetch %s: %w", sourceID, err)
	}

	if !force && scraped.Hash == src.LastHash && src.LastHash != "" {
		if err := svc.store.RecordFetchUnchanged(ctx, src.ID, scraped.HTTPStatus); err != nil {
			svc.logger.Warn("registry: record unchanged", "source_id", src.ID, "error", err)
		}
		svc.logFetch(ctx, src.ID, "unchanged", scraped.HTTPStatus, scraped.Hash, "", started)
		result.Skipped = true
		result.Reason = "Unchanged content"
		return result, nil
	}

	parsed, err := svc.parser.Parse(scraped.Body, src.ParseType, src.URL)
	if err != nil {
		svc.recordFailure(ctx, src, started, err)
		result.Error = err.Error()
		return result, fmt.Errorf("registry: parse %s: %w", sourceID, err)
	}

	extracted := svc.extract(ctx, scraped, parsed, src)
	result.EntitiesExtracted = len(extracted.Entities)
	result.Confidence = extracted.Confidence
	result.Method = extracted.Method
	for _, msg := range extracted.Errors {
		svc.logger.Warn("registry: extraction degraded", "source_id", src.ID, "method", extracted.Method, "detail", msg)
	}

	// Strictly sequential so each resolution sees prior creates.
	for _, e := range extracted.Entities {
		action, err := svc.resolveEntity(ctx, e, src)
		if err != nil {
			svc.logger.Error("registry: entity failed", "entity_id", e.ID, "source_id", src.ID, "error", err)
			continue
		}
		switch action {
		case dedupe.ActionSkip:
			result.EntitiesSkipped++
		case dedupe.ActionMerge:
			result.EntitiesUpdated++
		case dedupe.ActionCreate:
			result.EntitiesCreated++
		}
	}

	// Bookkeeping happens even when entities failed: it records "we
	// attempted this source", not "everything worked".
	if err := svc.store.RecordFetchSuccess(ctx, src.ID, scraped.Hash, scraped.HTTPStatus); err != nil {
		svc.logger.Warn("registry: record fetch success", "source_id", src.ID, "error", err)
	}
	svc.logFetch(ctx, src.ID, "ok", scraped.HTTPStatus, scraped.Hash, "", started)

	svc.logger.Info("registry: source scraped",
		"source_id", src.ID,
		"method", result.Method,
		"extracted", result.EntitiesExtracted,
		"created", result.EntitiesCreated,
		"updated", result.EntitiesUpdated,
		"skipped", result.EntitiesSkipped)
	return result, nil
}

// extract picks the strategy: a selector hint opts the source into the
// pattern battery, everything else goes through the model.
func (svc *Service) extract(ctx context.Context, scraped *fetch.ScrapedContent, parsed *content.Parsed, src *store.Source) *extract.Result {
	if src.Selector != "" {
		return svc.pattern.Extract(string(scraped.Body), src)
	}
	return svc.model.Extract(ctx, parsed.Text, src)
}

// resolveEntity classifies one extracted record and applies the outcome.
func (svc *Service) resolveEntity(ctx context.Context, e *store.Entity, src *store.Source) (dedupe.Action, error) {
	decision, vec := svc.resolver.Resolve(ctx, e)

	switch decision.Action {
	case dedupe.ActionSkip:
		svc.logger.Debug("registry: duplicate skipped",
			"entity_id", e.ID, "match_id", decision.MatchID, "similarity", decision.Similarity)
		return dedupe.ActionSkip, nil

	case dedupe.ActionMerge:
		if err := svc.merger.Merge(ctx, e, decision.MatchID); err != nil {
			return dedupe.ActionMerge, fmt.Errorf("merge into %s: %w", decision.MatchID, err)
		}
		return dedupe.ActionMerge, nil

	default:
		if err := svc.store.InsertEntity(ctx, e); err != nil {
			return dedupe.ActionCreate, fmt.Errorf("insert: %w", err)
		}
		// The resolver only reads the index; writing after a confirmed
		// create is the orchestrator's job.
		if err := svc.index.Upsert(ctx, e.ID, vec, dedupe.Metadata(e)); err != nil {
			svc.logger.Warn("registry: index upsert failed", "entity_id", e.ID, "error", err)
		}
		svc.appendScrapedChange(ctx, e, src)
		return dedupe.ActionCreate, nil
	}
}

// appendScrapedChange records the creation in the audit log.
func (svc *Service) appendScrapedChange(ctx context.Context, e *store.Entity, src *store.Source) {
	diff, err := json.Marshal(map[string]string{"source_url": src.URL})
	if err != nil {
		return
	}
	chg := &store.Change{
		ID:         idgen.Prefixed("chg_", svc.newID)(),
		EntityID:   e.ID,
		ChangeType: "scraped",
		DiffJSON:   string(diff),
		SourceURL:  src.URL,
		CreatedAt:  svc.now().UnixMilli(),
	}
	if err := svc.store.AppendChange(ctx, chg); err != nil {
		svc.logger.Warn("registry: append change", "entity_id", e.ID, "error", err)
	}
}

// recordFailure updates source status and the fetch log after a definite
// fetch or parse failure.
func (svc *Service) recordFailure(ctx context.Context, src *store.Source, started time.Time, cause error) {
	if err := svc.store.RecordFetchError(ctx, src.ID, cause.Error()); err != nil {
		svc.logger.Warn("registry: record fetch error", "source_id", src.ID, "error", err)
	}
	svc.logFetch(ctx, src.ID, "error", 0, "", cause.Error(), started)
}

// logFetch appends one fetch_log row. Best-effort.
func (svc *Service) logFetch(ctx context.Context, sourceID, status string, code int, hash, errMsg string, started time.Time) {
	entry := &store.FetchLogEntry{
		ID:           idgen.Prefixed("flog_", svc.newID)(),
		SourceID:     sourceID,
		Status:       status,
		StatusCode:   code,
		ContentHash:  hash,
		ErrorMessage: errMsg,
		DurationMs:   svc.now().Sub(started).Milliseconds(),
		FetchedAt:    started.UnixMilli(),
	}
	if err := svc.store.InsertFetchLog(ctx, entry); err != nil {
		svc.logger.Warn("registry: fetch log", "source_id", sourceID, "error", err)
	}
}

// ScrapeAll runs every enabled source sequentially with a fixed delay
// between them. Per-source failures land in the result's Error field; the
// batch never aborts.
func (svc *Service) ScrapeAll(ctx context.Context) ([]*ScrapeResult, error) {
	sources, err := svc.store.ListEnabledSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry: list sources: %w", err)
	}

	results := make([]*ScrapeResult, 0, len(sources))
	for i, src := range sources {
		if i > 0 {
			svc.sleep(svc.config.BatchDelay)
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := svc.ScrapeSource(ctx, src.ID, false)
		if err != nil && res.Error == "" {
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return results, nil
}

// DedupePreview classifies a hypothetical record against the index without
// persisting anything. Drives the MCP preview tool.
func (svc *Service) DedupePreview(ctx context.Context, e *Entity) *Decision {
	decision, _ := svc.resolver.Resolve(ctx, e)
	return decision
}

// Stats returns aggregate registry counters plus the vector-index size.
func (svc *Service) Stats(ctx context.Context) (*Stats, *IndexStats, error) {
	stats, err := svc.store.GetStats(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("registry: stats: %w", err)
	}
	count, err := svc.index.Count(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("registry: index count: %w", err)
	}
	return stats, &IndexStats{Vectors: count}, nil
}

// IndexStats reports vector-index size.
type IndexStats struct {
	Vectors int `json:"vectors"`
}
