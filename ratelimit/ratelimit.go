// Package ratelimit implements per-domain sliding-window request admission
// backed by a shared kvcache.
//
// The budget inside a window ramps linearly: at elapsed fraction f of the
// one-second window, at most floor(maxRPS * f) requests have been admitted
// (plus the admission that opened the window). This smooths bursts at the
// start of a window instead of granting a flat per-second bucket.
//
// The limiter is advisory and best-effort: window state carries a short TTL,
// and any cache failure admits the request (fail-open) so a degraded cache
// never stalls the pipeline.
package ratelimit

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"time"

	"github.com/hazyhaar/fieldreg/kvcache"
)

// windowSize is the admission window length.
const windowSize = 1000 * time.Millisecond

// windowTTL is how long window state lives in the cache. Slightly above the
// window itself so stale windows expire on their own.
const windowTTL = 2 * time.Second

type window struct {
	StartMs int64 `json:"start_ms"` // window open time, unix millis
	Count   int   `json:"count"`    // admissions within the window
}

// Limiter admits or rejects requests per domain.
type Limiter struct {
	cache  kvcache.Cache
	logger *slog.Logger
	now    func() time.Time // test hook
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a Limiter over the given cache.
func New(cache kvcache.Cache, logger *slog.Logger, opts ...Option) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Limiter{cache: cache, logger: logger, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Admit reports whether one request to domain may proceed under the given
// requests-per-second budget. An admitted request is counted against the
// current window. A rejected caller should skip this fetch cycle, not retry
// in a tight loop.
func (l *Limiter) Admit(ctx context.Context, domain string, maxRPS float64) bool {
	if maxRPS <= 0 {
		maxRPS = 1
	}
	key := "ratelimit:" + domain
	now := l.now()

	raw, ok, err := l.cache.Get(ctx, key)
	if err != nil {
		l.logger.Warn("ratelimit: cache read failed, admitting", "domain", domain, "error", err)
		return true
	}

	var w window
	if ok {
		if err := json.Unmarshal(raw, &w); err != nil {
			l.logger.Warn("ratelimit: corrupt window state, resetting", "domain", domain, "error", err)
			ok = false
		}
	}

	elapsed := time.Duration(now.UnixMilli()-w.StartMs) * time.Millisecond
	if !ok || elapsed >= windowSize {
		l.put(ctx, key, window{StartMs: now.UnixMilli(), Count: 1}, domain)
		return true
	}

	budget := int(math.Floor(maxRPS * (float64(elapsed) / float64(windowSize))))
	if w.Count >= budget {
		return false
	}

	w.Count++
	l.put(ctx, key, w, domain)
	return true
}

func (l *Limiter) put(ctx context.Context, key string, w window, domain string) {
	raw, err := json.Marshal(w)
	if err != nil {
		return
	}
	if err := l.cache.Put(ctx, key, raw, windowTTL); err != nil {
		l.logger.Warn("ratelimit: cache write failed", "domain", domain, "error", err)
	}
}
