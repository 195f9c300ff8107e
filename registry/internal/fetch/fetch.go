// CLAUDE:SUMMARY Politeness-checked HTTP fetcher with rate-limit admission, robots check, hashing, and blob archival.
// Package fetch retrieves source content politely.
//
// Each fetch passes the domain rate limiter, a best-effort robots.txt
// check, and SSRF validation before the request goes out. The body is
// hashed (SHA-256, the sole change-detection signal) and archived to blob
// storage; archival failures never fail the fetch.
package fetch

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hazyhaar/fieldreg/blobstore"
	"github.com/hazyhaar/fieldreg/ratelimit"
	"github.com/hazyhaar/fieldreg/registry/internal/store"
	"github.com/hazyhaar/fieldreg/websafe"
)

// ErrRateLimited signals a domain-level admission rejection: not an error,
// a "try later" outcome.
var ErrRateLimited = errors.New("fetch: rate limited")

// ErrRobotsDisallowed signals a blanket robots.txt disallow.
var ErrRobotsDisallowed = errors.New("fetch: robots.txt disallows crawling")

// ScrapedContent is one successful fetch result. Immutable once returned.
type ScrapedContent struct {
	SourceID    string
	URL         string
	Body        []byte
	ContentType string
	HTTPStatus  int
	Hash        string // SHA-256 hex of Body
	FetchedAt   int64
}

// Config configures the fetcher.
type Config struct {
	Timeout   time.Duration `json:"timeout" yaml:"timeout"`       // default 10s
	MaxBytes  int64         `json:"max_bytes" yaml:"max_bytes"`   // default 10MB
	UserAgent string        `json:"user_agent" yaml:"user_agent"` // descriptive client id

	// URLValidator runs before every request and redirect. Default:
	// websafe.ValidateURL.
	URLValidator func(string) error `json:"-" yaml:"-"`

	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = websafe.MaxResponseBody
	}
	if c.UserAgent == "" {
		c.UserAgent = "fieldreg/1.0 (field office registry; contact: ops@fieldreg.example)"
	}
	if c.URLValidator == nil {
		c.URLValidator = websafe.ValidateURL
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Fetcher performs politeness-checked fetches.
type Fetcher struct {
	client  *http.Client
	limiter *ratelimit.Limiter
	blobs   blobstore.Store
	cfg     Config
	now     func() time.Time
}

// New creates a Fetcher with SSRF protection on redirects.
func New(limiter *ratelimit.Limiter, blobs blobstore.Store, cfg Config) *Fetcher {
	cfg.defaults()
	validate := cfg.URLValidator
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				if err := validate(req.URL.String()); err != nil {
					return fmt.Errorf("redirect blocked (SSRF): %w", err)
				}
				return nil
			},
		},
		limiter: limiter,
		blobs:   blobs,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Fetch retrieves the source URL. Admission rejections surface as
// ErrRateLimited / ErrRobotsDisallowed; the orchestrator treats every
// error here as "this source produced nothing this cycle".
func (f *Fetcher) Fetch(ctx context.Context, src *store.Source) (*ScrapedContent, error) {
	u, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch: parse URL %q: %w", src.URL, err)
	}
	domain := u.Hostname()

	if !f.limiter.Admit(ctx, domain, src.RateLimitRPS) {
		return nil, ErrRateLimited
	}

	if !f.robotsAllowed(ctx, u) {
		return nil, ErrRobotsDisallowed
	}

	if err := f.cfg.URLValidator(src.URL); err != nil {
		return nil, fmt.Errorf("fetch: URL blocked (SSRF): %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: new request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch: http %d from %s", resp.StatusCode, src.URL)
	}

	body, err := websafe.LimitedReadAll(resp.Body, f.cfg.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("fetch: read body: %w", err)
	}

	hash := fmt.Sprintf("%x", sha256.Sum256(body))
	fetchedAt := f.now()

	content := &ScrapedContent{
		SourceID:    src.ID,
		URL:         src.URL,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		HTTPStatus:  resp.StatusCode,
		Hash:        hash,
		FetchedAt:   fetchedAt.UnixMilli(),
	}

	f.archive(ctx, content, fetchedAt)
	return content, nil
}

// archive writes the raw body to blob storage. Failures log and continue.
func (f *Fetcher) archive(ctx context.Context, c *ScrapedContent, fetchedAt time.Time) {
	if f.blobs == nil {
		return
	}
	key := fmt.Sprintf("sources/%s/%s/%s", c.SourceID, fetchedAt.UTC().Format("2006-01-02"), c.Hash)
	meta := map[string]string{
		"source_id": c.SourceID,
		"url":       c.URL,
	}
	if err := f.blobs.Put(ctx, key, c.Body, c.ContentType, meta); err != nil {
		f.cfg.Logger.Warn("fetch: blob archive failed", "key", key, "error", err)
	}
}
