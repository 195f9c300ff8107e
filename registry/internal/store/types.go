// CLAUDE:SUMMARY All store data types: Source, Entity, Change, FetchLogEntry, Stats.
package store

// Source represents a configured scrape target.
type Source struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Agency        string  `json:"agency"`
	URL           string  `json:"url"`
	ParseType     string  `json:"parse_type"` // "structured-text" | "json" | "pdf" | "csv"
	Selector      string  `json:"selector"`   // pattern hint; presence selects the pattern extractor
	RateLimitRPS  float64 `json:"rate_limit_rps"`
	FetchInterval int64   `json:"fetch_interval"` // ms, scheduler cadence
	Enabled       bool    `json:"enabled"`
	LastFetchedAt *int64  `json:"last_fetched_at,omitempty"`
	LastHash      string  `json:"last_hash"`
	LastHTTPCode  int     `json:"last_http_code"`
	LastStatus    string  `json:"last_status"` // "pending" | "ok" | "unchanged" | "error"
	LastError     string  `json:"last_error"`
	FailCount     int     `json:"fail_count"`
	CreatedAt     int64   `json:"created_at"`
	UpdatedAt     int64   `json:"updated_at"`
}

// Entity is a persisted critical-infrastructure office record.
type Entity struct {
	ID           string   `json:"id"` // deterministic: slug(agency)-slug(name)
	Agency       string   `json:"agency"`
	Name         string   `json:"name"`
	RoleType     string   `json:"role_type"` // "regional" | "field" | "resident" | "sector" | "lab"
	Address      string   `json:"address"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	Zip          string   `json:"zip"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	Phone        string   `json:"phone"`
	Email        string   `json:"email"`
	Website      string   `json:"website"`
	Sectors      []string `json:"sectors"`
	Functions    []string `json:"functions"`
	Priority     int      `json:"priority"` // lower = more important, default 5
	LastVerified int64    `json:"last_verified"`
	SourceURL    string   `json:"source_url"`
	Icon         string   `json:"icon"`
	Notes        string   `json:"notes"`
	CreatedAt    int64    `json:"created_at"`
	UpdatedAt    int64    `json:"updated_at"`
}

// Change is one append-only audit record.
type Change struct {
	ID         string `json:"id"`
	EntityID   string `json:"entity_id"`
	ChangeType string `json:"change_type"` // "scraped" | "merged" | "updated"
	DiffJSON   string `json:"diff_json"`
	SourceURL  string `json:"source_url"`
	CreatedAt  int64  `json:"created_at"`
}

// FetchLogEntry is one fetch attempt record.
type FetchLogEntry struct {
	ID           string `json:"id"`
	SourceID     string `json:"source_id"`
	Status       string `json:"status"` // "ok" | "unchanged" | "skipped" | "error"
	StatusCode   int    `json:"status_code"`
	ContentHash  string `json:"content_hash"`
	ErrorMessage string `json:"error_message"`
	DurationMs   int64  `json:"duration_ms"`
	FetchedAt    int64  `json:"fetched_at"`
}

// Stats holds aggregate registry counters.
type Stats struct {
	Sources  int `json:"sources"`
	Enabled  int `json:"enabled_sources"`
	Entities int `json:"entities"`
	Changes  int `json:"changes"`
}
