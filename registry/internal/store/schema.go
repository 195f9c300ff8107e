// CLAUDE:SUMMARY Applies the registry SQL schema: sources, entities, changes, fetch_log.
package store

import "database/sql"

// Schema is the complete registry schema. Idempotent.
const Schema = `
-- Scrape targets
CREATE TABLE IF NOT EXISTS sources (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    agency          TEXT NOT NULL DEFAULT '',
    url             TEXT NOT NULL,
    parse_type      TEXT NOT NULL DEFAULT 'structured-text',
    selector        TEXT NOT NULL DEFAULT '',
    rate_limit_rps  REAL NOT NULL DEFAULT 1.0,
    fetch_interval  INTEGER NOT NULL DEFAULT 86400000,
    enabled         INTEGER NOT NULL DEFAULT 1,
    last_fetched_at INTEGER,
    last_hash       TEXT NOT NULL DEFAULT '',
    last_http_code  INTEGER NOT NULL DEFAULT 0,
    last_status     TEXT NOT NULL DEFAULT 'pending',
    last_error      TEXT NOT NULL DEFAULT '',
    fail_count      INTEGER NOT NULL DEFAULT 0,
    created_at      INTEGER NOT NULL,
    updated_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sources_enabled ON sources(enabled, last_fetched_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_sources_url_unique ON sources(url);

-- Field-office records
CREATE TABLE IF NOT EXISTS entities (
    id             TEXT PRIMARY KEY,
    agency         TEXT NOT NULL,
    name           TEXT NOT NULL,
    role_type      TEXT NOT NULL DEFAULT 'field',
    address        TEXT NOT NULL DEFAULT '',
    city           TEXT NOT NULL DEFAULT '',
    state          TEXT NOT NULL DEFAULT '',
    zip            TEXT NOT NULL DEFAULT '',
    latitude       REAL,
    longitude      REAL,
    phone          TEXT NOT NULL DEFAULT '',
    email          TEXT NOT NULL DEFAULT '',
    website        TEXT NOT NULL DEFAULT '',
    sectors_json   TEXT NOT NULL DEFAULT '[]',
    functions_json TEXT NOT NULL DEFAULT '[]',
    priority       INTEGER NOT NULL DEFAULT 5,
    last_verified  INTEGER NOT NULL DEFAULT 0,
    source_url     TEXT NOT NULL DEFAULT '',
    icon           TEXT NOT NULL DEFAULT '',
    notes          TEXT NOT NULL DEFAULT '',
    created_at     INTEGER NOT NULL,
    updated_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entities_agency ON entities(agency);
CREATE INDEX IF NOT EXISTS idx_entities_state ON entities(state);

-- Append-only audit log
CREATE TABLE IF NOT EXISTS changes (
    id          TEXT PRIMARY KEY,
    entity_id   TEXT NOT NULL,
    change_type TEXT NOT NULL,
    diff_json   TEXT NOT NULL DEFAULT '{}',
    source_url  TEXT NOT NULL DEFAULT '',
    created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_changes_entity ON changes(entity_id, created_at DESC);

-- Fetch log (observability)
CREATE TABLE IF NOT EXISTS fetch_log (
    id            TEXT PRIMARY KEY,
    source_id     TEXT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
    status        TEXT NOT NULL,
    status_code   INTEGER NOT NULL DEFAULT 0,
    content_hash  TEXT NOT NULL DEFAULT '',
    error_message TEXT NOT NULL DEFAULT '',
    duration_ms   INTEGER NOT NULL DEFAULT 0,
    fetched_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fetch_log_source ON fetch_log(source_id, fetched_at DESC);
`

// ApplySchema creates all tables and indexes on the given database.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
