package db

import (
	"database/sql"
)

// MigrateUp creates the SentinelPi schema if it does not already exist.
// All statements are idempotent so MigrateUp is safe to run on every start.
func MigrateUp(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sources (
			id                 TEXT PRIMARY KEY,
			name               TEXT NOT NULL,
			url                TEXT NOT NULL,
			type               TEXT NOT NULL DEFAULT 'rss',
			category           TEXT NOT NULL DEFAULT '',
			priority           INTEGER NOT NULL DEFAULT 0,
			interval_minutes   INTEGER NOT NULL DEFAULT 30,
			enabled            INTEGER NOT NULL DEFAULT 1,
			config_json        TEXT NOT NULL DEFAULT '{}',
			last_check_at      TIMESTAMP,
			last_success_at    TIMESTAMP,
			consecutive_errors INTEGER NOT NULL DEFAULT 0,
			created_at         TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			id            TEXT PRIMARY KEY,
			source_id     TEXT NOT NULL REFERENCES sources(id),
			guid          TEXT NOT NULL,
			content_hash  TEXT NOT NULL,
			title         TEXT NOT NULL,
			url           TEXT NOT NULL,
			author        TEXT NOT NULL DEFAULT '',
			content       TEXT NOT NULL DEFAULT '',
			summary       TEXT NOT NULL DEFAULT '',
			published_at  TIMESTAMP,
			collected_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			image_url     TEXT NOT NULL DEFAULT '',
			media_urls    TEXT NOT NULL DEFAULT '[]',
			keywords      TEXT NOT NULL DEFAULT '[]',
			highlighted   INTEGER NOT NULL DEFAULT 0,
			excluded      INTEGER NOT NULL DEFAULT 0,
			tags          TEXT NOT NULL DEFAULT '[]',
			score         REAL NOT NULL DEFAULT 0,
			score_detail  TEXT NOT NULL DEFAULT '{}',
			duplicate_of  TEXT,
			read          INTEGER NOT NULL DEFAULT 0,
			starred       INTEGER NOT NULL DEFAULT 0,
			archived      INTEGER NOT NULL DEFAULT 0,
			UNIQUE(source_id, guid)
		)`,
		`CREATE TABLE IF NOT EXISTS filters (
			id             TEXT PRIMARY KEY,
			name           TEXT NOT NULL,
			enabled        INTEGER NOT NULL DEFAULT 1,
			priority       INTEGER NOT NULL DEFAULT 0,
			condition_json TEXT NOT NULL,
			actions_json   TEXT NOT NULL DEFAULT '[]',
			tags_json      TEXT NOT NULL DEFAULT '[]',
			score_modifier REAL NOT NULL DEFAULT 0,
			alert_severity TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS user_actions (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			item_id    TEXT NOT NULL REFERENCES items(id),
			action     TEXT NOT NULL,
			occurred_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS user_preferences (
			feature_type TEXT NOT NULL,
			feature_key  TEXT NOT NULL,
			weight       REAL NOT NULL DEFAULT 0,
			sample_count INTEGER NOT NULL DEFAULT 0,
			updated_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (feature_type, feature_key)
		)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id          TEXT PRIMARY KEY,
			filter_id   TEXT NOT NULL,
			item_id     TEXT NOT NULL,
			severity    TEXT NOT NULL,
			message     TEXT NOT NULL,
			raised_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			dispatched  INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_published_at ON items(published_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_items_source_id ON items(source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_items_content_hash ON items(content_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_sources_enabled ON sources(enabled) WHERE enabled = 1`,
		`CREATE INDEX IF NOT EXISTS idx_sources_type ON sources(type)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_item_id ON alerts(item_id)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

// MigrateDown drops the SentinelPi schema. Used only by tests and the
// diagnostic CLI; never called from the scheduler's normal startup path.
func MigrateDown(db *sql.DB) error {
	statements := []string{
		`DROP TABLE IF EXISTS alerts`,
		`DROP TABLE IF EXISTS user_preferences`,
		`DROP TABLE IF EXISTS user_actions`,
		`DROP TABLE IF EXISTS filters`,
		`DROP TABLE IF EXISTS items`,
		`DROP TABLE IF EXISTS sources`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
