/*
[AI GENERATED - GOVERNANCE PROTOCOL]
──────────────────────────────────────────────────────────────
Model:       Claude Opus 4.6
Tier:        L3
Logic:       Schema initialization and additive migrations.
             Tables are created IF NOT EXISTS; later columns are
             added via ALTER ADD COLUMN guarded by a
             column-existence probe. Columns are never dropped
             or re-typed.
Root Cause:  Sprint task T215 — Durable store schema.
Context:     The unique (source_url_link, jurisdiction_country,
             title) index hard-enforces the primary dedup triple.
Suitability: L3 — schema DDL.
──────────────────────────────────────────────────────────────
*/

package store

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS sources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		url TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL,
		authority_type TEXT NOT NULL,
		jurisdiction TEXT NOT NULL DEFAULT '',
		jurisdiction_country TEXT NOT NULL DEFAULT '',
		jurisdiction_state TEXT,
		reliability_tier INTEGER NOT NULL DEFAULT 3,
		last_crawled_at TEXT,
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS regulation_events (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		jurisdiction_country TEXT NOT NULL,
		jurisdiction_state TEXT,
		stage TEXT NOT NULL,
		is_under16_applicable INTEGER NOT NULL DEFAULT 0,
		age_bracket TEXT NOT NULL DEFAULT 'both',
		impact_score INTEGER NOT NULL,
		likelihood_score INTEGER NOT NULL,
		confidence_score INTEGER NOT NULL,
		chili_score INTEGER NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		business_impact TEXT NOT NULL DEFAULT '',
		required_solutions TEXT NOT NULL DEFAULT '[]',
		affected_products TEXT NOT NULL DEFAULT '[]',
		competitor_responses TEXT NOT NULL DEFAULT '[]',
		raw_text TEXT NOT NULL DEFAULT '',
		source_url_link TEXT NOT NULL DEFAULT '',
		effective_date TEXT,
		published_date TEXT,
		source_id INTEGER REFERENCES sources(id),
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (impact_score BETWEEN 1 AND 5),
		CHECK (likelihood_score BETWEEN 1 AND 5),
		CHECK (confidence_score BETWEEN 1 AND 5),
		CHECK (chili_score BETWEEN 1 AND 5)
	)`,

	`CREATE TABLE IF NOT EXISTS event_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id TEXT NOT NULL REFERENCES regulation_events(id),
		changed_at TEXT NOT NULL,
		changed_by TEXT NOT NULL DEFAULT 'pipeline',
		change_type TEXT NOT NULL,
		field_name TEXT,
		previous_value TEXT,
		new_value TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS laws (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		law_key TEXT NOT NULL UNIQUE,
		law_name TEXT NOT NULL,
		jurisdiction_country TEXT NOT NULL DEFAULT '',
		jurisdiction_state TEXT,
		law_type TEXT NOT NULL DEFAULT 'law',
		stage TEXT NOT NULL DEFAULT 'proposed',
		status TEXT NOT NULL DEFAULT 'active',
		first_seen_at TEXT NOT NULL,
		last_seen_at TEXT NOT NULL,
		latest_effective_date TEXT,
		aggregate_risk_max REAL NOT NULL DEFAULT 0,
		aggregate_risk_recent_weighted REAL NOT NULL DEFAULT 0,
		aggregate_risk_overall REAL NOT NULL DEFAULT 0,
		source_confidence REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS law_updates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		law_id INTEGER NOT NULL REFERENCES laws(id) ON DELETE CASCADE,
		event_id TEXT NOT NULL,
		title TEXT NOT NULL,
		stage TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		business_impact TEXT NOT NULL DEFAULT '',
		impact_score INTEGER NOT NULL,
		likelihood_score INTEGER NOT NULL,
		confidence_score INTEGER NOT NULL,
		chili_score INTEGER NOT NULL,
		published_date TEXT,
		effective_date TEXT,
		source_url_link TEXT NOT NULL DEFAULT '',
		raw_metadata TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS crawl_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL,
		completed_at TEXT,
		status TEXT NOT NULL DEFAULT 'running',
		items_found INTEGER NOT NULL DEFAULT 0,
		items_new INTEGER NOT NULL DEFAULT 0,
		items_updated INTEGER NOT NULL DEFAULT 0,
		error_message TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS notifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id TEXT NOT NULL REFERENCES regulation_events(id),
		severity TEXT NOT NULL DEFAULT 'high',
		title TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		is_read INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id TEXT NOT NULL REFERENCES regulation_events(id),
		author TEXT NOT NULL DEFAULT '',
		comment TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,

	// Mandatory indexes.
	`CREATE INDEX IF NOT EXISTS idx_events_stage ON regulation_events(stage)`,
	`CREATE INDEX IF NOT EXISTS idx_events_country ON regulation_events(jurisdiction_country)`,
	`CREATE INDEX IF NOT EXISTS idx_events_state ON regulation_events(jurisdiction_state)`,
	`CREATE INDEX IF NOT EXISTS idx_events_age_bracket ON regulation_events(age_bracket)`,
	`CREATE INDEX IF NOT EXISTS idx_events_published ON regulation_events(published_date)`,
	`CREATE INDEX IF NOT EXISTS idx_events_updated ON regulation_events(updated_at)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_events_dedup_triple
		ON regulation_events(source_url_link, jurisdiction_country, title)`,
	`CREATE INDEX IF NOT EXISTS idx_history_event ON event_history(event_id, changed_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_laws_jurisdiction ON laws(jurisdiction_country, jurisdiction_state)`,
	`CREATE INDEX IF NOT EXISTS idx_laws_stage ON laws(stage)`,
	`CREATE INDEX IF NOT EXISTS idx_laws_risk ON laws(aggregate_risk_max DESC, aggregate_risk_recent_weighted DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_law_updates_law ON law_updates(law_id, published_date DESC, created_at DESC)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_law_updates_event ON law_updates(event_id)`,
}

// additiveColumns are migrations applied to databases created before the
// column existed. Guarded by a column-existence probe; never dropped or
// re-typed.
var additiveColumns = []struct {
	table  string
	column string
	ddl    string
}{
	{"sources", "jurisdiction_country", `ALTER TABLE sources ADD COLUMN jurisdiction_country TEXT NOT NULL DEFAULT ''`},
	{"sources", "jurisdiction_state", `ALTER TABLE sources ADD COLUMN jurisdiction_state TEXT`},
	{"regulation_events", "competitor_responses", `ALTER TABLE regulation_events ADD COLUMN competitor_responses TEXT NOT NULL DEFAULT '[]'`},
	{"regulation_events", "is_under16_applicable", `ALTER TABLE regulation_events ADD COLUMN is_under16_applicable INTEGER NOT NULL DEFAULT 0`},
	{"laws", "latest_effective_date", `ALTER TABLE laws ADD COLUMN latest_effective_date TEXT`},
	{"laws", "source_confidence", `ALTER TABLE laws ADD COLUMN source_confidence REAL NOT NULL DEFAULT 0`},
	{"law_updates", "raw_metadata", `ALTER TABLE law_updates ADD COLUMN raw_metadata TEXT NOT NULL DEFAULT '{}'`},
}

func (s *Store) initSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	for _, mig := range additiveColumns {
		ok, err := s.columnExists(ctx, mig.table, mig.column)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		if _, err := s.db.ExecContext(ctx, mig.ddl); err != nil {
			return fmt.Errorf("migrate %s.%s: %w", mig.table, mig.column, err)
		}
		s.logger.Info().Str("table", mig.table).Str("column", mig.column).Msg("applied additive migration")
	}
	return nil
}

func (s *Store) columnExists(ctx context.Context, table, column string) (bool, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return false, fmt.Errorf("probe %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			cid       int
			name, typ string
			notNull   int
			dflt      any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
