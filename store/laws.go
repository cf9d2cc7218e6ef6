/*
[AI GENERATED - GOVERNANCE PROTOCOL]
──────────────────────────────────────────────────────────────
Model:       Claude Opus 4.6
Tier:        L3
Logic:       Law and law-update persistence: truncate-and-rebuild
             writes used by the backfill engine, plus law list
             and detail reads for the query surface.
Root Cause:  Sprint task T222 — Canonical law tables.
Context:     laws/law_updates are derived tables; the backfill
             engine is their only writer and always replaces
             them wholesale inside one transaction.
Suitability: L3 — derived-table persistence.
──────────────────────────────────────────────────────────────
*/

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// TruncateLaws clears the derived tables inside tx. law_updates goes first
// to satisfy the foreign key.
func (s *Store) TruncateLaws(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM law_updates`); err != nil {
		return fmt.Errorf("truncate law_updates: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM laws`); err != nil {
		return fmt.Errorf("truncate laws: %w", err)
	}
	return nil
}

// InsertLaw writes one law row inside tx and returns its id.
func (s *Store) InsertLaw(ctx context.Context, tx *sql.Tx, l Law) (int64, error) {
	ts := now()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO laws (
			law_key, law_name, jurisdiction_country, jurisdiction_state, law_type,
			stage, status, first_seen_at, last_seen_at, latest_effective_date,
			aggregate_risk_max, aggregate_risk_recent_weighted, aggregate_risk_overall,
			source_confidence, created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		l.LawKey, l.LawName, l.JurisdictionCountry, nullIfEmpty(l.JurisdictionState), l.LawType,
		l.Stage, l.Status, l.FirstSeenAt, l.LastSeenAt, nullStr(l.LatestEffectiveDate),
		l.AggregateRiskMax, l.AggregateRiskRecentWeighted, l.AggregateRiskOverall,
		l.SourceConfidence, ts, ts)
	if err != nil {
		return 0, fmt.Errorf("insert law %s: %w", l.LawKey, err)
	}
	return res.LastInsertId()
}

// InsertLawUpdate writes one law_update row inside tx.
func (s *Store) InsertLawUpdate(ctx context.Context, tx *sql.Tx, u LawUpdate) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO law_updates (
			law_id, event_id, title, stage, summary, business_impact,
			impact_score, likelihood_score, confidence_score, chili_score,
			published_date, effective_date, source_url_link, raw_metadata, created_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		u.LawID, u.EventID, u.Title, u.Stage, u.Summary, u.BusinessImpact,
		u.ImpactScore, u.LikelihoodScore, u.ConfidenceScore, u.ChiliScore,
		nullStr(u.PublishedDate), nullStr(u.EffectiveDate), u.SourceURLLink,
		u.RawMetadata, now())
	if err != nil {
		return fmt.Errorf("insert law update for event %s: %w", u.EventID, err)
	}
	return nil
}

// EventWithSource joins an event with its source's reliability metadata for
// the backfill engine.
type EventWithSource struct {
	Event           RegulationEvent
	SourceName      string
	ReliabilityTier int
}

// ListEventsWithSources returns every regulation event joined with its
// source, the backfill engine's input set.
func (s *Store) ListEventsWithSources(ctx context.Context) ([]EventWithSource, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+eventCols+`,
		COALESCE(s.name, ''), COALESCE(s.reliability_tier, 3)
		FROM regulation_events e
		LEFT JOIN sources s ON s.id = e.source_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []EventWithSource
	for rows.Next() {
		var ews EventWithSource
		if err := scanEventInto(rows, &ews.Event, &ews.SourceName, &ews.ReliabilityTier); err != nil {
			return nil, err
		}
		out = append(out, ews)
	}
	return out, rows.Err()
}

// LawFilter narrows ListLaws.
type LawFilter struct {
	Jurisdiction string
	Stage        string
	MinRisk      float64
	Limit        int
}

// ListLaws returns laws ordered by aggregate risk.
func (s *Store) ListLaws(ctx context.Context, f LawFilter) ([]Law, error) {
	var conds []string
	var args []any
	if f.Jurisdiction != "" {
		conds = append(conds, `jurisdiction_country = ?`)
		args = append(args, f.Jurisdiction)
	}
	if f.Stage != "" {
		conds = append(conds, `stage = ?`)
		args = append(args, f.Stage)
	}
	if f.MinRisk > 0 {
		conds = append(conds, `aggregate_risk_max >= ?`)
		args = append(args, f.MinRisk)
	}
	q := selectLawColumns
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	q += ` ORDER BY aggregate_risk_max DESC, aggregate_risk_recent_weighted DESC, updated_at DESC`
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	q += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Law
	for rows.Next() {
		l, err := scanLaw(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// GetLawByKey returns one law with all of its updates sorted by
// published_date DESC. Returns sql.ErrNoRows when the key is unknown.
func (s *Store) GetLawByKey(ctx context.Context, lawKey string) (*Law, []LawUpdate, error) {
	row := s.db.QueryRowContext(ctx, selectLawColumns+` WHERE law_key = ?`, lawKey)
	l, err := scanLaw(row)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, law_id, event_id, title, stage, summary, business_impact,
		       impact_score, likelihood_score, confidence_score, chili_score,
		       published_date, effective_date, source_url_link, raw_metadata, created_at
		FROM law_updates
		WHERE law_id = ?
		ORDER BY published_date DESC, created_at DESC`, l.ID)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = rows.Close() }()

	var updates []LawUpdate
	for rows.Next() {
		var u LawUpdate
		var pub, eff sql.NullString
		if err := rows.Scan(&u.ID, &u.LawID, &u.EventID, &u.Title, &u.Stage, &u.Summary,
			&u.BusinessImpact, &u.ImpactScore, &u.LikelihoodScore, &u.ConfidenceScore,
			&u.ChiliScore, &pub, &eff, &u.SourceURLLink, &u.RawMetadata, &u.CreatedAt); err != nil {
			return nil, nil, err
		}
		u.PublishedDate = strPtr(pub)
		u.EffectiveDate = strPtr(eff)
		updates = append(updates, u)
	}
	return l, updates, rows.Err()
}

// CountLaws returns the number of law rows.
func (s *Store) CountLaws(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM laws`).Scan(&n)
	return n, err
}

const selectLawColumns = `
	SELECT id, law_key, law_name, jurisdiction_country, COALESCE(jurisdiction_state, ''),
	       law_type, stage, status, first_seen_at, last_seen_at, latest_effective_date,
	       aggregate_risk_max, aggregate_risk_recent_weighted, aggregate_risk_overall,
	       source_confidence, created_at, updated_at
	FROM laws`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLaw(r rowScanner) (*Law, error) {
	var l Law
	var eff sql.NullString
	if err := r.Scan(&l.ID, &l.LawKey, &l.LawName, &l.JurisdictionCountry, &l.JurisdictionState,
		&l.LawType, &l.Stage, &l.Status, &l.FirstSeenAt, &l.LastSeenAt, &eff,
		&l.AggregateRiskMax, &l.AggregateRiskRecentWeighted, &l.AggregateRiskOverall,
		&l.SourceConfidence, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.LatestEffectiveDate = strPtr(eff)
	return &l, nil
}
