/*
[AI GENERATED - GOVERNANCE PROTOCOL]
──────────────────────────────────────────────────────────────
Model:       Claude Opus 4.6
Tier:        L3
Logic:       Read paths for the UI and alert layer: executive
             brief (law-first with event fallback), paginated
             filtered event list, event detail with related
             events, analytics rollup.
Root Cause:  Sprint task T224 — Query surface.
Context:     All reads are best-effort snapshots; no serializable
             isolation. Sorting is whitelist-mapped, filter
             dates compare against COALESCE(published,
             effective, updated-date-part).
Suitability: L3 — SQL read paths.
──────────────────────────────────────────────────────────────
*/

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const eventCols = `e.id, e.title, e.jurisdiction_country, COALESCE(e.jurisdiction_state, ''),
	e.stage, e.is_under16_applicable, e.age_bracket,
	e.impact_score, e.likelihood_score, e.confidence_score, e.chili_score,
	e.summary, e.business_impact,
	e.required_solutions, e.affected_products, e.competitor_responses,
	e.raw_text, e.source_url_link, e.effective_date, e.published_date,
	e.source_id, e.created_at, e.updated_at`

const selectEventColumns = `SELECT ` + eventCols + ` FROM regulation_events e`

func scanEventInto(r rowScanner, ev *RegulationEvent, extra ...any) error {
	var under16 int
	var eff, pub sql.NullString
	var srcID sql.NullInt64
	var stage string
	dest := []any{
		&ev.ID, &ev.Title, &ev.JurisdictionCountry, &ev.JurisdictionState,
		&stage, &under16, &ev.AgeBracket,
		&ev.ImpactScore, &ev.LikelihoodScore, &ev.ConfidenceScore, &ev.ChiliScore,
		&ev.Summary, &ev.BusinessImpact,
		&ev.RequiredSolutions, &ev.AffectedProducts, &ev.CompetitorResponses,
		&ev.RawText, &ev.SourceURLLink, &eff, &pub,
		&srcID, &ev.CreatedAt, &ev.UpdatedAt,
	}
	dest = append(dest, extra...)
	if err := r.Scan(dest...); err != nil {
		return err
	}
	ev.Stage = Stage(stage)
	ev.IsUnder16Applicable = under16 != 0
	ev.EffectiveDate = strPtr(eff)
	ev.PublishedDate = strPtr(pub)
	if srcID.Valid {
		v := srcID.Int64
		ev.SourceID = &v
	}
	return nil
}

func scanEvent(r rowScanner) (*RegulationEvent, error) {
	var ev RegulationEvent
	if err := scanEventInto(r, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// EventFilter narrows and orders the events list.
type EventFilter struct {
	Jurisdictions []string
	Stages        []string
	AgeBracket    string
	MinRisk       int
	MaxRisk       int
	DateFrom      string // YYYY-MM-DD, inclusive
	DateTo        string // YYYY-MM-DD, inclusive
	Query         string
	SortBy        string
	SortDir       string
	Page          int
	Limit         int
}

// EventPage is one page of the events list plus its pagination envelope.
type EventPage struct {
	Items      []RegulationEvent `json:"items"`
	Page       int               `json:"page"`
	TotalPages int               `json:"totalPages"`
	Total      int               `json:"total"`
}

var eventSortColumns = map[string]string{
	"updated_at":     "e.updated_at",
	"published_date": "e.published_date",
	"chili_score":    "e.chili_score",
	"jurisdiction":   "e.jurisdiction_country",
	"stage":          "e.stage",
	"title":          "e.title",
}

// ListEvents returns a filtered, sorted, paginated slice of events.
func (s *Store) ListEvents(ctx context.Context, f EventFilter) (*EventPage, error) {
	var conds []string
	var args []any

	if len(f.Jurisdictions) > 0 {
		ph := strings.TrimSuffix(strings.Repeat("?,", len(f.Jurisdictions)), ",")
		conds = append(conds, `e.jurisdiction_country IN (`+ph+`)`)
		for _, j := range f.Jurisdictions {
			args = append(args, j)
		}
	}
	if len(f.Stages) > 0 {
		ph := strings.TrimSuffix(strings.Repeat("?,", len(f.Stages)), ",")
		conds = append(conds, `e.stage IN (`+ph+`)`)
		for _, st := range f.Stages {
			args = append(args, st)
		}
	}
	if f.AgeBracket != "" {
		conds = append(conds, `e.age_bracket = ?`)
		args = append(args, f.AgeBracket)
	}
	if f.MinRisk > 0 {
		conds = append(conds, `e.chili_score >= ?`)
		args = append(args, f.MinRisk)
	}
	if f.MaxRisk > 0 {
		conds = append(conds, `e.chili_score <= ?`)
		args = append(args, f.MaxRisk)
	}
	// Events carry dates at mixed precision; compare against the best
	// available date for each row.
	const refDate = `COALESCE(e.published_date, e.effective_date, substr(e.updated_at, 1, 10))`
	if f.DateFrom != "" {
		conds = append(conds, refDate+` >= ?`)
		args = append(args, f.DateFrom)
	}
	if f.DateTo != "" {
		conds = append(conds, refDate+` <= ?`)
		args = append(args, f.DateTo)
	}
	if f.Query != "" {
		like := "%" + f.Query + "%"
		conds = append(conds, `(e.title LIKE ? OR e.summary LIKE ? OR e.business_impact LIKE ?)`)
		args = append(args, like, like, like)
	}

	where := ""
	if len(conds) > 0 {
		where = ` WHERE ` + strings.Join(conds, ` AND `)
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM regulation_events e`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}

	sortCol, ok := eventSortColumns[f.SortBy]
	if !ok {
		sortCol = "e.updated_at"
	}
	dir := "DESC"
	if strings.EqualFold(f.SortDir, "asc") {
		dir = "ASC"
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 25
	}
	if limit > 100 {
		limit = 100
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	q := selectEventColumns + where +
		fmt.Sprintf(` ORDER BY %s %s, e.id %s LIMIT ? OFFSET ?`, sortCol, dir, dir)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := make([]RegulationEvent, 0, limit)
	for rows.Next() {
		var ev RegulationEvent
		if err := scanEventInto(rows, &ev); err != nil {
			return nil, err
		}
		items = append(items, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	totalPages := (total + limit - 1) / limit
	if totalPages == 0 {
		totalPages = 1
	}
	return &EventPage{Items: items, Page: page, TotalPages: totalPages, Total: total}, nil
}

// RelatedEvents returns up to limit other events in the same jurisdiction,
// hottest first.
func (s *Store) RelatedEvents(ctx context.Context, eventID string, limit int) ([]RegulationEvent, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx, selectEventColumns+`
		WHERE e.jurisdiction_country = (SELECT jurisdiction_country FROM regulation_events WHERE id = ?)
		  AND e.id != ?
		ORDER BY e.chili_score DESC, e.updated_at DESC
		LIMIT ?`, eventID, eventID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []RegulationEvent
	for rows.Next() {
		var ev RegulationEvent
		if err := scanEventInto(rows, &ev); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// BriefItem is one canonical law in the executive brief.
type BriefItem struct {
	LawKey                      string  `json:"lawKey"`
	LawName                     string  `json:"lawName"`
	Jurisdiction                string  `json:"jurisdiction"`
	Flag                        string  `json:"flag"`
	Stage                       string  `json:"stage"`
	StageColor                  string  `json:"stageColor"`
	AgeBracket                  string  `json:"ageBracket"`
	AggregateRiskMax            float64 `json:"aggregateRiskMax"`
	AggregateRiskRecentWeighted float64 `json:"aggregateRiskRecentWeighted"`
	AggregateRiskOverall        float64 `json:"aggregateRiskOverall"`
	SourceConfidence            float64 `json:"sourceConfidence"`
	UpdateCount                 int     `json:"updateCount"`
	LatestSummary               string  `json:"latestSummary"`
}

// Brief is the executive briefing payload.
type Brief struct {
	GeneratedAt   string      `json:"generatedAt"`
	LastCrawledAt *string     `json:"lastCrawledAt"`
	Items         []BriefItem `json:"items"`
}

var stageColors = map[string]string{
	"proposed":         "#94a3b8",
	"introduced":       "#60a5fa",
	"committee_review": "#818cf8",
	"passed":           "#fbbf24",
	"enacted":          "#f97316",
	"effective":        "#ef4444",
	"amended":          "#a78bfa",
	"withdrawn":        "#9ca3af",
	"rejected":         "#6b7280",
}

var countryFlags = map[string]string{
	"United States":  "🇺🇸",
	"United Kingdom": "🇬🇧",
	"European Union": "🇪🇺",
	"Australia":      "🇦🇺",
	"India":          "🇮🇳",
	"Canada":         "🇨🇦",
	"Singapore":      "🇸🇬",
	"France":         "🇫🇷",
	"Germany":        "🇩🇪",
}

// GetBrief returns the top laws by aggregate risk. When no laws exist yet
// (initial deployment, before the first backfill) it falls back to the
// hottest raw events so the briefing still renders.
func (s *Store) GetBrief(ctx context.Context, limit int) (*Brief, error) {
	if limit <= 0 || limit > 20 {
		limit = 10
	}
	brief := &Brief{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Items:       []BriefItem{},
	}
	if last, err := s.lastCrawledAt(ctx); err == nil && last != "" {
		brief.LastCrawledAt = &last
	}

	laws, err := s.ListLaws(ctx, LawFilter{Limit: limit})
	if err != nil {
		return nil, err
	}
	if len(laws) == 0 {
		return s.briefFromEvents(ctx, brief, limit)
	}

	for _, l := range laws {
		item := BriefItem{
			LawKey:                      l.LawKey,
			LawName:                     l.LawName,
			Jurisdiction:                jurisdictionLabel(l.JurisdictionCountry, l.JurisdictionState),
			Flag:                        countryFlags[l.JurisdictionCountry],
			Stage:                       l.Stage,
			StageColor:                  stageColors[l.Stage],
			AggregateRiskMax:            l.AggregateRiskMax,
			AggregateRiskRecentWeighted: l.AggregateRiskRecentWeighted,
			AggregateRiskOverall:        l.AggregateRiskOverall,
			SourceConfidence:            l.SourceConfidence,
		}

		// Latest update carries the freshest summary; its event carries the
		// age bracket.
		row := s.db.QueryRowContext(ctx, `
			SELECT COUNT(*),
			       COALESCE((SELECT u.summary FROM law_updates u WHERE u.law_id = ?
			                 ORDER BY u.published_date DESC, u.created_at DESC LIMIT 1), ''),
			       COALESCE((SELECT e.age_bracket FROM law_updates u
			                 JOIN regulation_events e ON e.id = u.event_id
			                 WHERE u.law_id = ?
			                 ORDER BY u.published_date DESC, u.created_at DESC LIMIT 1), 'both')
			FROM law_updates WHERE law_id = ?`, l.ID, l.ID, l.ID)
		if err := row.Scan(&item.UpdateCount, &item.LatestSummary, &item.AgeBracket); err != nil {
			return nil, err
		}
		brief.Items = append(brief.Items, item)
	}
	return brief, nil
}

func (s *Store) briefFromEvents(ctx context.Context, brief *Brief, limit int) (*Brief, error) {
	rows, err := s.db.QueryContext(ctx, selectEventColumns+`
		ORDER BY e.chili_score DESC, e.updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var ev RegulationEvent
		if err := scanEventInto(rows, &ev); err != nil {
			return nil, err
		}
		brief.Items = append(brief.Items, BriefItem{
			LawKey:           "",
			LawName:          ev.Title,
			Jurisdiction:     jurisdictionLabel(ev.JurisdictionCountry, ev.JurisdictionState),
			Flag:             countryFlags[ev.JurisdictionCountry],
			Stage:            string(ev.Stage),
			StageColor:       stageColors[string(ev.Stage)],
			AgeBracket:       ev.AgeBracket,
			AggregateRiskMax: float64(ev.ChiliScore),
			UpdateCount:      1,
			LatestSummary:    ev.Summary,
		})
	}
	return brief, rows.Err()
}

func (s *Store) lastCrawledAt(ctx context.Context) (string, error) {
	var last sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT MAX(last_crawled_at) FROM sources`).Scan(&last)
	if err != nil {
		return "", err
	}
	return last.String, nil
}

func jurisdictionLabel(country, state string) string {
	if state != "" {
		return state + ", " + country
	}
	return country
}

// AnalyticsSummary is the aggregate rollup feeding the external dashboard.
type AnalyticsSummary struct {
	TotalEvents      int                `json:"totalEvents"`
	TotalLaws        int                `json:"totalLaws"`
	ByStage          map[string]int     `json:"byStage"`
	ByJurisdiction   map[string]int     `json:"byJurisdiction"`
	ByRiskBucket     map[string]int     `json:"byRiskBucket"`
	EventsByMonth    map[string]int     `json:"eventsByMonth"`
	TopJurisdictions []JurisdictionRisk `json:"topJurisdictions"`
}

// JurisdictionRisk pairs a jurisdiction with its hottest score.
type JurisdictionRisk struct {
	Jurisdiction string `json:"jurisdiction"`
	MaxChili     int    `json:"maxChili"`
	EventCount   int    `json:"eventCount"`
}

// GetAnalyticsSummary computes the rollup in plain SQL aggregation.
func (s *Store) GetAnalyticsSummary(ctx context.Context) (*AnalyticsSummary, error) {
	out := &AnalyticsSummary{
		ByStage:        map[string]int{},
		ByJurisdiction: map[string]int{},
		ByRiskBucket:   map[string]int{},
		EventsByMonth:  map[string]int{},
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM regulation_events`).Scan(&out.TotalEvents); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM laws`).Scan(&out.TotalLaws); err != nil {
		return nil, err
	}

	if err := s.groupCount(ctx, `SELECT stage, COUNT(*) FROM regulation_events GROUP BY stage`, out.ByStage); err != nil {
		return nil, err
	}
	if err := s.groupCount(ctx, `SELECT jurisdiction_country, COUNT(*) FROM regulation_events GROUP BY jurisdiction_country`, out.ByJurisdiction); err != nil {
		return nil, err
	}
	if err := s.groupCount(ctx, `
		SELECT CASE
			WHEN chili_score >= 5 THEN 'critical'
			WHEN chili_score = 4 THEN 'high'
			WHEN chili_score = 3 THEN 'medium'
			ELSE 'low'
		END, COUNT(*) FROM regulation_events GROUP BY 1`, out.ByRiskBucket); err != nil {
		return nil, err
	}
	if err := s.groupCount(ctx, `
		SELECT substr(COALESCE(published_date, effective_date, updated_at), 1, 7), COUNT(*)
		FROM regulation_events GROUP BY 1`, out.EventsByMonth); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT jurisdiction_country, MAX(chili_score), COUNT(*)
		FROM regulation_events
		GROUP BY jurisdiction_country
		ORDER BY MAX(chili_score) DESC, COUNT(*) DESC
		LIMIT 10`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var jr JurisdictionRisk
		if err := rows.Scan(&jr.Jurisdiction, &jr.MaxChili, &jr.EventCount); err != nil {
			return nil, err
		}
		out.TopJurisdictions = append(out.TopJurisdictions, jr)
	}
	return out, rows.Err()
}

func (s *Store) groupCount(ctx context.Context, query string, into map[string]int) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var k string
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			return err
		}
		into[k] = n
	}
	return rows.Err()
}
