/*
[AI GENERATED - GOVERNANCE PROTOCOL]
──────────────────────────────────────────────────────────────
Model:       Claude Opus 4.6
Tier:        L4
Logic:       Deduplicating event upsert with per-event history,
             source ensure, manual field edits, and feedback.
             Dedup is URL-identity first, content-identity
             second, always gated on the case-folded
             (country, state, title) regulation key.
Root Cause:  Sprint task T216 — Dedup + upsert store.
Context:     Callers batch many upserts inside one enclosing
             transaction per crawl run; every method here takes
             the *sql.Tx. A wrong match here merges unrelated
             regulations, a missed match forks history.
Suitability: L4 — dedup correctness is the core invariant.
──────────────────────────────────────────────────────────────
*/

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jnyross/regintel/textutil"
)

// UpsertOutcome reports what an upsert did.
type UpsertOutcome string

const (
	OutcomeNew       UpsertOutcome = "new"
	OutcomeUpdated   UpsertOutcome = "updated"
	OutcomeDuplicate UpsertOutcome = "duplicate"
)

// ErrValidation marks inputs the store refuses to persist (score out of
// bounds, unknown stage or bracket). Callers skip the event and record the
// error on the run.
var ErrValidation = errors.New("event validation failed")

const maxRawTextChars = 5000

// regulationKey is the case-folded identity triple used to gate every dedup
// decision.
func regulationKey(country, state, title string) string {
	return strings.ToLower(country) + "|" + strings.ToLower(state) + "|" + strings.ToLower(title)
}

// DedupKey is the pipeline-level within-run key for an analyzed item:
// the regulation key joined with the normalized URL, or the content hash
// when no URL exists.
func DedupKey(in EventInput) string {
	u := strings.ToLower(strings.TrimSpace(in.SourceURLLink))
	if u == "" {
		u = "text:" + textutil.Hash(in.RawText)
	}
	return regulationKey(in.JurisdictionCountry, in.JurisdictionState, in.Title) + "::" + u
}

func validateInput(in *EventInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: empty title", ErrValidation)
	}
	if !ValidStage(in.Stage) {
		return fmt.Errorf("%w: unknown stage %q", ErrValidation, in.Stage)
	}
	if !ValidAgeBracket(in.AgeBracket) {
		return fmt.Errorf("%w: unknown age bracket %q", ErrValidation, in.AgeBracket)
	}
	for name, v := range map[string]int{
		"impact":     in.ImpactScore,
		"likelihood": in.LikelihoodScore,
		"confidence": in.ConfidenceScore,
		"chili":      in.ChiliScore,
	} {
		if v < 1 || v > 5 {
			return fmt.Errorf("%w: %s score %d out of bounds", ErrValidation, name, v)
		}
	}
	return nil
}

type eventCandidate struct {
	id             string
	title          string
	country        string
	state          string
	stage          string
	summary        string
	businessImpact string
	ageBracket     string
	impact         int
	likelihood     int
	confidence     int
	chili          int
	sourceURL      string
	rawText        string
}

// UpsertEvent inserts or updates one regulation event inside tx and returns
// what happened. Order of dedup checks matters; see the candidate loop.
func (s *Store) UpsertEvent(ctx context.Context, tx *sql.Tx, in EventInput) (UpsertOutcome, error) {
	if err := validateInput(&in); err != nil {
		return "", err
	}
	if in.ChangedBy == "" {
		in.ChangedBy = "pipeline"
	}
	in.RawText = truncateRunes(in.RawText, maxRawTextChars)

	inKey := regulationKey(in.JurisdictionCountry, in.JurisdictionState, in.Title)
	normURL := strings.ToLower(strings.TrimSpace(in.SourceURLLink))
	contentHash := textutil.Hash(in.RawText)

	rows, err := tx.QueryContext(ctx, `
		SELECT id, title, jurisdiction_country, COALESCE(jurisdiction_state, ''),
		       stage, summary, business_impact, age_bracket,
		       impact_score, likelihood_score, confidence_score, chili_score,
		       source_url_link, raw_text
		FROM regulation_events
		WHERE lower(jurisdiction_country) = lower(?)
		  AND lower(COALESCE(jurisdiction_state, '')) = lower(?)
		  AND (lower(title) = lower(?) OR lower(source_url_link) = ?)
		ORDER BY updated_at DESC`,
		in.JurisdictionCountry, in.JurisdictionState, in.Title, normURL)
	if err != nil {
		return "", fmt.Errorf("load dedup candidates: %w", err)
	}

	var match *eventCandidate
	for rows.Next() {
		var c eventCandidate
		if err := rows.Scan(&c.id, &c.title, &c.country, &c.state, &c.stage,
			&c.summary, &c.businessImpact, &c.ageBracket,
			&c.impact, &c.likelihood, &c.confidence, &c.chili,
			&c.sourceURL, &c.rawText); err != nil {
			_ = rows.Close()
			return "", err
		}
		candURL := strings.ToLower(strings.TrimSpace(c.sourceURL))
		candKey := regulationKey(c.country, c.state, c.title)

		urlsBoth := normURL != "" && candURL != ""
		if urlsBoth && normURL == candURL && candKey == inKey {
			match = &c
			break
		}
		urlsDistinct := urlsBoth && normURL != candURL
		if !urlsDistinct && textutil.Hash(c.rawText) == contentHash && candKey == inKey {
			match = &c
			break
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return "", err
	}
	_ = rows.Close()

	if match == nil {
		return s.insertEvent(ctx, tx, in)
	}
	return s.refreshEvent(ctx, tx, match, in)
}

func (s *Store) insertEvent(ctx context.Context, tx *sql.Tx, in EventInput) (UpsertOutcome, error) {
	id := uuid.NewString()
	ts := now()
	_, err := tx.ExecContext(ctx, `
		INSERT INTO regulation_events (
			id, title, jurisdiction_country, jurisdiction_state, stage,
			is_under16_applicable, age_bracket,
			impact_score, likelihood_score, confidence_score, chili_score,
			summary, business_impact,
			required_solutions, affected_products, competitor_responses,
			raw_text, source_url_link, effective_date, published_date,
			source_id, created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		id, in.Title, in.JurisdictionCountry, nullIfEmpty(in.JurisdictionState), in.Stage,
		boolToInt(in.IsUnder16Applicable), in.AgeBracket,
		in.ImpactScore, in.LikelihoodScore, in.ConfidenceScore, in.ChiliScore,
		in.Summary, in.BusinessImpact,
		jsonOrEmptyList(in.RequiredSolutions), jsonOrEmptyList(in.AffectedProducts), jsonOrEmptyList(in.CompetitorResponses),
		in.RawText, in.SourceURLLink, nullStr(in.EffectiveDate), nullStr(in.PublishedDate),
		nullInt(in.SourceID), ts, ts)
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}

	if err := s.appendHistory(ctx, tx, historyRow{
		eventID:    id,
		changedBy:  in.ChangedBy,
		changeType: ChangeCreated,
		fieldName:  "event",
		newValue:   in.Title,
	}); err != nil {
		return "", err
	}
	return OutcomeNew, nil
}

func (s *Store) refreshEvent(ctx context.Context, tx *sql.Tx, cur *eventCandidate, in EventInput) (UpsertOutcome, error) {
	unchanged := cur.stage == in.Stage &&
		cur.summary == in.Summary &&
		cur.businessImpact == in.BusinessImpact &&
		cur.ageBracket == in.AgeBracket &&
		cur.impact == in.ImpactScore &&
		cur.likelihood == in.LikelihoodScore &&
		cur.confidence == in.ConfidenceScore &&
		cur.chili == in.ChiliScore
	if unchanged {
		return OutcomeDuplicate, nil
	}

	_, err := tx.ExecContext(ctx, `
		UPDATE regulation_events SET
			stage = ?, is_under16_applicable = ?, age_bracket = ?,
			impact_score = ?, likelihood_score = ?, confidence_score = ?, chili_score = ?,
			summary = ?, business_impact = ?,
			required_solutions = ?, affected_products = ?, competitor_responses = ?,
			raw_text = ?, effective_date = COALESCE(?, effective_date),
			published_date = COALESCE(?, published_date),
			updated_at = ?
		WHERE id = ?`,
		in.Stage, boolToInt(in.IsUnder16Applicable), in.AgeBracket,
		in.ImpactScore, in.LikelihoodScore, in.ConfidenceScore, in.ChiliScore,
		in.Summary, in.BusinessImpact,
		jsonOrEmptyList(in.RequiredSolutions), jsonOrEmptyList(in.AffectedProducts), jsonOrEmptyList(in.CompetitorResponses),
		in.RawText, nullStr(in.EffectiveDate), nullStr(in.PublishedDate),
		now(), cur.id)
	if err != nil {
		return "", fmt.Errorf("update event: %w", err)
	}

	h := historyRow{eventID: cur.id, changedBy: in.ChangedBy}
	if cur.stage != in.Stage {
		h.changeType = ChangeStatusChanged
		h.fieldName = "stage"
		h.previousValue = cur.stage
		h.newValue = in.Stage
	} else {
		h.changeType = ChangeUpdated
		h.fieldName = "analysis"
		h.newValue = "Pipeline refresh"
	}
	if err := s.appendHistory(ctx, tx, h); err != nil {
		return "", err
	}
	return OutcomeUpdated, nil
}

type historyRow struct {
	eventID       string
	changedBy     string
	changeType    ChangeType
	fieldName     string
	previousValue string
	newValue      string
}

func (s *Store) appendHistory(ctx context.Context, tx *sql.Tx, h historyRow) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO event_history (event_id, changed_at, changed_by, change_type, field_name, previous_value, new_value)
		VALUES (?,?,?,?,?,?,?)`,
		h.eventID, now(), h.changedBy, string(h.changeType),
		nullIfEmpty(h.fieldName), nullIfEmpty(h.previousValue), nullIfEmpty(h.newValue))
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// EnsureSource inserts a source on first observation, or refreshes its
// reliability tier and last_crawled_at on subsequent runs. Sources are
// never deleted.
func (s *Store) EnsureSource(ctx context.Context, tx *sql.Tx, src Source) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM sources WHERE name = ?`, src.Name).Scan(&id)
	switch {
	case err == nil:
		_, err = tx.ExecContext(ctx, `
			UPDATE sources SET reliability_tier = ?, last_crawled_at = ? WHERE id = ?`,
			src.ReliabilityTier, now(), id)
		if err != nil {
			return 0, fmt.Errorf("refresh source: %w", err)
		}
		return id, nil
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx, `
			INSERT INTO sources (name, url, type, authority_type, jurisdiction,
				jurisdiction_country, jurisdiction_state, reliability_tier,
				last_crawled_at, created_at)
			VALUES (?,?,?,?,?,?,?,?,?,?)`,
			src.Name, src.URL, src.Type, src.AuthorityType, src.Jurisdiction,
			src.JurisdictionCountry, nullIfEmpty(src.JurisdictionState), src.ReliabilityTier,
			now(), now())
		if err != nil {
			return 0, fmt.Errorf("insert source: %w", err)
		}
		return res.LastInsertId()
	default:
		return 0, fmt.Errorf("lookup source: %w", err)
	}
}

// GetEvent loads one event by ID. Returns sql.ErrNoRows when absent.
func (s *Store) GetEvent(ctx context.Context, id string) (*RegulationEvent, error) {
	row := s.db.QueryRowContext(ctx, selectEventColumns+` WHERE e.id = ?`, id)
	return scanEvent(row)
}

// GetHistory returns history rows for an event, newest first.
func (s *Store) GetHistory(ctx context.Context, eventID string, limit int) ([]EventHistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, changed_at, changed_by, change_type,
		       COALESCE(field_name, ''), COALESCE(previous_value, ''), COALESCE(new_value, '')
		FROM event_history
		WHERE event_id = ?
		ORDER BY changed_at DESC, id DESC
		LIMIT ?`, eventID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []EventHistoryEntry
	for rows.Next() {
		var h EventHistoryEntry
		var ct string
		if err := rows.Scan(&h.ID, &h.EventID, &h.ChangedAt, &h.ChangedBy, &ct,
			&h.FieldName, &h.PreviousValue, &h.NewValue); err != nil {
			return nil, err
		}
		h.ChangeType = ChangeType(ct)
		out = append(out, h)
	}
	return out, rows.Err()
}

// EditableFields is a manual edit of analyst-owned fields. Nil pointers are
// left untouched.
type EditableFields struct {
	Stage           *string `json:"stage"`
	Summary         *string `json:"summary"`
	BusinessImpact  *string `json:"businessImpact"`
	AgeBracket      *string `json:"ageBracket"`
	ImpactScore     *int    `json:"impactScore"`
	LikelihoodScore *int    `json:"likelihoodScore"`
	ConfidenceScore *int    `json:"confidenceScore"`
	ChiliScore      *int    `json:"chiliScore"`
}

// EditEvent applies a manual edit, writing one history row per changed
// field. Returns sql.ErrNoRows when the event does not exist.
func (s *Store) EditEvent(ctx context.Context, id string, edit EditableFields, editor string) error {
	if editor == "" {
		editor = "manual"
	}
	cur, err := s.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if edit.Stage != nil && !ValidStage(*edit.Stage) {
		return fmt.Errorf("%w: unknown stage %q", ErrValidation, *edit.Stage)
	}
	if edit.AgeBracket != nil && !ValidAgeBracket(*edit.AgeBracket) {
		return fmt.Errorf("%w: unknown age bracket %q", ErrValidation, *edit.AgeBracket)
	}
	for _, p := range []*int{edit.ImpactScore, edit.LikelihoodScore, edit.ConfidenceScore, edit.ChiliScore} {
		if p != nil && (*p < 1 || *p > 5) {
			return fmt.Errorf("%w: score %d out of bounds", ErrValidation, *p)
		}
	}

	return s.WithTx(ctx, func(tx *sql.Tx) error {
		type change struct {
			column  string
			prev    string
			next    string
			isStage bool
			value   any
		}
		var changes []change
		addStr := func(column, prev string, next *string, isStage bool) {
			if next != nil && *next != prev {
				changes = append(changes, change{column, prev, *next, isStage, *next})
			}
		}
		addInt := func(column string, prev int, next *int) {
			if next != nil && *next != prev {
				changes = append(changes, change{column, fmt.Sprint(prev), fmt.Sprint(*next), false, *next})
			}
		}
		addStr("stage", string(cur.Stage), edit.Stage, true)
		addStr("summary", cur.Summary, edit.Summary, false)
		addStr("business_impact", cur.BusinessImpact, edit.BusinessImpact, false)
		addStr("age_bracket", cur.AgeBracket, edit.AgeBracket, false)
		addInt("impact_score", cur.ImpactScore, edit.ImpactScore)
		addInt("likelihood_score", cur.LikelihoodScore, edit.LikelihoodScore)
		addInt("confidence_score", cur.ConfidenceScore, edit.ConfidenceScore)
		addInt("chili_score", cur.ChiliScore, edit.ChiliScore)

		if len(changes) == 0 {
			return nil
		}
		for _, c := range changes {
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`UPDATE regulation_events SET %s = ?, updated_at = ? WHERE id = ?`, c.column),
				c.value, now(), id); err != nil {
				return fmt.Errorf("edit %s: %w", c.column, err)
			}
			ct := ChangeUpdated
			if c.isStage {
				ct = ChangeStatusChanged
			}
			if err := s.appendHistory(ctx, tx, historyRow{
				eventID:       id,
				changedBy:     editor,
				changeType:    ct,
				fieldName:     c.column,
				previousValue: c.prev,
				newValue:      c.next,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// AddFeedback attaches an analyst note and mirrors it into history.
func (s *Store) AddFeedback(ctx context.Context, eventID, author, comment string) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO feedback (event_id, author, comment, created_at) VALUES (?,?,?,?)`,
			eventID, author, comment, now()); err != nil {
			return fmt.Errorf("insert feedback: %w", err)
		}
		return s.appendHistory(ctx, tx, historyRow{
			eventID:    eventID,
			changedBy:  author,
			changeType: ChangeFeedback,
			fieldName:  "feedback",
			newValue:   comment,
		})
	})
}

// ListFeedback returns feedback for an event, newest first.
func (s *Store) ListFeedback(ctx context.Context, eventID string) ([]Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, author, comment, created_at
		FROM feedback WHERE event_id = ? ORDER BY created_at DESC, id DESC`, eventID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Feedback
	for rows.Next() {
		var f Feedback
		if err := rows.Scan(&f.ID, &f.EventID, &f.Author, &f.Comment, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func jsonOrEmptyList(s string) string {
	if strings.TrimSpace(s) == "" {
		return "[]"
	}
	return s
}
