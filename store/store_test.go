/*
[AI GENERATED - GOVERNANCE PROTOCOL]
──────────────────────────────────────────────────────────────
Model:       Claude Opus 4.6
Tier:        L3
Logic:       Store tests over an in-memory database: idempotent
             upsert, change detection, URL discrimination,
             history monotonicity, raw-text bounds, crawl-run
             single-flight, startup reconciliation, manual
             edits, notification seeding.
Root Cause:  Sprint task T216/T218 test coverage.
Context:     Uses :memory: sqlite; each test opens a fresh
             store.
Suitability: L3 — behavior tests against the real schema.
──────────────────────────────────────────────────────────────
*/

package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func upsert(t *testing.T, s *Store, in EventInput) UpsertOutcome {
	t.Helper()
	var outcome UpsertOutcome
	err := s.WithTx(context.Background(), func(tx *sql.Tx) error {
		var err error
		outcome, err = s.UpsertEvent(context.Background(), tx, in)
		return err
	})
	require.NoError(t, err)
	return outcome
}

func ftcInput() EventInput {
	return EventInput{
		Title:               "FTC publishes COPPA Rule amendments",
		JurisdictionCountry: "United States",
		Stage:               "proposed",
		AgeBracket:          "both",
		ImpactScore:         4,
		LikelihoodScore:     3,
		ConfidenceScore:     4,
		ChiliScore:          4,
		Summary:             "The FTC published amendments to the COPPA Rule.",
		BusinessImpact:      "Consent flows need review.",
		RawText:             "FTC publishes amendments to the COPPA Rule covering operators of online services.",
		SourceURLLink:       "https://www.ftc.gov/a",
	}
}

func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

func TestFirstObservationInsert(t *testing.T) {
	s := newTestStore(t)

	require.Equal(t, OutcomeNew, upsert(t, s, ftcInput()))
	require.Equal(t, 1, countRows(t, s, "regulation_events"))

	var eventID string
	require.NoError(t, s.db.QueryRow(`SELECT id FROM regulation_events`).Scan(&eventID))
	history, err := s.GetHistory(context.Background(), eventID, 50)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, ChangeCreated, history[0].ChangeType)
}

func TestIdempotentUpsert(t *testing.T) {
	s := newTestStore(t)

	require.Equal(t, OutcomeNew, upsert(t, s, ftcInput()))
	require.Equal(t, OutcomeDuplicate, upsert(t, s, ftcInput()))
	require.Equal(t, 1, countRows(t, s, "regulation_events"))
	require.Equal(t, 1, countRows(t, s, "event_history"))
}

func TestChangeDetectionStage(t *testing.T) {
	s := newTestStore(t)

	require.Equal(t, OutcomeNew, upsert(t, s, ftcInput()))

	changed := ftcInput()
	changed.Stage = "enacted"
	changed.ChiliScore = 5
	require.Equal(t, OutcomeUpdated, upsert(t, s, changed))
	require.Equal(t, 1, countRows(t, s, "regulation_events"))

	var stage string
	var chili int
	require.NoError(t, s.db.QueryRow(
		`SELECT stage, chili_score FROM regulation_events`).Scan(&stage, &chili))
	require.Equal(t, "enacted", stage)
	require.Equal(t, 5, chili)

	var eventID string
	require.NoError(t, s.db.QueryRow(`SELECT id FROM regulation_events`).Scan(&eventID))
	history, err := s.GetHistory(context.Background(), eventID, 50)
	require.NoError(t, err)
	require.Len(t, history, 2)
	// Newest first.
	require.Equal(t, ChangeStatusChanged, history[0].ChangeType)
	require.Equal(t, "stage", history[0].FieldName)
	require.Equal(t, "proposed", history[0].PreviousValue)
	require.Equal(t, "enacted", history[0].NewValue)
}

func TestChangeDetectionNonStage(t *testing.T) {
	s := newTestStore(t)

	require.Equal(t, OutcomeNew, upsert(t, s, ftcInput()))

	changed := ftcInput()
	changed.Summary = "Amended summary after a second reading."
	require.Equal(t, OutcomeUpdated, upsert(t, s, changed))

	var eventID string
	require.NoError(t, s.db.QueryRow(`SELECT id FROM regulation_events`).Scan(&eventID))
	history, err := s.GetHistory(context.Background(), eventID, 50)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, ChangeUpdated, history[0].ChangeType)
	require.Equal(t, "analysis", history[0].FieldName)
	require.Equal(t, "Pipeline refresh", history[0].NewValue)
}

func TestURLDiscrimination(t *testing.T) {
	s := newTestStore(t)

	a := ftcInput()
	b := ftcInput()
	b.SourceURLLink = "https://www.ftc.gov/b"
	b.RawText = "A different press release about the same rulemaking."

	require.Equal(t, OutcomeNew, upsert(t, s, a))
	require.Equal(t, OutcomeNew, upsert(t, s, b))
	require.Equal(t, 2, countRows(t, s, "regulation_events"))
}

func TestContentHashDedupWithoutURLs(t *testing.T) {
	s := newTestStore(t)

	a := ftcInput()
	a.SourceURLLink = ""
	b := ftcInput()
	b.SourceURLLink = ""
	b.RawText = "  FTC   publishes amendments to the COPPA Rule covering operators of online services.  "

	require.Equal(t, OutcomeNew, upsert(t, s, a))
	// Whitespace-collapsed case-folded text hashes identically.
	require.Equal(t, OutcomeDuplicate, upsert(t, s, b))
	require.Equal(t, 1, countRows(t, s, "regulation_events"))
}

func TestHistoryFirstRowIsCreated(t *testing.T) {
	s := newTestStore(t)

	require.Equal(t, OutcomeNew, upsert(t, s, ftcInput()))
	changed := ftcInput()
	changed.Stage = "introduced"
	require.Equal(t, OutcomeUpdated, upsert(t, s, changed))

	var eventID string
	require.NoError(t, s.db.QueryRow(`SELECT id FROM regulation_events`).Scan(&eventID))

	// Oldest-first ordering: the earliest row must be `created`.
	var first string
	require.NoError(t, s.db.QueryRow(`
		SELECT change_type FROM event_history WHERE event_id = ?
		ORDER BY changed_at ASC, id ASC LIMIT 1`, eventID).Scan(&first))
	require.Equal(t, string(ChangeCreated), first)
}

func TestRawTextBounded(t *testing.T) {
	s := newTestStore(t)

	in := ftcInput()
	in.RawText = strings.Repeat("x", 9000)
	require.Equal(t, OutcomeNew, upsert(t, s, in))

	var raw string
	require.NoError(t, s.db.QueryRow(`SELECT raw_text FROM regulation_events`).Scan(&raw))
	require.Len(t, raw, maxRawTextChars)
}

func TestValidationRejectsBadInput(t *testing.T) {
	s := newTestStore(t)

	for _, mutate := range []func(*EventInput){
		func(in *EventInput) { in.Stage = "vetoed" },
		func(in *EventInput) { in.AgeBracket = "0-99" },
		func(in *EventInput) { in.ChiliScore = 7 },
		func(in *EventInput) { in.ImpactScore = 0 },
		func(in *EventInput) { in.Title = "  " },
	} {
		in := ftcInput()
		mutate(&in)
		err := s.WithTx(context.Background(), func(tx *sql.Tx) error {
			_, err := s.UpsertEvent(context.Background(), tx, in)
			return err
		})
		require.ErrorIs(t, err, ErrValidation)
	}
	require.Equal(t, 0, countRows(t, s, "regulation_events"))
}

func TestSingleFlight(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.StartRun(ctx)
	require.NoError(t, err)

	_, err = s.StartRun(ctx)
	var inProgress *ErrRunInProgress
	require.ErrorAs(t, err, &inProgress)
	require.Equal(t, run.ID, inProgress.RunID)

	var running int
	require.NoError(t, s.db.QueryRow(
		`SELECT COUNT(*) FROM crawl_runs WHERE status = 'running'`).Scan(&running))
	require.Equal(t, 1, running)

	require.NoError(t, s.CompleteRun(ctx, run.ID, 3, 2, 1))
	latest, err := s.LatestRun(ctx)
	require.NoError(t, err)
	require.Equal(t, RunCompleted, latest.Status)
	require.Equal(t, 3, latest.ItemsFound)

	// A new run can start after the previous reached a terminal state.
	_, err = s.StartRun(ctx)
	require.NoError(t, err)
}

func TestReconcileInterrupted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.StartRun(ctx)
	require.NoError(t, err)

	n, err := s.ReconcileInterrupted(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	latest, err := s.LatestRun(ctx)
	require.NoError(t, err)
	require.Equal(t, RunFailed, latest.Status)
	require.Contains(t, latest.ErrorMessage, "interrupted")
}

func TestLatestRunNeverRun(t *testing.T) {
	s := newTestStore(t)
	_, err := s.LatestRun(context.Background())
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestEnsureSourceUpsertsOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	src := Source{
		Name: "FTC", URL: "https://www.ftc.gov", Type: "government_page",
		AuthorityType: "national", Jurisdiction: "United States",
		JurisdictionCountry: "United States", ReliabilityTier: 5,
	}

	var first, second int64
	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		first, err = s.EnsureSource(ctx, tx, src)
		return err
	}))
	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		second, err = s.EnsureSource(ctx, tx, src)
		return err
	}))
	require.Equal(t, first, second)
	require.Equal(t, 1, countRows(t, s, "sources"))

	var lastCrawled sql.NullString
	require.NoError(t, s.db.QueryRow(`SELECT last_crawled_at FROM sources`).Scan(&lastCrawled))
	require.True(t, lastCrawled.Valid)
}

func TestEditEventWritesFieldHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.Equal(t, OutcomeNew, upsert(t, s, ftcInput()))
	var eventID string
	require.NoError(t, s.db.QueryRow(`SELECT id FROM regulation_events`).Scan(&eventID))

	stage := "enacted"
	chili := 5
	require.NoError(t, s.EditEvent(ctx, eventID, EditableFields{
		Stage:      &stage,
		ChiliScore: &chili,
	}, "analyst"))

	history, err := s.GetHistory(ctx, eventID, 50)
	require.NoError(t, err)
	require.Len(t, history, 3) // created + stage + chili

	var sawStage, sawChili bool
	for _, h := range history {
		switch h.FieldName {
		case "stage":
			sawStage = true
			require.Equal(t, ChangeStatusChanged, h.ChangeType)
			require.Equal(t, "analyst", h.ChangedBy)
		case "chili_score":
			sawChili = true
			require.Equal(t, ChangeUpdated, h.ChangeType)
			require.Equal(t, "4", h.PreviousValue)
			require.Equal(t, "5", h.NewValue)
		}
	}
	require.True(t, sawStage)
	require.True(t, sawChili)
}

func TestEditEventNotFound(t *testing.T) {
	s := newTestStore(t)
	stage := "enacted"
	err := s.EditEvent(context.Background(), "no-such-id", EditableFields{Stage: &stage}, "analyst")
	require.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestSeedHighRiskNotifications(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hot := ftcInput()
	hot.ChiliScore = 5
	require.Equal(t, OutcomeNew, upsert(t, s, hot))

	mild := ftcInput()
	mild.Title = "Minor consultation opens"
	mild.SourceURLLink = "https://www.ftc.gov/c"
	mild.RawText = "A routine consultation."
	mild.ChiliScore = 2
	require.Equal(t, OutcomeNew, upsert(t, s, mild))

	seeded, err := s.SeedHighRiskNotifications(ctx, 4)
	require.NoError(t, err)
	require.Equal(t, 1, seeded)

	// Re-seeding must not duplicate.
	seeded, err = s.SeedHighRiskNotifications(ctx, 4)
	require.NoError(t, err)
	require.Zero(t, seeded)

	items, err := s.ListNotifications(ctx, true, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "critical", items[0].Severity)

	n, err := s.MarkNotificationRead(ctx, items[0].ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	items, err = s.ListNotifications(ctx, true, 10)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestListEventsFiltersAndPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, in := range []EventInput{ftcInput(), func() EventInput {
		in := ftcInput()
		in.Title = "Ofcom consults on age assurance codes"
		in.JurisdictionCountry = "United Kingdom"
		in.Stage = "enacted"
		in.ChiliScore = 5
		in.SourceURLLink = "https://www.ofcom.org.uk/a"
		in.Summary = "Ofcom consults on age assurance codes for children."
		in.RawText = "Ofcom consultation text."
		return in
	}()} {
		require.Equal(t, OutcomeNew, upsert(t, s, in), "input %d", i)
	}

	page, err := s.ListEvents(ctx, EventFilter{Jurisdictions: []string{"United Kingdom"}})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	require.Equal(t, "United Kingdom", page.Items[0].JurisdictionCountry)

	page, err = s.ListEvents(ctx, EventFilter{MinRisk: 5})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)

	page, err = s.ListEvents(ctx, EventFilter{Query: "COPPA"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)

	page, err = s.ListEvents(ctx, EventFilter{Limit: 1, Page: 2})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
	require.Equal(t, 2, page.TotalPages)
	require.Equal(t, 2, page.Page)
	require.Len(t, page.Items, 1)
}

func TestBriefFallsBackToEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.Equal(t, OutcomeNew, upsert(t, s, ftcInput()))

	brief, err := s.GetBrief(ctx, 10)
	require.NoError(t, err)
	require.Len(t, brief.Items, 1)
	require.Empty(t, brief.Items[0].LawKey)
	require.Equal(t, "FTC publishes COPPA Rule amendments", brief.Items[0].LawName)
}
