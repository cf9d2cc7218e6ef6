/*
[AI GENERATED - GOVERNANCE PROTOCOL]
──────────────────────────────────────────────────────────────
Model:       Claude Opus 4.6
Tier:        L2
Logic:       Coordinator tests: analyzer-key precondition,
             single-flight refusal, input fallbacks from the
             crawled item.
Root Cause:  Sprint task T218 test coverage.
Context:     Network-touching stages are covered in the fetch
             and analyze packages; these tests pin the
             orchestration contracts.
Suitability: L2 — contract tests.
──────────────────────────────────────────────────────────────
*/

package pipeline

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jnyross/regintel/analyze"
	"github.com/jnyross/regintel/config"
	"github.com/jnyross/regintel/fetch"
	"github.com/jnyross/regintel/observability"
	"github.com/jnyross/regintel/registry"
	"github.com/jnyross/regintel/store"
)

func testCoordinator(t *testing.T, apiKey string) (*Coordinator, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := &config.Config{AnalyzerAPIKey: apiKey, AnalysisConcurrency: 10}
	return New(cfg, zerolog.Nop(), st, observability.New(), nil), st
}

func TestTriggerRequiresAPIKey(t *testing.T) {
	c, _ := testCoordinator(t, "")
	_, err := c.Trigger(context.Background())
	require.ErrorIs(t, err, ErrNoAPIKey)
}

func TestTriggerRefusesWhileRunning(t *testing.T) {
	c, st := testCoordinator(t, "key")

	_, err := st.StartRun(context.Background())
	require.NoError(t, err)

	_, err = c.Trigger(context.Background())
	var inProgress *store.ErrRunInProgress
	require.ErrorAs(t, err, &inProgress)
}

func TestBuildInputFallbacks(t *testing.T) {
	item := fetch.CrawledItem{
		Source: registry.Source{
			Name:                "FTC Press Releases",
			JurisdictionCountry: "United States",
		},
		URL:   "https://www.ftc.gov/a",
		Title: "Item title from the crawl",
		Text:  "Body text.",
	}
	res := &analyze.Result{
		Relevant:    true,
		Stage:       "proposed",
		AgeBracket:  "both",
		ImpactScore: 3, LikelihoodScore: 3, ConfidenceScore: 3, ChiliScore: 3,
	}

	in := buildInput(analyzedItem{item: item, result: res}, 7)
	require.Equal(t, "Item title from the crawl", in.Title)
	require.Equal(t, "United States", in.JurisdictionCountry)
	require.Equal(t, "https://www.ftc.gov/a", in.SourceURLLink)
	require.Equal(t, "Body text.", in.RawText)
	require.NotNil(t, in.SourceID)
	require.EqualValues(t, 7, *in.SourceID)
	require.Equal(t, "[]", in.RequiredSolutions)
}
