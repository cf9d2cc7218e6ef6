/*
[AI GENERATED - GOVERNANCE PROTOCOL]
──────────────────────────────────────────────────────────────
Model:       Claude Opus 4.6
Tier:        L3
Logic:       Verdict parsing tests: fence stripping, lenient
             object recovery, irrelevant sentinel, enum
             coercion, score clamping.
Root Cause:  Sprint task T211 test coverage.
Context:     Pure tables against ParseVerdict.
Suitability: L3 — boundary validation tests.
──────────────────────────────────────────────────────────────
*/

package analyze

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const relevantBody = `{
	"relevant": true,
	"title": "FTC publishes COPPA Rule amendments",
	"jurisdiction_country": "United States",
	"jurisdiction_state": null,
	"stage": "proposed",
	"is_under16_applicable": true,
	"age_bracket": "both",
	"impact_score": 4,
	"likelihood_score": 3,
	"confidence_score": 4,
	"chili_score": 4,
	"summary": "The FTC published amendments.",
	"business_impact": "Consent flows need review.",
	"required_solutions": ["age gating"],
	"affected_products": ["feed"],
	"competitor_responses": [],
	"effective_date": null,
	"published_date": "2025-06-11"
}`

func TestParseCleanJSON(t *testing.T) {
	res := ParseVerdict(relevantBody)
	require.True(t, res.Relevant)
	assert.Equal(t, "FTC publishes COPPA Rule amendments", res.Title)
	assert.Equal(t, "proposed", res.Stage)
	assert.Equal(t, 4, res.ChiliScore)
	assert.Equal(t, []string{"age gating"}, res.RequiredSolutions)
	assert.Equal(t, []string{}, res.CompetitorResponses)
	assert.Nil(t, res.EffectiveDate)
	require.NotNil(t, res.PublishedDate)
	assert.Equal(t, "2025-06-11", *res.PublishedDate)
}

func TestParseStripsCodeFence(t *testing.T) {
	fenced := "```json\n" + relevantBody + "\n```"
	res := ParseVerdict(fenced)
	require.True(t, res.Relevant)
	assert.Equal(t, "United States", res.JurisdictionCountry)
}

func TestParseRecoversEmbeddedObject(t *testing.T) {
	noisy := "Here is my analysis:\n" + relevantBody + "\nLet me know if you need more."
	res := ParseVerdict(noisy)
	require.True(t, res.Relevant)
}

func TestParseUnparseableIsIrrelevant(t *testing.T) {
	for _, body := range []string{"", "no json here", "[1,2,3]", "{broken"} {
		res := ParseVerdict(body)
		assert.False(t, res.Relevant, "body %q", body)
	}
}

func TestParseExplicitIrrelevant(t *testing.T) {
	res := ParseVerdict(`{"relevant": false}`)
	require.False(t, res.Relevant)
}

func TestParseMissingRelevantIsIrrelevant(t *testing.T) {
	res := ParseVerdict(`{"title": "something"}`)
	require.False(t, res.Relevant)
}

func TestStageAndBracketCoercion(t *testing.T) {
	body := `{"relevant": true, "title": "t", "jurisdiction_country": "US",
		"stage": "signed-into-law", "age_bracket": "minors"}`
	res := ParseVerdict(body)
	require.True(t, res.Relevant)
	assert.Equal(t, "proposed", res.Stage)
	assert.Equal(t, "both", res.AgeBracket)
	assert.Equal(t, []string{}, res.RequiredSolutions)
}

func TestScoreClamping(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"7", 5},
		{"0", 1},
		{"-3", 1},
		{"3.5", 4}, // round half up
		{"2.4", 2},
		{`"4"`, 4},
		{`"high"`, 3},
		{"null", 3},
		{`1e999`, 3}, // overflows to +Inf in lenient parsers; non-finite falls back
	}
	for _, tc := range tests {
		body := fmt.Sprintf(`{"relevant": true, "title": "t", "jurisdiction_country": "US",
			"stage": "proposed", "age_bracket": "both", "chili_score": %s}`, tc.raw)
		res := ParseVerdict(body)
		require.True(t, res.Relevant, tc.raw)
		assert.Equal(t, tc.want, res.ChiliScore, "raw %s", tc.raw)
		// Absent scores fall back to the midpoint.
		assert.Equal(t, 3, res.ImpactScore, "raw %s", tc.raw)
	}
}

func TestJSONList(t *testing.T) {
	assert.Equal(t, "[]", JSONList(nil))
	assert.Equal(t, "[]", JSONList([]string{}))
	assert.Equal(t, `["a","b"]`, JSONList([]string{"a", "b"}))
}
