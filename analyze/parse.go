/*
[AI GENERATED - GOVERNANCE PROTOCOL]
──────────────────────────────────────────────────────────────
Model:       Claude Opus 4.6
Tier:        L4
Logic:       Verdict normalization: fence stripping, lenient
             JSON recovery, enum coercion, score clamping with
             round-half-up and a fixed fallback. The raw model
             object never crosses this boundary.
Root Cause:  Sprint task T211 — Analyzer output validation.
Context:     Model output is duck-typed JSON; downstream code
             only ever sees the tagged Result.
Suitability: L4 — the clamps here are persistence invariants.
──────────────────────────────────────────────────────────────
*/

package analyze

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/jnyross/regintel/store"
)

// Result is the analyzer's normalized verdict for one item. Relevant=false
// is the irrelevant sentinel; every other field is only meaningful when
// Relevant is true.
type Result struct {
	Relevant            bool
	Title               string
	JurisdictionCountry string
	JurisdictionState   string
	Stage               string
	IsUnder16Applicable bool
	AgeBracket          string
	ImpactScore         int
	LikelihoodScore     int
	ConfidenceScore     int
	ChiliScore          int
	Summary             string
	BusinessImpact      string
	RequiredSolutions   []string
	AffectedProducts    []string
	CompetitorResponses []string
	EffectiveDate       *string
	PublishedDate       *string
}

// rawVerdict mirrors the loose model object before coercion.
type rawVerdict struct {
	Relevant            *bool           `json:"relevant"`
	Title               string          `json:"title"`
	JurisdictionCountry string          `json:"jurisdiction_country"`
	JurisdictionState   *string         `json:"jurisdiction_state"`
	Stage               string          `json:"stage"`
	IsUnder16Applicable bool            `json:"is_under16_applicable"`
	AgeBracket          string          `json:"age_bracket"`
	ImpactScore         json.RawMessage `json:"impact_score"`
	LikelihoodScore     json.RawMessage `json:"likelihood_score"`
	ConfidenceScore     json.RawMessage `json:"confidence_score"`
	ChiliScore          json.RawMessage `json:"chili_score"`
	Summary             string          `json:"summary"`
	BusinessImpact      string          `json:"business_impact"`
	RequiredSolutions   []string        `json:"required_solutions"`
	AffectedProducts    []string        `json:"affected_products"`
	CompetitorResponses []string        `json:"competitor_responses"`
	EffectiveDate       *string         `json:"effective_date"`
	PublishedDate       *string         `json:"published_date"`
}

var (
	fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	objRe   = regexp.MustCompile(`(?s)\{.*\}`)
)

// ParseVerdict normalizes one model response. It never fails: output that
// cannot be recovered into a JSON object collapses to the irrelevant
// sentinel.
func ParseVerdict(text string) *Result {
	body := strings.TrimSpace(text)
	if m := fenceRe.FindStringSubmatch(body); m != nil {
		body = m[1]
	}

	var raw rawVerdict
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		// Recover the first object-looking substring before giving up.
		if m := objRe.FindString(body); m != "" {
			if err2 := json.Unmarshal([]byte(m), &raw); err2 != nil {
				return &Result{Relevant: false}
			}
		} else {
			return &Result{Relevant: false}
		}
	}

	if raw.Relevant == nil || !*raw.Relevant {
		return &Result{Relevant: false}
	}

	res := &Result{
		Relevant:            true,
		Title:               strings.TrimSpace(raw.Title),
		JurisdictionCountry: strings.TrimSpace(raw.JurisdictionCountry),
		Stage:               coerceStage(raw.Stage),
		IsUnder16Applicable: raw.IsUnder16Applicable,
		AgeBracket:          coerceAgeBracket(raw.AgeBracket),
		ImpactScore:         clampScore(raw.ImpactScore),
		LikelihoodScore:     clampScore(raw.LikelihoodScore),
		ConfidenceScore:     clampScore(raw.ConfidenceScore),
		ChiliScore:          clampScore(raw.ChiliScore),
		Summary:             strings.TrimSpace(raw.Summary),
		BusinessImpact:      strings.TrimSpace(raw.BusinessImpact),
		RequiredSolutions:   emptyIfNil(raw.RequiredSolutions),
		AffectedProducts:    emptyIfNil(raw.AffectedProducts),
		CompetitorResponses: emptyIfNil(raw.CompetitorResponses),
		EffectiveDate:       cleanDate(raw.EffectiveDate),
		PublishedDate:       cleanDate(raw.PublishedDate),
	}
	if raw.JurisdictionState != nil {
		res.JurisdictionState = strings.TrimSpace(*raw.JurisdictionState)
	}
	return res
}

func coerceStage(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if store.ValidStage(s) {
		return s
	}
	return string(store.StageProposed)
}

func coerceAgeBracket(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if store.ValidAgeBracket(s) {
		return s
	}
	return "both"
}

// clampScore coerces a duck-typed score into an integer in [1..5]:
// round-half-up for numbers, string numbers accepted, 3 when non-finite
// or absent.
func clampScore(raw json.RawMessage) int {
	v, ok := numericValue(raw)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 3
	}
	n := int(math.Floor(v + 0.5))
	if n < 1 {
		return 1
	}
	if n > 5 {
		return 5
	}
	return n
}

func numericValue(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || strings.TrimSpace(string(raw)) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func cleanDate(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" || strings.EqualFold(v, "null") || strings.EqualFold(v, "unknown") {
		return nil
	}
	return &v
}

// JSONList renders a string slice as the opaque JSON text the store keeps
// for list-valued fields.
func JSONList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}
