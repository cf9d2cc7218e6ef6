/*
[AI GENERATED - GOVERNANCE PROTOCOL]
──────────────────────────────────────────────────────────────
Model:       Claude Opus 4.6
Tier:        L4
Logic:       Law backfill: rebuilds the derived laws and
             law_updates tables from all regulation events.
             Groups events by canonical key, picks the best
             canonical name per group, computes aggregate risk
             (max, recency-weighted, overall) and source
             confidence, then truncates and reinserts inside
             one transaction.
Root Cause:  Sprint task T222 — Law backfill engine.
Context:     Idempotent and destructive of the derived tables
             only; if the transaction aborts, the prior law
             graph survives untouched.
Suitability: L4 — the rebuild is the canonical source of truth
             for every law-first read path.
──────────────────────────────────────────────────────────────
*/

package backfill

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/jnyross/regintel/canon"
	"github.com/jnyross/regintel/store"
)

// Result reports what a backfill rebuilt.
type Result struct {
	Laws             int `json:"laws"`
	LawUpdates       int `json:"lawUpdates"`
	MergedDuplicates int `json:"mergedDuplicates"`
}

type member struct {
	ews store.EventWithSource
	law canon.Law
	ref time.Time
}

// Run rebuilds laws and law_updates from the events table.
func Run(ctx context.Context, st *store.Store, logger zerolog.Logger) (*Result, error) {
	events, err := st.ListEventsWithSources(ctx)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]member)
	var keys []string
	for _, ews := range events {
		ev := ews.Event
		law := canon.Infer(canon.Input{
			Title:               ev.Title,
			Summary:             ev.Summary,
			Content:             ev.RawText,
			JurisdictionCountry: ev.JurisdictionCountry,
			JurisdictionState:   ev.JurisdictionState,
		})
		if _, seen := groups[law.LawKey]; !seen {
			keys = append(keys, law.LawKey)
		}
		groups[law.LawKey] = append(groups[law.LawKey], member{
			ews: ews,
			law: law,
			ref: referenceDate(ev),
		})
	}
	sort.Strings(keys)

	res := &Result{}
	err = st.WithTx(ctx, func(tx *sql.Tx) error {
		if err := st.TruncateLaws(ctx, tx); err != nil {
			return err
		}
		for _, key := range keys {
			members := groups[key]
			law := buildLaw(key, members)
			lawID, err := st.InsertLaw(ctx, tx, law)
			if err != nil {
				return err
			}
			res.Laws++
			res.MergedDuplicates += len(members) - 1

			// Updates carry the freshest observation first.
			sort.SliceStable(members, func(i, j int) bool {
				return members[i].ref.After(members[j].ref)
			})
			for _, m := range members {
				if err := st.InsertLawUpdate(ctx, tx, buildUpdate(lawID, m)); err != nil {
					return err
				}
				res.LawUpdates++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Int("laws", res.Laws).Int("updates", res.LawUpdates).
		Int("merged", res.MergedDuplicates).Msg("law backfill complete")
	return res, nil
}

func buildLaw(key string, members []member) store.Law {
	best := bestName(members)
	latest := latestMember(members)

	first := members[0].ref
	last := lastSeen(members[0])
	var latestEffective *string
	var maxChili float64
	var weightedSum, weightTotal float64
	var overallSum, confidenceSum float64
	now := time.Now().UTC()

	for _, m := range members {
		ev := m.ews.Event
		if m.ref.Before(first) {
			first = m.ref
		}
		if ls := lastSeen(m); ls.After(last) {
			last = ls
		}
		if ev.EffectiveDate != nil {
			if latestEffective == nil || *ev.EffectiveDate > *latestEffective {
				latestEffective = ev.EffectiveDate
			}
		}

		chili := float64(ev.ChiliScore)
		if chili > maxChili {
			maxChili = chili
		}
		w := recencyWeight(now.Sub(m.ref))
		weightedSum += chili * w
		weightTotal += w

		overallSum += 0.4*chili + 0.3*float64(ev.ImpactScore) +
			0.2*float64(ev.LikelihoodScore) + 0.1*float64(ev.ConfidenceScore)
		confidenceSum += float64(m.ews.ReliabilityTier)
	}

	recentWeighted := maxChili
	if weightTotal > 0 {
		recentWeighted = weightedSum / weightTotal
	}

	n := float64(len(members))
	return store.Law{
		LawKey:                      key,
		LawName:                     best.name,
		JurisdictionCountry:         latest.ews.Event.JurisdictionCountry,
		JurisdictionState:           latest.ews.Event.JurisdictionState,
		LawType:                     best.lawType,
		Stage:                       string(latest.ews.Event.Stage),
		Status:                      "active",
		FirstSeenAt:                 first.Format(time.RFC3339Nano),
		LastSeenAt:                  last.Format(time.RFC3339Nano),
		LatestEffectiveDate:         latestEffective,
		AggregateRiskMax:            maxChili,
		AggregateRiskRecentWeighted: recentWeighted,
		AggregateRiskOverall:        overallSum / n,
		SourceConfidence:            confidenceSum / n,
	}
}

type chosenName struct {
	name    string
	lawType string
}

// bestName picks the canonical law_name among members with the same phrase
// scoring the inferrer uses, breaking ties by shorter name, and upgrades
// law_type from the generic "law" when any member provides a specific term.
func bestName(members []member) chosenName {
	best := chosenName{name: members[0].law.LawName, lawType: members[0].law.LawType}
	bestScore := canon.PhraseScore(best.name)

	for _, m := range members[1:] {
		score := canon.PhraseScore(m.law.LawName)
		if score > bestScore || (score == bestScore && len(m.law.LawName) < len(best.name)) {
			best.name = m.law.LawName
			bestScore = score
		}
	}
	if best.lawType == "law" || best.lawType == "" {
		for _, m := range members {
			if m.law.LawType != "law" && m.law.LawType != "" {
				best.lawType = m.law.LawType
				break
			}
		}
	}
	if best.lawType == "" {
		best.lawType = "law"
	}
	return best
}

func latestMember(members []member) member {
	latest := members[0]
	for _, m := range members[1:] {
		if m.ref.After(latest.ref) {
			latest = m
		}
	}
	return latest
}

func buildUpdate(lawID int64, m member) store.LawUpdate {
	ev := m.ews.Event
	meta, _ := json.Marshal(map[string]any{
		"age_bracket":          ev.AgeBracket,
		"jurisdiction_country": ev.JurisdictionCountry,
		"jurisdiction_state":   ev.JurisdictionState,
		"source_name":          m.ews.SourceName,
		"reliability_tier":     m.ews.ReliabilityTier,
		"law_identifier":       m.law.LawIdentifier,
	})
	return store.LawUpdate{
		LawID:           lawID,
		EventID:         ev.ID,
		Title:           ev.Title,
		Stage:           string(ev.Stage),
		Summary:         ev.Summary,
		BusinessImpact:  ev.BusinessImpact,
		ImpactScore:     ev.ImpactScore,
		LikelihoodScore: ev.LikelihoodScore,
		ConfidenceScore: ev.ConfidenceScore,
		ChiliScore:      ev.ChiliScore,
		PublishedDate:   ev.PublishedDate,
		EffectiveDate:   ev.EffectiveDate,
		SourceURLLink:   ev.SourceURLLink,
		RawMetadata:     string(meta),
	}
}

// referenceDate is the best available date for an event: published, then
// effective, then updated, then created.
func referenceDate(ev store.RegulationEvent) time.Time {
	for _, cand := range []*string{ev.PublishedDate, ev.EffectiveDate} {
		if cand != nil {
			if t, ok := parseWhen(*cand); ok {
				return t
			}
		}
	}
	if t, ok := parseWhen(ev.UpdatedAt); ok {
		return t
	}
	if t, ok := parseWhen(ev.CreatedAt); ok {
		return t
	}
	return time.Now().UTC()
}

func lastSeen(m member) time.Time {
	if t, ok := parseWhen(m.ews.Event.UpdatedAt); ok {
		return t
	}
	return m.ref
}

func parseWhen(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// recencyWeight discounts a member's chili contribution by the age of its
// reference date.
func recencyWeight(age time.Duration) float64 {
	days := age.Hours() / 24
	switch {
	case days <= 30:
		return 1.0
	case days <= 90:
		return 0.9
	case days <= 180:
		return 0.8
	case days <= 365:
		return 0.65
	case days <= 730:
		return 0.5
	default:
		return 0.35
	}
}
