/*
[AI GENERATED - GOVERNANCE PROTOCOL]
──────────────────────────────────────────────────────────────
Model:       Claude Opus 4.6
Tier:        L2
Logic:       Typed catalogue of crawl sources with jurisdiction
             and reliability metadata, plus filter helpers.
Root Cause:  Sprint task T203 — Source registry.
Context:     Pure data, no I/O. Additions require redeploy;
             nothing mutates the catalogue at runtime.
Suitability: L2 model for a static typed catalogue.
──────────────────────────────────────────────────────────────
*/

package registry

// SourceType classifies how a source is fetched.
type SourceType string

const (
	TypeGovernmentPage  SourceType = "government_page"
	TypeRSSFeed         SourceType = "rss_feed"
	TypeNewsSearch      SourceType = "news_search"
	TypeLegalDatabase   SourceType = "legal_database"
	TypeMicroblogSearch SourceType = "microblog_search"
)

// AuthorityType classifies the issuing authority behind a source.
type AuthorityType string

const (
	AuthorityNational      AuthorityType = "national"
	AuthorityState         AuthorityType = "state"
	AuthorityLocal         AuthorityType = "local"
	AuthoritySupranational AuthorityType = "supranational"
)

// Source describes one entry in the crawl catalogue.
type Source struct {
	Name                string
	URL                 string
	Type                SourceType
	AuthorityType       AuthorityType
	Jurisdiction        string
	JurisdictionCountry string
	JurisdictionState   string
	// ReliabilityTier rates trustworthiness 1-5; 5 = official authority.
	ReliabilityTier int
	SearchKeywords  string
	Description     string
}

// All returns the full catalogue.
func All() []Source {
	out := make([]Source, len(sources))
	copy(out, sources)
	return out
}

// ByJurisdiction returns sources whose country matches (case-sensitive,
// the catalogue uses canonical country names).
func ByJurisdiction(country string) []Source {
	var out []Source
	for _, s := range sources {
		if s.JurisdictionCountry == country {
			out = append(out, s)
		}
	}
	return out
}

// MinReliability returns sources at or above the given tier.
func MinReliability(tier int) []Source {
	var out []Source
	for _, s := range sources {
		if s.ReliabilityTier >= tier {
			out = append(out, s)
		}
	}
	return out
}

// ByType returns sources of the given type.
func ByType(t SourceType) []Source {
	var out []Source
	for _, s := range sources {
		if s.Type == t {
			out = append(out, s)
		}
	}
	return out
}
