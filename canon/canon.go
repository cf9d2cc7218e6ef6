/*
[AI GENERATED - GOVERNANCE PROTOCOL]
──────────────────────────────────────────────────────────────
Model:       Claude Opus 4.6
Tier:        L4
Logic:       Canonical law inference: maps an event's title,
             summary, and body text plus jurisdiction to a
             stable law name, type, identifier, and key. Pure
             function; alias table first, then explicit law
             phrase extraction with scoring, then bill-number
             and subject-line fallbacks.
Root Cause:  Sprint task T221 — Canonical grouping of events.
Context:     Every grouping, ranking, and rollup downstream
             hangs off the stability of the key produced here.
             A false alias match (e.g. "DSA" outside EU text)
             corrupts whole law groups, so alias matches are
             context-gated.
Suitability: L4 — correctness of the key dominates data quality.
──────────────────────────────────────────────────────────────
*/

package canon

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Input carries the observable fields inference runs over.
type Input struct {
	Title               string
	Summary             string
	Content             string
	JurisdictionCountry string
	JurisdictionState   string
}

// Law is the canonical classification for one event.
type Law struct {
	LawName       string
	LawType       string
	LawIdentifier string
	LawKey        string
}

var lawKeywordRe = regexp.MustCompile(`\b(Act|Bill|Directive|Regulation|Code|Rule)\b`)

// lawPhraseRe captures a run of capitalized words (connector words allowed
// inside) ending in a law keyword, optionally followed by a four-digit
// year. Anchoring on capitalized runs keeps narrative lead-ins ("Governor
// signs the ...") out of the candidate.
var lawPhraseRe = regexp.MustCompile(`\b([A-Z][A-Za-z'’&.\-]*(?:\s+(?:of|and|for|the|to|in|on|[A-Z][A-Za-z'’&.\-]*))*\s+(?:Act|Bill|Directive|Regulation|Code|Rule))\b(?:\s+(\d{4}))?`)

// billNumberRe matches US-style bill identifiers: "AB 2273", "SB-976",
// "HB18", "S. 1409", "H.R. 7891".
var billNumberRe = regexp.MustCompile(`\b(SB|HB|AB|HR|SF|HF|LB|LD|H\.R\.|S\.)[ .\-]*(\d{1,5})\b`)

var yearRe = regexp.MustCompile(`\b(19|20)\d{2}\b`)

var leadingStopwords = map[string]bool{
	"the": true, "a": true, "this": true, "for": true, "to": true,
	"under": true, "potentially": true,
}

var narrativeVerbs = map[string]bool{
	"has": true, "is": true, "are": true, "introduced": true,
	"enacted": true, "issued": true, "setting": true, "claims": true,
	"alleging": true, "follows": true,
}

var knownAcronyms = []string{"COPPA", "KOSA", "GDPR", "DSA", "SCOPE", "DPDP", "PDPA", "OSA"}

// Infer classifies an event into its canonical law. Deterministic in its
// inputs; never touches I/O.
func Infer(in Input) Law {
	texts := []string{in.Title, in.Summary, in.Content}
	full := strings.Join(texts, " ")

	// 1. Curated alias table, first match over title, summary, content.
	for _, text := range texts {
		if text == "" {
			continue
		}
		if law, ok := matchAlias(text, full, in); ok {
			law.LawKey = Key(in.JurisdictionCountry, in.JurisdictionState, law.LawIdentifier, law.LawName)
			return law
		}
	}

	// 2. Explicit law phrase with scoring.
	if law, ok := bestLawPhrase(texts); ok {
		law.LawKey = Key(in.JurisdictionCountry, in.JurisdictionState, law.LawIdentifier, law.LawName)
		return law
	}

	// 3. Bill number only.
	if m := billNumberRe.FindStringSubmatch(full); m != nil {
		id := normalizeBillID(m[1], m[2])
		law := Law{
			LawName:       id + " Bill",
			LawType:       "bill",
			LawIdentifier: id,
		}
		law.LawKey = Key(in.JurisdictionCountry, in.JurisdictionState, law.LawIdentifier, law.LawName)
		return law
	}

	// 4. Subject-line fallback.
	law := subjectFallback(in.Title)
	law.LawKey = Key(in.JurisdictionCountry, in.JurisdictionState, law.LawIdentifier, law.LawName)
	return law
}

type alias struct {
	patterns []string // lowercased substrings; \b-matched when single word
	name     string
	lawType  string
	id       string
}

var aliases = []alias{
	{
		patterns: []string{"coppa", "children's online privacy protection"},
		name:     "Children's Online Privacy Protection Act (COPPA)",
		lawType:  "act",
		id:       "COPPA",
	},
	{
		patterns: []string{"kosa", "kids online safety act"},
		name:     "Kids Online Safety Act (KOSA)",
		lawType:  "act",
		id:       "KOSA",
	},
	{
		patterns: []string{"age-appropriate design code act", "age appropriate design code act", "ab-2273", "ab 2273"},
		name:     "California Age-Appropriate Design Code Act",
		lawType:  "act",
		id:       "AB-2273",
	},
	{
		patterns: []string{"securing children online through parental empowerment", "scope act"},
		name:     "Securing Children Online through Parental Empowerment (SCOPE) Act",
		lawType:  "act",
		id:       "SCOPE-ACT",
	},
	{
		patterns: []string{"gdpr", "general data protection regulation"},
		name:     "General Data Protection Regulation (GDPR)",
		lawType:  "regulation",
		id:       "GDPR",
	},
	{
		patterns: []string{"dpdp", "digital personal data protection"},
		name:     "Digital Personal Data Protection Act (DPDP)",
		lawType:  "act",
		id:       "DPDP",
	},
	{
		patterns: []string{"pdpa", "personal data protection act"},
		name:     "Personal Data Protection Act (PDPA)",
		lawType:  "act",
		id:       "PDPA",
	},
}

// euContextWords gate the DSA alias: "DSA" collides with too many other
// acronyms to match without EU legal context nearby.
var euContextWords = []string{"eu ", " eu", "european", "commission", "article 28", "regulation", "minors"}

func matchAlias(text, full string, in Input) (Law, bool) {
	lower := strings.ToLower(text)
	fullLower := strings.ToLower(full)

	for _, a := range aliases {
		for _, p := range a.patterns {
			if containsPattern(lower, p) {
				return Law{LawName: a.name, LawType: a.lawType, LawIdentifier: a.id}, true
			}
		}
	}

	// DSA, only with EU legal context in the full text.
	if containsPattern(lower, "dsa") || strings.Contains(lower, "digital services act") {
		for _, w := range euContextWords {
			if strings.Contains(fullLower, w) {
				return Law{
					LawName:       "Digital Services Act (DSA)",
					LawType:       "regulation",
					LawIdentifier: "EU-DSA",
				}, true
			}
		}
	}

	// Online Safety Act branches on jurisdiction and surrounding context.
	if strings.Contains(lower, "online safety act") {
		country := strings.ToLower(in.JurisdictionCountry)
		switch {
		case strings.Contains(country, "united kingdom") || strings.Contains(fullLower, "ofcom") || strings.Contains(fullLower, " uk "):
			return Law{LawName: "Online Safety Act 2023", LawType: "act", LawIdentifier: "UK-OSA-2023"}, true
		case strings.Contains(country, "australia") || strings.Contains(fullLower, "esafety"):
			return Law{LawName: "Online Safety Act 2021", LawType: "act", LawIdentifier: "AU-OSA-2021"}, true
		default:
			return Law{LawName: "Online Safety Act", LawType: "act", LawIdentifier: "OSA"}, true
		}
	}

	return Law{}, false
}

// containsPattern does a word-boundary match for short acronym patterns and
// a plain substring match otherwise.
func containsPattern(lower, p string) bool {
	if strings.ContainsAny(p, " -'") || len(p) > 6 {
		return strings.Contains(lower, p)
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(p) + `\b`)
	return re.MatchString(lower)
}

type candidate struct {
	name    string
	lawType string
	score   int
}

func bestLawPhrase(texts []string) (Law, bool) {
	var cands []candidate
	for _, text := range texts {
		if text == "" {
			continue
		}
		for _, m := range lawPhraseRe.FindAllStringSubmatch(text, -1) {
			phrase := m[1]
			if m[2] != "" {
				phrase = phrase + " " + m[2]
			}
			if c, ok := scorePhrase(phrase); ok {
				cands = append(cands, c)
			}
		}
	}
	if len(cands) == 0 {
		return Law{}, false
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return len(cands[i].name) < len(cands[j].name)
	})
	best := cands[0]

	law := Law{LawName: best.name, LawType: best.lawType}
	// Promote an adjacent bill number to the identifier.
	for _, text := range texts {
		if m := billNumberRe.FindStringSubmatch(text); m != nil {
			law.LawIdentifier = normalizeBillID(m[1], m[2])
			break
		}
	}
	return law, true
}

func scorePhrase(phrase string) (candidate, bool) {
	words := strings.Fields(phrase)

	// Strip leading stopwords.
	for len(words) > 0 && leadingStopwords[strings.ToLower(words[0])] {
		words = words[1:]
	}
	if len(words) < 2 {
		return candidate{}, false
	}

	// Reject phrases whose head is narrative rather than nominal.
	if narrativeVerbs[strings.ToLower(words[0])] {
		return candidate{}, false
	}

	name := strings.Join(words, " ")
	score := 0
	if lawKeywordRe.MatchString(name) {
		score += 10
	}
	if yearRe.MatchString(name) {
		score += 2
	}
	upper := strings.ToUpper(name)
	for _, ac := range knownAcronyms {
		if regexp.MustCompile(`\b` + ac + `\b`).MatchString(upper) {
			score += 3
			break
		}
	}
	for _, w := range words[1:] {
		if narrativeVerbs[strings.ToLower(w)] {
			score -= 8
			break
		}
	}
	if len(words) > 9 {
		score -= len(words) - 9
	}

	return candidate{name: name, lawType: phraseType(name), score: score}, true
}

func phraseType(name string) string {
	m := lawKeywordRe.FindString(name)
	if m == "" {
		return "law"
	}
	return strings.ToLower(m)
}

func normalizeBillID(prefix, digits string) string {
	p := strings.ToUpper(strings.NewReplacer(".", "", " ", "").Replace(prefix))
	return p + "-" + digits
}

func subjectFallback(title string) Law {
	lower := strings.ToLower(title)
	switch {
	case strings.Contains(lower, "online safety"):
		return Law{LawName: "Child Online Safety Law", LawType: "law"}
	case strings.Contains(lower, "age verification"), strings.Contains(lower, "age assurance"):
		return Law{LawName: "Age Verification Law", LawType: "law"}
	case strings.Contains(lower, "privacy"), strings.Contains(lower, "data protection"):
		return Law{LawName: "Child Data Privacy Law", LawType: "law"}
	}

	words := strings.Fields(title)
	if len(words) == 0 {
		return Law{LawName: "Unspecified Law", LawType: "law"}
	}
	if len(words) > 7 {
		words = words[:7]
	}
	for i, w := range words {
		words[i] = titleCase(w)
	}
	return Law{LawName: strings.Join(words, " "), LawType: "law"}
}

func titleCase(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
}

// Key builds the stable canonical key: slug(country):slug(state):slug(id or
// name). An empty country maps to "global".
func Key(country, state, identifier, name string) string {
	c := Slug(country)
	if c == "" {
		c = "global"
	}
	tail := Slug(identifier)
	if tail == "" {
		tail = Slug(name)
	}
	if tail == "" {
		tail = "unspecified-law"
	}
	return fmt.Sprintf("%s:%s:%s", c, Slug(state), tail)
}

// Slug lowercases, strips apostrophes, collapses runs of non-alphanumerics
// to single dashes, and trims.
func Slug(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("'", "", "’", "").Replace(s)
	var b strings.Builder
	lastDash := true // suppress a leading dash
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// PhraseScore exposes the phrase-scoring heuristic so the backfill engine
// can pick the best canonical name among group members.
func PhraseScore(name string) int {
	c, ok := scorePhrase(name)
	if !ok {
		return -100
	}
	return c.score
}
