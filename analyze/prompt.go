package analyze

import "fmt"

// analystPrompt is the fixed instruction sent ahead of every item. The
// response contract is a single JSON object; everything else is rejected
// at the parse boundary.
const analystPrompt = `You are a regulatory analyst tracking laws and regulations that affect online platforms serving minors. Read the crawled item below and decide whether it describes a regulation, bill, enforcement action, or rulemaking relevant to children's or teens' online safety, privacy, or age assurance.

Respond with ONLY a JSON object, no prose. If the item is not about such a regulation, respond {"relevant": false}.

Otherwise respond with:
{
  "relevant": true,
  "title": "short factual headline for the regulation event",
  "jurisdiction_country": "country or bloc, e.g. United States",
  "jurisdiction_state": "state/province or null",
  "stage": "proposed|introduced|committee_review|passed|enacted|effective|amended|withdrawn|rejected",
  "is_under16_applicable": true,
  "age_bracket": "13-15|16-18|both",
  "impact_score": 1-5,
  "likelihood_score": 1-5,
  "confidence_score": 1-5,
  "chili_score": 1-5,
  "summary": "2-3 sentence factual summary",
  "business_impact": "1-2 sentences on what a platform must do",
  "required_solutions": ["list of compliance capabilities"],
  "affected_products": ["list of product surfaces"],
  "competitor_responses": ["known public responses, may be empty"],
  "effective_date": "YYYY-MM-DD or null",
  "published_date": "YYYY-MM-DD or null"
}

Scores: impact = severity for a large platform; likelihood = chance it takes force as written; confidence = how certain the sourcing is; chili = analyst urgency, 5 means drop-everything.`

// BuildPrompt assembles the fixed instruction plus one item's envelope.
func BuildPrompt(sourceName, url, title, text string) string {
	return fmt.Sprintf("%s\n\n=== ITEM ===\nSource: %s\nURL: %s\nTitle: %s\n\n%s",
		analystPrompt, sourceName, url, title, text)
}
