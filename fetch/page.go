/*
[AI GENERATED - GOVERNANCE PROTOCOL]
──────────────────────────────────────────────────────────────
Model:       Claude Opus 4.6
Tier:        L3
Logic:       Government page / legal database extractor: single
             GET, capped body read, chrome stripping (script,
             style, nav, footer, header), entity decoding,
             whitespace collapse, title extraction, and metadata
             enrichment for near-empty pages.
Root Cause:  Sprint task T206 — HTML page extraction.
Context:     Regulator sites are heavy chrome around thin text;
             a page whose stripped text runs under 200 chars is
             enriched from its meta tags and registry keywords
             so the analyzer still has something to work with.
Suitability: L3 — regex-based HTML reduction.
──────────────────────────────────────────────────────────────
*/

package fetch

import (
	"context"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/jnyross/regintel/registry"
	"github.com/jnyross/regintel/textutil"
)

const (
	pageBodyCap   = 12 * 1024
	pageTitleCap  = 200
	thinPageChars = 200
)

var (
	scriptRe  = regexp.MustCompile(`(?is)<script\b.*?</script>`)
	styleRe   = regexp.MustCompile(`(?is)<style\b.*?</style>`)
	navRe     = regexp.MustCompile(`(?is)<nav\b.*?</nav>`)
	footerRe  = regexp.MustCompile(`(?is)<footer\b.*?</footer>`)
	headerRe  = regexp.MustCompile(`(?is)<header\b.*?</header>`)
	tagRe     = regexp.MustCompile(`(?s)<[^>]*>`)
	titleRe   = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	metaRe    = regexp.MustCompile(`(?is)<meta\s+[^>]*>`)
	attrRe    = regexp.MustCompile(`(?is)(name|property)\s*=\s*["']([^"']+)["']`)
	contentRe = regexp.MustCompile(`(?is)content\s*=\s*["']([^"']*)["']`)
)

func (f *Fetcher) fetchPage(ctx context.Context, src registry.Source) ([]CrawledItem, error) {
	resp, err := f.get(ctx, src.URL)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", src.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("get %s: status %d", src.URL, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, pageBodyCap))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src.URL, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("read %s: empty body", src.URL)
	}
	doc := string(raw)

	title := extractTitle(doc)
	if title == "" {
		title = src.Name
	}

	text := stripHTML(doc)
	if len(text) < thinPageChars {
		text = enrichThinPage(doc, src, text)
	}

	return []CrawledItem{{
		Source:    src,
		URL:       src.URL,
		Title:     title,
		Text:      text,
		FetchedAt: time.Now().UTC(),
	}}, nil
}

func extractTitle(doc string) string {
	m := titleRe.FindStringSubmatch(doc)
	if m == nil {
		return ""
	}
	t := collapse(html.UnescapeString(m[1]))
	return textutil.Truncate(t, pageTitleCap)
}

// stripHTML reduces a document to readable text: chrome blocks removed,
// remaining tags dropped, entities decoded, whitespace collapsed.
func stripHTML(doc string) string {
	doc = scriptRe.ReplaceAllString(doc, " ")
	doc = styleRe.ReplaceAllString(doc, " ")
	doc = navRe.ReplaceAllString(doc, " ")
	doc = footerRe.ReplaceAllString(doc, " ")
	doc = headerRe.ReplaceAllString(doc, " ")
	doc = tagRe.ReplaceAllString(doc, " ")
	doc = html.UnescapeString(doc)
	return collapse(doc)
}

// enrichThinPage concatenates meta descriptions, og tags, the source name,
// its description, and the registry keywords when the stripped text alone
// is too thin to analyze.
func enrichThinPage(doc string, src registry.Source, stripped string) string {
	metas := metaContent(doc)
	parts := []string{stripped}
	for _, key := range []string{"og:description", "description", "og:title"} {
		if v := metas[key]; v != "" {
			parts = append(parts, v)
		}
	}
	parts = append(parts, src.Name, src.Description, src.SearchKeywords)

	var nonEmpty []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, strings.TrimSpace(p))
		}
	}
	return collapse(strings.Join(nonEmpty, ". "))
}

func metaContent(doc string) map[string]string {
	out := map[string]string{}
	for _, tag := range metaRe.FindAllString(doc, -1) {
		nameM := attrRe.FindStringSubmatch(tag)
		contentM := contentRe.FindStringSubmatch(tag)
		if nameM == nil || contentM == nil {
			continue
		}
		key := strings.ToLower(nameM[2])
		if _, exists := out[key]; !exists {
			out[key] = collapse(html.UnescapeString(contentM[1]))
		}
	}
	return out
}

// collapse squeezes whitespace without lowercasing (unlike textutil.Collapse,
// which feeds content hashing).
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
