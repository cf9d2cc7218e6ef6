/*
[AI GENERATED - GOVERNANCE PROTOCOL]
──────────────────────────────────────────────────────────────
Model:       Claude Opus 4.6
Tier:        L3
Logic:       Source fetch dispatch: HTML pages and legal
             databases, RSS/Atom feeds, and microblog search.
             Best-effort semantics — per-source failures are
             absorbed and contribute zero items. Non-microblog
             sources fan out under a bounded semaphore;
             microblog sources run sequentially behind a pacer.
Root Cause:  Sprint task T205 — Source fetchers.
Context:     A dead source must never abort a crawl run; the
             coordinator only ever sees a (possibly empty) item
             slice per source.
Suitability: L3 — network fan-out with bounded concurrency.
──────────────────────────────────────────────────────────────
*/

package fetch

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jnyross/regintel/config"
	"github.com/jnyross/regintel/registry"
	"github.com/jnyross/regintel/textutil"
)

// CrawledItem is the value object a fetcher produces per discovered item.
// Feed items reuse the parent source so downstream joins keep working.
type CrawledItem struct {
	Source    registry.Source
	URL       string
	Title     string
	Text      string
	FetchedAt time.Time
}

// Fetcher crawls registry sources into CrawledItems.
type Fetcher struct {
	cfg       *config.Config
	logger    zerolog.Logger
	client    *http.Client
	microblog *microblogClient
}

// New builds a Fetcher with one shared HTTP client. Redirects are followed;
// every request carries a browser-like User-Agent because several government
// sites refuse default Go clients.
func New(cfg *config.Config, logger zerolog.Logger) *Fetcher {
	transport := &http.Transport{
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.FetchTimeout,
	}
	return &Fetcher{
		cfg:       cfg,
		logger:    logger,
		client:    client,
		microblog: newMicroblogClient(cfg, logger),
	}
}

// Fetch crawls a single source. Failures are absorbed: the error is logged
// and an empty slice returned.
func (f *Fetcher) Fetch(ctx context.Context, src registry.Source) []CrawledItem {
	var (
		items []CrawledItem
		err   error
	)
	switch src.Type {
	case registry.TypeMicroblogSearch:
		items, err = f.microblog.search(ctx, src)
	case registry.TypeRSSFeed, registry.TypeNewsSearch:
		items, err = f.fetchFeed(ctx, src)
	default:
		items, err = f.fetchPage(ctx, src)
	}
	if err != nil {
		f.logger.Warn().Err(err).Str("source", src.Name).Str("type", string(src.Type)).
			Msg("source fetch failed — absorbed")
		return nil
	}
	f.logger.Debug().Str("source", src.Name).Int("items", len(items)).Msg("source fetched")
	return items
}

// FetchAll crawls every source: non-microblog sources in bounded parallel
// batches, microblog sources strictly sequentially (the search API is rate
// limited per app). The combined result is deduplicated.
func (f *Fetcher) FetchAll(ctx context.Context, sources []registry.Source) []CrawledItem {
	var microblog, other []registry.Source
	for _, s := range sources {
		if s.Type == registry.TypeMicroblogSearch {
			microblog = append(microblog, s)
		} else {
			other = append(other, s)
		}
	}

	parallelism := f.cfg.FetchConcurrency
	if parallelism < 1 {
		parallelism = 5
	}

	var (
		mu  sync.Mutex
		out []CrawledItem
		wg  sync.WaitGroup
	)
	sem := make(chan struct{}, parallelism)
	for _, src := range other {
		wg.Add(1)
		go func(src registry.Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			items := f.Fetch(ctx, src)
			mu.Lock()
			out = append(out, items...)
			mu.Unlock()
		}(src)
	}
	wg.Wait()

	if f.cfg.MicroblogBearerToken == "" {
		if len(microblog) > 0 {
			f.logger.Debug().Int("sources", len(microblog)).
				Msg("no bearer token configured — skipping microblog sources")
		}
	} else {
		for _, src := range microblog {
			out = append(out, f.Fetch(ctx, src)...)
		}
	}

	return dedupeItems(out)
}

// dedupeItems collapses items sharing (source name, url), or — when the URL
// is empty — (source name, content hash).
func dedupeItems(items []CrawledItem) []CrawledItem {
	seen := make(map[string]bool, len(items))
	out := make([]CrawledItem, 0, len(items))
	for _, it := range items {
		key := it.Source.Name + "|"
		if u := strings.TrimSpace(strings.ToLower(it.URL)); u != "" {
			key += u
		} else {
			key += "text:" + textutil.Hash(it.Text)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
	}
	return out
}

const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func (f *Fetcher) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	return f.client.Do(req)
}
