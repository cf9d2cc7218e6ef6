/*
[AI GENERATED - GOVERNANCE PROTOCOL]
──────────────────────────────────────────────────────────────
Model:       Claude Opus 4.6
Tier:        L4
Logic:       Microblog recent-search client: bearer-token auth,
             rate-limit-aware retries with exponential backoff
             honoring Retry-After and x-rate-limit-reset, a
             single pacer enforcing the inter-query delay, and
             per-run tweet-id dedup.
Root Cause:  Sprint task T208 — Microblog search fetcher.
Context:     The recent-search endpoint is the one rate-limited
             source in the registry; it runs on a single worker
             behind a pacer, never in the parallel batch pool.
Suitability: L4 — backoff against a hostile quota.
──────────────────────────────────────────────────────────────
*/

package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jnyross/regintel/config"
	"github.com/jnyross/regintel/registry"
)

const microblogQueryDelay = 1500 * time.Millisecond

type microblogClient struct {
	cfg    *config.Config
	logger zerolog.Logger
	client *http.Client
	pacer  *rate.Limiter
	// seenIDs dedups tweet ids across the queries of one run; the
	// coordinator builds a fresh Fetcher per run.
	seenIDs map[string]bool
}

func newMicroblogClient(cfg *config.Config, logger zerolog.Logger) *microblogClient {
	return &microblogClient{
		cfg:     cfg,
		logger:  logger,
		client:  &http.Client{Timeout: cfg.MicroblogTimeout},
		pacer:   rate.NewLimiter(rate.Every(microblogQueryDelay), 1),
		seenIDs: make(map[string]bool),
	}
}

type tweetSearchResponse struct {
	Data []struct {
		ID            string `json:"id"`
		Text          string `json:"text"`
		AuthorID      string `json:"author_id"`
		CreatedAt     string `json:"created_at"`
		PublicMetrics struct {
			RetweetCount int `json:"retweet_count"`
			ReplyCount   int `json:"reply_count"`
			LikeCount    int `json:"like_count"`
			QuoteCount   int `json:"quote_count"`
		} `json:"public_metrics"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			Username string `json:"username"`
		} `json:"users"`
	} `json:"includes"`
}

func (m *microblogClient) search(ctx context.Context, src registry.Source) ([]CrawledItem, error) {
	if m.cfg.MicroblogBearerToken == "" {
		return nil, nil
	}
	if err := m.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("query", src.SearchKeywords)
	q.Set("max_results", "100")
	q.Set("tweet.fields", "created_at,author_id,public_metrics")
	q.Set("expansions", "author_id")
	endpoint := src.URL + "?" + q.Encode()

	body, err := m.getWithBackoff(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var parsed tweetSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	authors := make(map[string]string, len(parsed.Includes.Users))
	for _, u := range parsed.Includes.Users {
		authors[u.ID] = fmt.Sprintf("%s (@%s)", u.Name, u.Username)
	}

	now := time.Now().UTC()
	var items []CrawledItem
	for _, t := range parsed.Data {
		if m.seenIDs[t.ID] {
			continue
		}
		m.seenIDs[t.ID] = true

		author := authors[t.AuthorID]
		if author == "" {
			author = "unknown author"
		}
		tweetURL := "https://x.com/i/status/" + t.ID
		text := fmt.Sprintf("Post by %s\n%s\nPosted: %s\nEngagement: %d retweets, %d replies, %d likes, %d quotes\n\n%s",
			author, tweetURL, t.CreatedAt,
			t.PublicMetrics.RetweetCount, t.PublicMetrics.ReplyCount,
			t.PublicMetrics.LikeCount, t.PublicMetrics.QuoteCount,
			t.Text)

		items = append(items, CrawledItem{
			Source:    src,
			URL:       tweetURL,
			Title:     collapse(author + ": " + truncateTitle(t.Text)),
			Text:      text,
			FetchedAt: now,
		})
	}
	return items, nil
}

func truncateTitle(s string) string {
	if len(s) > 120 {
		return s[:120]
	}
	return s
}

// getWithBackoff retries 408, 429, and 5xx responses with exponential
// backoff, honoring Retry-After and x-rate-limit-reset when the server
// provides them. Exhaustion surfaces the last error; the coordinator
// absorbs it like any other source failure.
func (m *microblogClient) getWithBackoff(ctx context.Context, endpoint string) ([]byte, error) {
	maxAttempts := m.cfg.MicroblogMaxRetries
	if maxAttempts < 1 {
		maxAttempts = 4
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := m.backoffDelay(attempt, lastErr)
			m.logger.Debug().Dur("delay", delay).Int("attempt", attempt).Msg("microblog backoff")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+m.cfg.MicroblogBearerToken)

		resp, err := m.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		_ = resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if readErr != nil {
				lastErr = readErr
				continue
			}
			return body, nil
		case resp.StatusCode == http.StatusRequestTimeout,
			resp.StatusCode == http.StatusTooManyRequests,
			resp.StatusCode >= 500:
			lastErr = &retryableStatusError{status: resp.StatusCode, header: resp.Header}
			continue
		default:
			return nil, fmt.Errorf("microblog search: status %d", resp.StatusCode)
		}
	}
	return nil, fmt.Errorf("microblog search exhausted %d attempts: %w", maxAttempts, lastErr)
}

type retryableStatusError struct {
	status int
	header http.Header
}

func (e *retryableStatusError) Error() string {
	return fmt.Sprintf("retryable status %d", e.status)
}

func (m *microblogClient) backoffDelay(attempt int, lastErr error) time.Duration {
	base := m.cfg.MicroblogBaseBackoff
	if base <= 0 {
		base = 1500 * time.Millisecond
	}
	maxDelay := m.cfg.MicroblogMaxBackoff
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			delay = maxDelay
			break
		}
	}

	// The server's own reset hints win over the computed delay.
	if rse, ok := lastErr.(*retryableStatusError); ok {
		if ra := rse.header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				delay = time.Duration(secs) * time.Second
			}
		} else if reset := rse.header.Get("x-rate-limit-reset"); reset != "" {
			if epoch, err := strconv.ParseInt(reset, 10, 64); err == nil {
				if until := time.Until(time.Unix(epoch, 0)); until > 0 {
					delay = until
				}
			}
		}
	}

	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}
