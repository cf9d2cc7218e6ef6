/*
[AI GENERATED - GOVERNANCE PROTOCOL]
──────────────────────────────────────────────────────────────
Model:       Claude Opus 4.6
Tier:        L3
Logic:       LLM analyzer client: posts one crawled item at a
             time to a messages-shape completion endpoint and
             normalizes the JSON verdict. Timeouts, non-2xx,
             and an undecodable response envelope resolve to
             (nil, err); verdict text that cannot be parsed
             yields the irrelevant sentinel (Relevant=false).
             The pipeline drops either kind of item and
             continues.
Root Cause:  Sprint task T210 — Regulation extraction.
Context:     Auth uses the x-api-key header and a pinned API
             version; request schema is the messages API.
Suitability: L3 model for a well-documented completion API.
──────────────────────────────────────────────────────────────
*/

package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/jnyross/regintel/config"
	"github.com/jnyross/regintel/fetch"
	"github.com/jnyross/regintel/textutil"
)

const (
	apiVersion   = "2023-06-01"
	maxInputText = 8 * 1024
	maxTokens    = 1024
)

// Analyzer extracts structured regulation verdicts from crawled items.
type Analyzer struct {
	cfg    *config.Config
	logger zerolog.Logger
	client *http.Client
}

// New builds an Analyzer with a shared HTTP client.
func New(cfg *config.Config, logger zerolog.Logger) *Analyzer {
	transport := &http.Transport{
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Analyzer{
		cfg:    cfg,
		logger: logger,
		client: &http.Client{Transport: transport, Timeout: cfg.AnalyzerTimeout},
	}
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Analyze sends one item to the analyzer endpoint and returns the
// normalized result. A Result with Relevant=false is the irrelevant
// sentinel; a nil Result with an error means the item is dropped.
func (a *Analyzer) Analyze(ctx context.Context, item fetch.CrawledItem) (*Result, error) {
	prompt := BuildPrompt(item.Source.Name, item.URL, item.Title, textutil.Truncate(item.Text, maxInputText))

	reqBody, err := json.Marshal(messagesRequest{
		Model:     a.cfg.AnalyzerModel,
		MaxTokens: maxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.cfg.AnalyzerBaseURL+"/messages", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.cfg.AnalyzerAPIKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analyzer request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("analyzer returned status %d: %s", resp.StatusCode, string(body))
	}

	var mResp messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&mResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(mResp.Content) == 0 {
		return nil, fmt.Errorf("analyzer returned empty content")
	}

	return ParseVerdict(mResp.Content[0].Text), nil
}
