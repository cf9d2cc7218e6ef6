/*
[AI GENERATED - GOVERNANCE PROTOCOL]
──────────────────────────────────────────────────────────────
Model:       Claude Opus 4.6
Tier:        L4
Logic:       Crawl coordinator: single-flight run lifecycle,
             bounded fetch and analyze fan-out, one persist
             transaction per run, then notification seeding and
             law backfill as post-commit side effects.
Root Cause:  Sprint task T218 — Pipeline orchestration.
Context:     Per-source and per-item failures are absorbed and
             counted; only orchestrator-level failures mark the
             run failed. Readers see a run's effects all at
             once or not at all.
Suitability: L4 — the run state machine and transaction
             boundary are the system's consistency story.
──────────────────────────────────────────────────────────────
*/

package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jnyross/regintel/analyze"
	"github.com/jnyross/regintel/backfill"
	"github.com/jnyross/regintel/config"
	"github.com/jnyross/regintel/fetch"
	"github.com/jnyross/regintel/observability"
	"github.com/jnyross/regintel/registry"
	"github.com/jnyross/regintel/store"
)

// ErrNoAPIKey refuses a run when the analyzer secret is absent.
var ErrNoAPIKey = errors.New("MINIMAX_API_KEY is not configured")

// CacheInvalidator is notified after any write that stales the read cache.
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// Result summarizes one pipeline run.
type Result struct {
	RunID      int64    `json:"runId"`
	ItemsFound int      `json:"itemsFound"`
	New        int      `json:"new"`
	Updated    int      `json:"updated"`
	Duplicates int      `json:"duplicates"`
	Skipped    int      `json:"skipped"`
	Errors     []string `json:"errors"`
}

// Coordinator owns the crawl-run lifecycle.
type Coordinator struct {
	cfg      *config.Config
	logger   zerolog.Logger
	store    *store.Store
	metrics  *observability.Metrics
	cache    CacheInvalidator
	analyzer *analyze.Analyzer
}

// New builds a Coordinator. cache may be nil.
func New(cfg *config.Config, logger zerolog.Logger, st *store.Store,
	metrics *observability.Metrics, cache CacheInvalidator) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		metrics:  metrics,
		cache:    cache,
		analyzer: analyze.New(cfg, logger),
	}
}

// Trigger starts a run in the background and returns its id immediately.
// Returns *store.ErrRunInProgress when a run is already in flight.
func (c *Coordinator) Trigger(ctx context.Context) (int64, error) {
	if c.cfg.AnalyzerAPIKey == "" {
		return 0, ErrNoAPIKey
	}
	run, err := c.store.StartRun(ctx)
	if err != nil {
		return 0, err
	}
	go func() {
		// The trigger request's context dies with the HTTP response; the
		// run keeps its own.
		bg := context.Background()
		if _, err := c.execute(bg, run.ID); err != nil {
			c.logger.Error().Err(err).Int64("run", run.ID).Msg("crawl run failed")
		}
	}()
	return run.ID, nil
}

// Run executes a full pipeline synchronously (CLI path).
func (c *Coordinator) Run(ctx context.Context) (*Result, error) {
	if c.cfg.AnalyzerAPIKey == "" {
		return nil, ErrNoAPIKey
	}
	run, err := c.store.StartRun(ctx)
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, run.ID)
}

func (c *Coordinator) execute(ctx context.Context, runID int64) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
		if err != nil {
			c.metrics.RunsFailed.Inc()
			if failErr := c.store.FailRun(ctx, runID, err.Error()); failErr != nil {
				c.logger.Error().Err(failErr).Int64("run", runID).Msg("could not mark run failed")
			}
		}
	}()

	result := &Result{RunID: runID, Errors: []string{}}

	// A fresh fetcher per run resets per-run dedup state.
	fetcher := fetch.New(c.cfg, c.logger)
	sources := registry.All()
	c.logger.Info().Int64("run", runID).Int("sources", len(sources)).Msg("crawl started")

	items := fetcher.FetchAll(ctx, sources)
	result.ItemsFound = len(items)
	c.metrics.ItemsFetched.Add(float64(len(items)))

	if len(items) == 0 {
		if err := c.store.CompleteRun(ctx, runID, 0, 0, 0); err != nil {
			return nil, err
		}
		c.metrics.RunsCompleted.Inc()
		c.logger.Info().Int64("run", runID).Msg("crawl complete — nothing found")
		return result, nil
	}

	analyzed := c.analyzeAll(ctx, items)
	c.logger.Info().Int64("run", runID).Int("items", len(items)).
		Int("relevant", len(analyzed)).Msg("analysis complete")

	if err := c.persist(ctx, analyzed, result); err != nil {
		return nil, err
	}

	if err := c.store.CompleteRun(ctx, runID, result.ItemsFound, result.New, result.Updated); err != nil {
		return nil, err
	}
	c.metrics.RunsCompleted.Inc()

	c.postCompletion(ctx)

	c.logger.Info().Int64("run", runID).
		Int("new", result.New).Int("updated", result.Updated).
		Int("duplicate", result.Duplicates).Int("skipped", result.Skipped).
		Msg("crawl complete")
	return result, nil
}

type analyzedItem struct {
	item   fetch.CrawledItem
	result *analyze.Result
}

// analyzeAll fans items out to the analyzer in fixed-size batches with
// wait-all semantics per batch; irrelevant and failed items are dropped.
func (c *Coordinator) analyzeAll(ctx context.Context, items []fetch.CrawledItem) []analyzedItem {
	concurrency := c.cfg.AnalysisConcurrency
	if concurrency < 1 {
		concurrency = 10
	}

	var (
		mu   sync.Mutex
		kept []analyzedItem
		done int
	)
	for start := 0; start < len(items); start += concurrency {
		end := start + concurrency
		if end > len(items) {
			end = len(items)
		}
		var wg sync.WaitGroup
		for _, item := range items[start:end] {
			wg.Add(1)
			go func(item fetch.CrawledItem) {
				defer wg.Done()
				res, err := c.analyzer.Analyze(ctx, item)

				mu.Lock()
				defer mu.Unlock()
				done++
				switch {
				case err != nil:
					c.metrics.ItemsDropped.Inc()
					c.logger.Warn().Err(err).Str("source", item.Source.Name).
						Int("progress", done).Msg("analysis failed — item dropped")
				case !res.Relevant:
					c.metrics.ItemsDropped.Inc()
					c.logger.Debug().Str("source", item.Source.Name).
						Int("progress", done).Msg("item not relevant")
				default:
					c.metrics.ItemsAnalyzed.Inc()
					kept = append(kept, analyzedItem{item: item, result: res})
					c.logger.Debug().Str("source", item.Source.Name).
						Int("progress", done).Msg("item analyzed")
				}
			}(item)
		}
		wg.Wait()
	}
	return kept
}

// persist writes all analyzed items inside one transaction: source ensure,
// within-run dedup, event upsert, tallies. Store validation failures skip
// the event and land in the errors list.
func (c *Coordinator) persist(ctx context.Context, analyzed []analyzedItem, result *Result) error {
	seen := make(map[string]bool, len(analyzed))

	return c.store.WithTx(ctx, func(tx *sql.Tx) error {
		for _, a := range analyzed {
			src := a.item.Source
			srcID, err := c.store.EnsureSource(ctx, tx, store.Source{
				Name:                src.Name,
				URL:                 src.URL,
				Type:                string(src.Type),
				AuthorityType:       string(src.AuthorityType),
				Jurisdiction:        src.Jurisdiction,
				JurisdictionCountry: src.JurisdictionCountry,
				JurisdictionState:   src.JurisdictionState,
				ReliabilityTier:     src.ReliabilityTier,
			})
			if err != nil {
				return err
			}

			in := buildInput(a, srcID)

			key := store.DedupKey(in)
			if seen[key] {
				result.Skipped++
				continue
			}
			seen[key] = true

			outcome, err := c.store.UpsertEvent(ctx, tx, in)
			if err != nil {
				if errors.Is(err, store.ErrValidation) {
					result.Skipped++
					result.Errors = append(result.Errors, err.Error())
					c.logger.Warn().Err(err).Str("title", in.Title).Msg("event skipped")
					continue
				}
				return err
			}
			c.metrics.UpsertOutcomes.WithLabelValues(string(outcome)).Inc()
			switch outcome {
			case store.OutcomeNew:
				result.New++
			case store.OutcomeUpdated:
				result.Updated++
			case store.OutcomeDuplicate:
				result.Duplicates++
			}
		}
		return nil
	})
}

func buildInput(a analyzedItem, srcID int64) store.EventInput {
	r := a.result
	title := r.Title
	if title == "" {
		title = a.item.Title
	}
	country := r.JurisdictionCountry
	if country == "" {
		country = a.item.Source.JurisdictionCountry
	}
	return store.EventInput{
		Title:               title,
		JurisdictionCountry: country,
		JurisdictionState:   r.JurisdictionState,
		Stage:               r.Stage,
		IsUnder16Applicable: r.IsUnder16Applicable,
		AgeBracket:          r.AgeBracket,
		ImpactScore:         r.ImpactScore,
		LikelihoodScore:     r.LikelihoodScore,
		ConfidenceScore:     r.ConfidenceScore,
		ChiliScore:          r.ChiliScore,
		Summary:             r.Summary,
		BusinessImpact:      r.BusinessImpact,
		RequiredSolutions:   analyze.JSONList(r.RequiredSolutions),
		AffectedProducts:    analyze.JSONList(r.AffectedProducts),
		CompetitorResponses: analyze.JSONList(r.CompetitorResponses),
		RawText:             a.item.Text,
		SourceURLLink:       a.item.URL,
		EffectiveDate:       r.EffectiveDate,
		PublishedDate:       r.PublishedDate,
		SourceID:            &srcID,
		ChangedBy:           "pipeline",
	}
}

// postCompletion runs the side effects of a successful crawl outside the
// core transaction: high-risk notification seeding, law backfill, cache
// invalidation. Their failures are logged, never fatal to the run.
func (c *Coordinator) postCompletion(ctx context.Context) {
	if seeded, err := c.store.SeedHighRiskNotifications(ctx, 4); err != nil {
		c.logger.Error().Err(err).Msg("notification seeding failed")
	} else if seeded > 0 {
		c.logger.Info().Int("seeded", seeded).Msg("high-risk notifications seeded")
	}

	if _, err := backfill.Run(ctx, c.store, c.logger); err != nil {
		c.logger.Error().Err(err).Msg("post-crawl law backfill failed")
	}

	if c.cache != nil {
		c.cache.Invalidate(ctx)
	}
}
