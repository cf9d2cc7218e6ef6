/*
[AI GENERATED - GOVERNANCE PROTOCOL]
──────────────────────────────────────────────────────────────
Model:       Claude Opus 4.6
Tier:        L2
Logic:       Prometheus counters for the crawl pipeline: items
             fetched/analyzed, upsert outcomes, run terminal
             states; exposed via promhttp.
Root Cause:  Sprint task T226 — Pipeline observability.
Context:     Counts only; run progress itself is observed
             through the crawl_runs row.
Suitability: L2 — metric plumbing.
──────────────────────────────────────────────────────────────
*/

package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline's prometheus instruments.
type Metrics struct {
	registry *prometheus.Registry

	ItemsFetched   prometheus.Counter
	ItemsAnalyzed  prometheus.Counter
	ItemsDropped   prometheus.Counter
	UpsertOutcomes *prometheus.CounterVec
	RunsCompleted  prometheus.Counter
	RunsFailed     prometheus.Counter
}

// New registers all pipeline metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ItemsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "regintel_items_fetched_total",
			Help: "Crawled items produced by all fetchers.",
		}),
		ItemsAnalyzed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "regintel_items_analyzed_total",
			Help: "Items the analyzer returned a relevant verdict for.",
		}),
		ItemsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "regintel_items_dropped_total",
			Help: "Items dropped as irrelevant or failed analysis.",
		}),
		UpsertOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "regintel_upserts_total",
			Help: "Event upserts by outcome.",
		}, []string{"outcome"}),
		RunsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "regintel_crawl_runs_completed_total",
			Help: "Crawl runs that reached completed.",
		}),
		RunsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "regintel_crawl_runs_failed_total",
			Help: "Crawl runs that reached failed.",
		}),
	}
	reg.MustRegister(m.ItemsFetched, m.ItemsAnalyzed, m.ItemsDropped,
		m.UpsertOutcomes, m.RunsCompleted, m.RunsFailed)
	return m
}

// Handler serves the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
