/*
[AI GENERATED - GOVERNANCE PROTOCOL]
──────────────────────────────────────────────────────────────
Model:       Claude Opus 4.6
Tier:        L3
Logic:       API handlers: executive brief (cached), paginated
             event list with pagination headers, event and law
             detail, manual event edits, crawl trigger/status,
             law rebuild, notifications, analytics rollup.
Root Cause:  Sprint tasks T231-T238 — API handlers.
Context:     Not-found is distinct from empty lists on every
             read path; single-flight conflicts surface as 409
             with the running run id.
Suitability: L3 — HTTP glue over the store contracts.
──────────────────────────────────────────────────────────────
*/

package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/jnyross/regintel/backfill"
	"github.com/jnyross/regintel/caching"
	"github.com/jnyross/regintel/config"
	"github.com/jnyross/regintel/pipeline"
	"github.com/jnyross/regintel/store"
)

type handlers struct {
	cfg    *config.Config
	logger zerolog.Logger
	store  *store.Store
	coord  *pipeline.Coordinator
	cache  *caching.Engine
}

func newHandlers(cfg *config.Config, logger zerolog.Logger, st *store.Store,
	coord *pipeline.Coordinator, cache *caching.Engine) *handlers {
	return &handlers{cfg: cfg, logger: logger, store: st, coord: coord, cache: cache}
}

func (h *handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("response encode failed")
	}
}

func (h *handlers) writeError(w http.ResponseWriter, status int, code, msg string) {
	h.writeJSON(w, status, map[string]string{"error": code, "message": msg})
}

// Ready reports whether the store is reachable.
func (h *handlers) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "store_unavailable", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "service": "regintel"})
}

// Brief serves the executive briefing, cached under a short TTL.
func (h *handlers) Brief(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	cacheKey := fmt.Sprintf("brief:%d", limit)

	if h.cache != nil {
		if payload := h.cache.Get(r.Context(), cacheKey); payload != nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "hit")
			_, _ = w.Write(payload)
			return
		}
	}

	brief, err := h.store.GetBrief(r.Context(), limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "brief_failed", err.Error())
		return
	}

	payload, err := json.Marshal(brief)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "brief_failed", err.Error())
		return
	}
	if h.cache != nil {
		h.cache.Set(r.Context(), cacheKey, payload)
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

// ListEvents serves the filtered, paginated event list with the pagination
// header triple.
func (h *handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.EventFilter{
		Jurisdictions: splitMulti(q.Get("jurisdictions")),
		Stages:        splitMulti(q.Get("stages")),
		AgeBracket:    q.Get("ageBracket"),
		DateFrom:      q.Get("dateFrom"),
		DateTo:        q.Get("dateTo"),
		Query:         q.Get("q"),
		SortBy:        q.Get("sortBy"),
		SortDir:       q.Get("sortDir"),
	}
	f.MinRisk, _ = strconv.Atoi(q.Get("minRisk"))
	f.MaxRisk, _ = strconv.Atoi(q.Get("maxRisk"))
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.Limit, _ = strconv.Atoi(q.Get("limit"))

	page, err := h.store.ListEvents(r.Context(), f)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "events_failed", err.Error())
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(page.Total))
	w.Header().Set("X-Total-Pages", strconv.Itoa(page.TotalPages))
	w.Header().Set("X-Current-Page", strconv.Itoa(page.Page))
	h.writeJSON(w, http.StatusOK, page)
}

// EventDetail serves one event with feedback, related events, history, and
// the UX timeline (identical to history).
func (h *handlers) EventDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ev, err := h.store.GetEvent(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		h.writeError(w, http.StatusNotFound, "event_not_found", "No event with id "+id)
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "event_failed", err.Error())
		return
	}

	feedback, err := h.store.ListFeedback(r.Context(), id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "event_failed", err.Error())
		return
	}
	related, err := h.store.RelatedEvents(r.Context(), id, 5)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "event_failed", err.Error())
		return
	}
	history, err := h.store.GetHistory(r.Context(), id, 50)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "event_failed", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"event":         ev,
		"feedback":      orEmptyFeedback(feedback),
		"relatedEvents": orEmptyEvents(related),
		"history":       orEmptyHistory(history),
		"timeline":      orEmptyHistory(history),
	})
}

// EditEvent applies a manual edit, then rebuilds laws and drops the cache.
func (h *handlers) EditEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var edit store.EditableFields
	if err := json.NewDecoder(r.Body).Decode(&edit); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body: "+err.Error())
		return
	}

	err := h.store.EditEvent(r.Context(), id, edit, "manual")
	if errors.Is(err, sql.ErrNoRows) {
		h.writeError(w, http.StatusNotFound, "event_not_found", "No event with id "+id)
		return
	}
	if errors.Is(err, store.ErrValidation) {
		h.writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "edit_failed", err.Error())
		return
	}

	// Manual edits change the law graph.
	if _, err := backfill.Run(r.Context(), h.store, h.logger); err != nil {
		h.logger.Error().Err(err).Msg("post-edit backfill failed")
	}
	h.invalidateCache(r.Context())

	ev, err := h.store.GetEvent(r.Context(), id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "edit_failed", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, ev)
}

// AddFeedback attaches an analyst note to an event.
func (h *handlers) AddFeedback(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.store.GetEvent(r.Context(), id); errors.Is(err, sql.ErrNoRows) {
		h.writeError(w, http.StatusNotFound, "event_not_found", "No event with id "+id)
		return
	} else if err != nil {
		h.writeError(w, http.StatusInternalServerError, "feedback_failed", err.Error())
		return
	}

	var body struct {
		Author  string `json:"author"`
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Comment) == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "A non-empty comment is required")
		return
	}
	if body.Author == "" {
		body.Author = "analyst"
	}

	if err := h.store.AddFeedback(r.Context(), id, body.Author, body.Comment); err != nil {
		h.writeError(w, http.StatusInternalServerError, "feedback_failed", err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

// ListLaws serves laws ordered by aggregate risk.
func (h *handlers) ListLaws(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.LawFilter{
		Jurisdiction: q.Get("jurisdiction"),
		Stage:        q.Get("stage"),
	}
	f.MinRisk, _ = strconv.ParseFloat(q.Get("minRisk"), 64)
	f.Limit, _ = strconv.Atoi(q.Get("limit"))

	laws, err := h.store.ListLaws(r.Context(), f)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "laws_failed", err.Error())
		return
	}
	if laws == nil {
		laws = []store.Law{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"items": laws, "total": len(laws)})
}

// LawDetail serves one law with its updates and a timeline derived from
// them.
func (h *handlers) LawDetail(w http.ResponseWriter, r *http.Request) {
	lawKey := chi.URLParam(r, "lawKey")
	law, updates, err := h.store.GetLawByKey(r.Context(), lawKey)
	if errors.Is(err, sql.ErrNoRows) {
		h.writeError(w, http.StatusNotFound, "law_not_found", "No law with key "+lawKey)
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "law_failed", err.Error())
		return
	}

	type timelineEntry struct {
		Date  string `json:"date"`
		Stage string `json:"stage"`
		Title string `json:"title"`
	}
	timeline := make([]timelineEntry, 0, len(updates))
	for _, u := range updates {
		date := u.CreatedAt
		if u.PublishedDate != nil {
			date = *u.PublishedDate
		}
		timeline = append(timeline, timelineEntry{Date: date, Stage: u.Stage, Title: u.Title})
	}
	if updates == nil {
		updates = []store.LawUpdate{}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"law":      law,
		"updates":  updates,
		"timeline": timeline,
	})
}

// RebuildLaws triggers a backfill on demand.
func (h *handlers) RebuildLaws(w http.ResponseWriter, r *http.Request) {
	res, err := backfill.Run(r.Context(), h.store, h.logger)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "rebuild_failed", err.Error())
		return
	}
	h.invalidateCache(r.Context())
	h.writeJSON(w, http.StatusOK, res)
}

// StartCrawl triggers a pipeline run in the background.
func (h *handlers) StartCrawl(w http.ResponseWriter, r *http.Request) {
	runID, err := h.coord.Trigger(r.Context())
	if err != nil {
		var inProgress *store.ErrRunInProgress
		if errors.As(err, &inProgress) {
			h.writeJSON(w, http.StatusConflict, map[string]any{
				"status": "conflict",
				"runId":  inProgress.RunID,
			})
			return
		}
		if errors.Is(err, pipeline.ErrNoAPIKey) {
			h.writeError(w, http.StatusPreconditionFailed, "no_api_key", err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, "crawl_failed", err.Error())
		return
	}
	h.writeJSON(w, http.StatusAccepted, map[string]any{"status": "started", "runId": runID})
}

// CrawlStatus serves the latest run row, or the never_run sentinel.
func (h *handlers) CrawlStatus(w http.ResponseWriter, r *http.Request) {
	run, err := h.store.LatestRun(r.Context())
	if errors.Is(err, sql.ErrNoRows) {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "never_run"})
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "status_failed", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, run)
}

// ListNotifications serves seeded notifications.
func (h *handlers) ListNotifications(w http.ResponseWriter, r *http.Request) {
	unread := r.URL.Query().Get("unread") == "true"
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.store.ListNotifications(r.Context(), unread, limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "notifications_failed", err.Error())
		return
	}
	if items == nil {
		items = []store.Notification{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
}

// MarkNotificationRead flips one notification to read.
func (h *handlers) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Notification id must be numeric")
		return
	}
	n, err := h.store.MarkNotificationRead(r.Context(), id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "notifications_failed", err.Error())
		return
	}
	if n == 0 {
		h.writeError(w, http.StatusNotFound, "notification_not_found", "No notification with that id")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

// AnalyticsSummary serves the aggregate rollup.
func (h *handlers) AnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.store.GetAnalyticsSummary(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "analytics_failed", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *handlers) invalidateCache(ctx context.Context) {
	if h.cache != nil {
		h.cache.Invalidate(ctx)
	}
}

func splitMulti(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var out []string
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func orEmptyFeedback(v []store.Feedback) []store.Feedback {
	if v == nil {
		return []store.Feedback{}
	}
	return v
}

func orEmptyEvents(v []store.RegulationEvent) []store.RegulationEvent {
	if v == nil {
		return []store.RegulationEvent{}
	}
	return v
}

func orEmptyHistory(v []store.EventHistoryEntry) []store.EventHistoryEntry {
	if v == nil {
		return []store.EventHistoryEntry{}
	}
	return v
}
