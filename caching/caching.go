/*
[AI GENERATED - GOVERNANCE PROTOCOL]
──────────────────────────────────────────────────────────────
Model:       Claude Opus 4.6
Tier:        L3
Logic:       TTL response cache for the brief payload.
             Redis-backed when configured, in-memory otherwise;
             invalidated wholesale after any write that changes
             the law graph. Law list and law detail reads are
             not cached.
Root Cause:  Sprint task T225 — Read-path caching.
Context:     The brief is recomputed from two derived tables on
             every dashboard load; a short TTL plus explicit
             invalidation keeps it cheap without serving stale
             data across crawl runs.
Suitability: L3 — cache correctness via invalidate-on-write.
──────────────────────────────────────────────────────────────
*/

package caching

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jnyross/regintel/redisclient"
)

const keyPrefix = "regintel:cache:"

// Engine is the read cache. A nil redis client means in-memory only.
type Engine struct {
	logger zerolog.Logger
	redis  *redisclient.Client
	ttl    time.Duration

	mu      sync.RWMutex
	entries map[string]entry
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// New builds an Engine. redis may be nil.
func New(logger zerolog.Logger, redis *redisclient.Client, ttl time.Duration) *Engine {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &Engine{
		logger:  logger,
		redis:   redis,
		ttl:     ttl,
		entries: make(map[string]entry),
	}
}

// Get returns a cached payload, or nil on miss. Redis errors degrade to a
// miss.
func (e *Engine) Get(ctx context.Context, key string) []byte {
	if e.redis != nil {
		v, err := e.redis.Get(ctx, keyPrefix+key)
		if err != nil {
			e.logger.Debug().Err(err).Str("key", key).Msg("cache read failed — treating as miss")
			return nil
		}
		if v == "" {
			return nil
		}
		return []byte(v)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	ent, ok := e.entries[key]
	if !ok || time.Now().After(ent.expiresAt) {
		return nil
	}
	return ent.value
}

// Set stores a payload under the engine TTL. Failures are logged and
// swallowed; the cache is never load-bearing.
func (e *Engine) Set(ctx context.Context, key string, value []byte) {
	if e.redis != nil {
		if err := e.redis.Set(ctx, keyPrefix+key, string(value), e.ttl); err != nil {
			e.logger.Debug().Err(err).Str("key", key).Msg("cache write failed")
		}
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries[key] = entry{value: value, expiresAt: time.Now().Add(e.ttl)}
}

// Invalidate drops every cached payload. Called after crawl completion,
// backfill, and manual event edits.
func (e *Engine) Invalidate(ctx context.Context) {
	if e.redis != nil {
		if err := e.redis.DeletePrefix(ctx, keyPrefix); err != nil {
			e.logger.Warn().Err(err).Msg("cache invalidation failed")
		}
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = make(map[string]entry)
}
