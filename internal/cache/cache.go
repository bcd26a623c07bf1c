// Package cache implements the two-tier response cache: a bounded in-process
// map in front of a persistent SQLite table. The cache is strictly a
// performance layer; every persistent-store failure is logged and degrades to
// miss-like behavior so request handling is never blocked or failed by it.
//
// Lookup path: normalize → fingerprint → memory tier → persistent tier
// (expiry-filtered) → backfill memory + best-effort hit increment → miss.
// Write path: TTL selected by the query's category, persistent upsert that
// replaces the body and extends the expiry on conflict, then memory backfill.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-travel-backend/internal/domain"
	"github.com/tbourn/go-travel-backend/internal/repo"
)

var (
	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "response_cache_lookups_total",
			Help: "Cache lookups by outcome (memory_hit, store_hit, miss).",
		},
		[]string{"outcome"},
	)

	cacheStoreErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "response_cache_store_errors_total",
			Help: "Persistent-store failures absorbed by the cache.",
		},
	)
)

func init() {
	prometheus.MustRegister(cacheLookups, cacheStoreErrors)
}

// TTLPolicy selects how long an answer stays valid based on its category.
type TTLPolicy struct {
	Volatile time.Duration // weather, currency
	Price    time.Duration // price
	Default  time.Duration // everything else
}

// DefaultTTLPolicy mirrors the production defaults: volatile subjects turn
// over within the hour, prices daily-ish, everything else daily.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		Volatile: 30 * time.Minute,
		Price:    6 * time.Hour,
		Default:  24 * time.Hour,
	}
}

// For returns the TTL for a category.
func (p TTLPolicy) For(category string) time.Duration {
	switch category {
	case CategoryWeather, CategoryCurrency:
		return p.Volatile
	case CategoryPrice:
		return p.Price
	default:
		return p.Default
	}
}

// Metadata accompanies a Set call.
type Metadata struct {
	Category string // empty -> detected from the query
	City     string // optional destination tag for city invalidation
	Plan     string // plan tier, part of the fingerprint
}

// Hit is a successful lookup result.
type Hit struct {
	Response string
	Category string
}

// ResponseCache is the explicit cache object owned by the server and passed
// into request handlers. Safe for concurrent use.
type ResponseCache struct {
	db    *gorm.DB
	mem   *memoryStore
	ttl   TTLPolicy
	log   zerolog.Logger
	nowFn func() time.Time
}

// Options tune the cache; zero values fall back to defaults.
type Options struct {
	MemoryMax int           // max in-process entries (default 100)
	MemoryTTL time.Duration // local TTL of the in-process tier (default 5m)
	TTL       TTLPolicy     // persistent TTLs (default DefaultTTLPolicy)
}

// New constructs a ResponseCache over the given DB handle.
func New(db *gorm.DB, log zerolog.Logger, opts Options) *ResponseCache {
	ttl := opts.TTL
	if ttl.Volatile <= 0 && ttl.Price <= 0 && ttl.Default <= 0 {
		ttl = DefaultTTLPolicy()
	}
	return &ResponseCache{
		db:    db,
		mem:   newMemoryStore(opts.MemoryMax, opts.MemoryTTL),
		ttl:   ttl,
		log:   log.With().Str("component", "response_cache").Logger(),
		nowFn: time.Now,
	}
}

// Get looks up the answer for (query, plan). The boolean reports whether a
// hit was found; a false return is always safe to treat as "generate fresh".
func (c *ResponseCache) Get(ctx context.Context, query, plan string) (Hit, bool) {
	key := Fingerprint(plan, query)
	now := c.nowFn()

	if e, ok := c.mem.get(key, now); ok {
		cacheLookups.WithLabelValues("memory_hit").Inc()
		return Hit{Response: e.response, Category: e.category}, true
	}

	row, err := repo.FindValidAnswer(ctx, c.db, key, now)
	if err != nil {
		if err != repo.ErrNotFound {
			cacheStoreErrors.Inc()
			c.log.Warn().Err(err).Msg("cache store lookup failed; treating as miss")
		}
		cacheLookups.WithLabelValues("miss").Inc()
		return Hit{}, false
	}

	// Backfill the fast tier and count the hit. Neither may fail the lookup.
	c.mem.put(key, memoryEntry{response: row.Response, category: row.Category, storedAt: now})
	if err := repo.IncrementHits(ctx, c.db, key); err != nil {
		c.log.Debug().Err(err).Msg("hit counter increment failed")
	}

	cacheLookups.WithLabelValues("store_hit").Inc()
	return Hit{Response: row.Response, Category: row.Category}, true
}

// Set stores a freshly generated answer under the query's fingerprint.
// The persistent upsert replaces the body and extends the expiry when the
// fingerprint already exists. Store failures are absorbed: the in-process
// tier is still populated so at least this instance benefits.
func (c *ResponseCache) Set(ctx context.Context, query, response string, meta Metadata) {
	category := meta.Category
	if category == "" {
		category = DetectCategory(query)
	}
	key := Fingerprint(meta.Plan, query)
	now := c.nowFn()

	row := &domain.CachedAnswer{
		QueryHash:       key,
		QueryNormalized: Normalize(query),
		Response:        response,
		City:            strings.ToLower(strings.TrimSpace(meta.City)),
		Category:        category,
		ExpiresAt:       now.Add(c.ttl.For(category)),
	}
	if err := repo.UpsertAnswer(ctx, c.db, row); err != nil {
		cacheStoreErrors.Inc()
		c.log.Warn().Err(err).Str("category", category).Msg("cache store write failed")
	}

	c.mem.put(key, memoryEntry{response: response, category: category, storedAt: now})
}

// InvalidateCity deletes persistent rows tagged with city and clears the
// entire in-process tier. The memory wipe is intentionally coarse: the fast
// tier does not index by city, and an all-or-nothing clear is cheaper than
// being wrong.
func (c *ResponseCache) InvalidateCity(ctx context.Context, city string) int64 {
	n, err := repo.DeleteAnswersByCity(ctx, c.db, strings.ToLower(strings.TrimSpace(city)))
	if err != nil {
		cacheStoreErrors.Inc()
		c.log.Warn().Err(err).Str("city", city).Msg("city invalidation failed")
	}
	c.mem.clear()
	return n
}

// Cleanup deletes expired persistent rows. Independent of the in-process
// tier, which ages out on its own local TTL. Returns rows removed.
func (c *ResponseCache) Cleanup(ctx context.Context) int64 {
	n, err := repo.DeleteExpiredAnswers(ctx, c.db, c.nowFn())
	if err != nil {
		cacheStoreErrors.Inc()
		c.log.Warn().Err(err).Msg("expired-row sweep failed")
		return 0
	}
	if n > 0 {
		c.log.Info().Int64("rows", n).Msg("swept expired cache rows")
	}
	return n
}

// MemoryLen reports the size of the in-process tier, for stats and tests.
func (c *ResponseCache) MemoryLen() int { return c.mem.len() }
