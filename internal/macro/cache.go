package macro

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Cache is a single-writer/many-reader TTL cache in front of a set of
// Sources, with coalesced refreshes and stale-preferred reads (§5).
type Cache struct {
	sources map[string]Source
	ttl     time.Duration
	limiter *rate.Limiter

	mu        sync.Mutex
	entries   map[string]Summary
	refreshing map[string]bool

	backend backend
}

// backend is the storage side of the cache: in-process map by default,
// or Redis when REDIS_ADDR is set, mirroring the teacher's NewAuto
// pattern for the trades/klines cache.
type backend interface {
	get(ctx context.Context, key string) (Summary, bool)
	set(ctx context.Context, key string, s Summary, ttl time.Duration)
}

// NewCache builds a cache over the given sources. ttl controls freshness;
// minInterval paces background refresh calls (§5 recommends ~13s between
// free-tier requests).
func NewCache(sources []Source, ttl time.Duration, minInterval time.Duration) *Cache {
	byName := make(map[string]Source, len(sources))
	for _, s := range sources {
		byName[s.Name()] = s
	}
	c := &Cache{
		sources:    byName,
		ttl:        ttl,
		limiter:    rate.NewLimiter(rate.Every(minInterval), 1),
		entries:    make(map[string]Summary),
		refreshing: make(map[string]bool),
		backend:    newBackend(),
	}
	return c
}

func newBackend() backend {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return &redisBackend{client: redis.NewClient(&redis.Options{Addr: addr})}
	}
	return &memoryBackend{}
}

// Names returns every configured source name, for callers that want to
// sweep the whole cache (e.g. the scheduler's per-cycle staleness gauge).
func (c *Cache) Names() []string {
	names := make([]string, 0, len(c.sources))
	for name := range c.sources {
		names = append(names, name)
	}
	return names
}

// Get returns the cached summary for source, triggering a coalesced
// background refresh if the entry is absent or past its TTL. It never
// waits on a source refresh: a stale or missing entry is returned
// immediately while refresh proceeds async (§5 "always prefers the
// on-disk stale cache over a blocking refresh"). The one synchronous call
// is the backend lookup, which with the Redis backend is a network round
// trip bounded at 500ms.
func (c *Cache) Get(ctx context.Context, sourceName string) Summary {
	c.mu.Lock()
	cur, ok := c.entries[sourceName]
	fresh := ok && time.Since(cur.AsOf) < c.ttl
	alreadyRefreshing := c.refreshing[sourceName]
	if !fresh && !alreadyRefreshing {
		c.refreshing[sourceName] = true
	}
	c.mu.Unlock()

	if cached, found := c.backend.get(ctx, sourceName); found && !ok {
		cur, ok = cached, true
	}

	if !fresh && !alreadyRefreshing {
		go c.refresh(sourceName)
	}

	if !ok {
		return emptyStale(sourceName)
	}
	cur.Stale = !fresh
	return cur
}

func (c *Cache) refresh(sourceName string) {
	defer func() {
		c.mu.Lock()
		c.refreshing[sourceName] = false
		c.mu.Unlock()
	}()

	src, ok := c.sources[sourceName]
	if !ok {
		return
	}
	if err := c.limiter.Wait(context.Background()); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	summary, err := src.FetchSummary(ctx)
	if err != nil {
		log.Warn().Str("source", sourceName).Err(err).Msg("macro: refresh failed, keeping stale cache")
		return
	}
	summary.AsOf = time.Now()
	summary.Stale = false

	c.mu.Lock()
	c.entries[sourceName] = summary
	c.mu.Unlock()
	c.backend.set(context.Background(), sourceName, summary, c.ttl)
}

type memoryBackend struct {
	mu sync.Mutex
	m  map[string]Summary
}

func (b *memoryBackend) get(_ context.Context, key string) (Summary, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.m[key]
	return s, ok
}

func (b *memoryBackend) set(_ context.Context, key string, s Summary, _ time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.m == nil {
		b.m = make(map[string]Summary)
	}
	b.m[key] = s
}

type redisBackend struct {
	client *redis.Client
}

func (b *redisBackend) get(ctx context.Context, key string) (Summary, bool) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	raw, err := b.client.Get(ctx, "macro:"+key).Bytes()
	if err != nil {
		return Summary{}, false
	}
	var s Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		return Summary{}, false
	}
	return s, true
}

func (b *redisBackend) set(ctx context.Context, key string, s Summary, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	_ = b.client.Set(ctx, "macro:"+key, data, ttl).Err()
}
