package rankcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"braacket-bot/internal/components/assert"
	"braacket-bot/internal/components/chrono"
	"braacket-bot/internal/components/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("braacket.rankcache")

const (
	report_cache_persist = "cache.persist"
	report_cache_size    = "cache.size"
)

// Fetcher scrapes the player at the rank behind a key.
type Fetcher func(ctx context.Context) (Entry, error)

// LossFetcher scrapes the loss history of a cached player.
type LossFetcher func(ctx context.Context, entry Entry) (Losses, error)

// Cache owns every cached rank. Reads never touch the network, misses are filled through
// the fetchers given to GetOrFetch and GetOrFetchLosses with one in-flight fetch per key.
type Cache struct {
	store  SnapshotStore
	clock  chrono.API
	tel    telemetry.API
	expiry time.Duration

	mutex   sync.RWMutex
	entries map[string]Entry

	// serializes snapshot writes, the snapshot is taken while holding it so the last
	// write always carries the latest state
	writeMutex sync.Mutex
	group      singleflight.Group

	hits   metric.Int64Counter
	misses metric.Int64Counter
}

// New creates a cache and loads the existing snapshot from `store`. `expiry` is the
// default staleness window used by the batch jobs and the ranking service.
func New(ctx context.Context, store SnapshotStore, clock chrono.API, tel telemetry.API, expiry time.Duration) (*Cache, error) {
	assert.NotNil(store)
	assert.NotNil(clock)
	assert.NotNil(tel)
	assert.Positive("expiry", expiry)

	meter := otel.Meter("braacket.rankcache")
	hits, err := meter.Int64Counter("cache_hits")
	if err != nil {
		return nil, err
	}
	misses, err := meter.Int64Counter("cache_misses")
	if err != nil {
		return nil, err
	}

	c := &Cache{
		store:   store,
		clock:   clock,
		tel:     telemetry.NewScopedAPI("rankcache", tel),
		expiry:  expiry,
		entries: map[string]Entry{},
		hits:    hits,
		misses:  misses,
	}
	err = c.Reload(ctx)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cache) Expiry() time.Duration {
	return c.expiry
}

func (c *Cache) Now() time.Time {
	return c.clock.Now()
}

// Get is a pure read, stale entries are returned as well.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	entry, ok := c.entries[key]
	return entry, ok
}

// Entries returns a copy of every cached entry.
func (c *Cache) Entries() map[string]Entry {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return copyEntries(c.entries)
}

func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}

// Put stores an entry and persists the snapshot. An entry without a timestamp is stamped
// with the current time.
func (c *Cache) Put(ctx context.Context, key string, entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = c.clock.Now()
	}
	c.mutex.Lock()
	c.entries[key] = entry
	c.mutex.Unlock()

	return c.Persist(ctx)
}

// InvalidateAll drops every entry and persists the now empty snapshot.
func (c *Cache) InvalidateAll(ctx context.Context) error {
	c.mutex.Lock()
	c.entries = map[string]Entry{}
	c.mutex.Unlock()

	return c.Persist(ctx)
}

// Persist writes the whole cache to the snapshot store.
func (c *Cache) Persist(ctx context.Context) error {
	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()

	snapshot := c.Entries()
	err := c.store.Write(ctx, snapshot)
	if err != nil {
		return err
	}
	c.tel.ReportCount(report_cache_size, int64(len(snapshot)))
	return nil
}

// Reload replaces the in-memory state with the persisted snapshot.
func (c *Cache) Reload(ctx context.Context) error {
	entries, err := c.store.Read(ctx)
	if err != nil {
		return err
	}
	c.mutex.Lock()
	c.entries = entries
	c.mutex.Unlock()
	return nil
}

func (c *Cache) validFor(entry Entry, source string) bool {
	return source == "" || entry.Source == "" || entry.Source == source
}

// GetOrFetch returns the entry at `key` if it was captured less than `expiry` ago from
// `source` (an empty source matches any). Otherwise `fetch` is called, its result is
// stored and returned. Concurrent calls for the same key share a single fetch.
func (c *Cache) GetOrFetch(ctx context.Context, key, source string, expiry time.Duration, fetch Fetcher) (Entry, error) {
	entry, ok := c.Get(key)
	if ok && c.validFor(entry, source) && fresh(entry.Timestamp, c.clock.Now(), expiry) {
		c.hits.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "player")))
		return entry, nil
	}
	c.misses.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "player")))

	result, err, _ := c.group.Do("player:"+key+"@"+source, func() (any, error) {
		ctx, span := tracer.Start(ctx, "cache:GetOrFetch")
		defer span.End()
		span.SetAttributes(attribute.String("key", key))

		// another caller may have filled the key while this one waited
		prev, ok := c.Get(key)
		if ok && c.validFor(prev, source) && fresh(prev.Timestamp, c.clock.Now(), expiry) {
			return prev, nil
		}

		fetched, err := fetch(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "fetch failed")
			return Entry{}, err
		}
		fetched.Timestamp = c.clock.Now()
		if source != "" {
			fetched.Source = source
		}
		fetched = fetched.carryLosses(prev)

		c.putFetched(ctx, key, fetched)
		return fetched, nil
	})
	if err != nil {
		return Entry{}, err
	}
	return result.(Entry), nil
}

// GetOrFetchLosses is GetOrFetch for the loss history of an entry that is already cached.
func (c *Cache) GetOrFetchLosses(ctx context.Context, key string, expiry time.Duration, fetch LossFetcher) (Entry, error) {
	entry, ok := c.Get(key)
	if !ok {
		return Entry{}, fmt.Errorf("rankcache: %s is not cached", key)
	}
	if entry.HasLosses() && fresh(*entry.LossesTimestamp, c.clock.Now(), expiry) {
		c.hits.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "losses")))
		return entry, nil
	}
	c.misses.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "losses")))

	result, err, _ := c.group.Do("losses:"+key+"@"+entry.PlayerData, func() (any, error) {
		ctx, span := tracer.Start(ctx, "cache:GetOrFetchLosses")
		defer span.End()
		span.SetAttributes(attribute.String("key", key))

		current, ok := c.Get(key)
		if !ok {
			current = entry
		}
		if current.HasLosses() && fresh(*current.LossesTimestamp, c.clock.Now(), expiry) {
			return current, nil
		}

		losses, err := fetch(ctx, current)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "fetch failed")
			return Entry{}, err
		}
		updated := current.WithLosses(losses, c.clock.Now())

		c.putFetched(ctx, key, updated)
		return updated, nil
	})
	if err != nil {
		return Entry{}, err
	}
	return result.(Entry), nil
}

// putFetched puts an entry fetched on demand, failing to persist it is reported but does not
// fail the read since the entry is still served from memory.
func (c *Cache) putFetched(ctx context.Context, key string, entry Entry) {
	err := c.Put(ctx, key, entry)
	if err != nil {
		c.tel.ReportBroken(report_cache_persist, err, key)
	}
}
