package vulndb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sbomrisk/api/schemas"
	"github.com/xkilldash9x/sbomrisk/internal/observability"
)

// DefaultCacheTTL is how long a lookup result stays fresh.
const DefaultCacheTTL = 24 * time.Hour

// Cache stores lookup results by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]schemas.VulnerabilityRecord, bool, error)
	Set(ctx context.Context, key string, records []schemas.VulnerabilityRecord) error
}

// BadgerCache is a Cache backed by an embedded badger database. Entries
// expire through badger's own TTL support.
type BadgerCache struct {
	db  *badger.DB
	ttl time.Duration
}

var _ Cache = (*BadgerCache)(nil)

// cacheEntry is the stored value. An empty Records slice is a valid, cached
// "nothing found".
type cacheEntry struct {
	StoredAt time.Time                     `json:"stored_at"`
	Records  []schemas.VulnerabilityRecord `json:"records"`
}

// zapBadgerLogger adapts a zap logger to badger's Logger interface.
type zapBadgerLogger struct {
	s *zap.SugaredLogger
}

func (l zapBadgerLogger) Errorf(format string, args ...interface{})   { l.s.Errorf(format, args...) }
func (l zapBadgerLogger) Warningf(format string, args ...interface{}) { l.s.Warnf(format, args...) }
func (l zapBadgerLogger) Infof(format string, args ...interface{})    { l.s.Debugf(format, args...) }
func (l zapBadgerLogger) Debugf(format string, args ...interface{})   { l.s.Debugf(format, args...) }

// OpenBadgerCache opens (creating if needed) a cache in dir. An empty dir
// opens an in-memory cache, which is what tests use.
func OpenBadgerCache(dir string, ttl time.Duration, logger *zap.Logger) (*BadgerCache, error) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", dir, err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithNumVersionsToKeep(1)
	if logger != nil {
		opts = opts.WithLogger(zapBadgerLogger{s: logger.Named("badger").Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return &BadgerCache{db: db, ttl: ttl}, nil
}

// Get returns the cached records for key. found is false on a miss or an
// expired entry.
func (c *BadgerCache) Get(_ context.Context, key string) ([]schemas.VulnerabilityRecord, bool, error) {
	var entry cacheEntry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache key %s: %w", key, err)
	}
	return entry.Records, true, nil
}

// Set stores records under key with the cache TTL.
func (c *BadgerCache) Set(_ context.Context, key string, records []schemas.VulnerabilityRecord) error {
	if records == nil {
		records = []schemas.VulnerabilityRecord{}
	}
	data, err := json.Marshal(cacheEntry{StoredAt: time.Now().UTC(), Records: records})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), data).WithTTL(c.ttl))
	})
}

// Close releases the database.
func (c *BadgerCache) Close() error {
	return c.db.Close()
}

// CachedSource decorates a VulnerabilitySource with a Cache. Failed lookups
// are never cached, so a transient outage does not hide data for a day.
type CachedSource struct {
	next    schemas.VulnerabilitySource
	cache   Cache
	metrics *observability.Metrics
	logger  *zap.Logger
}

var _ schemas.VulnerabilitySource = (*CachedSource)(nil)

// NewCachedSource wraps next. metrics and logger may be nil.
func NewCachedSource(next schemas.VulnerabilitySource, cache Cache, metrics *observability.Metrics, logger *zap.Logger) *CachedSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	return &CachedSource{next: next, cache: cache, metrics: metrics, logger: logger.Named("vulncache")}
}

// CacheKey is the key a query is stored under. Results depend only on the
// searched name, so version is not part of it.
func CacheKey(q schemas.VulnerabilityQuery) string {
	return fmt.Sprintf("vuln:%s:%s", q.Ecosystem, strings.ToLower(strings.TrimSpace(q.Name)))
}

// Lookup serves from the cache when it can and fills it otherwise.
func (s *CachedSource) Lookup(ctx context.Context, q schemas.VulnerabilityQuery) ([]schemas.VulnerabilityRecord, error) {
	if strings.TrimSpace(q.Name) == "" || strings.TrimSpace(q.Version) == "" {
		return nil, nil
	}
	key := CacheKey(q)

	records, found, err := s.cache.Get(ctx, key)
	if err != nil {
		// A broken cache degrades to a direct lookup.
		s.logger.Warn("Cache read failed, querying source directly.", zap.String("key", key), zap.Error(err))
	} else if found {
		s.metrics.CacheLookups.WithLabelValues(observability.OutcomeHit).Inc()
		return records, nil
	}
	s.metrics.CacheLookups.WithLabelValues(observability.OutcomeMiss).Inc()

	records, err = s.next.Lookup(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, records); err != nil {
		s.logger.Warn("Could not write cache entry.", zap.String("key", key), zap.Error(err))
	}
	return records, nil
}
