package metadata

import (
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"query-gateway/internal/model"
)

const (
	defaultCacheSize = 256
	defaultCacheTTL  = 5 * time.Minute
)

// SchemaCache keeps the last introspected table list per data source. Cached
// slices are shared and must not be modified by callers.
type SchemaCache struct {
	cache  *lru.LRU[string, []model.TableDescriptor]
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

// NewSchemaCache creates a new schema cache
func NewSchemaCache(size int, ttl time.Duration) *SchemaCache {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return &SchemaCache{
		cache: lru.NewLRU[string, []model.TableDescriptor](size, nil, ttl),
		ttl:   ttl,
	}
}

// Get retrieves the cached tables for a data source
func (sc *SchemaCache) Get(dataSourceID string) ([]model.TableDescriptor, bool) {
	tables, ok := sc.cache.Get(dataSourceID)
	if ok {
		sc.hits.Add(1)
	} else {
		sc.misses.Add(1)
	}
	return tables, ok
}

// Set stores the tables for a data source
func (sc *SchemaCache) Set(dataSourceID string, tables []model.TableDescriptor) {
	sc.cache.Add(dataSourceID, tables)
}

// GetTable returns one cached table, matched ignoring case.
func (sc *SchemaCache) GetTable(dataSourceID, tableName string) (*model.TableDescriptor, bool) {
	tables, ok := sc.Get(dataSourceID)
	if !ok {
		return nil, false
	}
	return model.FindTable(tables, tableName)
}

// Invalidate drops the entry for a data source
func (sc *SchemaCache) Invalidate(dataSourceID string) {
	sc.cache.Remove(dataSourceID)
}

// Clear clears all cache entries
func (sc *SchemaCache) Clear() {
	sc.cache.Purge()
}

// GetStats returns cache statistics
func (sc *SchemaCache) GetStats() CacheStats {
	return CacheStats{
		Entries: sc.cache.Len(),
		Hits:    sc.hits.Load(),
		Misses:  sc.misses.Load(),
		TTL:     sc.ttl.String(),
	}
}

// CacheStats represents cache statistics
type CacheStats struct {
	Entries int    `json:"entries"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	TTL     string `json:"ttl"`
}
