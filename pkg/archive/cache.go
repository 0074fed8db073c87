package archive

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ubcspin/REMO1-dataProcessing/pkg/types"
)

// QueryCache implements an LRU cache with TTL for query results
type QueryCache struct {
	capacity int
	ttl      time.Duration
	mu       sync.Mutex
	cache    map[string]*cacheEntry
	lru      *list.List
}

// cacheEntry represents a cached query result
type cacheEntry struct {
	key       string
	result    *types.QueryResult
	timestamp time.Time
	element   *list.Element
}

// NewQueryCache creates a query cache
func NewQueryCache(capacity int, ttl time.Duration) *QueryCache {
	return &QueryCache{
		capacity: capacity,
		ttl:      ttl,
		cache:    make(map[string]*cacheEntry),
		lru:      list.New(),
	}
}

// Get retrieves a cached query result
func (qc *QueryCache) Get(req *types.QueryRequest) (*types.QueryResult, bool) {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	key := qc.generateKey(req)
	entry, exists := qc.cache[key]
	if !exists {
		return nil, false
	}

	if time.Since(entry.timestamp) > qc.ttl {
		qc.removeLocked(key)
		return nil, false
	}

	qc.lru.MoveToFront(entry.element)
	return entry.result, true
}

// Put stores a query result in the cache
func (qc *QueryCache) Put(req *types.QueryRequest, result *types.QueryResult) {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	key := qc.generateKey(req)

	if entry, exists := qc.cache[key]; exists {
		entry.result = result
		entry.timestamp = time.Now()
		qc.lru.MoveToFront(entry.element)
		return
	}

	entry := &cacheEntry{
		key:       key,
		result:    result,
		timestamp: time.Now(),
	}
	entry.element = qc.lru.PushFront(entry)
	qc.cache[key] = entry

	if qc.lru.Len() > qc.capacity {
		oldest := qc.lru.Back()
		if oldest != nil {
			qc.removeLocked(oldest.Value.(*cacheEntry).key)
		}
	}
}

// removeLocked removes an entry; caller must hold the lock
func (qc *QueryCache) removeLocked(key string) {
	if entry, exists := qc.cache[key]; exists {
		qc.lru.Remove(entry.element)
		delete(qc.cache, key)
	}
}

// Clear drops all cache entries
func (qc *QueryCache) Clear() {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	qc.cache = make(map[string]*cacheEntry)
	qc.lru = list.New()
}

// Size returns the current cache size
func (qc *QueryCache) Size() int {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	return len(qc.cache)
}

// generateKey builds a deterministic cache key for a query
func (qc *QueryCache) generateKey(req *types.QueryRequest) string {
	data, _ := json.Marshal(map[string]interface{}{
		"selectors": req.Selectors,
		"start":     req.StartTime,
		"end":       req.EndTime,
	})
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}

// CachedArchive wraps an archive with query caching
type CachedArchive struct {
	archive Archive
	cache   *QueryCache
	mu      sync.RWMutex
	hits    uint64
	misses  uint64
}

// NewCachedArchive wraps an archive with an LRU query cache
func NewCachedArchive(archive Archive, cacheCapacity int, cacheTTL time.Duration) *CachedArchive {
	return &CachedArchive{
		archive: archive,
		cache:   NewQueryCache(cacheCapacity, cacheTTL),
	}
}

// Store passes through to the underlying archive and invalidates the cache
func (ca *CachedArchive) Store(ctx context.Context, entry *types.ArchiveEntry) error {
	ca.cache.Clear()
	return ca.archive.Store(ctx, entry)
}

// Get passes through to the underlying archive
func (ca *CachedArchive) Get(ctx context.Context, id string) (*types.ArchiveEntry, error) {
	return ca.archive.Get(ctx, id)
}

// Query checks the cache before querying the archive
func (ca *CachedArchive) Query(ctx context.Context, req *types.QueryRequest) (*types.QueryResult, error) {
	if result, ok := ca.cache.Get(req); ok {
		ca.mu.Lock()
		ca.hits++
		ca.mu.Unlock()
		return result, nil
	}

	ca.mu.Lock()
	ca.misses++
	ca.mu.Unlock()

	result, err := ca.archive.Query(ctx, req)
	if err != nil {
		return nil, err
	}

	ca.cache.Put(req, result)
	return result, nil
}

// Close closes the underlying archive
func (ca *CachedArchive) Close() error {
	return ca.archive.Close()
}

// HitRate returns the cache hit rate as a percentage
func (ca *CachedArchive) HitRate() float64 {
	ca.mu.RLock()
	defer ca.mu.RUnlock()

	total := ca.hits + ca.misses
	if total == 0 {
		return 0.0
	}
	return float64(ca.hits) / float64(total) * 100.0
}
