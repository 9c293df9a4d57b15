package priority

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/p-n-ai/pai-study/internal/platform/cache"
)

// Cache stores ranked recommendations per student under a version number.
// Get reports the version current at the time of the read; Set stores under
// that version, so a ranking computed while Invalidate bumped the version is
// never served. Invalidate must make every previously stored entry of the
// student unreachable.
type Cache interface {
	Get(ctx context.Context, studentID, key string) (recs []Recommendation, version int64, ok bool, err error)
	Set(ctx context.Context, studentID string, version int64, key string, recs []Recommendation) error
	Invalidate(ctx context.Context, studentID string) error
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string, string) ([]Recommendation, int64, bool, error) {
	return nil, 0, false, nil
}
func (NopCache) Set(context.Context, string, int64, string, []Recommendation) error { return nil }
func (NopCache) Invalidate(context.Context, string) error                         { return nil }

// RedisCache keeps recommendations in Redis under a per-student version
// number. Bumping the version orphans older entries, which then expire by TTL.
type RedisCache struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewRedisCache creates a Redis-backed recommendation cache.
func NewRedisCache(c *cache.Cache, ttl time.Duration) *RedisCache {
	return &RedisCache{cache: c, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, studentID, key string) ([]Recommendation, int64, bool, error) {
	v, err := c.cache.Counter(ctx, versionKey(studentID))
	if err != nil {
		return nil, 0, false, err
	}
	var recs []Recommendation
	ok, err := c.cache.GetJSON(ctx, entryKey(studentID, v, key), &recs)
	if err != nil || !ok {
		return nil, v, false, err
	}
	return recs, v, true, nil
}

// Set writes under the given version. An entry written after Invalidate
// lands under the old version and is never read.
func (c *RedisCache) Set(ctx context.Context, studentID string, version int64, key string, recs []Recommendation) error {
	return c.cache.SetJSON(ctx, entryKey(studentID, version, key), recs, c.ttl)
}

func (c *RedisCache) Invalidate(ctx context.Context, studentID string) error {
	_, err := c.cache.IncrBy(ctx, versionKey(studentID), 1, 0)
	return err
}

func versionKey(studentID string) string {
	return cache.Key("reco", studentID, "version")
}

func entryKey(studentID string, version int64, key string) string {
	return cache.Key("reco", studentID, strconv.FormatInt(version, 10), key)
}

// MemoryCache is an in-process Cache for tests and single-instance runs.
type MemoryCache struct {
	mu       sync.Mutex
	versions map[string]int64
	entries  map[string]map[string][]Recommendation
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		versions: make(map[string]int64),
		entries:  make(map[string]map[string][]Recommendation),
	}
}

func (c *MemoryCache) Get(_ context.Context, studentID, key string) ([]Recommendation, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	recs, ok := c.entries[studentID][key]
	return slices.Clone(recs), c.versions[studentID], ok, nil
}

// Set drops the entry when the student was invalidated since version was
// read.
func (c *MemoryCache) Set(_ context.Context, studentID string, version int64, key string, recs []Recommendation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if version != c.versions[studentID] {
		return nil
	}
	if c.entries[studentID] == nil {
		c.entries[studentID] = make(map[string][]Recommendation)
	}
	c.entries[studentID][key] = slices.Clone(recs)
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, studentID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[studentID]++
	delete(c.entries, studentID)
	return nil
}
