package exprcond

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/expr-lang/expr/vm"
)

// DefaultCacheSize is the default maximum number of entries in the program
// cache shared by conditions and scorers that do not specify their own.
const DefaultCacheSize = 1000

var programs = NewCache(DefaultCacheSize)

// SetCacheSize resizes the shared program cache. Sizes less than 1 are
// treated as 1.
func SetCacheSize(size int) { programs.Resize(size) }

// ClearCache removes every entry from the shared program cache.
func ClearCache() { programs.Clear() }

// Cache is a thread-safe LRU cache for compiled expr programs, keyed by the
// result type and the expression source.
type Cache struct {
	mu        sync.Mutex
	entries   map[cacheKey]*list.Element
	lru       *list.List
	maxSize   int
	hitCount  int64
	missCount int64
}

type cacheKey struct {
	kind       resultKind
	expression string
}

type cacheEntry struct {
	key     cacheKey
	program *vm.Program
}

// NewCache returns an empty cache holding at most maxSize programs. A
// maxSize less than 1 selects DefaultCacheSize.
func NewCache(maxSize int) *Cache {
	if maxSize < 1 {
		maxSize = DefaultCacheSize
	}
	return &Cache{
		entries: make(map[cacheKey]*list.Element),
		lru:     list.New(),
		maxSize: maxSize,
	}
}

func (c *Cache) get(key cacheKey) (*vm.Program, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key]
	if !ok {
		c.missCount++
		return nil, false
	}
	c.hitCount++
	c.lru.MoveToFront(elem)
	return elem.Value.(*cacheEntry).program, true
}

func (c *Cache) put(key cacheKey, program *vm.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).program = program
		return
	}
	c.entries[key] = c.lru.PushFront(&cacheEntry{key: key, program: program})
	c.evict()
}

// evict drops least recently used entries until within capacity. The caller
// must hold the lock.
func (c *Cache) evict() {
	for c.lru.Len() > c.maxSize {
		elem := c.lru.Back()
		delete(c.entries, elem.Value.(*cacheEntry).key)
		c.lru.Remove(elem)
	}
}

// Resize changes the capacity of the cache, evicting immediately if
// necessary.
func (c *Cache) Resize(maxSize int) {
	if maxSize < 1 {
		maxSize = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxSize = maxSize
	c.evict()
}

// Clear removes all entries, retaining the statistics.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	c.lru.Init()
}

// Len returns the number of cached programs.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns the current size, hit and miss counts, and hit ratio.
func (c *Cache) Stats() (size int, hits, misses int64, ratio float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if total := c.hitCount + c.missCount; total > 0 {
		ratio = float64(c.hitCount) / float64(total)
	}
	return c.lru.Len(), c.hitCount, c.missCount, ratio
}

func (c *Cache) String() string {
	size, hits, misses, ratio := c.Stats()
	return fmt.Sprintf("exprcond.Cache{size=%d, hits=%d, misses=%d, hit_ratio=%.2f%%}",
		size, hits, misses, ratio*100)
}
