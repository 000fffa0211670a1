package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/sreinvestigator/investigator/pkg/tool"
)

// defaultTTL is used for tools without a specific override.
const defaultTTL = 300 * time.Second

// DefaultTTLs mirrors the teacher/spec's representative per-tool-class
// TTL overrides: observability tools churn fast, knowledge is stable,
// container state is near-instantaneous.
var DefaultTTLs = map[string]time.Duration{
	"observability": 60 * time.Second,
	"knowledge":     300 * time.Second,
	"container":     30 * time.Second,
}

// entry is one cached value plus its bookkeeping.
type entry struct {
	key       string
	toolName  string
	value     *tool.Result
	storedAt  time.Time
	ttl       time.Duration
}

func (e *entry) expired(now time.Time) bool { return now.Sub(e.storedAt) > e.ttl }

// Stats reports cumulative cache performance counters.
type Stats struct {
	Hits      int
	Misses    int
	Size      int
	Evictions int
}

// HitRate returns Hits / (Hits + Misses), or 0 if there have been no lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache is a bounded LRU over (tool, canonical-args) results.
type Cache struct {
	mu sync.Mutex

	maxSize int
	ttlFor  func(toolName string) time.Duration

	ll    *list.List // front = most recently used
	items map[string]*list.Element

	hits, misses, evictions int
}

// Config configures a Cache.
type Config struct {
	MaxSize int
	// TTLFor resolves a per-tool TTL override. nil uses DefaultTTLs,
	// falling back to defaultTTL for unmatched tool names; a zero or
	// negative duration from a non-nil TTLFor also falls back to
	// defaultTTL.
	TTLFor func(toolName string) time.Duration
}

// New creates a Cache. A zero-value MaxSize defaults to 100.
func New(cfg Config) *Cache {
	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = 100
	}
	ttlFor := cfg.TTLFor
	if ttlFor == nil {
		ttlFor = func(toolName string) time.Duration {
			if d, ok := DefaultTTLs[toolName]; ok {
				return d
			}
			return defaultTTL
		}
	} else {
		override := cfg.TTLFor
		ttlFor = func(toolName string) time.Duration {
			if d := override(toolName); d > 0 {
				return d
			}
			return defaultTTL
		}
	}
	return &Cache{
		maxSize: maxSize,
		ttlFor:  ttlFor,
		ll:      list.New(),
		items:   make(map[string]*list.Element),
	}
}

// Get looks up a cached result for (toolName, args). Non-cacheable tools
// always miss. Expired entries are evicted and treated as a miss.
func (c *Cache) Get(toolName string, args map[string]any) (*tool.Result, bool) {
	if tool.IsNonCacheable(toolName) {
		return nil, false
	}
	key := Key(toolName, args)

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	e := el.Value.(*entry)
	if e.expired(time.Now()) {
		c.removeElement(el)
		c.misses++
		return nil, false
	}
	c.ll.MoveToFront(el)
	c.hits++
	return e.value, true
}

// Set stores a result for (toolName, args). Non-cacheable tools, nil
// results, and results carrying a tool-level error are never stored.
func (c *Cache) Set(toolName string, args map[string]any, result *tool.Result) {
	if tool.IsNonCacheable(toolName) {
		return
	}
	if result == nil || result.IsError() {
		return
	}
	key := Key(toolName, args)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry)
		e.value = result
		e.storedAt = time.Now()
		e.ttl = c.ttlFor(toolName)
		c.ll.MoveToFront(el)
		return
	}

	e := &entry{key: key, toolName: toolName, value: result, storedAt: time.Now(), ttl: c.ttlFor(toolName)}
	el := c.ll.PushFront(e)
	c.items[key] = el

	if c.ll.Len() > c.maxSize {
		oldest := c.ll.Back()
		if oldest != nil {
			c.removeElement(oldest)
			c.evictions++
		}
	}
}

// removeElement must be called with c.mu held.
func (c *Cache) removeElement(el *list.Element) {
	c.ll.Remove(el)
	e := el.Value.(*entry)
	delete(c.items, e.key)
}

// Invalidate clears the whole cache.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element)
}

// InvalidateTool clears every entry for a given tool name.
func (c *Cache) InvalidateTool(toolName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, el := range c.items {
		if el.Value.(*entry).toolName == toolName {
			c.ll.Remove(el)
			delete(c.items, key)
		}
	}
}

// InvalidateMatching clears every entry whose key matches pred.
func (c *Cache) InvalidateMatching(pred func(toolName string, args string) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, el := range c.items {
		e := el.Value.(*entry)
		if pred(e.toolName, key) {
			c.ll.Remove(el)
			delete(c.items, key)
		}
	}
}

// Stats returns a snapshot of cache performance counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Size: c.ll.Len(), Evictions: c.evictions}
}
