package scoring

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/couchcryptid/solar-forecast-etl/internal/domain"
	"github.com/couchcryptid/solar-forecast-etl/internal/forecast"
	"github.com/couchcryptid/solar-forecast-etl/internal/observability"
)

// CachedModel wraps a Model with an in-memory LRU cache keyed by feature
// vector. Only vectors missing from the cache are sent to the inner model.
type CachedModel struct {
	inner   forecast.Model
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedModel creates a cache decorator around a model.
func NewCachedModel(inner forecast.Model, maxEntries int, metrics *observability.Metrics) *CachedModel {
	return &CachedModel{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedModel) Predict(ctx context.Context, columns []string, vectors []domain.Vector) ([]float64, error) {
	out := make([]float64, len(vectors))
	keys := make([]string, len(vectors))

	var missIdx []int
	var missVectors []domain.Vector
	pending := make(map[string][]int)
	for i, vec := range vectors {
		keys[i] = vectorKey(vec)
		if v, ok := c.cache.get(keys[i]); ok {
			out[i] = v
			c.metrics.ScoringCache.WithLabelValues("hit").Inc()
			continue
		}
		c.metrics.ScoringCache.WithLabelValues("miss").Inc()
		// Identical vectors in one request are scored once.
		if idx, seen := pending[keys[i]]; seen {
			pending[keys[i]] = append(idx, i)
			continue
		}
		pending[keys[i]] = []int{i}
		missIdx = append(missIdx, i)
		missVectors = append(missVectors, vec)
	}

	if len(missVectors) == 0 {
		return out, nil
	}

	predictions, err := c.inner.Predict(ctx, columns, missVectors)
	if err != nil {
		return nil, err
	}

	for j, i := range missIdx {
		v := predictions[j]
		for _, k := range pending[keys[i]] {
			out[k] = v
		}
		// Null predictions are not cached so they can be retried.
		if !math.IsNaN(v) {
			c.cache.put(keys[i], v)
		}
	}
	return out, nil
}

// vectorKey renders a vector with full float precision; NaN renders as "NaN".
func vectorKey(vec domain.Vector) string {
	var b strings.Builder
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	return b.String()
}

// lruCache is a simple thread-safe LRU cache of predictions.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value float64
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
