// internal/browser/dom/cache.go
package dom

import (
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/net/html"
)

// DefaultCacheSize is the number of descriptors a Finder remembers.
const DefaultCacheSize = 500

// CacheStats reports cache occupancy.
type CacheStats struct {
	Size    int `json:"size"`
	MaxSize int `json:"maxSize"`
}

// resolutionCache maps descriptors to the node they last resolved to.
// Eviction is first-in first-out: a hit does not refresh an entry's position.
type resolutionCache struct {
	mu      sync.Mutex
	entries *orderedmap.OrderedMap[string, *html.Node]
	maxSize int
}

func newResolutionCache(maxSize int) *resolutionCache {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	return &resolutionCache{
		entries: orderedmap.New[string, *html.Node](),
		maxSize: maxSize,
	}
}

func (c *resolutionCache) get(key string) (*html.Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Get(key)
}

// put stores key. An existing key keeps its insertion position.
func (c *resolutionCache) put(key string, node *html.Node) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries.Get(key); ok {
		c.entries.Set(key, node)
		return
	}
	for c.entries.Len() >= c.maxSize {
		oldest := c.entries.Oldest()
		if oldest == nil {
			break
		}
		c.entries.Delete(oldest.Key)
	}
	c.entries.Set(key, node)
}

func (c *resolutionCache) remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Delete(key)
}

func (c *resolutionCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = orderedmap.New[string, *html.Node]()
}

func (c *resolutionCache) keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, c.entries.Len())
	for pair := c.entries.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

func (c *resolutionCache) stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Size: c.entries.Len(), MaxSize: c.maxSize}
}
