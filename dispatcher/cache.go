package dispatcher

import (
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/tidwall/tinylru"
)

// resultCache memoizes successful compilations keyed by fragment identity.
// A nil cache never hits.
type resultCache struct {
	mu  sync.Mutex
	lru tinylru.LRU
}

func newResultCache(size int) *resultCache {
	if size <= 0 {
		return nil
	}

	c := &resultCache{}
	c.lru.Resize(size)

	return c
}

func (c *resultCache) get(key uint64) (CompilationResult, bool) {
	if c == nil {
		return CompilationResult{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.lru.Get(key)
	if !ok {
		return CompilationResult{}, false
	}

	return v.(CompilationResult), true
}

func (c *resultCache) put(key uint64, result CompilationResult) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Set(key, result)
}

func (c *resultCache) len() int {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lru.Len()
}

// cacheKey hashes everything a compiler may look at besides positions
func cacheKey(f Fragment) uint64 {
	d := xxhash.New()

	s := f.Slice
	_, _ = d.WriteString(strconv.Itoa(int(f.Type)))
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(strconv.Itoa(int(s.Context)))
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(strconv.Itoa(int(s.Comment)))
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(strconv.Itoa(int(s.Marker)))
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(strconv.Itoa(int(s.Pending)))
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(s.Origin)
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(strconv.Itoa(f.ContextLen))

	for _, fr := range s.Frames {
		_, _ = d.WriteString("|")
		_, _ = d.WriteString(strconv.Itoa(int(fr.Type)))
		_, _ = d.WriteString(":")
		_, _ = d.WriteString(fr.Name)
		_, _ = d.WriteString(":")
		_, _ = d.WriteString(fr.Origin)
		_, _ = d.WriteString(":")
		_, _ = d.WriteString(strconv.Itoa(fr.Children))
	}

	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(f.Content)

	return d.Sum64()
}
