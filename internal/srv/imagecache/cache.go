// Package imagecache keeps the most recently displayed images in memory.
//
// Entries live in a fixed arena and are chained in recency order through
// their indexes, so hits and evictions are O(1). The cache is owned by the
// control loop and is not safe for concurrent use.
package imagecache

import (
	"github.com/jypelle/artbox/apimodel"
	"image"
)

const DefaultCapacity = 25

const none = -1

// Loader produces the image of a coordinate.
type Loader interface {
	Load(coordinate apimodel.Coordinate) (image.Image, error)
}

// Releaser is implemented by payloads holding resources to free on eviction.
type Releaser interface {
	Release()
}

type entry struct {
	key     apimodel.Coordinate
	payload image.Image
	// toward most recent / least recent
	newer, older int
}

type Stats struct {
	Hits       int64
	Misses     int64
	Evictions  int64
	LoadErrors int64
}

type Cache struct {
	loader   Loader
	capacity int

	entries []entry
	index   map[apimodel.Coordinate]int
	free    []int
	newest  int
	oldest  int

	stats Stats

	// OnEvict, if set, is called after an entry has been evicted
	OnEvict func(key apimodel.Coordinate)
}

func New(loader Loader, capacity int) *Cache {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	c := &Cache{
		loader:   loader,
		capacity: capacity,
		entries:  make([]entry, 0, capacity),
		index:    make(map[apimodel.Coordinate]int, capacity),
		newest:   none,
		oldest:   none,
	}
	return c
}

// GetOrLoad returns the image of a coordinate, loading it on a miss. The
// returned image is borrowed: it stays valid until a later call evicts it.
// Load errors are returned and never cached.
func (c *Cache) GetOrLoad(key apimodel.Coordinate) (image.Image, error) {
	if i, ok := c.index[key]; ok {
		c.stats.Hits++
		c.promote(i)
		return c.entries[i].payload, nil
	}

	c.stats.Misses++
	payload, err := c.loader.Load(key)
	if err != nil {
		c.stats.LoadErrors++
		return nil, err
	}

	if len(c.index) >= c.capacity {
		c.evictOldest()
	}
	i := c.allocate()
	c.entries[i] = entry{key: key, payload: payload, newer: none, older: none}
	c.index[key] = i
	c.pushNewest(i)
	return payload, nil
}

// Peek reports whether a coordinate is cached, without touching recency.
func (c *Cache) Peek(key apimodel.Coordinate) (image.Image, bool) {
	i, ok := c.index[key]
	if !ok {
		return nil, false
	}
	return c.entries[i].payload, true
}

// Keys lists the cached coordinates from most to least recently used.
func (c *Cache) Keys() []apimodel.Coordinate {
	keys := make([]apimodel.Coordinate, 0, len(c.index))
	for i := c.newest; i != none; i = c.entries[i].older {
		keys = append(keys, c.entries[i].key)
	}
	return keys
}

func (c *Cache) Len() int {
	return len(c.index)
}

func (c *Cache) Capacity() int {
	return c.capacity
}

func (c *Cache) Stats() Stats {
	return c.stats
}

// Clear releases every entry.
func (c *Cache) Clear() {
	for i := c.newest; i != none; i = c.entries[i].older {
		release(c.entries[i].payload)
	}
	c.entries = c.entries[:0]
	c.free = c.free[:0]
	c.index = make(map[apimodel.Coordinate]int, c.capacity)
	c.newest = none
	c.oldest = none
}

func (c *Cache) allocate() int {
	if n := len(c.free); n > 0 {
		i := c.free[n-1]
		c.free = c.free[:n-1]
		return i
	}
	c.entries = append(c.entries, entry{})
	return len(c.entries) - 1
}

func (c *Cache) evictOldest() {
	i := c.oldest
	if i == none {
		return
	}
	key := c.entries[i].key
	c.unlink(i)
	delete(c.index, key)
	release(c.entries[i].payload)
	c.entries[i] = entry{}
	c.free = append(c.free, i)
	c.stats.Evictions++
	if c.OnEvict != nil {
		c.OnEvict(key)
	}
}

func (c *Cache) promote(i int) {
	if c.newest == i {
		return
	}
	c.unlink(i)
	c.pushNewest(i)
}

func (c *Cache) pushNewest(i int) {
	e := &c.entries[i]
	e.newer = none
	e.older = c.newest
	if c.newest != none {
		c.entries[c.newest].newer = i
	}
	c.newest = i
	if c.oldest == none {
		c.oldest = i
	}
}

func (c *Cache) unlink(i int) {
	e := &c.entries[i]
	if e.newer != none {
		c.entries[e.newer].older = e.older
	} else {
		c.newest = e.older
	}
	if e.older != none {
		c.entries[e.older].newer = e.newer
	} else {
		c.oldest = e.newer
	}
	e.newer = none
	e.older = none
}

func release(payload image.Image) {
	if r, ok := payload.(Releaser); ok {
		r.Release()
	}
}
