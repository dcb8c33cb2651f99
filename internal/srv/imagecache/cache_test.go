package imagecache

import (
	"errors"
	"github.com/jypelle/artbox/apimodel"
	"image"
	"image/color"
	"testing"
)

// fakeLoader builds a distinct tiny image per coordinate and counts loads.
type fakeLoader struct {
	loads   map[apimodel.Coordinate]int
	missing map[apimodel.Coordinate]bool
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		loads:   make(map[apimodel.Coordinate]int),
		missing: make(map[apimodel.Coordinate]bool),
	}
}

var errMissing = errors.New("missing")

func (f *fakeLoader) Load(c apimodel.Coordinate) (image.Image, error) {
	f.loads[c]++
	if f.missing[c] {
		return nil, errMissing
	}
	return &releasable{Gray: image.NewGray(image.Rect(0, 0, 1, 1)), key: c}, nil
}

func (f *fakeLoader) total() int {
	n := 0
	for _, v := range f.loads {
		n += v
	}
	return n
}

type releasable struct {
	*image.Gray
	key      apimodel.Coordinate
	released bool
}

func (r *releasable) Release() {
	r.released = true
}

func fill(t *testing.T, c *Cache, keys ...apimodel.Coordinate) {
	t.Helper()
	for _, k := range keys {
		if _, err := c.GetOrLoad(k); err != nil {
			t.Fatalf("load %v: %v", k, err)
		}
	}
}

func TestHitAfterMissForEveryCoordinate(t *testing.T) {
	loader := newFakeLoader()

	for i := 0; i < apimodel.CoordinateCount; i++ {
		c := New(loader, DefaultCapacity)
		key := apimodel.CoordinateAt(i)

		first, err := c.GetOrLoad(key)
		if err != nil {
			t.Fatalf("%v: unexpected error %v", key, err)
		}
		if first.(*releasable).key != key {
			t.Fatalf("%v: wrong payload", key)
		}
		second, err := c.GetOrLoad(key)
		if err != nil {
			t.Fatalf("%v: unexpected error %v", key, err)
		}
		if second != first {
			t.Fatalf("%v: hit returned another payload", key)
		}
		if loader.loads[key] != 1 {
			t.Fatalf("%v: expected 1 load, got %d", key, loader.loads[key])
		}
		if s := c.Stats(); s.Hits != 1 || s.Misses != 1 {
			t.Fatalf("%v: unexpected stats %+v", key, s)
		}
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	loader := newFakeLoader()
	c := New(loader, DefaultCapacity)

	for i := 0; i < DefaultCapacity; i++ {
		fill(t, c, apimodel.CoordinateAt(i))
	}
	if c.Len() != DefaultCapacity {
		t.Fatalf("expected %d entries, got %d", DefaultCapacity, c.Len())
	}
	oldest, _ := c.Peek(apimodel.CoordinateAt(0))

	var evicted []apimodel.Coordinate
	c.OnEvict = func(key apimodel.Coordinate) { evicted = append(evicted, key) }

	fill(t, c, apimodel.CoordinateAt(DefaultCapacity))

	if len(evicted) != 1 || evicted[0] != apimodel.CoordinateAt(0) {
		t.Fatalf("expected eviction of %v, got %v", apimodel.CoordinateAt(0), evicted)
	}
	if _, ok := c.Peek(apimodel.CoordinateAt(0)); ok {
		t.Error("evicted entry still cached")
	}
	if !oldest.(*releasable).released {
		t.Error("evicted payload not released")
	}
	if c.Len() != DefaultCapacity {
		t.Errorf("expected %d entries, got %d", DefaultCapacity, c.Len())
	}
}

func TestAccessProtectsFromEviction(t *testing.T) {
	loader := newFakeLoader()
	c := New(loader, DefaultCapacity)

	for i := 0; i < DefaultCapacity; i++ {
		fill(t, c, apimodel.CoordinateAt(i))
	}
	// touch the oldest entry: the second oldest becomes the victim
	fill(t, c, apimodel.CoordinateAt(0))
	fill(t, c, apimodel.CoordinateAt(100))

	if _, ok := c.Peek(apimodel.CoordinateAt(0)); !ok {
		t.Error("recently accessed entry was evicted")
	}
	if _, ok := c.Peek(apimodel.CoordinateAt(1)); ok {
		t.Error("least recently used entry was kept")
	}
	if loader.loads[apimodel.CoordinateAt(0)] != 1 {
		t.Error("hit triggered a load")
	}
}

func TestPeekDoesNotTouchRecency(t *testing.T) {
	c := New(newFakeLoader(), 2)
	a, b, d := apimodel.CoordinateAt(0), apimodel.CoordinateAt(1), apimodel.CoordinateAt(2)
	fill(t, c, a, b)

	c.Peek(a)
	fill(t, c, d)

	if _, ok := c.Peek(a); ok {
		t.Error("peek promoted the entry")
	}
	keys := c.Keys()
	if len(keys) != 2 || keys[0] != d || keys[1] != b {
		t.Errorf("unexpected recency order %v", keys)
	}
}

func TestLoadErrorIsNotCached(t *testing.T) {
	loader := newFakeLoader()
	c := New(loader, DefaultCapacity)
	key := apimodel.Coordinate{A: 2, B: 1, C: 5}
	loader.missing[key] = true

	for i := 0; i < 2; i++ {
		if _, err := c.GetOrLoad(key); !errors.Is(err, errMissing) {
			t.Fatalf("expected missing error, got %v", err)
		}
	}
	if loader.loads[key] != 2 {
		t.Errorf("expected a retry on each access, got %d loads", loader.loads[key])
	}
	if _, ok := c.Peek(key); ok || c.Len() != 0 {
		t.Error("failed load was cached")
	}

	// the image shows up later
	delete(loader.missing, key)
	if _, err := c.GetOrLoad(key); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}
	if s := c.Stats(); s.LoadErrors != 2 {
		t.Errorf("expected 2 load errors, got %+v", s)
	}
}

func TestLoadErrorDoesNotEvict(t *testing.T) {
	loader := newFakeLoader()
	c := New(loader, 3)
	fill(t, c, apimodel.CoordinateAt(0), apimodel.CoordinateAt(1), apimodel.CoordinateAt(2))
	loader.missing[apimodel.CoordinateAt(3)] = true

	c.GetOrLoad(apimodel.CoordinateAt(3))

	if c.Len() != 3 || c.Stats().Evictions != 0 {
		t.Errorf("failed load evicted an entry: len=%d stats=%+v", c.Len(), c.Stats())
	}
}

func TestSlotsAreReused(t *testing.T) {
	loader := newFakeLoader()
	c := New(loader, 4)
	for i := 0; i < apimodel.CoordinateCount; i++ {
		fill(t, c, apimodel.CoordinateAt(i))
	}
	if len(c.entries) != 4 {
		t.Errorf("arena grew to %d entries", len(c.entries))
	}
	keys := c.Keys()
	for i, k := range keys {
		if want := apimodel.CoordinateAt(apimodel.CoordinateCount - 1 - i); k != want {
			t.Errorf("position %d: expected %v, got %v", i, want, k)
		}
	}
	if loader.total() != apimodel.CoordinateCount {
		t.Errorf("expected %d loads, got %d", apimodel.CoordinateCount, loader.total())
	}
}

func TestClearReleasesEverything(t *testing.T) {
	c := New(newFakeLoader(), 5)
	fill(t, c, apimodel.CoordinateAt(0), apimodel.CoordinateAt(1))
	p0, _ := c.Peek(apimodel.CoordinateAt(0))
	p1, _ := c.Peek(apimodel.CoordinateAt(1))

	c.Clear()

	if c.Len() != 0 || len(c.Keys()) != 0 {
		t.Error("cache not empty after clear")
	}
	if !p0.(*releasable).released || !p1.(*releasable).released {
		t.Error("payloads not released")
	}
	fill(t, c, apimodel.CoordinateAt(2))
	if c.Len() != 1 {
		t.Error("cache unusable after clear")
	}
}

func TestPlainImagesNeedNoRelease(t *testing.T) {
	c := New(loaderFunc(func(apimodel.Coordinate) (image.Image, error) {
		return image.NewUniform(color.Black), nil
	}), 1)
	fill(t, c, apimodel.CoordinateAt(0), apimodel.CoordinateAt(1))
	if c.Stats().Evictions != 1 {
		t.Errorf("expected 1 eviction, got %+v", c.Stats())
	}
}

type loaderFunc func(apimodel.Coordinate) (image.Image, error)

func (f loaderFunc) Load(c apimodel.Coordinate) (image.Image, error) {
	return f(c)
}
