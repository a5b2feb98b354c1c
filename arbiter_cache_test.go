package cmcache_test

import (
	"errors"
	"testing"

	"github.com/setanarut/cmcache"
	"github.com/setanarut/vec"
)

func newShapes(n int) []*cmcache.Shape {
	space := cmcache.NewSpace()
	shapes := make([]*cmcache.Shape, n)
	for i := range shapes {
		body := cmcache.NewBody(1, 1)
		shapes[i] = cmcache.NewCircleShape(body, 1, vec.Vec2{X: float64(i) * 10})
		space.AddBodyWithShapes(body)
	}
	return shapes
}

func TestArbiterCacheFindIsCommutative(t *testing.T) {
	shapes := newShapes(20)
	cache := cmcache.NewArbiterCache()
	for i := 0; i < len(shapes); i += 2 {
		if err := cache.Insert(cmcache.NewArbiter(shapes[i], shapes[i+1])); err != nil {
			t.Fatal(err)
		}
	}

	for _, a := range shapes {
		for _, b := range shapes {
			if cache.Find(a, b) != cache.Find(b, a) {
				t.Fatalf("Find(%v, %v) != Find(%v, %v)", a, b, b, a)
			}
		}
	}
	if cache.Find(shapes[0], shapes[1]) == nil {
		t.Error("inserted arbiter not found")
	}
	if cache.Find(shapes[1], shapes[2]) != nil {
		t.Error("found an arbiter for a pair that was never inserted")
	}
}

func TestArbiterCacheKeepsOneArbiterPerPair(t *testing.T) {
	shapes := newShapes(2)
	a, b := shapes[0], shapes[1]
	cache := cmcache.NewArbiterCache()

	first := cmcache.NewArbiter(a, b)
	if err := cache.Insert(first); err != nil {
		t.Fatal(err)
	}
	if err := cache.Insert(cmcache.NewArbiter(b, a)); !errors.Is(err, cmcache.ErrDuplicateArbiter) {
		t.Errorf("got %v, want ErrDuplicateArbiter", err)
	}
	if err := cache.Insert(first); err != nil {
		t.Errorf("inserting the cached arbiter again failed: %v", err)
	}

	created := false
	got := cache.FindOrCreate(b, a, func(a, b *cmcache.Shape) *cmcache.Arbiter {
		created = true
		return cmcache.NewArbiter(a, b)
	})
	if got != first || created {
		t.Error("FindOrCreate created a second arbiter for a cached pair")
	}
	if cache.Count() != 1 {
		t.Errorf("cache holds %d arbiters, want 1", cache.Count())
	}
}

func TestArbiterCacheRemove(t *testing.T) {
	shapes := newShapes(3)
	cache := cmcache.NewArbiterCache()
	arb := cmcache.NewArbiter(shapes[0], shapes[1])
	cache.Insert(arb)

	if cache.Remove(cmcache.NewArbiter(shapes[0], shapes[1])) {
		t.Error("removed an arbiter that was not cached")
	}
	if !cache.Contains(shapes[1]) || cache.Contains(shapes[2]) {
		t.Error("Contains does not match the cached pair")
	}
	if !cache.Remove(arb) || cache.Count() != 0 {
		t.Error("cached arbiter was not removed")
	}
}
