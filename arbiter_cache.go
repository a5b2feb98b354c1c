package cmcache

import "fmt"

// ShapePair is an unordered pair of shapes used as an arbiter cache key.
type ShapePair struct {
	A, B *Shape
}

func arbiterSetEql(shapes ShapePair, arb *Arbiter) bool {
	a := shapes.A
	b := shapes.B

	return (a == arb.shapeA && b == arb.shapeB) || (b == arb.shapeA && a == arb.shapeB)
}

// pairHash combines the stable shape ids, never their addresses.
func pairHash(a, b *Shape) HashValue {
	return HashPair(a.hashid, b.hashid)
}

// ArbiterCache holds at most one Arbiter per unordered pair of shapes.
type ArbiterCache struct {
	set *HashSet[ShapePair, *Arbiter]
}

func NewArbiterCache() *ArbiterCache {
	return &ArbiterCache{set: NewHashSet(arbiterSetEql)}
}

// Find returns the arbiter cached for a and b in either order, or nil.
func (c *ArbiterCache) Find(a, b *Shape) *Arbiter {
	return c.set.Find(pairHash(a, b), ShapePair{a, b})
}

// FindOrCreate returns the cached arbiter for a and b, caching the result of
// create when there is none.
func (c *ArbiterCache) FindOrCreate(a, b *Shape, create func(a, b *Shape) *Arbiter) *Arbiter {
	return c.set.Insert(pairHash(a, b), ShapePair{a, b}, func(shapes ShapePair) *Arbiter {
		return create(shapes.A, shapes.B)
	})
}

// Insert caches arb under its shape pair. Inserting a second arbiter for a
// pair that is already cached is rejected with ErrDuplicateArbiter and leaves
// the cache unchanged.
func (c *ArbiterCache) Insert(arb *Arbiter) error {
	a, b := arb.shapeA, arb.shapeB
	got := c.FindOrCreate(a, b, func(_, _ *Shape) *Arbiter { return arb })
	if got != arb {
		return fmt.Errorf("%w: shapes %d and %d", ErrDuplicateArbiter, a.hashid, b.hashid)
	}
	return nil
}

// Remove uncaches arb. It returns false if arb was not the cached arbiter for its pair.
func (c *ArbiterCache) Remove(arb *Arbiter) bool {
	key := ShapePair{arb.shapeA, arb.shapeB}
	hash := pairHash(arb.shapeA, arb.shapeB)
	if c.set.Find(hash, key) != arb {
		return false
	}
	c.set.Remove(hash, key)
	return true
}

// Each calls f for every cached arbiter.
func (c *ArbiterCache) Each(f func(arb *Arbiter)) {
	c.set.Each(f)
}

// Filter uncaches every arbiter for which keep returns false.
func (c *ArbiterCache) Filter(keep func(arb *Arbiter) bool) {
	c.set.Filter(keep)
}

func (c *ArbiterCache) Count() int {
	return int(c.set.Count())
}

// Contains reports whether any cached arbiter involves shape.
func (c *ArbiterCache) Contains(shape *Shape) bool {
	found := false
	c.set.Each(func(arb *Arbiter) {
		if arb.shapeA == shape || arb.shapeB == shape {
			found = true
		}
	})
	return found
}
