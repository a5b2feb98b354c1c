package cmcache

import (
	"math"

	"github.com/setanarut/vec"
)

// BroadPhase finds candidate shape pairs.
type BroadPhase interface {
	// EachPair calls f once for every unordered pair of shapes that may touch.
	EachPair(shapes []*Shape, f func(a, b *Shape))
}

// NarrowPhase generates contacts for a candidate pair.
type NarrowPhase interface {
	// Collide pushes up to MaxContactsPerArbiter contacts for info.A and info.B.
	Collide(info *CollisionInfo)
}

// Solver consumes the active arbiters after the cache has been updated.
type Solver interface {
	// Solve is called once per step with the arbiters colliding in this
	// step. dtCoef scales impulses cached from the previous step.
	Solve(space *Space, arbiters []*Arbiter, dt, dtCoef float64)
}

// BruteForce is a BroadPhase that tests every pair of shapes.
type BruteForce struct{}

func (BruteForce) EachPair(shapes []*Shape, f func(a, b *Shape)) {
	for i, a := range shapes {
		for _, b := range shapes[i+1:] {
			if !QueryReject(a, b) {
				f(a, b)
			}
		}
	}
}

// QueryReject returns true if shapes a and b reject to collide.
func QueryReject(a, b *Shape) bool {
	if a.Body == b.Body {
		return true
	}
	if a.Filter.Reject(b.Filter) {
		return true
	}
	if !a.BB.Intersects(b.BB) {
		return true
	}
	return false
}

// BuiltinNarrowPhase collides circles with circles. Other pairs produce no contacts.
type BuiltinNarrowPhase struct{}

func (BuiltinNarrowPhase) Collide(info *CollisionInfo) {
	// Make sure the shape types are in order.
	if info.A.Order() > info.B.Order() {
		info.A, info.B = info.B, info.A
	}

	if _, ok := info.A.Class.(*Circle); !ok {
		return
	}
	if _, ok := info.B.Class.(*Circle); !ok {
		return
	}
	CircleToCircle(info)
}

func CircleToCircle(info *CollisionInfo) {
	c1 := info.A.Class.(*Circle)
	c2 := info.B.Class.(*Circle)

	mindist := c1.radius + c2.radius
	delta := c2.transformC.Sub(c1.transformC)
	distsq := delta.Dot(delta)

	if distsq < mindist*mindist {
		dist := math.Sqrt(distsq)
		if dist != 0 {
			info.Normal = delta.Scale(1.0 / dist)
		} else {
			info.Normal = vec.Vec2{X: 1, Y: 0}
		}
		info.PushContact(c1.transformC.Add(info.Normal.Scale(c1.radius)), c2.transformC.Add(info.Normal.Scale(-c2.radius)), 0)
	}
}
