package cmcache

import (
	"fmt"
	"math"

	"github.com/setanarut/vec"
)

const (
	// MaxContactsPerArbiter is the largest number of contact points an Arbiter holds.
	MaxContactsPerArbiter int = 2
	// ContactsBufferSize is the default number of contacts in one ContactBuffer.
	ContactsBufferSize int = 1024

	pooledBufferSize int = 64
)

var infinity = math.Inf(1)

// Arbiter states
const (
	// Arbiter is active and its the first collision.
	ArbiterStateFirstCollision = iota
	// Arbiter is active and its not the first collision.
	ArbiterStateNormal
	// Collision has been explicitly ignored. Either by returning false from a
	// begin collision handler or calling Arbiter.Ignore().
	ArbiterStateIgnore
	// Collison is no longer active. A space will cache an arbiter for up to
	// Space.CollisionPersistence more steps.
	ArbiterStateCached
	// Collison arbiter is invalid because one of the shapes was removed.
	ArbiterStateInvalidated
)

const (
	// Value for group signifying that a shape is in no group.
	NoGroup uint = 0
	// Value for Shape layers signifying that a shape is in every layer.
	AllCategories uint = ^uint(0)
)

// ShapeFilterAll is s collision filter value for a shape that will collide with
// anything except ShapeFilterNone.
var ShapeFilterAll = ShapeFilter{NoGroup, AllCategories, AllCategories}

// ShapeFilterNone is a collision filter value for a shape that does not collide
// with anything.
var ShapeFilterNone = ShapeFilter{NoGroup, ^AllCategories, ^AllCategories}

// ShapeFilter is fast collision filtering type that is used to determine if two objects collide before calling collision or query callbacks.
type ShapeFilter struct {
	// Two objects with the same non-zero group value do not collide.
	// This is generally used to group objects in a composite object together to disable self collisions.
	Group uint
	// A bitmask of user definable categories that this object belongs to.
	// The category/mask combinations of both objects in a collision must agree for a collision to occur.
	Categories uint
	// A bitmask of user definable category types that this object object collides with.
	// The category/mask combinations of both objects in a collision must agree for a collision to occur.
	Mask uint
}

// Reject returns true if the filters share a non-zero group or if the
// category/mask combination of either filter does not match the other.
func (sf ShapeFilter) Reject(other ShapeFilter) bool {
	return (sf.Group != 0 && sf.Group == other.Group) ||
		(sf.Categories&other.Mask) == 0 ||
		(other.Categories&sf.Mask) == 0
}

// DebugInfo returns info of space
func DebugInfo(space *Space) string {
	arbiters := len(space.Arbiters)
	points := 0
	for _, arb := range space.Arbiters {
		points += arb.count
	}

	var ke float64
	for _, body := range space.bodies {
		if body.mass == infinity || body.momentOfInertia == infinity {
			continue
		}
		ke += body.mass*body.velocity.Dot(body.velocity) + body.momentOfInertia*body.w*body.w
	}

	return fmt.Sprintf(`Arbiters: %d (%d cached) - Contact Points: %d
Contact Buffers: %d, Stamp: %d
KE: %e`, arbiters, space.cachedArbiters.Count(), points,
		space.contactBuffers.BufferCount(), space.stamp, ke)
}

func kScalarBody(body *Body, r, n vec.Vec2) float64 {
	rcn := r.Cross(n)
	return body.massInverse + body.momentOfInertiaInverse*rcn*rcn
}

func kScalar(a, b *Body, r1, r2, n vec.Vec2) float64 {
	return kScalarBody(a, r1, n) + kScalarBody(b, r2, n)
}
