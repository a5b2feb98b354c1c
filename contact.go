package cmcache

import (
	"log"

	"github.com/setanarut/vec"
)

// Contact is one contact point of an Arbiter.
//
// The same plain record lives in the space's contact buffers and in any
// storage an arbiter is detached into, so moving a contact is a struct copy.
type Contact struct {
	// Point is the contact position on the surface of shape A in world coordinates.
	Point vec.Vec2
	// Normal points from shape A towards shape B.
	Normal vec.Vec2
	// Depth is the penetration depth. It is positive when the shapes overlap.
	Depth float64
	// Accumulated normal and tangent impulses.
	JnAcc, JtAcc float64
	// Hash identifies the pair of features that produced the contact, so a
	// contact can be matched with its predecessor from the previous step.
	Hash HashValue
}

// PointB returns the contact position on the surface of shape B.
func (c Contact) PointB() vec.Vec2 {
	return c.Point.Sub(c.Normal.Scale(c.Depth))
}

// CollisionInfo is filled in by a NarrowPhase for a candidate shape pair.
type CollisionInfo struct {
	// A and B are the colliding shapes. A narrow phase may swap them so that
	// Normal points from A to B.
	A, B *Shape
	// Normal of the collision. Set it before pushing contacts.
	Normal vec.Vec2

	count int
	arr   []Contact
}

// PushContact records a contact between point p1 on A and point p2 on B.
func (info *CollisionInfo) PushContact(p1, p2 vec.Vec2, hash HashValue) {
	if info.count >= len(info.arr) {
		log.Panicln("cmcache: more than", len(info.arr), "contacts pushed for one shape pair")
	}

	con := &info.arr[info.count]
	con.Point = p1
	con.Normal = info.Normal
	con.Depth = -p2.Sub(p1).Dot(info.Normal)
	con.JnAcc = 0
	con.JtAcc = 0
	con.Hash = hash

	info.count++
}

// Count returns the number of contacts pushed so far.
func (info *CollisionInfo) Count() int {
	return info.count
}

// Contacts returns the pushed contacts.
func (info *CollisionInfo) Contacts() []Contact {
	return info.arr[:info.count]
}
