package cmcache

import (
	"log"

	"github.com/setanarut/vec"
)

// Arbiter struct tracks pairs of colliding shapes.
//
// They are also used in conjuction with collision handler callbacks allowing you to retrieve information on the collision or change it.
// A unique arbiter value is used for each pair of colliding objects. It persists until the shapes separate.
type Arbiter struct {
	UserData any

	shapeA, shapeB              *Shape
	bodyA, bodyB                *Body
	e, u                        float64
	count                       int
	state                       int       // Arbiter state enum
	contacts                    []Contact // a slice onto the current buffer array of contacts, or detached storage
	surfaceVr                   vec.Vec2
	normal                      vec.Vec2
	handler, handlerA, handlerB *CollisionHandler // Regular, wildcard A and wildcard B collision handlers.
	swapped                     bool
	detached                    bool
	stamp                       uint
}

// NewArbiter returns a detached arbiter for shapes a and b with no contacts.
// Give it contacts with SetDetachedContacts and hand it to Space.AddCachedArbiter.
func NewArbiter(a, b *Shape) *Arbiter {
	arb := new(Arbiter).Init(a, b)
	arb.detached = true
	return arb
}

// Init initializes and returns Arbiter
func (arb *Arbiter) Init(a, b *Shape) *Arbiter {
	arb.handler = nil
	arb.swapped = false
	arb.handlerA = nil
	arb.handlerB = nil
	arb.e = 0
	arb.u = 0
	arb.surfaceVr = vec.Vec2{}
	arb.normal = vec.Vec2{}
	arb.count = 0
	arb.contacts = nil
	arb.detached = false
	arb.shapeA = a
	arb.shapeB = b
	arb.bodyA = nil
	arb.bodyB = nil
	if a != nil {
		arb.bodyA = a.Body
	}
	if b != nil {
		arb.bodyB = b.Body
	}
	arb.stamp = 0
	arb.state = ArbiterStateFirstCollision
	arb.UserData = nil
	return arb
}

func (arb *Arbiter) updateMaterial() {
	a := arb.shapeA
	b := arb.shapeB
	arb.e = a.Elasticity * b.Elasticity
	arb.u = a.Friction * b.Friction

	n := arb.normal
	surfaceVr := b.SurfaceVelocity.Sub(a.SurfaceVelocity)
	arb.surfaceVr = surfaceVr.Sub(n.Scale(surfaceVr.Dot(n)))
}

// Update refreshes the arbiter from a narrow-phase result.
func (arb *Arbiter) Update(info *CollisionInfo, space *Space) {
	a := info.A
	b := info.B

	// For collisions between two similar primitive types, the order could have
	// been swapped since the last frame.
	arb.shapeA = a
	arb.bodyA = a.Body
	arb.shapeB = b
	arb.bodyB = b.Body

	// Iterate over the possible pairs to look for hash value matches.
	for i := 0; i < info.count; i++ {
		con := &info.arr[i]

		for j := 0; j < arb.count; j++ {
			old := arb.contacts[j]

			// This could trigger false positives, but is fairly unlikely nor serious if it does.
			if con.Hash == old.Hash {
				// Copy the persistent contact information.
				con.JnAcc = old.JnAcc
				con.JtAcc = old.JtAcc
			}
		}
	}

	arb.contacts = info.arr[:info.count]
	arb.count = info.count
	arb.normal = info.Normal
	arb.detached = false
	arb.updateMaterial()

	space.handlers.Resolve(arb)

	// mark it as new if it's been cached
	if arb.state == ArbiterStateCached {
		arb.state = ArbiterStateFirstCollision
	}
}

// SetDetachedContacts replaces the contacts of an arbiter that is not in a
// space with a private copy of contacts.
func (arb *Arbiter) SetDetachedContacts(contacts []Contact) {
	if len(contacts) > MaxContactsPerArbiter {
		log.Panicf("cmcache: %d contacts given, an arbiter holds at most %d", len(contacts), MaxContactsPerArbiter)
	}
	arb.contacts = make([]Contact, len(contacts))
	copy(arb.contacts, contacts)
	arb.count = len(contacts)
	if arb.count > 0 {
		arb.normal = contacts[0].Normal
	}
	arb.detached = true
}

// Detach moves the contacts into storage owned by the arbiter so they
// outlive the contact buffer they were written to.
func (arb *Arbiter) Detach() {
	contacts := make([]Contact, arb.count)
	copy(contacts, arb.contacts[:arb.count])
	arb.contacts = contacts
	arb.detached = true
}

// IsDetached reports whether the contacts live outside the space's contact buffers.
func (arb *Arbiter) IsDetached() bool {
	return arb.detached
}

// Ignore marks a collision pair to be ignored until the two objects separate.
//
// Pre-solve and post-solve callbacks will not be called, but the separate callback will be called.
func (arb *Arbiter) Ignore() bool {
	arb.state = ArbiterStateIgnore
	return false
}

func (arb *Arbiter) IsFirstContact() bool {
	return arb.state == ArbiterStateFirstCollision
}

// SetFirstContact marks a detached arbiter as a first collision or as an ongoing one.
func (arb *Arbiter) SetFirstContact(first bool) {
	if first {
		arb.state = ArbiterStateFirstCollision
	} else {
		arb.state = ArbiterStateNormal
	}
}

// SetSeparated marks a detached arbiter whose shapes no longer touch. Its
// separate callback has already run and it only waits for eviction.
func (arb *Arbiter) SetSeparated() {
	arb.state = ArbiterStateCached
}

// State returns the arbiter state, one of the ArbiterState constants.
func (arb *Arbiter) State() int {
	return arb.state
}

// Stamp returns the step in which the shapes last touched.
func (arb *Arbiter) Stamp() uint {
	return arb.stamp
}

func (arb *Arbiter) SetStamp(stamp uint) {
	arb.stamp = stamp
}

// Swapped reports whether the shape order is the reverse of the order the
// main handler was registered with.
func (arb *Arbiter) Swapped() bool {
	return arb.swapped
}

// Handlers returns the main handler and the wildcard handlers of both sides.
func (arb *Arbiter) Handlers() (handler, handlerA, handlerB *CollisionHandler) {
	return arb.handler, arb.handlerA, arb.handlerB
}

// CallWildcardBeginA if you want a custom callback to invoke the wildcard callback for the first collision type, you must call this function explicitly.
//
// You must decide how to handle the wildcard's return value since it may disagree with the other wildcard handler's return value or your own.
func (arb *Arbiter) CallWildcardBeginA(space *Space) bool {
	handler := arb.handlerA
	return handler.BeginFunc(arb, space, handler.UserData)
}

// CallWildcardBeginB If you want a custom callback to invoke the wildcard callback for the second collision type, you must call this function explicitly.
func (arb *Arbiter) CallWildcardBeginB(space *Space) bool {
	handler := arb.handlerB
	arb.swapped = !arb.swapped
	retVal := handler.BeginFunc(arb, space, handler.UserData)
	arb.swapped = !arb.swapped
	return retVal
}

// CallWildcardPreSolveA If you want a custom callback to invoke the wildcard callback for the first collision type, you must call this function explicitly.
func (arb *Arbiter) CallWildcardPreSolveA(space *Space) bool {
	handler := arb.handlerA
	return handler.PreSolveFunc(arb, space, handler.UserData)
}

// CallWildcardPreSolveB If you want a custom callback to invoke the wildcard callback for the second collision type, you must call this function explicitly.
func (arb *Arbiter) CallWildcardPreSolveB(space *Space) bool {
	handler := arb.handlerB
	arb.swapped = !arb.swapped
	retval := handler.PreSolveFunc(arb, space, handler.UserData)
	arb.swapped = !arb.swapped
	return retval
}

func (arb *Arbiter) CallWildcardPostSolveA(space *Space) {
	handler := arb.handlerA
	handler.PostSolveFunc(arb, space, handler.UserData)
}

func (arb *Arbiter) CallWildcardPostSolveB(space *Space) {
	handler := arb.handlerB
	arb.swapped = !arb.swapped
	handler.PostSolveFunc(arb, space, handler.UserData)
	arb.swapped = !arb.swapped
}

func (arb *Arbiter) CallWildcardSeparateA(space *Space) {
	handler := arb.handlerA
	handler.SeparateFunc(arb, space, handler.UserData)
}

func (arb *Arbiter) CallWildcardSeparateB(space *Space) {
	handler := arb.handlerB
	arb.swapped = !arb.swapped
	handler.SeparateFunc(arb, space, handler.UserData)
	arb.swapped = !arb.swapped
}

// TotalImpulse calculates the total impulse including the friction that was applied by this arbiter.
//
// This function should only be called from a post-solve, post-step or EachArbiter callback.
func (arb *Arbiter) TotalImpulse() vec.Vec2 {
	var sum vec.Vec2

	count := arb.Count()
	for i := 0; i < count; i++ {
		con := arb.contacts[i]
		sum = sum.Add(arb.normal.RotateComplex(vec.Vec2{X: con.JnAcc, Y: con.JtAcc}))
	}

	if arb.swapped {
		return sum
	}
	return sum.Neg()
}

// TotalKE calculates the amount of energy lost in a collision including static, but not dynamic friction.
//
// This function should only be called from a post-solve, post-step or EachArbiter callback.
func (arb *Arbiter) TotalKE() float64 {
	eCoef := (1 - arb.e) / (1 + arb.e)
	sum := 0.0

	a := arb.bodyA
	b := arb.bodyB
	n := arb.normal

	count := arb.Count()
	for i := 0; i < count; i++ {
		con := arb.contacts[i]
		r1 := con.Point.Sub(a.position)
		r2 := con.PointB().Sub(b.position)

		jnAcc := con.JnAcc
		jtAcc := con.JtAcc
		sum += eCoef*jnAcc*jnAcc*kScalar(a, b, r1, r2, n) + jtAcc*jtAcc*kScalar(a, b, r1, r2, n.Perp())
	}

	return sum
}

// Count returns the number of contacts, or 0 for an arbiter that is no longer touching.
func (arb *Arbiter) Count() int {
	if arb.state < ArbiterStateCached {
		return arb.count
	}
	return 0
}

// Contacts returns the stored contacts regardless of the arbiter state.
func (arb *Arbiter) Contacts() []Contact {
	return arb.contacts[:arb.count]
}

// Pair returns the shapes in collision order, ignoring the handler order.
func (arb *Arbiter) Pair() (*Shape, *Shape) {
	return arb.shapeA, arb.shapeB
}

// Shapes return the colliding shapes involved for this arbiter.
// The order of their space.CollisionType values will match the order set when the collision handler was registered.
func (arb *Arbiter) Shapes() (*Shape, *Shape) {
	if arb.swapped {
		return arb.shapeB, arb.shapeA
	}
	return arb.shapeA, arb.shapeB
}

// Bodies returns the colliding bodies involved for this arbiter.
// The order of the space.CollisionType the bodies are associated with values will match the order set when the collision handler was registered.
func (arb *Arbiter) Bodies() (*Body, *Body) {
	shapeA, shapeB := arb.Shapes()
	return shapeA.Body, shapeB.Body
}

func (arb *Arbiter) Normal() vec.Vec2 {
	if arb.swapped {
		return arb.normal.Neg()
	}
	return arb.normal
}

// PointA returns the position of contact i on the surface of the first shape in collision order.
func (arb *Arbiter) PointA(i int) vec.Vec2 {
	arb.checkIndex(i)
	return arb.contacts[i].Point
}

// PointB returns the position of contact i on the surface of the second shape in collision order.
func (arb *Arbiter) PointB(i int) vec.Vec2 {
	arb.checkIndex(i)
	return arb.contacts[i].PointB()
}

// Depth returns the penetration depth of contact i.
func (arb *Arbiter) Depth(i int) float64 {
	arb.checkIndex(i)
	return arb.contacts[i].Depth
}

// Distance returns the signed distance of contact i. Overlapping means it will be negative.
func (arb *Arbiter) Distance(i int) float64 {
	return -arb.Depth(i)
}

func (arb *Arbiter) checkIndex(i int) {
	if i < 0 || i >= arb.Count() {
		log.Panicf("cmcache: contact index %d out of range [0, %d)", i, arb.Count())
	}
}

// ContactPointSet wraps up the important collision data for an arbiter.
type ContactPointSet struct {
	// Count is the number of contact points in the set.
	Count int
	// Normal is the normal of the collision.
	Normal vec.Vec2

	Points [MaxContactsPerArbiter]struct {
		// The position of the contact on the surface of each shape.
		PointA, PointB vec.Vec2
		// Distance is penetration distance of the two shapes. Overlapping means it will be negative.
		Distance float64
	}
}

// ContactPointSet returns the contacts in handler order.
func (arb *Arbiter) ContactPointSet() ContactPointSet {
	var set ContactPointSet
	set.Count = arb.Count()
	set.Normal = arb.Normal()

	for i := 0; i < set.Count; i++ {
		con := arb.contacts[i]
		p1 := con.Point
		p2 := con.PointB()

		if arb.swapped {
			set.Points[i].PointA = p2
			set.Points[i].PointB = p1
		} else {
			set.Points[i].PointA = p1
			set.Points[i].PointB = p2
		}

		set.Points[i].Distance = -con.Depth
	}

	return set
}
