package cmcache

import (
	"fmt"
	"log"
	"slices"
	"sync"
)

// Space owns the contact buffers, the arbiter cache and the handler registry
// of one simulation. It is not safe for concurrent use; every cache and buffer
// mutation happens on the goroutine calling Step.
type Space struct {
	UserData any

	// Number of steps an arbiter is kept after its shapes stop touching.
	// Defaults to 1: an arbiter not refreshed for one full step is evicted.
	// 0 behaves like 1.
	CollisionPersistence uint

	// BroadPhase finds candidate pairs. Defaults to BruteForce.
	BroadPhase BroadPhase
	// NarrowPhase generates contacts. Defaults to BuiltinNarrowPhase.
	NarrowPhase NarrowPhase
	// Solver is run with the active arbiters each step. May be nil.
	Solver Solver

	// Arbiters colliding in the current step, in collision order.
	Arbiters []*Arbiter

	// private
	bodies            []*Body
	shapes            []*Shape
	shapeIndex        map[HashValue]*Shape
	stamp             uint
	currDT            float64
	shapeIDCounter    HashValue
	contactBuffers    *ContactBufferPool
	cachedArbiters    *ArbiterCache
	pooledArbiters    sync.Pool
	handlers          *HandlerRegistry
	locked            bool
	postStepCallbacks []*PostStepCallback
	skipPostStep      bool
}

// NewSpace allocates and initializes a Space
func NewSpace() *Space {
	space := &Space{
		CollisionPersistence: 1,
		BroadPhase:           BruteForce{},
		NarrowPhase:          BuiltinNarrowPhase{},
		Arbiters:             []*Arbiter{},
		shapeIndex:           map[HashValue]*Shape{},
		shapeIDCounter:       1,
		contactBuffers:       NewContactBufferPool(ContactsBufferSize),
		cachedArbiters:       NewArbiterCache(),
		pooledArbiters:       sync.Pool{New: func() any { return &Arbiter{} }},
		handlers:             NewHandlerRegistry(),
	}
	for range pooledBufferSize {
		space.pooledArbiters.Put(&Arbiter{})
	}
	return space
}

// Handlers returns the collision handler registry of the space.
func (s *Space) Handlers() *HandlerRegistry {
	return s.handlers
}

// ContactBuffers returns the contact buffer pool of the space.
func (s *Space) ContactBuffers() *ContactBufferPool {
	return s.contactBuffers
}

// CachedArbiters returns the arbiter cache of the space.
func (s *Space) CachedArbiters() *ArbiterCache {
	return s.cachedArbiters
}

// Timestamp returns the step counter.
func (s *Space) Timestamp() uint {
	return s.stamp
}

// SetTimestamp sets the step counter.
func (s *Space) SetTimestamp(stamp uint) {
	s.stamp = stamp
}

// TimeStep returns the dt of the last step.
func (s *Space) TimeStep() float64 {
	return s.currDT
}

// SetCurrentTimeStep sets the dt the next step scales cached impulses against.
func (s *Space) SetCurrentTimeStep(dt float64) {
	s.currDT = dt
}

// ShapeIDCounter returns the id the next added shape will get.
func (s *Space) ShapeIDCounter() HashValue {
	return s.shapeIDCounter
}

// SetShapeIDCounter sets the id the next added shape will get. Ids owned by
// shapes already in the space are skipped.
func (s *Space) SetShapeIDCounter(counter HashValue) {
	s.shapeIDCounter = counter
}

// SetShapeHashID gives shape a new identity.
func (s *Space) SetShapeHashID(shape *Shape, id HashValue) error {
	if !s.ContainsShape(shape) {
		return fmt.Errorf("%w: shape %d", ErrInvalidReference, shape.hashid)
	}
	if id == shape.hashid {
		return nil
	}
	if id == 0 {
		return fmt.Errorf("%w: id 0 is reserved", ErrShapeIDInUse)
	}
	if other := s.shapeIndex[id]; other != nil {
		return fmt.Errorf("%w: id %d", ErrShapeIDInUse, id)
	}
	if s.cachedArbiters.Contains(shape) {
		return fmt.Errorf("%w: shape %d", ErrShapeBusy, shape.hashid)
	}

	delete(s.shapeIndex, shape.hashid)
	shape.hashid = id
	s.shapeIndex[id] = shape
	if id >= s.shapeIDCounter {
		s.shapeIDCounter = id + 1
	}
	return nil
}

func (s *Space) assertUnlocked() {
	if s.locked {
		log.Panicln(`cmcache: you cannot modify the space while it is locked.
	Use a post-step callback instead.`)
	}
}

// AddBody adds body to the space.
//
// Do not add the same Body twice.
func (s *Space) AddBody(body *Body) {
	s.assertUnlocked()
	s.bodies = append(s.bodies, body)
	body.Space = s
}

// AddBodyWithShapes adds body to the space with body's shapes.
func (s *Space) AddBodyWithShapes(body *Body) {
	s.AddBody(body)
	for _, shape := range body.Shapes {
		s.AddShape(shape)
	}
}

// RemoveBody removes a body from the simulation
func (s *Space) RemoveBody(body *Body) {
	s.assertUnlocked()
	s.bodies = slices.DeleteFunc(s.bodies, func(b *Body) bool {
		return b == body
	})
	body.Space = nil
}

// RemoveBodyWithShapes removes a body and body's shapes from the simulation
func (s *Space) RemoveBodyWithShapes(body *Body) {
	for _, shape := range slices.Clone(body.Shapes) {
		if s.ContainsShape(shape) {
			s.RemoveShape(shape)
		}
	}
	s.RemoveBody(body)
}

// AddShape adds a collision shape to the simulation and assigns its id.
func (s *Space) AddShape(shape *Shape) *Shape {
	s.assertUnlocked()

	for s.shapeIndex[s.shapeIDCounter] != nil || s.shapeIDCounter == 0 {
		s.shapeIDCounter++
	}
	shape.hashid = s.shapeIDCounter
	s.shapeIDCounter++

	shape.CacheBB()
	s.shapes = append(s.shapes, shape)
	s.shapeIndex[shape.hashid] = shape
	shape.Space = s

	return shape
}

// RemoveShape removes a collision shape from the simulation. Arbiters cached
// for the shape are invalidated and removed.
func (s *Space) RemoveShape(shape *Shape) {
	s.assertUnlocked()

	s.FilterArbiters(shape.Body, shape)
	s.shapes = slices.DeleteFunc(s.shapes, func(sh *Shape) bool {
		return sh == shape
	})
	delete(s.shapeIndex, shape.hashid)
	shape.Space = nil
	shape.hashid = 0
}

// ShapeByID returns the shape of the space with the given id, or nil.
func (s *Space) ShapeByID(id HashValue) *Shape {
	return s.shapeIndex[id]
}

func (s *Space) ContainsShape(shape *Shape) bool {
	return shape != nil && shape.Space == s && s.shapeIndex[shape.hashid] == shape
}

func (s *Space) ContainsBody(body *Body) bool {
	return body.Space == s
}

func (s *Space) BodyCount() int {
	return len(s.bodies)
}

func (s *Space) ShapeCount() int {
	return len(s.shapes)
}

// EachBody calls func f for each body in the space
func (s *Space) EachBody(f func(b *Body)) {
	s.Lock()
	defer s.Unlock(true)

	for _, b := range s.bodies {
		f(b)
	}
}

// EachShape calls func f for each shape in the space
func (s *Space) EachShape(f func(*Shape)) {
	s.Lock()
	defer s.Unlock(true)

	for _, shape := range s.shapes {
		f(shape)
	}
}

// EachCachedArbiter calls f for every arbiter in the cache, including ones
// whose shapes stopped touching but that are not evicted yet.
func (s *Space) EachCachedArbiter(f func(arb *Arbiter)) {
	s.Lock()
	defer s.Unlock(true)

	s.cachedArbiters.Each(f)
}

// FilterArbiters removes the cached arbiters of body. A non-nil filter limits
// it to arbiters of that shape.
func (s *Space) FilterArbiters(body *Body, filter *Shape) {
	s.Lock()

	s.cachedArbiters.Filter(func(arb *Arbiter) bool {
		return s.cachedArbitersFilter(arb, filter, body)
	})

	s.Unlock(true)
}

func (s *Space) cachedArbitersFilter(arb *Arbiter, shape *Shape, body *Body) bool {
	// Match on the filter shape, or if it's nil the filter body
	if (body == arb.bodyA && (shape == arb.shapeA || shape == nil)) ||
		(body == arb.bodyB && (shape == arb.shapeB || shape == nil)) {
		// Call separate when removing shapes.
		if shape != nil && arb.state != ArbiterStateCached {
			// Invalidate the arbiter since one of the shapes was removed
			arb.state = ArbiterStateInvalidated

			handler := arb.handler
			handler.SeparateFunc(arb, s, handler.UserData)
		}

		s.removeActive(arb)
		s.pooledArbiters.Put(arb)
		return false
	}

	return true
}

// arbiterSetFilter throws away old arbiters.
func (s *Space) arbiterSetFilter(arb *Arbiter) bool {
	var ticks uint
	if s.stamp > arb.stamp {
		ticks = s.stamp - arb.stamp
	}

	if ticks >= 1 && arb.state != ArbiterStateCached {
		arb.state = ArbiterStateCached
		handler := arb.handler
		handler.SeparateFunc(arb, s, handler.UserData)
	}

	// An arbiter touched in this step is never evicted by it.
	if ticks >= max(s.CollisionPersistence, 1) {
		arb.contacts = nil
		arb.count = 0
		s.pooledArbiters.Put(arb)
		return false
	}

	return true
}

func (s *Space) removeActive(arb *Arbiter) bool {
	if index := slices.Index(s.Arbiters, arb); index != -1 {
		s.Arbiters = slices.Delete(s.Arbiters, index, index+1)
		return true
	}
	return false
}

// UncacheArbiter removes arb from the cache and the active list.
func (s *Space) UncacheArbiter(arb *Arbiter) {
	s.cachedArbiters.Remove(arb)
	s.removeActive(arb)
}

// DetachArbiter uncaches arb and moves its contacts into storage owned by
// arb, so it can be kept outside the space and restored with AddCachedArbiter.
func (s *Space) DetachArbiter(arb *Arbiter) {
	s.assertUnlocked()
	s.UncacheArbiter(arb)
	arb.Detach()
}

func (s *Space) Lock() {
	s.locked = true
}

// IsLocked returns true from inside a callback when objects cannot be added/removed.
func (s *Space) IsLocked() bool {
	return s.locked
}

func (s *Space) Unlock(runPostStep bool) {
	s.locked = false

	if runPostStep && !s.skipPostStep {
		s.skipPostStep = true

		for i := 0; i < len(s.postStepCallbacks); i++ {
			callback := s.postStepCallbacks[i]
			f := callback.callback

			// Mark the func as nil in case calling it calls Unlock() again.
			callback.callback = nil

			if f != nil {
				f(s, callback.key, callback.data)
			}
		}

		s.postStepCallbacks = s.postStepCallbacks[:0]
		s.skipPostStep = false
	}
}

// PostStepCallbackFunc is run when the space unlocks after a step or query.
type PostStepCallbackFunc func(space *Space, key any, data any)

type PostStepCallback struct {
	callback PostStepCallbackFunc
	key      any
	data     any
}

func (s *Space) postStepCallback(key any) *PostStepCallback {
	for _, callback := range s.postStepCallbacks {
		if callback != nil && callback.key == key {
			return callback
		}
	}
	return nil
}

// AddPostStepCallback defines a callback to be run just before s.Step() finishes.
//
// Post-step callbacks are the place to add or remove shapes and to restore
// arbiters from inside a collision callback. You can only schedule one
// post-step callback per key value; registering a second callback for the
// same key is a no-op and returns false.
func (s *Space) AddPostStepCallback(f PostStepCallbackFunc, key, data any) bool {
	if key == nil || s.postStepCallback(key) == nil {
		callback := &PostStepCallback{
			key:  key,
			data: data,
		}
		if f != nil {
			callback.callback = f
		} else {
			callback.callback = func(*Space, any, any) {}
		}
		s.postStepCallbacks = append(s.postStepCallbacks, callback)
		return true
	}
	return false
}

// Step advances the contact state by one step of dt.
//
// New and refreshed arbiters are collected first; stale arbiters are evicted
// afterwards, so an arbiter refreshed in a step is never evicted by it.
func (s *Space) Step(dt float64) {
	if dt == 0 {
		return
	}

	s.stamp++

	prevDT := s.currDT
	s.currDT = dt

	// reset and empty the arbiter lists
	for _, arb := range s.Arbiters {
		if arb.state == ArbiterStateFirstCollision {
			arb.state = ArbiterStateNormal
		}
	}
	s.Arbiters = s.Arbiters[:0]

	s.Lock()
	{
		// Find colliding pairs.
		s.contactBuffers.PushFreshBuffer(s.stamp, max(s.CollisionPersistence, 1))
		for _, shape := range s.shapes {
			shape.CacheBB()
		}
		s.BroadPhase.EachPair(s.shapes, s.collideShapes)
	}
	s.Unlock(false)

	s.Lock()
	{
		// Clear out old cached arbiters and call separate callbacks
		s.cachedArbiters.Filter(s.arbiterSetFilter)

		if s.Solver != nil {
			var dtCoef float64
			if prevDT != 0 {
				dtCoef = dt / prevDT
			}
			s.Solver.Solve(s, s.Arbiters, dt, dtCoef)
		}

		// run the post-solve callbacks
		for _, arb := range s.Arbiters {
			handler := arb.handler
			handler.PostSolveFunc(arb, s, handler.UserData)
		}
	}
	s.Unlock(true)
}

func (s *Space) collideShapes(a, b *Shape) {
	info := CollisionInfo{
		A:   a,
		B:   b,
		arr: s.contactBuffers.CurrentArray(),
	}

	// Narrow-phase collision detection.
	s.NarrowPhase.Collide(&info)

	if info.count == 0 {
		// shapes are not colliding
		return
	}

	//  Push contacts
	s.contactBuffers.PushContacts(info.count)

	// Get an arbiter from the cache for the two shapes.
	// This is where the persistent contact magic comes from.
	arb := s.cachedArbiters.FindOrCreate(info.A, info.B, func(a, b *Shape) *Arbiter {
		return s.pooledArbiters.Get().(*Arbiter).Init(a, b)
	})
	arb.Update(&info, s)

	if arb.state == ArbiterStateFirstCollision && !arb.handler.BeginFunc(arb, s, arb.handler.UserData) {
		arb.Ignore()
	}

	// Ignore the arbiter if it has been flagged
	if arb.state != ArbiterStateIgnore &&
		// Call PreSolve
		arb.handler.PreSolveFunc(arb, s, arb.handler.UserData) &&
		// Check (again) in case the pre-solve() callback called Arbiter.Ignore().
		arb.state != ArbiterStateIgnore &&
		// Process, but don't add collisions for sensors.
		!(a.Sensor || b.Sensor) &&
		// Don't process collisions between two infinite mass bodies.
		!(a.Body.mass == infinity && b.Body.mass == infinity) {
		s.Arbiters = append(s.Arbiters, arb)
	} else {
		s.contactBuffers.PopContacts(info.count)
		arb.contacts = nil
		arb.count = 0

		// Normally arbiters are set as used after calling the post-solve callback.
		// However, post-solve() callbacks are not called for sensors or arbiters rejected from pre-solve.
		if arb.state != ArbiterStateIgnore {
			arb.state = ArbiterStateNormal
		}
	}

	// Time stamp the arbiter so we know it was used recently.
	arb.stamp = s.stamp
}

// Destroy releases every contact buffer and empties the cache.
func (s *Space) Destroy() {
	s.assertUnlocked()
	s.cachedArbiters = NewArbiterCache()
	s.Arbiters = s.Arbiters[:0]
	s.contactBuffers.Release()
}

// AddCollisionHandler returns the collision handler for collision types a and
// b, creating it on first use.
func (s *Space) AddCollisionHandler(a, b CollisionType) *CollisionHandler {
	return s.handlers.AddCollisionHandler(a, b)
}

// AddWildcardCollisionHandler returns the handler called for every collision
// that involves a shape of typeA.
func (s *Space) AddWildcardCollisionHandler(typeA CollisionType) *CollisionHandler {
	return s.handlers.AddWildcardCollisionHandler(typeA)
}

// SetCollisionHandler registers handler, replacing any handler of the same pair.
// Arbiters already cached keep the old handler until they are updated again,
// so one that separates first runs the old SeparateFunc.
func (s *Space) SetCollisionHandler(handler *CollisionHandler) {
	s.handlers.SetCollisionHandler(handler)
}

// LookupHandler returns the handler registered for a and b in either order,
// or the default handler.
func (s *Space) LookupHandler(a, b CollisionType) *CollisionHandler {
	return s.handlers.LookupHandler(a, b, s.handlers.Default())
}

func (s *Space) UseWildcardDefaultHandler() {
	s.handlers.UseWildcardDefaultHandler()
}

// DefaultCollisionHandler switches the space to the wildcard default handler
// and returns it so its callbacks can be overridden.
func (s *Space) DefaultCollisionHandler() *CollisionHandler {
	return s.handlers.DefaultCollisionHandler()
}
