package cmcache

// CollisionType is a user assigned tag on a Shape that selects the CollisionHandler for its collisions.
type CollisionType uint64

// WildcardCollisionType matches any collision type.
const WildcardCollisionType CollisionType = ^CollisionType(0)

// CollisionBeginFunc is collision begin event function callback type.
// Returning false from a begin callback causes the collision to be ignored
// until the the separate callback is called when the objects stop colliding.
type CollisionBeginFunc func(arb *Arbiter, space *Space, userData any) bool

// CollisionPreSolveFunc is collision pre-solve event function callback type.
//
// Returning false from a pre-step callback causes the collision to be ignored until the next step.
type CollisionPreSolveFunc func(arb *Arbiter, space *Space, userData any) bool

// CollisionPostSolveFunc is collision post-solve event function callback type.
type CollisionPostSolveFunc func(arb *Arbiter, space *Space, userData any)

// CollisionSeparateFunc is collision separate event function callback type.
type CollisionSeparateFunc func(arb *Arbiter, space *Space, userData any)

// CollisionHandler is struct that holds function callback pointers to configure custom collision handling.
// Collision handlers have a pair of types; when a collision occurs between two shapes that have these types, the collision handler functions are triggered.
type CollisionHandler struct {
	// Collision type identifier of the first shape that this handler recognizes.
	// In the collision handler callback, the shape with this type will be the first argument. Read only.
	TypeA CollisionType
	// Collision type identifier of the second shape that this handler recognizes.
	// In the collision handler callback, the shape with this type will be the second argument. Read only.
	TypeB CollisionType
	// This function is called when two shapes with types that match this collision handler begin colliding.
	BeginFunc CollisionBeginFunc
	// This function is called each step when two shapes with types that match this collision handler are colliding.
	// It's called before the collision solver runs so that you can affect a collision's outcome.
	PreSolveFunc CollisionPreSolveFunc
	// This function is called each step when two shapes with types that match this collision handler are colliding.
	// It's called after the collision solver runs so that you can read back information about the collision to trigger events in your game.
	PostSolveFunc CollisionPostSolveFunc
	// This function is called when two shapes with types that match this collision handler stop colliding.
	SeparateFunc CollisionSeparateFunc
	// This is a user definable context pointer that is passed to all of the collision handler functions.
	UserData any
}

func AlwaysCollide(_ *Arbiter, _ *Space, _ any) bool {
	return true
}

func DoNothing(_ *Arbiter, _ *Space, _ any) {

}

func DefaultBegin(arb *Arbiter, space *Space, _ any) bool {
	return arb.CallWildcardBeginA(space) && arb.CallWildcardBeginB(space)
}

func DefaultPreSolve(arb *Arbiter, space *Space, _ any) bool {
	return arb.CallWildcardPreSolveA(space) && arb.CallWildcardPreSolveB(space)
}

func DefaultPostSolve(arb *Arbiter, space *Space, _ any) {
	arb.CallWildcardPostSolveA(space)
	arb.CallWildcardPostSolveB(space)
}

func DefaultSeparate(arb *Arbiter, space *Space, _ any) {
	arb.CallWildcardSeparateA(space)
	arb.CallWildcardSeparateB(space)
}

func handlerSetEql(check, pair *CollisionHandler) bool {
	if check.TypeA == pair.TypeA && check.TypeB == pair.TypeB {
		return true
	}
	if check.TypeB == pair.TypeA && check.TypeA == pair.TypeB {
		return true
	}
	return false
}

func handlerHash(a, b CollisionType) HashValue {
	return HashPair(HashValue(a), HashValue(b))
}

// HandlerRegistry maps unordered pairs of collision types to collision handlers.
//
// It owns the do-nothing handler used for missing wildcard bindings and the
// wildcard default handler that calls both wildcard handlers of an arbiter.
type HandlerRegistry struct {
	handlers        *HashSet[*CollisionHandler, *CollisionHandler]
	usesWildcards   bool
	defaultHandler  *CollisionHandler
	doNothing       CollisionHandler
	wildcardDefault CollisionHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	r := &HandlerRegistry{
		handlers: NewHashSet(handlerSetEql),
		doNothing: CollisionHandler{
			WildcardCollisionType,
			WildcardCollisionType,
			AlwaysCollide,
			AlwaysCollide,
			DoNothing,
			DoNothing,
			nil,
		},
		wildcardDefault: CollisionHandler{
			WildcardCollisionType,
			WildcardCollisionType,
			DefaultBegin,
			DefaultPreSolve,
			DefaultPostSolve,
			DefaultSeparate,
			nil,
		},
	}
	r.defaultHandler = &r.doNothing
	return r
}

// Default returns the handler used for pairs with no registered handler.
func (r *HandlerRegistry) Default() *CollisionHandler {
	return r.defaultHandler
}

// DoNothing returns the handler bound to a side when no wildcard handler
// exists for its type.
func (r *HandlerRegistry) DoNothing() *CollisionHandler {
	return &r.doNothing
}

// UsesWildcards reports whether wildcard handlers are in use.
func (r *HandlerRegistry) UsesWildcards() bool {
	return r.usesWildcards
}

// Count returns the number of registered handlers.
func (r *HandlerRegistry) Count() int {
	return int(r.handlers.Count())
}

// UseWildcardDefaultHandler switches the default handler to one that calls
// the wildcard handlers of both shapes.
func (r *HandlerRegistry) UseWildcardDefaultHandler() {
	if !r.usesWildcards {
		r.usesWildcards = true
		r.defaultHandler = &r.wildcardDefault
	}
}

// DefaultCollisionHandler enables wildcard handling and returns the default
// handler so its callbacks can be replaced.
func (r *HandlerRegistry) DefaultCollisionHandler() *CollisionHandler {
	r.UseWildcardDefaultHandler()
	return r.defaultHandler
}

// LookupHandler returns the handler registered for the unordered pair (a, b),
// or defaultHandler when there is none.
func (r *HandlerRegistry) LookupHandler(a, b CollisionType, defaultHandler *CollisionHandler) *CollisionHandler {
	types := &CollisionHandler{TypeA: a, TypeB: b}
	handler := r.handlers.Find(handlerHash(a, b), types)
	if handler != nil {
		return handler
	}
	return defaultHandler
}

// Match returns the best handler for a and b: the exact pair first, then a
// wildcard handler registered for a, then one registered for b, then fallback.
// swapped reports whether b is the operand matching the handler's TypeA.
//
// Match only answers queries. Arbiters are bound by Resolve, which looks up the
// exact pair with LookupHandler and falls back to the default handler.
func (r *HandlerRegistry) Match(a, b CollisionType, fallback *CollisionHandler) (handler *CollisionHandler, swapped bool) {
	if h := r.LookupHandler(a, b, nil); h != nil {
		return h, a != h.TypeA
	}
	if h := r.LookupHandler(a, WildcardCollisionType, nil); h != nil {
		return h, h.TypeA != a
	}
	if h := r.LookupHandler(b, WildcardCollisionType, nil); h != nil {
		return h, h.TypeA == b
	}
	return fallback, false
}

// AddCollisionHandler adds and returns the CollisionHandler for collisions between objects of type a and b.
//
// When a new collision handler is created, the callbacks will all be set to
// builtin callbacks that perform the default behavior (call the wildcard
// handlers, and accept all collisions). If a handler for the pair already
// exists it is returned unchanged.
func (r *HandlerRegistry) AddCollisionHandler(a, b CollisionType) *CollisionHandler {
	handler := &CollisionHandler{
		a,
		b,
		DefaultBegin,
		DefaultPreSolve,
		DefaultPostSolve,
		DefaultSeparate,
		nil,
	}
	return r.handlers.Insert(
		handlerHash(a, b),
		handler,
		func(h *CollisionHandler) *CollisionHandler { return h },
	)
}

// AddWildcardCollisionHandler sets a collision handler for given collision type.
// This handler will be used any time an object with this type collides with
// another object, regardless of its type. There may be a specific collision
// handler and two wildcard handlers. It's up to the specific handler to decide
// if and when to call the wildcard handlers and what to do with their return
// values. New wildcard handlers accept all collisions in Begin() and
// PreSolve(), and do nothing in PostSolve() and Separate().
func (r *HandlerRegistry) AddWildcardCollisionHandler(typeA CollisionType) *CollisionHandler {
	r.UseWildcardDefaultHandler()

	handler := &CollisionHandler{
		typeA,
		WildcardCollisionType,
		AlwaysCollide,
		AlwaysCollide,
		DoNothing,
		DoNothing,
		nil,
	}
	return r.handlers.Insert(
		handlerHash(typeA, WildcardCollisionType),
		handler,
		func(h *CollisionHandler) *CollisionHandler { return h },
	)
}

// SetCollisionHandler registers handler for its type pair, replacing any
// handler registered for the same unordered pair. Nil callbacks are filled
// with the builtin defaults.
//
// Cached arbiters keep the handler they were bound to until their next update.
// One that separates before then runs the replaced handler's SeparateFunc.
func (r *HandlerRegistry) SetCollisionHandler(handler *CollisionHandler) {
	wildcard := handler.TypeA == WildcardCollisionType || handler.TypeB == WildcardCollisionType
	if wildcard {
		r.UseWildcardDefaultHandler()
	}

	if handler.BeginFunc == nil {
		if wildcard {
			handler.BeginFunc = AlwaysCollide
		} else {
			handler.BeginFunc = DefaultBegin
		}
	}
	if handler.PreSolveFunc == nil {
		if wildcard {
			handler.PreSolveFunc = AlwaysCollide
		} else {
			handler.PreSolveFunc = DefaultPreSolve
		}
	}
	if handler.PostSolveFunc == nil {
		if wildcard {
			handler.PostSolveFunc = DoNothing
		} else {
			handler.PostSolveFunc = DefaultPostSolve
		}
	}
	if handler.SeparateFunc == nil {
		if wildcard {
			handler.SeparateFunc = DoNothing
		} else {
			handler.SeparateFunc = DefaultSeparate
		}
	}

	r.handlers.Replace(handlerHash(handler.TypeA, handler.TypeB), handler, handler)
}

// Resolve binds the handlers of arb from the collision types of its shapes.
//
// The main handler falls back to the default handler. The two side handlers
// are the wildcard handlers of each shape's type, ordered to match the main
// handler, and fall back to the do-nothing handler.
func (r *HandlerRegistry) Resolve(arb *Arbiter) {
	typeA := arb.shapeA.CollisionType
	typeB := arb.shapeB.CollisionType

	handler := r.LookupHandler(typeA, typeB, r.defaultHandler)
	arb.handler = handler

	// Check if the types match, but don't swap for a default handler which use the wildcard for type A.
	swapped := typeA != handler.TypeA && handler.TypeA != WildcardCollisionType
	arb.swapped = swapped

	if handler != r.defaultHandler || r.usesWildcards {
		// The order of the main handler swaps the wildcard handlers too.
		if swapped {
			arb.handlerA = r.LookupHandler(typeB, WildcardCollisionType, &r.doNothing)
			arb.handlerB = r.LookupHandler(typeA, WildcardCollisionType, &r.doNothing)
		} else {
			arb.handlerA = r.LookupHandler(typeA, WildcardCollisionType, &r.doNothing)
			arb.handlerB = r.LookupHandler(typeB, WildcardCollisionType, &r.doNothing)
		}
	} else {
		arb.handlerA = &r.doNothing
		arb.handlerB = &r.doNothing
	}
}
