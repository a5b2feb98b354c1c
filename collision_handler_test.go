package cmcache_test

import (
	"testing"

	"github.com/setanarut/cmcache"
	"github.com/setanarut/vec"
)

const (
	typeA cmcache.CollisionType = iota + 1
	typeB
	typeC
)

func TestLookupHandlerIsSymmetric(t *testing.T) {
	r := cmcache.NewHandlerRegistry()
	h := r.AddCollisionHandler(typeB, typeC)

	if r.LookupHandler(typeB, typeC, nil) != h || r.LookupHandler(typeC, typeB, nil) != h {
		t.Error("lookup depends on the argument order")
	}
	if r.LookupHandler(typeA, typeB, r.Default()) != r.Default() {
		t.Error("unregistered pair did not fall back")
	}
	if r.AddCollisionHandler(typeC, typeB) != h || r.Count() != 1 {
		t.Error("adding the reversed pair created a second handler")
	}
}

func TestSetCollisionHandlerReplaces(t *testing.T) {
	r := cmcache.NewHandlerRegistry()
	r.AddCollisionHandler(typeA, typeB)

	h := &cmcache.CollisionHandler{TypeA: typeB, TypeB: typeA}
	r.SetCollisionHandler(h)
	if r.LookupHandler(typeA, typeB, nil) != h || r.Count() != 1 {
		t.Error("handler was not replaced")
	}
	if h.BeginFunc == nil || h.PreSolveFunc == nil || h.PostSolveFunc == nil || h.SeparateFunc == nil {
		t.Error("missing callbacks were not filled in")
	}
}

func TestMatchPrecedence(t *testing.T) {
	r := cmcache.NewHandlerRegistry()
	wildA := r.AddWildcardCollisionHandler(typeA)
	pairBC := r.AddCollisionHandler(typeB, typeC)
	fallback := r.Default()

	tests := []struct {
		a, b    cmcache.CollisionType
		want    *cmcache.CollisionHandler
		swapped bool
	}{
		{typeB, typeC, pairBC, false},
		{typeC, typeB, pairBC, true},
		{typeA, typeC, wildA, false},
		{typeB, typeA, wildA, true},
		{typeC, typeC, fallback, false},
	}
	for _, tt := range tests {
		got, swapped := r.Match(tt.a, tt.b, fallback)
		if got != tt.want || swapped != tt.swapped {
			t.Errorf("Match(%d, %d) = %p, %v; want %p, %v", tt.a, tt.b, got, swapped, tt.want, tt.swapped)
		}
	}
}

func shapeOfType(space *cmcache.Space, ct cmcache.CollisionType, x float64) *cmcache.Shape {
	body := cmcache.NewBody(1, 1)
	body.SetPosition(vec.Vec2{X: x})
	shape := cmcache.NewCircleShape(body, 1, vec.Vec2{})
	shape.CollisionType = ct
	space.AddBodyWithShapes(body)
	return shape
}

func TestResolveWildcardFallback(t *testing.T) {
	space := cmcache.NewSpace()
	r := space.Handlers()
	wildA := r.AddWildcardCollisionHandler(typeA)
	r.AddCollisionHandler(typeB, typeC)

	var first *cmcache.Shape
	wildA.BeginFunc = func(arb *cmcache.Arbiter, _ *cmcache.Space, _ any) bool {
		first, _ = arb.Shapes()
		return true
	}

	sB := shapeOfType(space, typeB, 0)
	sA := shapeOfType(space, typeA, 1.5)
	arb := cmcache.NewArbiter(sB, sA)
	r.Resolve(arb)

	handler, handlerA, handlerB := arb.Handlers()
	if handler != r.Default() {
		t.Error("main handler is not the default")
	}
	if matched, _ := r.Match(typeB, typeA, r.Default()); matched != wildA {
		t.Error("Match did not prefer the wildcard handler")
	}
	if arb.Swapped() {
		t.Error("default handler swapped the shapes")
	}
	if handlerA != r.DoNothing() || handlerB != wildA {
		t.Error("side handlers do not follow the shape order")
	}

	if !handler.BeginFunc(arb, space, handler.UserData) {
		t.Fatal("default begin rejected the collision")
	}
	if first != sA {
		t.Error("wildcard callback did not see its own shape first")
	}
}

func TestResolveSwapped(t *testing.T) {
	space := cmcache.NewSpace()
	r := space.Handlers()
	wildC := r.AddWildcardCollisionHandler(typeC)
	pairBC := r.AddCollisionHandler(typeB, typeC)

	sC := shapeOfType(space, typeC, 0)
	sB := shapeOfType(space, typeB, 1.5)
	arb := cmcache.NewArbiter(sC, sB)
	r.Resolve(arb)

	handler, handlerA, handlerB := arb.Handlers()
	if handler != pairBC || !arb.Swapped() {
		t.Fatal("reversed pair did not resolve to the swapped pair handler")
	}
	if handlerA != r.DoNothing() || handlerB != wildC {
		t.Error("side handlers were not swapped with the main handler")
	}
	if a, b := arb.Shapes(); a != sB || b != sC {
		t.Error("Shapes does not follow the handler order")
	}
}

func TestResolveWithoutWildcards(t *testing.T) {
	space := cmcache.NewSpace()
	r := space.Handlers()
	s1 := shapeOfType(space, typeA, 0)
	s2 := shapeOfType(space, typeB, 1.5)
	arb := cmcache.NewArbiter(s1, s2)
	r.Resolve(arb)

	handler, handlerA, handlerB := arb.Handlers()
	if handler != r.Default() || handler != r.DoNothing() {
		t.Error("unregistered pair did not resolve to the do-nothing default")
	}
	if handlerA != r.DoNothing() || handlerB != r.DoNothing() || r.UsesWildcards() {
		t.Error("side handlers were resolved without wildcards")
	}
}
