package cmcache_test

import (
	"errors"
	"testing"

	"github.com/setanarut/cmcache"
	"github.com/setanarut/vec"
)

// newPair returns a space with two overlapping unit circles on separate bodies.
func newPair(typeA, typeB cmcache.CollisionType) (*cmcache.Space, *cmcache.Shape, *cmcache.Shape) {
	space := cmcache.NewSpace()

	b1 := cmcache.NewBody(1, 1)
	s1 := cmcache.NewCircleShape(b1, 1, vec.Vec2{})
	s1.CollisionType = typeA
	space.AddBodyWithShapes(b1)

	b2 := cmcache.NewBody(1, 1)
	b2.SetPosition(vec.Vec2{X: 1.5})
	s2 := cmcache.NewCircleShape(b2, 1, vec.Vec2{})
	s2.CollisionType = typeB
	space.AddBodyWithShapes(b2)

	return space, s1, s2
}

func TestSpaceAddShapeAssignsIDs(t *testing.T) {
	space, s1, s2 := newPair(1, 2)
	if s1.HashID() != 1 || s2.HashID() != 2 {
		t.Errorf("got ids %d and %d, want 1 and 2", s1.HashID(), s2.HashID())
	}
	if space.ShapeByID(2) != s2 {
		t.Error("ShapeByID(2) did not return the second shape")
	}
	if space.ShapeIDCounter() != 3 {
		t.Errorf("got counter %d, want 3", space.ShapeIDCounter())
	}
}

func TestSpaceAddShapeSkipsUsedIDs(t *testing.T) {
	space, _, _ := newPair(1, 2)
	space.SetShapeIDCounter(1)

	b := cmcache.NewBody(1, 1)
	s := cmcache.NewCircleShape(b, 1, vec.Vec2{X: 50})
	space.AddBodyWithShapes(b)
	if s.HashID() != 3 {
		t.Errorf("got id %d, want 3", s.HashID())
	}
}

func TestSpaceSetShapeHashID(t *testing.T) {
	space, s1, s2 := newPair(1, 2)

	if err := space.SetShapeHashID(s1, 2); !errors.Is(err, cmcache.ErrShapeIDInUse) {
		t.Errorf("got %v, want ErrShapeIDInUse", err)
	}
	if err := space.SetShapeHashID(s1, 10); err != nil {
		t.Fatal(err)
	}
	if space.ShapeByID(10) != s1 || space.ShapeByID(1) != nil {
		t.Error("shape index was not updated")
	}
	if space.ShapeIDCounter() != 11 {
		t.Errorf("got counter %d, want 11", space.ShapeIDCounter())
	}

	space.Step(1)
	if err := space.SetShapeHashID(s2, 20); !errors.Is(err, cmcache.ErrShapeBusy) {
		t.Errorf("got %v, want ErrShapeBusy", err)
	}

	other := cmcache.NewCircleShape(cmcache.NewBody(1, 1), 1, vec.Vec2{})
	if err := space.SetShapeHashID(other, 30); !errors.Is(err, cmcache.ErrInvalidReference) {
		t.Errorf("got %v, want ErrInvalidReference", err)
	}
}

func TestSpaceArbiterLifecycle(t *testing.T) {
	space, s1, s2 := newPair(1, 2)
	space.SetTimestamp(9)

	space.Step(1)
	arb := space.CachedArbiters().Find(s1, s2)
	if arb == nil {
		t.Fatal("no arbiter after the first touch")
	}
	if arb.Stamp() != 10 || !arb.IsFirstContact() || arb.Count() != 1 {
		t.Errorf("got stamp %d first %v count %d", arb.Stamp(), arb.IsFirstContact(), arb.Count())
	}

	s2.Body.SetPosition(vec.Vec2{X: 1.51})
	space.Step(1)
	if got := space.CachedArbiters().Find(s2, s1); got != arb {
		t.Fatal("touching again did not reuse the arbiter")
	}
	if arb.Stamp() != 11 || arb.IsFirstContact() {
		t.Errorf("got stamp %d first %v", arb.Stamp(), arb.IsFirstContact())
	}

	s2.Body.SetPosition(vec.Vec2{X: 10})
	space.Step(1)
	if space.CachedArbiters().Find(s1, s2) != nil {
		t.Error("arbiter survived a step without contact")
	}
	space.Step(1)
	if space.CachedArbiters().Count() != 0 {
		t.Errorf("cache holds %d arbiters", space.CachedArbiters().Count())
	}
}

func TestSpaceKeepsTouchingArbiters(t *testing.T) {
	space, s1, s2 := newPair(1, 2)
	space.Step(1)
	arb := space.CachedArbiters().Find(s1, s2)
	for range 50 {
		space.Step(1)
		if space.CachedArbiters().Find(s1, s2) != arb {
			t.Fatal("arbiter of touching shapes was replaced")
		}
	}
	if space.CachedArbiters().Count() != 1 {
		t.Errorf("cache holds %d arbiters, want 1", space.CachedArbiters().Count())
	}
	if space.ContactBuffers().BufferCount() > 3 {
		t.Errorf("contact buffers were not recycled, %d in use", space.ContactBuffers().BufferCount())
	}
}

func TestSpaceContactBuffersStayBoundedOnOverflow(t *testing.T) {
	space := cmcache.NewSpace()
	// One arbiter per buffer, so every step overflows twice.
	space.ContactBuffers().Capacity = 2

	// Four circles in a row touch pairwise.
	for i := range 4 {
		body := cmcache.NewBody(1, 1)
		body.SetPosition(vec.Vec2{X: 1.5 * float64(i)})
		cmcache.NewCircleShape(body, 1, vec.Vec2{})
		space.AddBodyWithShapes(body)
	}

	for step := range 200 {
		space.Step(1)
		if n := space.CachedArbiters().Count(); n != 3 {
			t.Fatalf("step %d: cache holds %d arbiters, want 3", step, n)
		}
		if n := space.ContactBuffers().BufferCount(); n > 8 {
			t.Fatalf("step %d: contact buffers were not recycled, %d in use", step, n)
		}
	}
}

func TestSpaceReplacedHandlerSeparatesCachedArbiter(t *testing.T) {
	space, _, s2 := newPair(1, 2)

	var oldSeparated, newSeparated int
	old := space.AddCollisionHandler(1, 2)
	old.SeparateFunc = func(*cmcache.Arbiter, *cmcache.Space, any) { oldSeparated++ }
	space.Step(1)

	space.SetCollisionHandler(&cmcache.CollisionHandler{
		TypeA:        1,
		TypeB:        2,
		SeparateFunc: func(*cmcache.Arbiter, *cmcache.Space, any) { newSeparated++ },
	})
	s2.Body.SetPosition(vec.Vec2{X: 10})
	space.Step(1)

	if oldSeparated != 1 || newSeparated != 0 {
		t.Errorf("got old %d and new %d separate calls, want 1 and 0", oldSeparated, newSeparated)
	}
}

func TestSpaceCollisionPersistence(t *testing.T) {
	space, s1, s2 := newPair(1, 2)
	space.CollisionPersistence = 3

	var separated int
	h := space.AddCollisionHandler(1, 2)
	h.SeparateFunc = func(*cmcache.Arbiter, *cmcache.Space, any) { separated++ }

	space.Step(1)
	s2.Body.SetPosition(vec.Vec2{X: 10})
	space.Step(1)
	space.Step(1)
	arb := space.CachedArbiters().Find(s1, s2)
	if arb == nil {
		t.Fatal("arbiter evicted before the persistence ran out")
	}
	if arb.State() != cmcache.ArbiterStateCached || arb.Count() != 0 {
		t.Errorf("got state %d count %d", arb.State(), arb.Count())
	}
	space.Step(1)
	if space.CachedArbiters().Find(s1, s2) != nil {
		t.Error("arbiter outlived the persistence")
	}
	if separated != 1 {
		t.Errorf("separate called %d times, want 1", separated)
	}
}

func TestSpaceRemoveShapeInvalidatesArbiters(t *testing.T) {
	space, s1, s2 := newPair(1, 2)

	var removed *cmcache.Arbiter
	h := space.AddCollisionHandler(1, 2)
	h.SeparateFunc = func(arb *cmcache.Arbiter, _ *cmcache.Space, _ any) { removed = arb }

	space.Step(1)
	arb := space.CachedArbiters().Find(s1, s2)
	space.RemoveShape(s2)

	if removed != arb || arb.State() != cmcache.ArbiterStateInvalidated {
		t.Error("removing a shape did not invalidate its arbiter")
	}
	if space.CachedArbiters().Count() != 0 || len(space.Arbiters) != 0 {
		t.Error("arbiter of a removed shape is still reachable")
	}
	if space.ShapeByID(2) != nil {
		t.Error("removed shape is still indexed")
	}
}

func TestSpaceBeginRejectsCollision(t *testing.T) {
	space, s1, s2 := newPair(1, 2)
	h := space.AddCollisionHandler(1, 2)
	h.BeginFunc = func(*cmcache.Arbiter, *cmcache.Space, any) bool { return false }

	space.Step(1)
	arb := space.CachedArbiters().Find(s1, s2)
	if arb == nil || arb.State() != cmcache.ArbiterStateIgnore {
		t.Fatal("rejected arbiter is not cached as ignored")
	}
	if len(space.Arbiters) != 0 || space.ContactBuffers().Head().Used() != 0 {
		t.Error("rejected contacts were kept")
	}
}

type recordingSolver struct {
	calls  int
	dtCoef float64
	count  int
}

func (s *recordingSolver) Solve(_ *cmcache.Space, arbiters []*cmcache.Arbiter, _, dtCoef float64) {
	s.calls++
	s.dtCoef = dtCoef
	s.count = len(arbiters)
}

func TestSpaceStepRunsSolver(t *testing.T) {
	space, _, _ := newPair(1, 2)
	solver := &recordingSolver{}
	space.Solver = solver

	space.Step(0)
	if solver.calls != 0 {
		t.Error("zero step ran the solver")
	}
	space.Step(0.5)
	space.Step(0.25)
	if solver.calls != 2 || solver.count != 1 || solver.dtCoef != 0.5 {
		t.Errorf("got %+v", solver)
	}
	if space.TimeStep() != 0.25 {
		t.Errorf("got time step %v", space.TimeStep())
	}
}

func TestSpacePostStepCallback(t *testing.T) {
	space, s1, s2 := newPair(1, 2)

	h := space.AddCollisionHandler(1, 2)
	h.PostSolveFunc = func(arb *cmcache.Arbiter, space *cmcache.Space, _ any) {
		a, _ := arb.Shapes()
		space.AddPostStepCallback(func(space *cmcache.Space, key, _ any) {
			space.RemoveShape(key.(*cmcache.Shape))
		}, a, nil)
		if space.AddPostStepCallback(nil, a, nil) {
			t.Error("second callback for the same key was accepted")
		}
	}

	space.Step(1)
	if space.ContainsShape(s1) || !space.ContainsShape(s2) {
		t.Error("post-step callback did not remove the shape")
	}
}

func TestSpaceLockedMutationPanics(t *testing.T) {
	space, s1, _ := newPair(1, 2)
	defer func() {
		if recover() == nil {
			t.Error("removing a shape from a locked space did not panic")
		}
	}()
	space.EachShape(func(*cmcache.Shape) {
		space.RemoveShape(s1)
	})
}

func TestSpaceEachBody(t *testing.T) {
	space, s1, s2 := newPair(1, 2)
	var bodies []*cmcache.Body
	space.EachBody(func(b *cmcache.Body) {
		bodies = append(bodies, b)
	})
	if len(bodies) != 2 || bodies[0] != s1.Body || bodies[1] != s2.Body {
		t.Errorf("got bodies %v", bodies)
	}
	space.RemoveBodyWithShapes(s1.Body)
	if space.BodyCount() != 1 || space.ShapeCount() != 1 {
		t.Errorf("got %d bodies %d shapes", space.BodyCount(), space.ShapeCount())
	}
}
