package cmcache

import (
	"runtime"
	"testing"

	"github.com/setanarut/vec"
)

func expectPanic(t *testing.T, name string, f func()) {
	t.Helper()
	defer func() {
		switch r := recover().(type) {
		case nil:
			t.Errorf("%s did not panic", name)
		case runtime.Error:
			t.Errorf("%s panicked with a runtime error: %v", name, r)
		}
	}()
	f()
}

func TestContactBufferChainingKeepsContacts(t *testing.T) {
	pool := NewContactBufferPool(4)
	pool.PushFreshBuffer(1, 1)

	var claimed [][]Contact
	for i := range 5 {
		arr := pool.CurrentArray()
		arr[0].Point = vec.Vec2{X: float64(i), Y: 1}
		arr[1].Point = vec.Vec2{X: float64(i), Y: 2}
		pool.PushContacts(2)
		claimed = append(claimed, arr)
	}

	if pool.BufferCount() != 3 {
		t.Errorf("got %d buffers, want 3", pool.BufferCount())
	}
	for i, arr := range claimed {
		if arr[0].Point != (vec.Vec2{X: float64(i), Y: 1}) || arr[1].Point != (vec.Vec2{X: float64(i), Y: 2}) {
			t.Errorf("contacts of pair %d changed to %v", i, arr)
		}
	}
}

func TestContactBufferCurrentArrayIsCapped(t *testing.T) {
	pool := NewContactBufferPool(8)
	pool.PushFreshBuffer(1, 1)

	arr := pool.CurrentArray()
	if len(arr) != MaxContactsPerArbiter || cap(arr) != MaxContactsPerArbiter {
		t.Fatalf("got len %d cap %d, want %d", len(arr), cap(arr), MaxContactsPerArbiter)
	}
	pool.PushContacts(1)
	if next := pool.CurrentArray(); &next[0] != &arr[1] {
		t.Error("write position did not advance by the pushed count")
	}
}

func TestPushFreshBufferRecyclesStaleTail(t *testing.T) {
	pool := NewContactBufferPool(4)

	pool.PushFreshBuffer(1, 1)
	first := pool.Head()
	pool.PushContacts(2)

	pool.PushFreshBuffer(2, 1)
	if pool.BufferCount() != 2 || pool.Head() == first {
		t.Fatalf("buffer of step 1 was recycled at step 2")
	}

	pool.PushFreshBuffer(3, 1)
	if pool.BufferCount() != 2 {
		t.Errorf("got %d buffers, want 2", pool.BufferCount())
	}
	if pool.Head() != first || first.Stamp() != 3 || first.Used() != 0 {
		t.Errorf("buffer of step 1 was not recycled at step 3")
	}
}

func TestPushFreshBufferKeepsBuffersWithinPersistence(t *testing.T) {
	pool := NewContactBufferPool(4)
	for stamp := uint(1); stamp <= 4; stamp++ {
		pool.PushFreshBuffer(stamp, 3)
	}
	if pool.BufferCount() != 4 {
		t.Errorf("got %d buffers, want 4", pool.BufferCount())
	}
}

func TestCurrentArrayRecyclesStaleBufferOnOverflow(t *testing.T) {
	pool := NewContactBufferPool(2)

	// Step 1 fills two buffers.
	pool.PushFreshBuffer(1, 1)
	pool.CurrentArray()
	pool.PushContacts(2)
	pool.CurrentArray()
	second := pool.Head()
	pool.PushContacts(2)

	pool.PushFreshBuffer(2, 1)
	pool.CurrentArray()
	pool.PushContacts(2)
	if pool.BufferCount() != 3 {
		t.Fatalf("got %d buffers after step 2, want 3", pool.BufferCount())
	}

	// Step 3 reuses both buffers of step 1, the second one on overflow.
	pool.PushFreshBuffer(3, 1)
	kept := pool.CurrentArray()
	kept[0].Point = vec.Vec2{X: 7}
	pool.PushContacts(2)
	pool.CurrentArray()

	if pool.BufferCount() != 3 {
		t.Errorf("overflow allocated a buffer, %d in the ring", pool.BufferCount())
	}
	if pool.Head() != second || second.Stamp() != 3 || second.Used() != 0 {
		t.Error("overflow did not recycle the stale buffer of step 1")
	}
	if kept[0].Point != (vec.Vec2{X: 7}) {
		t.Error("overflow clobbered contacts claimed in the same step")
	}
}

func TestContactBufferMisuse(t *testing.T) {
	expectPanic(t, "CurrentArray without a buffer", func() {
		NewContactBufferPool(4).CurrentArray()
	})
	expectPanic(t, "PushContacts without a buffer", func() {
		NewContactBufferPool(4).PushContacts(1)
	})
	expectPanic(t, "PopContacts without a buffer", func() {
		NewContactBufferPool(4).PopContacts(1)
	})
	expectPanic(t, "capacity below the contact maximum", func() {
		NewContactBufferPool(1).PushFreshBuffer(1, 1)
	})

	pool := NewContactBufferPool(2)
	pool.PushFreshBuffer(1, 1)
	expectPanic(t, "push past capacity", func() {
		pool.PushContacts(3)
	})
	expectPanic(t, "pop from an empty buffer", func() {
		pool.PopContacts(1)
	})
}

func TestContactBufferRelease(t *testing.T) {
	pool := NewContactBufferPool(4)
	pool.PushFreshBuffer(1, 1)
	pool.PushFreshBuffer(2, 1)
	pool.Release()
	if pool.Head() != nil || pool.BufferCount() != 0 {
		t.Error("release kept buffers")
	}
}
