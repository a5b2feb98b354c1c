package cmcache

import "fmt"

// AddCachedArbiter puts a detached arbiter back into the space.
//
// The contacts of arb are copied verbatim into the current contact buffer, arb
// is cached under its shape pair, its handlers are resolved again from the
// collision types of its shapes and it is appended to the active arbiter list.
// The detached storage is dropped afterwards. Stamp and first-contact state are
// kept as they are.
//
// Nothing is changed when an error is returned. ErrInvalidReference means a
// shape of arb is no longer in the space, ErrDuplicateArbiter that the pair
// already has a cached arbiter.
func (s *Space) AddCachedArbiter(arb *Arbiter) error {
	s.assertUnlocked()

	if err := s.checkCachedArbiter(arb); err != nil {
		return err
	}

	pool := s.contactBuffers
	stamp := max(s.stamp, arb.stamp)
	switch head := pool.Head(); {
	case head == nil:
		pool.PushFreshBuffer(stamp, max(s.CollisionPersistence, 1))
	case head.stamp < stamp:
		// The buffer has to live at least as long as the arbiter.
		pool.ChainBuffer(stamp)
	case head.numContacts+MaxContactsPerArbiter > len(head.contacts):
		// Restored arbiters may be older than the head, so never recycle here.
		pool.ChainBuffer(head.stamp)
	}

	contacts := pool.CurrentArray()[:arb.count]
	copy(contacts, arb.contacts[:arb.count])
	pool.PushContacts(arb.count)

	arb.bodyA = arb.shapeA.Body
	arb.bodyB = arb.shapeB.Body

	if err := s.cachedArbiters.Insert(arb); err != nil {
		pool.PopContacts(arb.count)
		return err
	}

	arb.contacts = contacts
	arb.detached = false
	arb.updateMaterial()
	s.handlers.Resolve(arb)

	s.Arbiters = append(s.Arbiters, arb)
	return nil
}

func (s *Space) checkCachedArbiter(arb *Arbiter) error {
	if arb == nil {
		return fmt.Errorf("%w: nil arbiter", ErrInvalidArbiter)
	}
	a, b := arb.shapeA, arb.shapeB
	if a == nil || b == nil || a == b {
		return fmt.Errorf("%w: arbiter needs two distinct shapes", ErrInvalidArbiter)
	}
	if arb.count < 0 || arb.count > MaxContactsPerArbiter || arb.count > len(arb.contacts) {
		return fmt.Errorf("%w: %d contacts", ErrInvalidArbiter, arb.count)
	}
	if !s.ContainsShape(a) {
		return fmt.Errorf("%w: shape %d", ErrInvalidReference, a.hashid)
	}
	if !s.ContainsShape(b) {
		return fmt.Errorf("%w: shape %d", ErrInvalidReference, b.hashid)
	}
	if cached := s.cachedArbiters.Find(a, b); cached != nil {
		if cached == arb {
			return fmt.Errorf("%w: arbiter for shapes %d and %d is already cached", ErrDuplicateArbiter, a.hashid, b.hashid)
		}
		return fmt.Errorf("%w: shapes %d and %d", ErrDuplicateArbiter, a.hashid, b.hashid)
	}
	return nil
}
