// Package snapshot saves and restores the cached arbiters of a space.
//
// Only contact state is captured. Handler bindings are resolved again from
// the collision types of the shapes on restore, so the space receiving a
// snapshot needs the same shapes, with the same ids, and the same handlers.
package snapshot

import (
	"errors"
	"fmt"
	"slices"

	"github.com/setanarut/cmcache"
	"github.com/setanarut/vec"
)

// Version of the snapshot layout written by Capture.
const Version = 1

var (
	// ErrUnsupportedVersion reports a snapshot written with an unknown layout.
	ErrUnsupportedVersion = errors.New("snapshot: unsupported version")
	// ErrCorrupt reports a snapshot that cannot be decoded or fails validation.
	ErrCorrupt = errors.New("snapshot: corrupt snapshot")
	// ErrNotFound reports a snapshot name that is not in the store.
	ErrNotFound = errors.New("snapshot: not found")
)

// ContactState is one persisted contact point.
type ContactState struct {
	Point  [2]float64 `json:"point"`
	Normal [2]float64 `json:"normal"`
	Depth  float64    `json:"depth"`
	JnAcc  float64    `json:"jnAcc"`
	JtAcc  float64    `json:"jtAcc"`
	Hash   uint64     `json:"hash"`
}

// ArbiterState is one persisted arbiter. ShapeA and ShapeB are shape ids in
// collision order.
type ArbiterState struct {
	ShapeA       uint64         `json:"shapeA"`
	ShapeB       uint64         `json:"shapeB"`
	Swapped      bool           `json:"swapped"`
	Stamp        uint           `json:"stamp"`
	FirstContact bool           `json:"firstContact"`
	Contacts     []ContactState `json:"contacts"`
}

// Snapshot is the persisted contact state of a space.
type Snapshot struct {
	Version        int            `json:"version"`
	Stamp          uint           `json:"stamp"`
	TimeStep       float64        `json:"timeStep"`
	ShapeIDCounter uint64         `json:"shapeIdCounter"`
	Arbiters       []ArbiterState `json:"arbiters"`
}

func toArray(v vec.Vec2) [2]float64 {
	return [2]float64{v.X, v.Y}
}

func fromArray(a [2]float64) vec.Vec2 {
	return vec.Vec2{X: a[0], Y: a[1]}
}

// Capture returns the cached arbiters of space, ordered by shape ids.
func Capture(space *cmcache.Space) *Snapshot {
	snap := &Snapshot{
		Version:        Version,
		Stamp:          space.Timestamp(),
		TimeStep:       space.TimeStep(),
		ShapeIDCounter: uint64(space.ShapeIDCounter()),
		Arbiters:       []ArbiterState{},
	}

	space.EachCachedArbiter(func(arb *cmcache.Arbiter) {
		a, b := arb.Pair()
		state := ArbiterState{
			ShapeA:       uint64(a.HashID()),
			ShapeB:       uint64(b.HashID()),
			Swapped:      arb.Swapped(),
			Stamp:        arb.Stamp(),
			FirstContact: arb.IsFirstContact(),
		}
		for _, con := range arb.Contacts() {
			state.Contacts = append(state.Contacts, ContactState{
				Point:  toArray(con.Point),
				Normal: toArray(con.Normal),
				Depth:  con.Depth,
				JnAcc:  con.JnAcc,
				JtAcc:  con.JtAcc,
				Hash:   uint64(con.Hash),
			})
		}
		snap.Arbiters = append(snap.Arbiters, state)
	})

	slices.SortFunc(snap.Arbiters, func(x, y ArbiterState) int {
		if x.ShapeA != y.ShapeA {
			return cmpUint(x.ShapeA, y.ShapeA)
		}
		return cmpUint(x.ShapeB, y.ShapeB)
	})
	return snap
}

func cmpUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Validate checks the layout version and the contact counts of snap.
func (snap *Snapshot) Validate() error {
	if snap.Version != Version {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, snap.Version)
	}
	for i, state := range snap.Arbiters {
		if len(state.Contacts) > cmcache.MaxContactsPerArbiter {
			return fmt.Errorf("%w: arbiter %d has %d contacts", ErrCorrupt, i, len(state.Contacts))
		}
		if state.ShapeA == state.ShapeB {
			return fmt.Errorf("%w: arbiter %d pairs shape %d with itself", ErrCorrupt, i, state.ShapeA)
		}
	}
	return nil
}

// Restore sets the step counter, time step and shape id counter of space and
// puts back every arbiter of snap. Arbiters whose shapes are missing or whose
// pair is already cached are skipped; their errors are joined in the returned
// error. It returns the number of restored arbiters.
func Restore(space *cmcache.Space, snap *Snapshot) (int, error) {
	if err := snap.Validate(); err != nil {
		return 0, err
	}

	space.SetTimestamp(snap.Stamp)
	space.SetCurrentTimeStep(snap.TimeStep)
	space.SetShapeIDCounter(cmcache.HashValue(snap.ShapeIDCounter))

	var errs []error
	restored := 0
	for _, state := range snap.Arbiters {
		if err := restoreArbiter(space, state, state.Stamp < snap.Stamp); err != nil {
			errs = append(errs, err)
			continue
		}
		restored++
	}
	return restored, errors.Join(errs...)
}

func restoreArbiter(space *cmcache.Space, state ArbiterState, separated bool) error {
	a := space.ShapeByID(cmcache.HashValue(state.ShapeA))
	if a == nil {
		return fmt.Errorf("%w: shape %d", cmcache.ErrInvalidReference, state.ShapeA)
	}
	b := space.ShapeByID(cmcache.HashValue(state.ShapeB))
	if b == nil {
		return fmt.Errorf("%w: shape %d", cmcache.ErrInvalidReference, state.ShapeB)
	}

	contacts := make([]cmcache.Contact, len(state.Contacts))
	for i, con := range state.Contacts {
		contacts[i] = cmcache.Contact{
			Point:  fromArray(con.Point),
			Normal: fromArray(con.Normal),
			Depth:  con.Depth,
			JnAcc:  con.JnAcc,
			JtAcc:  con.JtAcc,
			Hash:   cmcache.HashValue(con.Hash),
		}
	}

	arb := cmcache.NewArbiter(a, b)
	arb.SetDetachedContacts(contacts)
	arb.SetStamp(state.Stamp)
	arb.SetFirstContact(state.FirstContact)
	if separated {
		arb.SetSeparated()
	}
	return space.AddCachedArbiter(arb)
}
