// Package batch reads body and arbiter state of a space into flat buffers.
//
// Integer fields go to Buffer.Ints and floating point fields to
// Buffer.Floats, in the order of the field selection, one record after the
// other. Vectors take two floats, X then Y.
package batch

import (
	"errors"

	"github.com/setanarut/cmcache"
	"github.com/setanarut/vec"
)

// ErrShortBuffer is returned by SetSpaceBodies when the buffer holds fewer
// values than the selected fields of every body need.
var ErrShortBuffer = errors.New("batch: buffer too short")

// BodyFields selects the body fields to read or write.
type BodyFields struct {
	ID              bool // Body.ID, in Ints
	Position        bool
	Angle           bool
	Velocity        bool
	AngularVelocity bool
	Force           bool
	Torque          bool
}

// AllBodyFields selects every body field.
var AllBodyFields = BodyFields{true, true, true, true, true, true, true}

// ArbiterFields selects the arbiter fields to read.
type ArbiterFields struct {
	BodyAID        bool // in Ints
	BodyBID        bool // in Ints
	TotalImpulse   bool
	TotalKE        bool
	IsFirstContact bool // 0 or 1, in Ints
	Normal         bool
	ContactCount   bool // in Ints
	PointA1        bool
	PointB1        bool
	Distance1      bool
	PointA2        bool
	PointB2        bool
	Distance2      bool
}

// AllArbiterFields selects every arbiter field.
var AllArbiterFields = ArbiterFields{true, true, true, true, true, true, true, true, true, true, true, true, true}

// Buffer holds batched data. Reuse it between calls with Clear.
type Buffer struct {
	Ints   []int
	Floats []float64
}

// Clear empties the buffer and keeps its storage.
func (b *Buffer) Clear() {
	b.Ints = b.Ints[:0]
	b.Floats = b.Floats[:0]
}

func (b *Buffer) pushInt(v int) {
	b.Ints = append(b.Ints, v)
}

func (b *Buffer) pushBool(v bool) {
	if v {
		b.Ints = append(b.Ints, 1)
	} else {
		b.Ints = append(b.Ints, 0)
	}
}

func (b *Buffer) pushFloat(v float64) {
	b.Floats = append(b.Floats, v)
}

func (b *Buffer) pushVec(v vec.Vec2) {
	b.Floats = append(b.Floats, v.X, v.Y)
}

type bodyField struct {
	selected func(BodyFields) bool
	get      func(*cmcache.Body, *Buffer)
}

var bodyFields = []bodyField{
	{
		func(f BodyFields) bool { return f.ID },
		func(body *cmcache.Body, buf *Buffer) { buf.pushInt(body.ID()) },
	},
	{
		func(f BodyFields) bool { return f.Position },
		func(body *cmcache.Body, buf *Buffer) { buf.pushVec(body.Position()) },
	},
	{
		func(f BodyFields) bool { return f.Angle },
		func(body *cmcache.Body, buf *Buffer) { buf.pushFloat(body.Angle()) },
	},
	{
		func(f BodyFields) bool { return f.Velocity },
		func(body *cmcache.Body, buf *Buffer) { buf.pushVec(body.Velocity()) },
	},
	{
		func(f BodyFields) bool { return f.AngularVelocity },
		func(body *cmcache.Body, buf *Buffer) { buf.pushFloat(body.AngularVelocity()) },
	},
	{
		func(f BodyFields) bool { return f.Force },
		func(body *cmcache.Body, buf *Buffer) { buf.pushVec(body.Force()) },
	},
	{
		func(f BodyFields) bool { return f.Torque },
		func(body *cmcache.Body, buf *Buffer) { buf.pushFloat(body.Torque()) },
	},
}

// point returns contact i of arb, or zero values when arb has fewer contacts.
func point(arb *cmcache.Arbiter, i int) (a, b vec.Vec2, distance float64) {
	if i >= arb.Count() {
		return
	}
	return arb.PointA(i), arb.PointB(i), arb.Distance(i)
}

type arbiterField struct {
	selected func(ArbiterFields) bool
	get      func(*cmcache.Arbiter, *Buffer)
}

var arbiterFields = []arbiterField{
	{
		func(f ArbiterFields) bool { return f.BodyAID },
		func(arb *cmcache.Arbiter, buf *Buffer) {
			a, _ := arb.Bodies()
			buf.pushInt(a.ID())
		},
	},
	{
		func(f ArbiterFields) bool { return f.BodyBID },
		func(arb *cmcache.Arbiter, buf *Buffer) {
			_, b := arb.Bodies()
			buf.pushInt(b.ID())
		},
	},
	{
		func(f ArbiterFields) bool { return f.TotalImpulse },
		func(arb *cmcache.Arbiter, buf *Buffer) { buf.pushVec(arb.TotalImpulse()) },
	},
	{
		func(f ArbiterFields) bool { return f.TotalKE },
		func(arb *cmcache.Arbiter, buf *Buffer) { buf.pushFloat(arb.TotalKE()) },
	},
	{
		func(f ArbiterFields) bool { return f.IsFirstContact },
		func(arb *cmcache.Arbiter, buf *Buffer) { buf.pushBool(arb.IsFirstContact()) },
	},
	{
		func(f ArbiterFields) bool { return f.Normal },
		func(arb *cmcache.Arbiter, buf *Buffer) { buf.pushVec(arb.Normal()) },
	},
	{
		func(f ArbiterFields) bool { return f.ContactCount },
		func(arb *cmcache.Arbiter, buf *Buffer) { buf.pushInt(arb.Count()) },
	},
	{
		func(f ArbiterFields) bool { return f.PointA1 },
		func(arb *cmcache.Arbiter, buf *Buffer) {
			a, _, _ := point(arb, 0)
			buf.pushVec(a)
		},
	},
	{
		func(f ArbiterFields) bool { return f.PointB1 },
		func(arb *cmcache.Arbiter, buf *Buffer) {
			_, b, _ := point(arb, 0)
			buf.pushVec(b)
		},
	},
	{
		func(f ArbiterFields) bool { return f.Distance1 },
		func(arb *cmcache.Arbiter, buf *Buffer) {
			_, _, d := point(arb, 0)
			buf.pushFloat(d)
		},
	},
	{
		func(f ArbiterFields) bool { return f.PointA2 },
		func(arb *cmcache.Arbiter, buf *Buffer) {
			a, _, _ := point(arb, 1)
			buf.pushVec(a)
		},
	},
	{
		func(f ArbiterFields) bool { return f.PointB2 },
		func(arb *cmcache.Arbiter, buf *Buffer) {
			_, b, _ := point(arb, 1)
			buf.pushVec(b)
		},
	},
	{
		func(f ArbiterFields) bool { return f.Distance2 },
		func(arb *cmcache.Arbiter, buf *Buffer) {
			_, _, d := point(arb, 1)
			buf.pushFloat(d)
		},
	},
}

// GetSpaceBodies appends the selected fields of every body in space to buf.
func GetSpaceBodies(space *cmcache.Space, fields BodyFields, buf *Buffer) {
	space.EachBody(func(body *cmcache.Body) {
		for _, f := range bodyFields {
			if f.selected(fields) {
				f.get(body, buf)
			}
		}
	})
}

// GetSpaceArbiters appends the selected fields of every cached arbiter in
// space to buf. Contact fields of missing contacts are zero.
func GetSpaceArbiters(space *cmcache.Space, fields ArbiterFields, buf *Buffer) {
	space.EachCachedArbiter(func(arb *cmcache.Arbiter) {
		for _, f := range arbiterFields {
			if f.selected(fields) {
				f.get(arb, buf)
			}
		}
	})
}

// SetSpaceBodies writes the selected fields from buf back to the bodies of
// space, in the layout GetSpaceBodies produces for the same fields. Body ids
// cannot be written, so fields.ID is ignored and buf.Ints is not read.
func SetSpaceBodies(space *cmcache.Space, fields BodyFields, buf *Buffer) error {
	r := reader{floats: buf.Floats}
	space.EachBody(func(body *cmcache.Body) {
		if fields.Position {
			if v, ok := r.vec(); ok {
				body.SetPosition(v)
			}
		}
		if fields.Angle {
			if f, ok := r.float(); ok {
				body.SetAngle(f)
			}
		}
		if fields.Velocity {
			if v, ok := r.vec(); ok {
				body.SetVelocity(v)
			}
		}
		if fields.AngularVelocity {
			if f, ok := r.float(); ok {
				body.SetAngularVelocity(f)
			}
		}
		if fields.Force {
			if v, ok := r.vec(); ok {
				body.SetForce(v)
			}
		}
		if fields.Torque {
			if f, ok := r.float(); ok {
				body.SetTorque(f)
			}
		}
	})
	if r.short {
		return ErrShortBuffer
	}
	return nil
}

type reader struct {
	floats []float64
	short  bool
}

func (r *reader) float() (float64, bool) {
	if len(r.floats) < 1 {
		r.short = true
		return 0, false
	}
	f := r.floats[0]
	r.floats = r.floats[1:]
	return f, true
}

func (r *reader) vec() (vec.Vec2, bool) {
	if len(r.floats) < 2 {
		r.short = true
		r.floats = r.floats[:0]
		return vec.Vec2{}, false
	}
	v := vec.Vec2{X: r.floats[0], Y: r.floats[1]}
	r.floats = r.floats[2:]
	return v, true
}

// BodyPositions returns the position of every body in space.
func BodyPositions(space *cmcache.Space) []vec.Vec2 {
	positions := make([]vec.Vec2, 0, space.BodyCount())
	space.EachBody(func(body *cmcache.Body) {
		positions = append(positions, body.Position())
	})
	return positions
}
