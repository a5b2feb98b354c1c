package cmcache

import (
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/setanarut/vec"
)

// BodyType for bodies; Dynamic, Kinematic or Static
type BodyType uint8

const (
	Dynamic   BodyType = 0
	Kinematic BodyType = 1
	Static    BodyType = 2
)

var bodyCur atomic.Int64

// Body is the rigid body state read by the contact cache. Integrating it is
// left to the surrounding engine.
type Body struct {
	// UserData is an object that this body is associated with.
	//
	// You can use this get a reference to your game object or controller object from within callbacks.
	UserData any
	Space    *Space
	Shapes   []*Shape

	id                     int
	bodyType               BodyType
	mass                   float64
	massInverse            float64
	momentOfInertia        float64
	momentOfInertiaInverse float64
	angle                  float64 // Angle (radians)
	w                      float64 // Angular velocity
	torque                 float64
	position               vec.Vec2
	velocity               vec.Vec2
	force                  vec.Vec2
}

// String returns body id as string
func (b Body) String() string {
	return fmt.Sprint("Body ", b.id, ", Shapes ", b.Shapes)
}

// NewBody Initializes a rigid body with the given mass and moment of inertia.
func NewBody(mass, moment float64) *Body {
	body := &Body{
		id: int(bodyCur.Add(1) - 1),
	}
	body.SetMass(mass)
	body.SetMoment(moment)
	return body
}

// NewStaticBody allocates and initializes a Body, and set it as a static body.
func NewStaticBody() *Body {
	body := NewBody(0, 0)
	body.SetType(Static)
	return body
}

// NewKinematicBody allocates and initializes a Body, and set it as a kinematic body.
func NewKinematicBody() *Body {
	body := NewBody(0, 0)
	body.SetType(Kinematic)
	return body
}

// ID returns the process-unique id of the body.
func (body *Body) ID() int {
	return body.id
}

// ShapeAtIndex returns shape at index attached to this body
func (body *Body) ShapeAtIndex(index int) *Shape {
	return body.Shapes[index]
}

// Type returns the type of the body.
func (body *Body) Type() BodyType {
	return body.bodyType
}

// SetType sets the type of the body. Static and kinematic bodies get infinite
// mass and lose their velocity.
func (body *Body) SetType(bt BodyType) {
	if body.bodyType == bt {
		return
	}
	body.bodyType = bt

	if bt == Dynamic {
		body.SetMass(0)
		body.SetMoment(0)
		return
	}
	body.mass = infinity
	body.momentOfInertia = infinity
	body.massInverse = 0
	body.momentOfInertiaInverse = 0

	body.velocity = vec.Vec2{}
	body.w = 0
}

// Mass returns mass of the body
func (body *Body) Mass() float64 {
	return body.mass
}

// SetMass sets mass of the body
func (body *Body) SetMass(mass float64) {
	if body.bodyType != Dynamic {
		return
	}
	body.mass = mass
	body.massInverse = 1 / mass
}

// Moment returns moment of inertia of the body.
func (body *Body) Moment() float64 {
	return body.momentOfInertia
}

// SetMoment sets moment of inertia of the body.
func (body *Body) SetMoment(moment float64) {
	if body.bodyType != Dynamic {
		return
	}
	body.momentOfInertia = moment
	body.momentOfInertiaInverse = 1 / moment
}

// Position returns the position of the body.
func (body *Body) Position() vec.Vec2 {
	return body.position
}

// SetPosition sets the position of the body.
func (body *Body) SetPosition(position vec.Vec2) {
	body.position = position
}

// Angle returns the angle of the body.
func (body *Body) Angle() float64 {
	return body.angle
}

// SetAngle sets the angle of body.
func (body *Body) SetAngle(angle float64) {
	body.angle = angle
}

// Rotation returns the rotation vector of the body.
func (body *Body) Rotation() vec.Vec2 {
	return vec.ForAngle(body.angle)
}

// LocalToWorld converts from body local coordinates to world space coordinates.
func (body *Body) LocalToWorld(point vec.Vec2) vec.Vec2 {
	return body.position.Add(point.RotateComplex(body.Rotation()))
}

// Velocity returns the velocity of the body.
func (body *Body) Velocity() vec.Vec2 {
	return body.velocity
}

// SetVelocity sets the velocity of the body.
func (body *Body) SetVelocity(velocity vec.Vec2) {
	body.velocity = velocity
}

// AngularVelocity returns the angular velocity of the body.
func (body *Body) AngularVelocity() float64 {
	return body.w
}

// SetAngularVelocity sets the angular velocity of the body.
func (body *Body) SetAngularVelocity(angularVelocity float64) {
	body.w = angularVelocity
}

// Force returns the force applied to the body for the next step.
func (body *Body) Force() vec.Vec2 {
	return body.force
}

// SetForce sets the force applied to the body for the next step.
func (body *Body) SetForce(force vec.Vec2) {
	body.force = force
}

// Torque returns the torque applied to the body for the next step.
func (body *Body) Torque() float64 {
	return body.torque
}

// SetTorque sets the torque applied to the body for the next step.
func (body *Body) SetTorque(torque float64) {
	body.torque = torque
}

// KineticEnergy returns the kinetic energy of this body.
func (body *Body) KineticEnergy() float64 {
	// Need to do some fudging to avoid NaNs
	vsq := body.velocity.Dot(body.velocity)
	wsq := body.w * body.w
	var a, b float64
	if vsq != 0 {
		a = vsq * body.mass
	}
	if wsq != 0 {
		b = wsq * body.momentOfInertia
	}
	return a + b
}

// AttachShape appends shape to the body shapes.
func (body *Body) AttachShape(shape *Shape) {
	body.Shapes = append(body.Shapes, shape)
	shape.Body = body
}

// RemoveShape removes collision shape from the body.
func (body *Body) RemoveShape(shape *Shape) {
	body.Shapes = slices.DeleteFunc(body.Shapes, func(s *Shape) bool {
		return s == shape
	})
}

// EachShape calls f once for each shape attached to this body
func (body *Body) EachShape(f func(*Shape)) {
	for i := range body.Shapes {
		f(body.Shapes[i])
	}
}

// EachArbiter calls f once for each arbiter that is currently active on the
// body. The body is always the first body of the arbiter during the call.
func (body *Body) EachArbiter(f func(*Arbiter)) {
	if body.Space == nil {
		return
	}
	for _, arb := range body.Space.Arbiters {
		if arb.bodyA != body && arb.bodyB != body {
			continue
		}
		swapped := arb.swapped

		arb.swapped = body == arb.bodyB
		f(arb)

		arb.swapped = swapped
	}
}
