package cmcache

import (
	"fmt"

	"github.com/setanarut/vec"
)

// IShape is the geometry of a Shape. A NarrowPhase type-switches on it.
type IShape interface {
	// CacheData updates cached world space data and returns the bounding box.
	CacheData(body *Body) BB
}

type Shape struct {
	Class    IShape
	Body     *Body
	Space    *Space
	UserData any
	Filter   ShapeFilter
	// You can assign types to collision shapes that trigger callbacks when objects
	// of certain types touch.
	CollisionType CollisionType
	// Sensor is a boolean value if this shape is a Sensor or not.
	// Sensors only call collision callbacks, and never generate real collisions.
	Sensor bool
	// The surface velocity of the object. Useful for creating conveyor belts or
	// players that move around. This value is only used when calculating friction,
	// not resolving the collision.
	SurfaceVelocity      vec.Vec2
	Elasticity, Friction float64
	BB                   BB
	hashid               HashValue
}

// NewShape returns a shape with the given geometry attached to body.
func NewShape(class IShape, body *Body) *Shape {
	shape := &Shape{
		Class: class,
		Filter: ShapeFilter{
			Group:      NoGroup,
			Categories: AllCategories,
			Mask:       AllCategories,
		},
	}
	if body != nil {
		body.AttachShape(shape)
	}
	return shape
}

func (s Shape) String() string {
	return fmt.Sprintf("%T#%d", s.Class, s.hashid)
}

// Order sorts shape classes for narrow-phase dispatch.
func (s *Shape) Order() int {
	switch s.Class.(type) {
	case *Circle:
		return 0
	default:
		return 1
	}
}

// HashID returns the stable identity the space assigned to the shape. It is
// 0 while the shape is not in a space.
func (s *Shape) HashID() HashValue {
	return s.hashid
}

// CacheBB refreshes and returns the bounding box from the body transform.
func (s *Shape) CacheBB() BB {
	if s.Class == nil || s.Body == nil {
		return s.BB
	}
	s.BB = s.Class.CacheData(s.Body)
	return s.BB
}
