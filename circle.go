package cmcache

import "github.com/setanarut/vec"

type Circle struct {
	*Shape
	c, transformC vec.Vec2
	radius        float64
}

// NewCircleShape attaches a circle of radius r centered at offset (body local) to body.
func NewCircleShape(body *Body, radius float64, offset vec.Vec2) *Shape {
	circle := &Circle{c: offset, radius: radius}
	circle.Shape = NewShape(circle, body)
	circle.CacheBB()
	return circle.Shape
}

func (circle *Circle) CacheData(body *Body) BB {
	circle.transformC = body.LocalToWorld(circle.c)
	return NewBBForCircle(circle.transformC, circle.radius)
}

func (circle *Circle) Radius() float64 {
	return circle.radius
}

func (circle *Circle) SetRadius(r float64) {
	circle.radius = r
}

// Offset returns the center in body local coordinates.
func (circle *Circle) Offset() vec.Vec2 {
	return circle.c
}

// TransformC returns the center in world coordinates as of the last CacheBB.
func (circle *Circle) TransformC() vec.Vec2 {
	return circle.transformC
}
