package cmcache

import "errors"

var (
	// ErrInvalidReference reports an arbiter that refers to a shape which is not in the space.
	ErrInvalidReference = errors.New("cmcache: shape is not in the space")
	// ErrDuplicateArbiter reports an arbiter for a shape pair that is already cached.
	ErrDuplicateArbiter = errors.New("cmcache: an arbiter is already cached for the shape pair")
	// ErrInvalidArbiter reports an arbiter that cannot be cached at all.
	ErrInvalidArbiter = errors.New("cmcache: invalid arbiter")
	// ErrShapeIDInUse reports a shape id owned by another shape of the space.
	ErrShapeIDInUse = errors.New("cmcache: shape id is in use")
	// ErrShapeBusy reports a shape whose id cannot change while arbiters are cached for it.
	ErrShapeBusy = errors.New("cmcache: shape has cached arbiters")
)
