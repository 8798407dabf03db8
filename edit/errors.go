package edit

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidPermutation is returned when a staged order is not a
	// bijection over the current frame set.
	ErrInvalidPermutation = errors.New("staged order is not a permutation of the frame set")

	// ErrLastFrame is returned when a removal would leave the
	// collection without any frame.
	ErrLastFrame = errors.New("cannot remove every frame of a collection")

	// ErrSaveInFlight is returned when a save is requested while a
	// previous save of the same collection is still outstanding.
	ErrSaveInFlight = errors.New("a save is already outstanding for this collection")

	// ErrBadDimensions is returned when a frame is created with a
	// non-positive width or height.
	ErrBadDimensions = errors.New("frame dimensions must be positive")
)
