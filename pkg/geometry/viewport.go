package geometry

import "github.com/matzehuels/fractal/pkg/errors"

// Viewport maps on-screen pointer coordinates to view-box coordinates when
// the rendered SVG is scaled to a box of a different size.
type Viewport struct {
	ViewWidth, ViewHeight float64
}

// ToView scales (x, y), measured from the top-left corner of an on-screen
// box of size screenW x screenH, into view-box coordinates.
func (v Viewport) ToView(x, y, screenW, screenH float64) (Point, error) {
	if !(screenW > 0) || !(screenH > 0) {
		return Point{}, errors.New(errors.ErrCodeInvalidArgument, "screen box must be positive, got %gx%g", screenW, screenH)
	}
	return Point{X: x * v.ViewWidth / screenW, Y: y * v.ViewHeight / screenH}, nil
}
