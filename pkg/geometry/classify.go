package geometry

import "math"

// Classify returns the sector containing (x, y). ok is false when the point
// lies outside the outer radius or is not a number; this is a result, not
// an error.
//
// Radius bands are upper-inclusive and sector intervals are half-open
// ([start, end) relative to the ring's offset), so every point inside the
// circle maps to exactly one address and boundary points resolve the same
// way on every call.
func (g Geometry) Classify(x, y float64) (Address, bool) {
	dx, dy := x-g.cx, y-g.cy
	dist := math.Hypot(dx, dy)
	if math.IsNaN(dist) {
		return Address{}, false
	}

	var ring Ring
	switch {
	case dist <= g.r*ringBands[Core][1]:
		return Address{Ring: Core}, true
	case dist <= g.r*ringBands[Middle][1]:
		ring = Middle
	case dist <= g.r*ringBands[Outer][1]:
		ring = Outer
	default:
		return Address{}, false
	}

	angle := NormalizeAngle(math.Atan2(dy, dx))
	return Address{Ring: ring, Index: g.partition.layouts[ring].sectorAt(angle)}, true
}

// ClassifyPoint is Classify for a [Point].
func (g Geometry) ClassifyPoint(p Point) (Address, bool) {
	return g.Classify(p.X, p.Y)
}
