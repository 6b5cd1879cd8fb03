package geometry

import (
	"math"

	"github.com/matzehuels/fractal/pkg/errors"
)

// DefaultRadiusRatio sizes R relative to the shorter side of the view box.
const DefaultRadiusRatio = 0.4

// Point is a Cartesian point in view-box coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PolarToCartesian converts polar coordinates around (cx, cy) to a point.
// It is the only conversion used by both outlines and classification.
func PolarToCartesian(cx, cy, r, angle float64) Point {
	return Point{X: cx + r*math.Cos(angle), Y: cy + r*math.Sin(angle)}
}

// Geometry is a partition placed on a rendering surface. It is built once
// per surface size and never modified.
type Geometry struct {
	cx, cy, r float64
	partition Partition
}

// New places p on a circle of radius r centered at (cx, cy).
// Non-positive or non-finite values fail with INVALID_CONFIGURATION.
func New(cx, cy, r float64, p Partition) (Geometry, error) {
	for _, v := range []float64{cx, cy, r} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Geometry{}, errors.New(errors.ErrCodeInvalidConfiguration, "center and radius must be finite")
		}
	}
	if r <= 0 {
		return Geometry{}, errors.New(errors.ErrCodeInvalidConfiguration, "radius must be positive, got %g", r)
	}
	if _, err := p.layout(Middle); err != nil {
		return Geometry{}, err
	}
	return Geometry{cx: cx, cy: cy, r: r, partition: p}, nil
}

// ForViewBox centers the circle in a width x height view box with
// R = ratio * min(width, height).
func ForViewBox(width, height, ratio float64, p Partition) (Geometry, error) {
	if !(width > 0) || !(height > 0) {
		return Geometry{}, errors.New(errors.ErrCodeInvalidConfiguration, "view box must be positive, got %gx%g", width, height)
	}
	if !(ratio > 0) || ratio > 0.5 {
		return Geometry{}, errors.New(errors.ErrCodeInvalidConfiguration, "radius ratio must be in (0, 0.5], got %g", ratio)
	}
	return New(width/2, height/2, ratio*min(width, height), p)
}

// Center returns the circle's center.
func (g Geometry) Center() Point { return Point{X: g.cx, Y: g.cy} }

// Radius returns the outer radius R.
func (g Geometry) Radius() float64 { return g.r }

// Partition returns the angular partition.
func (g Geometry) Partition() Partition { return g.partition }

// Band returns the inner and outer radius of ring r in pixels.
func (g Geometry) Band(r Ring) (inner, outer float64, err error) {
	fi, fo, err := r.Band()
	if err != nil {
		return 0, 0, err
	}
	return fi * g.r, fo * g.r, nil
}

// Addresses lists every sector address, innermost ring first.
func (g Geometry) Addresses() []Address {
	var out []Address
	for _, r := range Rings() {
		n, _ := g.partition.SectorCount(r)
		for i := range n {
			out = append(out, Address{Ring: r, Index: i})
		}
	}
	return out
}
