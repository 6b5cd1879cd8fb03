// Package geometry partitions the fractal circle into rings and sectors and
// converts between sector addresses and pixel coordinates.
//
// # Overview
//
// A circle of radius R centered at (CX, CY) is split into three concentric
// rings with fixed radius bands:
//
//   - [Core]:   [0, 0.5R], one sector (the whole disk)
//   - [Middle]: (0.5R, 0.75R], 12 or 16 sectors
//   - [Outer]:  (0.75R, R], 4 sectors (quarters)
//
// Each ring is divided into equal angular sectors starting at a per-ring
// offset and advancing in the ring's [Winding]. Angles are radians in screen
// coordinates: 0 points right and, because y grows downward, [Clockwise]
// means the angle increases clockwise on screen, exactly as math.Atan2
// reports it for (dy, dx).
//
// # Partition
//
// A [Partition] answers angular questions without any notion of size:
//
//	p, _ := geometry.VariantYear.Partition()
//	start, end, _ := p.SectorAngularSpan(geometry.Outer, 0) // 300° .. 390°
//	q, _ := p.QuarterOf(geometry.Middle, 10)                // 0
//
// Three presets cover the layouts the planner ships with ([VariantDay],
// [VariantYear], [VariantPlain]); [NewPartition] builds custom ones.
//
// # Forward and inverse mapping
//
// A [Geometry] adds the center and radius. [Geometry.WedgeOutline] maps an
// address to the closed boundary of its wedge (move/arc/line/close segments,
// ready for SVG) plus a label anchor. [Geometry.Classify] maps a point back
// to the address it falls in:
//
//	g, _ := geometry.New(200, 200, 160, p)
//	o, _ := g.WedgeOutline(geometry.Middle, 3)
//	addr, ok := g.Classify(o.Label.X, o.Label.Y) // {Middle 3}, true
//
// Both directions share [PolarToCartesian] and the same half-open sector
// intervals, so classifying any point strictly inside a wedge yields that
// wedge's address. Wedges that cross the 0-angle seam are drawn from
// normalized angles and never split.
//
// # Boundaries
//
// Radii are upper-inclusive (a point at exactly 0.5R is Core), angles are
// lower-inclusive ([start, end) relative to the ring's offset). Repeated
// classification of the same point always returns the same result.
//
// # Concurrency
//
// [Partition] and [Geometry] are immutable values. Every function in this
// package is pure and safe for concurrent use.
package geometry
