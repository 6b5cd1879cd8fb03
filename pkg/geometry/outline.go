package geometry

import (
	"math"
	"strconv"
	"strings"
)

// SegmentOp is one path primitive, named after its SVG command letter.
type SegmentOp byte

const (
	MoveTo    SegmentOp = 'M'
	LineTo    SegmentOp = 'L'
	ArcTo     SegmentOp = 'A'
	ClosePath SegmentOp = 'Z'
)

// Segment is one step of a closed boundary. Radius, LargeArc and Sweep are
// only meaningful for ArcTo; Sweep follows SVG (true = clockwise on screen).
type Segment struct {
	Op       SegmentOp `json:"op"`
	To       Point     `json:"to"`
	Radius   float64   `json:"radius,omitempty"`
	LargeArc bool      `json:"large_arc,omitempty"`
	Sweep    bool      `json:"sweep,omitempty"`
}

// Outline is the drawable boundary of one sector.
type Outline struct {
	Address   Address   `json:"address"`
	Start     float64   `json:"start"`
	End       float64   `json:"end"`
	Inner     float64   `json:"inner"`
	Outer     float64   `json:"outer"`
	MidAngle  float64   `json:"mid_angle"`
	MidRadius float64   `json:"mid_radius"`
	Label     Point     `json:"label"`
	LargeArc  bool      `json:"large_arc"`
	Disk      bool      `json:"disk,omitempty"`
	Segments  []Segment `json:"segments"`
}

// WedgeOutline returns the boundary of sector i of ring r.
//
// The core is a full disk drawn as two half-circle arcs. Other rings are
// annular wedges: outer arc from end back to start, a line in to the inner
// radius, the inner arc from start to end, and a closing line. Both arcs
// share one large-arc flag because they span the same angle.
func (g Geometry) WedgeOutline(r Ring, i int) (Outline, error) {
	start, end, err := g.partition.SectorAngularSpan(r, i)
	if err != nil {
		return Outline{}, err
	}
	inner, outer, err := g.Band(r)
	if err != nil {
		return Outline{}, err
	}

	o := Outline{
		Address: Address{Ring: r, Index: i},
		Start:   start,
		End:     end,
		Inner:   inner,
		Outer:   outer,
	}

	if r == Core {
		o.Disk = true
		o.End = start + TwoPi
		o.Label = Point{X: g.cx, Y: g.cy}
		right := PolarToCartesian(g.cx, g.cy, outer, 0)
		left := PolarToCartesian(g.cx, g.cy, outer, math.Pi)
		o.Segments = []Segment{
			{Op: MoveTo, To: right},
			{Op: ArcTo, To: left, Radius: outer, LargeArc: true, Sweep: true},
			{Op: ArcTo, To: right, Radius: outer, LargeArc: true, Sweep: true},
			{Op: ClosePath},
		}
		return o, nil
	}

	o.MidAngle = (start + end) / 2
	o.MidRadius = (inner + outer) / 2
	o.Label = PolarToCartesian(g.cx, g.cy, o.MidRadius, o.MidAngle)
	o.LargeArc = math.Mod(math.Abs(end-start), TwoPi) > math.Pi

	clockwise := g.partition.Winding(r) == Clockwise
	o.Segments = []Segment{
		{Op: MoveTo, To: PolarToCartesian(g.cx, g.cy, outer, end)},
		{Op: ArcTo, To: PolarToCartesian(g.cx, g.cy, outer, start), Radius: outer, LargeArc: o.LargeArc, Sweep: !clockwise},
		{Op: LineTo, To: PolarToCartesian(g.cx, g.cy, inner, start)},
		{Op: ArcTo, To: PolarToCartesian(g.cx, g.cy, inner, end), Radius: inner, LargeArc: o.LargeArc, Sweep: clockwise},
		{Op: ClosePath},
	}
	return o, nil
}

// Outlines returns the outline of every sector, innermost ring first.
func (g Geometry) Outlines() []Outline {
	addrs := g.Addresses()
	out := make([]Outline, 0, len(addrs))
	for _, a := range addrs {
		o, err := g.WedgeOutline(a.Ring, a.Index)
		if err != nil {
			continue
		}
		out = append(out, o)
	}
	return out
}

// PathData renders the outline as SVG path data with two decimals.
func (o Outline) PathData() string {
	var b strings.Builder
	for i, s := range o.Segments {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(byte(s.Op))
		switch s.Op {
		case MoveTo, LineTo:
			writeCoords(&b, s.To)
		case ArcTo:
			b.WriteByte(' ')
			b.WriteString(formatFloat(s.Radius))
			b.WriteByte(' ')
			b.WriteString(formatFloat(s.Radius))
			b.WriteString(" 0 ")
			b.WriteString(flag(s.LargeArc))
			b.WriteByte(' ')
			b.WriteString(flag(s.Sweep))
			writeCoords(&b, s.To)
		}
	}
	return b.String()
}

func writeCoords(b *strings.Builder, p Point) {
	b.WriteByte(' ')
	b.WriteString(formatFloat(p.X))
	b.WriteByte(' ')
	b.WriteString(formatFloat(p.Y))
}

func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	if s == "-0.00" {
		return "0.00"
	}
	return s
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
