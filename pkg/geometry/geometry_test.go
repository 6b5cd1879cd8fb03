package geometry

import (
	"math"
	"testing"

	"github.com/matzehuels/fractal/pkg/errors"
)

func mustGeometry(t *testing.T, p Partition) Geometry {
	t.Helper()
	g, err := New(200, 200, 160, p)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return g
}

func TestNewRejectsDegenerateGeometry(t *testing.T) {
	p := mustPartition(t, VariantPlain)
	tests := []struct {
		name      string
		cx, cy, r float64
		p         Partition
	}{
		{"zero radius", 0, 0, 0, p},
		{"negative radius", 0, 0, -5, p},
		{"nan radius", 0, 0, math.NaN(), p},
		{"inf center", math.Inf(1), 0, 10, p},
		{"zero partition", 0, 0, 10, Partition{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cx, tt.cy, tt.r, tt.p)
			if !errors.Is(err, errors.ErrCodeInvalidConfiguration) {
				t.Errorf("New() error = %v, want INVALID_CONFIGURATION", err)
			}
		})
	}
}

func TestForViewBox(t *testing.T) {
	p := mustPartition(t, VariantDay)
	g, err := ForViewBox(400, 300, DefaultRadiusRatio, p)
	if err != nil {
		t.Fatalf("ForViewBox() error = %v", err)
	}
	if c := g.Center(); c.X != 200 || c.Y != 150 {
		t.Errorf("Center() = %+v, want (200, 150)", c)
	}
	if math.Abs(g.Radius()-120) > eps {
		t.Errorf("Radius() = %v, want 120", g.Radius())
	}

	for _, bad := range [][3]float64{{0, 300, 0.4}, {400, -1, 0.4}, {400, 300, 0}, {400, 300, 0.6}} {
		if _, err := ForViewBox(bad[0], bad[1], bad[2], p); !errors.Is(err, errors.ErrCodeInvalidConfiguration) {
			t.Errorf("ForViewBox(%v) error = %v, want INVALID_CONFIGURATION", bad, err)
		}
	}
}

func TestBand(t *testing.T) {
	g := mustGeometry(t, mustPartition(t, VariantPlain))
	want := map[Ring][2]float64{Core: {0, 80}, Middle: {80, 120}, Outer: {120, 160}}
	prevOuter := 0.0
	for _, r := range Rings() {
		inner, outer, err := g.Band(r)
		if err != nil {
			t.Fatalf("Band(%s) error = %v", r, err)
		}
		if inner != want[r][0] || outer != want[r][1] {
			t.Errorf("Band(%s) = [%v, %v], want %v", r, inner, outer, want[r])
		}
		if inner != prevOuter {
			t.Errorf("Band(%s) inner %v does not meet previous outer %v", r, inner, prevOuter)
		}
		prevOuter = outer
	}
	if prevOuter != g.Radius() {
		t.Errorf("bands end at %v, want R = %v", prevOuter, g.Radius())
	}
	if _, _, err := g.Band(Ring(-1)); !errors.Is(err, errors.ErrCodeInvalidArgument) {
		t.Errorf("Band(-1) error = %v", err)
	}
}

func TestAddresses(t *testing.T) {
	g := mustGeometry(t, mustPartition(t, VariantYear))
	addrs := g.Addresses()
	if len(addrs) != 1+12+4 {
		t.Fatalf("len(Addresses()) = %d, want 17", len(addrs))
	}
	if addrs[0] != (Address{Ring: Core}) || addrs[16] != (Address{Ring: Outer, Index: 3}) {
		t.Errorf("Addresses() order = %v", addrs)
	}
}

func TestPolarToCartesian(t *testing.T) {
	tests := []struct {
		angle float64
		want  Point
	}{
		{0, Point{X: 110, Y: 50}},
		{math.Pi / 2, Point{X: 100, Y: 60}},
		{math.Pi, Point{X: 90, Y: 50}},
		{3 * math.Pi / 2, Point{X: 100, Y: 40}},
	}
	for _, tt := range tests {
		got := PolarToCartesian(100, 50, 10, tt.angle)
		if math.Abs(got.X-tt.want.X) > eps || math.Abs(got.Y-tt.want.Y) > eps {
			t.Errorf("PolarToCartesian(angle=%v) = %+v, want %+v", tt.angle, got, tt.want)
		}
	}
}

func TestWedgeOutlinePathData(t *testing.T) {
	g := mustGeometry(t, mustPartition(t, VariantPlain))
	tests := []struct {
		ring  Ring
		index int
		want  string
	}{
		{Outer, 0, "M 200.00 360.00 A 160.00 160.00 0 0 0 360.00 200.00 L 320.00 200.00 A 120.00 120.00 0 0 1 200.00 320.00 Z"},
		{Core, 0, "M 280.00 200.00 A 80.00 80.00 0 1 1 120.00 200.00 A 80.00 80.00 0 1 1 280.00 200.00 Z"},
	}
	for _, tt := range tests {
		o, err := g.WedgeOutline(tt.ring, tt.index)
		if err != nil {
			t.Fatalf("WedgeOutline(%s, %d) error = %v", tt.ring, tt.index, err)
		}
		if got := o.PathData(); got != tt.want {
			t.Errorf("PathData() =\n  %s\nwant\n  %s", got, tt.want)
		}
	}
}

func TestWedgeOutlineShape(t *testing.T) {
	for name, p := range allPartitions(t) {
		t.Run(name, func(t *testing.T) {
			g := mustGeometry(t, p)
			for _, o := range g.Outlines() {
				if o.Address.Ring == Core {
					if !o.Disk || o.Label != g.Center() {
						t.Errorf("core outline = %+v, want disk labelled at center", o)
					}
					continue
				}
				segs := o.Segments
				if len(segs) != 5 {
					t.Fatalf("%s: %d segments, want 5", o.Address, len(segs))
				}
				ops := []SegmentOp{MoveTo, ArcTo, LineTo, ArcTo, ClosePath}
				for i, op := range ops {
					if segs[i].Op != op {
						t.Errorf("%s: segment %d op = %c, want %c", o.Address, i, segs[i].Op, op)
					}
				}
				if segs[1].LargeArc != segs[3].LargeArc || segs[1].LargeArc {
					t.Errorf("%s: large-arc flags = %v/%v, want false/false", o.Address, segs[1].LargeArc, segs[3].LargeArc)
				}
				if segs[1].Sweep == segs[3].Sweep {
					t.Errorf("%s: outer and inner arcs must sweep in opposite directions", o.Address)
				}
				center := g.Center()
				if d := math.Hypot(segs[0].To.X-center.X, segs[0].To.Y-center.Y); math.Abs(d-o.Outer) > eps {
					t.Errorf("%s: move target at distance %v, want %v", o.Address, d, o.Outer)
				}
				if d := math.Hypot(segs[2].To.X-center.X, segs[2].To.Y-center.Y); math.Abs(d-o.Inner) > eps {
					t.Errorf("%s: line target at distance %v, want %v", o.Address, d, o.Inner)
				}
				if math.Abs(o.MidRadius-(o.Inner+o.Outer)/2) > eps || math.Abs(o.MidAngle-(o.Start+o.End)/2) > eps {
					t.Errorf("%s: mid = (%v, %v)", o.Address, o.MidRadius, o.MidAngle)
				}
			}
		})
	}
}

func TestWedgeOutlineSeamCrossing(t *testing.T) {
	g := mustGeometry(t, mustPartition(t, VariantYear))
	o, err := g.WedgeOutline(Outer, 0)
	if err != nil {
		t.Fatalf("WedgeOutline() error = %v", err)
	}
	if o.End <= TwoPi {
		t.Fatalf("End = %v, want past 2π for the seam-crossing quarter", o.End)
	}
	if o.LargeArc {
		t.Error("quarter wedge must not set the large-arc flag")
	}
	if len(o.Segments) != 5 {
		t.Errorf("seam-crossing wedge has %d segments, want a single unsplit boundary", len(o.Segments))
	}
	addr, ok := g.ClassifyPoint(o.Label)
	if !ok || addr != (Address{Ring: Outer, Index: 0}) {
		t.Errorf("Classify(label) = %v, %v, want outer/0", addr, ok)
	}
}

func TestWedgeOutlineErrors(t *testing.T) {
	g := mustGeometry(t, mustPartition(t, VariantYear))
	if _, err := g.WedgeOutline(Middle, 12); !errors.Is(err, errors.ErrCodeOutOfRange) {
		t.Errorf("WedgeOutline(Middle, 12) error = %v", err)
	}
	if _, err := g.WedgeOutline(Ring(3), 0); !errors.Is(err, errors.ErrCodeInvalidArgument) {
		t.Errorf("WedgeOutline(3, 0) error = %v", err)
	}
}

func TestClassifyRoundTrip(t *testing.T) {
	for name, p := range allPartitions(t) {
		t.Run(name, func(t *testing.T) {
			g := mustGeometry(t, p)
			for _, o := range g.Outlines() {
				got, ok := g.ClassifyPoint(o.Label)
				if !ok || got != o.Address {
					t.Errorf("Classify(label of %s) = %v, %v", o.Address, got, ok)
				}
			}
		})
	}
}

func TestClassifyInteriorPoints(t *testing.T) {
	fractions := []float64{0.02, 0.25, 0.5, 0.75, 0.98}
	for name, p := range allPartitions(t) {
		t.Run(name, func(t *testing.T) {
			g := mustGeometry(t, p)
			c := g.Center()
			for _, o := range g.Outlines() {
				for _, fr := range fractions {
					for _, fa := range fractions {
						r := o.Inner + fr*(o.Outer-o.Inner)
						a := o.Start + fa*(o.End-o.Start)
						pt := PolarToCartesian(c.X, c.Y, r, a)
						got, ok := g.ClassifyPoint(pt)
						if !ok || got != o.Address {
							t.Fatalf("Classify(%v) inside %s = %v, %v", pt, o.Address, got, ok)
						}
					}
				}
			}
		})
	}
}

func TestClassifyScenario(t *testing.T) {
	g := mustGeometry(t, mustPartition(t, VariantPlain))
	tests := []struct {
		name   string
		x, y   float64
		want   Address
		wantOK bool
	}{
		{"center", 200, 200, Address{Ring: Core}, true},
		{"middle at angle zero", 300, 200, Address{Ring: Middle, Index: 0}, true},
		{"outside", 400, 200, Address{}, false},
		{"core boundary", 280, 200, Address{Ring: Core}, true},
		{"middle boundary", 320, 200, Address{Ring: Middle, Index: 0}, true},
		{"rim", 360, 200, Address{Ring: Outer, Index: 0}, true},
		{"just outside rim", 360.000001, 200, Address{}, false},
		{"straight down", 200, 300, Address{Ring: Middle, Index: 4}, true},
		{"just right of top", 201, 60, Address{Ring: Outer, Index: 3}, true},
		{"nan", math.NaN(), 200, Address{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := g.Classify(tt.x, tt.y)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Classify(%v, %v) = %v, %v, want %v, %v", tt.x, tt.y, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestClassifyRadiusMonotonicity(t *testing.T) {
	for name, p := range allPartitions(t) {
		g := mustGeometry(t, p)
		if got, ok := g.Classify(200, 200); !ok || got.Ring != Core {
			t.Errorf("%s: Classify(center) = %v, %v, want core", name, got, ok)
		}
		for k := range 64 {
			a := float64(k) * TwoPi / 64
			pt := PolarToCartesian(200, 200, 160+1e-6, a)
			if got, ok := g.ClassifyPoint(pt); ok {
				t.Errorf("%s: Classify(R+ε at %v) = %v, want none", name, a, got)
			}
		}
	}
}

func TestClassifyBoundaryStability(t *testing.T) {
	for name, p := range allPartitions(t) {
		t.Run(name, func(t *testing.T) {
			g := mustGeometry(t, p)
			c := g.Center()
			for _, o := range g.Outlines() {
				if o.Address.Ring == Core {
					continue
				}
				for _, pt := range []Point{
					PolarToCartesian(c.X, c.Y, o.Inner, o.Start),
					PolarToCartesian(c.X, c.Y, o.Outer*(1-1e-12), o.Start),
					PolarToCartesian(c.X, c.Y, o.MidRadius, o.Start),
					PolarToCartesian(c.X, c.Y, o.MidRadius, o.End),
				} {
					first, ok1 := g.ClassifyPoint(pt)
					second, ok2 := g.ClassifyPoint(pt)
					if first != second || ok1 != ok2 {
						t.Errorf("Classify(%v) not stable: %v/%v then %v/%v", pt, first, ok1, second, ok2)
					}
					if !ok1 {
						t.Errorf("boundary point %v of %s classified as none", pt, o.Address)
					}
				}
				// The starting edge is inclusive.
				onStart := PolarToCartesian(c.X, c.Y, o.MidRadius, o.Start)
				if got, _ := g.ClassifyPoint(onStart); got != o.Address {
					t.Errorf("Classify(start edge of %s) = %s", o.Address, got)
				}
			}

			for _, r := range Rings() {
				n, _ := p.SectorCount(r)
				for i := range n {
					start, _, err := p.SectorAngularSpan(r, i)
					if err != nil {
						t.Fatal(err)
					}
					if got := p.layouts[r].sectorAt(start); got != i {
						t.Errorf("sectorAt(start of %s/%d = %v) = %d", r, i, start, got)
					}
				}
			}
		})
	}
}

func TestClassifyExactEdges(t *testing.T) {
	deg := func(d float64) float64 { return d * math.Pi / 180 }
	year := mustGeometry(t, mustPartition(t, VariantYear))
	plain := mustGeometry(t, mustPartition(t, VariantPlain))

	tests := []struct {
		name  string
		g     Geometry
		dist  float64
		angle float64
		want  Address
	}{
		// Twelve months of 30° starting with March at 0°.
		{"year middle 0°", year, 100, 0, Address{Ring: Middle, Index: 0}},
		{"year middle 30°", year, 100, deg(30), Address{Ring: Middle, Index: 1}},
		{"year middle 90°", year, 100, deg(90), Address{Ring: Middle, Index: 3}},
		{"year middle 270°", year, 100, deg(270), Address{Ring: Middle, Index: 9}},
		{"year middle 330°", year, 100, deg(330), Address{Ring: Middle, Index: 11}},
		// Sixteen slots of 22.5°.
		{"plain middle 22.5°", plain, 100, deg(22.5), Address{Ring: Middle, Index: 1}},
		{"plain middle 67.5°", plain, 100, deg(67.5), Address{Ring: Middle, Index: 3}},
		{"plain middle 247.5°", plain, 100, deg(247.5), Address{Ring: Middle, Index: 11}},
		{"plain middle 337.5°", plain, 100, deg(337.5), Address{Ring: Middle, Index: 15}},
		// Outer quarter 0 spans 300°..390° across the seam.
		{"year outer 300°", year, 140, deg(300), Address{Ring: Outer, Index: 0}},
		{"year outer 0°", year, 140, 0, Address{Ring: Outer, Index: 0}},
		{"year outer 30°", year, 140, deg(30), Address{Ring: Outer, Index: 1}},
		{"year outer 120°", year, 140, deg(120), Address{Ring: Outer, Index: 2}},
		{"year outer 210°", year, 140, deg(210), Address{Ring: Outer, Index: 3}},
		{"year outer 299°", year, 140, deg(299), Address{Ring: Outer, Index: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.g.Center()
			got, ok := tt.g.ClassifyPoint(PolarToCartesian(c.X, c.Y, tt.dist, tt.angle))
			if !ok || got != tt.want {
				t.Errorf("Classify() = %v, %v, want %v", got, ok, tt.want)
			}
		})
	}
}

func TestClassifyAgreesWithSectorAt(t *testing.T) {
	g := mustGeometry(t, mustPartition(t, VariantDay))
	// 12 o'clock is the first edge of every ring in the day variant.
	got, ok := g.Classify(200+1e-9, 200-100)
	if !ok || got != (Address{Ring: Middle, Index: 0}) {
		t.Errorf("Classify(top, middle band) = %v, %v, want middle/0", got, ok)
	}
	got, ok = g.Classify(200+1e-9, 200-140)
	if !ok || got != (Address{Ring: Outer, Index: 0}) {
		t.Errorf("Classify(top, outer band) = %v, %v, want outer/0", got, ok)
	}
	got, ok = g.Classify(200-1e-9, 200-140)
	if !ok || got != (Address{Ring: Outer, Index: 3}) {
		t.Errorf("Classify(just left of top) = %v, %v, want outer/3", got, ok)
	}
}

func TestViewportToView(t *testing.T) {
	v := Viewport{ViewWidth: 400, ViewHeight: 400}
	got, err := v.ToView(100, 50, 200, 200)
	if err != nil {
		t.Fatalf("ToView() error = %v", err)
	}
	if got != (Point{X: 200, Y: 100}) {
		t.Errorf("ToView() = %+v, want (200, 100)", got)
	}
	if _, err := v.ToView(1, 1, 0, 200); !errors.Is(err, errors.ErrCodeInvalidArgument) {
		t.Errorf("ToView(zero width) error = %v", err)
	}
}

func TestRingText(t *testing.T) {
	for _, r := range Rings() {
		text, err := r.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v) error = %v", r, err)
		}
		var back Ring
		if err := back.UnmarshalText(text); err != nil || back != r {
			t.Errorf("UnmarshalText(%q) = %v, %v", text, back, err)
		}
	}
	if _, err := Ring(9).MarshalText(); err == nil {
		t.Error("MarshalText(9) should fail")
	}
	if got := (Address{Ring: Middle, Index: 7}).String(); got != "middle/7" {
		t.Errorf("Address.String() = %q", got)
	}
}
