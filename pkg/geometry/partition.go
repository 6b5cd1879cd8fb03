package geometry

import (
	"math"

	"github.com/matzehuels/fractal/pkg/errors"
)

// TwoPi is a full revolution in radians.
const TwoPi = 2 * math.Pi

// Winding is the direction in which sector indices advance.
type Winding int

const (
	// Clockwise advances clockwise on screen (increasing atan2 angle with y down).
	Clockwise Winding = iota
	// CounterClockwise advances counter-clockwise on screen.
	CounterClockwise
)

func (w Winding) String() string {
	if w == CounterClockwise {
		return "ccw"
	}
	return "cw"
}

func (w Winding) sign() float64 {
	if w == CounterClockwise {
		return -1
	}
	return 1
}

// Supported middle ring sector counts.
const (
	MonthSectors      = 12
	SubQuarterSectors = 16
)

const (
	coreSectors  = 1
	outerSectors = 4
	quarterCount = 4
)

// PartitionConfig describes a partition before validation.
// Offsets and windings are indexed by [Ring].
type PartitionConfig struct {
	MiddleSectors int
	Offset        [ringCount]float64
	Winding       [ringCount]Winding
	// QuarterTable maps each middle sector to an outer quarter. When nil,
	// sector i belongs to quarter floor(4i/N).
	QuarterTable []int
}

type ringLayout struct {
	sectors int
	offset  float64
	winding Winding
}

// Partition is a validated, immutable division of the three rings into
// sectors. The zero value is not usable; build one with [NewPartition] or
// [Variant.Partition].
type Partition struct {
	layouts  [ringCount]ringLayout
	quarters []int
}

// NewPartition validates cfg and returns the partition it describes.
// Invalid configurations fail with INVALID_CONFIGURATION.
func NewPartition(cfg PartitionConfig) (Partition, error) {
	n := cfg.MiddleSectors
	if n != MonthSectors && n != SubQuarterSectors {
		return Partition{}, errors.New(errors.ErrCodeInvalidConfiguration,
			"middle ring must have %d or %d sectors, got %d", MonthSectors, SubQuarterSectors, n)
	}

	var p Partition
	counts := [ringCount]int{coreSectors, n, outerSectors}
	for _, r := range Rings() {
		off := cfg.Offset[r]
		if math.IsNaN(off) || math.IsInf(off, 0) {
			return Partition{}, errors.New(errors.ErrCodeInvalidConfiguration, "%s offset must be finite", r)
		}
		w := cfg.Winding[r]
		if w != Clockwise && w != CounterClockwise {
			return Partition{}, errors.New(errors.ErrCodeInvalidConfiguration, "%s winding %d unknown", r, int(w))
		}
		p.layouts[r] = ringLayout{sectors: counts[r], offset: NormalizeAngle(off), winding: w}
	}

	quarters, err := quarterTable(n, cfg.QuarterTable)
	if err != nil {
		return Partition{}, err
	}
	p.quarters = quarters
	return p, nil
}

// quarterTable returns the explicit table after validation, or the formula
// table when explicit is nil. A valid table visits quarters 0..3 in angular
// order as one contiguous run each: every cyclic step is 0 or +1 and the
// steps add up to exactly one revolution.
func quarterTable(n int, explicit []int) ([]int, error) {
	if explicit == nil {
		table := make([]int, n)
		for i := range table {
			table[i] = i * quarterCount / n
		}
		return table, nil
	}
	if len(explicit) != n {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration,
			"quarter table has %d entries, want %d", len(explicit), n)
	}
	total := 0
	for i, q := range explicit {
		if q < 0 || q >= quarterCount {
			return nil, errors.New(errors.ErrCodeInvalidConfiguration,
				"quarter table entry %d is %d, want 0..3", i, q)
		}
		step := (explicit[(i+1)%n] - q + quarterCount) % quarterCount
		if step > 1 {
			return nil, errors.New(errors.ErrCodeInvalidConfiguration,
				"quarter table skips a quarter after entry %d", i)
		}
		total += step
	}
	if total != quarterCount {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration,
			"quarter table must wrap exactly once per revolution")
	}
	return append([]int(nil), explicit...), nil
}

func (p Partition) layout(r Ring) (ringLayout, error) {
	if !r.Valid() {
		return ringLayout{}, errors.New(errors.ErrCodeInvalidArgument, "unknown ring %d", int(r))
	}
	l := p.layouts[r]
	if l.sectors == 0 {
		return ringLayout{}, errors.New(errors.ErrCodeInvalidConfiguration, "partition is not initialized")
	}
	return l, nil
}

func (p Partition) checkIndex(r Ring, i int) (ringLayout, error) {
	l, err := p.layout(r)
	if err != nil {
		return l, err
	}
	if i < 0 || i >= l.sectors {
		return l, errors.New(errors.ErrCodeOutOfRange, "%s sector %d outside [0,%d)", r, i, l.sectors)
	}
	return l, nil
}

// SectorCount returns the number of sectors in r.
func (p Partition) SectorCount(r Ring) (int, error) {
	l, err := p.layout(r)
	if err != nil {
		return 0, err
	}
	return l.sectors, nil
}

// Offset returns the normalized angle of sector 0's starting edge.
func (p Partition) Offset(r Ring) float64 {
	if !r.Valid() {
		return 0
	}
	return p.layouts[r].offset
}

// Winding returns the direction in which r's sector indices advance.
func (p Partition) Winding(r Ring) Winding {
	if !r.Valid() {
		return Clockwise
	}
	return p.layouts[r].winding
}

// SectorAngularSpan returns the starting and ending edge of sector i.
//
// start is normalized to [0, 2π). end is start plus one sector width in the
// ring's winding sense, so it may exceed 2π (or drop below 0) for the sector
// that crosses the seam. end(i) equals start(i+1 mod N) modulo 2π.
func (p Partition) SectorAngularSpan(r Ring, i int) (start, end float64, err error) {
	l, err := p.checkIndex(r, i)
	if err != nil {
		return 0, 0, err
	}
	start = l.start(i)
	return start, start + l.winding.sign()*l.width(), nil
}

// QuarterOf groups sector i of r into an outer quarter. Middle sectors use
// the partition's quarter table, outer sectors are their own quarter and
// the core belongs to quarter 0.
func (p Partition) QuarterOf(r Ring, i int) (int, error) {
	if _, err := p.checkIndex(r, i); err != nil {
		return 0, err
	}
	switch r {
	case Middle:
		return p.quarters[i], nil
	case Outer:
		return i, nil
	default:
		return 0, nil
	}
}

// QuarterTable returns a copy of the middle ring's quarter grouping.
func (p Partition) QuarterTable() []int {
	return append([]int(nil), p.quarters...)
}

// edgeTolerance is how close, in radians, an angle must be to a sector's
// starting edge to count as lying on it.
const edgeTolerance = 1e-12

func (l ringLayout) width() float64 { return TwoPi / float64(l.sectors) }

// start is the normalized starting edge of sector i.
func (l ringLayout) start(i int) float64 {
	return NormalizeAngle(l.offset + l.winding.sign()*float64(i)*l.width())
}

// sectorAt returns the sector of ring l containing the screen angle. An
// angle on an edge belongs to the sector that edge starts, using the same
// edges SectorAngularSpan reports.
func (l ringLayout) sectorAt(angle float64) int {
	rel := NormalizeAngle(l.winding.sign() * (angle - l.offset))
	idx := max(0, min(int(math.Floor(rel/l.width())), l.sectors-1))
	if next := (idx + 1) % l.sectors; onEdge(angle, l.start(next)) {
		return next
	}
	return idx
}

// onEdge reports whether angles a and edge coincide modulo 2π.
func onEdge(a, edge float64) bool {
	d := NormalizeAngle(a - edge)
	return d < edgeTolerance || TwoPi-d < edgeTolerance
}

// NormalizeAngle maps any finite angle into [0, 2π).
func NormalizeAngle(a float64) float64 {
	m := math.Mod(a, TwoPi)
	if m < 0 {
		m += TwoPi
	}
	if m >= TwoPi {
		m -= TwoPi
	}
	return m
}
