package geometry

import (
	"fmt"
	"strings"

	"github.com/matzehuels/fractal/pkg/errors"
)

// Ring is one of the three concentric bands of the circle.
type Ring int

const (
	Core Ring = iota
	Middle
	Outer
)

const ringCount = 3

var ringNames = [ringCount]string{"core", "middle", "outer"}

// Radius band of each ring as fractions of R.
var ringBands = [ringCount][2]float64{
	{0, 0.5},
	{0.5, 0.75},
	{0.75, 1},
}

// Rings returns all rings, innermost first.
func Rings() []Ring { return []Ring{Core, Middle, Outer} }

// Valid reports whether r is one of Core, Middle or Outer.
func (r Ring) Valid() bool { return r >= Core && r <= Outer }

func (r Ring) String() string {
	if !r.Valid() {
		return fmt.Sprintf("ring(%d)", int(r))
	}
	return ringNames[r]
}

// Band returns the inner and outer radius of r as fractions of R.
func (r Ring) Band() (inner, outer float64, err error) {
	if !r.Valid() {
		return 0, 0, errors.New(errors.ErrCodeInvalidArgument, "unknown ring %d", int(r))
	}
	return ringBands[r][0], ringBands[r][1], nil
}

// ParseRing parses "core", "middle" or "outer" (case-insensitive).
func ParseRing(s string) (Ring, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range ringNames {
		if n == name {
			return Ring(i), nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidArgument, "unknown ring %q (want core, middle or outer)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (r Ring) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "unknown ring %d", int(r))
	}
	return []byte(ringNames[r]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Ring) UnmarshalText(text []byte) error {
	parsed, err := ParseRing(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Address identifies one sector of one ring.
type Address struct {
	Ring  Ring `json:"ring"`
	Index int  `json:"index"`
}

func (a Address) String() string {
	return fmt.Sprintf("%s/%d", a.Ring, a.Index)
}
