package task

import (
	"fmt"
	"strings"

	"github.com/matzehuels/fractal/pkg/errors"
	"github.com/matzehuels/fractal/pkg/geometry"
)

// Cycle is the planning horizon of a ring.
type Cycle string

const (
	Daily     Cycle = "daily"
	Monthly   Cycle = "monthly"
	Quarterly Cycle = "quarterly"
)

var cycleRings = map[Cycle]geometry.Ring{
	Daily:     geometry.Core,
	Monthly:   geometry.Middle,
	Quarterly: geometry.Outer,
}

// Cycles returns all cycles, innermost ring first.
func Cycles() []Cycle { return []Cycle{Daily, Monthly, Quarterly} }

// CycleOf maps a ring to its cycle.
func CycleOf(r geometry.Ring) (Cycle, error) {
	for c, ring := range cycleRings {
		if ring == r {
			return c, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidArgument, "unknown ring %d", int(r))
}

// RingOf maps a cycle to its ring.
func RingOf(c Cycle) (geometry.Ring, error) {
	r, ok := cycleRings[c]
	if !ok {
		return 0, errors.New(errors.ErrCodeInvalidArgument, "unknown cycle %q", string(c))
	}
	return r, nil
}

// ParseCycle accepts a cycle name or the name of its ring.
func ParseCycle(s string) (Cycle, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if _, ok := cycleRings[Cycle(name)]; ok {
		return Cycle(name), nil
	}
	if r, err := geometry.ParseRing(name); err == nil {
		return CycleOf(r)
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown cycle %q (want daily, monthly or quarterly)", s)
}

// SectorKey is the storage index of a sector. Level is the ring ordinal
// and always agrees with Cycle.
type SectorKey struct {
	Cycle       Cycle `json:"cycle" yaml:"cycle" bson:"cycle"`
	Level       int   `json:"level" yaml:"level" bson:"level"`
	SectorIndex int   `json:"sector_index" yaml:"sector_index" bson:"sector_index"`
}

// KeyOf converts a hit-test address into a storage key. The sector index
// passes through unchanged.
func KeyOf(a geometry.Address) (SectorKey, error) {
	c, err := CycleOf(a.Ring)
	if err != nil {
		return SectorKey{}, err
	}
	return SectorKey{Cycle: c, Level: int(a.Ring), SectorIndex: a.Index}, nil
}

// Address inverts KeyOf.
func (k SectorKey) Address() (geometry.Address, error) {
	r, err := RingOf(k.Cycle)
	if err != nil {
		return geometry.Address{}, err
	}
	if int(r) != k.Level {
		return geometry.Address{}, errors.New(errors.ErrCodeInvalidInput,
			"level %d does not match cycle %s", k.Level, k.Cycle)
	}
	if k.SectorIndex < 0 {
		return geometry.Address{}, errors.New(errors.ErrCodeOutOfRange, "negative sector index %d", k.SectorIndex)
	}
	return geometry.Address{Ring: r, Index: k.SectorIndex}, nil
}

func (k SectorKey) String() string {
	return fmt.Sprintf("%s/%d", k.Cycle, k.SectorIndex)
}
