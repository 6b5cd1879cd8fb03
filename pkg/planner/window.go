package planner

import (
	"time"

	"github.com/matzehuels/fractal/pkg/errors"
	"github.com/matzehuels/fractal/pkg/geometry"
)

// dayStart is the hour the day variant's first quarter begins.
const dayStart = time.Hour

// Window is the time span a sector stands for.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies in [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// SectorWindow returns the time span of sector a for the planning period
// containing now, in now's location.
//
// Year variant: outer quarter q is calendar quarter q+1 of now's year and
// middle sector i is month March+i of that same year (so sectors 10 and 11
// are January and February and nest inside the first quarter).
//
// Day variant: outer quarter q is six hours starting at 01:00 + 6h*q and
// middle sector i is the 90 minute slot starting at 01:00 + 90m*i. The last
// windows run past midnight.
//
// The core is the day containing now in both variants. The plain variant
// has no calendar meaning and returns UNSUPPORTED.
func SectorWindow(v geometry.Variant, a geometry.Address, now time.Time) (Window, error) {
	p, err := v.Partition()
	if err != nil {
		return Window{}, err
	}
	n, err := p.SectorCount(a.Ring)
	if err != nil {
		return Window{}, err
	}
	if a.Index < 0 || a.Index >= n {
		return Window{}, errors.New(errors.ErrCodeOutOfRange, "%s sector %d outside [0,%d)", a.Ring, a.Index, n)
	}

	y, m, d := now.Date()
	loc := now.Location()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)

	if a.Ring == geometry.Core && v != geometry.VariantPlain {
		return Window{Start: midnight, End: midnight.AddDate(0, 0, 1)}, nil
	}

	switch v {
	case geometry.VariantYear:
		if a.Ring == geometry.Outer {
			start := time.Date(y, time.Month(3*a.Index+1), 1, 0, 0, 0, 0, loc)
			return Window{Start: start, End: start.AddDate(0, 3, 0)}, nil
		}
		month := time.Month((2+a.Index)%12 + 1)
		start := time.Date(y, month, 1, 0, 0, 0, 0, loc)
		return Window{Start: start, End: start.AddDate(0, 1, 0)}, nil

	case geometry.VariantDay:
		span := 90 * time.Minute
		if a.Ring == geometry.Outer {
			span = 6 * time.Hour
		}
		start := midnight.Add(dayStart + time.Duration(a.Index)*span)
		return Window{Start: start, End: start.Add(span)}, nil
	}
	return Window{}, errors.New(errors.ErrCodeUnsupported, "variant %s has no time windows", v)
}
