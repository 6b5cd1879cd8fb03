package planner

import (
	"fmt"
	"strconv"
	"time"

	"github.com/matzehuels/fractal/pkg/geometry"
)

var monthLabels = []string{"Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec", "Jan", "Feb"}

// Label is the short text drawn at a sector's label anchor.
func Label(v geometry.Variant, a geometry.Address) string {
	switch a.Ring {
	case geometry.Core:
		return CoreCaption(v)
	case geometry.Outer:
		if v == geometry.VariantDay {
			start := dayStart + time.Duration(a.Index)*6*time.Hour
			return clock(start) + "-" + clock(start+6*time.Hour)
		}
		return fmt.Sprintf("Q%d", a.Index+1)
	}
	switch v {
	case geometry.VariantYear:
		if a.Index >= 0 && a.Index < len(monthLabels) {
			return monthLabels[a.Index]
		}
	case geometry.VariantDay:
		return clock(dayStart + time.Duration(a.Index)*90*time.Minute)
	}
	return strconv.Itoa(a.Index + 1)
}

// CoreCaption is the text drawn in the core disk.
func CoreCaption(v geometry.Variant) string {
	switch v {
	case geometry.VariantDay:
		return "NOW"
	case geometry.VariantYear:
		return "Yearly Quarter"
	}
	return ""
}

// clock formats an offset from midnight as HH:MM, wrapping at 24h.
func clock(d time.Duration) string {
	minutes := int(d/time.Minute) % (24 * 60)
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
