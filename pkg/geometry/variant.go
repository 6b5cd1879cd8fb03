package geometry

import (
	"math"
	"strings"

	"github.com/matzehuels/fractal/pkg/errors"
)

// Variant names a preset partition.
type Variant string

const (
	// VariantDay starts every ring at 12 o'clock: four 6-hour quarters on the
	// outer ring and sixteen 90-minute slots on the middle ring.
	VariantDay Variant = "day"
	// VariantYear puts March at angle 0 on a twelve-month middle ring and
	// starts the outer ring at 300° so Q1 (Jan, Feb, Mar) straddles the seam.
	VariantYear Variant = "year"
	// VariantPlain has sixteen middle sectors and no offsets.
	VariantPlain Variant = "plain"
)

// yearQuarters groups March..February into calendar quarters.
var yearQuarters = []int{0, 1, 1, 1, 2, 2, 2, 3, 3, 3, 0, 0}

// Variants returns all presets.
func Variants() []Variant { return []Variant{VariantDay, VariantYear, VariantPlain} }

// ParseVariant parses a preset name.
func ParseVariant(s string) (Variant, error) {
	v := Variant(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Variants() {
		if v == known {
			return v, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidConfiguration, "unknown variant %q (want day, year or plain)", s)
}

// Config returns the partition configuration of the preset.
func (v Variant) Config() (PartitionConfig, error) {
	switch v {
	case VariantDay:
		top := -math.Pi / 2
		return PartitionConfig{
			MiddleSectors: SubQuarterSectors,
			Offset:        [ringCount]float64{top, top, top},
		}, nil
	case VariantYear:
		return PartitionConfig{
			MiddleSectors: MonthSectors,
			Offset:        [ringCount]float64{0, 0, 300 * math.Pi / 180},
			QuarterTable:  yearQuarters,
		}, nil
	case VariantPlain:
		return PartitionConfig{MiddleSectors: SubQuarterSectors}, nil
	}
	return PartitionConfig{}, errors.New(errors.ErrCodeInvalidConfiguration, "unknown variant %q", string(v))
}

// Partition builds the preset's partition.
func (v Variant) Partition() (Partition, error) {
	cfg, err := v.Config()
	if err != nil {
		return Partition{}, err
	}
	return NewPartition(cfg)
}
