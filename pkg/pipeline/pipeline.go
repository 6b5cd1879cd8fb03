// Package pipeline renders a planner circle with artifact caching.
//
// The CLI and the HTTP server both draw the same circle: a geometry built
// from the configured view box and variant, labelled and annotated with
// per-sector task counts. A [Runner] does that once per distinct scene and
// format and serves repeats from a [cache.Cache].
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	res, err := runner.Render(ctx, pipeline.Options{
//	    Variant: "year",
//	    Formats: []string{"svg", "png"},
//	}, counts)
//	svg := res.Artifacts["svg"]
package pipeline

import (
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/fractal/pkg/cache"
	"github.com/matzehuels/fractal/pkg/errors"
	"github.com/matzehuels/fractal/pkg/geometry"
	"github.com/matzehuels/fractal/pkg/render"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultVariant is the partition preset used when none is configured.
	DefaultVariant = string(geometry.VariantDay)

	// DefaultWidth is the default view box width.
	DefaultWidth = 400.0

	// DefaultHeight is the default view box height.
	DefaultHeight = 400.0

	// DefaultRadiusRatio sizes the circle relative to the view box.
	DefaultRadiusRatio = geometry.DefaultRadiusRatio

	// DefaultScale is the PNG scale factor.
	DefaultScale = 2.0
)

// Options configures one render.
type Options struct {
	// Circle options
	Variant     string  `json:"variant,omitempty"`
	Width       float64 `json:"width,omitempty"`
	Height      float64 `json:"height,omitempty"`
	RadiusRatio float64 `json:"radius_ratio,omitempty"`

	// Render options
	Formats   []string          `json:"formats,omitempty"`
	Theme     string            `json:"theme,omitempty"`
	Scale     float64           `json:"scale,omitempty"`
	NoLabels  bool              `json:"no_labels,omitempty"`
	Highlight *geometry.Address `json:"highlight,omitempty"`
	Refresh   bool              `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`
}

// Result contains the outputs of a render.
type Result struct {
	// SceneHash identifies the drawn circle independent of format.
	SceneHash string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// CacheHit is true when every artifact came from the cache.
	CacheHit bool

	// Duration is the wall time of the render.
	Duration time.Duration
}

// ValidateAndSetDefaults fills unset fields and validates the rest. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Variant == "" {
		o.Variant = DefaultVariant
	}
	v, err := geometry.ParseVariant(o.Variant)
	if err != nil {
		return err
	}
	o.Variant = string(v)
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.RadiusRatio == 0 {
		o.RadiusRatio = DefaultRadiusRatio
	}
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	if o.Scale < 0 {
		return errors.New(errors.ErrCodeInvalidArgument, "scale must be positive, got %g", o.Scale)
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{string(render.FormatSVG)}
	}
	o.Formats = slices.Clone(o.Formats)
	for i, f := range o.Formats {
		parsed, err := render.ParseFormat(f)
		if err != nil {
			return err
		}
		o.Formats[i] = string(parsed)
	}
	theme, err := render.ParseTheme(o.Theme)
	if err != nil {
		return err
	}
	o.Theme = theme.Name
	g, err := o.Geometry()
	if err != nil {
		return err
	}
	if o.Highlight != nil {
		if _, _, err := g.Partition().SectorAngularSpan(o.Highlight.Ring, o.Highlight.Index); err != nil {
			return err
		}
	}
	return nil
}

// Geometry builds the circle described by o.
func (o *Options) Geometry() (geometry.Geometry, error) {
	p, err := geometry.Variant(o.Variant).Partition()
	if err != nil {
		return geometry.Geometry{}, err
	}
	return geometry.ForViewBox(o.Width, o.Height, o.RadiusRatio, p)
}

// ArtifactKeyOpts returns the cache key options for format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	opts := cache.ArtifactKeyOpts{Format: format, Theme: o.Theme}
	if format == string(render.FormatPNG) {
		opts.Scale = o.Scale
	}
	return opts
}

// scene is everything that changes the drawing apart from format and
// theme. Counts are keyed by address string so the JSON encoding used for
// hashing is stable.
type scene struct {
	Variant     string         `json:"variant"`
	Width       float64        `json:"width"`
	Height      float64        `json:"height"`
	RadiusRatio float64        `json:"radius_ratio"`
	Labels      bool           `json:"labels"`
	Highlight   string         `json:"highlight,omitempty"`
	Counts      map[string]int `json:"counts,omitempty"`
}

func newScene(o Options, counts map[geometry.Address]int) scene {
	s := scene{
		Variant:     o.Variant,
		Width:       o.Width,
		Height:      o.Height,
		RadiusRatio: o.RadiusRatio,
		Labels:      !o.NoLabels,
	}
	if o.Highlight != nil {
		s.Highlight = o.Highlight.String()
	}
	for a, n := range counts {
		if n <= 0 {
			continue
		}
		if s.Counts == nil {
			s.Counts = make(map[string]int)
		}
		s.Counts[a.String()] = n
	}
	return s
}
