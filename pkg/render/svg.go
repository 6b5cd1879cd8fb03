package render

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"

	"github.com/matzehuels/fractal/pkg/geometry"
)

const sectorCSS = `
    .sector { transition: fill-opacity 0.15s ease; cursor: pointer; }
    .sector:hover { fill-opacity: 1; }
    .label { pointer-events: none; font-family: system-ui, -apple-system, sans-serif; }
    .badge { pointer-events: none; }`

// Ring opacities make the middle ring read as a subdivision of the outer.
var ringOpacity = map[geometry.Ring]float64{
	geometry.Core:   1,
	geometry.Middle: 0.7,
	geometry.Outer:  0.95,
}

// Option configures rendering.
type Option func(*renderer)

type renderer struct {
	theme     Theme
	labels    func(geometry.Address) string
	counts    map[geometry.Address]int
	highlight *geometry.Address
	title     string
	scale     float64
}

// WithTheme selects the color scheme.
func WithTheme(t Theme) Option { return func(r *renderer) { r.theme = t } }

// WithLabels sets the text drawn at each sector's label anchor. Empty
// strings are skipped.
func WithLabels(fn func(geometry.Address) string) Option {
	return func(r *renderer) { r.labels = fn }
}

// WithCounts adds a badge with the task count to every sector with a
// positive count.
func WithCounts(counts map[geometry.Address]int) Option {
	return func(r *renderer) { r.counts = counts }
}

// WithHighlight outlines one sector.
func WithHighlight(a geometry.Address) Option {
	return func(r *renderer) { r.highlight = &a }
}

// WithTitle sets the document title.
func WithTitle(s string) Option { return func(r *renderer) { r.title = s } }

// WithScale sets the PNG scale factor (default 2.0 for 2x resolution).
func WithScale(s float64) Option {
	return func(r *renderer) {
		if s > 0 {
			r.scale = s
		}
	}
}

func newRenderer(opts ...Option) renderer {
	r := renderer{theme: Light, scale: 2.0}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func (r renderer) label(a geometry.Address) string {
	if r.labels == nil {
		return ""
	}
	return r.labels(a)
}

func (r renderer) fill(g geometry.Geometry, a geometry.Address) string {
	if a.Ring == geometry.Core {
		return r.theme.Core
	}
	q, err := g.Partition().QuarterOf(a.Ring, a.Index)
	if err != nil {
		return r.theme.Core
	}
	return r.theme.QuarterFill(q)
}

// RenderSVG draws every sector of g as an SVG document whose view box
// matches the geometry's coordinate space.
func RenderSVG(g geometry.Geometry, opts ...Option) []byte {
	r := newRenderer(opts...)
	c := g.Center()
	width, height := 2*c.X, 2*c.Y
	outlines := g.Outlines()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f" data-theme="%s">`+"\n",
		width, height, width, height, r.theme.Name)
	if r.title != "" {
		buf.WriteString("  <title>")
		xml.EscapeText(&buf, []byte(r.title))
		buf.WriteString("</title>\n")
	}
	fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", sectorCSS)
	fmt.Fprintf(&buf, `  <rect width="100%%" height="100%%" fill="%s"/>`+"\n", r.theme.Background)

	buf.WriteString(`  <g class="sectors">` + "\n")
	for _, o := range outlines {
		renderSector(&buf, g, r, o)
	}
	buf.WriteString("  </g>\n")

	if r.highlight != nil {
		if o, err := g.WedgeOutline(r.highlight.Ring, r.highlight.Index); err == nil {
			fmt.Fprintf(&buf, `  <path class="highlight" d="%s" fill="none" stroke="%s" stroke-width="3" data-ring="%s" data-index="%d"/>`+"\n",
				o.PathData(), r.theme.Highlight, o.Address.Ring, o.Address.Index)
		}
	}

	buf.WriteString(`  <g class="labels">` + "\n")
	for _, o := range outlines {
		renderLabel(&buf, g, r, o)
	}
	buf.WriteString("  </g>\n")

	if len(r.counts) > 0 {
		buf.WriteString(`  <g class="badges">` + "\n")
		for _, o := range outlines {
			if n := r.counts[o.Address]; n > 0 {
				renderBadge(&buf, g, r, o, n)
			}
		}
		buf.WriteString("  </g>\n")
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func renderSector(buf *bytes.Buffer, g geometry.Geometry, r renderer, o geometry.Outline) {
	a := o.Address
	fmt.Fprintf(buf, `    <path id="sector-%s-%d" class="sector ring-%s" d="%s" fill="%s" fill-opacity="%.2f" stroke="%s" stroke-width="1.5" data-ring="%s" data-index="%d"`,
		a.Ring, a.Index, a.Ring, o.PathData(), r.fill(g, a), ringOpacity[a.Ring], r.theme.Stroke, a.Ring, a.Index)
	if a.Ring != geometry.Core {
		if q, err := g.Partition().QuarterOf(a.Ring, a.Index); err == nil {
			fmt.Fprintf(buf, ` data-quarter="%d"`, q)
		}
	}
	buf.WriteString("/>\n")
}

func renderLabel(buf *bytes.Buffer, g geometry.Geometry, r renderer, o geometry.Outline) {
	text := r.label(o.Address)
	if text == "" {
		return
	}
	fmt.Fprintf(buf, `    <text class="label" x="%.2f" y="%.2f" font-size="%.1f" fill="%s" text-anchor="middle" dominant-baseline="central">`,
		o.Label.X, o.Label.Y, labelSize(g, o), r.theme.Text)
	xml.EscapeText(buf, []byte(text))
	buf.WriteString("</text>\n")
}

func renderBadge(buf *bytes.Buffer, g geometry.Geometry, r renderer, o geometry.Outline, n int) {
	p := badgeAnchor(g, o)
	radius := g.Radius() * 0.035
	fmt.Fprintf(buf, `    <g class="badge" data-ring="%s" data-index="%d">`, o.Address.Ring, o.Address.Index)
	fmt.Fprintf(buf, `<circle cx="%.2f" cy="%.2f" r="%.2f" fill="%s"/>`, p.X, p.Y, radius, r.theme.Badge)
	fmt.Fprintf(buf, `<text x="%.2f" y="%.2f" font-size="%.1f" fill="%s" text-anchor="middle" dominant-baseline="central">%d</text>`,
		p.X, p.Y, radius*1.1, r.theme.BadgeText, n)
	buf.WriteString("</g>\n")
}

// labelSize scales text with the band thickness, capped so long labels
// stay inside narrow wedges.
func labelSize(g geometry.Geometry, o geometry.Outline) float64 {
	if o.Disk {
		return g.Radius() * 0.07
	}
	return max(8, min(g.Radius()*0.055, (o.Outer-o.Inner)*0.3))
}

// badgeAnchor places a badge near the outer edge of a wedge, or below the
// caption for the core disk.
func badgeAnchor(g geometry.Geometry, o geometry.Outline) geometry.Point {
	c := g.Center()
	if o.Disk {
		return geometry.PolarToCartesian(c.X, c.Y, o.Outer*0.55, math.Pi/2)
	}
	return geometry.PolarToCartesian(c.X, c.Y, o.Outer-(o.Outer-o.Inner)*0.2, o.MidAngle)
}
