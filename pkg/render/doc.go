// Package render draws a fractal circle.
//
// # Overview
//
// [RenderSVG] turns a [geometry.Geometry] into a standalone SVG document:
// one path per sector built from [geometry.Geometry.WedgeOutline], filled
// by quarter group, with optional labels, task count badges and a
// highlighted sector. Every path carries data-ring and data-index
// attributes so a browser client can map clicks back to an address
// without repeating the hit test.
//
// [RenderJSON] exports the same outlines as data for clients that draw
// the circle themselves.
//
// # Format Conversion
//
// [ToPDF] and [ToPNG] convert any SVG to other formats using the external
// rsvg-convert tool (from librsvg). [Render] dispatches on a [Format]:
//
//	data, err := render.Render(ctx, g, render.FormatPNG,
//	    render.WithTheme(render.Dark),
//	    render.WithCounts(counts),
//	)
//
// # Themes
//
// Two themes are built in, [Light] and [Dark]. A theme supplies one fill
// per quarter group plus colors for the core, strokes, text and badges.
package render
