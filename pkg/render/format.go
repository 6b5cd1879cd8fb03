package render

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/matzehuels/fractal/pkg/errors"
	"github.com/matzehuels/fractal/pkg/geometry"
)

// Format is an output format.
type Format string

const (
	FormatSVG  Format = "svg"
	FormatPNG  Format = "png"
	FormatPDF  Format = "pdf"
	FormatJSON Format = "json"
)

// Formats returns every supported format.
func Formats() []Format { return []Format{FormatSVG, FormatPNG, FormatPDF, FormatJSON} }

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unknown format %q (want svg, png, pdf or json)", s)
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", errors.New(errors.ErrCodeInvalidFormat, "cannot infer format from %q", path)
	}
	return ParseFormat(ext)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	case FormatPDF:
		return "application/pdf"
	case FormatJSON:
		return "application/json"
	}
	return "application/octet-stream"
}

// Render draws g in format f.
func Render(ctx context.Context, g geometry.Geometry, f Format, opts ...Option) ([]byte, error) {
	switch f {
	case FormatSVG:
		return RenderSVG(g, opts...), nil
	case FormatJSON:
		return RenderJSON(g, opts...)
	case FormatPNG:
		r := newRenderer(opts...)
		return ToPNG(ctx, RenderSVG(g, opts...), r.scale)
	case FormatPDF:
		return ToPDF(ctx, RenderSVG(g, opts...))
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported format %q", string(f))
}
