package render

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/matzehuels/fractal/pkg/errors"
)

// rasterizer is the librsvg command line tool PNG and PDF output run through.
const rasterizer = "rsvg-convert"

// ToPDF converts an SVG document to PDF.
func ToPDF(ctx context.Context, svg []byte) ([]byte, error) {
	return rasterize(ctx, svg, FormatPDF)
}

// ToPNG converts an SVG document to PNG at scale times its view box size.
// A scale of zero or less means 2.
func ToPNG(ctx context.Context, svg []byte, scale float64) ([]byte, error) {
	if scale <= 0 {
		scale = 2
	}
	return rasterize(ctx, svg, FormatPNG, "--zoom", strconv.FormatFloat(scale, 'f', 2, 64))
}

// CanRasterize reports whether PNG and PDF output are available.
func CanRasterize() bool {
	_, err := exec.LookPath(rasterizer)
	return err == nil
}

func rasterize(ctx context.Context, svg []byte, f Format, args ...string) ([]byte, error) {
	bin, err := exec.LookPath(rasterizer)
	if err != nil {
		return nil, errors.New(errors.ErrCodeUnsupported,
			"%s output needs %s from librsvg (apt install librsvg2-bin, brew install librsvg)", f, rasterizer)
	}

	cmd := exec.CommandContext(ctx, bin, append([]string{"--format", string(f)}, args...)...)
	cmd.Stdin = bytes.NewReader(svg)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "%s %s: %s", rasterizer, f, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}
