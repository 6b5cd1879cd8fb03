package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/fractal/internal/config"
	"github.com/matzehuels/fractal/pkg/render"
)

const defaultOutputBase = "fractal"

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output    string  // output file (one format) or base path (several)
	formats   string  // comma-separated output formats
	variant   string  // partition preset, overrides config
	theme     string  // color theme, overrides config
	width     float64 // view box width, overrides config
	height    float64 // view box height, overrides config
	scale     float64 // PNG scale factor
	highlight string  // sector to outline, "ring/index"
	noLabels  bool
	noCache   bool
	refresh   bool
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Draw the circle with task counts to SVG, PNG, PDF or JSON",
		Example: `  fractal render
  fractal render -f svg,png -o plan
  fractal render --variant year --theme dark --highlight middle/3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): "+formatList()+" (comma-separated, default svg)")
	cmd.Flags().StringVar(&opts.variant, "variant", "", "partition preset: day, year or plain")
	cmd.Flags().StringVar(&opts.theme, "theme", "", "color theme: light or dark")
	cmd.Flags().Float64Var(&opts.width, "width", 0, "view box width")
	cmd.Flags().Float64Var(&opts.height, "height", 0, "view box height")
	cmd.Flags().Float64Var(&opts.scale, "scale", 0, "PNG scale factor (default 2)")
	cmd.Flags().StringVar(&opts.highlight, "highlight", "", "outline one sector, e.g. middle/3")
	cmd.Flags().BoolVar(&opts.noLabels, "no-labels", false, "omit sector labels")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the artifact cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "re-render and overwrite cached artifacts")

	return cmd
}

func formatList() string {
	names := make([]string, 0, len(render.Formats()))
	for _, f := range render.Formats() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}

// applyCircle copies circle flags that were set onto cfg.
func (o renderOpts) applyCircle(cfg *config.Config) {
	if o.variant != "" {
		cfg.Circle.Variant = strings.ToLower(o.variant)
	}
	if o.theme != "" {
		cfg.Circle.Theme = strings.ToLower(o.theme)
	}
	if o.width > 0 {
		cfg.Circle.Width = o.width
	}
	if o.height > 0 {
		cfg.Circle.Height = o.height
	}
}

func (c *CLI) runRender(ctx context.Context, opts renderOpts) error {
	ws, err := c.open(ctx, opts.applyCircle)
	if err != nil {
		return err
	}
	defer ws.Close()

	runner, err := c.newRunner(ctx, ws.cfg.Cache, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	po := renderOptions(ws.cfg)
	po.Formats = parseFormats(opts.formats)
	po.Scale = opts.scale
	po.NoLabels = opts.noLabels
	po.Refresh = opts.refresh
	if opts.highlight != "" {
		a, err := parseAddress(opts.highlight)
		if err != nil {
			return err
		}
		po.Highlight = &a
	}
	if err := po.ValidateAndSetDefaults(); err != nil {
		return err
	}

	counts, err := ws.planner.Counts(ctx)
	if err != nil {
		return err
	}
	result, err := runner.Render(ctx, po, counts)
	if err != nil {
		return err
	}

	printSuccess("Rendered %s circle", po.Variant)
	total := 0
	for _, n := range counts {
		total += n
	}
	printRenderStats(len(counts), total, result.CacheHit)

	for _, format := range po.Formats {
		path := outputPath(opts.output, format, len(po.Formats))
		if err := writeFile(path, result.Artifacts[format]); err != nil {
			return err
		}
		printFile(path)
	}
	return nil
}

// outputPath picks the file for one format. A single format writes to
// output as given; several formats share output as a base name.
func outputPath(output, format string, formats int) string {
	if formats == 1 && output != "" {
		return output
	}
	return basePath(output) + "." + format
}

// basePath strips a known format extension from output, defaulting to
// "fractal".
func basePath(output string) string {
	if output == "" {
		return defaultOutputBase
	}
	ext := filepath.Ext(output)
	if _, err := render.ParseFormat(strings.TrimPrefix(ext, ".")); err == nil {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
