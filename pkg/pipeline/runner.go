package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/fractal/pkg/cache"
	"github.com/matzehuels/fractal/pkg/geometry"
	"github.com/matzehuels/fractal/pkg/observability"
	"github.com/matzehuels/fractal/pkg/planner"
	"github.com/matzehuels/fractal/pkg/render"
)

// Runner renders circles with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	TTL    time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
		TTL:    cache.DefaultTTL,
	}
}

// Render draws the circle described by opts, badged with counts, in every
// requested format. Cached artifacts are used only when all formats hit.
func (r *Runner) Render(ctx context.Context, opts Options, counts map[geometry.Address]int) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = r.Logger
	}
	start := time.Now()

	sc := newScene(opts, counts)
	sceneHash := r.Keyer.SceneKey(sc)
	result := &Result{SceneHash: sceneHash, Artifacts: make(map[string][]byte)}

	if !opts.Refresh {
		for _, format := range opts.Formats {
			data, hit, err := r.Cache.Get(ctx, r.Keyer.ArtifactKey(sceneHash, opts.ArtifactKeyOpts(format)))
			if err != nil || !hit {
				observability.Cache().OnCacheMiss(ctx, "artifact")
				break
			}
			observability.Cache().OnCacheHit(ctx, "artifact")
			result.Artifacts[format] = data
		}
		if len(result.Artifacts) == len(opts.Formats) {
			result.CacheHit = true
			result.Duration = time.Since(start)
			logger.Debug("render cache hit", "scene", sceneHash, "formats", opts.Formats)
			return result, nil
		}
	}

	g, err := opts.Geometry()
	if err != nil {
		return nil, err
	}
	renderOpts := r.renderOptions(opts, counts)

	for _, format := range opts.Formats {
		observability.Render().OnRenderStart(ctx, format)
		fstart := time.Now()
		data, err := render.Render(ctx, g, render.Format(format), renderOpts...)
		observability.Render().OnRenderComplete(ctx, format, len(data), time.Since(fstart), err)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		result.Artifacts[format] = data

		key := r.Keyer.ArtifactKey(sceneHash, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, r.TTL); err != nil {
			logger.Warn("cache write failed", "format", format, "error", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "artifact", len(data))
		}
	}

	result.Duration = time.Since(start)
	logger.Info("rendered circle",
		"variant", opts.Variant,
		"formats", opts.Formats,
		"sectors", len(g.Addresses()),
		"duration", result.Duration)
	return result, nil
}

func (r *Runner) renderOptions(opts Options, counts map[geometry.Address]int) []render.Option {
	theme, _ := render.ParseTheme(opts.Theme)
	v := geometry.Variant(opts.Variant)
	out := []render.Option{
		render.WithTheme(theme),
		render.WithScale(opts.Scale),
		render.WithCounts(counts),
		render.WithTitle(fmt.Sprintf("fractal %s planner", v)),
	}
	if !opts.NoLabels {
		out = append(out, render.WithLabels(func(a geometry.Address) string {
			return planner.Label(v, a)
		}))
	}
	if opts.Highlight != nil {
		out = append(out, render.WithHighlight(*opts.Highlight))
	}
	return out
}

// SceneHash returns the cache identity of a circle without rendering it.
func (r *Runner) SceneHash(opts Options, counts map[geometry.Address]int) (string, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return "", err
	}
	return r.Keyer.SceneKey(newScene(opts, counts)), nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
