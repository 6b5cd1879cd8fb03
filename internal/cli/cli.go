// Package cli implements the fractal command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/fractal/internal/config"
	"github.com/matzehuels/fractal/pkg/buildinfo"
	"github.com/matzehuels/fractal/pkg/cache"
	"github.com/matzehuels/fractal/pkg/errors"
	"github.com/matzehuels/fractal/pkg/geometry"
	"github.com/matzehuels/fractal/pkg/pipeline"
	"github.com/matzehuels/fractal/pkg/planner"
	"github.com/matzehuels/fractal/pkg/store"
	"github.com/matzehuels/fractal/pkg/store/memory"
	"github.com/matzehuels/fractal/pkg/store/mongo"
	"github.com/matzehuels/fractal/pkg/store/sqlite"
)

// =============================================================================
// Constants
// =============================================================================

const appName = "fractal"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	clock      store.Clock
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Fractal plans your time on a circle",
		Long: `Fractal is a planner drawn as a circle of nested rings. The core is now,
the middle ring holds months (or time slots) and the outer ring holds
quarters. Tasks live in sectors; a click or a drop on the circle finds
the sector under the pointer.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cmd.SetContext(withLogger(cmd.Context(), c.Logger.WithPrefix(cmd.Name())))
		return nil
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/fractal/config.toml)")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.classifyCommand())
	root.AddCommand(c.dropCommand())
	root.AddCommand(c.sectorCommand())
	root.AddCommand(c.taskCommand())
	root.AddCommand(c.syncCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.importCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.authCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Workspace Factory
// =============================================================================

// workspace is the configured store and planner a command works on.
type workspace struct {
	cfg     config.Config
	store   store.Store
	planner *planner.Planner
}

func (w *workspace) Close() error { return w.store.Close() }

func (c *CLI) loadConfig() (config.Config, error) {
	return config.Load(c.configPath)
}

// open loads the configuration, lets override adjust it, and opens the
// store and planner it describes.
func (c *CLI) open(ctx context.Context, override func(*config.Config)) (*workspace, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(&cfg)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	st, err := c.openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	p, err := c.newPlanner(cfg, st)
	if err != nil {
		st.Close()
		return nil, err
	}
	return &workspace{cfg: cfg, store: st, planner: p}, nil
}

func (c *CLI) openStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	c.Logger.Debug("opening store", "driver", sc.Driver, "path", sc.Path)
	switch sc.Driver {
	case config.StoreMemory:
		return memory.New(c.clock), nil
	case config.StoreMongo:
		return mongo.Open(ctx, sc.MongoURI, sc.MongoDatabase, c.clock)
	case config.StoreSQLite, "":
		if err := os.MkdirAll(filepath.Dir(sc.Path), 0o755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "create data directory")
		}
		return sqlite.Open(ctx, sc.Path, c.clock)
	}
	return nil, errors.New(errors.ErrCodeInvalidConfiguration, "unknown store driver %q", sc.Driver)
}

func (c *CLI) newPlanner(cfg config.Config, st store.Tasks) (*planner.Planner, error) {
	opts := renderOptions(cfg)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	g, err := opts.Geometry()
	if err != nil {
		return nil, err
	}
	return planner.New(g, geometry.Variant(opts.Variant), st,
		planner.WithClock(c.clock), planner.WithLogger(c.Logger)), nil
}

// newRunner creates a pipeline runner backed by the configured cache.
func (c *CLI) newRunner(ctx context.Context, cc config.CacheConfig, noCache bool) (*pipeline.Runner, error) {
	ch, err := c.openCache(ctx, cc, noCache)
	if err != nil {
		return nil, err
	}
	ttl, err := cc.TTLDuration()
	if err != nil {
		return nil, err
	}
	// Artifacts from another build may be drawn differently.
	keyer := cache.NewScopedKeyer(nil, buildinfo.Version+":")
	r := pipeline.NewRunner(ch, keyer, c.Logger)
	r.TTL = ttl
	return r, nil
}

func (c *CLI) openCache(ctx context.Context, cc config.CacheConfig, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cc.Driver {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cc.RedisAddr, cc.RedisPrefix)
	case config.CacheFile, "":
		fc, err := cache.NewFileCache(cc.Dir)
		if err != nil {
			c.Logger.Warn("file cache unavailable, rendering uncached", "dir", cc.Dir, "error", err)
			return cache.NewNullCache(), nil
		}
		return fc, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidConfiguration, "unknown cache driver %q", cc.Driver)
}

// =============================================================================
// Options Helpers
// =============================================================================

// renderOptions maps the circle configuration onto pipeline options.
func renderOptions(cfg config.Config) pipeline.Options {
	return pipeline.Options{
		Variant:     cfg.Circle.Variant,
		Width:       cfg.Circle.Width,
		Height:      cfg.Circle.Height,
		RadiusRatio: cfg.Circle.RadiusRatio,
		Theme:       cfg.Circle.Theme,
	}
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{"svg"}
	}
	return strings.Split(s, ",")
}

// parseAddress parses a sector written as "ring/index", e.g. "middle/3".
// A bare "core" means core/0.
func parseAddress(s string) (geometry.Address, error) {
	ringName, idx, found := strings.Cut(s, "/")
	ring, err := geometry.ParseRing(ringName)
	if err != nil {
		return geometry.Address{}, err
	}
	if !found {
		if ring == geometry.Core {
			return geometry.Address{Ring: geometry.Core}, nil
		}
		return geometry.Address{}, errors.New(errors.ErrCodeInvalidArgument, "sector %q: want ring/index", s)
	}
	index, err := strconv.Atoi(idx)
	if err != nil {
		return geometry.Address{}, errors.New(errors.ErrCodeInvalidArgument, "sector %q: index is not a number", s)
	}
	return geometry.Address{Ring: ring, Index: index}, nil
}

// parsePoint parses "x,y" view-box coordinates.
func parsePoint(s string) (geometry.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return geometry.Point{}, errors.New(errors.ErrCodeInvalidArgument, "point %q: want x,y", s)
	}
	x, errX := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	y, errY := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if errX != nil || errY != nil {
		return geometry.Point{}, errors.New(errors.ErrCodeInvalidArgument, "point %q: coordinates must be numbers", s)
	}
	return geometry.Point{X: x, Y: y}, nil
}

// parseScreen parses an on-screen box size written "WxH".
func parseScreen(s string) (w, h float64, err error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, errors.New(errors.ErrCodeInvalidArgument, "screen %q: want WIDTHxHEIGHT", s)
	}
	w, errW := strconv.ParseFloat(ws, 64)
	h, errH := strconv.ParseFloat(hs, 64)
	if errW != nil || errH != nil {
		return 0, 0, errors.New(errors.ErrCodeInvalidArgument, "screen %q: sizes must be numbers", s)
	}
	return w, h, nil
}

// timeLayouts are the accepted --start/--end spellings.
var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02"}

// parseTime parses a local time in one of timeLayouts.
func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New(errors.ErrCodeInvalidArgument, "time %q: want RFC 3339, \"2006-01-02 15:04\" or a date", s)
}
