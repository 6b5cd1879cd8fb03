// Package config loads fractal's settings.
//
// Values are layered: built-in defaults, then the TOML file at
// $XDG_CONFIG_HOME/fractal/config.toml (or the path given with --config),
// then FRACTAL_* environment variables. Command-line flags are applied by
// the CLI on top of the result.
//
//	[circle]
//	variant = "year"
//	theme   = "dark"
//
//	[store]
//	driver = "sqlite"
//	path   = "~/.local/share/fractal/fractal.db"
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/matzehuels/fractal/pkg/errors"
	"github.com/matzehuels/fractal/pkg/geometry"
	"github.com/matzehuels/fractal/pkg/render"
)

// appName is used for config, data and cache directories.
const appName = "fractal"

// Store drivers.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
	StoreMongo  = "mongo"
)

// Cache drivers.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Config is the complete configuration.
type Config struct {
	Circle CircleConfig `toml:"circle"`
	Store  StoreConfig  `toml:"store"`
	Cache  CacheConfig  `toml:"cache"`
	Sync   SyncConfig   `toml:"sync"`
	Server ServerConfig `toml:"server"`
}

// CircleConfig describes the drawn circle.
type CircleConfig struct {
	Variant     string  `toml:"variant" env:"FRACTAL_VARIANT"`
	Width       float64 `toml:"width" env:"FRACTAL_WIDTH"`
	Height      float64 `toml:"height" env:"FRACTAL_HEIGHT"`
	RadiusRatio float64 `toml:"radius_ratio" env:"FRACTAL_RADIUS_RATIO"`
	Theme       string  `toml:"theme" env:"FRACTAL_THEME"`
}

// StoreConfig selects the task store.
type StoreConfig struct {
	Driver        string `toml:"driver" env:"FRACTAL_STORE"`
	Path          string `toml:"path" env:"FRACTAL_STORE_PATH"`
	MongoURI      string `toml:"mongo_uri" env:"FRACTAL_MONGO_URI"`
	MongoDatabase string `toml:"mongo_database" env:"FRACTAL_MONGO_DATABASE"`
}

// CacheConfig selects the artifact cache.
type CacheConfig struct {
	Driver      string `toml:"driver" env:"FRACTAL_CACHE"`
	Dir         string `toml:"dir" env:"FRACTAL_CACHE_DIR"`
	RedisAddr   string `toml:"redis_addr" env:"FRACTAL_REDIS_ADDR"`
	RedisPrefix string `toml:"redis_prefix" env:"FRACTAL_REDIS_PREFIX"`
	TTL         string `toml:"ttl" env:"FRACTAL_CACHE_TTL"`
}

// SyncConfig points calendar sync at a calendar.
type SyncConfig struct {
	BaseURL    string `toml:"base_url" env:"FRACTAL_CALENDAR_URL"`
	CalendarID string `toml:"calendar_id" env:"FRACTAL_CALENDAR_ID"`
	BatchSize  int    `toml:"batch_size" env:"FRACTAL_SYNC_BATCH"`
	// Token overrides the stored session. Environment only.
	Token string `toml:"-" env:"FRACTAL_CALENDAR_TOKEN"`
}

// ServerConfig configures `fractal serve`.
type ServerConfig struct {
	Addr string `toml:"addr" env:"FRACTAL_ADDR"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Circle: CircleConfig{
			Variant:     string(geometry.VariantDay),
			Width:       400,
			Height:      400,
			RadiusRatio: geometry.DefaultRadiusRatio,
			Theme:       render.Light.Name,
		},
		Store: StoreConfig{
			Driver:        StoreSQLite,
			MongoDatabase: appName,
		},
		Cache: CacheConfig{
			Driver:      CacheFile,
			RedisPrefix: appName + ":",
			TTL:         "24h",
		},
		Sync: SyncConfig{
			BaseURL:    "https://www.googleapis.com/calendar/v3",
			CalendarID: "primary",
			BatchSize:  50,
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Load reads the configuration. An empty path means [DefaultPath], which
// may be missing; an explicit path must exist.
func Load(path string) (Config, error) {
	return load(path, env.Options{})
}

func load(path string, envOpts env.Options) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		var err error
		if path, err = DefaultPath(); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.decodeFile(path, explicit); err != nil {
		return Config{}, err
	}

	if err := env.ParseWithOptions(&cfg, envOpts); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, err, "parse environment")
	}
	cfg.expand()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string, explicit bool) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		if os.IsNotExist(err) {
			return errors.New(errors.ErrCodeInvalidPath, "config file %s does not exist", path)
		}
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.New(errors.ErrCodeInvalidConfiguration, "%s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// expand fills derived paths and resolves a leading ~.
func (c *Config) expand() {
	c.Store.Path = expandHome(c.Store.Path)
	c.Cache.Dir = expandHome(c.Cache.Dir)
	if c.Store.Driver == StoreSQLite && c.Store.Path == "" {
		if dir, err := DataDir(); err == nil {
			c.Store.Path = filepath.Join(dir, appName+".db")
		}
	}
	if c.Cache.Driver == CacheFile && c.Cache.Dir == "" {
		if dir, err := CacheDir(); err == nil {
			c.Cache.Dir = dir
		}
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if _, err := geometry.ParseVariant(c.Circle.Variant); err != nil {
		return err
	}
	if !(c.Circle.Width > 0) || !(c.Circle.Height > 0) {
		return errors.New(errors.ErrCodeInvalidConfiguration, "circle size must be positive, got %gx%g", c.Circle.Width, c.Circle.Height)
	}
	if !(c.Circle.RadiusRatio > 0) || c.Circle.RadiusRatio > 0.5 {
		return errors.New(errors.ErrCodeInvalidConfiguration, "radius_ratio must be in (0, 0.5], got %g", c.Circle.RadiusRatio)
	}
	if _, err := render.ParseTheme(c.Circle.Theme); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, err, "circle.theme")
	}

	switch c.Store.Driver {
	case StoreSQLite:
		if c.Store.Path == "" {
			return errors.New(errors.ErrCodeInvalidConfiguration, "store.path is required for sqlite")
		}
	case StoreMongo:
		if c.Store.MongoURI == "" || c.Store.MongoDatabase == "" {
			return errors.New(errors.ErrCodeInvalidConfiguration, "store.mongo_uri and store.mongo_database are required for mongo")
		}
	case StoreMemory:
	default:
		return errors.New(errors.ErrCodeInvalidConfiguration, "unknown store driver %q (want sqlite, memory or mongo)", c.Store.Driver)
	}

	if !slices.Contains([]string{CacheFile, CacheRedis, CacheNone}, c.Cache.Driver) {
		return errors.New(errors.ErrCodeInvalidConfiguration, "unknown cache driver %q (want file, redis or none)", c.Cache.Driver)
	}
	if c.Cache.Driver == CacheRedis && c.Cache.RedisAddr == "" {
		return errors.New(errors.ErrCodeInvalidConfiguration, "cache.redis_addr is required for redis")
	}
	if _, err := c.Cache.TTLDuration(); err != nil {
		return err
	}

	if err := errors.ValidateURL(c.Sync.BaseURL); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, err, "sync.base_url")
	}
	if c.Sync.BatchSize <= 0 {
		return errors.New(errors.ErrCodeInvalidConfiguration, "sync.batch_size must be positive, got %d", c.Sync.BatchSize)
	}
	if c.Server.Addr == "" {
		return errors.New(errors.ErrCodeInvalidConfiguration, "server.addr is required")
	}
	return nil
}

// TTLDuration parses TTL. An empty TTL means entries never expire.
func (c CacheConfig) TTLDuration() (time.Duration, error) {
	if c.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d < 0 {
		return 0, errors.New(errors.ErrCodeInvalidConfiguration, "cache.ttl %q is not a valid duration", c.TTL)
	}
	return d, nil
}

// Encode writes c as TOML.
func (c Config) Encode(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
