// Package cache stores rendered artifacts keyed by a hash of everything
// that affects their bytes.
//
// Three backends implement [Cache]:
//   - [FileCache]: one JSON file per entry under a directory (CLI default)
//   - [RedisCache]: shared cache for `fractal serve` deployments
//   - [NullCache]: caching disabled
//
// Keys come from a [Keyer] so callers never build key strings by hand.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is used when the configuration does not set one.
const DefaultTTL = 24 * time.Hour

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the entry for key. ok is false on a miss or an expired entry.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Clearer is implemented by caches that can drop every entry at once.
type Clearer interface {
	Clear(ctx context.Context) error
}

// ArtifactKeyOpts are the render options that change artifact bytes.
type ArtifactKeyOpts struct {
	Format string  `json:"format"`
	Theme  string  `json:"theme"`
	Scale  float64 `json:"scale,omitempty"`
}

// Keyer builds cache keys.
type Keyer interface {
	// SceneKey identifies a circle: geometry, variant and per-sector counts.
	SceneKey(scene any) string
	// ArtifactKey identifies one rendering of a scene.
	ArtifactKey(sceneHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer hashes its inputs with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// SceneKey hashes the JSON encoding of scene.
func (DefaultKeyer) SceneKey(scene any) string {
	return hashKey("scene", scene)
}

// ArtifactKey combines a scene hash with render options.
func (DefaultKeyer) ArtifactKey(sceneHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", sceneHash, opts)
}
