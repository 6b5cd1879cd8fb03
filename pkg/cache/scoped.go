package cache

// ScopedKeyer prefixes every key of an inner Keyer, so several circles
// (or several servers sharing one Redis) keep separate namespaces.
//
//	k := NewScopedKeyer(NewDefaultKeyer(), "fractal:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner (the default keyer when nil) with prefix.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// SceneKey returns the prefixed scene key.
func (k *ScopedKeyer) SceneKey(scene any) string {
	return k.prefix + k.inner.SceneKey(scene)
}

// ArtifactKey returns the prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(sceneHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(sceneHash, opts)
}
