package config

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultPath returns the config file location:
// $XDG_CONFIG_HOME/fractal/config.toml or ~/.config/fractal/config.toml.
func DefaultPath() (string, error) {
	dir, err := xdgDir("XDG_CONFIG_HOME", ".config")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DataDir returns the directory holding the local task database
// ($XDG_DATA_HOME/fractal or ~/.local/share/fractal).
func DataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// CacheDir returns the artifact cache directory using XDG standard
// ($XDG_CACHE_HOME/fractal or ~/.cache/fractal).
func CacheDir() (string, error) {
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

// SessionDir returns where calendar credentials are kept.
func SessionDir() (string, error) {
	dir, err := xdgDir("XDG_CONFIG_HOME", ".config")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sessions"), nil
}

func xdgDir(envVar, fallback string) (string, error) {
	if base := os.Getenv(envVar); base != "" {
		return filepath.Join(base, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, appName), nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
