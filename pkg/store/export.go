package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/fractal/pkg/errors"
	"github.com/matzehuels/fractal/pkg/task"
)

// SnapshotVersion is written into every export.
const SnapshotVersion = 1

// Format is a backup encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses "json", "yaml" or "yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unknown backup format %q (want json or yaml)", s)
}

// FormatFromPath picks a format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Snapshot is the on-disk shape of a backup.
type Snapshot struct {
	Version    int         `json:"version" yaml:"version"`
	ExportedAt time.Time   `json:"exported_at" yaml:"exported_at"`
	Tasks      []task.Task `json:"tasks" yaml:"tasks"`
}

// Export writes every task, archived ones included, to w.
func Export(ctx context.Context, s Tasks, w io.Writer, format Format, now time.Time) error {
	tasks, err := s.List(ctx, Filter{IncludeArchived: true})
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	snap := Snapshot{Version: SnapshotVersion, ExportedAt: now.UTC(), Tasks: tasks}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return err
		}
		return enc.Close()
	}
	return errors.New(errors.ErrCodeInvalidFormat, "unknown backup format %q", string(format))
}

// Import reads a backup and writes every task with Put. Tasks are validated
// before anything is written, so a bad backup changes nothing.
func Import(ctx context.Context, s Tasks, r io.Reader, format Format) (int, error) {
	var snap Snapshot
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&snap); err != nil {
			return 0, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode json backup")
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&snap); err != nil {
			return 0, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode yaml backup")
		}
	default:
		return 0, errors.New(errors.ErrCodeInvalidFormat, "unknown backup format %q", string(format))
	}
	if snap.Version > SnapshotVersion {
		return 0, errors.New(errors.ErrCodeUnsupported, "backup version %d is newer than supported version %d", snap.Version, SnapshotVersion)
	}

	for i, t := range snap.Tasks {
		if err := t.Validate(); err != nil {
			return 0, errors.Wrap(errors.ErrCodeInvalidInput, err, "task %d (%s)", i, t.ID)
		}
	}
	for _, t := range snap.Tasks {
		if err := s.Put(ctx, t); err != nil {
			return 0, fmt.Errorf("put task %s: %w", t.ID, err)
		}
	}
	return len(snap.Tasks), nil
}
