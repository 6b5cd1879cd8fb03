package pipeline

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/fractal/pkg/cache"
	"github.com/matzehuels/fractal/pkg/errors"
	"github.com/matzehuels/fractal/pkg/geometry"
)

func quietLogger() *log.Logger { return log.New(io.Discard) }

func TestValidateAndSetDefaults(t *testing.T) {
	o := Options{}
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if o.Variant != DefaultVariant || o.Width != DefaultWidth || o.Height != DefaultHeight ||
		o.RadiusRatio != DefaultRadiusRatio || o.Scale != DefaultScale || o.Theme != "light" {
		t.Errorf("defaults = %+v", o)
	}
	if len(o.Formats) != 1 || o.Formats[0] != "svg" {
		t.Errorf("Formats = %v, want [svg]", o.Formats)
	}

	formats := []string{"SVG", "Json"}
	o = Options{Variant: "Year", Theme: "DARK", Formats: formats}
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if o.Variant != "year" || o.Theme != "dark" || o.Formats[0] != "svg" || o.Formats[1] != "json" {
		t.Errorf("normalized = %+v", o)
	}
	if formats[0] != "SVG" {
		t.Error("ValidateAndSetDefaults modified the caller's slice")
	}
}

func TestValidateAndSetDefaultsErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"variant", Options{Variant: "week"}, errors.ErrCodeInvalidConfiguration},
		{"format", Options{Formats: []string{"gif"}}, errors.ErrCodeInvalidFormat},
		{"theme", Options{Theme: "neon"}, errors.ErrCodeInvalidArgument},
		{"ratio", Options{RadiusRatio: 0.8}, errors.ErrCodeInvalidConfiguration},
		{"width", Options{Width: -1}, errors.ErrCodeInvalidConfiguration},
		{"scale", Options{Scale: -2}, errors.ErrCodeInvalidArgument},
		{"highlight", Options{Highlight: &geometry.Address{Ring: geometry.Outer, Index: 4}}, errors.ErrCodeOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if !errors.Is(err, tt.code) {
				t.Errorf("ValidateAndSetDefaults() = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestRunnerRenderCaches(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(fc, nil, quietLogger())
	counts := map[geometry.Address]int{{Ring: geometry.Middle, Index: 2}: 4}
	opts := Options{Variant: "year", Formats: []string{"svg", "json"}}

	first, err := runner.Render(ctx, opts, counts)
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheHit {
		t.Error("first render should miss")
	}
	svg := string(first.Artifacts["svg"])
	for _, want := range []string{">May</text>", ">Q1</text>", ">4</text>", "<title>fractal year planner</title>"} {
		if !strings.Contains(svg, want) {
			t.Errorf("SVG missing %s", want)
		}
	}
	if len(first.Artifacts["json"]) == 0 {
		t.Error("missing json artifact")
	}

	second, err := runner.Render(ctx, opts, counts)
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheHit || second.SceneHash != first.SceneHash {
		t.Errorf("second render: hit=%v hash equal=%v", second.CacheHit, second.SceneHash == first.SceneHash)
	}
	if !bytes.Equal(second.Artifacts["svg"], first.Artifacts["svg"]) {
		t.Error("cached SVG differs")
	}

	counts[geometry.Address{Ring: geometry.Middle, Index: 2}] = 5
	third, err := runner.Render(ctx, opts, counts)
	if err != nil {
		t.Fatal(err)
	}
	if third.CacheHit || third.SceneHash == first.SceneHash {
		t.Error("changed counts must change the scene")
	}

	opts.Refresh = true
	fourth, err := runner.Render(ctx, opts, counts)
	if err != nil || fourth.CacheHit {
		t.Errorf("refresh render: hit=%v err=%v", fourth.CacheHit, err)
	}
}

func TestSceneHash(t *testing.T) {
	runner := NewRunner(nil, nil, quietLogger())
	a := geometry.Address{Ring: geometry.Outer, Index: 1}

	base, err := runner.SceneHash(Options{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	zero, _ := runner.SceneHash(Options{}, map[geometry.Address]int{a: 0})
	if zero != base {
		t.Error("zero counts should not change the scene")
	}

	tests := []struct {
		name   string
		opts   Options
		counts map[geometry.Address]int
	}{
		{"count", Options{}, map[geometry.Address]int{a: 1}},
		{"variant", Options{Variant: "plain"}, nil},
		{"size", Options{Width: 800}, nil},
		{"labels", Options{NoLabels: true}, nil},
		{"highlight", Options{Highlight: &a}, nil},
	}
	for _, tt := range tests {
		got, err := runner.SceneHash(tt.opts, tt.counts)
		if err != nil {
			t.Fatal(err)
		}
		if got == base {
			t.Errorf("%s: scene hash unchanged", tt.name)
		}
	}

	themed, _ := runner.SceneHash(Options{Theme: "dark"}, nil)
	if themed != base {
		t.Error("theme belongs to the artifact key, not the scene")
	}
}

func TestArtifactKeyOpts(t *testing.T) {
	o := Options{Theme: "dark", Scale: 3}
	if got := o.ArtifactKeyOpts("png"); got.Scale != 3 || got.Theme != "dark" {
		t.Errorf("png key opts = %+v", got)
	}
	if got := o.ArtifactKeyOpts("svg"); got.Scale != 0 {
		t.Errorf("svg key opts should ignore scale: %+v", got)
	}
}
