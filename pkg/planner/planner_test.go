package planner

import (
	"context"
	"testing"
	"time"

	"github.com/matzehuels/fractal/pkg/errors"
	"github.com/matzehuels/fractal/pkg/geometry"
	"github.com/matzehuels/fractal/pkg/store"
	"github.com/matzehuels/fractal/pkg/store/memory"
	"github.com/matzehuels/fractal/pkg/task"
)

func fixedClock() time.Time { return now }

func newPlanner(t *testing.T, v geometry.Variant) (*Planner, *memory.Store) {
	t.Helper()
	p, err := v.Partition()
	if err != nil {
		t.Fatal(err)
	}
	g, err := geometry.New(200, 200, 160, p)
	if err != nil {
		t.Fatal(err)
	}
	s := memory.New(fixedClock)
	return New(g, v, s, WithClock(fixedClock)), s
}

func TestDropCreatesTaskInHitSector(t *testing.T) {
	ctx := context.Background()
	pl, s := newPlanner(t, geometry.VariantPlain)

	got, ok, err := pl.Drop(ctx, 300, 200, "  buy milk ")
	if err != nil || !ok {
		t.Fatalf("Drop() = %v, %v", ok, err)
	}
	if got.Title != "buy milk" {
		t.Errorf("Title = %q", got.Title)
	}
	want := task.SectorKey{Cycle: task.Monthly, Level: 1, SectorIndex: 0}
	if got.Key() != want {
		t.Errorf("Key() = %+v, want %+v", got.Key(), want)
	}
	// plain variant has no windows: default one-hour task
	if got.End.Sub(got.Start) != task.DefaultDuration {
		t.Errorf("window = %v", got.End.Sub(got.Start))
	}

	tasks, _ := s.ListBySector(ctx, want)
	if len(tasks) != 1 {
		t.Errorf("ListBySector() = %d tasks, want 1", len(tasks))
	}
}

func TestDropIgnoresBlankNotesAndMisses(t *testing.T) {
	ctx := context.Background()
	pl, s := newPlanner(t, geometry.VariantPlain)

	tests := []struct {
		name string
		x, y float64
		note string
	}{
		{"blank note", 200, 200, "   "},
		{"outside circle", 400, 200, "note"},
	}
	for _, tt := range tests {
		_, ok, err := pl.Drop(ctx, tt.x, tt.y, tt.note)
		if ok || err != nil {
			t.Errorf("%s: Drop() = %v, %v, want no-op", tt.name, ok, err)
		}
	}
	if all, _ := s.List(ctx, store.Filter{IncludeArchived: true}); len(all) != 0 {
		t.Errorf("store has %d tasks, want 0", len(all))
	}
}

func TestDropUsesSectorWindow(t *testing.T) {
	ctx := context.Background()
	pl, _ := newPlanner(t, geometry.VariantYear)

	// Core of the year circle is today.
	got, ok, err := pl.Drop(ctx, 200, 200, "standup")
	if err != nil || !ok {
		t.Fatalf("Drop() = %v, %v", ok, err)
	}
	if got.Cycle != task.Daily || !got.Start.Equal(date(2026, 5, 17, 0, 0)) || !got.End.Equal(date(2026, 5, 18, 0, 0)) {
		t.Errorf("Drop() = %s %v..%v", got.Cycle, got.Start, got.End)
	}
}

func TestSelect(t *testing.T) {
	ctx := context.Background()
	pl, _ := newPlanner(t, geometry.VariantYear)

	a := geometry.Address{Ring: geometry.Middle, Index: 10}
	if _, err := pl.CreateInSector(ctx, a, task.Task{Title: "taxes"}); err != nil {
		t.Fatal(err)
	}
	o, err := pl.Geometry().WedgeOutline(a.Ring, a.Index)
	if err != nil {
		t.Fatal(err)
	}

	sel, ok, err := pl.Select(ctx, o.Label.X, o.Label.Y)
	if err != nil || !ok {
		t.Fatalf("Select() = %v, %v", ok, err)
	}
	if sel.Address != a || sel.Label != "Jan" || sel.Quarter != 0 {
		t.Errorf("Select() = %+v", sel)
	}
	if len(sel.Tasks) != 1 || sel.Tasks[0].Title != "taxes" {
		t.Errorf("Select() tasks = %+v", sel.Tasks)
	}
	if sel.Window == nil || !sel.Window.Start.Equal(date(2026, 1, 1, 0, 0)) {
		t.Errorf("Select() window = %+v", sel.Window)
	}

	if _, ok, err := pl.Select(ctx, 0, 0); ok || err != nil {
		t.Errorf("Select(outside) = %v, %v", ok, err)
	}
}

func TestClearSector(t *testing.T) {
	ctx := context.Background()
	pl, s := newPlanner(t, geometry.VariantDay)
	outer0 := geometry.Address{Ring: geometry.Outer, Index: 0}
	for _, title := range []string{"a", "b"} {
		if _, err := pl.CreateInSector(ctx, outer0, task.Task{Title: title}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := pl.CreateInSector(ctx, geometry.Address{Ring: geometry.Outer, Index: 1}, task.Task{Title: "c"}); err != nil {
		t.Fatal(err)
	}

	o, _ := pl.Geometry().WedgeOutline(outer0.Ring, outer0.Index)
	n, ok, err := pl.ClearSector(ctx, o.Label.X, o.Label.Y)
	if err != nil || !ok || n != 2 {
		t.Fatalf("ClearSector() = %d, %v, %v, want 2", n, ok, err)
	}
	live, _ := s.List(ctx, store.Filter{})
	if len(live) != 1 || live[0].Title != "c" {
		t.Errorf("live tasks = %+v", live)
	}
	if n, ok, err := pl.ClearSector(ctx, 1000, 1000); n != 0 || ok || err != nil {
		t.Errorf("ClearSector(outside) = %d, %v, %v", n, ok, err)
	}
}

func TestCreateInSectorValidatesAddress(t *testing.T) {
	ctx := context.Background()
	pl, _ := newPlanner(t, geometry.VariantYear)
	_, err := pl.CreateInSector(ctx, geometry.Address{Ring: geometry.Middle, Index: 12}, task.Task{})
	if !errors.Is(err, errors.ErrCodeOutOfRange) {
		t.Errorf("CreateInSector(middle/12) error = %v", err)
	}
	_, err = pl.CreateInSector(ctx, geometry.Address{Ring: geometry.Ring(5)}, task.Task{})
	if !errors.Is(err, errors.ErrCodeInvalidArgument) {
		t.Errorf("CreateInSector(ring 5) error = %v", err)
	}
}

func TestCounts(t *testing.T) {
	ctx := context.Background()
	pl, _ := newPlanner(t, geometry.VariantDay)
	adds := []geometry.Address{
		{Ring: geometry.Middle, Index: 3},
		{Ring: geometry.Middle, Index: 3},
		{Ring: geometry.Core},
	}
	for _, a := range adds {
		if _, err := pl.CreateInSector(ctx, a, task.Task{Title: "x"}); err != nil {
			t.Fatal(err)
		}
	}
	counts, err := pl.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts[adds[0]] != 2 || counts[adds[2]] != 1 || len(counts) != 2 {
		t.Errorf("Counts() = %v", counts)
	}
}
