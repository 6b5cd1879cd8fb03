package task

import (
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/fractal/pkg/errors"
	"github.com/matzehuels/fractal/pkg/geometry"
)

var now = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func monthly(i int) Task {
	var t Task
	t.Place(SectorKey{Cycle: Monthly, Level: 1, SectorIndex: i})
	return t
}

func TestNewDefaults(t *testing.T) {
	got, err := New(monthly(3), now)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got.ID == "" {
		t.Error("ID is empty")
	}
	if got.Title != DefaultTitle {
		t.Errorf("Title = %q, want %q", got.Title, DefaultTitle)
	}
	if got.Status != StatusNotStarted || got.Priority != PriorityMedium {
		t.Errorf("Status, Priority = %s, %s", got.Status, got.Priority)
	}
	if !got.Start.Equal(now) || got.End.Sub(got.Start) != time.Hour {
		t.Errorf("window = %v .. %v, want one hour from now", got.Start, got.End)
	}
	if !got.CreatedAt.Equal(now) || !got.UpdatedAt.Equal(now) {
		t.Errorf("timestamps = %v / %v", got.CreatedAt, got.UpdatedAt)
	}
	if got.Key() != (SectorKey{Cycle: Monthly, Level: 1, SectorIndex: 3}) {
		t.Errorf("Key() = %+v", got.Key())
	}
}

func TestNewKeepsDraftFields(t *testing.T) {
	draft := monthly(0)
	draft.ID = "fixed"
	draft.Title = "  Plan garden  "
	draft.Priority = PriorityHigh
	draft.End = now.Add(3 * time.Hour)

	got, err := New(draft, now)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got.ID != "fixed" || got.Title != "Plan garden" || got.Priority != PriorityHigh {
		t.Errorf("New() = %+v", got)
	}
	if !got.End.Equal(now.Add(3 * time.Hour)) {
		t.Errorf("End = %v", got.End)
	}
}

func TestNewUniqueIDs(t *testing.T) {
	seen := map[string]bool{}
	for range 50 {
		got, err := New(monthly(1), now)
		if err != nil {
			t.Fatal(err)
		}
		if seen[got.ID] {
			t.Fatalf("duplicate id %s", got.ID)
		}
		seen[got.ID] = true
	}
}

func TestValidate(t *testing.T) {
	valid, err := New(monthly(2), now)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name   string
		mutate func(*Task)
	}{
		{"missing id", func(t *Task) { t.ID = "" }},
		{"long title", func(t *Task) { t.Title = strings.Repeat("x", 201) }},
		{"bad status", func(t *Task) { t.Status = "waiting" }},
		{"bad priority", func(t *Task) { t.Priority = "urgent" }},
		{"ends before start", func(t *Task) { t.End = t.Start.Add(-time.Minute) }},
		{"unknown cycle", func(t *Task) { t.Cycle = "weekly" }},
		{"level mismatch", func(t *Task) { t.Level = 2 }},
		{"negative index", func(t *Task) { t.SectorIndex = -1 }},
		{"tag with space", func(t *Task) { t.Tags = []string{"two words"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := valid
			tt.mutate(&task)
			if err := task.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate(valid) = %v", err)
	}
}

func TestApply(t *testing.T) {
	orig, err := New(monthly(4), now)
	if err != nil {
		t.Fatal(err)
	}
	title := "Renamed"
	done := StatusDone
	tags := []string{"home"}
	later := now.Add(time.Hour)

	got, err := orig.Apply(Patch{Title: &title, Status: &done, Tags: &tags}, later)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got.Title != "Renamed" || got.Status != StatusDone || len(got.Tags) != 1 {
		t.Errorf("Apply() = %+v", got)
	}
	if got.Priority != orig.Priority || got.Description != orig.Description {
		t.Error("Apply() changed fields the patch did not set")
	}
	if !got.UpdatedAt.Equal(later) || !got.CreatedAt.Equal(orig.CreatedAt) {
		t.Errorf("timestamps = %v / %v", got.CreatedAt, got.UpdatedAt)
	}
	tags[0] = "changed"
	if got.Tags[0] != "home" {
		t.Error("Apply() aliased the patch's tag slice")
	}

	bad := Status("bogus")
	if _, err := orig.Apply(Patch{Status: &bad}, later); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Apply(bad status) error = %v", err)
	}
	if !(Patch{}).Empty() || (Patch{Title: &title}).Empty() {
		t.Error("Empty() mismatch")
	}
}

func TestParseStatusAndPriority(t *testing.T) {
	for in, want := range map[string]Status{"done": StatusDone, "In-Progress": StatusInProgress, "not started": StatusNotStarted} {
		if got, err := ParseStatus(in); err != nil || got != want {
			t.Errorf("ParseStatus(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseStatus("later"); err == nil {
		t.Error("ParseStatus(later) should fail")
	}
	if got, err := ParsePriority(" HIGH "); err != nil || got != PriorityHigh {
		t.Errorf("ParsePriority() = %q, %v", got, err)
	}
	if _, err := ParsePriority("urgent"); err == nil {
		t.Error("ParsePriority(urgent) should fail")
	}
}

func TestLess(t *testing.T) {
	a := Task{ID: "a", Start: now, Priority: PriorityLow}
	b := Task{ID: "b", Start: now, Priority: PriorityHigh}
	c := Task{ID: "c", Start: now.Add(-time.Hour), Priority: PriorityLow}
	if Less(b, a) >= 0 {
		t.Error("higher priority should sort first at equal start")
	}
	if Less(c, b) >= 0 {
		t.Error("earlier start should sort first")
	}
	if Less(a, a) != 0 {
		t.Error("Less(a, a) != 0")
	}
}

func TestCycleRingMapping(t *testing.T) {
	tests := []struct {
		cycle Cycle
		ring  geometry.Ring
	}{
		{Daily, geometry.Core},
		{Monthly, geometry.Middle},
		{Quarterly, geometry.Outer},
	}
	for _, tt := range tests {
		if got, err := RingOf(tt.cycle); err != nil || got != tt.ring {
			t.Errorf("RingOf(%s) = %v, %v", tt.cycle, got, err)
		}
		if got, err := CycleOf(tt.ring); err != nil || got != tt.cycle {
			t.Errorf("CycleOf(%s) = %v, %v", tt.ring, got, err)
		}
	}
	if _, err := CycleOf(geometry.Ring(7)); err == nil {
		t.Error("CycleOf(7) should fail")
	}
}

func TestKeyOfRoundTrip(t *testing.T) {
	p, err := geometry.VariantYear.Partition()
	if err != nil {
		t.Fatal(err)
	}
	g, err := geometry.New(0, 0, 100, p)
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range g.Addresses() {
		k, err := KeyOf(a)
		if err != nil {
			t.Fatalf("KeyOf(%s) error = %v", a, err)
		}
		if k.Level != int(a.Ring) || k.SectorIndex != a.Index {
			t.Errorf("KeyOf(%s) = %+v", a, k)
		}
		back, err := k.Address()
		if err != nil || back != a {
			t.Errorf("Address() = %v, %v, want %v", back, err, a)
		}
	}
}

func TestParseCycle(t *testing.T) {
	for in, want := range map[string]Cycle{"daily": Daily, "Monthly": Monthly, "outer": Quarterly, "core": Daily} {
		if got, err := ParseCycle(in); err != nil || got != want {
			t.Errorf("ParseCycle(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseCycle("weekly"); err == nil {
		t.Error("ParseCycle(weekly) should fail")
	}
}
