package store_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/fractal/pkg/errors"
	"github.com/matzehuels/fractal/pkg/store"
	"github.com/matzehuels/fractal/pkg/store/memory"
	"github.com/matzehuels/fractal/pkg/store/storetest"
	"github.com/matzehuels/fractal/pkg/task"
)

func seeded(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	s := memory.New(storetest.StepClock())
	for i, title := range []string{"Plan", "Review", "Ship"} {
		tk := storetest.NewTask(t, title, task.Monthly, i, storetest.Epoch)
		tk.Tags = []string{"release"}
		if _, err := s.Create(ctx, tk); err != nil {
			t.Fatal(err)
		}
	}
	all, _ := s.List(ctx, store.Filter{})
	if err := s.Delete(ctx, all[2].ID); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestExportImportRoundTrip(t *testing.T) {
	for _, format := range []store.Format{store.FormatJSON, store.FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			ctx := context.Background()
			src := seeded(t)
			var buf bytes.Buffer
			if err := store.Export(ctx, src, &buf, format, storetest.Epoch); err != nil {
				t.Fatalf("Export() error = %v", err)
			}

			dst := memory.New(storetest.StepClock())
			n, err := store.Import(ctx, dst, &buf, format)
			if err != nil {
				t.Fatalf("Import() error = %v", err)
			}
			if n != 3 {
				t.Errorf("Import() = %d tasks, want 3", n)
			}

			want, _ := src.List(ctx, store.Filter{IncludeArchived: true})
			got, _ := dst.List(ctx, store.Filter{IncludeArchived: true})
			if len(got) != len(want) {
				t.Fatalf("imported %d tasks, want %d", len(got), len(want))
			}
			for i := range want {
				g, w := got[i], want[i]
				if g.ID != w.ID || g.Title != w.Title || g.Archived != w.Archived || g.Key() != w.Key() {
					t.Errorf("task %d = %+v, want %+v", i, g, w)
				}
				if !g.Start.Equal(w.Start) || !g.UpdatedAt.Equal(w.UpdatedAt) {
					t.Errorf("task %d times differ", i)
				}
				if len(g.Tags) != 1 || g.Tags[0] != "release" {
					t.Errorf("task %d tags = %v", i, g.Tags)
				}
			}
			if ops, _ := dst.PendingOps(ctx, 10); len(ops) != 0 {
				t.Errorf("Import queued %d outbox ops, want 0", len(ops))
			}
		})
	}
}

func TestImportRejectsInvalidBackup(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		input string
		code  errors.Code
	}{
		{"malformed", "{not json", errors.ErrCodeInvalidFormat},
		{"newer version", `{"version": 99, "tasks": []}`, errors.ErrCodeUnsupported},
		{"invalid task", `{"version": 1, "tasks": [{"id": "x", "title": "t", "status": "weird", "priority": "low", "cycle": "daily"}]}`, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := memory.New(nil)
			_, err := store.Import(ctx, dst, strings.NewReader(tt.input), store.FormatJSON)
			if !errors.Is(err, tt.code) {
				t.Errorf("Import() error = %v, want %s", err, tt.code)
			}
			if all, _ := dst.List(ctx, store.Filter{IncludeArchived: true}); len(all) != 0 {
				t.Errorf("failed import wrote %d tasks", len(all))
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]store.Format{"json": store.FormatJSON, "YAML": store.FormatYAML, "yml": store.FormatYAML} {
		if got, err := store.ParseFormat(in); err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := store.ParseFormat("xml"); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("ParseFormat(xml) error = %v", err)
	}
	if store.FormatFromPath("backup.YML") != store.FormatYAML || store.FormatFromPath("backup") != store.FormatJSON {
		t.Error("FormatFromPath mismatch")
	}
}

func TestFilterMatch(t *testing.T) {
	tk := task.Task{Cycle: task.Daily, Status: task.StatusDone, Archived: true}
	if (store.Filter{}).Match(tk) {
		t.Error("zero filter matched an archived task")
	}
	if !(store.Filter{IncludeArchived: true, Cycle: task.Daily}).Match(tk) {
		t.Error("filter should match")
	}
	if (store.Filter{IncludeArchived: true, Status: task.StatusPaused}).Match(tk) {
		t.Error("status filter should not match")
	}
}
