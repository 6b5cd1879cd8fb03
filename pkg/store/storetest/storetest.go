// Package storetest is a conformance suite every store backend runs from
// its own tests.
package storetest

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/fractal/pkg/errors"
	"github.com/matzehuels/fractal/pkg/store"
	"github.com/matzehuels/fractal/pkg/task"
)

// Epoch is the first instant returned by a [StepClock].
var Epoch = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

// StepClock returns a clock that starts at Epoch and advances one second
// per call.
func StepClock() store.Clock {
	var mu sync.Mutex
	next := Epoch
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(time.Second)
		return now
	}
}

// Opener returns a fresh, empty store using clock.
type Opener func(t *testing.T, clock store.Clock) store.Store

// Run exercises the full store contract.
func Run(t *testing.T, open Opener) {
	tests := []struct {
		name string
		fn   func(*testing.T, store.Store)
	}{
		{"CreateAndGet", testCreateAndGet},
		{"CreateConflict", testCreateConflict},
		{"GetMissing", testGetMissing},
		{"Update", testUpdate},
		{"SoftDelete", testSoftDelete},
		{"ListFilter", testListFilter},
		{"ListBySector", testListBySector},
		{"DeleteBySector", testDeleteBySector},
		{"Put", testPut},
		{"OutboxOrder", testOutboxOrder},
		{"OutboxAckAndFail", testOutboxAckAndFail},
		{"MarkSynced", testMarkSynced},
		{"Cancelled", testCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := open(t, StepClock())
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

// NewTask builds a valid task in sector (cycle, index) with a fixed window.
func NewTask(t *testing.T, title string, cycle task.Cycle, index int, start time.Time) task.Task {
	t.Helper()
	level := map[task.Cycle]int{task.Daily: 0, task.Monthly: 1, task.Quarterly: 2}[cycle]
	draft := task.Task{Title: title, Start: start}
	draft.Place(task.SectorKey{Cycle: cycle, Level: level, SectorIndex: index})
	got, err := task.New(draft, Epoch)
	if err != nil {
		t.Fatalf("task.New(%q) error = %v", title, err)
	}
	return got
}

func mustCreate(t *testing.T, s store.Store, tk task.Task) task.Task {
	t.Helper()
	got, err := s.Create(context.Background(), tk)
	if err != nil {
		t.Fatalf("Create(%s) error = %v", tk.Title, err)
	}
	return got
}

func titles(tasks []task.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Title
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func testCreateAndGet(t *testing.T, s store.Store) {
	ctx := context.Background()
	want := NewTask(t, "Write report", task.Monthly, 3, Epoch)
	want.Tags = []string{"work", "q1"}
	want.Description = "draft and send"
	mustCreate(t, s, want)

	got, err := s.Get(ctx, want.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != want.ID || got.Title != want.Title || got.Description != want.Description {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
	if got.Key() != want.Key() || got.Status != want.Status || got.Priority != want.Priority {
		t.Errorf("Get() key/status/priority = %+v %s %s", got.Key(), got.Status, got.Priority)
	}
	if !got.Start.Equal(want.Start) || !got.End.Equal(want.End) {
		t.Errorf("Get() window = %v..%v, want %v..%v", got.Start, got.End, want.Start, want.End)
	}
	if !equalStrings(got.Tags, want.Tags) {
		t.Errorf("Get() tags = %v, want %v", got.Tags, want.Tags)
	}

	if _, err := s.Create(ctx, task.Task{Title: "no id"}); err == nil {
		t.Error("Create(invalid) = nil, want error")
	}
}

func testCreateConflict(t *testing.T, s store.Store) {
	tk := NewTask(t, "Once", task.Daily, 0, Epoch)
	mustCreate(t, s, tk)
	_, err := s.Create(context.Background(), tk)
	if !errors.Is(err, errors.ErrCodeConflict) {
		t.Errorf("Create(duplicate) error = %v, want CONFLICT", err)
	}
}

func testGetMissing(t *testing.T, s store.Store) {
	_, err := s.Get(context.Background(), "missing")
	if !stderrors.Is(err, store.ErrNotFound) || !errors.Is(err, errors.ErrCodeTaskNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func testUpdate(t *testing.T, s store.Store) {
	ctx := context.Background()
	tk := mustCreate(t, s, NewTask(t, "Draft", task.Quarterly, 1, Epoch))

	title := "Final"
	status := task.StatusInProgress
	got, err := s.Update(ctx, tk.ID, task.Patch{Title: &title, Status: &status})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Title != "Final" || got.Status != task.StatusInProgress {
		t.Errorf("Update() = %+v", got)
	}
	if !got.UpdatedAt.After(tk.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want after %v", got.UpdatedAt, tk.UpdatedAt)
	}
	stored, err := s.Get(ctx, tk.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Title != "Final" || stored.Priority != tk.Priority {
		t.Errorf("stored = %+v", stored)
	}

	bad := task.Status("bogus")
	if _, err := s.Update(ctx, tk.ID, task.Patch{Status: &bad}); err == nil {
		t.Error("Update(invalid status) = nil, want error")
	}
	if _, err := s.Update(ctx, "missing", task.Patch{Title: &title}); !stderrors.Is(err, store.ErrNotFound) {
		t.Errorf("Update(missing) error = %v", err)
	}
}

func testSoftDelete(t *testing.T, s store.Store) {
	ctx := context.Background()
	tk := mustCreate(t, s, NewTask(t, "Temporary", task.Monthly, 5, Epoch))

	if err := s.Delete(ctx, tk.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	got, err := s.Get(ctx, tk.ID)
	if err != nil {
		t.Fatalf("Get(archived) error = %v", err)
	}
	if !got.Archived {
		t.Error("deleted task is not archived")
	}
	live, err := s.List(ctx, store.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(live) != 0 {
		t.Errorf("List() = %v, want empty", titles(live))
	}
	all, err := s.List(ctx, store.Filter{IncludeArchived: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("List(IncludeArchived) = %v, want one task", titles(all))
	}
	if err := s.Delete(ctx, tk.ID); !stderrors.Is(err, store.ErrNotFound) {
		t.Errorf("Delete(archived) error = %v, want ErrNotFound", err)
	}
	title := "revived"
	if _, err := s.Update(ctx, tk.ID, task.Patch{Title: &title}); !stderrors.Is(err, store.ErrNotFound) {
		t.Errorf("Update(archived) error = %v, want ErrNotFound", err)
	}
}

func testListFilter(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustCreate(t, s, NewTask(t, "b-daily", task.Daily, 0, Epoch.Add(time.Hour)))
	mustCreate(t, s, NewTask(t, "a-monthly", task.Monthly, 2, Epoch))
	done := NewTask(t, "c-done", task.Monthly, 4, Epoch.Add(2*time.Hour))
	done.Status = task.StatusDone
	mustCreate(t, s, done)

	tests := []struct {
		name   string
		filter store.Filter
		want   []string
	}{
		{"all live", store.Filter{}, []string{"a-monthly", "b-daily", "c-done"}},
		{"monthly", store.Filter{Cycle: task.Monthly}, []string{"a-monthly", "c-done"}},
		{"done", store.Filter{Status: task.StatusDone}, []string{"c-done"}},
		{"none", store.Filter{Cycle: task.Quarterly}, nil},
	}
	for _, tt := range tests {
		got, err := s.List(ctx, tt.filter)
		if err != nil {
			t.Fatalf("List(%s) error = %v", tt.name, err)
		}
		if !equalStrings(titles(got), tt.want) {
			t.Errorf("List(%s) = %v, want %v", tt.name, titles(got), tt.want)
		}
	}
}

func testListBySector(t *testing.T, s store.Store) {
	ctx := context.Background()
	key := task.SectorKey{Cycle: task.Monthly, Level: 1, SectorIndex: 7}
	low := NewTask(t, "low", task.Monthly, 7, Epoch)
	low.Priority = task.PriorityLow
	high := NewTask(t, "high", task.Monthly, 7, Epoch)
	high.Priority = task.PriorityHigh
	early := NewTask(t, "early", task.Monthly, 7, Epoch.Add(-time.Hour))
	mustCreate(t, s, low)
	mustCreate(t, s, high)
	mustCreate(t, s, early)
	mustCreate(t, s, NewTask(t, "other sector", task.Monthly, 8, Epoch))
	mustCreate(t, s, NewTask(t, "other ring", task.Quarterly, 7%4, Epoch))

	got, err := s.ListBySector(ctx, key)
	if err != nil {
		t.Fatalf("ListBySector() error = %v", err)
	}
	if want := []string{"early", "high", "low"}; !equalStrings(titles(got), want) {
		t.Errorf("ListBySector() = %v, want %v", titles(got), want)
	}

	empty, err := s.ListBySector(ctx, task.SectorKey{Cycle: task.Monthly, Level: 1, SectorIndex: 0})
	if err != nil || len(empty) != 0 {
		t.Errorf("ListBySector(empty) = %v, %v", titles(empty), err)
	}
}

func testDeleteBySector(t *testing.T, s store.Store) {
	ctx := context.Background()
	key := task.SectorKey{Cycle: task.Quarterly, Level: 2, SectorIndex: 2}
	mustCreate(t, s, NewTask(t, "one", task.Quarterly, 2, Epoch))
	mustCreate(t, s, NewTask(t, "two", task.Quarterly, 2, Epoch))
	keep := mustCreate(t, s, NewTask(t, "keep", task.Quarterly, 3, Epoch))

	n, err := s.DeleteBySector(ctx, key)
	if err != nil {
		t.Fatalf("DeleteBySector() error = %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteBySector() = %d, want 2", n)
	}
	left, err := s.List(ctx, store.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 1 || left[0].ID != keep.ID {
		t.Errorf("List() after clear = %v, want [keep]", titles(left))
	}
	n, err = s.DeleteBySector(ctx, key)
	if err != nil || n != 0 {
		t.Errorf("DeleteBySector(again) = %d, %v, want 0", n, err)
	}

	ops, err := s.PendingOps(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	deletes := 0
	for _, op := range ops {
		if op.Kind == store.OpDelete {
			deletes++
		}
	}
	if deletes != 2 {
		t.Errorf("queued %d DELETE ops, want 2", deletes)
	}
}

func testPut(t *testing.T, s store.Store) {
	ctx := context.Background()
	tk := NewTask(t, "Imported", task.Daily, 0, Epoch)
	if err := s.Put(ctx, tk); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	tk.Title = "Imported twice"
	if err := s.Put(ctx, tk); err != nil {
		t.Fatalf("Put(overwrite) error = %v", err)
	}
	got, err := s.Get(ctx, tk.ID)
	if err != nil || got.Title != "Imported twice" {
		t.Errorf("Get() = %+v, %v", got, err)
	}
	ops, err := s.PendingOps(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 0 {
		t.Errorf("Put queued %d ops, want 0", len(ops))
	}
}

func testOutboxOrder(t *testing.T, s store.Store) {
	ctx := context.Background()
	tk := mustCreate(t, s, NewTask(t, "Tracked", task.Monthly, 0, Epoch))
	title := "Tracked v2"
	if _, err := s.Update(ctx, tk.ID, task.Patch{Title: &title}); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, tk.ID); err != nil {
		t.Fatal(err)
	}

	ops, err := s.PendingOps(ctx, 10)
	if err != nil {
		t.Fatalf("PendingOps() error = %v", err)
	}
	wantKinds := []store.OpKind{store.OpCreate, store.OpUpdate, store.OpDelete}
	if len(ops) != len(wantKinds) {
		t.Fatalf("PendingOps() = %d ops, want %d", len(ops), len(wantKinds))
	}
	for i, op := range ops {
		if op.Kind != wantKinds[i] || op.TaskID != tk.ID {
			t.Errorf("op %d = %s %s, want %s %s", i, op.Kind, op.TaskID, wantKinds[i], tk.ID)
		}
		if i > 0 && op.ID <= ops[i-1].ID {
			t.Errorf("op ids not increasing: %d after %d", op.ID, ops[i-1].ID)
		}
	}
	if ops[1].Task.Title != "Tracked v2" {
		t.Errorf("UPDATE snapshot title = %q", ops[1].Task.Title)
	}
	if !ops[2].Task.Archived {
		t.Error("DELETE snapshot is not archived")
	}

	limited, err := s.PendingOps(ctx, 2)
	if err != nil || len(limited) != 2 || limited[0].ID != ops[0].ID {
		t.Errorf("PendingOps(2) = %d ops, %v", len(limited), err)
	}
	if _, err := s.PendingOps(ctx, 0); err == nil {
		t.Error("PendingOps(0) = nil error, want error")
	}
}

func testOutboxAckAndFail(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustCreate(t, s, NewTask(t, "first", task.Daily, 0, Epoch))
	mustCreate(t, s, NewTask(t, "second", task.Daily, 0, Epoch))
	ops, err := s.PendingOps(ctx, 10)
	if err != nil || len(ops) != 2 {
		t.Fatalf("PendingOps() = %d, %v", len(ops), err)
	}

	if err := s.AckOp(ctx, ops[0].ID); err != nil {
		t.Fatalf("AckOp() error = %v", err)
	}
	cause := stderrors.New("calendar unavailable")
	for try := 1; try < store.MaxTries; try++ {
		dropped, err := s.FailOp(ctx, ops[1].ID, cause)
		if err != nil {
			t.Fatalf("FailOp() error = %v", err)
		}
		if dropped {
			t.Fatalf("FailOp() dropped op after %d tries", try)
		}
	}
	left, err := s.PendingOps(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 1 || left[0].Tries != store.MaxTries-1 || left[0].LastError != cause.Error() {
		t.Fatalf("PendingOps() = %+v", left)
	}

	dropped, err := s.FailOp(ctx, ops[1].ID, cause)
	if err != nil || !dropped {
		t.Errorf("FailOp(last) = %v, %v, want dropped", dropped, err)
	}
	left, err = s.PendingOps(ctx, 10)
	if err != nil || len(left) != 0 {
		t.Errorf("PendingOps() after drop = %d, %v", len(left), err)
	}
}

func testMarkSynced(t *testing.T, s store.Store) {
	ctx := context.Background()
	tk := mustCreate(t, s, NewTask(t, "Synced", task.Quarterly, 0, Epoch))
	at := Epoch.Add(time.Minute)
	if err := s.MarkSynced(ctx, tk.ID, "evt-42", at); err != nil {
		t.Fatalf("MarkSynced() error = %v", err)
	}
	got, err := s.Get(ctx, tk.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CalendarEventID != "evt-42" || !got.LastSyncedAt.Equal(at) {
		t.Errorf("sync state = %q %v", got.CalendarEventID, got.LastSyncedAt)
	}
	if err := s.MarkSynced(ctx, "missing", "evt", at); !stderrors.Is(err, store.ErrNotFound) {
		t.Errorf("MarkSynced(missing) error = %v", err)
	}
}

func testCancelled(t *testing.T, s store.Store) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Create(ctx, NewTask(t, "late", task.Daily, 0, Epoch)); !stderrors.Is(err, context.Canceled) {
		t.Errorf("Create(cancelled) error = %v", err)
	}
	if _, err := s.List(ctx, store.Filter{}); !stderrors.Is(err, context.Canceled) {
		t.Errorf("List(cancelled) error = %v", err)
	}
}
