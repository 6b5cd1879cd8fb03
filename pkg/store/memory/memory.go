// Package memory is a process-local [store.Store].
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matzehuels/fractal/pkg/store"
	"github.com/matzehuels/fractal/pkg/task"
)

// Store keeps tasks and the outbox in maps guarded by one mutex.
type Store struct {
	clock store.Clock

	mu     sync.RWMutex
	tasks  map[string]task.Task
	ops    []store.Op
	nextOp int64
}

// New returns an empty store. A nil clock uses the wall clock.
func New(clock store.Clock) *Store {
	return &Store{clock: clock, tasks: make(map[string]task.Task), nextOp: 1}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) enqueue(kind store.OpKind, t task.Task, now time.Time) {
	s.ops = append(s.ops, store.Op{ID: s.nextOp, Kind: kind, TaskID: t.ID, Task: t, CreatedAt: now})
	s.nextOp++
}

func (s *Store) Create(ctx context.Context, t task.Task) (task.Task, error) {
	if err := ctx.Err(); err != nil {
		return task.Task{}, err
	}
	if err := t.Validate(); err != nil {
		return task.Task{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; ok {
		return task.Task{}, fmt.Errorf("create %s: %w", t.ID, store.ErrConflict)
	}
	s.tasks[t.ID] = t
	s.enqueue(store.OpCreate, t, s.clock.Now())
	return t, nil
}

func (s *Store) Get(ctx context.Context, id string) (task.Task, error) {
	if err := ctx.Err(); err != nil {
		return task.Task{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return task.Task{}, fmt.Errorf("get %s: %w", id, store.ErrNotFound)
	}
	return t, nil
}

func (s *Store) Update(ctx context.Context, id string, p task.Patch) (task.Task, error) {
	if err := ctx.Err(); err != nil {
		return task.Task{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.Archived {
		return task.Task{}, fmt.Errorf("update %s: %w", id, store.ErrNotFound)
	}
	now := s.clock.Now()
	updated, err := t.Apply(p, now)
	if err != nil {
		return task.Task{}, err
	}
	s.tasks[id] = updated
	s.enqueue(store.OpUpdate, updated, now)
	return updated, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.Archived {
		return fmt.Errorf("delete %s: %w", id, store.ErrNotFound)
	}
	now := s.clock.Now()
	t = store.Archive(t, now)
	s.tasks[id] = t
	s.enqueue(store.OpDelete, t, now)
	return nil
}

func (s *Store) List(ctx context.Context, f store.Filter) ([]task.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, task.Less)
	return out, nil
}

func (s *Store) ListBySector(ctx context.Context, k task.SectorKey) ([]task.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []task.Task
	for _, t := range s.tasks {
		if !t.Archived && t.Key() == k {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, task.Less)
	return out, nil
}

func (s *Store) DeleteBySector(ctx context.Context, k task.SectorKey) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var victims []task.Task
	for _, t := range s.tasks {
		if !t.Archived && t.Key() == k {
			victims = append(victims, t)
		}
	}
	slices.SortFunc(victims, task.Less)
	now := s.clock.Now()
	for _, t := range victims {
		t = store.Archive(t, now)
		s.tasks[t.ID] = t
		s.enqueue(store.OpDelete, t, now)
	}
	return len(victims), nil
}

func (s *Store) Put(ctx context.Context, t task.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t
	return nil
}

func (s *Store) PendingOps(ctx context.Context, limit int) ([]store.Op, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := store.CheckLimit(limit); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := min(limit, len(s.ops))
	return slices.Clone(s.ops[:n]), nil
}

func (s *Store) AckOp(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = slices.DeleteFunc(s.ops, func(op store.Op) bool { return op.ID == id })
	return nil
}

func (s *Store) FailOp(ctx context.Context, id int64, cause error) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.ops, func(op store.Op) bool { return op.ID == id })
	if i < 0 {
		return false, fmt.Errorf("fail op %d: %w", id, store.ErrNotFound)
	}
	s.ops[i].Tries++
	if cause != nil {
		s.ops[i].LastError = cause.Error()
	}
	if s.ops[i].Tries >= store.MaxTries {
		s.ops = slices.Delete(s.ops, i, i+1)
		return true, nil
	}
	return false, nil
}

func (s *Store) MarkSynced(ctx context.Context, taskID, eventID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return fmt.Errorf("mark synced %s: %w", taskID, store.ErrNotFound)
	}
	t.CalendarEventID = eventID
	t.LastSyncedAt = at
	s.tasks[taskID] = t
	return nil
}

var _ store.Store = (*Store)(nil)
