// Package store defines task persistence for the planner.
//
// A [Store] keeps tasks indexed by their sector key and records every
// mutation in an outbox so calendar sync can replay it later. Deletes are
// soft: the task is archived, hidden from listings and an outbox DELETE is
// queued.
//
// Backends:
//   - memory: process-local, used by tests and --store memory
//   - sqlite: single-file database (modernc.org/sqlite, no cgo)
//   - mongo: shared document store
//
// All backends pass the conformance suite in [storetest].
package store

import (
	"context"
	"time"

	"github.com/matzehuels/fractal/pkg/errors"
	"github.com/matzehuels/fractal/pkg/task"
)

// MaxTries is how often an outbox operation is attempted before it is
// dropped.
const MaxTries = 5

// ErrNotFound is returned (possibly wrapped) when a task does not exist
// or is archived.
var ErrNotFound = errors.New(errors.ErrCodeTaskNotFound, "task not found")

// ErrConflict is returned (wrapped) when Create meets an existing id.
var ErrConflict = errors.New(errors.ErrCodeConflict, "task already exists")

// OpKind is the kind of mutation recorded in the outbox.
type OpKind string

const (
	OpCreate OpKind = "CREATE"
	OpUpdate OpKind = "UPDATE"
	OpDelete OpKind = "DELETE"
)

// Op is one pending outbox entry. Task is a snapshot taken when the
// mutation happened.
type Op struct {
	ID        int64     `json:"id"`
	Kind      OpKind    `json:"kind"`
	TaskID    string    `json:"task_id"`
	Task      task.Task `json:"task"`
	Tries     int       `json:"tries"`
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter narrows List. The zero value lists every non-archived task.
type Filter struct {
	Cycle           task.Cycle
	Status          task.Status
	IncludeArchived bool
}

// Match reports whether t passes the filter.
func (f Filter) Match(t task.Task) bool {
	if t.Archived && !f.IncludeArchived {
		return false
	}
	if f.Cycle != "" && t.Cycle != f.Cycle {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	return true
}

// Tasks is the task side of a store.
type Tasks interface {
	// Create persists a validated task and queues a CREATE.
	Create(ctx context.Context, t task.Task) (task.Task, error)
	// Get returns a task by id, archived or not.
	Get(ctx context.Context, id string) (task.Task, error)
	// Update applies a patch to a live task and queues an UPDATE.
	Update(ctx context.Context, id string, p task.Patch) (task.Task, error)
	// Delete archives a live task and queues a DELETE.
	Delete(ctx context.Context, id string) error
	// List returns tasks matching f ordered by task.Less.
	List(ctx context.Context, f Filter) ([]task.Task, error)
	// ListBySector returns the live tasks of one sector ordered by task.Less.
	ListBySector(ctx context.Context, k task.SectorKey) ([]task.Task, error)
	// DeleteBySector archives every live task of one sector and returns
	// how many were archived.
	DeleteBySector(ctx context.Context, k task.SectorKey) (int, error)
	// Put writes t as-is without touching the outbox. Used by Import.
	Put(ctx context.Context, t task.Task) error
}

// Outbox is the sync side of a store.
type Outbox interface {
	// PendingOps returns up to limit operations, oldest first.
	PendingOps(ctx context.Context, limit int) ([]Op, error)
	// AckOp removes a completed operation.
	AckOp(ctx context.Context, id int64) error
	// FailOp records a failed attempt. The operation is dropped once it has
	// been tried MaxTries times; dropped reports whether that happened.
	FailOp(ctx context.Context, id int64, cause error) (dropped bool, err error)
	// MarkSynced records the remote event id of a task.
	MarkSynced(ctx context.Context, taskID, eventID string, at time.Time) error
}

// Store is a complete task store.
type Store interface {
	Tasks
	Outbox
	Close() error
}

// Clock returns the current time. Backends default to time.Now.
type Clock func() time.Time

// Now calls c, falling back to time.Now for a nil clock.
func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c()
}

// Archive returns t archived at now.
func Archive(t task.Task, now time.Time) task.Task {
	t.Archived = true
	t.UpdatedAt = now
	return t
}

// CheckLimit validates a PendingOps limit.
func CheckLimit(limit int) error {
	if limit <= 0 {
		return errors.New(errors.ErrCodeInvalidArgument, "limit must be greater than zero")
	}
	return nil
}
