// Package task defines the planner's task model and the sector key that
// ties a task to one wedge of the circle.
//
// Tasks are created with [New], which fills defaults (a UUID, the title
// "Untitled Task", status not_started, priority medium and a one-hour
// window) and validates the result. Changes are applied with
// [Task.Apply] and a [Patch], which only touches the fields it sets.
package task

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/fractal/pkg/errors"
)

// DefaultTitle is used when a task is created without a title.
const DefaultTitle = "Untitled Task"

// DefaultDuration is the window length of a task created without an end.
const DefaultDuration = time.Hour

// Status is the lifecycle state of a task.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusPaused     Status = "paused"
	StatusCancelled  Status = "cancelled"
	StatusDone       Status = "done"
)

// Statuses returns every status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusNotStarted, StatusInProgress, StatusPaused, StatusCancelled, StatusDone}
}

// ParseStatus parses a status name. Dashes and spaces are accepted in
// place of underscores.
func ParseStatus(s string) (Status, error) {
	name := strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Statuses(), Status(name)) {
		return Status(name), nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown status %q", s)
}

// Priority orders tasks within a sector.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities returns every priority, lowest first.
func Priorities() []Priority { return []Priority{PriorityLow, PriorityMedium, PriorityHigh} }

// ParsePriority parses a priority name.
func ParsePriority(s string) (Priority, error) {
	name := Priority(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Priorities(), name) {
		return name, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown priority %q", s)
}

// Rank returns 0 for low, 1 for medium and 2 for high.
func (p Priority) Rank() int { return slices.Index(Priorities(), p) }

// Task is one planned item placed in a sector.
type Task struct {
	ID          string    `json:"id" yaml:"id" bson:"_id"`
	Title       string    `json:"title" yaml:"title" bson:"title"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty" bson:"description,omitempty"`
	Start       time.Time `json:"start" yaml:"start" bson:"start"`
	End         time.Time `json:"end" yaml:"end" bson:"end"`

	Cycle       Cycle `json:"cycle" yaml:"cycle" bson:"cycle"`
	Level       int   `json:"level" yaml:"level" bson:"level"`
	SectorIndex int   `json:"sector_index" yaml:"sector_index" bson:"sector_index"`

	Status    Status   `json:"status" yaml:"status" bson:"status"`
	Priority  Priority `json:"priority" yaml:"priority" bson:"priority"`
	Tags      []string `json:"tags,omitempty" yaml:"tags,omitempty" bson:"tags,omitempty"`
	Important bool     `json:"important,omitempty" yaml:"important,omitempty" bson:"important"`
	Archived  bool     `json:"archived,omitempty" yaml:"archived,omitempty" bson:"archived"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at" bson:"updated_at"`

	CalendarEventID string    `json:"calendar_event_id,omitempty" yaml:"calendar_event_id,omitempty" bson:"calendar_event_id,omitempty"`
	LastSyncedAt    time.Time `json:"last_synced_at,omitzero" yaml:"last_synced_at,omitempty" bson:"last_synced_at,omitempty"`
}

// New fills the defaults of a draft task and validates it. Fields already
// set on draft are kept.
func New(draft Task, now time.Time) (Task, error) {
	t := draft
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		t.Title = DefaultTitle
	}
	if t.Status == "" {
		t.Status = StatusNotStarted
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Start.IsZero() {
		t.Start = now
	}
	if t.End.IsZero() {
		t.End = t.Start.Add(DefaultDuration)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if err := t.Validate(); err != nil {
		return Task{}, err
	}
	return t, nil
}

// Validate checks every field of t.
func (t Task) Validate() error {
	if t.ID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "task id is required")
	}
	if err := errors.ValidateTitle(t.Title); err != nil {
		return err
	}
	if err := errors.ValidateTags(t.Tags); err != nil {
		return err
	}
	if !slices.Contains(Statuses(), t.Status) {
		return errors.New(errors.ErrCodeInvalidInput, "unknown status %q", string(t.Status))
	}
	if t.Priority.Rank() < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "unknown priority %q", string(t.Priority))
	}
	if t.End.Before(t.Start) {
		return errors.New(errors.ErrCodeInvalidInput, "task ends before it starts")
	}
	if _, err := t.Key().Address(); err != nil {
		return err
	}
	return nil
}

// Key returns the sector the task belongs to.
func (t Task) Key() SectorKey {
	return SectorKey{Cycle: t.Cycle, Level: t.Level, SectorIndex: t.SectorIndex}
}

// Place moves t into sector k.
func (t *Task) Place(k SectorKey) {
	t.Cycle, t.Level, t.SectorIndex = k.Cycle, k.Level, k.SectorIndex
}

// Patch holds the fields of an update. Nil fields are left unchanged.
type Patch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Start       *time.Time `json:"start,omitempty"`
	End         *time.Time `json:"end,omitempty"`
	Status      *Status    `json:"status,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	Tags        *[]string  `json:"tags,omitempty"`
	Important   *bool      `json:"important,omitempty"`
}

// Empty reports whether p changes nothing.
func (p Patch) Empty() bool { return p == Patch{} }

// Apply returns a copy of t with p applied and UpdatedAt set to now.
func (t Task) Apply(p Patch, now time.Time) (Task, error) {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Start != nil {
		t.Start = *p.Start
	}
	if p.End != nil {
		t.End = *p.End
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Tags != nil {
		t.Tags = slices.Clone(*p.Tags)
	}
	if p.Important != nil {
		t.Important = *p.Important
	}
	t.UpdatedAt = now
	if err := t.Validate(); err != nil {
		return Task{}, err
	}
	return t, nil
}

// Less orders tasks by start time, then by descending priority, then by id.
func Less(a, b Task) int {
	if c := a.Start.Compare(b.Start); c != 0 {
		return c
	}
	if c := b.Priority.Rank() - a.Priority.Rank(); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}
