// Package planner connects the geometry engine to task storage.
//
// A [Planner] turns pointer positions into sector addresses with
// [geometry.Geometry.Classify] and then reads or changes the tasks stored
// under that sector's [task.SectorKey]. Points outside the circle are
// ignored rather than reported as errors.
//
// Sector time windows ([SectorWindow]) and labels ([Label]) give each
// sector its calendar meaning for the day and year variants.
package planner

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/fractal/pkg/errors"
	"github.com/matzehuels/fractal/pkg/geometry"
	"github.com/matzehuels/fractal/pkg/observability"
	"github.com/matzehuels/fractal/pkg/store"
	"github.com/matzehuels/fractal/pkg/task"
)

// Planner routes pointer input on one circle to a task store.
type Planner struct {
	geom    geometry.Geometry
	variant geometry.Variant
	tasks   store.Tasks
	clock   store.Clock
	logger  *log.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithClock overrides the wall clock used for time windows.
func WithClock(c store.Clock) Option {
	return func(p *Planner) { p.clock = c }
}

// WithLogger sets the logger. A nil logger, the default, disables logging.
func WithLogger(l *log.Logger) Option {
	return func(p *Planner) { p.logger = l }
}

// New returns a planner for circle g drawn with variant v.
func New(g geometry.Geometry, v geometry.Variant, tasks store.Tasks, opts ...Option) *Planner {
	p := &Planner{geom: g, variant: v, tasks: tasks}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Geometry returns the circle the planner hit-tests against.
func (p *Planner) Geometry() geometry.Geometry { return p.geom }

// Variant returns the partition preset.
func (p *Planner) Variant() geometry.Variant { return p.variant }

func (p *Planner) debug(msg string, keyvals ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, keyvals...)
	}
}

// Selection describes one sector and its live tasks.
type Selection struct {
	Address geometry.Address `json:"address"`
	Key     task.SectorKey   `json:"key"`
	Label   string           `json:"label"`
	Quarter int              `json:"quarter"`
	Window  *Window          `json:"window,omitempty"`
	Tasks   []task.Task      `json:"tasks"`
}

// Select hit-tests (x, y) and returns the sector under it. ok is false for
// points outside the circle.
func (p *Planner) Select(ctx context.Context, x, y float64) (Selection, bool, error) {
	a, ok := p.geom.Classify(x, y)
	if !ok {
		observability.Planner().OnSelect(ctx, "", -1)
		return Selection{}, false, nil
	}
	observability.Planner().OnSelect(ctx, a.Ring.String(), a.Index)
	sel, err := p.SelectAddress(ctx, a)
	return sel, err == nil, err
}

// SelectAddress returns sector a and its live tasks.
func (p *Planner) SelectAddress(ctx context.Context, a geometry.Address) (Selection, error) {
	key, err := p.key(a)
	if err != nil {
		return Selection{}, err
	}
	tasks, err := p.tasks.ListBySector(ctx, key)
	if err != nil {
		return Selection{}, err
	}
	q, _ := p.geom.Partition().QuarterOf(a.Ring, a.Index)
	sel := Selection{
		Address: a,
		Key:     key,
		Label:   Label(p.variant, a),
		Quarter: q,
		Tasks:   tasks,
	}
	if sel.Tasks == nil {
		sel.Tasks = []task.Task{}
	}
	if w, err := SectorWindow(p.variant, a, p.clock.Now()); err == nil {
		sel.Window = &w
	}
	p.debug("selected sector", "sector", a, "tasks", len(tasks))
	return sel, nil
}

// Drop creates a task titled note in the sector under (x, y). Blank notes
// and points outside the circle do nothing and return ok false.
func (p *Planner) Drop(ctx context.Context, x, y float64, note string) (task.Task, bool, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return task.Task{}, false, nil
	}
	a, ok := p.geom.Classify(x, y)
	if !ok {
		return task.Task{}, false, nil
	}
	t, err := p.CreateInSector(ctx, a, task.Task{Title: note})
	observability.Planner().OnDrop(ctx, a.Ring.String(), a.Index, err)
	if err != nil {
		return task.Task{}, false, err
	}
	return t, true, nil
}

// ClearSector archives every task in the sector under (x, y).
func (p *Planner) ClearSector(ctx context.Context, x, y float64) (int, bool, error) {
	a, ok := p.geom.Classify(x, y)
	if !ok {
		return 0, false, nil
	}
	n, err := p.ClearAddress(ctx, a)
	return n, err == nil, err
}

// ClearAddress archives every task in sector a.
func (p *Planner) ClearAddress(ctx context.Context, a geometry.Address) (int, error) {
	key, err := p.key(a)
	if err != nil {
		return 0, err
	}
	n, err := p.tasks.DeleteBySector(ctx, key)
	if err != nil {
		return 0, err
	}
	observability.Planner().OnClear(ctx, a.Ring.String(), a.Index, n)
	p.debug("cleared sector", "sector", a, "removed", n)
	return n, nil
}

// CreateInSector stores draft in sector a. A draft without a start takes
// the sector's time window when the variant has one.
func (p *Planner) CreateInSector(ctx context.Context, a geometry.Address, draft task.Task) (task.Task, error) {
	key, err := p.key(a)
	if err != nil {
		return task.Task{}, err
	}
	now := p.clock.Now()
	if draft.Start.IsZero() {
		if w, err := SectorWindow(p.variant, a, now); err == nil {
			draft.Start, draft.End = w.Start, w.End
		}
	}
	draft.Place(key)
	t, err := task.New(draft, now)
	if err != nil {
		return task.Task{}, err
	}
	created, err := p.tasks.Create(ctx, t)
	if err != nil {
		return task.Task{}, err
	}
	p.debug("created task", "id", created.ID, "sector", a, "title", created.Title)
	return created, nil
}

// Counts returns the number of live tasks per sector. Sectors without
// tasks are absent.
func (p *Planner) Counts(ctx context.Context) (map[geometry.Address]int, error) {
	tasks, err := p.tasks.List(ctx, store.Filter{})
	if err != nil {
		return nil, err
	}
	counts := make(map[geometry.Address]int)
	for _, t := range tasks {
		a, err := t.Key().Address()
		if err != nil {
			continue
		}
		if n, err := p.geom.Partition().SectorCount(a.Ring); err != nil || a.Index >= n {
			continue
		}
		counts[a]++
	}
	return counts, nil
}

// key validates a against the circle and converts it to a storage key.
func (p *Planner) key(a geometry.Address) (task.SectorKey, error) {
	n, err := p.geom.Partition().SectorCount(a.Ring)
	if err != nil {
		return task.SectorKey{}, err
	}
	if a.Index < 0 || a.Index >= n {
		return task.SectorKey{}, errors.New(errors.ErrCodeOutOfRange, "%s sector %d outside [0,%d)", a.Ring, a.Index, n)
	}
	return task.KeyOf(a)
}

// Now returns the planner's current time.
func (p *Planner) Now() time.Time { return p.clock.Now() }
