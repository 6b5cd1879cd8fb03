package calsync

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/fractal/pkg/errors"
	"github.com/matzehuels/fractal/pkg/observability"
	"github.com/matzehuels/fractal/pkg/store"
)

// DefaultBatchSize is how many outbox entries are read per round trip.
const DefaultBatchSize = 50

// Calendar is the remote side of a sync. [*Client] implements it.
type Calendar interface {
	Insert(ctx context.Context, e Event) (string, error)
	Patch(ctx context.Context, id string, e Event) error
	Delete(ctx context.Context, id string) error
}

// Result summarizes one [Processor.Run].
type Result struct {
	Pushed  int `json:"pushed"`
	Failed  int `json:"failed"`
	Dropped int `json:"dropped"`
}

// Processor drains a store's outbox into a [Calendar].
type Processor struct {
	store  store.Store
	cal    Calendar
	batch  int
	clock  store.Clock
	logger *log.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithBatchSize sets how many entries are fetched at a time.
func WithBatchSize(n int) ProcessorOption {
	return func(p *Processor) {
		if n > 0 {
			p.batch = n
		}
	}
}

// WithClock overrides the clock used for LastSyncedAt.
func WithClock(c store.Clock) ProcessorOption {
	return func(p *Processor) { p.clock = c }
}

// WithLogger sets the logger. Nil disables logging.
func WithLogger(l *log.Logger) ProcessorOption {
	return func(p *Processor) { p.logger = l }
}

// NewProcessor returns a processor pushing st's outbox to cal.
func NewProcessor(st store.Store, cal Calendar, opts ...ProcessorOption) *Processor {
	p := &Processor{store: st, cal: cal, batch: DefaultBatchSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run pushes pending operations oldest first until the outbox is empty or
// an operation fails. A push failure is recorded on the operation and
// returned; the counts in Result are valid either way.
func (p *Processor) Run(ctx context.Context) (Result, error) {
	var res Result
	defer func() {
		observability.Sync().OnSyncComplete(ctx, res.Pushed, res.Failed, res.Dropped)
	}()

	for {
		ops, err := p.store.PendingOps(ctx, p.batch)
		if err != nil {
			return res, fmt.Errorf("read outbox: %w", err)
		}
		for _, op := range ops {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			if err := p.process(ctx, op); err != nil {
				res.Failed++
				dropped, ferr := p.store.FailOp(ctx, op.ID, err)
				if ferr != nil {
					return res, fmt.Errorf("record failure of op %d: %w", op.ID, ferr)
				}
				if dropped {
					res.Dropped++
				}
				p.log().Warn("sync stopped", "op", op.ID, "kind", op.Kind, "task", op.TaskID,
					"tries", op.Tries+1, "dropped", dropped, "error", err)
				return res, fmt.Errorf("%s %s: %w", op.Kind, op.TaskID, err)
			}
			res.Pushed++
		}
		if len(ops) < p.batch {
			return res, nil
		}
	}
}

func (p *Processor) process(ctx context.Context, op store.Op) error {
	start := time.Now()
	eventID, err := p.push(ctx, op)
	observability.Sync().OnOpComplete(ctx, string(op.Kind), time.Since(start), err)
	if err != nil {
		return err
	}

	if err := p.store.AckOp(ctx, op.ID); err != nil {
		return fmt.Errorf("ack op %d: %w", op.ID, err)
	}
	if op.Kind != store.OpDelete {
		if err := p.store.MarkSynced(ctx, op.TaskID, eventID, p.clock.Now()); err != nil && !errors.Is(err, errors.ErrCodeTaskNotFound) {
			return fmt.Errorf("mark synced: %w", err)
		}
	}
	p.log().Debug("pushed", "op", op.ID, "kind", op.Kind, "task", op.TaskID, "event", eventID)
	return nil
}

// push mirrors op and returns the calendar event id it now maps to.
func (p *Processor) push(ctx context.Context, op store.Op) (string, error) {
	eventID := p.currentEventID(ctx, op)
	event := EventFromTask(op.Task)

	switch op.Kind {
	case store.OpCreate, store.OpUpdate:
		if eventID == "" {
			return p.cal.Insert(ctx, event)
		}
		err := p.cal.Patch(ctx, eventID, event)
		if errors.Is(err, errors.ErrCodeNotFound) {
			return p.cal.Insert(ctx, event)
		}
		return eventID, err
	case store.OpDelete:
		if eventID == "" {
			return "", nil
		}
		return eventID, p.cal.Delete(ctx, eventID)
	}
	return "", errors.New(errors.ErrCodeUnsupported, "unknown outbox operation %q", op.Kind)
}

// currentEventID prefers the event id stored on the task now over the one
// in the snapshot, since an earlier operation may have created the event
// after this one was queued.
func (p *Processor) currentEventID(ctx context.Context, op store.Op) string {
	t, err := p.store.Get(ctx, op.TaskID)
	if err == nil && t.CalendarEventID != "" {
		return t.CalendarEventID
	}
	return op.Task.CalendarEventID
}

func (p *Processor) log() *log.Logger {
	if p.logger == nil {
		return nopLogger
	}
	return p.logger
}

var nopLogger = log.New(io.Discard)
