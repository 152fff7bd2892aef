package services

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/ledger"
	"bilancio/internal/log"
)

// EventPublisher sends ledger events somewhere. *amqp.Client implements it.
type EventPublisher interface {
	PublishEntryEvent(ctx context.Context, ev *amqp.EntryEvent) error
}

// Events wait in a bounded queue and are published off the request path.
// A full queue drops the event.
const (
	eventQueueSize = 256
	publishTimeout = 30 * time.Second
	closeGrace     = 5 * time.Second
)

type queuedEvent struct {
	ctx context.Context
	ev  *amqp.EntryEvent
}

// Result is the outcome of a mutation: the entries it touched and the
// refreshed ledger state.
type Result struct {
	Entries  []ledger.Entry
	Snapshot ledger.Snapshot
	// Deleted is false when a delete matched no entry.
	Deleted bool
}

// LedgerService drives the engine for the UI: it validates input, runs
// each mutation followed by a budget and percentage recompute, and
// announces changes. One mutex guards the engine across every call.
type LedgerService struct {
	mu     sync.Mutex
	engine *ledger.Engine
	logger *log.Logger

	events EventPublisher
	queue  chan queuedEvent
	done   chan struct{}
	closed bool
	grace  time.Duration

	// aborted is cancelled once Close stops waiting for the queue.
	aborted context.Context
	abort   context.CancelFunc
}

// NewLedgerService wraps engine. events may be nil to disable publishing;
// otherwise a goroutine publishes queued events until Close.
func NewLedgerService(engine *ledger.Engine, events EventPublisher, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	s := &LedgerService{
		engine: engine,
		events: events,
		logger: logger.WithComponent(log.ComponentLedger),
	}
	if events != nil {
		s.queue = make(chan queuedEvent, eventQueueSize)
		s.done = make(chan struct{})
		s.grace = closeGrace
		s.aborted, s.abort = context.WithCancel(context.Background())
		go s.drain()
	}
	return s
}

// AddEntry records a validated entry and returns it with the fresh state.
func (s *LedgerService) AddEntry(ctx context.Context, in core.EntryInput) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, fmt.Errorf("add entry: %w", err)
	}

	s.mu.Lock()
	entry := s.engine.AddEntry(in.Category, in.Description, in.Amount)
	snap := s.refreshLocked()
	entry = current(snap, entry)
	s.enqueueLocked(ctx, amqp.EntryAdded, entry, snap.Summary)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Entry added", log.NewFields().
		WithOperation(log.OpAdd).
		WithEntry(entry.Category.String(), entry.ID, entry.Description, entry.Amount.String()).
		ToSlice()...)

	return Result{Entries: []ledger.Entry{entry}, Snapshot: snap}, nil
}

// AddEntries records several entries and recomputes once. Nothing is added
// unless every input is valid.
func (s *LedgerService) AddEntries(ctx context.Context, ins []core.EntryInput) (Result, error) {
	for i, in := range ins {
		if err := in.Validate(); err != nil {
			return Result{}, fmt.Errorf("add entries: item %d: %w", i, err)
		}
	}

	s.mu.Lock()
	entries := make([]ledger.Entry, 0, len(ins))
	for _, in := range ins {
		entries = append(entries, s.engine.AddEntry(in.Category, in.Description, in.Amount))
	}
	snap := s.refreshLocked()
	for i := range entries {
		entries[i] = current(snap, entries[i])
		s.enqueueLocked(ctx, amqp.EntryAdded, entries[i], snap.Summary)
	}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Entries added",
		log.FieldOperation, log.OpAddBatch,
		log.FieldCount, len(entries))

	return Result{Entries: entries, Snapshot: snap}, nil
}

// DeleteEntry removes an entry if it exists and returns the fresh state.
// A missing id is not an error.
func (s *LedgerService) DeleteEntry(ctx context.Context, c ledger.Category, id int) (Result, error) {
	if !c.IsValid() {
		return Result{}, fmt.Errorf("delete entry: %w", core.ErrInvalidCategory)
	}

	s.mu.Lock()
	before := s.engine.Len(c)
	s.engine.DeleteEntry(c, id)
	deleted := s.engine.Len(c) < before
	snap := s.refreshLocked()
	if deleted {
		s.enqueueLocked(ctx, amqp.EntryDeleted, ledger.Entry{ID: id, Category: c}, snap.Summary)
	}
	s.mu.Unlock()

	if !deleted {
		s.logger.DebugContext(ctx, "Delete matched no entry",
			log.FieldOperation, log.OpDelete,
			log.FieldCategory, c.String(),
			log.FieldEntryID, id)
		return Result{Snapshot: snap}, nil
	}

	s.logger.InfoContext(ctx, "Entry deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldCategory, c.String(),
		log.FieldEntryID, id)

	return Result{Snapshot: snap, Deleted: true}, nil
}

// Snapshot returns a copy of the current ledger state.
func (s *LedgerService) Snapshot(ctx context.Context) ledger.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Snapshot()
}

// BudgetSummary returns the current aggregates.
func (s *LedgerService) BudgetSummary(ctx context.Context) ledger.BudgetSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.BudgetSummary()
}

// ExpensePercentages returns the expense percentages in entry order.
func (s *LedgerService) ExpensePercentages(ctx context.Context) []ledger.Percentage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.ExpensePercentages()
}

// refreshLocked runs the update cycle: budget first, then percentages,
// which read the income total the budget step just computed.
func (s *LedgerService) refreshLocked() ledger.Snapshot {
	s.engine.RecomputeBudget()
	s.engine.RecomputePercentages()
	return s.engine.Snapshot()
}

// current returns e as it appears in snap, with its refreshed percentage.
func current(snap ledger.Snapshot, e ledger.Entry) ledger.Entry {
	list := snap.Income
	if e.Category == ledger.Expense {
		list = snap.Expense
	}
	if i := slices.IndexFunc(list, func(x ledger.Entry) bool { return x.ID == e.ID }); i >= 0 {
		return list[i]
	}
	return e
}

// enqueueLocked queues an event without blocking, so a slow or absent broker
// never holds up a mutation. Queueing under s.mu keeps events in ledger order.
func (s *LedgerService) enqueueLocked(ctx context.Context, t amqp.EventType, e ledger.Entry, sum ledger.BudgetSummary) {
	if s.queue == nil || s.closed {
		return
	}

	ev := amqp.NewEntryEvent(t, e.Category.String(), e.ID)
	if t == amqp.EntryAdded {
		ev.Description = e.Description
		ev.Amount = e.Amount.String()
	}
	ev.Budget = sum.Budget.String()
	if p, ok := sum.Percentage.Value(); ok {
		ev.Percentage = &p
	}

	select {
	case s.queue <- queuedEvent{ctx: context.WithoutCancel(ctx), ev: ev}:
	default:
		s.logger.WarnContext(ctx, "Event queue full, dropping entry event",
			log.FieldOperation, log.OpPublish,
			log.FieldEventID, ev.ID,
			log.FieldCategory, ev.Category,
			log.FieldEntryID, ev.EntryID)
	}
}

// drain publishes queued events until the queue is closed.
func (s *LedgerService) drain() {
	defer close(s.done)
	for q := range s.queue {
		ctx, cancel := context.WithTimeout(q.ctx, publishTimeout)
		stop := context.AfterFunc(s.aborted, cancel)
		err := s.events.PublishEntryEvent(ctx, q.ev)
		stop()
		cancel()
		if err != nil {
			// The ledger already changed; the event feed is best effort.
			s.logger.LogError(q.ctx, "Failed to publish entry event", err, log.OpPublish,
				log.LogFields{
					log.FieldEventID:  q.ev.ID,
					log.FieldCategory: q.ev.Category,
					log.FieldEntryID:  q.ev.EntryID,
				})
		}
	}
}

// Close publishes what is still queued, giving up after a short grace
// period, then releases the event publisher if it has a Close method.
func (s *LedgerService) Close() error {
	s.mu.Lock()
	if s.queue != nil && !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	if s.done != nil {
		select {
		case <-s.done:
		case <-time.After(s.grace):
			s.logger.Warn("Event queue not drained in time, abandoning remaining events",
				log.FieldOperation, log.OpPublish,
				log.FieldCount, len(s.queue))
			s.abort()
			<-s.done
		}
		s.abort()
	}

	if c, ok := s.events.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close event publisher: %w", err)
		}
	}
	return nil
}
