package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/amqp"
	"bilancio/internal/cache"
	"bilancio/internal/core"
	"bilancio/internal/ledger"
	"bilancio/internal/log"
)

// Event ids are remembered for duplicate detection within these bounds.
const (
	maxSeen = 1024
	seenTTL = time.Hour
)

// Tally is the running summary of consumed ledger events.
type Tally struct {
	Added      [2]int
	Deleted    [2]int
	Duplicates int
	Rejected   int

	LastBudget     decimal.Decimal
	LastPercentage ledger.Percentage
	LastEventAt    time.Time
}

// Events returns the number of accepted events.
func (t Tally) Events() int {
	return t.Added[ledger.Income] + t.Added[ledger.Expense] + t.Deleted[ledger.Income] + t.Deleted[ledger.Expense]
}

// EventWorker consumes ledger events and keeps a tally of them. Deliveries
// are at least once, so events are deduplicated by id.
type EventWorker struct {
	logger *log.Logger

	mu    sync.Mutex
	tally Tally
	seen  *cache.LRU[struct{}]
}

func NewEventWorker(logger *log.Logger) *EventWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &EventWorker{
		logger: logger.WithComponent(log.ComponentEvents),
		seen:   cache.NewLRU[struct{}](maxSeen, seenTTL),
	}
}

// HandleEntryEvent records one event. Malformed events are logged and
// dropped rather than returned as errors, which would requeue them forever.
func (w *EventWorker) HandleEntryEvent(ctx context.Context, ev *amqp.EntryEvent) error {
	c, budget, err := validateEvent(ev)
	if err != nil {
		w.mu.Lock()
		w.tally.Rejected++
		w.mu.Unlock()
		w.logger.WarnContext(ctx, "Dropping malformed ledger event",
			log.FieldEventID, ev.ID,
			log.FieldError, err)
		return nil
	}

	w.mu.Lock()
	if !w.seen.Add(ev.ID, struct{}{}) {
		w.tally.Duplicates++
		w.mu.Unlock()
		w.logger.DebugContext(ctx, "Skipping duplicate ledger event", log.FieldEventID, ev.ID)
		return nil
	}

	switch ev.Type {
	case amqp.EntryAdded:
		w.tally.Added[c]++
	case amqp.EntryDeleted:
		w.tally.Deleted[c]++
	}
	w.tally.LastBudget = budget
	w.tally.LastPercentage = ledger.NoPercentage
	if ev.Percentage != nil {
		w.tally.LastPercentage = ledger.PercentageOf(*ev.Percentage)
	}
	w.tally.LastEventAt = ev.Timestamp
	w.mu.Unlock()

	w.logger.InfoContext(ctx, "Ledger event",
		log.FieldOperation, log.OpConsume,
		log.FieldEventID, ev.ID,
		"type", string(ev.Type),
		log.FieldCategory, c.String(),
		log.FieldEntryID, ev.EntryID,
		log.FieldBudget, budget.String())
	return nil
}

// Stats returns a copy of the current tally.
func (w *EventWorker) Stats() Tally {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tally
}

// Run logs a summary and forgets expired event ids every interval until
// ctx is done.
func (w *EventWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logSummary(context.WithoutCancel(ctx))
			return nil
		case <-ticker.C:
			w.seen.CleanExpired()
			w.logSummary(ctx)
		}
	}
}

func (w *EventWorker) logSummary(ctx context.Context) {
	t := w.Stats()
	w.logger.InfoContext(ctx, "Ledger event summary",
		"income_added", t.Added[ledger.Income],
		"income_deleted", t.Deleted[ledger.Income],
		"expense_added", t.Added[ledger.Expense],
		"expense_deleted", t.Deleted[ledger.Expense],
		"duplicates", t.Duplicates,
		"rejected", t.Rejected,
		log.FieldBudget, t.LastBudget.String(),
		log.FieldPercentage, t.LastPercentage.String())
}

func validateEvent(ev *amqp.EntryEvent) (ledger.Category, decimal.Decimal, error) {
	if ev.ID == "" {
		return 0, decimal.Zero, fmt.Errorf("missing event id")
	}
	if ev.Type != amqp.EntryAdded && ev.Type != amqp.EntryDeleted {
		return 0, decimal.Zero, fmt.Errorf("unknown event type %q", ev.Type)
	}
	c, err := core.ParseCategory(ev.Category)
	if err != nil {
		return 0, decimal.Zero, err
	}
	if ev.EntryID < 0 {
		return 0, decimal.Zero, fmt.Errorf("negative entry id %d", ev.EntryID)
	}
	budget, err := decimal.NewFromString(ev.Budget)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("invalid budget %q: %w", ev.Budget, err)
	}
	return c, budget, nil
}
