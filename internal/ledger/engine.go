// Package ledger holds the budget engine: income and expense entries, the
// per-category identifier policy and the derived aggregates (totals, budget,
// spending percentages).
//
// Aggregates are recomputed only on request. AddEntry and DeleteEntry leave
// them stale until RecomputeBudget (and then RecomputePercentages) is called,
// so callers can batch several mutations before a single recompute.
//
// An Engine is not safe for concurrent use; hosts that share one across
// goroutines must hold a single lock around every call.
package ledger

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// Category classifies an entry.
type Category int

const (
	Income Category = iota
	Expense
)

// Categories lists every category in display order.
var Categories = []Category{Income, Expense}

func (c Category) String() string {
	switch c {
	case Income:
		return "income"
	case Expense:
		return "expense"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// IsValid reports whether c is Income or Expense.
func (c Category) IsValid() bool {
	return c == Income || c == Expense
}

// Entry is one recorded transaction. Percentage is only meaningful for
// expenses and stays unset for income entries.
type Entry struct {
	ID          int
	Category    Category
	Description string
	Amount      decimal.Decimal
	Percentage  Percentage
}

// BudgetSummary is the aggregate state as of the last RecomputeBudget.
type BudgetSummary struct {
	Budget       decimal.Decimal
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal

	// Percentage is the share of income spent; unset when income is not positive.
	Percentage Percentage
}

// Snapshot is a deep copy of the engine state.
type Snapshot struct {
	Income  []Entry
	Expense []Entry
	Summary BudgetSummary
	NextIDs [2]int
	Stale   bool
}

// Engine owns the entries of one ledger and their aggregates.
type Engine struct {
	entries [2][]Entry
	nextID  [2]int
	summary BudgetSummary
	stale   bool
}

// New returns an empty engine. Its aggregates read as an empty ledger
// would after a recompute.
func New() *Engine {
	return &Engine{}
}

func slot(c Category) int {
	if !c.IsValid() {
		panic(fmt.Sprintf("ledger: invalid category %d", int(c)))
	}
	return int(c)
}

// AddEntry appends a new entry to the category and returns it.
//
// The engine does not validate description or amount. Ids start at 0 and
// grow by one per add; deleted ids are never handed out again.
func (e *Engine) AddEntry(c Category, description string, amount decimal.Decimal) Entry {
	i := slot(c)
	entry := Entry{
		ID:          e.nextID[i],
		Category:    c,
		Description: description,
		Amount:      amount,
		Percentage:  NoPercentage,
	}
	e.nextID[i]++
	e.entries[i] = append(e.entries[i], entry)
	e.stale = true
	return entry
}

// DeleteEntry removes the entry with the given id from the category,
// keeping the order of the rest. Unknown ids are ignored.
func (e *Engine) DeleteEntry(c Category, id int) {
	i := slot(c)
	idx := slices.IndexFunc(e.entries[i], func(en Entry) bool { return en.ID == id })
	if idx == -1 {
		return
	}
	e.entries[i] = slices.Delete(e.entries[i], idx, idx+1)
	e.stale = true
}

// RecomputeBudget recomputes both totals from scratch, the budget and the
// overall spending percentage.
func (e *Engine) RecomputeBudget() {
	income := sum(e.entries[Income])
	expense := sum(e.entries[Expense])
	e.summary = BudgetSummary{
		Budget:       income.Sub(expense),
		TotalIncome:  income,
		TotalExpense: expense,
		Percentage:   percentOf(expense, income),
	}
	e.stale = false
}

// RecomputePercentages sets every expense's share of total income.
// It reads the total income from the last RecomputeBudget, which must be
// called first in the same update cycle.
func (e *Engine) RecomputePercentages() {
	income := e.summary.TotalIncome
	for i := range e.entries[Expense] {
		en := &e.entries[Expense][i]
		en.Percentage = percentOf(en.Amount, income)
	}
}

// BudgetSummary returns the aggregates without recomputing them.
func (e *Engine) BudgetSummary() BudgetSummary {
	return e.summary
}

// ExpensePercentages returns each expense's current percentage, in entry order.
func (e *Engine) ExpensePercentages() []Percentage {
	out := make([]Percentage, len(e.entries[Expense]))
	for i, en := range e.entries[Expense] {
		out[i] = en.Percentage
	}
	return out
}

// Entries returns a copy of the category's entries in insertion order.
func (e *Engine) Entries(c Category) []Entry {
	return slices.Clone(e.entries[slot(c)])
}

// Len returns the number of entries in the category.
func (e *Engine) Len(c Category) int {
	return len(e.entries[slot(c)])
}

// Stale reports whether entries changed since the last RecomputeBudget.
func (e *Engine) Stale() bool {
	return e.stale
}

// Snapshot returns a deep copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Income:  slices.Clone(e.entries[Income]),
		Expense: slices.Clone(e.entries[Expense]),
		Summary: e.summary,
		NextIDs: e.nextID,
		Stale:   e.stale,
	}
}

func sum(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, en := range entries {
		total = total.Add(en.Amount)
	}
	return total
}
