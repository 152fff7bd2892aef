package display

import (
	"time"

	"bilancio/internal/core"
	"bilancio/internal/ledger"
)

// BudgetView is the budget header: raw values plus their rendered form.
type BudgetView struct {
	Budget       string            `json:"budget"`
	TotalIncome  string            `json:"total_income"`
	TotalExpense string            `json:"total_expense"`
	Percentage   ledger.Percentage `json:"percentage"`

	BudgetLabel     string `json:"budget_label"`
	IncomeLabel     string `json:"income_label"`
	ExpenseLabel    string `json:"expense_label"`
	PercentageLabel string `json:"percentage_label"`
}

// ItemView is one row of the income or expense list.
type ItemView struct {
	ElementID   string             `json:"element_id"`
	ID          int                `json:"id"`
	Type        string             `json:"type"`
	Description string             `json:"description"`
	Amount      string             `json:"amount"`
	AmountLabel string             `json:"amount_label"`
	Percentage  *ledger.Percentage `json:"percentage,omitempty"`

	// PercentageLabel is empty for income rows.
	PercentageLabel string `json:"percentage_label,omitempty"`
}

// Overview is everything a page render needs.
type Overview struct {
	Month    string     `json:"month"`
	Budget   BudgetView `json:"budget"`
	Income   []ItemView `json:"income"`
	Expenses []ItemView `json:"expenses"`
	Stale    bool       `json:"stale"`
}

// NewBudgetView renders a budget summary.
func NewBudgetView(s ledger.BudgetSummary) BudgetView {
	return BudgetView{
		Budget:          s.Budget.String(),
		TotalIncome:     s.TotalIncome.String(),
		TotalExpense:    s.TotalExpense.String(),
		Percentage:      s.Percentage,
		BudgetLabel:     FormatBudget(s.Budget),
		IncomeLabel:     FormatAmount(s.TotalIncome, ledger.Income),
		ExpenseLabel:    FormatAmount(s.TotalExpense, ledger.Expense),
		PercentageLabel: FormatPercentage(s.Percentage),
	}
}

// NewItemView renders a single entry.
func NewItemView(e ledger.Entry) ItemView {
	v := ItemView{
		ElementID:   core.ElementID(e.Category, e.ID),
		ID:          e.ID,
		Type:        core.CategoryCode(e.Category),
		Description: e.Description,
		Amount:      e.Amount.String(),
		AmountLabel: FormatAmount(e.Amount, e.Category),
	}
	if e.Category == ledger.Expense {
		p := e.Percentage
		v.Percentage = &p
		v.PercentageLabel = FormatPercentage(p)
	}
	return v
}

// NewOverview renders a full snapshot for the given month.
func NewOverview(s ledger.Snapshot, now time.Time) Overview {
	return Overview{
		Month:    MonthLabel(now),
		Budget:   NewBudgetView(s.Summary),
		Income:   itemViews(s.Income),
		Expenses: itemViews(s.Expense),
		Stale:    s.Stale,
	}
}

// PercentageLabels renders expense percentages in order.
func PercentageLabels(ps []ledger.Percentage) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = FormatPercentage(p)
	}
	return out
}

func itemViews(entries []ledger.Entry) []ItemView {
	out := make([]ItemView, len(entries))
	for i, e := range entries {
		out[i] = NewItemView(e)
	}
	return out
}
