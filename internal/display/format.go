// Package display turns ledger data into the strings and view models the
// UI renders. The engine hands out plain numbers; everything about signs,
// separators and placeholders lives here.
package display

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/ledger"
)

// Placeholder is shown when a percentage is not applicable.
const Placeholder = "---"

// FormatAmount renders an amount as "+ 1,234.56" for income and
// "- 1,234.56" for expenses. The sign comes from the category, not from
// the amount.
func FormatAmount(amount decimal.Decimal, c ledger.Category) string {
	sign := "+"
	if c == ledger.Expense {
		sign = "-"
	}
	return sign + " " + groupThousands(amount.Abs().StringFixed(2))
}

// FormatBudget renders the net budget with "+" when it is zero or positive.
func FormatBudget(budget decimal.Decimal) string {
	if budget.IsNegative() {
		return FormatAmount(budget, ledger.Expense)
	}
	return FormatAmount(budget, ledger.Income)
}

// FormatPercentage renders "40%", or the placeholder for unset and
// non-positive percentages.
func FormatPercentage(p ledger.Percentage) string {
	v, ok := p.Value()
	if !ok || v <= 0 {
		return Placeholder
	}
	return strconv.Itoa(v) + "%"
}

// MonthLabel renders the budget title month, e.g. "October 2026".
func MonthLabel(t time.Time) string {
	return t.Format("January 2006")
}

func groupThousands(fixed string) string {
	intPart, frac, _ := strings.Cut(fixed, ".")
	if len(intPart) <= 3 {
		return fixed
	}
	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
