package ledger

import (
	"math"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "want %s, got %s", want, got)
}

func ids(entries []Entry) []int {
	out := make([]int, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestAddEntry_SequentialIDs(t *testing.T) {
	e := New()
	for want := 0; want < 5; want++ {
		got := e.AddEntry(Income, "salary", d("10"))
		assert.Equal(t, want, got.ID)
	}
	// Expense ids are independent of income ids.
	assert.Equal(t, 0, e.AddEntry(Expense, "rent", d("1")).ID)
	assert.Equal(t, 1, e.AddEntry(Expense, "food", d("1")).ID)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, ids(e.Entries(Income)))
}

func TestAddEntry_ReturnsEntry(t *testing.T) {
	e := New()

	inc := e.AddEntry(Income, "salary", d("2500.50"))
	assert.Equal(t, Income, inc.Category)
	assert.Equal(t, "salary", inc.Description)
	assertDecimal(t, "2500.50", inc.Amount)
	assert.False(t, inc.Percentage.IsSet())

	exp := e.AddEntry(Expense, "rent", d("900"))
	assert.Equal(t, -1, exp.Percentage.Sentinel())
}

func TestAddEntry_NoValidation(t *testing.T) {
	e := New()
	e.AddEntry(Expense, "", d("-5"))
	e.AddEntry(Income, "", decimal.Zero)
	e.AddEntry(Income, strings.Repeat("x", 500), d("1"))
	assert.Equal(t, 1, e.Len(Expense))
	assert.Equal(t, 2, e.Len(Income))
}

func TestDeleteEntry_IDsNeverReused(t *testing.T) {
	e := New()
	e.AddEntry(Income, "a", d("1"))
	e.AddEntry(Income, "b", d("1"))
	last := e.AddEntry(Income, "c", d("1"))

	e.DeleteEntry(Income, last.ID)
	next := e.AddEntry(Income, "d", d("1"))
	assert.Equal(t, 3, next.ID)

	// Emptying the category does not reset the sequence either.
	for _, id := range ids(e.Entries(Income)) {
		e.DeleteEntry(Income, id)
	}
	require.Equal(t, 0, e.Len(Income))
	assert.Equal(t, 4, e.AddEntry(Income, "e", d("1")).ID)
}

func TestDeleteEntry_PreservesOrder(t *testing.T) {
	e := New()
	for _, desc := range []string{"a", "b", "c", "d", "e"} {
		e.AddEntry(Expense, desc, d("1"))
	}

	e.DeleteEntry(Expense, 2)

	got := e.Entries(Expense)
	assert.Equal(t, []int{0, 1, 3, 4}, ids(got))
	descs := make([]string, len(got))
	for i, en := range got {
		descs[i] = en.Description
	}
	assert.Equal(t, []string{"a", "b", "d", "e"}, descs)
}

func TestDeleteEntry_MissingIDIsNoop(t *testing.T) {
	e := New()
	before := e.Snapshot()
	e.DeleteEntry(Income, 999)
	assert.Equal(t, before, e.Snapshot())

	e.AddEntry(Income, "salary", d("100"))
	e.AddEntry(Expense, "rent", d("40"))
	e.RecomputeBudget()
	e.RecomputePercentages()

	before = e.Snapshot()
	e.DeleteEntry(Income, 999)
	e.DeleteEntry(Expense, 7)
	assert.Equal(t, before, e.Snapshot())
	assert.False(t, e.Stale())
}

func TestDeleteEntry_CategoriesAreIndependent(t *testing.T) {
	e := New()
	e.AddEntry(Income, "salary", d("100"))
	e.AddEntry(Expense, "rent", d("40"))

	e.DeleteEntry(Expense, 0)

	assert.Equal(t, 1, e.Len(Income))
	assert.Equal(t, 0, e.Len(Expense))
}

func TestRecomputeBudget(t *testing.T) {
	e := New()
	e.AddEntry(Income, "salary", d("100"))
	e.AddEntry(Expense, "rent", d("40"))

	e.RecomputeBudget()

	s := e.BudgetSummary()
	assertDecimal(t, "100", s.TotalIncome)
	assertDecimal(t, "40", s.TotalExpense)
	assertDecimal(t, "60", s.Budget)
	p, ok := s.Percentage.Value()
	require.True(t, ok)
	assert.Equal(t, 40, p)
}

func TestRecomputeBudget_EmptyLedger(t *testing.T) {
	e := New()
	e.RecomputeBudget()

	s := e.BudgetSummary()
	assertDecimal(t, "0", s.Budget)
	assertDecimal(t, "0", s.TotalIncome)
	assertDecimal(t, "0", s.TotalExpense)
	assert.False(t, s.Percentage.IsSet())
	assert.Equal(t, -1, s.Percentage.Sentinel())
}

func TestRecomputeBudget_NegativeBudgetAndNoIncome(t *testing.T) {
	e := New()
	e.AddEntry(Expense, "rent", d("40"))
	e.RecomputeBudget()

	s := e.BudgetSummary()
	assertDecimal(t, "-40", s.Budget)
	assert.False(t, s.Percentage.IsSet())
}

func TestRecomputeBudget_Idempotent(t *testing.T) {
	e := New()
	e.AddEntry(Income, "salary", d("1234.56"))
	e.AddEntry(Expense, "rent", d("789.10"))

	e.RecomputeBudget()
	first := e.BudgetSummary()
	e.RecomputeBudget()
	second := e.BudgetSummary()

	assert.True(t, first.Budget.Equal(second.Budget))
	assert.True(t, first.TotalIncome.Equal(second.TotalIncome))
	assert.True(t, first.TotalExpense.Equal(second.TotalExpense))
	assert.Equal(t, first.Percentage, second.Percentage)
}

func TestRecomputeBudget_ExactDecimalSums(t *testing.T) {
	e := New()
	e.AddEntry(Income, "a", d("0.1"))
	e.AddEntry(Income, "b", d("0.2"))
	e.RecomputeBudget()
	assertDecimal(t, "0.3", e.BudgetSummary().TotalIncome)
}

func TestRecomputePercentages(t *testing.T) {
	e := New()
	e.AddEntry(Income, "salary", d("200"))
	e.AddEntry(Expense, "rent", d("50"))
	e.AddEntry(Expense, "food", d("25"))

	e.RecomputeBudget()
	e.RecomputePercentages()

	// 12.5 rounds half away from zero.
	assert.Equal(t, []Percentage{PercentageOf(25), PercentageOf(13)}, e.ExpensePercentages())
	assert.Equal(t, PercentageOf(38), e.BudgetSummary().Percentage)
}

func TestRecomputePercentages_SaturatesHugeRatios(t *testing.T) {
	e := New()
	e.AddEntry(Income, "tip", d("0.01"))
	e.AddEntry(Expense, "yacht", d("100000000000000000000"))

	e.RecomputeBudget()
	e.RecomputePercentages()

	assert.Equal(t, PercentageOf(math.MaxInt), e.BudgetSummary().Percentage)
	assert.Equal(t, []Percentage{PercentageOf(math.MaxInt)}, e.ExpensePercentages())
}

func TestRecomputePercentages_NoIncome(t *testing.T) {
	e := New()
	e.AddEntry(Expense, "rent", d("50"))
	e.RecomputeBudget()
	e.RecomputePercentages()
	assert.Equal(t, []Percentage{NoPercentage}, e.ExpensePercentages())
}

func TestRecomputePercentages_UsesLastBudget(t *testing.T) {
	e := New()
	e.AddEntry(Income, "salary", d("100"))
	e.AddEntry(Expense, "rent", d("50"))
	e.RecomputeBudget()

	// Income added after the budget recompute is not seen until the next one.
	e.AddEntry(Income, "bonus", d("100"))
	e.RecomputePercentages()
	assert.Equal(t, []Percentage{PercentageOf(50)}, e.ExpensePercentages())

	e.RecomputeBudget()
	e.RecomputePercentages()
	assert.Equal(t, []Percentage{PercentageOf(25)}, e.ExpensePercentages())
}

func TestRecomputePercentages_IncomeDropsToZero(t *testing.T) {
	e := New()
	e.AddEntry(Income, "salary", d("100"))
	e.AddEntry(Expense, "rent", d("50"))
	e.RecomputeBudget()
	e.RecomputePercentages()
	require.Equal(t, []Percentage{PercentageOf(50)}, e.ExpensePercentages())

	e.DeleteEntry(Income, 0)
	e.RecomputeBudget()
	e.RecomputePercentages()
	assert.Equal(t, []Percentage{NoPercentage}, e.ExpensePercentages())
}

func TestExpensePercentages_FollowEntryOrder(t *testing.T) {
	e := New()
	e.AddEntry(Income, "salary", d("1000"))
	e.AddEntry(Expense, "a", d("100"))
	e.AddEntry(Expense, "b", d("200"))
	e.AddEntry(Expense, "c", d("300"))
	e.RecomputeBudget()
	e.RecomputePercentages()

	e.DeleteEntry(Expense, 1)
	assert.Equal(t, []Percentage{PercentageOf(10), PercentageOf(30)}, e.ExpensePercentages())
}

func TestStalenessWindow(t *testing.T) {
	e := New()
	assert.False(t, e.Stale())

	e.AddEntry(Income, "salary", d("100"))
	assert.True(t, e.Stale())
	// Reads return the previous aggregates until a recompute.
	assertDecimal(t, "0", e.BudgetSummary().TotalIncome)

	e.AddEntry(Expense, "rent", d("30"))
	e.AddEntry(Expense, "food", d("20"))
	e.RecomputeBudget()
	assert.False(t, e.Stale())
	assertDecimal(t, "50", e.BudgetSummary().Budget)

	e.DeleteEntry(Expense, 0)
	assert.True(t, e.Stale())
	assertDecimal(t, "50", e.BudgetSummary().Budget)

	e.RecomputeBudget()
	assertDecimal(t, "80", e.BudgetSummary().Budget)

	// Percentages of a new expense stay unset until recomputed.
	e.AddEntry(Expense, "fun", d("10"))
	e.RecomputeBudget()
	assert.Equal(t, NoPercentage, e.ExpensePercentages()[1])
}

func TestEntries_ReturnsCopy(t *testing.T) {
	e := New()
	e.AddEntry(Income, "salary", d("100"))

	got := e.Entries(Income)
	got[0].Description = "changed"

	assert.Equal(t, "salary", e.Entries(Income)[0].Description)
}

func TestInvalidCategoryPanics(t *testing.T) {
	e := New()
	assert.Panics(t, func() { e.AddEntry(Category(7), "x", d("1")) })
	assert.Panics(t, func() { e.DeleteEntry(Category(-1), 0) })
}
