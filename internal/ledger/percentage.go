package ledger

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Percentage is an integer percentage that may be absent. The zero value is
// absent, which is what an expense carries until percentages are computed
// against a positive total income.
type Percentage struct {
	value int
	set   bool
}

// NoPercentage is the absent percentage.
var NoPercentage = Percentage{}

// PercentageOf returns a set percentage.
func PercentageOf(v int) Percentage {
	return Percentage{value: v, set: true}
}

// Value returns the percentage and whether it is set.
func (p Percentage) Value() (int, bool) {
	return p.value, p.set
}

// IsSet reports whether the percentage is defined.
func (p Percentage) IsSet() bool {
	return p.set
}

// Sentinel returns the legacy integer encoding: the value when set, -1 otherwise.
func (p Percentage) Sentinel() int {
	if !p.set {
		return -1
	}
	return p.value
}

func (p Percentage) String() string {
	if !p.set {
		return "unset"
	}
	return strconv.Itoa(p.value) + "%"
}

// MarshalJSON encodes an absent percentage as null.
func (p Percentage) MarshalJSON() ([]byte, error) {
	if !p.set {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(p.value)), nil
}

var (
	one     = decimal.NewFromInt(1)
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)

	maxInt = decimal.NewFromInt(math.MaxInt)
	minInt = decimal.NewFromInt(math.MinInt)
)

// percentOf computes round(part * 100 / whole), rounding half away from zero.
// It returns NoPercentage unless whole is strictly positive, and saturates at
// the int range when the ratio is too large to represent.
//
// The division is exact: QuoRem truncates toward zero and the remainder
// decides the rounding, so .5 boundaries never depend on division precision.
func percentOf(part, whole decimal.Decimal) Percentage {
	if !whole.IsPositive() {
		return NoPercentage
	}
	num := part.Mul(hundred)
	q, r := num.QuoRem(whole, 0)
	if r.Abs().Mul(two).GreaterThanOrEqual(whole) {
		if num.IsNegative() {
			q = q.Sub(one)
		} else {
			q = q.Add(one)
		}
	}
	switch {
	case q.GreaterThan(maxInt):
		return PercentageOf(math.MaxInt)
	case q.LessThan(minInt):
		return PercentageOf(math.MinInt)
	}
	return PercentageOf(int(q.IntPart()))
}
