// Package core holds the input rules the ledger engine leaves to its
// callers: category names, description and amount validation, and the
// element ids the UI uses to point at entries.
package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"bilancio/internal/ledger"
)

const MaxDescriptionLength = 200

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = fmt.Errorf("description too long (max %d characters)", MaxDescriptionLength)
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidElementID   = errors.New("invalid element id")
)

// IsValidationError reports whether err stems from bad caller input.
func IsValidationError(err error) bool {
	for _, target := range []error{ErrInvalidAmount, ErrEmptyDescription, ErrDescriptionTooLong, ErrInvalidCategory, ErrInvalidElementID} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// EntryInput is a validated request to add an entry.
type EntryInput struct {
	Category    ledger.Category
	Description string
	Amount      decimal.Decimal
}

func (in EntryInput) Validate() error {
	if !in.Category.IsValid() {
		return ErrInvalidCategory
	}
	if strings.TrimSpace(in.Description) == "" {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(in.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if !in.Amount.IsPositive() || in.Amount.GreaterThanOrEqual(maxAmount) {
		return ErrInvalidAmount
	}
	return nil
}

// NewEntryInput parses raw form values into a validated EntryInput.
func NewEntryInput(category, description, amount string) (EntryInput, error) {
	c, err := ParseCategory(category)
	if err != nil {
		return EntryInput{}, err
	}
	a, err := ParseAmount(amount)
	if err != nil {
		return EntryInput{}, err
	}
	in := EntryInput{
		Category:    c,
		Description: strings.TrimSpace(description),
		Amount:      a,
	}
	if err := in.Validate(); err != nil {
		return EntryInput{}, err
	}
	return in, nil
}

// ParseCategory maps the form's type option onto a ledger category.
func ParseCategory(s string) (ledger.Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inc", "income":
		return ledger.Income, nil
	case "exp", "expense":
		return ledger.Expense, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// CategoryCode returns the short code used in element ids and forms.
func CategoryCode(c ledger.Category) string {
	if c == ledger.Expense {
		return "exp"
	}
	return "inc"
}

// ElementID returns the UI element id of an entry, e.g. "inc-3".
func ElementID(c ledger.Category, id int) string {
	return CategoryCode(c) + "-" + strconv.Itoa(id)
}

// ParseElementID splits an element id such as "exp-2" back into its parts.
func ParseElementID(s string) (ledger.Category, int, error) {
	code, num, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidElementID, s)
	}
	c, err := ParseCategory(code)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidElementID, s)
	}
	id, err := strconv.Atoi(num)
	if err != nil || id < 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidElementID, s)
	}
	return c, id, nil
}
