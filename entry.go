package tracker

import (
	"fmt"
	"time"

	"github.com/etnz/tracker/date"
	"github.com/google/uuid"
)

// Entry is the performance record of one month.
type Entry struct {
	ID          string     `json:"id"`
	Month       date.Month `json:"month"`
	Growth      Money      `json:"growth"` // may be negative
	Deposits    Money      `json:"deposits"`
	Withdrawals Money      `json:"withdrawals"`
	Note        string     `json:"note,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// NewEntry creates an entry with a fresh ID.
func NewEntry(month date.Month, growth, deposits, withdrawals Money) Entry {
	now := time.Now().UTC()
	return Entry{
		ID:          uuid.NewString(),
		Month:       month,
		Growth:      growth,
		Deposits:    deposits,
		Withdrawals: withdrawals,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Currency returns the currency of the entry, the first non empty one.
func (e Entry) Currency() string {
	for _, m := range []Money{e.Growth, e.Deposits, e.Withdrawals} {
		if m.Currency() != "" {
			return m.Currency()
		}
	}
	return ""
}

// Flow is the net cash flow of the month: deposits minus withdrawals.
func (e Entry) Flow() Money { return e.Deposits.Sub(e.Withdrawals) }

// Validate checks the entry for correctness.
func (e Entry) Validate() error {
	if e.Month.IsZero() {
		return fmt.Errorf("%w entry: month is required", ErrInvalid)
	}
	if e.Deposits.IsNegative() {
		return fmt.Errorf("%w entry %v: deposits must not be negative", ErrInvalid, e.Month)
	}
	if e.Withdrawals.IsNegative() {
		return fmt.Errorf("%w entry %v: withdrawals must not be negative", ErrInvalid, e.Month)
	}
	if !e.Growth.Compatible(e.Deposits) || !e.Growth.Compatible(e.Withdrawals) || !e.Deposits.Compatible(e.Withdrawals) {
		return fmt.Errorf("%w entry %v: amounts use different currencies", ErrInvalid, e.Month)
	}
	return nil
}

// normalize sets every amount to the given currency when it has none.
func (e Entry) normalize(cur string) Entry {
	if e.Growth.Currency() == "" {
		e.Growth = e.Growth.In(cur)
	}
	if e.Deposits.Currency() == "" {
		e.Deposits = e.Deposits.In(cur)
	}
	if e.Withdrawals.Currency() == "" {
		e.Withdrawals = e.Withdrawals.In(cur)
	}
	return e
}

// In returns the entry with unset currencies defaulting to cur. It fails if
// the entry already uses another currency.
func (e Entry) In(cur string) (Entry, error) {
	if c := e.Currency(); c != "" && cur != "" && c != cur {
		return e, fmt.Errorf("%w entry %v: currency %s does not match %s", ErrInvalid, e.Month, c, cur)
	}
	return e.normalize(cur), nil
}
