package tracker

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/etnz/tracker/date"
	"github.com/google/uuid"
)

// Status of an investor account.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Investor is a person whose capital is tracked.
type Investor struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	StartingBalance Money     `json:"startingBalance"`
	JoinedOn        date.Date `json:"joinedOn"`
	Status          Status    `json:"status"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// NewInvestor creates an active investor with a fresh ID.
func NewInvestor(name, email string, starting Money) Investor {
	now := time.Now().UTC()
	return Investor{
		ID:              uuid.NewString(),
		Name:            strings.TrimSpace(name),
		Email:           strings.TrimSpace(email),
		StartingBalance: starting,
		JoinedOn:        date.Of(now),
		Status:          StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Currency is the currency the investor's performance is tracked in.
func (i Investor) Currency() string { return i.StartingBalance.Currency() }

// Validate checks the investor for correctness.
func (i Investor) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("%w investor: name is required", ErrInvalid)
	}
	if i.Email != "" {
		if _, err := mail.ParseAddress(i.Email); err != nil {
			return fmt.Errorf("%w investor %q: email %q: %v", ErrInvalid, i.Name, i.Email, err)
		}
	}
	switch i.Status {
	case StatusActive, StatusInactive:
	default:
		return fmt.Errorf("%w investor %q: unknown status %q", ErrInvalid, i.Name, i.Status)
	}
	if i.StartingBalance.IsNegative() {
		return fmt.Errorf("%w investor %q: starting balance must not be negative", ErrInvalid, i.Name)
	}
	if c := i.Currency(); c != "" && !KnownCurrency(c) {
		return fmt.Errorf("%w investor %q: unknown currency %q", ErrInvalid, i.Name, c)
	}
	return nil
}
