package tracker

import "errors"

var (
	// ErrInvalid is wrapped by every validation error.
	ErrInvalid = errors.New("invalid")
	// ErrDuplicateMonth is returned when a history already holds an entry for that month.
	ErrDuplicateMonth = errors.New("an entry already exists for this month")
	// ErrEntryNotFound is returned when no entry has the requested ID.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrInvestorNotFound is returned when no investor has the requested ID.
	ErrInvestorNotFound = errors.New("investor not found")
)
