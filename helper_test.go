package tracker

import "github.com/etnz/tracker/date"

// EUR is a helper for test to create euro money from const
func EUR(v float64) Money { return M(v, "EUR") }

// USD is a helper for test to create usd money from const
func USD(v float64) Money { return M(v, "USD") }

func ptr(m Money) *Money { return &m }

// entry is a helper for test to create an EUR entry for a "2006-01" month.
func entry(id, month string, growth, deposits, withdrawals float64) Entry {
	return Entry{
		ID:          id,
		Month:       date.MustParseMonth(month),
		Growth:      EUR(growth),
		Deposits:    EUR(deposits),
		Withdrawals: EUR(withdrawals),
	}
}

func months(entries []Entry) []string {
	res := make([]string, 0, len(entries))
	for _, e := range entries {
		res = append(res, e.Month.String())
	}
	return res
}
