package date

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Month identifies a calendar month of a given year.
//
// Months are totally ordered by (year, month), which is the chronological
// order of performance entries.
type Month struct {
	y int
	m time.Month
}

// NewMonth returns a normalized Month, NewMonth(2024, 13) is January 2025.
func NewMonth(year int, month time.Month) Month {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Month{t.Year(), t.Month()}
}

// MonthOf returns the month containing d.
func MonthOf(d Date) Month { return Month{d.y, d.m} }

// ThisMonth returns the current month.
func ThisMonth() Month { return MonthOf(Today()) }

// Year returns the year of the month.
func (m Month) Year() int { return m.y }

// Month returns the month of the year.
func (m Month) Month() time.Month { return m.m }

// IsZero reports whether m is the zero Month.
func (m Month) IsZero() bool { return m == Month{} }

// Quarter returns the quarter (1 to 4) containing m.
func (m Month) Quarter() int { return (int(m.m)-1)/3 + 1 }

// Compare returns -1, 0 or +1 depending on whether m is before, equal to or after n.
func (m Month) Compare(n Month) int {
	switch {
	case m.y < n.y:
		return -1
	case m.y > n.y:
		return 1
	case m.m < n.m:
		return -1
	case m.m > n.m:
		return 1
	}
	return 0
}

// Before reports whether m is before n.
func (m Month) Before(n Month) bool { return m.Compare(n) < 0 }

// After reports whether m is after n.
func (m Month) After(n Month) bool { return m.Compare(n) > 0 }

// Next returns the following month.
func (m Month) Next() Month { return NewMonth(m.y, m.m+1) }

// Prev returns the previous month.
func (m Month) Prev() Month { return NewMonth(m.y, m.m-1) }

// First returns the first day of the month.
func (m Month) First() Date { return New(m.y, m.m, 1) }

// Last returns the last day of the month.
func (m Month) Last() Date { return New(m.y, m.m+1, 0) }

// String returns the month as "2006-01".
func (m Month) String() string {
	if m.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", m.y, m.m)
}

// ParseMonth parses "2025-03" or "2025-3".
func ParseMonth(str string) (Month, error) {
	ys, ms, ok := strings.Cut(strings.TrimSpace(str), "-")
	if !ok {
		return Month{}, fmt.Errorf("invalid month %q want format YYYY-MM", str)
	}
	y, err := strconv.Atoi(ys)
	if err != nil || len(ys) != 4 {
		return Month{}, fmt.Errorf("invalid month %q: bad year %q", str, ys)
	}
	m, err := strconv.Atoi(ms)
	if err != nil || len(ms) > 2 || m < 1 || m > 12 {
		return Month{}, fmt.Errorf("invalid month %q: bad month %q", str, ms)
	}
	return Month{y, time.Month(m)}, nil
}

// MustParseMonth is like ParseMonth but panics on error.
func MustParseMonth(str string) Month {
	m, err := ParseMonth(str)
	if err != nil {
		panic(err.Error())
	}
	return m
}

func (m *Month) UnmarshalJSON(bytes []byte) error {
	var str string
	if err := json.Unmarshal(bytes, &str); err != nil {
		return err
	}
	if str == "" {
		*m = Month{}
		return nil
	}
	v, err := ParseMonth(str)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

func (m Month) MarshalJSON() ([]byte, error) {
	str := m.String()
	return json.Marshal(&str)
}

var _ json.Marshaler = (*Month)(nil)
var _ json.Unmarshaler = (*Month)(nil)
