package date

import (
	"fmt"
	"strings"
)

// Period is the granularity used to group months together.
type Period int

const (
	Monthly Period = iota
	Quarterly
	Yearly
)

func (p Period) String() string {
	switch p {
	case Monthly:
		return "monthly"
	case Quarterly:
		return "quarterly"
	case Yearly:
		return "yearly"
	default:
		panic(fmt.Sprintf("unknown period %d", p))
	}
}

func ParsePeriod(p string) (Period, error) {
	p = strings.ToLower(strings.TrimSpace(p))
	switch p {
	case "monthly", "month":
		return Monthly, nil
	case "quarterly", "quarter":
		return Quarterly, nil
	case "yearly", "year":
		return Yearly, nil
	default:
		return Monthly, fmt.Errorf("unknown period %q", p)
	}
}

// Key returns the label of the period containing m: "2025-03", "2025-Q1" or "2025".
func (p Period) Key(m Month) string {
	switch p {
	case Quarterly:
		return fmt.Sprintf("%04d-Q%d", m.y, m.Quarter())
	case Yearly:
		return fmt.Sprintf("%04d", m.y)
	default:
		return m.String()
	}
}

// Start returns the first month of the period containing m.
func (p Period) Start(m Month) Month {
	switch p {
	case Quarterly:
		return NewMonth(m.y, m.m-(m.m-1)%3)
	case Yearly:
		return NewMonth(m.y, 1)
	default:
		return m
	}
}
