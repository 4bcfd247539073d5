package tracker

import (
	"slices"

	"github.com/etnz/tracker/date"
)

// Summary aggregates a list of entries against a starting balance.
type Summary struct {
	Starting         Money      `json:"starting"`
	TotalGrowth      Money      `json:"totalGrowth"`
	TotalDeposits    Money      `json:"totalDeposits"`
	TotalWithdrawals Money      `json:"totalWithdrawals"`
	CurrentBalance   Money      `json:"currentBalance"`
	AveragePercent   Percent    `json:"averagePercent"` // mean of the monthly returns
	NetPercent       Percent    `json:"netPercent"`     // total growth over invested capital
	Months           int        `json:"months"`
	First            date.Month `json:"first"`
	Last             date.Month `json:"last"`
}

// Invested is the capital put at work: starting balance plus net deposits.
func (s Summary) Invested() Money {
	return s.Starting.Add(s.TotalDeposits).Sub(s.TotalWithdrawals)
}

// Row is one line of a statement: an entry and the balance around it.
type Row struct {
	Entry       Entry       `json:"entry"`
	Performance Performance `json:"performance"`
}

// Statement computes the running balance month after month.
//
// The opening balance of a month is the closing balance of the previous one,
// the starting balance for the first. The return of a month is its growth over
// its opening balance, zero when the opening balance is not positive.
func Statement(starting Money, entries []Entry) []Row {
	sorted := slices.Clone(entries)
	SortEntries(sorted)

	rows := make([]Row, 0, len(sorted))
	balance := starting
	for _, e := range sorted {
		e = e.normalize(starting.Currency())
		closing := balance.Add(e.Growth).Add(e.Deposits).Sub(e.Withdrawals)
		rows = append(rows, Row{
			Entry: e,
			Performance: Performance{
				Start:  balance,
				End:    closing,
				Return: e.Growth.Ratio(balance),
			},
		})
		balance = closing
	}
	return rows
}

// Summarize computes the summary of entries starting from the starting balance.
func Summarize(starting Money, entries []Entry) Summary {
	zero := M(0, starting.Currency())
	s := Summary{
		Starting:         starting,
		TotalGrowth:      zero,
		TotalDeposits:    zero,
		TotalWithdrawals: zero,
		CurrentBalance:   starting,
	}
	rows := Statement(starting, entries)
	if len(rows) == 0 {
		return s
	}

	var sumPercent float64
	for _, r := range rows {
		s.TotalGrowth = s.TotalGrowth.Add(r.Entry.Growth)
		s.TotalDeposits = s.TotalDeposits.Add(r.Entry.Deposits)
		s.TotalWithdrawals = s.TotalWithdrawals.Add(r.Entry.Withdrawals)
		sumPercent += float64(r.Performance.Return)
	}
	s.Months = len(rows)
	s.First = rows[0].Entry.Month
	s.Last = rows[len(rows)-1].Entry.Month
	s.CurrentBalance = rows[len(rows)-1].Performance.End
	s.AveragePercent = Percent(sumPercent / float64(len(rows)))
	s.NetPercent = s.TotalGrowth.Ratio(s.Invested())
	return s
}

// Bucket is the summary of the entries of one period.
type Bucket struct {
	Key     string  `json:"key"`
	Summary Summary `json:"summary"`
}

// Breakdown groups entries by period. Each bucket starts from the closing
// balance of the previous one.
func Breakdown(starting Money, entries []Entry, p date.Period) []Bucket {
	rows := Statement(starting, entries)
	var buckets []Bucket
	for i := 0; i < len(rows); {
		key := p.Key(rows[i].Entry.Month)
		j := i
		group := make([]Entry, 0)
		for j < len(rows) && p.Key(rows[j].Entry.Month) == key {
			group = append(group, rows[j].Entry)
			j++
		}
		buckets = append(buckets, Bucket{
			Key:     key,
			Summary: Summarize(rows[i].Performance.Start, group),
		})
		i = j
	}
	return buckets
}
