package tracker

import (
	"testing"

	"github.com/etnz/tracker/date"
	"github.com/google/go-cmp/cmp"
)

// threeMonths is a small book used across tests, given out of order on purpose.
func threeMonths() []Entry {
	return []Entry{
		entry("mar", "2025-03", 62.25, 0, 245),
		entry("jan", "2025-01", 100, 0, 0),
		entry("feb", "2025-02", -55, 200, 0),
	}
}

func TestStatement(t *testing.T) {
	rows := Statement(EUR(1000), threeMonths())

	type line struct {
		Month          string
		Opening, Close string
		Return         string
	}
	var got []line
	for _, r := range rows {
		got = append(got, line{
			Month:   r.Entry.Month.String(),
			Opening: r.Performance.Start.Decimal().StringFixed(2),
			Close:   r.Performance.End.Decimal().StringFixed(2),
			Return:  r.Performance.Return.String(),
		})
	}
	want := []line{
		{"2025-01", "1000.00", "1100.00", "10.00%"},
		{"2025-02", "1100.00", "1245.00", "-5.00%"},
		{"2025-03", "1245.00", "1062.25", "5.00%"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Statement() mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(EUR(1000), threeMonths())

	checks := []struct {
		name string
		got  Money
		want Money
	}{
		{"TotalGrowth", s.TotalGrowth, EUR(107.25)},
		{"TotalDeposits", s.TotalDeposits, EUR(200)},
		{"TotalWithdrawals", s.TotalWithdrawals, EUR(245)},
		{"CurrentBalance", s.CurrentBalance, EUR(1062.25)},
		{"Invested", s.Invested(), EUR(955)},
	}
	for _, c := range checks {
		if !c.got.Decimal().Equal(c.want.Decimal()) || c.got.Currency() != "EUR" {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if want := Percent(10.0 / 3); !s.AveragePercent.Equal(want) {
		t.Errorf("AveragePercent = %v, want %v", s.AveragePercent, want)
	}
	if want := Percent(11.2303665); !s.NetPercent.Equal(want) {
		t.Errorf("NetPercent = %v, want %v", s.NetPercent, want)
	}
	if s.Months != 3 || s.First != date.MustParseMonth("2025-01") || s.Last != date.MustParseMonth("2025-03") {
		t.Errorf("Months/First/Last = %d %v %v", s.Months, s.First, s.Last)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(EUR(500), nil)
	if !s.CurrentBalance.Equal(EUR(500)) {
		t.Errorf("CurrentBalance = %v, want the starting balance", s.CurrentBalance)
	}
	if s.AveragePercent != 0 || s.NetPercent != 0 || s.Months != 0 {
		t.Errorf("empty summary must have zero percents, got %+v", s)
	}
	if !s.TotalGrowth.IsZero() || s.TotalGrowth.Currency() != "EUR" {
		t.Errorf("TotalGrowth = %v, want 0 EUR", s.TotalGrowth)
	}
}

func TestSummarize_ZeroStartingBalance(t *testing.T) {
	// The first month has no opening balance, its return is defined as zero.
	s := Summarize(EUR(0), []Entry{
		entry("a", "2025-01", 0, 1000, 0),
		entry("b", "2025-02", 50, 0, 0),
	})
	if want := Percent(2.5); !s.AveragePercent.Equal(want) {
		t.Errorf("AveragePercent = %v, want %v", s.AveragePercent, want)
	}
	if want := Percent(5); !s.NetPercent.Equal(want) {
		t.Errorf("NetPercent = %v, want %v", s.NetPercent, want)
	}
}

func TestBreakdown(t *testing.T) {
	entries := append(threeMonths(), entry("apr", "2025-04", 10, 0, 0))
	buckets := Breakdown(EUR(1000), entries, date.Quarterly)

	if len(buckets) != 2 {
		t.Fatalf("Breakdown() returned %d buckets, want 2", len(buckets))
	}
	q1, q2 := buckets[0], buckets[1]
	if q1.Key != "2025-Q1" || q2.Key != "2025-Q2" {
		t.Errorf("keys = %q, %q", q1.Key, q2.Key)
	}
	if !q1.Summary.CurrentBalance.Equal(EUR(1062.25)) {
		t.Errorf("Q1 closing = %v, want 1062.25", q1.Summary.CurrentBalance)
	}
	if !q2.Summary.Starting.Equal(q1.Summary.CurrentBalance) {
		t.Errorf("Q2 must open on Q1 closing balance, got %v", q2.Summary.Starting)
	}
	if !q2.Summary.CurrentBalance.Equal(EUR(1072.25)) {
		t.Errorf("Q2 closing = %v, want 1072.25", q2.Summary.CurrentBalance)
	}
}
