package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/tracker"
	md "github.com/nao1215/markdown"
)

// SummaryMarkdown renders the figures of a summary under title.
func SummaryMarkdown(title string, s tracker.Summary) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H2(title)
	if s.Months == 0 {
		doc.PlainText(fmt.Sprintf("No performance recorded yet. Starting balance: %s", s.Starting))
		return doc.String()
	}
	doc.PlainText(fmt.Sprintf("%d months from %s to %s.", s.Months, month(s.First), month(s.Last)))

	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
		Header:    []string{"Figure", "Value"},
		Rows: [][]string{
			{"Starting balance", s.Starting.String()},
			{"Total growth", s.TotalGrowth.SignedString()},
			{"Total deposits", s.TotalDeposits.String()},
			{"Total withdrawals", s.TotalWithdrawals.String()},
			{md.Bold("Current balance"), md.Bold(s.CurrentBalance.String())},
			{"Average monthly return", signed(s.AveragePercent)},
			{"Net return", signed(s.NetPercent)},
		},
	})
	return doc.String()
}
