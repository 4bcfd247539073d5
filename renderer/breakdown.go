package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/tracker"
	"github.com/etnz/tracker/date"
	md "github.com/nao1215/markdown"
)

// BreakdownMarkdown renders one line per period.
func BreakdownMarkdown(p date.Period, buckets []tracker.Bucket) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H2(fmt.Sprintf("%s breakdown", titleCase(p.String())))
	table := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
		},
		Header: []string{"Period", "Growth", "Deposits", "Withdrawals", "Closing", "Net return"},
		Rows:   [][]string{},
	}
	for _, b := range buckets {
		s := b.Summary
		table.Rows = append(table.Rows, []string{
			b.Key,
			s.TotalGrowth.SignedString(),
			s.TotalDeposits.String(),
			s.TotalWithdrawals.String(),
			s.CurrentBalance.String(),
			signed(s.NetPercent),
		})
	}
	doc.Table(table)
	return doc.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
