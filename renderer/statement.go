package renderer

import (
	"bytes"

	"github.com/etnz/tracker"
	md "github.com/nao1215/markdown"
)

// StatementMarkdown renders the month by month statement.
func StatementMarkdown(title string, rows []tracker.Row) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H2(title)
	table := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
		},
		Header: []string{"Month", "Opening", "Growth", "Deposits", "Withdrawals", "Closing", "Return"},
		Rows:   [][]string{},
	}
	for _, r := range rows {
		table.Rows = append(table.Rows, []string{
			r.Entry.Month.String(),
			r.Performance.Start.String(),
			r.Entry.Growth.SignedString(),
			r.Entry.Deposits.String(),
			r.Entry.Withdrawals.String(),
			r.Performance.End.String(),
			signed(r.Performance.Return),
		})
	}
	doc.Table(table)
	return doc.String()
}
