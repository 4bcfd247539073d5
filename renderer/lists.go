package renderer

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/etnz/tracker"
	"github.com/etnz/tracker/store"
	md "github.com/nao1215/markdown"
)

// InvestorsMarkdown lists the investors with their current balance.
func InvestorsMarkdown(investors []tracker.Investor, balances map[string]tracker.Money) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H2("Investors")
	if len(investors) == 0 {
		doc.PlainText("No investor yet.")
		return doc.String()
	}
	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignRight, md.AlignRight},
		Header:    []string{"ID", "Name", "Email", "Status", "Starting", "Balance"},
		Rows:      [][]string{},
	}
	for _, inv := range investors {
		table.Rows = append(table.Rows, []string{
			inv.ID,
			inv.Name,
			inv.Email,
			string(inv.Status),
			inv.StartingBalance.String(),
			balances[inv.ID].String(),
		})
	}
	doc.Table(table)
	return doc.String()
}

// MessagesMarkdown renders a conversation as seen by reader.
func MessagesMarkdown(name string, msgs []tracker.Message, reader tracker.Role) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H2("Conversation with " + name)
	if len(msgs) == 0 {
		doc.PlainText("No message yet.")
		return doc.String()
	}
	unread := 0
	for _, m := range msgs {
		mark := ""
		if m.UnreadBy(reader) {
			mark = " (new)"
			unread++
		}
		doc.H4(fmt.Sprintf("%s, %s%s", m.Sender, m.CreatedAt.Format("2006-01-02 15:04"), mark))
		doc.PlainText(m.Body)
	}
	doc.Build()

	ConditionalBlock(&buf, func(w io.Writer) bool {
		fmt.Fprintf(w, "\n%d unread messages.\n", unread)
		return unread > 0
	})
	return buf.String()
}

// PendingMarkdown lists the writes waiting for the remote store.
func PendingMarkdown(ops []store.Op) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H2(fmt.Sprintf("%d pending writes", len(ops)))
	if len(ops) == 0 {
		doc.PlainText("The remote store is up to date.")
		return doc.String()
	}
	table := md.TableSet{
		Header: []string{"Seq", "Op", "Document", "Cause"},
		Rows:   [][]string{},
	}
	for _, op := range ops {
		kind := "put"
		if op.Delete {
			kind = "delete"
		}
		table.Rows = append(table.Rows, []string{op.Seq, kind, op.Collection + "/" + op.ID, strings.ReplaceAll(op.Err, "|", "/")})
	}
	doc.Table(table)
	return doc.String()
}
