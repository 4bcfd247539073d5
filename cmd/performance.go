package cmd

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/etnz/tracker"
	"github.com/etnz/tracker/date"
	"github.com/etnz/tracker/renderer"
	"github.com/google/subcommands"
)

// entryFlags are the flags describing an entry.
type entryFlags struct {
	investor    string
	month       string
	growth      string
	deposits    string
	withdrawals string
	note        string
}

func (c *entryFlags) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.investor, "investor", "", "ID of the investor, the main book when empty")
	f.StringVar(&c.month, "month", "", "month of the entry, as YYYY-MM")
	f.StringVar(&c.growth, "growth", "", "growth of the month, negative for a loss")
	f.StringVar(&c.deposits, "deposits", "", "money deposited during the month")
	f.StringVar(&c.withdrawals, "withdrawals", "", "money withdrawn during the month")
	f.StringVar(&c.note, "note", "", "free text")
}

// entry builds the entry; empty amounts are zero.
func (c *entryFlags) entry() (tracker.Entry, error) {
	m, err := date.ParseMonth(c.month)
	if err != nil {
		return tracker.Entry{}, err
	}
	e := tracker.Entry{Month: m, Note: c.note}
	for _, a := range []struct {
		value string
		dst   *tracker.Money
	}{{c.growth, &e.Growth}, {c.deposits, &e.Deposits}, {c.withdrawals, &e.Withdrawals}} {
		if *a.dst, err = amount(a.value); err != nil {
			return tracker.Entry{}, err
		}
	}
	return e, nil
}

// amount parses an amount without currency, the empty string being zero.
func amount(s string) (tracker.Money, error) {
	if strings.TrimSpace(s) == "" {
		return tracker.M(0, ""), nil
	}
	return tracker.ParseMoney(strings.TrimSpace(s), "")
}

type addCmd struct{ entryFlags }

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record the performance of a month" }
func (*addCmd) Usage() string {
	return `trk add -month <YYYY-MM> [-growth <amount>] [-deposits <amount>] [-withdrawals <amount>] [-note <text>] [-investor <id>]

  Records a month in the main book, or in the book of an investor.
`
}

func (c *addCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	entry, err := c.entry()
	if err != nil {
		return usage("%v", err)
	}
	e, err := open(ctx)
	if err != nil {
		return fail("opening the store: %v", err)
	}
	defer e.Close()

	if c.investor == "" {
		entry, err = e.svc.AddEntry(ctx, entry)
	} else {
		entry, err = e.svc.AddInvestorEntry(ctx, c.investor, entry)
	}
	if err != nil {
		return fail("adding %s: %v", c.month, err)
	}
	fmt.Fprintf(stdout, "Recorded %s as %s\n", entry.Month, entry.ID)
	return subcommands.ExitSuccess
}

type editCmd struct {
	entryFlags
	id string
}

func (*editCmd) Name() string     { return "edit" }
func (*editCmd) Synopsis() string { return "replace a recorded month" }
func (*editCmd) Usage() string {
	return `trk edit -id <entry> -month <YYYY-MM> [-growth <amount>] [-deposits <amount>] [-withdrawals <amount>] [-note <text>] [-investor <id>]

  Replaces every field of an entry. The month may change if it is not already recorded.
`
}

func (c *editCmd) SetFlags(f *flag.FlagSet) {
	c.entryFlags.SetFlags(f)
	f.StringVar(&c.id, "id", "", "ID of the entry")
}

func (c *editCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	entry, err := c.entry()
	if err != nil || c.id == "" {
		return usage("-id and a valid -month are required")
	}
	entry.ID = c.id
	e, err := open(ctx)
	if err != nil {
		return fail("opening the store: %v", err)
	}
	defer e.Close()

	if c.investor == "" {
		_, err = e.svc.UpdateEntry(ctx, entry)
	} else {
		_, err = e.svc.UpdateInvestorEntry(ctx, c.investor, entry)
	}
	if err != nil {
		return fail("updating %s: %v", c.id, err)
	}
	fmt.Fprintf(stdout, "Updated %s\n", c.id)
	return subcommands.ExitSuccess
}

type rmCmd struct {
	investor string
}

func (*rmCmd) Name() string     { return "rm" }
func (*rmCmd) Synopsis() string { return "delete recorded months" }
func (*rmCmd) Usage() string {
	return `trk rm [-investor <id>] <entry>...

  Deletes entries by ID.
`
}

func (c *rmCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.investor, "investor", "", "ID of the investor, the main book when empty")
}

func (c *rmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		return usage("at least one entry ID is required")
	}
	e, err := open(ctx)
	if err != nil {
		return fail("opening the store: %v", err)
	}
	defer e.Close()

	for _, id := range f.Args() {
		if c.investor == "" {
			err = e.svc.DeleteEntry(ctx, id)
		} else {
			err = e.svc.DeleteInvestorEntry(ctx, c.investor, id)
		}
		if err != nil {
			return fail("deleting %s: %v", id, err)
		}
		fmt.Fprintf(stdout, "Deleted %s\n", id)
	}
	return subcommands.ExitSuccess
}

type listCmd struct {
	investor string
	from, to string
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list the recorded months with their balances" }
func (*listCmd) Usage() string {
	return `trk list [-investor <id>] [-from <YYYY-MM>] [-to <YYYY-MM>]

  Prints the statement: each month with its opening and closing balance and its return.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.investor, "investor", "", "ID of the investor, the main book when empty")
	f.StringVar(&c.from, "from", "", "first month listed")
	f.StringVar(&c.to, "to", "", "last month listed")
}

func (c *listCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var from, to date.Month
	var err error
	if c.from != "" {
		if from, err = date.ParseMonth(c.from); err != nil {
			return fail("parsing -from: %v", err)
		}
	}
	if c.to != "" {
		if to, err = date.ParseMonth(c.to); err != nil {
			return fail("parsing -to: %v", err)
		}
	}
	e, err := open(ctx)
	if err != nil {
		return fail("opening the store: %v", err)
	}
	defer e.Close()

	rows, err := statement(e, c.investor)
	if err != nil {
		return fail("%v", err)
	}
	var kept []tracker.Row
	for _, r := range rows {
		if (from.IsZero() || !r.Entry.Month.Before(from)) && (to.IsZero() || !r.Entry.Month.After(to)) {
			kept = append(kept, r)
		}
	}
	var b strings.Builder
	b.WriteString(renderer.StatementMarkdown("Statement", kept))
	for _, r := range kept {
		if r.Entry.Note != "" {
			fmt.Fprintf(&b, "\n- %s (%s): %s", r.Entry.Month, r.Entry.ID, r.Entry.Note)
		}
	}
	printMarkdown(b.String())
	return subcommands.ExitSuccess
}

func statement(e *env, investor string) ([]tracker.Row, error) {
	if investor == "" {
		return e.svc.Statement(), nil
	}
	return e.svc.InvestorStatement(investor)
}

type summaryCmd struct {
	investor string
	period   string
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display the performance summary" }
func (*summaryCmd) Usage() string {
	return `trk summary [-investor <id>] [-period monthly|quarterly|yearly]

  Displays the balance, growth and returns of the main book or of an investor.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.investor, "investor", "", "ID of the investor, the main book when empty")
	f.StringVar(&c.period, "period", "", "also break the figures down by period")
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var period date.Period
	if c.period != "" {
		p, err := date.ParsePeriod(c.period)
		if err != nil {
			return usage("%v", err)
		}
		period = p
	}
	e, err := open(ctx)
	if err != nil {
		return fail("opening the store: %v", err)
	}
	defer e.Close()

	var b strings.Builder
	title := "Summary"
	var starting tracker.Money
	var entries []tracker.Entry
	if c.investor == "" {
		starting, entries = e.svc.StartingBalance(), e.svc.Entries()
	} else {
		inv, err := e.svc.Investor(c.investor)
		if err != nil {
			return fail("%v", err)
		}
		title = "Summary for " + inv.Name
		starting = inv.StartingBalance
		if entries, err = e.svc.InvestorEntries(c.investor); err != nil {
			return fail("%v", err)
		}
	}
	b.WriteString(renderer.SummaryMarkdown(title, tracker.Summarize(starting, entries)))
	if c.period != "" {
		b.WriteString("\n")
		b.WriteString(renderer.BreakdownMarkdown(period, tracker.Breakdown(starting, entries, period)))
	}
	printMarkdown(b.String())
	return subcommands.ExitSuccess
}

type balanceCmd struct {
	amount   string
	currency string
}

func (*balanceCmd) Name() string     { return "balance" }
func (*balanceCmd) Synopsis() string { return "show or set the starting balance" }
func (*balanceCmd) Usage() string {
	return `trk balance [-amount <amount> [-currency <code>]]

  Prints the starting balance of the main book, or sets it with -amount.
`
}

func (c *balanceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.amount, "amount", "", "new starting balance")
	f.StringVar(&c.currency, "currency", "", "currency of the book, defaults to the current one")
}

func (c *balanceCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := open(ctx)
	if err != nil {
		return fail("opening the store: %v", err)
	}
	defer e.Close()

	if c.amount != "" {
		cur := c.currency
		if cur == "" {
			cur = e.svc.StartingBalance().Currency()
		}
		m, err := tracker.ParseMoney(c.amount, strings.ToUpper(cur))
		if err != nil {
			return usage("%v", err)
		}
		if err := e.svc.SetStartingBalance(ctx, m); err != nil {
			return fail("setting the starting balance: %v", err)
		}
	}
	fmt.Fprintf(stdout, "Starting balance: %s\n", e.svc.StartingBalance())
	return subcommands.ExitSuccess
}
