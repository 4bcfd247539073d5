package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/tracker"
	"github.com/etnz/tracker/date"
	"github.com/etnz/tracker/insight"
	"github.com/etnz/tracker/renderer"
	"github.com/google/subcommands"
)

type investorAddCmd struct {
	name, email, phone string
	balance, currency  string
	joined             string
	notes              string
}

func (*investorAddCmd) Name() string     { return "investor-add" }
func (*investorAddCmd) Synopsis() string { return "register an investor" }
func (*investorAddCmd) Usage() string {
	return `trk investor-add -name <name> [-email <email>] [-phone <phone>] [-balance <amount>] [-currency <code>] [-joined <date>] [-notes <text>]

  Registers an active investor and prints their ID.
`
}

func (c *investorAddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "full name")
	f.StringVar(&c.email, "email", "", "email address")
	f.StringVar(&c.phone, "phone", "", "phone number")
	f.StringVar(&c.balance, "balance", "0", "starting balance")
	f.StringVar(&c.currency, "currency", "", "currency of the investor, defaults to the default currency")
	f.StringVar(&c.joined, "joined", "", "date the investor joined, defaults to today")
	f.StringVar(&c.notes, "notes", "", "free text")
}

func (c *investorAddCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	balance, err := tracker.ParseMoney(c.balance, strings.ToUpper(c.currency))
	if err != nil {
		return usage("%v", err)
	}
	inv := tracker.Investor{
		Name:            c.name,
		Email:           c.email,
		Phone:           c.phone,
		StartingBalance: balance,
		Notes:           c.notes,
	}
	if c.joined != "" {
		if inv.JoinedOn, err = date.Parse(c.joined); err != nil {
			return usage("%v", err)
		}
	}

	e, err := open(ctx)
	if err != nil {
		return fail("opening the store: %v", err)
	}
	defer e.Close()
	if inv, err = e.svc.AddInvestor(ctx, inv); err != nil {
		return fail("adding the investor: %v", err)
	}
	fmt.Fprintf(stdout, "Registered %s as %s\n", inv.Name, inv.ID)
	return subcommands.ExitSuccess
}

type investorsCmd struct {
	overview bool
}

func (*investorsCmd) Name() string     { return "investors" }
func (*investorsCmd) Synopsis() string { return "list the investors" }
func (*investorsCmd) Usage() string {
	return `trk investors [-overview]

  Lists the investors with their current balance. -overview prints the totals by currency.
`
}

func (c *investorsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.overview, "overview", false, "print the totals by currency")
}

func (c *investorsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := open(ctx)
	if err != nil {
		return fail("opening the store: %v", err)
	}
	defer e.Close()

	investors := e.svc.Investors()
	balances := make(map[string]tracker.Money, len(investors))
	for _, inv := range investors {
		if s, err := e.svc.InvestorSummary(inv.ID); err == nil {
			balances[inv.ID] = s.CurrentBalance
		}
	}
	var b strings.Builder
	b.WriteString(renderer.InvestorsMarkdown(investors, balances))
	if c.overview {
		b.WriteString("\n## Overview\n\n")
		for _, o := range e.svc.Overview() {
			fmt.Fprintf(&b, "- %s: %d investors (%d active), balance %s, growth %s\n",
				o.Currency, o.Investors, o.Active, o.CurrentBalance, o.TotalGrowth.SignedString())
		}
	}
	printMarkdown(b.String())
	return subcommands.ExitSuccess
}

type investorRmCmd struct{}

func (*investorRmCmd) Name() string     { return "investor-rm" }
func (*investorRmCmd) Synopsis() string { return "delete investors" }
func (*investorRmCmd) Usage() string {
	return `trk investor-rm <id>...

  Deletes investors with their performance and their conversation.
`
}

func (*investorRmCmd) SetFlags(*flag.FlagSet) {}

func (*investorRmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		return usage("at least one investor ID is required")
	}
	e, err := open(ctx)
	if err != nil {
		return fail("opening the store: %v", err)
	}
	defer e.Close()
	for _, id := range f.Args() {
		if err := e.svc.DeleteInvestor(ctx, id); err != nil {
			return fail("deleting %s: %v", id, err)
		}
		fmt.Fprintf(stdout, "Deleted %s\n", id)
	}
	return subcommands.ExitSuccess
}

type reportCmd struct {
	investor string
	html     bool
	comment  bool
	output   string
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "render the performance report of an investor" }
func (*reportCmd) Usage() string {
	return `trk report -investor <id> [-html] [-comment] [-o <file>]

  Renders the report sent to an investor: summary, statement and an optional commentary.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.investor, "investor", "", "ID of the investor")
	f.BoolVar(&c.html, "html", false, "render HTML instead of markdown")
	f.BoolVar(&c.comment, "comment", false, "add a commentary written by Gemini")
	f.StringVar(&c.output, "o", "", "write the report to a file")
}

func (c *reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.investor == "" {
		return usage("-investor is required")
	}
	e, err := open(ctx)
	if err != nil {
		return fail("opening the store: %v", err)
	}
	defer e.Close()

	report, err := investorReport(e, c.investor)
	if err != nil {
		return fail("%v", err)
	}
	if c.comment {
		comment, err := commentary(ctx, report.Investor.Name, report.Summary, report.Rows)
		if err != nil {
			return fail("writing the commentary: %v", err)
		}
		report.Comment = comment
	}

	out := renderer.RenderInvestorReport(report)
	if c.html {
		if out, err = renderer.HTML(out); err != nil {
			return fail("%v", err)
		}
	}
	if c.output != "" {
		if err := os.WriteFile(c.output, []byte(out), 0o644); err != nil {
			return fail("writing %s: %v", c.output, err)
		}
		return subcommands.ExitSuccess
	}
	if c.html {
		fmt.Fprint(stdout, out)
		return subcommands.ExitSuccess
	}
	printMarkdown(out)
	return subcommands.ExitSuccess
}

func investorReport(e *env, id string) (*renderer.InvestorReport, error) {
	inv, err := e.svc.Investor(id)
	if err != nil {
		return nil, err
	}
	sum, err := e.svc.InvestorSummary(id)
	if err != nil {
		return nil, err
	}
	rows, err := e.svc.InvestorStatement(id)
	if err != nil {
		return nil, err
	}
	return &renderer.InvestorReport{Investor: inv, Summary: sum, Rows: rows, GeneratedOn: date.Today()}, nil
}

func commentary(ctx context.Context, name string, s tracker.Summary, rows []tracker.Row) (string, error) {
	w, err := insight.NewWriter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return "", err
	}
	return w.Comment(ctx, name, s, rows)
}

type insightCmd struct {
	investor string
	prompt   bool
}

func (*insightCmd) Name() string     { return "insight" }
func (*insightCmd) Synopsis() string { return "comment the performance with Gemini" }
func (*insightCmd) Usage() string {
	return `trk insight [-investor <id>] [-prompt]

  Asks Gemini to comment the performance of the main book or of an investor.
  Requires GEMINI_API_KEY. -prompt prints the prompt without calling the model.
`
}

func (c *insightCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.investor, "investor", "", "ID of the investor, the main book when empty")
	f.BoolVar(&c.prompt, "prompt", false, "print the prompt only")
}

func (c *insightCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := open(ctx)
	if err != nil {
		return fail("opening the store: %v", err)
	}
	defer e.Close()

	name, sum, rows := "the fund", e.svc.Summary(), e.svc.Statement()
	if c.investor != "" {
		report, err := investorReport(e, c.investor)
		if err != nil {
			return fail("%v", err)
		}
		name, sum, rows = report.Investor.Name, report.Summary, report.Rows
	}
	if c.prompt {
		fmt.Fprintln(stdout, insight.Prompt(name, sum))
		return subcommands.ExitSuccess
	}
	comment, err := commentary(ctx, name, sum, rows)
	if errors.Is(err, insight.ErrDisabled) {
		return usage("%v", err)
	}
	if err != nil {
		return fail("%v", err)
	}
	printMarkdown(comment)
	return subcommands.ExitSuccess
}
