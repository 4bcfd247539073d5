package cmd

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/etnz/tracker"
	"github.com/etnz/tracker/legacy"
	"github.com/google/subcommands"
)

type exportCmd struct {
	output string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export all the data as JSONL" }
func (*exportCmd) Usage() string {
	return `trk export [-o <file>]

  Writes every record, one JSON object per line, to the standard output or a file.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "output file")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := open(ctx)
	if err != nil {
		return fail("opening the store: %v", err)
	}
	defer e.Close()

	w := stdout
	if c.output != "" {
		f, err := os.Create(c.output)
		if err != nil {
			return fail("creating %s: %v", c.output, err)
		}
		defer f.Close()
		w = f
	}
	if err := tracker.EncodeDataset(w, e.svc.Export()); err != nil {
		return fail("exporting: %v", err)
	}
	return subcommands.ExitSuccess
}

type importCmd struct{}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import a JSONL export" }
func (*importCmd) Usage() string {
	return `trk import <file>

  Merges an export into the data: entries replace the entry of the same month,
  investors and messages the ones with the same ID. Reads the standard input when
  file is "-". Nothing is written if any record is invalid.
`
}

func (*importCmd) SetFlags(*flag.FlagSet) {}

func (*importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usage("exactly one file is required")
	}
	r, closer, err := input(f.Arg(0))
	if err != nil {
		return fail("%v", err)
	}
	defer closer()
	d, err := tracker.DecodeDataset(r)
	if err != nil {
		return fail("decoding %s: %v", f.Arg(0), err)
	}

	e, err := open(ctx)
	if err != nil {
		return fail("opening the store: %v", err)
	}
	defer e.Close()
	if err := e.svc.Import(ctx, d); err != nil {
		return fail("importing: %v", err)
	}
	fmt.Fprintf(stdout, "Imported %s\n", describe(d))
	return subcommands.ExitSuccess
}

type migrateLegacyCmd struct {
	paths    legacy.Paths
	currency string
	dryRun   bool
	partial  bool
}

func (*migrateLegacyCmd) Name() string     { return "migrate-legacy" }
func (*migrateLegacyCmd) Synopsis() string { return "migrate an export of the former dashboard" }
func (*migrateLegacyCmd) Usage() string {
	return `trk migrate-legacy [-currency <code>] [-dry-run] [-partial] [-<field> <jsonpath>]... <file>

  Reads a JSON dump of the former dashboard and merges it into the data.
  Every collection and field is located by a JSONPath expression that can be overridden.
  Invalid documents abort the migration unless -partial is set.
`
}

func (c *migrateLegacyCmd) SetFlags(f *flag.FlagSet) {
	c.paths = legacy.DefaultPaths
	p := &c.paths
	f.StringVar(&c.currency, "currency", "", "currency of the amounts, defaults to the default currency")
	f.BoolVar(&c.dryRun, "dry-run", false, "check the export without writing anything")
	f.BoolVar(&c.partial, "partial", false, "skip the invalid documents instead of aborting")
	for _, v := range []struct {
		dst        *string
		name, what string
	}{
		{&p.StartingBalance, "starting-balance", "starting balance of the book"},
		{&p.Entries, "entries", "collection of the entries of the book"},
		{&p.Investors, "investors", "collection of the investors"},
		{&p.InvestorEntries, "investor-entries", "collection of the entries of an investor"},
		{&p.Messages, "messages", "collection of the messages of an investor"},
		{&p.Year, "year", "year of an entry"},
		{&p.Month, "month", "month of an entry"},
		{&p.Growth, "growth", "growth of an entry"},
		{&p.Deposits, "deposits", "deposits of an entry"},
		{&p.Withdrawals, "withdrawals", "withdrawals of an entry"},
		{&p.Note, "note", "note of an entry"},
		{&p.Name, "name", "name of an investor"},
		{&p.Email, "email", "email of an investor"},
		{&p.Phone, "phone", "phone of an investor"},
		{&p.Balance, "balance", "starting balance of an investor"},
		{&p.JoinedOn, "joined", "join date of an investor"},
		{&p.Status, "status", "status of an investor"},
		{&p.Sender, "sender", "sender of a message"},
		{&p.Body, "body", "text of a message"},
		{&p.Timestamp, "timestamp", "time of a message"},
		{&p.Read, "read", "read flag of a message"},
	} {
		f.StringVar(v.dst, v.name, *v.dst, "JSONPath of the "+v.what)
	}
}

func (c *migrateLegacyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usage("exactly one file is required")
	}
	r, closer, err := input(f.Arg(0))
	if err != nil {
		return fail("%v", err)
	}
	defer closer()
	raw, err := legacy.Decode(r)
	if err != nil {
		return fail("%v", err)
	}

	cur := strings.ToUpper(c.currency)
	if cur == "" {
		cur = cfg.Currency
	}
	d, err := legacy.Import(raw, c.paths, cur)
	if err != nil {
		for _, e := range unwrap(err) {
			fmt.Fprintf(os.Stderr, "skipped: %v\n", e)
		}
		if !c.partial {
			return fail("the export holds invalid documents, use -partial to skip them")
		}
	}
	if c.dryRun {
		fmt.Fprintf(stdout, "Found %s\n", describe(d))
		return subcommands.ExitSuccess
	}

	e, err := open(ctx)
	if err != nil {
		return fail("opening the store: %v", err)
	}
	defer e.Close()
	if err := e.svc.Import(ctx, d); err != nil {
		return fail("importing: %v", err)
	}
	fmt.Fprintf(stdout, "Migrated %s\n", describe(d))
	return subcommands.ExitSuccess
}

// input opens a file, "-" being the standard input.
func input(name string) (io.Reader, func(), error) {
	if name == "-" {
		return bufio.NewReader(os.Stdin), func() {}, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func describe(d *tracker.Dataset) string {
	n := 0
	for _, e := range d.InvestorEntries {
		n += len(e)
	}
	return fmt.Sprintf("%d entries, %d investors with %d entries, %d messages", len(d.Entries), len(d.Investors), n, len(d.Messages))
}

// unwrap lists the errors joined in err.
func unwrap(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

