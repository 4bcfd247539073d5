package cmd

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/etnz/tracker"
	"github.com/etnz/tracker/renderer"
	"github.com/etnz/tracker/service"
	"github.com/google/subcommands"
)

type sendCmd struct {
	investor string
	sender   string
}

func (*sendCmd) Name() string     { return "send" }
func (*sendCmd) Synopsis() string { return "send a message to an investor" }
func (*sendCmd) Usage() string {
	return `trk send -investor <id> [-as admin|investor] <message>

  Appends a message to the conversation with an investor.
`
}

func (c *sendCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.investor, "investor", "", "ID of the investor")
	f.StringVar(&c.sender, "as", string(tracker.RoleAdmin), "sender of the message")
}

func (c *sendCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	role, err := tracker.ParseRole(c.sender)
	if err != nil {
		return usage("%v", err)
	}
	body := strings.Join(f.Args(), " ")
	if c.investor == "" || strings.TrimSpace(body) == "" {
		return usage("-investor and a message are required")
	}

	bus, err := openBus(ctx)
	if err != nil {
		return fail("connecting to redis: %v", err)
	}
	var opts []service.Option
	if bus != nil {
		defer bus.Close()
		opts = append(opts, service.WithBus(bus))
	}
	e, err := open(ctx, opts...)
	if err != nil {
		return fail("opening the store: %v", err)
	}
	defer e.Close()

	msg, err := e.svc.SendMessage(ctx, c.investor, role, body)
	if err != nil {
		return fail("sending: %v", err)
	}
	fmt.Fprintf(stdout, "Sent %s\n", msg.ID)
	return subcommands.ExitSuccess
}

type messagesCmd struct {
	investor string
	reader   string
	markRead bool
}

func (*messagesCmd) Name() string     { return "messages" }
func (*messagesCmd) Synopsis() string { return "show conversations" }
func (*messagesCmd) Usage() string {
	return `trk messages [-investor <id>] [-as admin|investor] [-read]

  Without -investor, lists the conversations, most recent first.
  With -investor, prints the conversation; -read marks it as read.
`
}

func (c *messagesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.investor, "investor", "", "ID of the investor")
	f.StringVar(&c.reader, "as", string(tracker.RoleAdmin), "reader of the conversation")
	f.BoolVar(&c.markRead, "read", false, "mark the conversation as read")
}

func (c *messagesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	reader, err := tracker.ParseRole(c.reader)
	if err != nil {
		return usage("%v", err)
	}
	e, err := open(ctx)
	if err != nil {
		return fail("opening the store: %v", err)
	}
	defer e.Close()

	if c.investor == "" {
		var b strings.Builder
		fmt.Fprintf(&b, "## Conversations\n\n%d unread messages.\n\n", e.svc.UnreadCount(reader))
		for _, conv := range e.svc.Conversations() {
			name := conv.InvestorID
			if inv, err := e.svc.Investor(conv.InvestorID); err == nil {
				name = inv.Name
			}
			fmt.Fprintf(&b, "- **%s** (%s), %d unread: %s\n", name, conv.LastMessageAt.Format("2006-01-02 15:04"), conv.Unread(reader), conv.LastMessage)
		}
		printMarkdown(b.String())
		return subcommands.ExitSuccess
	}

	inv, err := e.svc.Investor(c.investor)
	if err != nil {
		return fail("%v", err)
	}
	printMarkdown(renderer.MessagesMarkdown(inv.Name, e.svc.Messages(c.investor), reader))
	if c.markRead {
		if _, err := e.svc.MarkRead(ctx, c.investor, reader); err != nil {
			return fail("marking as read: %v", err)
		}
	}
	return subcommands.ExitSuccess
}
