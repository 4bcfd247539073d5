package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/tracker/docs"
	"github.com/google/subcommands"
)

type topicCmd struct {
	list bool
}

func (*topicCmd) Name() string     { return "topic" }
func (*topicCmd) Synopsis() string { return "read the help topics" }
func (*topicCmd) Usage() string {
	return `trk topic [-list] [<topic>...]

Print the help topics, '*' for all of them. Without topic, print the index.
`
}

func (c *topicCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.list, "list", false, "print the names of the topics only")
}

func (c *topicCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.list {
		names, err := docs.All()
		if err != nil {
			return fail("listing topics: %v", err)
		}
		for _, n := range names {
			fmt.Fprintln(stdout, n)
		}
		return subcommands.ExitSuccess
	}

	topics := f.Args()
	if len(topics) == 0 {
		topics = []string{"readme"}
	}
	text, err := docs.Topics(topics...)
	if err != nil {
		return fail("reading topics %v: %v", topics, err)
	}
	printMarkdown(text)
	return subcommands.ExitSuccess
}
