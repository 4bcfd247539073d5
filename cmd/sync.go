package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/tracker/queue"
	"github.com/etnz/tracker/renderer"
	"github.com/google/subcommands"
)

type syncCmd struct {
	enqueue bool
}

func (*syncCmd) Name() string     { return "sync" }
func (*syncCmd) Synopsis() string { return "replay the writes the remote store missed" }
func (*syncCmd) Usage() string {
	return `trk sync [-enqueue]

  Replays the pending journal to the remote store, in order, stopping at the first failure.
  With -enqueue the sync is queued for "trk worker" instead.
`
}

func (c *syncCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.enqueue, "enqueue", false, "queue the sync in Redis instead of running it")
}

func (c *syncCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.enqueue {
		client, err := queue.NewClient(cfg.RedisURL)
		if err != nil {
			return fail("connecting to redis: %v", err)
		}
		defer client.Close()
		id, err := client.EnqueueSync(ctx)
		if err != nil {
			return fail("queuing the sync: %v", err)
		}
		fmt.Fprintf(stdout, "Queued sync task %s\n", id)
		return subcommands.ExitSuccess
	}

	e, err := open(ctx)
	if err != nil {
		return fail("opening the store: %v", err)
	}
	defer e.Close()
	if e.mirror == nil {
		fmt.Fprintln(stdout, "No remote store configured, nothing to sync.")
		return subcommands.ExitSuccess
	}
	n, err := e.mirror.Sync(ctx)
	fmt.Fprintf(stdout, "Replayed %d writes\n", n)
	if err != nil {
		return fail("syncing: %v", err)
	}
	return subcommands.ExitSuccess
}

type pendingCmd struct{}

func (*pendingCmd) Name() string     { return "pending" }
func (*pendingCmd) Synopsis() string { return "list the writes waiting for the remote store" }
func (*pendingCmd) Usage() string {
	return `trk pending

  Lists the pending journal, oldest first.
`
}

func (*pendingCmd) SetFlags(*flag.FlagSet) {}

func (*pendingCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := open(ctx)
	if err != nil {
		return fail("opening the store: %v", err)
	}
	defer e.Close()
	if e.mirror == nil {
		fmt.Fprintln(stdout, "No remote store configured.")
		return subcommands.ExitSuccess
	}
	ops, err := e.mirror.Pending(ctx)
	if err != nil {
		return fail("reading the journal: %v", err)
	}

	printMarkdown(renderer.PendingMarkdown(ops))
	return subcommands.ExitSuccess
}
