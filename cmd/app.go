// Package cmd implements the trk command line application.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/tracker/chat"
	"github.com/etnz/tracker/config"
	"github.com/etnz/tracker/metrics"
	"github.com/etnz/tracker/service"
	"github.com/etnz/tracker/store"
	"github.com/google/subcommands"
)

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	cfg                      = config.Default()
	stdout         io.Writer = os.Stdout
	raw                      = flag.Bool("raw", false, "print markdown without terminal formatting")
	connectTimeout           = 10 * time.Second
)

// Setup loads the settings from .env and the environment and binds them to
// the global flags of f.
func Setup(f *flag.FlagSet) error {
	c, err := config.Load()
	if err != nil {
		return err
	}
	cfg = c
	cfg.RegisterFlags(f)
	f.StringVar(&cfg.Listen, "listen", cfg.Listen, "address of the HTTP server")
	return nil
}

// Commands returns the subcommands by group.
func Commands() map[string][]subcommands.Command {
	return map[string][]subcommands.Command{
		"server": {&serveCmd{}, &workerCmd{}, &syncCmd{}, &pendingCmd{}},
		"performance": {
			&addCmd{}, &editCmd{}, &rmCmd{}, &listCmd{}, &summaryCmd{}, &balanceCmd{},
		},
		"investors": {&investorAddCmd{}, &investorsCmd{}, &investorRmCmd{}, &reportCmd{}, &insightCmd{}},
		"chat":      {&sendCmd{}, &messagesCmd{}},
		"data":      {&exportCmd{}, &importCmd{}, &migrateLegacyCmd{}},
		"help":      {&topicCmd{}},
	}
}

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	for group, cmds := range Commands() {
		for _, cmd := range cmds {
			c.Register(cmd, group)
		}
	}
}

// env is what a command works on.
type env struct {
	svc     *service.Service
	store   store.Store
	mirror  *store.Mirror // nil without a remote store
	metrics *metrics.Metrics
}

// open connects the stores and loads the service.
func open(ctx context.Context, opts ...service.Option) (*env, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &env{metrics: metrics.New()}

	var local store.Store = store.NewMemory()
	localName := "memory"
	if cfg.LocalPath != "" {
		sq, err := store.OpenSQLite(cfg.LocalPath)
		if err != nil {
			return nil, err
		}
		local, localName = sq, "sqlite"
	}

	remote, err := connect(ctx)
	switch {
	case remote == nil && err == nil:
		e.store = local
	case err != nil:
		// work on the local copy, the writes are journaled until "trk sync"
		log.Printf("remote-unavailable backend=%s err=%v", cfg.Backend, err)
		remote = store.Unreachable{Err: err}
		fallthrough
	default:
		e.mirror = store.NewMirror(remote, local, store.WithMetrics(e.metrics), store.WithNames(cfg.Backend, localName))
		e.store = e.mirror
		// offline writes of a previous run reach the remote before loading
		if n, err := e.mirror.Sync(ctx); err != nil {
			log.Printf("startup-sync-failed synced=%d err=%v", n, err)
		}
	}

	opts = append([]service.Option{service.WithMetrics(e.metrics), service.WithCurrency(cfg.Currency)}, opts...)
	e.svc = service.New(e.store, opts...)
	if err := e.svc.Load(ctx); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

// connect returns the remote store, or nil without one.
func connect(ctx context.Context) (store.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	switch cfg.Backend {
	case config.BackendPostgres:
		return store.ConnectPostgres(ctx, cfg.DBURL)
	case config.BackendMongo:
		return store.ConnectMongo(ctx, cfg.MongoURL, cfg.MongoDatabase)
	default:
		return nil, nil
	}
}

// Close closes the stores.
func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		log.Printf("store-close-failed err=%v", err)
	}
}

// openBus returns the Redis bus when REDIS_URL is set.
func openBus(ctx context.Context) (chat.Bus, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	return chat.NewRedisBus(ctx, cfg.RedisURL)
}

// printMarkdown renders markdown for the terminal.
func printMarkdown(md string) {
	if *raw {
		fmt.Fprint(stdout, md)
		return
	}
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Fprint(stdout, md)
		return
	}
	fmt.Fprint(stdout, out)
}

// fail reports err and returns the failure status.
func fail(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error "+format+"\n", args...)
	return subcommands.ExitFailure
}

// usage reports a command line error.
func usage(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error "+format+"\n", args...)
	return subcommands.ExitUsageError
}
