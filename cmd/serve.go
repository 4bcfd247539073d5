package cmd

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/etnz/tracker/api"
	"github.com/etnz/tracker/insight"
	"github.com/etnz/tracker/queue"
	"github.com/etnz/tracker/service"
	"github.com/gin-gonic/gin"
	"github.com/google/subcommands"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type serveCmd struct {
	debug bool
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the HTTP API and the chat server" }
func (*serveCmd) Usage() string {
	return `trk serve [-listen <addr>] [-debug]

  Serves the API under /api/v1, the chat websocket on /ws and the metrics on /metrics.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.debug, "debug", false, "log every request")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []service.Option
	bus, err := openBus(ctx)
	if err != nil {
		return fail("connecting to redis: %v", err)
	}
	if bus != nil {
		defer bus.Close()
		opts = append(opts, service.WithBus(bus))
	}
	e, err := open(ctx, opts...)
	if err != nil {
		return fail("opening the store: %v", err)
	}
	defer e.Close()

	apiOpts := []api.Option{api.WithMetrics(e.metrics), api.WithAdminToken(cfg.AdminToken)}
	if w, err := insight.NewWriter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel); err == nil {
		apiOpts = append(apiOpts, api.WithCommentator(w))
	} else if !errors.Is(err, insight.ErrDisabled) {
		log.Printf("insight-unavailable err=%v", err)
	}
	if c.debug {
		apiOpts = append(apiOpts, api.WithAccessLog())
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	server := api.New(e.svc, apiOpts...)
	defer server.Close()

	srv := &http.Server{Addr: cfg.Listen, Handler: server.Handler(), ReadHeaderTimeout: 10 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.svc.Listen(ctx) })
	if e.mirror != nil {
		g.Go(func() error { return syncLoop(ctx, e) })
	}
	g.Go(func() error {
		log.Printf("serve-start listen=%s backend=%s", cfg.Listen, cfg.Backend)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	if err := g.Wait(); err != nil {
		return fail("serving: %v", err)
	}
	return subcommands.ExitSuccess
}

// syncLoop replays the pending journal periodically. With Redis the worker
// does it, the server only asks for a sync at startup.
func syncLoop(ctx context.Context, e *env) error {
	if cfg.RedisURL != "" {
		client, err := queue.NewClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		if _, err := client.EnqueueSync(ctx); err != nil {
			log.Printf("sync-enqueue-failed err=%v", err)
		}
		return nil
	}
	handle := queue.HandleSync(e.mirror)
	t := time.NewTicker(cfg.SyncInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			_ = handle(ctx, queue.NewSyncTask())
		}
	}
}

type workerCmd struct {
	concurrency int
}

func (*workerCmd) Name() string     { return "worker" }
func (*workerCmd) Synopsis() string { return "replay the pending writes in the background" }
func (*workerCmd) Usage() string {
	return `trk worker [-concurrency <n>]

  Runs the sync tasks queued in Redis and schedules one every TRACKER_SYNC_INTERVAL.
  Requires REDIS_URL and a remote backend.
`
}

func (c *workerCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.concurrency, "concurrency", 1, "number of tasks run at once")
}

func (c *workerCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RedisURL == "" {
		return fail("the worker requires REDIS_URL")
	}
	e, err := open(ctx)
	if err != nil {
		return fail("opening the store: %v", err)
	}
	defer e.Close()
	if e.mirror == nil {
		return fail("the worker requires a remote backend")
	}

	worker, err := queue.NewWorker(cfg.RedisURL, c.concurrency, e.mirror)
	if err != nil {
		return fail("creating the worker: %v", err)
	}
	scheduler, err := queue.NewScheduler(cfg.RedisURL, cfg.SyncInterval)
	if err != nil {
		return fail("creating the scheduler: %v", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(ctx) })
	g.Go(func() error { return scheduler.Run(ctx) })
	log.Printf("worker-start every=%v", cfg.SyncInterval)
	if err := g.Wait(); err != nil {
		return fail("running the worker: %v", err)
	}
	return subcommands.ExitSuccess
}
