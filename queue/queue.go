// Package queue replays the pending store operations in the background.
//
// The "store:sync" task calls Sync on the mirrored store. A Scheduler
// enqueues it periodically, a Worker runs it, and the Client lets other
// processes ask for an immediate sync.
package queue

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
)

// TypeSync is the task replaying the pending store operations.
const TypeSync = "store:sync"

// Syncer is implemented by store.Mirror.
type Syncer interface {
	Sync(ctx context.Context) (int, error)
}

// NewSyncTask returns a sync task.
func NewSyncTask() *asynq.Task { return asynq.NewTask(TypeSync, nil) }

// HandleSync returns the handler of the sync task.
func HandleSync(s Syncer) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		n, err := s.Sync(ctx)
		if err != nil {
			log.Printf("sync-failed synced=%d err=%v", n, err)
			return fmt.Errorf("sync: %w", err)
		}
		if n > 0 {
			log.Printf("sync-done synced=%d", n)
		}
		return nil
	}
}

func redisOpt(redisURL string) (asynq.RedisConnOpt, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("asynq: redis url is not set")
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("asynq: parse redis url: %w", err)
	}
	return opt, nil
}

// Client enqueues tasks.
type Client struct {
	client *asynq.Client
}

// NewClient connects to the redis server at redisURL.
func NewClient(redisURL string) (*Client, error) {
	opt, err := redisOpt(redisURL)
	if err != nil {
		return nil, err
	}
	return &Client{client: asynq.NewClient(opt)}, nil
}

// EnqueueSync asks for a sync. Requests made while one is queued are merged.
func (c *Client) EnqueueSync(ctx context.Context) (string, error) {
	info, err := c.client.EnqueueContext(ctx, NewSyncTask(), asynq.MaxRetry(3), asynq.Unique(time.Minute))
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

func (c *Client) Close() error { return c.client.Close() }

// Worker runs the tasks.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewWorker creates a worker running the sync task against s.
func NewWorker(redisURL string, concurrency int, s Syncer) (*Worker, error) {
	opt, err := redisOpt(redisURL)
	if err != nil {
		return nil, err
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{"default": 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Printf("task-failed type=%s err=%v", task.Type(), err)
		}),
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeSync, HandleSync(s))
	return &Worker{server: srv, mux: mux}, nil
}

// Run starts the worker and blocks until the context is canceled, then
// gracefully shuts down.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	<-ctx.Done()
	w.server.Shutdown()
	return nil
}

// Scheduler enqueues the sync task periodically.
type Scheduler struct {
	scheduler *asynq.Scheduler
}

// NewScheduler enqueues a sync every interval.
func NewScheduler(redisURL string, interval time.Duration) (*Scheduler, error) {
	opt, err := redisOpt(redisURL)
	if err != nil {
		return nil, err
	}
	if interval < time.Second {
		return nil, fmt.Errorf("sync interval %v is too short", interval)
	}
	s := asynq.NewScheduler(opt, nil)
	if _, err := s.Register(Spec(interval), NewSyncTask(), asynq.Unique(interval)); err != nil {
		return nil, fmt.Errorf("asynq: register sync: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// Spec returns the cron spec of a task running every interval.
func Spec(interval time.Duration) string { return "@every " + interval.String() }

// Run starts the scheduler and blocks until the context is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.scheduler.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.scheduler.Shutdown()
	return nil
}
