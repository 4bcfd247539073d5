package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/etnz/tracker"
	redis "github.com/redis/go-redis/v9"
)

// Channel is the redis channel carrying the chat messages.
const Channel = "tracker:chat"

// Bus carries messages between the processes sharing a store.
//
// Subscribers may receive messages published by their own process.
type Bus interface {
	Publish(ctx context.Context, msg tracker.Message) error
	// Subscribe calls fn for every published message until ctx is done.
	Subscribe(ctx context.Context, fn func(tracker.Message)) error
	Close() error
}

// LocalBus is an in-process Bus.
type LocalBus struct {
	mu   sync.RWMutex
	subs map[int]func(tracker.Message)
	next int
}

func NewLocalBus() *LocalBus { return &LocalBus{subs: make(map[int]func(tracker.Message))} }

func (b *LocalBus) Publish(ctx context.Context, msg tracker.Message) error {
	b.mu.RLock()
	fns := make([]func(tracker.Message), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(msg)
	}
	return nil
}

func (b *LocalBus) Subscribe(ctx context.Context, fn func(tracker.Message)) error {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}()
	return nil
}

func (b *LocalBus) Close() error { return nil }

// RedisBus is a Bus on redis pub/sub.
type RedisBus struct {
	client *redis.Client
}

// NewRedisBus connects to the redis server at url, like
// "redis://localhost:6379/0".
func NewRedisBus(ctx context.Context, url string) (*RedisBus, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	c := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &RedisBus{client: c}, nil
}

func (b *RedisBus) Publish(ctx context.Context, msg tracker.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, Channel, payload).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, fn func(tracker.Message)) error {
	sub := b.client.Subscribe(ctx, Channel)
	// Wait for the subscription confirmation.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis: subscribe %s: %w", Channel, err)
	}
	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				var msg tracker.Message
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					log.Printf("chat-bus-invalid-payload err=%v", err)
					continue
				}
				fn(msg)
			}
		}
	}()
	return nil
}

func (b *RedisBus) Close() error { return b.client.Close() }
