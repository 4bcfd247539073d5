package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/etnz/tracker/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// pendingCollection holds the operations the remote has not received yet.
const pendingCollection = "_pending"

// Op is a write operation waiting to be replayed to the remote store.
type Op struct {
	Seq        string    `json:"seq"`
	Delete     bool      `json:"delete,omitempty"`
	Collection string    `json:"collection"`
	ID         string    `json:"id"`
	Doc        *Document `json:"doc,omitempty"`
	Err        string    `json:"err,omitempty"` // the remote error that queued it
}

// Mirror is a Store that writes to both a remote and a local store.
//
// Writes go to the local store first, then to the remote. When the remote
// fails the write is queued in the local pending journal and the call
// succeeds. A write the remote accepts supersedes the pending operations on
// the same document. Reads prefer the remote and fall back to the local copy;
// documents with pending operations are always read from the local copy.
type Mirror struct {
	remote, local Store
	names         [2]string // remote, local backend names
	metrics       *metrics.Metrics
	tracer        trace.Tracer

	seq atomic.Int64
	mu  sync.Mutex // serializes writes and Sync
}

// MirrorOption configures a Mirror.
type MirrorOption func(*Mirror)

// WithMetrics records the mirror operations in m.
func WithMetrics(m *metrics.Metrics) MirrorOption { return func(x *Mirror) { x.metrics = m } }

// WithNames sets the backend names used in logs and metrics.
func WithNames(remote, local string) MirrorOption {
	return func(x *Mirror) { x.names = [2]string{remote, local} }
}

// WithTracer replaces the default otel tracer.
func WithTracer(t trace.Tracer) MirrorOption { return func(x *Mirror) { x.tracer = t } }

// NewMirror returns a Mirror of remote backed by local.
func NewMirror(remote, local Store, opts ...MirrorOption) *Mirror {
	m := &Mirror{
		remote: remote,
		local:  local,
		names:  [2]string{"remote", "local"},
		tracer: otel.Tracer("github.com/etnz/tracker/store"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Mirror) span(ctx context.Context, op, collection, id string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "store."+op, trace.WithAttributes(
		attribute.String("store.collection", collection),
		attribute.String("store.id", id),
	))
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// call runs f against one of the backends and records it.
func (m *Mirror) call(backend int, op string, f func() error) error {
	start := time.Now()
	err := f()
	if errors.Is(err, ErrNotFound) {
		m.metrics.ObserveStore(m.names[backend], op, start, nil)
		return err
	}
	m.metrics.ObserveStore(m.names[backend], op, start, err)
	return err
}

const (
	remote = 0
	local  = 1
)

func (m *Mirror) Get(ctx context.Context, collection, id string) (doc Document, err error) {
	ctx, span := m.span(ctx, "get", collection, id)
	defer func() { end(span, err) }()

	// the local copy of a document with pending operations is the latest
	if pending, perr := m.pendingKeys(ctx, collection); perr == nil && pending[id] {
		span.AddEvent("pending")
		err = m.call(local, "get", func() (err error) { doc, err = m.local.Get(ctx, collection, id); return })
		return doc, err
	}

	err = m.call(remote, "get", func() (err error) { doc, err = m.remote.Get(ctx, collection, id); return })
	switch {
	case err == nil:
		if lerr := m.call(local, "put", func() error { return m.local.Put(ctx, doc) }); lerr != nil {
			log.Printf("store-refresh-local-failed doc=%s/%s err=%v", collection, id, lerr)
		}
		return doc, nil
	case errors.Is(err, ErrNotFound):
		return Document{}, err
	}
	log.Printf("store-remote-fallback op=get doc=%s/%s err=%v", collection, id, err)
	m.metrics.Fallback("get")
	span.AddEvent("fallback")
	err = m.call(local, "get", func() (err error) { doc, err = m.local.Get(ctx, collection, id); return })
	return doc, err
}

func (m *Mirror) List(ctx context.Context, collection string) (docs []Document, err error) {
	ctx, span := m.span(ctx, "list", collection, "")
	defer func() { end(span, err) }()

	err = m.call(remote, "list", func() (err error) { docs, err = m.remote.List(ctx, collection); return })
	if err != nil {
		log.Printf("store-remote-fallback op=list collection=%s err=%v", collection, err)
		m.metrics.Fallback("list")
		span.AddEvent("fallback")
		err = m.call(local, "list", func() (err error) { docs, err = m.local.List(ctx, collection); return })
		return docs, err
	}

	pending, perr := m.pendingKeys(ctx, collection)
	if perr != nil {
		log.Printf("store-pending-unreadable collection=%s err=%v", collection, perr)
	}
	res := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if pending[doc.ID] {
			continue
		}
		res = append(res, doc)
		if lerr := m.call(local, "put", func() error { return m.local.Put(ctx, doc) }); lerr != nil {
			log.Printf("store-refresh-local-failed doc=%s/%s err=%v", collection, doc.ID, lerr)
		}
	}
	if len(pending) > 0 {
		// documents with pending operations are served from the local copy
		span.AddEvent("pending")
		var locals []Document
		if err := m.call(local, "list", func() (err error) { locals, err = m.local.List(ctx, collection); return }); err != nil {
			return nil, err
		}
		for _, doc := range locals {
			if pending[doc.ID] {
				res = append(res, doc)
			}
		}
		slices.SortFunc(res, func(a, b Document) int { return strings.Compare(a.ID, b.ID) })
	}
	return res, nil
}

func (m *Mirror) Put(ctx context.Context, doc Document) (err error) {
	ctx, span := m.span(ctx, "put", doc.Collection, doc.ID)
	defer func() { end(span, err) }()
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now().UTC()
	}
	return m.write(ctx, Op{Collection: doc.Collection, ID: doc.ID, Doc: &doc})
}

func (m *Mirror) Delete(ctx context.Context, collection, id string) (err error) {
	ctx, span := m.span(ctx, "delete", collection, id)
	defer func() { end(span, err) }()
	return m.write(ctx, Op{Delete: true, Collection: collection, ID: id})
}

func (m *Mirror) write(ctx context.Context, op Op) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := op.name()
	lerr := m.call(local, name, func() error { return op.apply(ctx, m.local) })
	if lerr != nil {
		log.Printf("store-local-failed op=%s doc=%s/%s err=%v", name, op.Collection, op.ID, lerr)
	}
	rerr := m.call(remote, name, func() error { return op.apply(ctx, m.remote) })
	if rerr == nil {
		if err := m.retire(ctx, op.Collection, op.ID); err != nil {
			log.Printf("store-retire-failed doc=%s/%s err=%v", op.Collection, op.ID, err)
		}
		return nil
	}
	if lerr != nil {
		return fmt.Errorf("could not %s %s/%s: %w", name, op.Collection, op.ID, errors.Join(rerr, lerr))
	}

	log.Printf("store-remote-fallback op=%s doc=%s/%s err=%v", name, op.Collection, op.ID, rerr)
	m.metrics.Fallback(name)
	if err := m.enqueue(ctx, op, rerr); err != nil {
		log.Printf("store-enqueue-failed op=%s doc=%s/%s err=%v", name, op.Collection, op.ID, err)
	}
	return nil
}

// retire drops the pending operations on a document the remote has just
// received a newer version of.
func (m *Mirror) retire(ctx context.Context, collection, id string) error {
	ops, err := m.Pending(ctx)
	if err != nil {
		return err
	}
	n := 0
	for _, op := range ops {
		if op.Collection != collection || op.ID != id {
			continue
		}
		if err := m.local.Delete(ctx, pendingCollection, op.Seq); err != nil {
			return err
		}
		n++
	}
	if n > 0 {
		log.Printf("store-retired ops=%d doc=%s/%s", n, collection, id)
		m.refreshPending(ctx)
	}
	return nil
}

// pendingKeys returns the IDs of the documents of collection that have
// pending operations.
func (m *Mirror) pendingKeys(ctx context.Context, collection string) (map[string]bool, error) {
	ops, err := m.Pending(ctx)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]bool)
	for _, op := range ops {
		if op.Collection == collection {
			keys[op.ID] = true
		}
	}
	return keys, nil
}

func (m *Mirror) enqueue(ctx context.Context, op Op, cause error) error {
	// sequence keys sort lexicographically in write order
	op.Seq = fmt.Sprintf("%020d-%06d", time.Now().UnixNano(), m.seq.Add(1)%1_000_000)
	op.Err = cause.Error()
	doc, err := NewDocument(pendingCollection, op.Seq, op)
	if err != nil {
		return err
	}
	if err := m.local.Put(ctx, doc); err != nil {
		return err
	}
	m.refreshPending(ctx)
	return nil
}

func (m *Mirror) refreshPending(ctx context.Context) {
	if docs, err := m.local.List(ctx, pendingCollection); err == nil {
		m.metrics.SetPending(len(docs))
	}
}

// Pending returns the operations waiting for the remote, oldest first.
func (m *Mirror) Pending(ctx context.Context) ([]Op, error) {
	docs, err := m.local.List(ctx, pendingCollection)
	if err != nil {
		return nil, fmt.Errorf("could not list pending operations: %w", err)
	}
	ops := make([]Op, 0, len(docs))
	for _, doc := range docs {
		var op Op
		if err := doc.Decode(&op); err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// Sync replays the pending operations to the remote, in order. It stops at
// the first failure and returns the number of operations replayed.
func (m *Mirror) Sync(ctx context.Context) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctx, span := m.tracer.Start(ctx, "store.sync")
	defer func() {
		span.SetAttributes(attribute.Int("store.synced", n))
		end(span, err)
	}()
	defer m.refreshPending(ctx)

	ops, err := m.Pending(ctx)
	if err != nil {
		return 0, err
	}
	for _, op := range ops {
		if err := m.call(remote, op.name(), func() error { return op.apply(ctx, m.remote) }); err != nil {
			return n, fmt.Errorf("could not replay %s %s/%s: %w", op.name(), op.Collection, op.ID, err)
		}
		if err := m.local.Delete(ctx, pendingCollection, op.Seq); err != nil {
			return n, fmt.Errorf("could not dequeue %s: %w", op.Seq, err)
		}
		n++
		log.Printf("store-synced op=%s doc=%s/%s", op.name(), op.Collection, op.ID)
	}
	return n, nil
}

func (m *Mirror) Close() error {
	return errors.Join(m.remote.Close(), m.local.Close())
}

func (op Op) name() string {
	if op.Delete {
		return "delete"
	}
	return "put"
}

func (op Op) apply(ctx context.Context, s Store) error {
	if op.Delete {
		return s.Delete(ctx, op.Collection, op.ID)
	}
	return s.Put(ctx, *op.Doc)
}
