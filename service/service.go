// Package service keeps the tracker data in memory and persists every change.
//
// A Service is loaded once from a store.Store, then serves reads from memory.
// Writes are validated, applied to memory, and then persisted. A failed
// persistence is logged and counted but the in-memory change is kept, the
// store is expected to catch up (see store.Mirror).
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/etnz/tracker"
	"github.com/etnz/tracker/chat"
	"github.com/etnz/tracker/metrics"
	"github.com/etnz/tracker/store"
)

const settingsID = "main"

// DefaultCurrency is used when the starting balance has no currency.
const DefaultCurrency = "EUR"

// Service is the concurrency-safe data context of the tracker.
type Service struct {
	store    store.Store
	metrics  *metrics.Metrics
	bus      chat.Bus
	currency string
	now      func() time.Time

	// writeMu orders the writes: the store receives them in the order they
	// were applied to memory.
	writeMu sync.Mutex

	mu        sync.RWMutex
	starting  tracker.Money
	history   *tracker.History
	investors map[string]tracker.Investor
	histories map[string]*tracker.History  // by investor ID
	messages  map[string][]tracker.Message // by investor ID, sorted

	subMu   sync.RWMutex
	subs    map[int]subscription
	nextSub int
}

type subscription struct {
	investorID string
	fn         func(tracker.Message)
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records persistence failures and chat activity in m.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithBus publishes sent messages on b and delivers the messages received
// from b to the subscribers.
func WithBus(b chat.Bus) Option { return func(s *Service) { s.bus = b } }

// WithCurrency sets the currency used when none is configured.
func WithCurrency(cur string) Option { return func(s *Service) { s.currency = cur } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// New returns an empty Service on st. Call Load to read the stored data.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:     st,
		currency:  DefaultCurrency,
		now:       time.Now,
		history:   &tracker.History{},
		investors: make(map[string]tracker.Investor),
		histories: make(map[string]*tracker.History),
		messages:  make(map[string][]tracker.Message),
		subs:      make(map[int]subscription),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.starting = tracker.M(0, s.currency)
	return s
}

type settings struct {
	StartingBalance tracker.Money `json:"startingBalance"`
}

// Load replaces the in-memory data with the stored one. Invalid documents
// are logged and skipped.
func (s *Service) Load(ctx context.Context) error {
	starting := tracker.M(0, s.currency)
	doc, err := s.store.Get(ctx, store.Settings, settingsID)
	switch {
	case err == nil:
		var st settings
		if err := doc.Decode(&st); err != nil {
			log.Printf("load-skip-settings err=%v", err)
		} else {
			starting = st.StartingBalance
			if starting.Currency() == "" {
				starting = starting.In(s.currency)
			}
		}
	case errors.Is(err, store.ErrNotFound):
	default:
		return fmt.Errorf("could not load settings: %w", err)
	}

	history, err := s.loadHistory(ctx, store.Performance, starting.Currency())
	if err != nil {
		return err
	}

	docs, err := s.store.List(ctx, store.Investors)
	if err != nil {
		return fmt.Errorf("could not load investors: %w", err)
	}
	investors := make(map[string]tracker.Investor, len(docs))
	histories := make(map[string]*tracker.History, len(docs))
	for _, doc := range docs {
		var inv tracker.Investor
		if err := doc.Decode(&inv); err != nil {
			log.Printf("load-skip-investor id=%q err=%v", doc.ID, err)
			continue
		}
		inv.ID = doc.ID
		if inv.Currency() == "" {
			inv.StartingBalance = inv.StartingBalance.In(s.currency)
		}
		h, err := s.loadHistory(ctx, store.InvestorPerformance(inv.ID), inv.Currency())
		if err != nil {
			return err
		}
		investors[inv.ID] = inv
		histories[inv.ID] = h
	}

	messages, err := s.loadMessages(ctx, investors)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.starting = starting
	s.history = history
	s.investors = investors
	s.histories = histories
	s.messages = messages
	s.mu.Unlock()
	log.Printf("load entries=%d investors=%d conversations=%d", history.Len(), len(investors), len(messages))
	return nil
}

func (s *Service) loadHistory(ctx context.Context, collection, cur string) (*tracker.History, error) {
	docs, err := s.store.List(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("could not load %s: %w", collection, err)
	}
	h := &tracker.History{}
	for _, doc := range docs {
		var e tracker.Entry
		if err := doc.Decode(&e); err != nil {
			log.Printf("load-skip-entry doc=%s/%s err=%v", collection, doc.ID, err)
			continue
		}
		e.ID = doc.ID
		if err := e.Validate(); err != nil {
			log.Printf("load-skip-entry doc=%s/%s err=%v", collection, doc.ID, err)
			continue
		}
		if e, err = e.In(cur); err != nil {
			log.Printf("load-skip-entry doc=%s/%s err=%v", collection, doc.ID, err)
			continue
		}
		if err := h.Insert(e); err != nil {
			log.Printf("load-skip-entry doc=%s/%s err=%v", collection, doc.ID, err)
		}
	}
	return h, nil
}

func (s *Service) loadMessages(ctx context.Context, investors map[string]tracker.Investor) (map[string][]tracker.Message, error) {
	ids := make(map[string]bool, len(investors))
	for id := range investors {
		ids[id] = true
	}
	// conversations may outlive their investor document
	docs, err := s.store.List(ctx, store.Conversations)
	if err != nil {
		return nil, fmt.Errorf("could not load conversations: %w", err)
	}
	for _, doc := range docs {
		ids[doc.ID] = true
	}

	res := make(map[string][]tracker.Message)
	for id := range ids {
		docs, err := s.store.List(ctx, store.Messages(id))
		if err != nil {
			return nil, fmt.Errorf("could not load messages of %s: %w", id, err)
		}
		var msgs []tracker.Message
		for _, doc := range docs {
			var m tracker.Message
			if err := doc.Decode(&m); err != nil {
				log.Printf("load-skip-message doc=%s/%s err=%v", doc.Collection, doc.ID, err)
				continue
			}
			m.ID, m.InvestorID = doc.ID, id
			msgs = append(msgs, m)
		}
		if len(msgs) > 0 {
			tracker.SortMessages(msgs)
			res[id] = msgs
		}
	}
	return res, nil
}

// persist stores v, logging failures. The in-memory state is authoritative.
func (s *Service) persist(ctx context.Context, collection, id string, v any) {
	doc, err := store.NewDocument(collection, id, v)
	if err == nil {
		err = s.store.Put(ctx, doc)
	}
	if err != nil {
		log.Printf("persist-failed doc=%s/%s err=%v", collection, id, err)
		s.metrics.PersistFailure(collection)
	}
}

func (s *Service) remove(ctx context.Context, collection, id string) {
	if err := s.store.Delete(ctx, collection, id); err != nil {
		log.Printf("persist-failed op=delete doc=%s/%s err=%v", collection, id, err)
		s.metrics.PersistFailure(collection)
	}
}
