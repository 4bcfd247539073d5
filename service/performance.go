package service

import (
	"context"
	"fmt"

	"github.com/etnz/tracker"
	"github.com/etnz/tracker/date"
	"github.com/etnz/tracker/store"
	"github.com/google/uuid"
)

// StartingBalance returns the balance before the first entry.
func (s *Service) StartingBalance() tracker.Money {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.starting
}

// SetStartingBalance changes the starting balance. The currency cannot change
// once entries exist.
func (s *Service) SetStartingBalance(ctx context.Context, m tracker.Money) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if m.IsNegative() {
		return fmt.Errorf("%w starting balance: must not be negative", tracker.ErrInvalid)
	}
	if c := m.Currency(); c != "" && !tracker.KnownCurrency(c) {
		return fmt.Errorf("%w starting balance: unknown currency %q", tracker.ErrInvalid, c)
	}

	s.mu.Lock()
	cur := s.starting.Currency()
	if m.Currency() == "" {
		m = m.In(cur)
	}
	if m.Currency() != cur && s.history.Len() > 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w starting balance: cannot change currency from %s to %s with existing entries", tracker.ErrInvalid, cur, m.Currency())
	}
	s.starting = m
	s.mu.Unlock()

	s.persist(ctx, store.Settings, settingsID, settings{StartingBalance: m})
	return nil
}

// Entries returns the entries in chronological order.
func (s *Service) Entries() []tracker.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Entries()
}

// Entry returns the entry with that ID.
func (s *Service) Entry(id string) (tracker.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.history.Get(id)
	if !ok {
		return tracker.Entry{}, fmt.Errorf("%w: %q", tracker.ErrEntryNotFound, id)
	}
	return e, nil
}

// AddEntry records the performance of a new month. It returns the stored
// entry, with its ID and timestamps set.
func (s *Service) AddEntry(ctx context.Context, e tracker.Entry) (tracker.Entry, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	e, err := s.insert(s.history, e, s.starting.Currency())
	s.mu.Unlock()
	if err != nil {
		return tracker.Entry{}, err
	}
	s.persist(ctx, store.Performance, e.ID, e)
	return e, nil
}

// UpdateEntry replaces the entry having the same ID.
func (s *Service) UpdateEntry(ctx context.Context, e tracker.Entry) (tracker.Entry, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	e, err := s.update(s.history, e, s.starting.Currency())
	s.mu.Unlock()
	if err != nil {
		return tracker.Entry{}, err
	}
	s.persist(ctx, store.Performance, e.ID, e)
	return e, nil
}

// DeleteEntry removes an entry.
func (s *Service) DeleteEntry(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	_, err := s.history.Delete(id)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.remove(ctx, store.Performance, id)
	return nil
}

// Summary summarizes the whole history.
func (s *Service) Summary() tracker.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tracker.Summarize(s.starting, s.history.Entries())
}

// Statement returns the history with running balances.
func (s *Service) Statement() []tracker.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tracker.Statement(s.starting, s.history.Entries())
}

// Breakdown summarizes the history per period.
func (s *Service) Breakdown(p date.Period) []tracker.Bucket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tracker.Breakdown(s.starting, s.history.Entries(), p)
}

// insert validates e and inserts it in h. s.mu must be held.
func (s *Service) insert(h *tracker.History, e tracker.Entry, cur string) (tracker.Entry, error) {
	e, err := prepare(e, cur)
	if err != nil {
		return tracker.Entry{}, err
	}
	now := s.now().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	} else if _, exists := h.Get(e.ID); exists {
		return tracker.Entry{}, fmt.Errorf("%w entry: id %q already exists", tracker.ErrInvalid, e.ID)
	}
	e.CreatedAt, e.UpdatedAt = now, now
	if err := h.Insert(e); err != nil {
		return tracker.Entry{}, err
	}
	return e, nil
}

// update validates e and replaces its previous version in h. s.mu must be held.
func (s *Service) update(h *tracker.History, e tracker.Entry, cur string) (tracker.Entry, error) {
	e, err := prepare(e, cur)
	if err != nil {
		return tracker.Entry{}, err
	}
	old, ok := h.Get(e.ID)
	if !ok {
		return tracker.Entry{}, fmt.Errorf("%w: %q", tracker.ErrEntryNotFound, e.ID)
	}
	e.CreatedAt, e.UpdatedAt = old.CreatedAt, s.now().UTC()
	if err := h.Update(e); err != nil {
		return tracker.Entry{}, err
	}
	return e, nil
}

func prepare(e tracker.Entry, cur string) (tracker.Entry, error) {
	if err := e.Validate(); err != nil {
		return tracker.Entry{}, err
	}
	return e.In(cur)
}
