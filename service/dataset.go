package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/etnz/tracker"
	"github.com/etnz/tracker/store"
)

// Export returns a snapshot of all the data.
func (s *Service) Export() *tracker.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	starting := s.starting
	d := &tracker.Dataset{
		StartingBalance: &starting,
		Entries:         s.history.Entries(),
		InvestorEntries: make(map[string][]tracker.Entry),
	}
	for id, inv := range s.investors {
		d.Investors = append(d.Investors, inv)
		if h := s.histories[id]; h.Len() > 0 {
			d.InvestorEntries[id] = h.Entries()
		}
	}
	for _, msgs := range s.messages {
		d.Messages = append(d.Messages, msgs...)
	}
	return d
}

// Import merges d into the data. Entries replace the entry of the same month,
// investors and messages the ones with the same ID. The starting balance is
// kept when d has none. Nothing is changed when d is invalid.
func (s *Service) Import(ctx context.Context, d *tracker.Dataset) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	starting := s.starting
	if d.StartingBalance != nil {
		starting = *d.StartingBalance
		if starting.Currency() == "" {
			starting = starting.In(s.starting.Currency())
		}
	}
	entries, err := checkEntries("performance", d.Entries, starting.Currency())
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if starting.Currency() != s.starting.Currency() && s.history.Len() > 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w dataset: currency %s does not match %s", tracker.ErrInvalid, starting.Currency(), s.starting.Currency())
	}

	investors := make(map[string]tracker.Investor)
	for _, inv := range d.Investors {
		inv = s.defaults(inv)
		if inv.ID == "" {
			s.mu.Unlock()
			return fmt.Errorf("%w dataset: investor %q has no id", tracker.ErrInvalid, inv.Name)
		}
		if err := inv.Validate(); err != nil {
			s.mu.Unlock()
			return err
		}
		if old, ok := s.investors[inv.ID]; ok && old.Currency() != inv.Currency() && s.histories[inv.ID].Len() > 0 {
			s.mu.Unlock()
			return fmt.Errorf("%w dataset: investor %q cannot change currency from %s to %s with existing entries", tracker.ErrInvalid, inv.ID, old.Currency(), inv.Currency())
		}
		investors[inv.ID] = inv
	}
	invEntries := make(map[string][]tracker.Entry)
	for id, list := range d.InvestorEntries {
		inv, ok := investors[id]
		if !ok {
			if inv, ok = s.investors[id]; !ok {
				s.mu.Unlock()
				return fmt.Errorf("%w dataset: entries of unknown investor %q", tracker.ErrInvalid, id)
			}
		}
		if invEntries[id], err = checkEntries("investor "+id, list, inv.Currency()); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	for _, m := range d.Messages {
		if _, err := tracker.ParseRole(string(m.Sender)); err != nil || m.ID == "" || m.InvestorID == "" {
			s.mu.Unlock()
			return fmt.Errorf("%w dataset: message %q", tracker.ErrInvalid, m.ID)
		}
	}

	// apply
	s.starting = starting
	for i, e := range entries {
		entries[i] = s.history.Upsert(e)
	}
	for id, inv := range investors {
		if old, ok := s.investors[id]; ok {
			inv.CreatedAt = old.CreatedAt
		} else {
			s.histories[id] = &tracker.History{}
		}
		s.investors[id] = inv
	}
	for id, list := range invEntries {
		h := s.histories[id]
		for i, e := range list {
			list[i] = h.Upsert(e)
		}
	}
	var msgs []tracker.Message
	for _, m := range d.Messages {
		current := s.messages[m.InvestorID]
		if i := slices.IndexFunc(current, func(x tracker.Message) bool { return x.ID == m.ID }); i >= 0 {
			current[i] = m
		} else {
			current = append(current, m)
		}
		tracker.SortMessages(current)
		s.messages[m.InvestorID] = current
		msgs = append(msgs, m)
	}
	convs := make(map[string]tracker.Conversation)
	for _, m := range msgs {
		convs[m.InvestorID] = tracker.NewConversation(m.InvestorID, s.messages[m.InvestorID])
	}
	s.mu.Unlock()

	if d.StartingBalance != nil {
		s.persist(ctx, store.Settings, settingsID, settings{StartingBalance: starting})
	}
	for _, e := range entries {
		s.persist(ctx, store.Performance, e.ID, e)
	}
	for id, inv := range investors {
		s.persist(ctx, store.Investors, id, inv)
	}
	for id, list := range invEntries {
		for _, e := range list {
			s.persist(ctx, store.InvestorPerformance(id), e.ID, e)
		}
	}
	for _, m := range msgs {
		s.persist(ctx, store.Messages(m.InvestorID), m.ID, m)
	}
	for id, c := range convs {
		s.persist(ctx, store.Conversations, id, c)
	}
	return nil
}

// checkEntries validates entries and sets their currency. Two entries cannot
// share a month.
func checkEntries(owner string, entries []tracker.Entry, cur string) ([]tracker.Entry, error) {
	res := make([]tracker.Entry, 0, len(entries))
	h := &tracker.History{}
	for _, e := range entries {
		e, err := prepare(e, cur)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", owner, err)
		}
		if e.ID == "" {
			return nil, fmt.Errorf("%w %s: entry %v has no id", tracker.ErrInvalid, owner, e.Month)
		}
		if err := h.Insert(e); err != nil {
			return nil, fmt.Errorf("%s: %w", owner, err)
		}
		res = append(res, e)
	}
	return res, nil
}
