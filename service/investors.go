package service

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/etnz/tracker"
	"github.com/etnz/tracker/date"
	"github.com/etnz/tracker/store"
	"github.com/google/uuid"
)

// Investors returns the investors ordered by name.
func (s *Service) Investors() []tracker.Investor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := slices.Collect(maps.Values(s.investors))
	slices.SortFunc(res, func(a, b tracker.Investor) int {
		return cmp.Or(
			strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
			strings.Compare(a.ID, b.ID),
		)
	})
	return res
}

// Investor returns the investor with that ID.
func (s *Service) Investor(id string) (tracker.Investor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.investors[id]
	if !ok {
		return tracker.Investor{}, fmt.Errorf("%w: %q", tracker.ErrInvestorNotFound, id)
	}
	return inv, nil
}

// AddInvestor registers a new investor.
func (s *Service) AddInvestor(ctx context.Context, inv tracker.Investor) (tracker.Investor, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	inv = s.defaults(inv)
	if err := inv.Validate(); err != nil {
		return tracker.Investor{}, err
	}
	now := s.now().UTC()
	inv.CreatedAt, inv.UpdatedAt = now, now
	if inv.JoinedOn.IsZero() {
		inv.JoinedOn = date.Of(now)
	}

	s.mu.Lock()
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	} else if _, exists := s.investors[inv.ID]; exists {
		s.mu.Unlock()
		return tracker.Investor{}, fmt.Errorf("%w investor: id %q already exists", tracker.ErrInvalid, inv.ID)
	}
	s.investors[inv.ID] = inv
	s.histories[inv.ID] = &tracker.History{}
	s.mu.Unlock()

	s.persist(ctx, store.Investors, inv.ID, inv)
	return inv, nil
}

// UpdateInvestor replaces the investor having the same ID. The currency
// cannot change once the investor has entries.
func (s *Service) UpdateInvestor(ctx context.Context, inv tracker.Investor) (tracker.Investor, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	inv = s.defaults(inv)
	if err := inv.Validate(); err != nil {
		return tracker.Investor{}, err
	}

	s.mu.Lock()
	old, ok := s.investors[inv.ID]
	if !ok {
		s.mu.Unlock()
		return tracker.Investor{}, fmt.Errorf("%w: %q", tracker.ErrInvestorNotFound, inv.ID)
	}
	if inv.Currency() != old.Currency() && s.histories[inv.ID].Len() > 0 {
		s.mu.Unlock()
		return tracker.Investor{}, fmt.Errorf("%w investor %q: cannot change currency with existing entries", tracker.ErrInvalid, inv.Name)
	}
	inv.CreatedAt, inv.UpdatedAt = old.CreatedAt, s.now().UTC()
	if inv.JoinedOn.IsZero() {
		inv.JoinedOn = old.JoinedOn
	}
	s.investors[inv.ID] = inv
	s.mu.Unlock()

	s.persist(ctx, store.Investors, inv.ID, inv)
	return inv, nil
}

// DeleteInvestor removes an investor with its entries and conversation.
func (s *Service) DeleteInvestor(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	if _, ok := s.investors[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", tracker.ErrInvestorNotFound, id)
	}
	entries := s.histories[id].Entries()
	msgs := s.messages[id]
	delete(s.investors, id)
	delete(s.histories, id)
	delete(s.messages, id)
	s.mu.Unlock()

	for _, e := range entries {
		s.remove(ctx, store.InvestorPerformance(id), e.ID)
	}
	for _, m := range msgs {
		s.remove(ctx, store.Messages(id), m.ID)
	}
	s.remove(ctx, store.Conversations, id)
	s.remove(ctx, store.Investors, id)
	return nil
}

// InvestorEntries returns the entries of an investor in chronological order.
func (s *Service) InvestorEntries(id string) ([]tracker.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.histories[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", tracker.ErrInvestorNotFound, id)
	}
	return h.Entries(), nil
}

// AddInvestorEntry records a month of performance for an investor.
func (s *Service) AddInvestorEntry(ctx context.Context, investorID string, e tracker.Entry) (tracker.Entry, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	h, inv, err := s.investorHistory(investorID)
	if err == nil {
		e, err = s.insert(h, e, inv.Currency())
	}
	s.mu.Unlock()
	if err != nil {
		return tracker.Entry{}, err
	}
	s.persist(ctx, store.InvestorPerformance(investorID), e.ID, e)
	return e, nil
}

// UpdateInvestorEntry replaces an entry of an investor.
func (s *Service) UpdateInvestorEntry(ctx context.Context, investorID string, e tracker.Entry) (tracker.Entry, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	h, inv, err := s.investorHistory(investorID)
	if err == nil {
		e, err = s.update(h, e, inv.Currency())
	}
	s.mu.Unlock()
	if err != nil {
		return tracker.Entry{}, err
	}
	s.persist(ctx, store.InvestorPerformance(investorID), e.ID, e)
	return e, nil
}

// DeleteInvestorEntry removes an entry of an investor.
func (s *Service) DeleteInvestorEntry(ctx context.Context, investorID, entryID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	h, _, err := s.investorHistory(investorID)
	if err == nil {
		_, err = h.Delete(entryID)
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.remove(ctx, store.InvestorPerformance(investorID), entryID)
	return nil
}

// InvestorSummary summarizes the performance of an investor.
func (s *Service) InvestorSummary(id string) (tracker.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, inv, err := s.investorHistory(id)
	if err != nil {
		return tracker.Summary{}, err
	}
	return tracker.Summarize(inv.StartingBalance, h.Entries()), nil
}

// InvestorStatement returns the entries of an investor with running balances.
func (s *Service) InvestorStatement(id string) ([]tracker.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, inv, err := s.investorHistory(id)
	if err != nil {
		return nil, err
	}
	return tracker.Statement(inv.StartingBalance, h.Entries()), nil
}

// Overview totals the investors, by currency.
type Overview struct {
	Currency         string        `json:"currency"`
	Investors        int           `json:"investors"`
	Active           int           `json:"active"`
	Starting         tracker.Money `json:"starting"`
	TotalGrowth      tracker.Money `json:"totalGrowth"`
	TotalDeposits    tracker.Money `json:"totalDeposits"`
	TotalWithdrawals tracker.Money `json:"totalWithdrawals"`
	CurrentBalance   tracker.Money `json:"currentBalance"`
}

// Overview totals all the investors, one line per currency, sorted by currency.
func (s *Service) Overview() []Overview {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byCur := make(map[string]*Overview)
	for id, inv := range s.investors {
		cur := inv.Currency()
		o, ok := byCur[cur]
		if !ok {
			zero := tracker.M(0, cur)
			o = &Overview{Currency: cur, Starting: zero, TotalGrowth: zero, TotalDeposits: zero, TotalWithdrawals: zero, CurrentBalance: zero}
			byCur[cur] = o
		}
		sum := tracker.Summarize(inv.StartingBalance, s.histories[id].Entries())
		o.Investors++
		if inv.Status == tracker.StatusActive {
			o.Active++
		}
		o.Starting = o.Starting.Add(sum.Starting)
		o.TotalGrowth = o.TotalGrowth.Add(sum.TotalGrowth)
		o.TotalDeposits = o.TotalDeposits.Add(sum.TotalDeposits)
		o.TotalWithdrawals = o.TotalWithdrawals.Add(sum.TotalWithdrawals)
		o.CurrentBalance = o.CurrentBalance.Add(sum.CurrentBalance)
	}
	res := make([]Overview, 0, len(byCur))
	for _, cur := range slices.Sorted(maps.Keys(byCur)) {
		res = append(res, *byCur[cur])
	}
	return res
}

// investorHistory returns the history of an investor. s.mu must be held.
func (s *Service) investorHistory(id string) (*tracker.History, tracker.Investor, error) {
	inv, ok := s.investors[id]
	if !ok {
		return nil, tracker.Investor{}, fmt.Errorf("%w: %q", tracker.ErrInvestorNotFound, id)
	}
	return s.histories[id], inv, nil
}

func (s *Service) defaults(inv tracker.Investor) tracker.Investor {
	inv.Name = strings.TrimSpace(inv.Name)
	inv.Email = strings.TrimSpace(inv.Email)
	if inv.Status == "" {
		inv.Status = tracker.StatusActive
	}
	if inv.Currency() == "" {
		inv.StartingBalance = inv.StartingBalance.In(s.currency)
	}
	return inv
}
