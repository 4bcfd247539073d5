package service

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"

	"github.com/etnz/tracker"
	"github.com/etnz/tracker/store"
)

// Conversations returns the conversation digests, most recent first.
func (s *Service) Conversations() []tracker.Conversation {
	s.mu.RLock()
	res := make([]tracker.Conversation, 0, len(s.messages))
	for id, msgs := range s.messages {
		res = append(res, tracker.NewConversation(id, msgs))
	}
	s.mu.RUnlock()
	slices.SortFunc(res, func(a, b tracker.Conversation) int {
		if c := b.LastMessageAt.Compare(a.LastMessageAt); c != 0 {
			return c
		}
		return strings.Compare(a.InvestorID, b.InvestorID)
	})
	return res
}

// Conversation returns the digest of the conversation with an investor.
func (s *Service) Conversation(investorID string) tracker.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tracker.NewConversation(investorID, s.messages[investorID])
}

// Messages returns the messages exchanged with an investor, oldest first.
func (s *Service) Messages(investorID string) []tracker.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.messages[investorID])
}

// SendMessage appends a message to the conversation with an investor and
// notifies the subscribers.
func (s *Service) SendMessage(ctx context.Context, investorID string, sender tracker.Role, body string) (tracker.Message, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	msg, err := tracker.NewMessage(investorID, sender, body, s.now())
	if err != nil {
		return tracker.Message{}, err
	}

	s.mu.Lock()
	if _, ok := s.investors[investorID]; !ok {
		s.mu.Unlock()
		return tracker.Message{}, fmt.Errorf("%w: %q", tracker.ErrInvestorNotFound, investorID)
	}
	s.messages[investorID] = append(s.messages[investorID], msg)
	conv := tracker.NewConversation(investorID, s.messages[investorID])
	s.mu.Unlock()

	s.persist(ctx, store.Messages(investorID), msg.ID, msg)
	s.persist(ctx, store.Conversations, investorID, conv)
	s.metrics.MessageSent(string(sender))
	s.notify(msg)
	if s.bus != nil {
		if err := s.bus.Publish(ctx, msg); err != nil {
			log.Printf("chat-publish-failed message=%s err=%v", msg.ID, err)
		}
	}
	return msg, nil
}

// MarkRead marks the messages of a conversation as read by reader. It returns
// the number of messages marked.
func (s *Service) MarkRead(ctx context.Context, investorID string, reader tracker.Role) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := tracker.ParseRole(string(reader)); err != nil {
		return 0, err
	}
	now := s.now().UTC()

	s.mu.Lock()
	if _, ok := s.investors[investorID]; !ok {
		s.mu.Unlock()
		return 0, fmt.Errorf("%w: %q", tracker.ErrInvestorNotFound, investorID)
	}
	msgs := s.messages[investorID]
	var changed []tracker.Message
	for i, m := range msgs {
		if m.UnreadBy(reader) {
			msgs[i].ReadAt = &now
			changed = append(changed, msgs[i])
		}
	}
	conv := tracker.NewConversation(investorID, msgs)
	s.mu.Unlock()

	if len(changed) == 0 {
		return 0, nil
	}
	for _, m := range changed {
		s.persist(ctx, store.Messages(investorID), m.ID, m)
	}
	s.persist(ctx, store.Conversations, investorID, conv)
	return len(changed), nil
}

// UnreadCount returns the number of messages reader has not read, across all
// conversations.
func (s *Service) UnreadCount(reader tracker.Role) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, msgs := range s.messages {
		for _, m := range msgs {
			if m.UnreadBy(reader) {
				n++
			}
		}
	}
	return n
}

// Subscribe calls fn for every new message of the conversation with
// investorID, or of every conversation when investorID is empty. fn must not
// block. The returned function cancels the subscription.
func (s *Service) Subscribe(investorID string, fn func(tracker.Message)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = subscription{investorID: investorID, fn: fn}
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Service) notify(msg tracker.Message) {
	s.subMu.RLock()
	var fns []func(tracker.Message)
	for _, sub := range s.subs {
		if sub.investorID == "" || sub.investorID == msg.InvestorID {
			fns = append(fns, sub.fn)
		}
	}
	s.subMu.RUnlock()
	for _, fn := range fns {
		fn(msg)
	}
}

// Listen delivers the messages sent by other processes on the bus until ctx
// is done. It is a no-op without a bus.
func (s *Service) Listen(ctx context.Context) error {
	if s.bus == nil {
		return nil
	}
	return s.bus.Subscribe(ctx, s.receive)
}

// receive merges a message published on the bus.
func (s *Service) receive(msg tracker.Message) {
	s.mu.Lock()
	msgs := s.messages[msg.InvestorID]
	if slices.ContainsFunc(msgs, func(m tracker.Message) bool { return m.ID == msg.ID }) {
		s.mu.Unlock()
		return
	}
	msgs = append(msgs, msg)
	tracker.SortMessages(msgs)
	s.messages[msg.InvestorID] = msgs
	s.mu.Unlock()
	s.notify(msg)
}
