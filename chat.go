package tracker

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxMessageLength is the maximum number of characters in a message body.
const MaxMessageLength = 4000

const previewLength = 80

// Role of a chat participant.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleInvestor Role = "investor"
)

// ParseRole parses "admin" or "investor".
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleInvestor:
		return r, nil
	default:
		return "", fmt.Errorf("%w role %q", ErrInvalid, s)
	}
}

// Message is an entry of the conversation with an investor.
type Message struct {
	ID         string     `json:"id"`
	InvestorID string     `json:"investorId"` // conversation key
	Sender     Role       `json:"sender"`
	Body       string     `json:"body"`
	CreatedAt  time.Time  `json:"createdAt"`
	ReadAt     *time.Time `json:"readAt,omitempty"` // set when the recipient read it
}

// NewMessage returns a validated message ready to persist.
func NewMessage(investorID string, sender Role, body string, now time.Time) (Message, error) {
	if investorID == "" {
		return Message{}, fmt.Errorf("%w message: investor is required", ErrInvalid)
	}
	if _, err := ParseRole(string(sender)); err != nil {
		return Message{}, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return Message{}, fmt.Errorf("%w message: empty body", ErrInvalid)
	}
	if n := utf8.RuneCountInString(body); n > MaxMessageLength {
		return Message{}, fmt.Errorf("%w message: body has %d characters, max is %d", ErrInvalid, n, MaxMessageLength)
	}
	if now.IsZero() {
		now = time.Now()
	}
	return Message{
		ID:         uuid.NewString(),
		InvestorID: investorID,
		Sender:     sender,
		Body:       body,
		CreatedAt:  now.UTC(),
	}, nil
}

// UnreadBy reports whether reader has not yet read m.
func (m Message) UnreadBy(reader Role) bool { return m.Sender != reader && m.ReadAt == nil }

// SortMessages sorts messages by creation time, then ID.
func SortMessages(msgs []Message) {
	slices.SortStableFunc(msgs, func(a, b Message) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

// Conversation is the digest of the messages exchanged with one investor.
type Conversation struct {
	InvestorID       string    `json:"investorId"`
	LastMessage      string    `json:"lastMessage"`
	LastSender       Role      `json:"lastSender,omitempty"`
	LastMessageAt    time.Time `json:"lastMessageAt"`
	UnreadByAdmin    int       `json:"unreadByAdmin"`
	UnreadByInvestor int       `json:"unreadByInvestor"`
}

// NewConversation derives the digest from msgs, which must be sorted.
func NewConversation(investorID string, msgs []Message) Conversation {
	c := Conversation{InvestorID: investorID}
	for _, m := range msgs {
		if m.UnreadBy(RoleAdmin) {
			c.UnreadByAdmin++
		}
		if m.UnreadBy(RoleInvestor) {
			c.UnreadByInvestor++
		}
	}
	if n := len(msgs); n > 0 {
		last := msgs[n-1]
		c.LastMessage = preview(last.Body)
		c.LastSender = last.Sender
		c.LastMessageAt = last.CreatedAt
	}
	return c
}

// Unread returns the number of messages reader has not read.
func (c Conversation) Unread(reader Role) int {
	if reader == RoleAdmin {
		return c.UnreadByAdmin
	}
	return c.UnreadByInvestor
}

func preview(body string) string {
	if utf8.RuneCountInString(body) <= previewLength {
		return body
	}
	r := []rune(body)
	return string(r[:previewLength-1]) + "…"
}
