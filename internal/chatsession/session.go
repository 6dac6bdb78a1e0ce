// Package chatsession keeps the client-side state of one symptom conversation
// and the list of past conversations.
package chatsession

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/lifevault-relay/internal/completion"
	"github.com/wolfman30/lifevault-relay/internal/triage"
)

const (
	// WelcomeMessage opens every session. It is never sent upstream.
	WelcomeMessage = "Hello! I'm **MedAI**, your personal health assistant.\n\nDescribe your symptoms in detail and I'll help analyse what might be going on."

	// DefaultTitle names a session that has no user message yet.
	DefaultTitle = "New Chat"

	titleRunes = 40
)

// ErrEmptyMessage is returned by Send for blank input.
var ErrEmptyMessage = errors.New("chatsession: message is empty")

// Sender delivers a conversation to the relay and returns the reply text.
type Sender interface {
	Chat(ctx context.Context, uid string, turns []completion.Turn) (string, error)
}

// Message is one entry of the visible transcript. Triage is only populated
// on assistant messages.
type Message struct {
	ID        string
	Role      string
	Content   string
	Timestamp time.Time
	Triage    triage.Result
}

// Session is a single conversation owned by one registered caller.
type Session struct {
	ID        string
	UID       string
	CreatedAt time.Time

	mu       sync.Mutex
	sender   Sender
	now      func() time.Time
	messages []Message
}

// Option customizes a Session.
type Option func(*Session)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// New starts a session for uid that begins with the welcome message.
func New(uid string, sender Sender, opts ...Option) *Session {
	s := &Session{
		ID:     uuid.NewString(),
		UID:    uid,
		sender: sender,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.CreatedAt = s.now().UTC()
	s.messages = []Message{{
		ID:        uuid.NewString(),
		Role:      completion.RoleAssistant,
		Content:   WelcomeMessage,
		Timestamp: s.CreatedAt,
	}}
	return s
}

// Send appends text as a user message, forwards the conversation and records
// the assistant reply with its triage result. A failed call keeps the user
// message so the caller can retry.
func (s *Session) Send(ctx context.Context, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}
	if s.sender == nil {
		return Message{}, errors.New("chatsession: no sender configured")
	}

	s.mu.Lock()
	s.messages = append(s.messages, Message{
		ID:        uuid.NewString(),
		Role:      completion.RoleUser,
		Content:   text,
		Timestamp: s.now().UTC(),
	})
	turns := s.turnsLocked()
	s.mu.Unlock()

	reply, err := s.sender.Chat(ctx, s.UID, turns)
	if err != nil {
		return Message{}, fmt.Errorf("chatsession: send: %w", err)
	}

	msg := Message{
		ID:        uuid.NewString(),
		Role:      completion.RoleAssistant,
		Content:   reply,
		Timestamp: s.now().UTC(),
		Triage:    triage.Assess(reply),
	}
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	return msg, nil
}

// turnsLocked converts the transcript minus the welcome message into relay
// turns. Callers must hold s.mu.
func (s *Session) turnsLocked() []completion.Turn {
	turns := make([]completion.Turn, 0, len(s.messages)-1)
	for _, m := range s.messages[1:] {
		turns = append(turns, completion.Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}

// Messages returns a copy of the transcript, welcome message first.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Title is the first user message cut to 40 runes.
func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.Role != completion.RoleUser {
			continue
		}
		runes := []rune(m.Content)
		if len(runes) > titleRunes {
			runes = runes[:titleRunes]
		}
		return string(runes)
	}
	return DefaultTitle
}

// Urgent reports whether the latest assistant reply calls for urgent care.
func (s *Session) Urgent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.messages) - 1; i > 0; i-- {
		if s.messages[i].Role == completion.RoleAssistant {
			return s.messages[i].Triage.Urgent
		}
	}
	return false
}
