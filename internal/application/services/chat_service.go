package services

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/siterank/siterank-go/internal/domain/entities"
	apperrors "github.com/siterank/siterank-go/pkg/errors"
)

// ErrReplyPending is returned when a message is sent while a previous reply
// is still in flight
var ErrReplyPending = apperrors.NewValidationError("message", "wait for the current reply to finish")

const chatGreeting = "Hi! I'm your SiteRank AI assistant. Ask me anything about SEO, site speed, or how to get the most out of your analysis."

const chatFallback = "Sorry, I'm having trouble connecting right now. Please try again in a moment."

// ChatAPI is the slice of the backend client the chat service uses
type ChatAPI interface {
	Chat(ctx context.Context, messages []entities.ChatMessage) (*entities.ChatResponse, error)
}

// ChatService holds an append-only conversation with the support assistant.
// The full history travels with every request so the backend has context.
type ChatService struct {
	api ChatAPI

	mu       sync.Mutex
	messages []entities.ChatMessage
	pending  bool
}

// NewChatService creates a chat seeded with the assistant's greeting
func NewChatService(api ChatAPI) *ChatService {
	return &ChatService{
		api: api,
		messages: []entities.ChatMessage{
			{Role: entities.RoleAssistant, Content: chatGreeting},
		},
	}
}

// Messages returns a copy of the conversation so far
func (s *ChatService) Messages() []entities.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entities.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Pending reports whether a reply is in flight
func (s *ChatService) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Send appends the user's message and returns the assistant's reply. When
// the backend is unreachable a canned fallback is appended instead, so the
// conversation never dead-ends. Empty messages and sends while a reply is
// pending are rejected.
func (s *ChatService) Send(ctx context.Context, text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", apperrors.NewValidationError("message", "message is empty")
	}

	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return "", ErrReplyPending
	}
	s.pending = true
	s.messages = append(s.messages, entities.ChatMessage{Role: entities.RoleUser, Content: trimmed})
	history := make([]entities.ChatMessage, len(s.messages))
	copy(history, s.messages)
	s.mu.Unlock()

	resp, err := s.api.Chat(ctx, history)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = false

	reply := chatFallback
	if err != nil {
		log.Warn().Err(err).Msg("chat request failed, using fallback reply")
	} else {
		reply = resp.Response
	}
	s.messages = append(s.messages, entities.ChatMessage{Role: entities.RoleAssistant, Content: reply})
	return reply, nil
}

// QuickReplies lists the canned prompts offered alongside the input box
func (s *ChatService) QuickReplies() []string {
	return []string{
		"How do I improve my SEO score?",
		"Why is my site slow?",
		"How do competitor analyses work?",
		"What does my overall score mean?",
	}
}

// Reset discards the conversation and re-seeds the greeting
func (s *ChatService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = false
	s.messages = []entities.ChatMessage{
		{Role: entities.RoleAssistant, Content: chatGreeting},
	}
}
