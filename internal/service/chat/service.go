package chat

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/akuru-app/akuru/internal/model/chat"
	"github.com/akuru-app/akuru/internal/store"
)

var (
	// ErrForbidden marks access to a conversation owned by someone else.
	ErrForbidden = errors.New("conversation does not belong to user")
	// ErrNotFound mirrors the store sentinel for handler convenience.
	ErrNotFound = store.ErrNotFound
)

// maxTitleLen bounds titles derived from the first user message.
const maxTitleLen = 50

// Service owns conversation and message persistence for authenticated users.
type Service struct {
	repo store.Repository
}

// NewService wires the service to its repository.
func NewService(repo store.Repository) *Service {
	return &Service{repo: repo}
}

// CreateConversation provisions a conversation for the user. An empty title
// gets the placeholder that auto-titling later replaces.
func (s *Service) CreateConversation(ctx context.Context, userID int64, title string) (chat.Conversation, error) {
	return s.repo.CreateConversation(ctx, userID, strings.TrimSpace(title))
}

// ListConversations returns the user's conversations, newest-updated first.
func (s *Service) ListConversations(ctx context.Context, userID int64) ([]chat.Conversation, error) {
	return s.repo.ListConversations(ctx, userID)
}

// GetOwnedConversation fetches a conversation and verifies ownership.
func (s *Service) GetOwnedConversation(ctx context.Context, userID, conversationID int64) (chat.Conversation, error) {
	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return chat.Conversation{}, err
	}
	if conv.UserID != userID {
		return chat.Conversation{}, ErrForbidden
	}
	return conv, nil
}

// ListMessages returns the conversation transcript in creation order.
func (s *Service) ListMessages(ctx context.Context, userID, conversationID int64) ([]chat.Message, error) {
	if _, err := s.GetOwnedConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, conversationID)
}

// AddMessage appends one turn to an owned conversation.
func (s *Service) AddMessage(ctx context.Context, userID, conversationID int64, role, content string) (chat.Message, error) {
	if _, err := s.GetOwnedConversation(ctx, userID, conversationID); err != nil {
		return chat.Message{}, err
	}
	if role != chat.RoleUser && role != chat.RoleAssistant {
		return chat.Message{}, errors.Errorf("unsupported role %q", role)
	}
	return s.repo.AddMessage(ctx, conversationID, role, content)
}

// MaybeAutoTitle replaces the placeholder title with one derived from the
// first user message. Returns the new title and whether a rename happened.
func (s *Service) MaybeAutoTitle(ctx context.Context, conv chat.Conversation, content string) (string, bool, error) {
	if conv.Title != chat.DefaultTitle {
		return conv.Title, false, nil
	}
	if conv.MessageCount > 0 {
		return conv.Title, false, nil
	}

	title := DeriveTitle(content)
	if title == "" || title == conv.Title {
		return conv.Title, false, nil
	}

	if err := s.repo.UpdateConversationTitle(ctx, conv.ID, title); err != nil {
		return conv.Title, false, errors.Wrap(err, "auto-title conversation")
	}
	return title, true, nil
}

// DeriveTitle trims the first user message down to a readable title,
// breaking on a word boundary where possible.
func DeriveTitle(content string) string {
	title := strings.Join(strings.Fields(content), " ")
	if title == "" {
		return ""
	}
	if utf8.RuneCountInString(title) <= maxTitleLen {
		return title
	}

	runes := []rune(title)
	cut := string(runes[:maxTitleLen])
	if idx := strings.LastIndex(cut, " "); idx > maxTitleLen/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}
