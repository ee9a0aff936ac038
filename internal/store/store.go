package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/akuru-app/akuru/internal/model/chat"
	"github.com/akuru-app/akuru/internal/model/dialect"
	"github.com/akuru-app/akuru/internal/model/dict"
)

var (
	// ErrDuplicateEmail is returned when signing up with an email that is
	// already registered.
	ErrDuplicateEmail = errors.New("user already exists")
	// ErrNotFound is returned on lookups for absent rows.
	ErrNotFound = errors.New("not found")
)

// Repository abstracts the relational store so services and tests can swap
// the sqlite implementation for an in-memory one.
type Repository interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (chat.User, error)
	GetUserByEmail(ctx context.Context, email string) (chat.User, error)
	GetUserByID(ctx context.Context, id int64) (chat.User, error)

	CreateConversation(ctx context.Context, userID int64, title string) (chat.Conversation, error)
	ListConversations(ctx context.Context, userID int64) ([]chat.Conversation, error)
	GetConversation(ctx context.Context, id int64) (chat.Conversation, error)
	UpdateConversationTitle(ctx context.Context, id int64, title string) error
	DeleteConversation(ctx context.Context, id int64) error

	AddMessage(ctx context.Context, conversationID int64, role, content string) (chat.Message, error)
	ListMessages(ctx context.Context, conversationID int64) ([]chat.Message, error)

	LookupDialect(ctx context.Context, english string) (dialect.Entry, error)
	UpsertDialect(ctx context.Context, entry dialect.Entry) error

	LookupDefinition(ctx context.Context, word string) (dict.Entry, error)
	SimilarWords(ctx context.Context, term string, limit int) ([]string, error)
	UpsertDefinition(ctx context.Context, entry dict.Entry) error

	Ping(ctx context.Context) error
	Close() error
}
