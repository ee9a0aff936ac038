package chat

import "time"

// DefaultTitle is the placeholder assigned to conversations created without
// an explicit title. The server replaces it with a derived title after the
// first user message.
const DefaultTitle = "New Conversation"

// Conversation groups the messages of one authenticated chat thread.
type Conversation struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"-"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}
