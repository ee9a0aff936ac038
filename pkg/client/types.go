package client

import "time"

// Roles mirror the server's message model.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultTitle is the placeholder the server assigns to conversations
// created without one.
const DefaultTitle = "New Conversation"

// Conversation is a directory entry as returned by the conversations
// endpoint.
type Conversation struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// Message is a single transcript entry. Optimistic local messages carry
// negative IDs until the server echoes the persisted row.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id,omitempty"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// TokenPair is the credential set issued at signup, login and refresh.
type TokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// Profile is the authenticated user's public identity.
type Profile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SendResult is the server's reply to posting a message. Exactly one of
// AIResponse or UseStreaming carries the assistant's answer path.
type SendResult struct {
	Message      Message `json:"message"`
	AIResponse   string  `json:"ai_response,omitempty"`
	UpdatedTitle string  `json:"updated_title,omitempty"`
	UseStreaming bool    `json:"use_streaming"`
}

// StreamEvent is one decoded SSE data payload from a streaming reply.
// section_change marks the flip from the English section to the Dhivehi
// one; error events carry their message in chunk.
type StreamEvent struct {
	Chunk         string `json:"chunk"`
	Section       string `json:"section,omitempty"`
	SectionChange bool   `json:"section_change,omitempty"`
	Error         bool   `json:"error,omitempty"`
	EndOfStream   bool   `json:"end_of_stream,omitempty"`
}
