package guest

import (
	"time"

	"github.com/akuru-app/akuru/internal/model/chat"
)

// Session captures a transient try-first conversation scoped to a browser
// cookie. It never touches the relational store.
type Session struct {
	ID         string         `json:"id"`
	Messages   []chat.Message `json:"messages"`
	CreatedAt  time.Time      `json:"created_at"`
	LastActive time.Time      `json:"last_active"`
}
