package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Directory maintains the ordered conversation list and the current
// selection. The server orders by recent activity; the directory keeps
// that order verbatim.
type Directory struct {
	mu            sync.Mutex
	api           *api
	retry         RetryPolicy
	conversations []Conversation
	selectedID    int64
	nextLocalID   int64
	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

func newDirectory(a *api, retry RetryPolicy) *Directory {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return &Directory{
		api:         a,
		retry:       retry,
		nextLocalID: -1,
		sleep:       time.Sleep,
	}
}

// List fetches the conversation list from the server and replaces the
// cached copy. The selection survives if its conversation still exists.
func (d *Directory) List(ctx context.Context) ([]Conversation, error) {
	conversations, err := d.api.listConversations(ctx)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.conversations = conversations
	if d.selectedID != 0 && d.findLocked(d.selectedID) == nil {
		d.selectedID = 0
	}
	out := d.copyLocked()
	d.mu.Unlock()
	return out, nil
}

// Conversations returns the cached list without a network round trip.
func (d *Directory) Conversations() []Conversation {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.copyLocked()
}

// Create asks the server for a new conversation and selects it in the
// same step, so no observer can see the conversation exist unselected.
// A 5xx server error is retried per the policy; when every attempt fails
// and the dev fallback is on, a local placeholder is fabricated instead.
func (d *Directory) Create(ctx context.Context, title string) (Conversation, error) {
	var lastErr error
	for attempt := 0; attempt < d.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			d.sleep(d.retry.Delay)
		}
		conv, err := d.api.createConversation(ctx, title)
		if err == nil {
			d.adopt(conv)
			return conv, nil
		}
		lastErr = err

		// Only transient server failures are worth a retry. A 4xx means
		// the request itself is at fault and will not get better.
		var serverErr *ServerError
		if !errors.As(err, &serverErr) || serverErr.Status < 500 {
			break
		}
	}

	if d.retry.DevFallback {
		conv := d.fabricate(title)
		return conv, nil
	}
	return Conversation{}, &ConversationCreationError{Err: lastErr}
}

// adopt prepends the new conversation and selects it atomically.
func (d *Directory) adopt(conv Conversation) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.conversations = append([]Conversation{conv}, d.conversations...)
	d.selectedID = conv.ID
}

// fabricate produces a local stand-in with a negative ID so it can never
// collide with a server row.
func (d *Directory) fabricate(title string) Conversation {
	d.mu.Lock()
	defer d.mu.Unlock()
	if title == "" {
		title = DefaultTitle
	}
	now := time.Now()
	conv := Conversation{
		ID:        d.nextLocalID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	d.nextLocalID--
	d.conversations = append([]Conversation{conv}, d.conversations...)
	d.selectedID = conv.ID
	return conv
}

// Select marks a conversation current. Zero clears the selection.
func (d *Directory) Select(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selectedID = id
}

// Selected returns the current conversation ID, zero when none.
func (d *Directory) Selected() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selectedID
}

// ApplyTitle updates a cached entry after the server renames it.
func (d *Directory) ApplyTitle(id int64, title string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if c := d.findLocked(id); c != nil {
		c.Title = title
	}
}

func (d *Directory) findLocked(id int64) *Conversation {
	for i := range d.conversations {
		if d.conversations[i].ID == id {
			return &d.conversations[i]
		}
	}
	return nil
}

func (d *Directory) copyLocked() []Conversation {
	out := make([]Conversation, len(d.conversations))
	copy(out, d.conversations)
	return out
}

// FormatTitle renders a directory label. Untitled conversations show
// their message count instead of the placeholder title.
func FormatTitle(c Conversation) string {
	if c.Title != DefaultTitle {
		return c.Title
	}
	if c.MessageCount == 1 {
		return "New conversation (1 message)"
	}
	return fmt.Sprintf("New conversation (%d messages)", c.MessageCount)
}
