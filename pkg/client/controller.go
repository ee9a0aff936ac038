package client

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// State is the controller's lifecycle position.
type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time view handed to the change callback. The
// message slice is a copy and safe to retain.
type Snapshot struct {
	State          State
	ConversationID int64
	Messages       []Message
	Partial        string
}

// Controller drives the message lifecycle for the active transcript:
// optimistic appends, the immediate/streaming reply split, sectioned
// chunk assembly, cancellation, and history loads. One stream is live at
// a time; starting a send cancels whatever preceded it.
type Controller struct {
	api       *api
	session   *SessionStore
	directory *Directory

	mu             sync.Mutex
	state          State
	messages       []Message
	assembler      *sectionAssembler
	conversationID int64
	generation     uint64
	cancelStream   context.CancelFunc
	nextLocalID    int64
	onChange       func(Snapshot)

	errs         chan error
	creationErrs chan error
}

func newController(a *api, session *SessionStore, directory *Directory) *Controller {
	return &Controller{
		api:          a,
		session:      session,
		directory:    directory,
		nextLocalID:  -1,
		errs:         make(chan error, 16),
		creationErrs: make(chan error, 16),
	}
}

// OnChange registers the render callback. It is invoked while the
// controller lock is held, so it must not call back into the controller.
func (c *Controller) OnChange(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// Errors delivers transient send and stream failures.
func (c *Controller) Errors() <-chan error { return c.errs }

// CreationErrors delivers conversation-creation failures separately,
// since a failed create means the message was never sent at all.
func (c *Controller) CreationErrors() <-chan error { return c.creationErrs }

// Snapshot returns the current view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Messages returns a copy of the transcript.
func (c *Controller) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// State returns the controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Send posts user text and drives the reply to completion. Blank or
// whitespace-only input is a no-op. Any in-flight stream is cancelled
// before the new message goes out.
func (c *Controller) Send(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	authed := c.session.Current().Authenticated

	c.mu.Lock()
	c.cancelLocked()
	c.generation++
	gen := c.generation
	c.state = StateSending
	c.assembler = nil
	c.messages = append(c.messages, Message{
		ID:        c.nextLocalID,
		Role:      RoleUser,
		Content:   content,
		CreatedAt: time.Now(),
	})
	c.nextLocalID--
	c.notifyLocked()
	c.mu.Unlock()

	if authed {
		return c.sendAuthenticated(ctx, gen, content)
	}
	return c.sendGuest(ctx, gen, content)
}

func (c *Controller) sendAuthenticated(ctx context.Context, gen uint64, content string) error {
	convID := c.directory.Selected()
	if convID == 0 {
		conv, err := c.directory.Create(ctx, "")
		if err != nil {
			c.fail(gen, err, c.creationErrs)
			return err
		}
		convID = conv.ID
	}

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return nil
	}
	c.conversationID = convID
	c.mu.Unlock()

	res, err := c.api.postMessage(ctx, convID, RoleUser, content)
	if err != nil {
		c.fail(gen, err, c.errs)
		return err
	}
	if res.UpdatedTitle != "" {
		c.directory.ApplyTitle(convID, res.UpdatedTitle)
	}
	c.reconcileUser(gen, res.Message)

	if res.UseStreaming {
		return c.stream(ctx, gen, convID, true)
	}
	if res.AIResponse != "" {
		c.appendAssistant(gen, Message{
			Role:      RoleAssistant,
			Content:   res.AIResponse,
			CreatedAt: time.Now(),
		})
	}
	c.finish(gen)
	// Ordering on the server may have changed; refresh is best effort.
	_, _ = c.directory.List(ctx)
	return nil
}

func (c *Controller) sendGuest(ctx context.Context, gen uint64, content string) error {
	res, err := c.api.guestPostMessage(ctx, content)
	if err != nil {
		c.fail(gen, err, c.errs)
		return err
	}
	c.reconcileUser(gen, res.Message)

	if res.UseStreaming {
		return c.stream(ctx, gen, 0, false)
	}
	if res.AIResponse != "" {
		c.appendAssistant(gen, Message{
			Role:      RoleAssistant,
			Content:   res.AIResponse,
			CreatedAt: time.Now(),
		})
	}
	c.finish(gen)
	return nil
}

// stream opens the SSE reply channel and folds chunks into the partial
// buffer. The final text is persisted through a separate call and then
// appended to the transcript.
func (c *Controller) stream(ctx context.Context, gen uint64, convID int64, authed bool) error {
	streamCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		cancel()
		return nil
	}
	c.cancelStream = cancel
	c.state = StateStreaming
	c.assembler = &sectionAssembler{}
	c.notifyLocked()
	c.mu.Unlock()

	var body io.ReadCloser
	var err error
	if authed {
		body, err = c.api.openChatStream(streamCtx, convID)
	} else {
		body, err = c.api.guestOpenStream(streamCtx)
	}
	if err != nil {
		cancel()
		serr := &StreamError{Err: err}
		c.fail(gen, serr, c.errs)
		return serr
	}
	defer body.Close()
	defer cancel()

	reader := newSSEReader(body)
	for {
		data, readErr := reader.ReadEvent()
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			if streamCtx.Err() != nil {
				// Cancelled locally; Cancel already reset the state.
				return nil
			}
			serr := &StreamError{Partial: c.partialText(gen), Err: readErr}
			c.fail(gen, serr, c.errs)
			return serr
		}

		var ev StreamEvent
		if json.Unmarshal(data, &ev) != nil {
			continue
		}
		if ev.Error {
			serr := &StreamError{Partial: c.partialText(gen), Err: errors.New(ev.Chunk)}
			c.fail(gen, serr, c.errs)
			return serr
		}
		if ev.EndOfStream {
			break
		}

		c.mu.Lock()
		if c.generation != gen {
			c.mu.Unlock()
			return nil
		}
		c.assembler.apply(ev)
		c.notifyLocked()
		c.mu.Unlock()
	}

	final := c.partialText(gen)
	if final == "" {
		c.finish(gen)
		return nil
	}

	reply := Message{Role: RoleAssistant, Content: final, CreatedAt: time.Now()}
	if authed {
		res, perr := c.api.postMessage(ctx, convID, RoleAssistant, final)
		if perr != nil {
			push(c.errs, errors.Wrap(perr, "persist streamed reply"))
		} else if res.Message.ID != 0 {
			reply = res.Message
		}
	} else {
		if perr := c.api.guestSaveResponse(ctx, final); perr != nil {
			push(c.errs, errors.Wrap(perr, "persist streamed reply"))
		}
	}

	c.appendAssistant(gen, reply)
	c.finish(gen)
	if authed {
		_, _ = c.directory.List(ctx)
	}
	return nil
}

// Cancel aborts any in-flight stream, discards the partial text and
// returns to Idle. Calling it with nothing in flight is safe.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	c.generation++
	c.assembler = nil
	c.state = StateIdle
	c.notifyLocked()
}

// LoadHistory replaces the transcript with the stored messages of an
// authenticated conversation. Zero clears the transcript.
func (c *Controller) LoadHistory(ctx context.Context, conversationID int64) error {
	c.mu.Lock()
	c.cancelLocked()
	c.generation++
	gen := c.generation
	c.conversationID = conversationID
	c.assembler = nil
	if conversationID == 0 {
		c.messages = nil
		c.state = StateIdle
		c.notifyLocked()
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	messages, err := c.api.listMessages(ctx, conversationID)
	if err != nil {
		push(c.errs, err)
		return err
	}

	c.mu.Lock()
	if c.generation == gen && c.conversationID == conversationID {
		c.messages = messages
		c.state = StateIdle
		c.notifyLocked()
	}
	c.mu.Unlock()
	return nil
}

// LoadGuestHistory replaces the transcript with the guest session's
// messages. A missing session yields an empty transcript, not an error.
func (c *Controller) LoadGuestHistory(ctx context.Context) error {
	c.mu.Lock()
	c.cancelLocked()
	c.generation++
	gen := c.generation
	c.conversationID = 0
	c.assembler = nil
	c.mu.Unlock()

	messages, err := c.api.guestMessages(ctx)
	if err != nil {
		push(c.errs, err)
		return err
	}

	c.mu.Lock()
	if c.generation == gen {
		c.messages = messages
		c.state = StateIdle
		c.notifyLocked()
	}
	c.mu.Unlock()
	return nil
}

// Clear empties the transcript. In guest mode it also resets the guest
// session on the server, even when the transcript was already empty.
func (c *Controller) Clear(ctx context.Context) error {
	authed := c.session.Current().Authenticated

	c.mu.Lock()
	c.cancelLocked()
	c.generation++
	c.messages = nil
	c.assembler = nil
	c.conversationID = 0
	c.state = StateIdle
	c.notifyLocked()
	c.mu.Unlock()

	if authed {
		c.directory.Select(0)
		return nil
	}
	if err := c.api.guestNewChat(ctx); err != nil {
		push(c.errs, err)
		return err
	}
	return nil
}

// --- internals ---

func (c *Controller) cancelLocked() {
	if c.cancelStream != nil {
		c.cancelStream()
		c.cancelStream = nil
	}
}

// reconcileUser swaps the optimistic user message for the persisted row.
func (c *Controller) reconcileUser(gen uint64, persisted Message) {
	if persisted.ID == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return
	}
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == RoleUser && c.messages[i].ID < 0 {
			c.messages[i] = persisted
			break
		}
	}
	c.notifyLocked()
}

func (c *Controller) appendAssistant(gen uint64, msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return
	}
	if msg.ID == 0 {
		msg.ID = c.nextLocalID
		c.nextLocalID--
	}
	c.messages = append(c.messages, msg)
	c.assembler = nil
	c.notifyLocked()
}

func (c *Controller) finish(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return
	}
	c.cancelStream = nil
	c.assembler = nil
	c.state = StateIdle
	c.notifyLocked()
}

func (c *Controller) fail(gen uint64, err error, ch chan error) {
	c.mu.Lock()
	if c.generation == gen {
		c.cancelStream = nil
		c.assembler = nil
		c.state = StateError
		c.notifyLocked()
	}
	c.mu.Unlock()
	push(ch, err)
}

func (c *Controller) partialText(gen uint64) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen || c.assembler == nil {
		return ""
	}
	return c.assembler.text()
}

func (c *Controller) snapshotLocked() Snapshot {
	msgs := make([]Message, len(c.messages))
	copy(msgs, c.messages)
	snap := Snapshot{
		State:          c.state,
		ConversationID: c.conversationID,
		Messages:       msgs,
	}
	if c.assembler != nil {
		snap.Partial = c.assembler.text()
	}
	return snap
}

func (c *Controller) notifyLocked() {
	if c.onChange != nil {
		c.onChange(c.snapshotLocked())
	}
}

func push(ch chan error, err error) {
	select {
	case ch <- err:
	default:
	}
}

// sectionAssembler folds sectioned chunks into display text. Sections
// are kept in arrival order and joined with a blank line, matching the
// English-then-Dhivehi layout the model is prompted to produce.
type sectionAssembler struct {
	sections []string
}

func (a *sectionAssembler) apply(ev StreamEvent) {
	if ev.SectionChange || len(a.sections) == 0 {
		a.sections = append(a.sections, "")
	}
	if ev.Chunk != "" {
		a.sections[len(a.sections)-1] += ev.Chunk
	}
}

func (a *sectionAssembler) text() string {
	parts := make([]string, 0, len(a.sections))
	for _, section := range a.sections {
		if s := strings.TrimSpace(section); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}
