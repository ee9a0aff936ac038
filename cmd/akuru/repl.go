package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/peterh/liner"
	"github.com/pkg/errors"

	"github.com/akuru-app/akuru/pkg/client"
)

// shell is the interactive loop. It owns the terminal; the client owns
// all conversational state.
type shell struct {
	client *client.Client
	line   *liner.State

	mu          sync.Mutex
	lastPartial string
	lastPrinted string
	streaming   bool
}

func runShell(ctx context.Context, c *client.Client) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	sh := &shell{client: c, line: line}
	c.Controller.OnChange(sh.render)
	go sh.drainNotices(ctx)

	sh.greet(ctx)

	for {
		input, err := line.Prompt("you> ")
		if err != nil {
			if err == liner.ErrPromptAborted {
				c.Controller.Cancel()
				fmt.Println("(cancelled)")
				continue
			}
			// io.EOF on Ctrl-D.
			fmt.Println()
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if quit := sh.command(ctx, input); quit {
				return nil
			}
			continue
		}

		sh.send(ctx, input)
	}
}

// greet restores the previous session and reports where we stand.
func (sh *shell) greet(ctx context.Context) {
	fmt.Println("Akuru chat. Type /help for commands.")

	session, err := sh.client.Session.Refresh(ctx)
	switch {
	case session.Authenticated:
		fmt.Println("Signed in with a saved session.")
		sh.refreshList(ctx)
	case session.GuestMode:
		fmt.Println("Guest mode. Conversations will not be saved.")
	case err != nil:
		fmt.Println("Could not verify the saved session; staying offline until you /login or /guest.")
	default:
		fmt.Println("Not signed in. Use /login, /signup or /guest.")
	}
}

func (sh *shell) command(ctx context.Context, input string) (quit bool) {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/help":
		sh.help()
	case "/login":
		sh.login(ctx)
	case "/signup":
		sh.signup(ctx)
	case "/logout":
		sh.client.Session.Logout()
		sh.client.Controller.Cancel()
		fmt.Println("Signed out.")
	case "/guest":
		sh.client.Session.TryFirst(ctx)
		if err := sh.client.Controller.LoadGuestHistory(ctx); err != nil {
			sh.notice(err)
		}
		fmt.Println("Guest mode. Conversations will not be saved.")
	case "/new":
		sh.newConversation(ctx)
	case "/list":
		sh.list(ctx)
	case "/select":
		if len(fields) < 2 {
			fmt.Println("usage: /select <number>")
			return false
		}
		sh.selectConversation(ctx, fields[1])
	case "/clear":
		if err := sh.client.Controller.Clear(ctx); err != nil {
			sh.notice(err)
			return false
		}
		fmt.Println("Transcript cleared.")
	default:
		fmt.Printf("unknown command %s (try /help)\n", fields[0])
	}
	return false
}

func (sh *shell) help() {
	fmt.Print(`commands:
  /login            sign in with email and password
  /signup           create an account
  /logout           sign out and forget the saved session
  /guest            continue without an account
  /new              start a new conversation
  /list             list conversations
  /select <number>  switch to a conversation from /list
  /clear            clear the current transcript
  /quit             leave
anything else is sent as a message
`)
}

func (sh *shell) login(ctx context.Context) {
	email, err := sh.line.Prompt("email> ")
	if err != nil {
		return
	}
	password, err := sh.line.PasswordPrompt("password> ")
	if err != nil {
		return
	}
	if err := sh.client.Session.Login(ctx, strings.TrimSpace(email), password); err != nil {
		var authErr *client.AuthError
		if errors.As(err, &authErr) {
			fmt.Println("Invalid credentials.")
			return
		}
		sh.notice(err)
		return
	}
	fmt.Println("Signed in.")
	sh.refreshList(ctx)
}

func (sh *shell) signup(ctx context.Context) {
	name, err := sh.line.Prompt("name> ")
	if err != nil {
		return
	}
	email, err := sh.line.Prompt("email> ")
	if err != nil {
		return
	}
	password, err := sh.line.PasswordPrompt("password> ")
	if err != nil {
		return
	}
	if err := sh.client.Session.SignUp(ctx, strings.TrimSpace(name), strings.TrimSpace(email), password); err != nil {
		sh.notice(err)
		return
	}
	fmt.Println("Account created and signed in.")
}

func (sh *shell) newConversation(ctx context.Context) {
	if !sh.client.Session.Current().Authenticated {
		if err := sh.client.Controller.Clear(ctx); err != nil {
			sh.notice(err)
			return
		}
		fmt.Println("Started a fresh guest chat.")
		return
	}
	sh.client.Directory.Select(0)
	if err := sh.client.Controller.LoadHistory(ctx, 0); err != nil {
		sh.notice(err)
		return
	}
	fmt.Println("New conversation. It will be created with your first message.")
}

func (sh *shell) list(ctx context.Context) {
	conversations, err := sh.client.Directory.List(ctx)
	if err != nil {
		sh.notice(err)
		return
	}
	if len(conversations) == 0 {
		fmt.Println("No conversations yet.")
		return
	}
	selected := sh.client.Directory.Selected()
	for i, conv := range conversations {
		marker := " "
		if conv.ID == selected {
			marker = "*"
		}
		fmt.Printf("%s %2d. %s\n", marker, i+1, client.FormatTitle(conv))
	}
}

func (sh *shell) selectConversation(ctx context.Context, arg string) {
	index, err := strconv.Atoi(arg)
	if err != nil {
		fmt.Println("usage: /select <number>")
		return
	}
	conversations := sh.client.Directory.Conversations()
	if index < 1 || index > len(conversations) {
		fmt.Println("no such conversation; run /list first")
		return
	}
	conv := conversations[index-1]
	sh.client.Directory.Select(conv.ID)
	if err := sh.client.Controller.LoadHistory(ctx, conv.ID); err != nil {
		sh.notice(err)
		return
	}
	fmt.Printf("Switched to %s.\n", client.FormatTitle(conv))
	for _, msg := range sh.client.Controller.Messages() {
		sh.printMessage(msg)
	}
}

func (sh *shell) send(ctx context.Context, text string) {
	sh.mu.Lock()
	sh.lastPartial = ""
	sh.mu.Unlock()

	if err := sh.client.Controller.Send(ctx, text); err != nil {
		var creationErr *client.ConversationCreationError
		if errors.As(err, &creationErr) {
			fmt.Println("Could not start a conversation; your message was not sent.")
		}
		return
	}
}

// render is the controller change callback. It prints streamed text as
// it grows and final replies once. It must not call back into the
// controller.
func (sh *shell) render(snap client.Snapshot) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	switch snap.State {
	case client.StateStreaming:
		if !sh.streaming {
			sh.streaming = true
			fmt.Print("akuru> ")
		}
		sh.printDeltaLocked(snap.Partial)
	case client.StateIdle:
		if sh.streaming {
			sh.streaming = false
			sh.lastPartial = ""
			fmt.Println()
			return
		}
		if n := len(snap.Messages); n > 0 && snap.Messages[n-1].Role == client.RoleAssistant {
			last := snap.Messages[n-1]
			if last.Content != sh.lastPrinted {
				sh.lastPrinted = last.Content
				fmt.Printf("akuru> %s\n", last.Content)
			}
		}
	case client.StateError:
		if sh.streaming {
			sh.streaming = false
			sh.lastPartial = ""
			fmt.Println(" [interrupted]")
		}
	}
}

func (sh *shell) printDeltaLocked(partial string) {
	if strings.HasPrefix(partial, sh.lastPartial) {
		fmt.Print(partial[len(sh.lastPartial):])
	} else {
		fmt.Print("\n" + partial)
	}
	sh.lastPartial = partial
}

func (sh *shell) printMessage(msg client.Message) {
	prefix := "you>  "
	if msg.Role == client.RoleAssistant {
		prefix = "akuru> "
	}
	fmt.Printf("%s%s\n", prefix, msg.Content)
}

func (sh *shell) refreshList(ctx context.Context) {
	if _, err := sh.client.Directory.List(ctx); err != nil {
		sh.notice(err)
	}
}

func (sh *shell) notice(err error) {
	fmt.Printf("[!] %v\n", err)
}

// drainNotices surfaces background errors from the controller.
func (sh *shell) drainNotices(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-sh.client.Controller.Errors():
			sh.notice(err)
		case err := <-sh.client.Controller.CreationErrors():
			sh.notice(errors.Wrap(err, "conversation"))
		}
	}
}
