package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/akuru-app/akuru/internal/auth"
	"github.com/akuru-app/akuru/internal/middleware"
	"github.com/akuru-app/akuru/internal/model/chat"
	"github.com/akuru-app/akuru/internal/service/ai"
	chatservice "github.com/akuru-app/akuru/internal/service/chat"
	"github.com/akuru-app/akuru/internal/store"
)

type env struct {
	router *chi.Mux
	repo   *store.SQLiteStore
	userID int64
	token  string
}

func setup(t *testing.T) *env {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	user, err := repo.CreateUser(context.Background(), "Hassan", "hassan@example.mv", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	tokens := auth.NewTokenManager("test-secret", time.Hour, 24*time.Hour)
	pair, err := tokens.Issue(user.ID, user.Email)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	handler := New(chatservice.NewService(repo), &ai.EchoResponder{Streaming: true})
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireAuth(tokens))
		handler.RegisterRoutes(pr)
	})
	return &env{router: r, repo: repo, userID: user.ID, token: pair.Token}
}

func (e *env) stream(t *testing.T, conversationID int64) *httptest.ResponseRecorder {
	t.Helper()
	payload, _ := json.Marshal(map[string]int64{"conversation_id": conversationID})
	req := httptest.NewRequest(http.MethodPost, "/chat/stream", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func parseEvents(t *testing.T, body string) []ai.Chunk {
	t.Helper()
	var events []ai.Chunk
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var chunk ai.Chunk
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &chunk); err != nil {
			t.Fatalf("malformed event %q: %v", line, err)
		}
		events = append(events, chunk)
	}
	return events
}

func TestStreamEmitsSectionedChunks(t *testing.T) {
	e := setup(t)
	conv, err := e.repo.CreateConversation(context.Background(), e.userID, chat.DefaultTitle)
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	if _, err := e.repo.AddMessage(context.Background(), conv.ID, chat.RoleUser, "say something"); err != nil {
		t.Fatalf("add message: %v", err)
	}

	resp := e.stream(t, conv.ID)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if got := resp.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("expected text/event-stream, got %q", got)
	}

	events := parseEvents(t, resp.Body.String())
	if len(events) < 2 {
		t.Fatalf("expected chunks plus terminator, got %d events", len(events))
	}

	last := events[len(events)-1]
	if !last.EndOfStream {
		t.Fatal("stream must finish with end_of_stream")
	}

	var english, dhivehi strings.Builder
	for _, ev := range events[:len(events)-1] {
		switch ev.Section {
		case ai.SectionEnglish:
			english.WriteString(ev.Text)
		case ai.SectionDhivehi:
			dhivehi.WriteString(ev.Text)
		}
	}
	if !strings.Contains(english.String(), "say something") {
		t.Fatalf("expected the echo reply in the english section, got %q", english.String())
	}
	if dhivehi.Len() == 0 {
		t.Fatal("expected a dhivehi section")
	}

	sawChange := false
	for _, ev := range events {
		if ev.SectionChange && ev.Section == ai.SectionDhivehi {
			sawChange = true
		}
	}
	if !sawChange {
		t.Fatal("expected a section_change marker before the dhivehi text")
	}
}

func TestStreamRequiresConversationID(t *testing.T) {
	e := setup(t)
	resp := e.stream(t, 0)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestStreamUnknownConversation(t *testing.T) {
	e := setup(t)
	resp := e.stream(t, 9999)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestStreamForeignConversation(t *testing.T) {
	e := setup(t)
	other, err := e.repo.CreateUser(context.Background(), "Other", "other@example.mv", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	conv, err := e.repo.CreateConversation(context.Background(), other.ID, chat.DefaultTitle)
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}

	resp := e.stream(t, conv.ID)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestStreamNeedsTrailingUserMessage(t *testing.T) {
	e := setup(t)
	conv, err := e.repo.CreateConversation(context.Background(), e.userID, chat.DefaultTitle)
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}

	resp := e.stream(t, conv.ID)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestSplitTranscript(t *testing.T) {
	history, query, ok := splitTranscript([]chat.Message{
		{Role: chat.RoleUser, Content: "first"},
		{Role: chat.RoleAssistant, Content: "reply"},
		{Role: chat.RoleUser, Content: "second"},
	})
	if !ok {
		t.Fatal("expected a valid split")
	}
	if query != "second" {
		t.Fatalf("expected trailing user message, got %q", query)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history messages, got %d", len(history))
	}

	if _, _, ok := splitTranscript(nil); ok {
		t.Fatal("empty transcript must not split")
	}
	if _, _, ok := splitTranscript([]chat.Message{{Role: chat.RoleAssistant, Content: "reply"}}); ok {
		t.Fatal("assistant-terminated transcript must not split")
	}
}
