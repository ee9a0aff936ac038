package guest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/akuru-app/akuru/internal/model/chat"
	"github.com/akuru-app/akuru/internal/service/ai"
	guestservice "github.com/akuru-app/akuru/internal/service/guest"
)

func setupRouter(responder ai.Responder) *chi.Mux {
	handler := New(guestservice.NewService(), responder)
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func sessionCookie(resp *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range resp.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	return nil
}

func TestNewSessionSetsCookie(t *testing.T) {
	r := setupRouter(&ai.EchoResponder{})
	resp := do(t, r, http.MethodPost, "/guest/new-session", nil, nil)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	cookie := sessionCookie(resp)
	if cookie == nil || cookie.Value == "" {
		t.Fatal("expected a guest session cookie")
	}
}

func TestMessagesWithoutSessionIsEmptyList(t *testing.T) {
	r := setupRouter(&ai.EchoResponder{})
	resp := do(t, r, http.MethodGet, "/guest/messages", nil, nil)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var out struct {
		Messages []chat.Message `json:"messages"`
	}
	json.Unmarshal(resp.Body.Bytes(), &out)
	if len(out.Messages) != 0 {
		t.Fatalf("expected no messages, got %d", len(out.Messages))
	}
}

func TestPostMessageCreatesSessionAndReplies(t *testing.T) {
	r := setupRouter(&ai.EchoResponder{})
	resp := do(t, r, http.MethodPost, "/guest/messages", map[string]string{"content": "hello"}, nil)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if sessionCookie(resp) == nil {
		t.Fatal("expected the first message to establish a session")
	}

	var out sendResponse
	json.Unmarshal(resp.Body.Bytes(), &out)
	if out.AIResponse == "" {
		t.Fatal("expected an inline reply")
	}
	if out.UseStreaming {
		t.Fatal("non-streaming responder must not set use_streaming")
	}
}

func TestPostMessageStreamingFlag(t *testing.T) {
	r := setupRouter(&ai.EchoResponder{Streaming: true})
	resp := do(t, r, http.MethodPost, "/guest/messages", map[string]string{"content": "hello"}, nil)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	var out sendResponse
	json.Unmarshal(resp.Body.Bytes(), &out)
	if !out.UseStreaming {
		t.Fatal("expected use_streaming")
	}
}

func TestSaveResponseAppendsAssistantMessage(t *testing.T) {
	r := setupRouter(&ai.EchoResponder{Streaming: true})
	created := do(t, r, http.MethodPost, "/guest/new-session", nil, nil)
	cookie := sessionCookie(created)

	content := "Hello!\n\nއައްސަލާމް"
	resp := do(t, r, http.MethodPost, "/guest/save-response", map[string]string{"content": content}, cookie)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	list := do(t, r, http.MethodGet, "/guest/messages", nil, cookie)
	var out struct {
		Messages []chat.Message `json:"messages"`
	}
	json.Unmarshal(list.Body.Bytes(), &out)
	if len(out.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(out.Messages))
	}
	if out.Messages[0].Role != chat.RoleAssistant || out.Messages[0].Content != content {
		t.Fatalf("unexpected message: %+v", out.Messages[0])
	}
}

func TestSaveResponseWithoutSession(t *testing.T) {
	r := setupRouter(&ai.EchoResponder{})
	resp := do(t, r, http.MethodPost, "/guest/save-response", map[string]string{"content": "x"}, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestNewChatResetsTranscript(t *testing.T) {
	r := setupRouter(&ai.EchoResponder{})
	posted := do(t, r, http.MethodPost, "/guest/messages", map[string]string{"content": "hello"}, nil)
	cookie := sessionCookie(posted)

	reset := do(t, r, http.MethodPost, "/guest/new-chat", nil, cookie)
	if reset.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", reset.Code)
	}

	list := do(t, r, http.MethodGet, "/guest/messages", nil, cookie)
	var out struct {
		Messages []chat.Message `json:"messages"`
	}
	json.Unmarshal(list.Body.Bytes(), &out)
	if len(out.Messages) != 0 {
		t.Fatalf("expected an empty transcript after reset, got %d messages", len(out.Messages))
	}
}

func TestStreamWithoutSessionRejected(t *testing.T) {
	r := setupRouter(&ai.EchoResponder{Streaming: true})
	resp := do(t, r, http.MethodPost, "/guest/stream", map[string]string{}, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestStreamProducesEvents(t *testing.T) {
	r := setupRouter(&ai.EchoResponder{Streaming: true})
	posted := do(t, r, http.MethodPost, "/guest/messages", map[string]string{"content": "hello"}, nil)
	cookie := sessionCookie(posted)

	resp := do(t, r, http.MethodPost, "/guest/stream", map[string]string{}, cookie)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	body := resp.Body.String()
	if !strings.Contains(body, "data: ") {
		t.Fatal("expected SSE data events")
	}
	if !strings.Contains(body, `"end_of_stream":true`) {
		t.Fatal("expected an end_of_stream terminator")
	}
}
