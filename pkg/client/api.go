package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// api is the low-level HTTP surface. It knows the endpoint shapes and the
// error taxonomy; everything above it works in domain terms.
type api struct {
	baseURL string
	http    *http.Client
	// bearer supplies the current access token, empty when unauthenticated.
	bearer func() string
}

func newAPI(baseURL string, timeout time.Duration) *api {
	jar, _ := cookiejar.New(nil)
	return &api{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		bearer: func() string { return "" },
	}
}

// do runs one JSON round trip. Transport failures become NetworkError,
// 401/403 become AuthError, other non-2xx become ServerError, and a bad
// body where out is expected becomes ParseError.
func (a *api) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := a.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		io.Copy(io.Discard, resp.Body)
		return &AuthError{Status: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &ServerError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ParseError{Err: err}
	}
	return nil
}

// openStream posts and hands back the raw SSE body. The caller owns the
// body and must close it.
func (a *api) openStream(ctx context.Context, path string, body any) (io.ReadCloser, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if token := a.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	// Streams outlive the regular request timeout; rely on ctx instead.
	streamClient := &http.Client{Jar: a.http.Jar}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		resp.Body.Close()
		return nil, &AuthError{Status: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		rawBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &ServerError{Status: resp.StatusCode, Body: strings.TrimSpace(string(rawBody))}
	}
	return resp.Body, nil
}

// --- account ---

func (a *api) signUp(ctx context.Context, name, email, password string) (TokenPair, error) {
	var pair TokenPair
	err := a.do(ctx, http.MethodPost, "/api/signup", map[string]string{
		"name": name, "email": email, "password": password,
	}, &pair)
	return pair, err
}

func (a *api) login(ctx context.Context, email, password string) (TokenPair, error) {
	var pair TokenPair
	err := a.do(ctx, http.MethodPost, "/api/login", map[string]string{
		"email": email, "password": password,
	}, &pair)
	return pair, err
}

func (a *api) refreshTokens(ctx context.Context, refreshToken string) (TokenPair, error) {
	var pair TokenPair
	err := a.do(ctx, http.MethodPost, "/api/refresh", map[string]string{
		"refresh_token": refreshToken,
	}, &pair)
	return pair, err
}

func (a *api) profile(ctx context.Context) (Profile, error) {
	var p Profile
	err := a.do(ctx, http.MethodGet, "/api/user", nil, &p)
	return p, err
}

// --- conversations ---

func (a *api) listConversations(ctx context.Context) ([]Conversation, error) {
	var out struct {
		Conversations []Conversation `json:"conversations"`
	}
	err := a.do(ctx, http.MethodGet, "/api/conversations", nil, &out)
	return out.Conversations, err
}

func (a *api) createConversation(ctx context.Context, title string) (Conversation, error) {
	body := map[string]string{}
	if title != "" {
		body["title"] = title
	}
	var c Conversation
	err := a.do(ctx, http.MethodPost, "/api/conversations", body, &c)
	return c, err
}

func (a *api) listMessages(ctx context.Context, conversationID int64) ([]Message, error) {
	var out struct {
		Messages []Message `json:"messages"`
	}
	path := fmt.Sprintf("/api/conversations/%d/messages", conversationID)
	err := a.do(ctx, http.MethodGet, path, nil, &out)
	return out.Messages, err
}

func (a *api) postMessage(ctx context.Context, conversationID int64, role, content string) (SendResult, error) {
	var res SendResult
	path := fmt.Sprintf("/api/conversations/%d/messages", conversationID)
	err := a.do(ctx, http.MethodPost, path, map[string]string{
		"role": role, "content": content,
	}, &res)
	return res, err
}

func (a *api) openChatStream(ctx context.Context, conversationID int64) (io.ReadCloser, error) {
	return a.openStream(ctx, "/api/chat/stream", map[string]int64{
		"conversation_id": conversationID,
	})
}

// --- guest ---

func (a *api) guestNewSession(ctx context.Context) error {
	return a.do(ctx, http.MethodPost, "/api/guest/new-session", nil, nil)
}

func (a *api) guestNewChat(ctx context.Context) error {
	return a.do(ctx, http.MethodPost, "/api/guest/new-chat", nil, nil)
}

func (a *api) guestMessages(ctx context.Context) ([]Message, error) {
	var out struct {
		Messages []Message `json:"messages"`
	}
	err := a.do(ctx, http.MethodGet, "/api/guest/messages", nil, &out)
	return out.Messages, err
}

func (a *api) guestPostMessage(ctx context.Context, content string) (SendResult, error) {
	var res SendResult
	err := a.do(ctx, http.MethodPost, "/api/guest/messages", map[string]string{
		"content": content,
	}, &res)
	return res, err
}

func (a *api) guestOpenStream(ctx context.Context) (io.ReadCloser, error) {
	return a.openStream(ctx, "/api/guest/stream", struct{}{})
}

func (a *api) guestSaveResponse(ctx context.Context, content string) error {
	return a.do(ctx, http.MethodPost, "/api/guest/save-response", map[string]string{
		"content": content,
	}, nil)
}
