package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler, opts Options) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	opts.BaseURL = ts.URL
	return New(opts)
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func authedTokens(t *testing.T) TokenStore {
	t.Helper()
	tokens := NewMemoryTokenStore()
	require.NoError(t, tokens.Save(Credentials{Token: "access-token", RefreshToken: "refresh-token"}))
	return tokens
}

func TestCurrentRestoresPersistedToken(t *testing.T) {
	c := newTestClient(t, http.NewServeMux(), Options{Tokens: authedTokens(t)})

	session := c.Session.Current()
	assert.True(t, session.Authenticated)
	assert.False(t, session.GuestMode)
	assert.Equal(t, "access-token", session.Token)
}

func TestTryFirstEntersGuestAndDropsTokens(t *testing.T) {
	tokens := authedTokens(t)
	c := newTestClient(t, http.NewServeMux(), Options{Tokens: tokens})

	session := c.Session.TryFirst(context.Background())
	assert.False(t, session.Authenticated)
	assert.True(t, session.GuestMode)
	assert.Empty(t, session.Token)

	creds, err := tokens.Load()
	require.NoError(t, err)
	assert.Empty(t, creds.Token)
	assert.True(t, creds.GuestMode)
}

func TestTryFirstProvisionsGuestSession(t *testing.T) {
	var provisioned int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/guest/new-session", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&provisioned, 1)
		writeJSON(t, w, http.StatusOK, map[string]string{"session_id": "s1"})
	})

	c := newTestClient(t, mux, Options{})
	session := c.Session.TryFirst(context.Background())

	assert.True(t, session.GuestMode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&provisioned), "guest session is provisioned up front")
}

func TestLoginStoresPairAndLeavesGuestMode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, TokenPair{Token: "fresh", RefreshToken: "fresh-refresh"})
	})

	tokens := NewMemoryTokenStore()
	c := newTestClient(t, mux, Options{Tokens: tokens})
	c.Session.TryFirst(context.Background())

	require.NoError(t, c.Session.Login(context.Background(), "a@b.mv", "secret"))

	session := c.Session.Current()
	assert.True(t, session.Authenticated)
	assert.False(t, session.GuestMode)

	creds, err := tokens.Load()
	require.NoError(t, err)
	assert.Equal(t, "fresh", creds.Token)
	assert.Equal(t, "fresh-refresh", creds.RefreshToken)
	assert.False(t, creds.GuestMode)
}

func TestLoginFailureLeavesSessionUntouched(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
	})

	c := newTestClient(t, mux, Options{})
	c.Session.TryFirst(context.Background())

	err := c.Session.Login(context.Background(), "a@b.mv", "wrong")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.True(t, c.Session.Current().GuestMode)
}

func TestRefreshDemotesOnUnauthorized(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/user", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]string{"error": "Token is invalid"})
	})

	tokens := authedTokens(t)
	c := newTestClient(t, mux, Options{Tokens: tokens})

	session, err := c.Session.Refresh(context.Background())
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.False(t, session.Authenticated)
	assert.True(t, session.GuestMode)

	creds, loadErr := tokens.Load()
	require.NoError(t, loadErr)
	assert.Empty(t, creds.Token)
}

func TestRefreshKeepsSessionOnServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/user", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusInternalServerError, map[string]string{"error": "boom"})
	})

	c := newTestClient(t, mux, Options{Tokens: authedTokens(t)})

	session, err := c.Session.Refresh(context.Background())
	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.True(t, session.Authenticated, "a flaky backend must not log the user out")
}

func TestRefreshKeepsSessionOnNetworkError(t *testing.T) {
	tokens := authedTokens(t)
	c := New(Options{BaseURL: "http://127.0.0.1:1", Tokens: tokens})

	session, err := c.Session.Refresh(context.Background())
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.True(t, session.Authenticated)
}

func TestRefreshTokensRotatesPair(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/refresh", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			RefreshToken string `json:"refresh_token"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "refresh-token", payload.RefreshToken)
		writeJSON(t, w, http.StatusOK, TokenPair{Token: "rotated", RefreshToken: "rotated-refresh"})
	})

	tokens := authedTokens(t)
	c := newTestClient(t, mux, Options{Tokens: tokens})

	require.NoError(t, c.Session.RefreshTokens(context.Background()))
	assert.Equal(t, "rotated", c.Session.Token())
}

func TestLogoutClearsCredentials(t *testing.T) {
	tokens := authedTokens(t)
	c := newTestClient(t, http.NewServeMux(), Options{Tokens: tokens})

	session := c.Session.Logout()
	assert.False(t, session.Authenticated)
	assert.False(t, session.GuestMode)

	creds, err := tokens.Load()
	require.NoError(t, err)
	assert.Equal(t, Credentials{}, creds)
}

func TestFileTokenStoreRoundTrip(t *testing.T) {
	path := t.TempDir() + "/creds.json"
	store := NewFileTokenStore(path)

	want := Credentials{Token: "t", RefreshToken: "r", GuestMode: false}
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, store.Clear())
	got, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, Credentials{}, got)
}

func TestErrorTaxonomyUnwrap(t *testing.T) {
	cause := errors.New("cause")
	assert.ErrorIs(t, &NetworkError{Err: cause}, cause)
	assert.ErrorIs(t, &StreamError{Err: cause}, cause)
	assert.ErrorIs(t, &ConversationCreationError{Err: cause}, cause)
}
