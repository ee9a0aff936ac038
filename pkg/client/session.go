package client

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// Session is the externally visible authentication state. Authenticated
// and GuestMode are never both true.
type Session struct {
	Authenticated bool
	GuestMode     bool
	Token         string
}

// Credentials is what survives restarts: the token pair plus whether the
// user explicitly chose guest mode.
type Credentials struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	GuestMode    bool   `json:"guest_mode"`
}

// TokenStore persists credentials between runs.
type TokenStore interface {
	Load() (Credentials, error)
	Save(Credentials) error
	Clear() error
}

// FileTokenStore keeps credentials in a JSON file, created with 0600.
type FileTokenStore struct {
	path string
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

func (s *FileTokenStore) Load() (Credentials, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Credentials{}, nil
		}
		return Credentials{}, errors.Wrap(err, "read credentials")
	}
	var creds Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		// Corrupt file is indistinguishable from no file.
		return Credentials{}, nil
	}
	return creds, nil
}

func (s *FileTokenStore) Save(creds Credentials) error {
	raw, err := json.Marshal(creds)
	if err != nil {
		return errors.Wrap(err, "encode credentials")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrap(err, "create credentials dir")
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return errors.Wrap(err, "write credentials")
	}
	return nil
}

func (s *FileTokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove credentials")
	}
	return nil
}

// MemoryTokenStore holds credentials for the process lifetime only.
type MemoryTokenStore struct {
	mu    sync.Mutex
	creds Credentials
}

func NewMemoryTokenStore() *MemoryTokenStore { return &MemoryTokenStore{} }

func (s *MemoryTokenStore) Load() (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds, nil
}

func (s *MemoryTokenStore) Save(creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
	return nil
}

func (s *MemoryTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = Credentials{}
	return nil
}

// SessionStore owns the authentication lifecycle: restoring persisted
// credentials, login/signup, token refresh, guest mode, and the
// profile-check demotion rules.
type SessionStore struct {
	mu     sync.Mutex
	api    *api
	tokens TokenStore
	creds  Credentials
}

func newSessionStore(a *api, tokens TokenStore) *SessionStore {
	s := &SessionStore{api: a, tokens: tokens}
	creds, err := tokens.Load()
	if err == nil {
		s.creds = creds
	}
	return s
}

// Current reports the session as derived from stored credentials. A
// token wins over a stale guest flag.
func (s *SessionStore) Current() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionLocked()
}

func (s *SessionStore) sessionLocked() Session {
	if s.creds.Token != "" {
		return Session{Authenticated: true, Token: s.creds.Token}
	}
	return Session{GuestMode: s.creds.GuestMode}
}

// Token returns the current access token, empty when unauthenticated.
func (s *SessionStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds.Token
}

// TryFirst enters guest mode, discarding any stored tokens, and asks the
// server to provision a guest session so the cookie is in place before the
// first message. Provisioning is best effort: the server also creates a
// session lazily on the first message.
func (s *SessionStore) TryFirst(ctx context.Context) Session {
	s.mu.Lock()
	s.creds = Credentials{GuestMode: true}
	s.persistLocked()
	session := s.sessionLocked()
	s.mu.Unlock()

	_ = s.api.guestNewSession(ctx)
	return session
}

// Logout clears every credential, including the guest flag.
func (s *SessionStore) Logout() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = Credentials{}
	if err := s.tokens.Clear(); err != nil {
		s.persistLocked()
	}
	return s.sessionLocked()
}

// Login exchanges credentials for a token pair and leaves guest mode.
func (s *SessionStore) Login(ctx context.Context, email, password string) error {
	pair, err := s.api.login(ctx, email, password)
	if err != nil {
		return err
	}
	s.setPair(pair)
	return nil
}

// SignUp registers an account. The server issues tokens immediately, so a
// successful signup is also a login.
func (s *SessionStore) SignUp(ctx context.Context, name, email, password string) error {
	pair, err := s.api.signUp(ctx, name, email, password)
	if err != nil {
		return err
	}
	s.setPair(pair)
	return nil
}

func (s *SessionStore) setPair(pair TokenPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = Credentials{Token: pair.Token, RefreshToken: pair.RefreshToken}
	s.persistLocked()
}

// RefreshTokens rotates the token pair using the stored refresh token.
func (s *SessionStore) RefreshTokens(ctx context.Context) error {
	s.mu.Lock()
	refresh := s.creds.RefreshToken
	s.mu.Unlock()
	if refresh == "" {
		return &AuthError{Status: 401}
	}
	pair, err := s.api.refreshTokens(ctx, refresh)
	if err != nil {
		return err
	}
	s.setPair(pair)
	return nil
}

// Refresh validates the stored token against the profile endpoint. A
// definitive 401/403 demotes the session to guest mode and clears the
// token; any other failure keeps the session as-is, since a flaky
// network must not log the user out.
func (s *SessionStore) Refresh(ctx context.Context) (Session, error) {
	if s.Token() == "" {
		return s.Current(), nil
	}

	_, err := s.api.profile(ctx)
	if err == nil {
		return s.Current(), nil
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		s.mu.Lock()
		s.creds = Credentials{GuestMode: true}
		s.persistLocked()
		session := s.sessionLocked()
		s.mu.Unlock()
		return session, err
	}
	return s.Current(), err
}

func (s *SessionStore) persistLocked() {
	// Persistence is best effort; the in-memory state stays canonical.
	_ = s.tokens.Save(s.creds)
}
