package account

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/akuru-app/akuru/internal/auth"
	"github.com/akuru-app/akuru/internal/middleware"
	"github.com/akuru-app/akuru/internal/store"
)

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	tokens := auth.NewTokenManager("test-secret", time.Hour, 24*time.Hour)
	handler := New(repo, tokens)

	r := chi.NewRouter()
	handler.RegisterPublicRoutes(r)
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireAuth(tokens))
		handler.RegisterProtectedRoutes(pr)
	})
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func signup(t *testing.T, r http.Handler) map[string]string {
	t.Helper()
	resp := doJSON(t, r, http.MethodPost, "/signup", "", map[string]string{
		"name": "Aminath", "email": "aminath@example.mv", "password": "hunaru123",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var out map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode signup response: %v", err)
	}
	return out
}

func TestSignupIssuesTokenPair(t *testing.T) {
	r := setupRouter(t)
	out := signup(t, r)

	if out["token"] == "" || out["refresh_token"] == "" {
		t.Fatalf("expected token pair, got %v", out)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	r := setupRouter(t)
	signup(t, r)

	resp := doJSON(t, r, http.MethodPost, "/signup", "", map[string]string{
		"name": "Other", "email": "aminath@example.mv", "password": "different",
	})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}

func TestSignupMissingFields(t *testing.T) {
	r := setupRouter(t)
	resp := doJSON(t, r, http.MethodPost, "/signup", "", map[string]string{"email": "a@b.mv"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestLoginReturnsTokens(t *testing.T) {
	r := setupRouter(t)
	signup(t, r)

	resp := doJSON(t, r, http.MethodPost, "/login", "", map[string]string{
		"email": "aminath@example.mv", "password": "hunaru123",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var out map[string]string
	json.Unmarshal(resp.Body.Bytes(), &out)
	if out["token"] == "" {
		t.Fatal("expected a token")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	r := setupRouter(t)
	signup(t, r)

	resp := doJSON(t, r, http.MethodPost, "/login", "", map[string]string{
		"email": "aminath@example.mv", "password": "wrong",
	})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	r := setupRouter(t)
	resp := doJSON(t, r, http.MethodPost, "/login", "", map[string]string{
		"email": "nobody@example.mv", "password": "whatever",
	})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestRefreshRotatesPair(t *testing.T) {
	r := setupRouter(t)
	out := signup(t, r)

	resp := doJSON(t, r, http.MethodPost, "/refresh", "", map[string]string{
		"refresh_token": out["refresh_token"],
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var rotated map[string]string
	json.Unmarshal(resp.Body.Bytes(), &rotated)
	if rotated["token"] == "" || rotated["refresh_token"] == "" {
		t.Fatalf("expected rotated pair, got %v", rotated)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	r := setupRouter(t)
	out := signup(t, r)

	resp := doJSON(t, r, http.MethodPost, "/refresh", "", map[string]string{
		"refresh_token": out["token"],
	})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestProfileRequiresToken(t *testing.T) {
	r := setupRouter(t)
	resp := doJSON(t, r, http.MethodGet, "/profile", "", nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestProfileReturnsIdentity(t *testing.T) {
	r := setupRouter(t)
	out := signup(t, r)

	resp := doJSON(t, r, http.MethodGet, "/profile", out["token"], nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var profile map[string]string
	json.Unmarshal(resp.Body.Bytes(), &profile)
	if profile["name"] != "Aminath" || profile["email"] != "aminath@example.mv" {
		t.Fatalf("unexpected profile: %v", profile)
	}
}
