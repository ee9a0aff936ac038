package handler

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/akuru-app/akuru/internal/auth"
	"github.com/akuru-app/akuru/internal/service/ai"
	chatservice "github.com/akuru-app/akuru/internal/service/chat"
	dialectservice "github.com/akuru-app/akuru/internal/service/dialect"
	dictservice "github.com/akuru-app/akuru/internal/service/dict"
	guestservice "github.com/akuru-app/akuru/internal/service/guest"
	"github.com/akuru-app/akuru/internal/store"
)

func newTestRouter(t *testing.T) (http.Handler, *store.SQLiteStore) {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	router := NewRouter(Deps{
		Repo:       repo,
		Tokens:     auth.NewTokenManager("test-secret", time.Hour, 24*time.Hour),
		ChatSvc:    chatservice.NewService(repo),
		GuestSvc:   guestservice.NewService(),
		DialectSvc: dialectservice.NewService(repo),
		DictSvc:    dictservice.NewService(repo),
		Responder:  &ai.EchoResponder{},
	})
	return router, repo
}

func TestHealthReportsOK(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHealthFailsWhenDatabaseIsGone(t *testing.T) {
	router, repo := newTestRouter(t)
	repo.Close()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
