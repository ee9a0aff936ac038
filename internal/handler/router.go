package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/akuru-app/akuru/internal/auth"
	"github.com/akuru-app/akuru/internal/handler/account"
	"github.com/akuru-app/akuru/internal/handler/conversation"
	guesthandler "github.com/akuru-app/akuru/internal/handler/guest"
	"github.com/akuru-app/akuru/internal/handler/stream"
	"github.com/akuru-app/akuru/internal/middleware"
	"github.com/akuru-app/akuru/internal/service/ai"
	chatservice "github.com/akuru-app/akuru/internal/service/chat"
	dialectservice "github.com/akuru-app/akuru/internal/service/dialect"
	dictservice "github.com/akuru-app/akuru/internal/service/dict"
	guestservice "github.com/akuru-app/akuru/internal/service/guest"
	"github.com/akuru-app/akuru/internal/store"
	"github.com/akuru-app/akuru/pkg/utils"
)

// Deps collects everything the router needs.
type Deps struct {
	Repo           store.Repository
	Tokens         *auth.TokenManager
	ChatSvc        *chatservice.Service
	GuestSvc       *guestservice.Service
	DialectSvc     *dialectservice.Service
	DictSvc        *dictservice.Service
	Responder      ai.Responder
	AllowedOrigins []string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(deps.AllowedOrigins))

	accountHandler := account.New(deps.Repo, deps.Tokens)
	conversationHandler := conversation.New(deps.ChatSvc, deps.DialectSvc, deps.DictSvc, deps.Responder)
	streamHandler := stream.New(deps.ChatSvc, deps.Responder)
	guestHandler := guesthandler.New(deps.GuestSvc, deps.Responder)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := deps.Repo.Ping(req.Context()); err != nil {
			utils.RespondError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		api.Group(func(public chi.Router) {
			public.Use(middleware.RateLimit(rate.Limit(2), 10))
			accountHandler.RegisterPublicRoutes(public)
		})

		guestHandler.RegisterRoutes(api)

		api.Group(func(protected chi.Router) {
			protected.Use(middleware.RequireAuth(deps.Tokens))
			accountHandler.RegisterProtectedRoutes(protected)
			conversationHandler.RegisterRoutes(protected)
			streamHandler.RegisterRoutes(protected)
		})
	})

	return r
}
