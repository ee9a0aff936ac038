package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/akuru-app/akuru/internal/auth"
	"github.com/akuru-app/akuru/internal/config"
	"github.com/akuru-app/akuru/internal/handler"
	"github.com/akuru-app/akuru/internal/model/dialect"
	"github.com/akuru-app/akuru/internal/model/dict"
	"github.com/akuru-app/akuru/internal/service/ai"
	chatservice "github.com/akuru-app/akuru/internal/service/chat"
	dialectservice "github.com/akuru-app/akuru/internal/service/dialect"
	dictservice "github.com/akuru-app/akuru/internal/service/dict"
	guestservice "github.com/akuru-app/akuru/internal/service/guest"
	"github.com/akuru-app/akuru/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file, using system environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	repo, err := store.NewSQLite(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer repo.Close()

	for _, entry := range dialect.Seed() {
		if err := repo.UpsertDialect(ctx, entry); err != nil {
			log.Fatal().Err(err).Str("term", entry.English).Msg("failed to seed dialect words")
		}
	}
	for _, entry := range dict.Seed() {
		if err := repo.UpsertDefinition(ctx, entry); err != nil {
			log.Fatal().Err(err).Str("word", entry.Word).Msg("failed to seed dictionary words")
		}
	}

	tokens := auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	chatSvc := chatservice.NewService(repo)
	guestSvc := guestservice.NewService()
	dialectSvc := dialectservice.NewService(repo)
	dictSvc := dictservice.NewService(repo)

	var responder ai.Responder
	if cfg.AI.Enabled() {
		aiSvc, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize AI service")
		}
		responder = aiSvc
		log.Info().Str("model", cfg.AI.Model).Msg("AI service initialized")
	} else {
		responder = &ai.EchoResponder{Streaming: cfg.AI.StreamResponse}
		log.Warn().Msg("model credentials not configured, using echo responder")
	}

	router := handler.NewRouter(handler.Deps{
		Repo:           repo,
		Tokens:         tokens,
		ChatSvc:        chatSvc,
		GuestSvc:       guestSvc,
		DialectSvc:     dialectSvc,
		DictSvc:        dictSvc,
		Responder:      responder,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", serverCfg.Addr).Msg("akuru backend listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
