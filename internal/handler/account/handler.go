package account

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/akuru-app/akuru/internal/auth"
	"github.com/akuru-app/akuru/internal/middleware"
	"github.com/akuru-app/akuru/internal/store"
	"github.com/akuru-app/akuru/pkg/utils"
)

// Handler serves account lifecycle endpoints: signup, login, token
// refresh, and the profile check clients use to validate stored tokens.
type Handler struct {
	repo   store.Repository
	tokens *auth.TokenManager
}

// New creates the account handler.
func New(repo store.Repository, tokens *auth.TokenManager) *Handler {
	return &Handler{repo: repo, tokens: tokens}
}

// RegisterPublicRoutes mounts the unauthenticated routes.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/signup", h.handleSignup)
	r.Post("/login", h.handleLogin)
	r.Post("/refresh", h.handleRefresh)
}

// RegisterProtectedRoutes mounts routes behind the auth middleware.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/user", h.handleProfile)
	r.Get("/profile", h.handleProfile)
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payload.Name = strings.TrimSpace(payload.Name)
	payload.Email = strings.TrimSpace(payload.Email)
	if payload.Name == "" || payload.Email == "" || payload.Password == "" {
		utils.RespondError(w, http.StatusBadRequest, "Name, email and password are required")
		return
	}

	hash, err := auth.HashPassword(payload.Password)
	if err != nil {
		log.Error().Err(err).Msg("password hashing failed")
		utils.RespondError(w, http.StatusInternalServerError, "could not create user")
		return
	}

	user, err := h.repo.CreateUser(r.Context(), payload.Name, payload.Email, hash)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			utils.RespondError(w, http.StatusConflict, "User already exists")
			return
		}
		log.Error().Err(err).Msg("user creation failed")
		utils.RespondError(w, http.StatusInternalServerError, "could not create user")
		return
	}

	pair, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		log.Error().Err(err).Msg("token issue failed")
		utils.RespondError(w, http.StatusInternalServerError, "could not create user")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]string{
		"message":       "User created successfully",
		"token":         pair.Token,
		"refresh_token": pair.RefreshToken,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Email == "" || payload.Password == "" {
		utils.RespondError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.repo.GetUserByEmail(r.Context(), payload.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.RespondError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		log.Error().Err(err).Msg("user lookup failed")
		utils.RespondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	if !auth.CheckPassword(user.PasswordHash, payload.Password) {
		utils.RespondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	pair, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		log.Error().Err(err).Msg("token issue failed")
		utils.RespondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"message":       "Login successful",
		"token":         pair.Token,
		"refresh_token": pair.RefreshToken,
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.RefreshToken == "" {
		utils.RespondError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	pair, err := h.tokens.Refresh(payload.RefreshToken)
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "Token is invalid")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"token":         pair.Token,
		"refresh_token": pair.RefreshToken,
	})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Token is missing")
		return
	}

	user, err := h.repo.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Error().Err(err).Msg("profile lookup failed")
		utils.RespondError(w, http.StatusInternalServerError, "profile lookup failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"name":  user.Name,
		"email": user.Email,
	})
}
