package guest

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/akuru-app/akuru/internal/handler/stream"
	"github.com/akuru-app/akuru/internal/model/chat"
	"github.com/akuru-app/akuru/internal/service/ai"
	guestservice "github.com/akuru-app/akuru/internal/service/guest"
	"github.com/akuru-app/akuru/pkg/utils"
)

// CookieName carries the guest session id across requests.
const CookieName = "akuru_guest"

// Handler serves the try-first endpoints. Guest conversations live in
// memory on the server, scoped to a session cookie, and disappear when the
// session is reset or expires.
type Handler struct {
	guestSvc  *guestservice.Service
	responder ai.Responder
}

// New creates the guest handler.
func New(guestSvc *guestservice.Service, responder ai.Responder) *Handler {
	return &Handler{guestSvc: guestSvc, responder: responder}
}

// RegisterRoutes mounts the guest routes. They rely on the cookie, not on
// bearer tokens.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/guest/new-session", h.handleNewSession)
	r.Post("/guest/new-chat", h.handleNewChat)
	r.Get("/guest/messages", h.handleListMessages)
	r.Post("/guest/messages", h.handlePostMessage)
	r.Post("/guest/stream", h.handleStream)
	r.Post("/guest/save-response", h.handleSaveResponse)
}

type sendResponse struct {
	Message      chat.Message `json:"message"`
	AIResponse   string       `json:"ai_response,omitempty"`
	UseStreaming bool         `json:"use_streaming"`
}

func (h *Handler) handleNewSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.guestSvc.CreateSession(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("guest session creation failed")
		utils.RespondError(w, http.StatusInternalServerError, "could not create session")
		return
	}

	setSessionCookie(w, session.ID)
	utils.RespondJSON(w, http.StatusCreated, map[string]string{"session_id": session.ID})
}

func (h *Handler) handleNewChat(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(r)
	if !ok {
		// No cookie yet: a fresh session is an empty chat already.
		session, err := h.guestSvc.CreateSession(r.Context())
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "could not create session")
			return
		}
		setSessionCookie(w, session.ID)
		utils.RespondJSON(w, http.StatusOK, map[string]string{"session_id": session.ID})
		return
	}

	if err := h.guestSvc.Reset(r.Context(), sessionID); err != nil {
		log.Error().Err(err).Msg("guest chat reset failed")
		utils.RespondError(w, http.StatusInternalServerError, "could not reset chat")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"session_id": sessionID})
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(r)
	if !ok {
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"messages": []chat.Message{}})
		return
	}

	messages, err := h.guestSvc.Messages(r.Context(), sessionID)
	if err != nil {
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"messages": []chat.Message{}})
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

func (h *Handler) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Content) == "" {
		utils.RespondError(w, http.StatusBadRequest, "content is required")
		return
	}

	sessionID := h.ensureSession(w, r)

	history, err := h.guestSvc.Messages(r.Context(), sessionID)
	if err != nil {
		log.Error().Err(err).Msg("guest history load failed")
		utils.RespondError(w, http.StatusInternalServerError, "could not load history")
		return
	}

	msg, err := h.guestSvc.AppendMessage(r.Context(), sessionID, chat.RoleUser, payload.Content)
	if err != nil {
		log.Error().Err(err).Msg("guest message append failed")
		utils.RespondError(w, http.StatusInternalServerError, "could not save message")
		return
	}

	resp := sendResponse{Message: msg}

	if h.responder.StreamingEnabled() {
		resp.UseStreaming = true
		utils.RespondJSON(w, http.StatusCreated, resp)
		return
	}

	answer, err := h.responder.Generate(r.Context(), history, payload.Content)
	if err != nil {
		log.Error().Err(err).Msg("guest assistant generation failed")
		utils.RespondError(w, http.StatusBadGateway, "assistant is unavailable")
		return
	}

	saved, err := h.guestSvc.AppendMessage(r.Context(), sessionID, chat.RoleAssistant, answer)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "could not save assistant message")
		return
	}
	resp.AIResponse = saved.Content

	utils.RespondJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(r)
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "no guest session")
		return
	}

	transcript, err := h.guestSvc.Messages(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, guestservice.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusBadRequest, "no guest session")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "could not load session")
		return
	}

	if err := stream.Run(r.Context(), w, h.responder, transcript); err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("guest stream failed")
	}
}

func (h *Handler) handleSaveResponse(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(r)
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "no guest session")
		return
	}

	var payload struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || strings.TrimSpace(payload.Content) == "" {
		utils.RespondError(w, http.StatusBadRequest, "content is required")
		return
	}

	msg, err := h.guestSvc.AppendMessage(r.Context(), sessionID, chat.RoleAssistant, payload.Content)
	if err != nil {
		if errors.Is(err, guestservice.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusBadRequest, "no guest session")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "could not save response")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{"message": msg})
}

// sessionID extracts a live session id from the cookie.
func (h *Handler) sessionID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	if !h.guestSvc.Exists(cookie.Value) {
		return "", false
	}
	return cookie.Value, true
}

// ensureSession returns the current session id, creating a session (and
// setting the cookie) when the request has none.
func (h *Handler) ensureSession(w http.ResponseWriter, r *http.Request) string {
	if id, ok := h.sessionID(r); ok {
		return id
	}
	session, err := h.guestSvc.CreateSession(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("guest session creation failed")
		return ""
	}
	setSessionCookie(w, session.ID)
	return session.ID
}

func setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
