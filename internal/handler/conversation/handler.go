package conversation

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/akuru-app/akuru/internal/middleware"
	"github.com/akuru-app/akuru/internal/model/chat"
	"github.com/akuru-app/akuru/internal/service/ai"
	chatservice "github.com/akuru-app/akuru/internal/service/chat"
	dialectservice "github.com/akuru-app/akuru/internal/service/dialect"
	dictservice "github.com/akuru-app/akuru/internal/service/dict"
	"github.com/akuru-app/akuru/pkg/utils"
)

// Handler serves the authenticated conversation and message endpoints.
type Handler struct {
	chatSvc    *chatservice.Service
	dialectSvc *dialectservice.Service
	dictSvc    *dictservice.Service
	responder  ai.Responder
}

// New creates the conversation handler.
func New(chatSvc *chatservice.Service, dialectSvc *dialectservice.Service, dictSvc *dictservice.Service, responder ai.Responder) *Handler {
	return &Handler{chatSvc: chatSvc, dialectSvc: dialectSvc, dictSvc: dictSvc, responder: responder}
}

// RegisterRoutes mounts the conversation routes; callers wrap them in the
// auth middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/conversations", h.handleList)
	r.Post("/conversations", h.handleCreate)
	r.Get("/conversations/{conversationID}/messages", h.handleListMessages)
	r.Post("/conversations/{conversationID}/messages", h.handlePostMessage)
}

// sendResponse is the POST-message payload. use_streaming tells the client
// to open the SSE endpoint instead of expecting ai_response inline.
type sendResponse struct {
	Message      chat.Message `json:"message"`
	AIResponse   string       `json:"ai_response,omitempty"`
	UpdatedTitle string       `json:"updated_title,omitempty"`
	UseStreaming bool         `json:"use_streaming"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Token is missing")
		return
	}

	conversations, err := h.chatSvc.ListConversations(r.Context(), claims.UserID)
	if err != nil {
		log.Error().Err(err).Msg("list conversations failed")
		utils.RespondError(w, http.StatusInternalServerError, "could not list conversations")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"conversations": conversations})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Token is missing")
		return
	}

	var payload struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conv, err := h.chatSvc.CreateConversation(r.Context(), claims.UserID, payload.Title)
	if err != nil {
		log.Error().Err(err).Msg("create conversation failed")
		utils.RespondError(w, http.StatusInternalServerError, "could not create conversation")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, conv)
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Token is missing")
		return
	}

	conversationID, err := parseConversationID(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	messages, err := h.chatSvc.ListMessages(r.Context(), claims.UserID, conversationID)
	if err != nil {
		h.respondChatError(w, err, "could not list messages")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

func (h *Handler) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Token is missing")
		return
	}

	conversationID, err := parseConversationID(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	var payload struct {
		Content string `json:"content"`
		Role    string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Content) == "" {
		utils.RespondError(w, http.StatusBadRequest, "content is required")
		return
	}
	if payload.Role == "" {
		payload.Role = chat.RoleUser
	}

	conv, err := h.chatSvc.GetOwnedConversation(r.Context(), claims.UserID, conversationID)
	if err != nil {
		h.respondChatError(w, err, "could not load conversation")
		return
	}

	// The assistant role is how clients persist a completed streamed reply.
	if payload.Role == chat.RoleAssistant {
		msg, err := h.chatSvc.AddMessage(r.Context(), claims.UserID, conversationID, chat.RoleAssistant, payload.Content)
		if err != nil {
			h.respondChatError(w, err, "could not save message")
			return
		}
		utils.RespondJSON(w, http.StatusCreated, sendResponse{Message: msg})
		return
	}

	history, err := h.chatSvc.ListMessages(r.Context(), claims.UserID, conversationID)
	if err != nil {
		h.respondChatError(w, err, "could not load history")
		return
	}

	msg, err := h.chatSvc.AddMessage(r.Context(), claims.UserID, conversationID, chat.RoleUser, payload.Content)
	if err != nil {
		h.respondChatError(w, err, "could not save message")
		return
	}

	resp := sendResponse{Message: msg}

	title, renamed, err := h.chatSvc.MaybeAutoTitle(r.Context(), conv, payload.Content)
	if err != nil {
		log.Warn().Err(err).Int64("conversation", conversationID).Msg("auto-title failed")
	} else if renamed {
		resp.UpdatedTitle = title
	}

	// Dialect vocabulary and dictionary questions are answered from their
	// word tables and never reach the model.
	answer, handled := h.dialectSvc.TryAnswer(r.Context(), payload.Content)
	if !handled {
		answer, handled = h.dictSvc.TryAnswer(r.Context(), payload.Content)
	}
	if handled {
		saved, err := h.chatSvc.AddMessage(r.Context(), claims.UserID, conversationID, chat.RoleAssistant, answer)
		if err != nil {
			h.respondChatError(w, err, "could not save assistant message")
			return
		}
		resp.AIResponse = saved.Content
		utils.RespondJSON(w, http.StatusCreated, resp)
		return
	}

	if h.responder.StreamingEnabled() {
		resp.UseStreaming = true
		utils.RespondJSON(w, http.StatusCreated, resp)
		return
	}

	answer, err = h.responder.Generate(r.Context(), history, payload.Content)
	if err != nil {
		log.Error().Err(err).Msg("assistant generation failed")
		utils.RespondError(w, http.StatusBadGateway, "assistant is unavailable")
		return
	}

	saved, err := h.chatSvc.AddMessage(r.Context(), claims.UserID, conversationID, chat.RoleAssistant, answer)
	if err != nil {
		h.respondChatError(w, err, "could not save assistant message")
		return
	}
	resp.AIResponse = saved.Content

	utils.RespondJSON(w, http.StatusCreated, resp)
}

func (h *Handler) respondChatError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, chatservice.ErrNotFound):
		utils.RespondError(w, http.StatusNotFound, "conversation not found")
	case errors.Is(err, chatservice.ErrForbidden):
		utils.RespondError(w, http.StatusForbidden, "conversation does not belong to user")
	default:
		log.Error().Err(err).Msg(fallback)
		utils.RespondError(w, http.StatusInternalServerError, fallback)
	}
}

func parseConversationID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "conversationID"), 10, 64)
}
