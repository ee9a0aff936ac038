package stream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/akuru-app/akuru/internal/middleware"
	"github.com/akuru-app/akuru/internal/model/chat"
	"github.com/akuru-app/akuru/internal/service/ai"
	chatservice "github.com/akuru-app/akuru/internal/service/chat"
	"github.com/akuru-app/akuru/pkg/utils"
)

// Handler streams assistant replies for authenticated conversations over
// Server-Sent Events. The client persists the finished reply with a
// separate POST, so nothing is written to the store here.
type Handler struct {
	chatSvc   *chatservice.Service
	responder ai.Responder
}

// New creates the stream handler.
func New(chatSvc *chatservice.Service, responder ai.Responder) *Handler {
	return &Handler{chatSvc: chatSvc, responder: responder}
}

// RegisterRoutes mounts the streaming endpoint; callers wrap it in the
// auth middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/stream", h.handleStream)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Token is missing")
		return
	}

	var payload struct {
		ConversationID int64 `json:"conversation_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.ConversationID == 0 {
		utils.RespondError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	messages, err := h.chatSvc.ListMessages(r.Context(), claims.UserID, payload.ConversationID)
	if err != nil {
		switch {
		case errors.Is(err, chatservice.ErrNotFound):
			utils.RespondError(w, http.StatusNotFound, "conversation not found")
		case errors.Is(err, chatservice.ErrForbidden):
			utils.RespondError(w, http.StatusForbidden, "conversation does not belong to user")
		default:
			log.Error().Err(err).Msg("load transcript failed")
			utils.RespondError(w, http.StatusInternalServerError, "could not load conversation")
		}
		return
	}

	if err := Run(r.Context(), w, h.responder, messages); err != nil {
		log.Error().Err(err).Int64("conversation", payload.ConversationID).Msg("stream failed")
	}
}

// Run replays the assistant's reply to the transcript's trailing user
// message as sectioned SSE chunks. Shared by the authenticated and guest
// streaming endpoints.
func Run(ctx context.Context, w http.ResponseWriter, responder ai.Responder, transcript []chat.Message) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return errors.New("streaming unsupported")
	}

	history, userMessage, ok := splitTranscript(transcript)
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "no user message to answer")
		return errors.New("transcript has no trailing user message")
	}

	utils.SetupSSEHeaders(w)

	stream, err := responder.Stream(ctx, history, userMessage)
	if err != nil {
		sendError(w, flusher, "the assistant is unavailable right now")
		return errors.Wrap(err, "open model stream")
	}
	defer stream.Close()

	splitter := &ai.SectionSplitter{}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			sendError(w, flusher, "the response was interrupted")
			return errors.Wrap(recvErr, "read model stream")
		}
		if msg == nil {
			continue
		}

		for _, chunk := range splitter.Split(msg.Content) {
			utils.SendSSEChunk(w, flusher, chunk)
		}
	}

	utils.SendSSEChunk(w, flusher, ai.Chunk{EndOfStream: true})
	return nil
}

// splitTranscript separates the trailing user message (the one being
// answered) from the history that precedes it.
func splitTranscript(transcript []chat.Message) (history []chat.Message, userMessage string, ok bool) {
	if len(transcript) == 0 {
		return nil, "", false
	}
	last := transcript[len(transcript)-1]
	if last.Role != chat.RoleUser {
		return nil, "", false
	}
	return transcript[:len(transcript)-1], last.Content, true
}

func sendError(w http.ResponseWriter, flusher http.Flusher, message string) {
	utils.SendSSEChunk(w, flusher, ai.Chunk{Text: message, Section: ai.SectionError, Error: true})
	utils.SendSSEChunk(w, flusher, ai.Chunk{EndOfStream: true})
}
