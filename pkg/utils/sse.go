package utils

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// SetupSSEHeaders prepares the response for a Server-Sent Events stream.
func SetupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// SendSSEChunk marshals payload and writes it as one `data:` event.
func SendSSEChunk(w http.ResponseWriter, flusher http.Flusher, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal sse payload")
		return
	}

	if _, err := w.Write([]byte("data: ")); err != nil {
		log.Error().Err(err).Msg("failed to write sse prefix")
		return
	}
	if _, err := w.Write(data); err != nil {
		log.Error().Err(err).Msg("failed to write sse payload")
		return
	}
	if _, err := w.Write([]byte("\n\n")); err != nil {
		log.Error().Err(err).Msg("failed to write sse terminator")
		return
	}
	flusher.Flush()
}
