package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/bz888/leanne/internal/chat"
	"github.com/bz888/leanne/internal/logger"
)

// Session is the conversation the relay exposes.
type Session interface {
	Send(ctx context.Context, text string, r chat.Renderer) (chat.Message, error)
	Stop()
	Messages() []chat.Message
	Streaming() bool
	LastReply() (chat.Message, bool)
}

type Handler struct {
	session    Session
	model      string
	configured bool
	log        *logger.Logger
}

// NewHandler serves session. model and configured are reported by /status.
func NewHandler(session Session, model string, configured bool) *Handler {
	return &Handler{
		session:    session,
		model:      model,
		configured: configured,
		log:        logger.NewLogger("relay handler"),
	}
}

func (h *Handler) StopHandler(w http.ResponseWriter, r *http.Request) {
	h.session.Stop()
	h.log.Info("Turn stopped by client")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) MessagesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Messages())
}

// SuggestionsHandler returns the starter prompts and the quick answers found
// in the last finished reply.
func (h *Handler) SuggestionsHandler(w http.ResponseWriter, r *http.Request) {
	resp := SuggestionsResponse{Suggestions: chat.Suggestions, Options: []string{}}
	if reply, ok := h.session.LastReply(); ok {
		if options := chat.ExtractOptions(reply.Content); options != nil {
			resp.Options = options
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Model:      h.model,
		Configured: h.configured,
		Streaming:  h.session.Streaming(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.NewLogger("relay handler").Error("Failed to encode response:", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ChatResponse{Error: message})
}
