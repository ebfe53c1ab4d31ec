package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bz888/leanne/internal/api/server/client"
	"github.com/bz888/leanne/internal/chat"
	"github.com/bz888/leanne/internal/logger"
)

// ndjsonRenderer relays the growth of the assistant message as NDJSON
// lines. Headers are written with the first line.
type ndjsonRenderer struct {
	w       http.ResponseWriter
	flusher http.Flusher
	encoder *json.Encoder
	sent    string
	started bool
	err     error
}

func (n *ndjsonRenderer) start() {
	if n.started {
		return
	}
	n.started = true
	n.w.Header().Set("Content-Type", "application/x-ndjson")
	n.w.Header().Set("Cache-Control", "no-cache")
	n.w.Header().Set("Connection", "keep-alive")
	n.w.WriteHeader(http.StatusOK)
}

func (n *ndjsonRenderer) write(resp ChatResponse) {
	if n.err != nil {
		return
	}
	n.start()
	if n.err = n.encoder.Encode(resp); n.err != nil {
		return
	}
	n.flusher.Flush()
}

func (n *ndjsonRenderer) Render(m chat.Message) {
	// Only a prefix-extending update is a delta. The fallback reply is
	// reported through the final error line instead.
	if m.Content == chat.FallbackReply || !strings.HasPrefix(m.Content, n.sent) || len(m.Content) == len(n.sent) {
		n.start()
		return
	}
	delta := m.Content[len(n.sent):]
	n.sent = m.Content
	n.write(ChatResponse{ID: m.ID.String(), ProcessedText: delta})
}

// ProcessTextHandler sends the text as a user message and streams the reply
// back as NDJSON.
func (h *Handler) ProcessTextHandler(w http.ResponseWriter, r *http.Request) {
	localLogger := logger.NewLogger("ProcessTextHandler")

	var clientReq ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&clientReq); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	defer r.Body.Close()

	if strings.TrimSpace(clientReq.Text) == "" {
		writeError(w, http.StatusBadRequest, chat.ErrEmptyMessage.Error())
		return
	}
	if h.session.Streaming() {
		writeError(w, http.StatusConflict, chat.ErrTurnInProgress.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	renderer := &ndjsonRenderer{w: w, flusher: flusher, encoder: json.NewEncoder(w)}
	reply, err := h.session.Send(r.Context(), clientReq.Text, renderer)

	switch {
	case errors.Is(err, chat.ErrTurnInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, chat.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	case err == nil, errors.Is(err, client.ErrCanceled):
		localLogger.Info("Completed response", reply.ID, "chars:", len(reply.Content))
		renderer.write(ChatResponse{ID: reply.ID.String(), Done: true})
	default:
		localLogger.Error("Turn failed:", err)
		renderer.write(ChatResponse{ID: reply.ID.String(), Error: client.Describe(err)})
	}
}
