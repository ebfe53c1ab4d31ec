package server

import (
	"net/http"

	"github.com/bz888/leanne/internal/api/server/handlers"
)

func registerRoutes(mux *http.ServeMux, handler *handlers.Handler) {
	mux.HandleFunc("POST /chat", handler.ProcessTextHandler)
	mux.HandleFunc("POST /chat/stop", handler.StopHandler)
	mux.HandleFunc("GET /messages", handler.MessagesHandler)
	mux.HandleFunc("GET /suggestions", handler.SuggestionsHandler)
	mux.HandleFunc("GET /status", handler.StatusHandler)
}
