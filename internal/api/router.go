// Package api carries the HTTP surface: the websocket entry point, a small
// read-only REST API, and the server wrapper.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/numduel/internal/api/handler"
	"github.com/mcoot/numduel/internal/middleware"
	"github.com/mcoot/numduel/internal/services/registry"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	Logger   *slog.Logger
	Registry *registry.Controller
	// WSHandler serves the websocket upgrade. It is mounted outside the
	// middleware chain: the logging wrapper would hide http.Hijacker from
	// the upgrader.
	WSHandler http.Handler
}

// NewRouter creates the router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	roomHandler := handler.NewRoomHandler(cfg.Registry)

	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger, middleware.DefaultPanicHandler)

	r.Handle("/ws", cfg.WSHandler)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	api.HandleFunc("/rooms/{room_id}", roomHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
