// Package router assembles the HTTP surface of the service.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kmarsh82/dental-ai-service/internal/chat"
	httpmiddleware "github.com/kmarsh82/dental-ai-service/internal/http/middleware"
	"github.com/kmarsh82/dental-ai-service/internal/webchat"
	"github.com/kmarsh82/dental-ai-service/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	ChatHandler        *chat.Handler
	WebchatHandler     *webchat.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", cfg.ChatHandler.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Post("/simulate", cfg.ChatHandler.Simulate)
	// Alias for clients that expect a conventional chat path.
	r.Post("/chat", cfg.ChatHandler.Simulate)

	if cfg.WebchatHandler != nil {
		r.Route("/webchat", func(wc chi.Router) {
			wc.Get("/ws", cfg.WebchatHandler.HandleWebSocket)
			wc.Get("/history", cfg.WebchatHandler.HandleHistory)
		})
	}

	return r
}
