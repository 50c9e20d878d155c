package chat

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kmarsh82/dental-ai-service/pkg/logging"
)

const maxMessageLength = 1000

// HealthInfo is the static identity reported by the health endpoint.
type HealthInfo struct {
	Service      string
	Version      string
	UseLLM       bool
	LLMAvailable bool
	Model        string
}

// Handler exposes the chat engine over HTTP.
type Handler struct {
	service Service
	logger  *logging.Logger
	health  HealthInfo
}

// NewHandler creates the chat HTTP handler.
func NewHandler(service Service, logger *logging.Logger, health HealthInfo) *Handler {
	return &Handler{service: service, logger: logger, health: health}
}

// Simulate handles POST /simulate: one chat turn in, one structured reply out.
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		h.writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if utf8.RuneCountInString(req.Message) > maxMessageLength {
		h.writeError(w, http.StatusBadRequest, "message exceeds maximum length")
		return
	}

	resp, err := h.service.Chat(r.Context(), req)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("chat turn failed", "error", err)
		}
		h.writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	active, err := h.service.ActiveSessions(r.Context())
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("failed to count sessions", "error", err)
		}
		active = 0
	}

	mode := "naive_parsing"
	if h.health.UseLLM && h.health.Model != "" {
		mode = h.health.Model
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"service":         h.health.Service,
		"version":         h.health.Version,
		"use_llm":         h.health.UseLLM,
		"llm_available":   h.health.LLMAvailable,
		"model":           mode,
		"active_sessions": active,
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && h.logger != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
