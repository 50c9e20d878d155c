package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/kmarsh82/dental-ai-service/internal/clinic"
	"github.com/kmarsh82/dental-ai-service/internal/observability/metrics"
	"github.com/kmarsh82/dental-ai-service/pkg/logging"
)

// generator is the LLM surface the engine consumes.
type generator interface {
	Generate(ctx context.Context, history []Message, userMessage string) (*LLMResult, error)
}

// Resolution modes recorded on the turn metric.
const (
	modeWorkflow = "workflow"
	modeLLM      = "llm"
	modeNaive    = "naive"
	modeCanned   = "canned"
)

// Engine drives a chat turn through the proposal workflow, the LLM, and the
// regex fallback, in that order.
type Engine struct {
	store     SessionStore
	llm       generator
	extractor *Extractor
	hours     *clinic.Hours
	logger    *logging.Logger
	metrics   *metrics.ChatMetrics
	tracer    trace.Tracer
}

// NewEngine wires the chat pipeline. llm may be nil, in which case every turn
// uses naive parsing.
func NewEngine(store SessionStore, llm *LLMService, hours *clinic.Hours, logger *logging.Logger, m *metrics.ChatMetrics) *Engine {
	if store == nil {
		panic("chat: session store cannot be nil")
	}
	if hours == nil {
		hours = clinic.Default()
	}
	e := &Engine{
		store:     store,
		extractor: NewExtractor(hours),
		hours:     hours,
		logger:    logger,
		metrics:   m,
		tracer:    otel.Tracer("dental.internal.chat.engine"),
	}
	if llm != nil {
		e.llm = llm
	}
	return e
}

// Chat handles one turn: resolve a pending proposal if the user is answering
// one, otherwise produce a reply and possibly a new proposal.
func (e *Engine) Chat(ctx context.Context, req Request) (*Response, error) {
	ctx, span := e.tracer.Start(ctx, "chat.turn")
	defer span.End()

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = "anonymous"
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = "anonymous"
	}

	resp := &Response{
		UserID:    userID,
		SessionID: sessionID,
		Input:     req.Message,
		Intent:    IntentChat,
	}

	mode, err := e.resolve(ctx, sessionID, req.Message, resp)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := e.store.AppendHistory(ctx, sessionID,
		Message{Role: RoleUser, Content: req.Message},
		Message{Role: RoleAssistant, Content: resp.Reply},
	); err != nil {
		// A full reply already exists; losing one transcript entry is not
		// worth failing the turn over.
		if e.logger != nil {
			e.logger.Warn("failed to append history", "session_id", sessionID, "error", err)
		}
	}

	e.metrics.ObserveTurn(string(resp.Intent), mode)
	if e.logger != nil {
		e.logger.Info("chat turn",
			"session_id", sessionID,
			"intent", resp.Intent,
			"mode", mode,
			"needs_confirmation", resp.NeedsConfirmation,
		)
	}
	return resp, nil
}

// resolve fills in the reply fields and reports which path produced them.
func (e *Engine) resolve(ctx context.Context, sessionID, message string, resp *Response) (string, error) {
	if handled, err := e.resolveProposal(ctx, sessionID, message, resp); err != nil {
		return "", err
	} else if handled {
		return modeWorkflow, nil
	}

	if e.llm != nil {
		if handled := e.resolveLLM(ctx, sessionID, message, resp); handled {
			return modeLLM, nil
		}
	}

	if handled := e.resolveNaive(ctx, sessionID, message, resp); handled {
		return modeNaive, nil
	}

	e.resolveCanned(message, resp)
	return modeCanned, nil
}

// resolveProposal answers a pending appointment proposal. An ambiguous reply
// leaves the proposal standing so the user can still answer it next turn.
func (e *Engine) resolveProposal(ctx context.Context, sessionID, message string, resp *Response) (bool, error) {
	candidate, pending, err := e.store.Proposal(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("chat: failed to check pending proposal: %w", err)
	}
	if !pending {
		return false, nil
	}

	switch {
	case IsAffirmative(message):
		if err := e.store.ClearProposal(ctx, sessionID); err != nil {
			return false, err
		}
		resp.Intent = IntentConfirm
		resp.AppointmentCandidate = candidate
		resp.Confidence = 1.0
		resp.Reply = fmt.Sprintf(
			"Perfect! Your appointment is confirmed for %s. I look forward to seeing you then!",
			presentCandidate(candidate),
		)
		return true, nil
	case IsNegative(message):
		if err := e.store.ClearProposal(ctx, sessionID); err != nil {
			return false, err
		}
		resp.Intent = IntentDecline
		resp.Confidence = 1.0
		resp.Reply = "No problem at all! What day and time would work better for you? I have availability throughout the week."
		return true, nil
	}
	return false, nil
}

// resolveLLM asks the model and applies its decision. Returns false on any
// failure so the naive path can take over.
func (e *Engine) resolveLLM(ctx context.Context, sessionID, message string, resp *Response) bool {
	history, err := e.store.History(ctx, sessionID)
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("failed to load history for llm", "session_id", sessionID, "error", err)
		}
		history = nil
	}

	start := time.Now()
	result, err := e.llm.Generate(ctx, history, message)
	if err != nil {
		e.metrics.ObserveLLM("error", time.Since(start))
		e.metrics.ObserveFallback()
		if e.logger != nil {
			e.logger.Warn("llm failed, falling back to naive parsing", "session_id", sessionID, "error", err)
		}
		return false
	}
	e.metrics.ObserveLLM("ok", time.Since(start))

	// Write nothing into resp until the turn is known to succeed, so a
	// fallthrough leaves no half-applied proposal state behind.
	if result.Intent == IntentPropose && result.AppointmentCandidate != "" {
		if err := e.store.SaveProposal(ctx, sessionID, result.AppointmentCandidate); err != nil {
			if e.logger != nil {
				e.logger.Warn("failed to save proposal", "session_id", sessionID, "error", err)
			}
			return false
		}
		resp.Intent = result.Intent
		resp.Confidence = result.Confidence
		resp.AppointmentCandidate = result.AppointmentCandidate
		resp.NeedsConfirmation = true
		resp.Reply = fmt.Sprintf("%s Would you like me to confirm this appointment for %s?",
			strings.TrimSpace(result.Reply), presentCandidate(result.AppointmentCandidate))
		return true
	}

	resp.Reply = result.Reply
	resp.Intent = result.Intent
	resp.Confidence = result.Confidence
	resp.NeedsConfirmation = result.NeedsConfirmation
	resp.AppointmentCandidate = result.AppointmentCandidate
	return true
}

// resolveNaive runs the regex extractor and proposes the slot it finds.
func (e *Engine) resolveNaive(ctx context.Context, sessionID, message string, resp *Response) bool {
	slot, ok := e.extractor.Extract(message)
	if !ok {
		return false
	}

	candidate := slot.Format("2006-01-02T15:04:05")
	if err := e.store.SaveProposal(ctx, sessionID, candidate); err != nil {
		if e.logger != nil {
			e.logger.Warn("failed to save proposal", "session_id", sessionID, "error", err)
		}
		return false
	}

	resp.Intent = IntentPropose
	resp.AppointmentCandidate = candidate
	resp.NeedsConfirmation = true
	resp.Confidence = 0.6
	resp.Reply = fmt.Sprintf("Great! I can schedule you for %s. Would you like me to confirm this appointment?",
		formatCandidate(slot))
	return true
}

// resolveCanned answers common questions without a date mention.
func (e *Engine) resolveCanned(message string, resp *Response) {
	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, "appointment", "schedule", "book", "available", "availability"):
		resp.Reply = "I'd be happy to help you schedule an appointment! Please let me know what day and time works best for you. For example, you could say 'next Monday at 2pm' or 'Friday morning'."
	case containsAny(lower, "hours", "open", "close", "closed"):
		resp.Reply = fmt.Sprintf("Our office hours are %s. We're closed on Sundays. When would you like to schedule your appointment?", e.hours.Describe())
	default:
		resp.Reply = "Hello! I'm here to help you schedule dental appointments. What day and time would work best for you?"
	}
	resp.Confidence = 0.9
}

// History returns the stored transcript for a session.
func (e *Engine) History(ctx context.Context, sessionID string) ([]Message, error) {
	return e.store.History(ctx, sessionID)
}

// ActiveSessions reports how many sessions currently hold a transcript.
func (e *Engine) ActiveSessions(ctx context.Context) (int, error) {
	return e.store.ActiveSessions(ctx)
}

// presentCandidate renders a stored ISO8601 candidate for a reply, falling
// back to the raw value if it does not parse.
func presentCandidate(candidate string) string {
	t, err := parseCandidate(candidate)
	if err != nil {
		return candidate
	}
	return formatCandidate(t)
}

func containsAny(text string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
