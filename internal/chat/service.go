package chat

import (
	"context"
	"time"
)

// Intent classifies what the user is doing on a given turn.
type Intent string

const (
	IntentChat    Intent = "chat"
	IntentPropose Intent = "propose"
	IntentConfirm Intent = "confirm"
	IntentDecline Intent = "decline"
)

// Role values for transcript messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single entry in a session transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one inbound chat turn.
type Request struct {
	Message   string `json:"message"`
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// Response is the outcome of a chat turn.
type Response struct {
	UserID               string  `json:"user_id"`
	SessionID            string  `json:"session_id"`
	Input                string  `json:"input"`
	Reply                string  `json:"reply"`
	AppointmentCandidate string  `json:"appointment_candidate,omitempty"`
	Intent               Intent  `json:"intent"`
	NeedsConfirmation    bool    `json:"needs_confirmation"`
	Confidence           float64 `json:"confidence"`
}

// Service describes how the chat engine should behave.
type Service interface {
	Chat(ctx context.Context, req Request) (*Response, error)
	History(ctx context.Context, sessionID string) ([]Message, error)
	ActiveSessions(ctx context.Context) (int, error)
}

// parseCandidate accepts the ISO8601 variants the LLM and the naive
// extractor produce: RFC3339 with offset, or a bare local timestamp.
func parseCandidate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", value, time.Local)
}

// formatCandidate renders an appointment time the way replies present it,
// e.g. "August 31 at 2:00 PM".
func formatCandidate(t time.Time) string {
	return t.Format("January 2 at 3:04 PM")
}
