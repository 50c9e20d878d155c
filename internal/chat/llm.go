package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/kmarsh82/dental-ai-service/internal/clinic"
	"github.com/kmarsh82/dental-ai-service/pkg/logging"
)

// languageModel is the slice of the langchaingo model we actually call.
// Narrowing it keeps tests free of network concerns.
type languageModel interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// LLMResult is the structured decision the model is prompted to return.
type LLMResult struct {
	Reply                string  `json:"reply"`
	Intent               Intent  `json:"intent"`
	AppointmentCandidate string  `json:"appointment_candidate,omitempty"`
	NeedsConfirmation    bool    `json:"needs_confirmation"`
	Confidence           float64 `json:"confidence"`
}

// LLMOptions tunes a single generation call.
type LLMOptions struct {
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// LLMService wraps an OpenAI-compatible chat model and turns free text plus
// session history into a structured scheduling decision.
type LLMService struct {
	model   languageModel
	hours   *clinic.Hours
	opts    LLMOptions
	logger  *logging.Logger
	tracer  trace.Tracer
	nowFunc func() time.Time
}

// NewLLMService connects to the configured OpenAI-compatible endpoint.
func NewLLMService(apiKey string, opts LLMOptions, hours *clinic.Hours, logger *logging.Logger) (*LLMService, error) {
	clientOpts := []openai.Option{openai.WithToken(apiKey)}
	if opts.Model != "" {
		clientOpts = append(clientOpts, openai.WithModel(opts.Model))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(opts.BaseURL))
	}
	model, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("chat: failed to initialize llm: %w", err)
	}
	return newLLMService(model, opts, hours, logger), nil
}

func newLLMService(model languageModel, opts LLMOptions, hours *clinic.Hours, logger *logging.Logger) *LLMService {
	if hours == nil {
		hours = clinic.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 500
	}
	return &LLMService{
		model:   model,
		hours:   hours,
		opts:    opts,
		logger:  logger,
		tracer:  otel.Tracer("dental.internal.chat.llm"),
		nowFunc: time.Now,
	}
}

// systemPrompt frames the assistant as the clinic's scheduling bot and pins
// the JSON contract the engine parses.
func (s *LLMService) systemPrompt() string {
	now := s.nowFunc()
	return fmt.Sprintf(`You are DentBot, the friendly virtual assistant for a dental clinic.
You help patients schedule appointments, answer questions about the clinic, and keep a warm, professional tone.

Current date and time: %s (%s).
Clinic hours: %s. The clinic is closed on Sunday.

Respond ONLY with a JSON object in this exact format:
{
  "reply": "your conversational reply to the patient",
  "intent": "chat" | "propose" | "confirm" | "decline",
  "appointment_candidate": "ISO8601 datetime, only when intent is propose",
  "needs_confirmation": true | false,
  "confidence": 0.0 to 1.0
}

Rules:
- Use intent "propose" with an appointment_candidate when the patient asks for a specific day or time. Pick a slot inside clinic hours.
- Use intent "chat" for everything else, including questions about hours, services, or small talk.
- Never use "confirm" or "decline" yourself; those are decided from the patient's answer to a proposal.
- appointment_candidate must be in the future and formatted like 2026-09-01T14:00:00.`,
		now.Format("2006-01-02 15:04"), now.Weekday(), s.hours.Describe())
}

// Generate asks the model for a reply to the latest message given the
// session transcript so far.
func (s *LLMService) Generate(ctx context.Context, history []Message, userMessage string) (*LLMResult, error) {
	ctx, span := s.tracer.Start(ctx, "chat.llm_generate")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	content := make([]llms.MessageContent, 0, len(history)+2)
	content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, s.systemPrompt()))
	for _, msg := range history {
		switch msg.Role {
		case RoleAssistant:
			content = append(content, llms.TextParts(llms.ChatMessageTypeAI, msg.Content))
		case RoleUser:
			content = append(content, llms.TextParts(llms.ChatMessageTypeHuman, msg.Content))
		}
	}
	content = append(content, llms.TextParts(llms.ChatMessageTypeHuman, userMessage))

	start := time.Now()
	resp, err := s.model.GenerateContent(ctx, content,
		llms.WithTemperature(s.opts.Temperature),
		llms.WithMaxTokens(s.opts.MaxTokens),
		llms.WithJSONMode(),
	)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("chat: llm generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat: llm returned no choices")
	}

	result, err := parseLLMResult(resp.Choices[0].Content)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if s.logger != nil {
		s.logger.Debug("llm generation complete",
			"intent", result.Intent,
			"confidence", result.Confidence,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return result, nil
}

// parseLLMResult decodes the model output, tolerating markdown code fences
// some models wrap JSON in even when asked not to.
func parseLLMResult(raw string) (*LLMResult, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var result LLMResult
	aux := struct {
		*LLMResult
		Confidence *float64 `json:"confidence"`
	}{LLMResult: &result}
	if err := json.Unmarshal([]byte(cleaned), &aux); err != nil {
		return nil, fmt.Errorf("chat: failed to decode llm output: %w", err)
	}
	// Models sometimes leave confidence out entirely; treat that as a
	// reasonably confident answer rather than zero.
	if aux.Confidence == nil {
		result.Confidence = 0.8
	} else {
		result.Confidence = *aux.Confidence
	}

	if result.Reply == "" {
		return nil, fmt.Errorf("chat: llm output missing reply")
	}
	switch result.Intent {
	case IntentChat, IntentPropose, IntentConfirm, IntentDecline:
	default:
		result.Intent = IntentChat
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}
	if result.Intent == IntentPropose && result.AppointmentCandidate == "" {
		result.Intent = IntentChat
		result.NeedsConfirmation = false
	}
	return &result, nil
}
