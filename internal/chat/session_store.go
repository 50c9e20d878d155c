package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// SessionStore keeps per-session conversation state: the running transcript
// and the appointment proposal currently awaiting confirmation.
type SessionStore interface {
	History(ctx context.Context, sessionID string) ([]Message, error)
	AppendHistory(ctx context.Context, sessionID string, msgs ...Message) error
	Proposal(ctx context.Context, sessionID string) (string, bool, error)
	SaveProposal(ctx context.Context, sessionID, candidate string) error
	ClearProposal(ctx context.Context, sessionID string) error
	ActiveSessions(ctx context.Context) (int, error)
}

// RedisSessionStore persists session state in Redis with a TTL so stale
// sessions age out instead of accumulating forever.
type RedisSessionStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewRedisSessionStore creates a Redis-backed store. ttl <= 0 falls back to 24h.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if client == nil {
		panic("chat: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSessionStore{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("dental.internal.chat.sessions"),
	}
}

func historyKey(sessionID string) string {
	return fmt.Sprintf("session:%s:history", sessionID)
}

func proposalKey(sessionID string) string {
	return fmt.Sprintf("session:%s:proposal", sessionID)
}

// History returns the stored transcript, empty for unknown sessions.
func (s *RedisSessionStore) History(ctx context.Context, sessionID string) ([]Message, error) {
	ctx, span := s.tracer.Start(ctx, "chat.load_history")
	defer span.End()

	data, err := s.redis.Get(ctx, historyKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("chat: failed to load history: %w", err)
	}

	var history []Message
	if err := json.Unmarshal(data, &history); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("chat: failed to decode history: %w", err)
	}
	return history, nil
}

// AppendHistory adds messages to the transcript and refreshes the TTL.
func (s *RedisSessionStore) AppendHistory(ctx context.Context, sessionID string, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	ctx, span := s.tracer.Start(ctx, "chat.save_history")
	defer span.End()

	history, err := s.History(ctx, sessionID)
	if err != nil {
		return err
	}
	history = append(history, msgs...)

	data, err := json.Marshal(history)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: failed to marshal history: %w", err)
	}
	if err := s.redis.Set(ctx, historyKey(sessionID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: failed to persist history: %w", err)
	}
	return nil
}

// Proposal returns the pending appointment candidate for the session.
func (s *RedisSessionStore) Proposal(ctx context.Context, sessionID string) (string, bool, error) {
	ctx, span := s.tracer.Start(ctx, "chat.load_proposal")
	defer span.End()

	candidate, err := s.redis.Get(ctx, proposalKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		span.RecordError(err)
		return "", false, fmt.Errorf("chat: failed to load proposal: %w", err)
	}
	return candidate, true, nil
}

// SaveProposal records the candidate awaiting confirmation.
func (s *RedisSessionStore) SaveProposal(ctx context.Context, sessionID, candidate string) error {
	ctx, span := s.tracer.Start(ctx, "chat.save_proposal")
	defer span.End()

	if err := s.redis.Set(ctx, proposalKey(sessionID), candidate, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: failed to persist proposal: %w", err)
	}
	return nil
}

// ClearProposal removes the pending candidate once confirmed or declined.
func (s *RedisSessionStore) ClearProposal(ctx context.Context, sessionID string) error {
	ctx, span := s.tracer.Start(ctx, "chat.clear_proposal")
	defer span.End()

	if err := s.redis.Del(ctx, proposalKey(sessionID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: failed to clear proposal: %w", err)
	}
	return nil
}

// ActiveSessions counts sessions with stored history.
func (s *RedisSessionStore) ActiveSessions(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "chat.count_sessions")
	defer span.End()

	var (
		cursor uint64
		count  int
	)
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, "session:*:history", 100).Result()
		if err != nil {
			span.RecordError(err)
			return 0, fmt.Errorf("chat: failed to scan sessions: %w", err)
		}
		count += len(keys)
		cursor = next
		if cursor == 0 {
			return count, nil
		}
	}
}
