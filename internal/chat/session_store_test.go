package chat

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T) (*RedisSessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSessionStore(client, time.Hour), mr
}

func TestRedisStoreHistoryRoundTrip(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	history, err := store.History(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %d messages", len(history))
	}

	err = store.AppendHistory(ctx, "s1",
		Message{Role: RoleUser, Content: "hi"},
		Message{Role: RoleAssistant, Content: "hello"},
	)
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := store.AppendHistory(ctx, "s1", Message{Role: RoleUser, Content: "book me in"}); err != nil {
		t.Fatalf("second append failed: %v", err)
	}

	history, err = store.History(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(history))
	}
	if history[0].Content != "hi" || history[2].Content != "book me in" {
		t.Fatalf("history out of order: %+v", history)
	}
}

func TestRedisStoreHistoryTTL(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	if err := store.AppendHistory(ctx, "s1", Message{Role: RoleUser, Content: "hi"}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	ttl := mr.TTL(historyKey("s1"))
	if ttl <= 0 || ttl > time.Hour {
		t.Fatalf("expected TTL within an hour, got %s", ttl)
	}

	mr.FastForward(2 * time.Hour)
	history, err := store.History(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 0 {
		t.Fatal("expected history to expire")
	}
}

func TestRedisStoreProposalLifecycle(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	if _, ok, err := store.Proposal(ctx, "s1"); err != nil || ok {
		t.Fatalf("expected no proposal, got ok=%v err=%v", ok, err)
	}

	if err := store.SaveProposal(ctx, "s1", "2026-08-31T14:00:00"); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	candidate, ok, err := store.Proposal(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("expected proposal, got ok=%v err=%v", ok, err)
	}
	if candidate != "2026-08-31T14:00:00" {
		t.Fatalf("unexpected candidate %q", candidate)
	}

	if err := store.ClearProposal(ctx, "s1"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, ok, _ := store.Proposal(ctx, "s1"); ok {
		t.Fatal("expected proposal to be cleared")
	}
}

func TestRedisStoreActiveSessions(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := store.AppendHistory(ctx, id, Message{Role: RoleUser, Content: "hi"}); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
	// Proposals alone should not count as active sessions.
	if err := store.SaveProposal(ctx, "d", "2026-08-31T14:00:00"); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	count, err := store.ActiveSessions(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 active sessions, got %d", count)
	}
}

func TestMemoryStoreLifecycle(t *testing.T) {
	store := NewMemorySessionStore(time.Hour)
	ctx := context.Background()

	if err := store.AppendHistory(ctx, "s1", Message{Role: RoleUser, Content: "hi"}); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	history, err := store.History(ctx, "s1")
	if err != nil || len(history) != 1 {
		t.Fatalf("expected 1 message, got %d err=%v", len(history), err)
	}

	if err := store.SaveProposal(ctx, "s1", "2026-08-31T14:00:00"); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, ok, _ := store.Proposal(ctx, "s1"); !ok {
		t.Fatal("expected pending proposal")
	}
	if err := store.ClearProposal(ctx, "s1"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, ok, _ := store.Proposal(ctx, "s1"); ok {
		t.Fatal("expected proposal cleared")
	}

	count, _ := store.ActiveSessions(ctx)
	if count != 1 {
		t.Fatalf("expected 1 active session, got %d", count)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemorySessionStore(time.Hour)
	current := time.Date(2026, time.August, 3, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	ctx := context.Background()
	if err := store.AppendHistory(ctx, "s1", Message{Role: RoleUser, Content: "hi"}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	current = current.Add(2 * time.Hour)
	history, err := store.History(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 0 {
		t.Fatal("expected session to expire")
	}
	if count, _ := store.ActiveSessions(ctx); count != 0 {
		t.Fatalf("expected 0 active sessions, got %d", count)
	}
}
