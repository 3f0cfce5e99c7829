package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/arif/codepulse/internal/apperror"
	"github.com/arif/codepulse/internal/model"
)

// recordingCache captures cache interactions for assertions.
type recordingCache struct {
	page        []model.ChatMessage
	hit         bool
	pushed      []model.ChatMessage
	warmed      [][]model.ChatMessage
	invalidated int
}

func (c *recordingCache) Get(_ context.Context, _, _ string, _ int) ([]model.ChatMessage, bool) {
	return c.page, c.hit
}
func (c *recordingCache) Push(_ context.Context, msg model.ChatMessage) {
	c.pushed = append(c.pushed, msg)
}
func (c *recordingCache) Warm(_ context.Context, _, _ string, msgs []model.ChatMessage) {
	c.warmed = append(c.warmed, msgs)
}
func (c *recordingCache) Invalidate(_ context.Context, _, _ string) { c.invalidated++ }

// recordingNotifier captures realtime deliveries.
type recordingNotifier struct {
	delivered []model.ChatMessage
}

func (n *recordingNotifier) NotifyMessage(msg model.ChatMessage) {
	n.delivered = append(n.delivered, msg)
}

type chatFixture struct {
	svc      *ChatService
	chats    *mockChatRepo
	friends  *mockFriendRepo
	cache    *recordingCache
	notifier *recordingNotifier
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	f := &chatFixture{
		chats:    newMockChatRepo(),
		friends:  newMockFriendRepo(),
		cache:    &recordingCache{},
		notifier: &recordingNotifier{},
	}
	f.svc = NewChatService(f.chats, f.friends, f.cache, f.notifier, testLogger())
	f.svc.now = func() time.Time { return time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC) }
	f.friends.edges[edgeKey("alice", "bob")] = true
	f.friends.edges[edgeKey("bob", "alice")] = true
	return f
}

func TestChatSend(t *testing.T) {
	f := newChatFixture(t)

	msg, err := f.svc.Send(context.Background(), "alice", "bob", "  hello bob  ")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if msg.Content != "hello bob" {
		t.Errorf("content = %q, want trimmed %q", msg.Content, "hello bob")
	}
	if msg.ID == "" {
		t.Error("message has no ID")
	}
	if len(f.cache.pushed) != 1 {
		t.Errorf("cache received %d pushes, want 1", len(f.cache.pushed))
	}
	if len(f.notifier.delivered) != 1 || f.notifier.delivered[0].ToUserID != "bob" {
		t.Errorf("notifier deliveries = %+v, want one to bob", f.notifier.delivered)
	}
}

func TestChatSendErrors(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		from, to string
		content  string
		want     error
	}{
		{"empty content", "alice", "bob", "   ", apperror.ErrValidation},
		{"too long", "alice", "bob", strings.Repeat("a", MaxMessageLength+1), apperror.ErrValidation},
		{"self message", "alice", "alice", "hi", apperror.ErrInvalidOperation},
		{"not friends", "alice", "carol", "hi", apperror.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Send(ctx, tt.from, tt.to, tt.content)
			if !errors.Is(err, tt.want) {
				t.Errorf("Send() error = %v, want %v", err, tt.want)
			}
		})
	}

	if len(f.chats.messages) != 0 {
		t.Errorf("%d messages stored despite failures", len(f.chats.messages))
	}
}

func TestChatConversation(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := f.svc.Send(ctx, "alice", "bob", "msg"); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	msgs, err := f.svc.Conversation(ctx, "bob", "alice", 10, nil)
	if err != nil {
		t.Fatalf("Conversation: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].CreatedAt.After(msgs[i-1].CreatedAt) {
			t.Error("conversation not ordered newest first")
		}
	}
	// The store read warms the cache for the next initial-page request.
	if len(f.cache.warmed) != 1 {
		t.Errorf("cache warmed %d times, want 1", len(f.cache.warmed))
	}
}

func TestChatConversationServedFromCache(t *testing.T) {
	f := newChatFixture(t)
	cached := []model.ChatMessage{{ID: "cached", FromUserID: "alice", ToUserID: "bob", Content: "hi"}}
	f.cache.page = cached
	f.cache.hit = true

	msgs, err := f.svc.Conversation(context.Background(), "bob", "alice", 10, nil)
	if err != nil {
		t.Fatalf("Conversation: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != "cached" {
		t.Errorf("got %+v, want the cached page", msgs)
	}
}

func TestChatConversationBypassesCacheForOlderPages(t *testing.T) {
	f := newChatFixture(t)
	f.cache.hit = true // would satisfy an initial page
	before := time.Date(2025, 6, 15, 13, 0, 0, 0, time.UTC)

	msgs, err := f.svc.Conversation(context.Background(), "bob", "alice", 10, &before)
	if err != nil {
		t.Fatalf("Conversation: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("got %+v, want store result (empty), not the cached page", msgs)
	}
}

func TestChatConversationRequiresFriendship(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.svc.Conversation(context.Background(), "alice", "carol", 10, nil)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Conversation error = %v, want forbidden", err)
	}
}

func TestChatMarkRead(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.svc.Send(ctx, "alice", "bob", "msg"); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	unread, err := f.svc.UnreadCount(ctx, "bob")
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if unread != 2 {
		t.Errorf("unread = %d, want 2", unread)
	}

	n, err := f.svc.MarkRead(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if n != 2 {
		t.Errorf("MarkRead stamped %d, want 2", n)
	}
	if f.cache.invalidated != 1 {
		t.Errorf("cache invalidated %d times, want 1", f.cache.invalidated)
	}

	// Nothing left to stamp; the cache stays untouched.
	n, err = f.svc.MarkRead(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("second MarkRead: %v", err)
	}
	if n != 0 {
		t.Errorf("second MarkRead stamped %d, want 0", n)
	}
	if f.cache.invalidated != 1 {
		t.Errorf("cache invalidated %d times after no-op, want still 1", f.cache.invalidated)
	}
}

func TestChatNilCacheAndNotifier(t *testing.T) {
	f := newChatFixture(t)
	svc := NewChatService(f.chats, f.friends, nil, nil, testLogger())

	if _, err := svc.Send(context.Background(), "alice", "bob", "hi"); err != nil {
		t.Fatalf("Send without cache/notifier: %v", err)
	}
	if _, err := svc.Conversation(context.Background(), "alice", "bob", 10, nil); err != nil {
		t.Fatalf("Conversation without cache: %v", err)
	}
}
