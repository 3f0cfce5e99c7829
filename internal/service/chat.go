package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/arif/codepulse/internal/apperror"
	"github.com/arif/codepulse/internal/model"
	"github.com/arif/codepulse/internal/repository"
)

// Message length cap for direct messages.
const MaxMessageLength = 2000

// DefaultConversationLimit is the page size for conversation history.
const DefaultConversationLimit = 50

// MessageNotifier delivers new messages to connected recipients.
// Delivery is best-effort and must never block or fail the send path;
// the realtime hub implements this over WebSockets.
type MessageNotifier interface {
	NotifyMessage(msg model.ChatMessage)
}

// ConversationCache is an optional read-through cache for recent
// conversation pages. The Redis implementation lives in internal/cache;
// a nil cache disables caching entirely.
type ConversationCache interface {
	// Get returns a cached page for the pair, or ok=false on miss.
	Get(ctx context.Context, userA, userB string, limit int) ([]model.ChatMessage, bool)
	// Push prepends a freshly stored message to the pair's cached page.
	Push(ctx context.Context, msg model.ChatMessage)
	// Warm replaces the pair's cached page after a store read.
	Warm(ctx context.Context, userA, userB string, msgs []model.ChatMessage)
	// Invalidate drops the pair's cached page (e.g. after MarkRead).
	Invalidate(ctx context.Context, userA, userB string)
}

// ChatService handles direct messages. Messages only flow between users
// with an existing friendship edge.
type ChatService struct {
	chats    repository.ChatRepository
	friends  repository.FriendRepository
	cache    ConversationCache
	notifier MessageNotifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewChatService creates a ChatService. cache and notifier may be nil.
func NewChatService(
	chats repository.ChatRepository,
	friends repository.FriendRepository,
	cache ConversationCache,
	notifier MessageNotifier,
	logger *slog.Logger,
) *ChatService {
	return &ChatService{
		chats:    chats,
		friends:  friends,
		cache:    cache,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Send stores a message from fromUserID to toUserID. Fails with
// Forbidden when the pair are not friends. Cache update and realtime
// delivery happen after the write and never affect the result.
func (s *ChatService) Send(ctx context.Context, fromUserID, toUserID, content string) (*model.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.ValidationFailed("content", "message content is required")
	}
	if len(content) > MaxMessageLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("message must be %d characters or less", MaxMessageLength))
	}
	if toUserID == fromUserID {
		return nil, apperror.InvalidOperation("cannot message yourself")
	}

	friends, err := s.friends.EdgeExists(ctx, fromUserID, toUserID)
	if err != nil {
		return nil, fmt.Errorf("checking friendship: %w", err)
	}
	if !friends {
		return nil, apperror.Forbidden("you can only message friends")
	}

	msg := &model.ChatMessage{
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Content:    content,
	}
	if err := s.chats.CreateMessage(ctx, msg); err != nil {
		s.logger.Error("failed to store chat message",
			slog.String("from", fromUserID),
			slog.String("to", toUserID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("storing message: %w", err)
	}

	if s.cache != nil {
		s.cache.Push(ctx, *msg)
	}
	if s.notifier != nil {
		s.notifier.NotifyMessage(*msg)
	}

	return msg, nil
}

// Conversation returns the message history between userID and otherID,
// newest first. Initial pages (before == nil) are served from the cache
// when possible; store reads warm it.
func (s *ChatService) Conversation(ctx context.Context, userID, otherID string, limit int, before *time.Time) ([]model.ChatMessage, error) {
	if limit <= 0 || limit > DefaultConversationLimit {
		limit = DefaultConversationLimit
	}

	friends, err := s.friends.EdgeExists(ctx, userID, otherID)
	if err != nil {
		return nil, fmt.Errorf("checking friendship: %w", err)
	}
	if !friends {
		return nil, apperror.Forbidden("you can only view conversations with friends")
	}

	if before == nil && s.cache != nil {
		if msgs, ok := s.cache.Get(ctx, userID, otherID, limit); ok {
			return msgs, nil
		}
	}

	msgs, err := s.chats.ListConversation(ctx, userID, otherID, limit, before)
	if err != nil {
		return nil, fmt.Errorf("listing conversation: %w", err)
	}

	if before == nil && s.cache != nil && len(msgs) > 0 {
		s.cache.Warm(ctx, userID, otherID, msgs)
	}

	return msgs, nil
}

// MarkRead stamps every unread message from otherID to userID and
// returns how many were stamped.
func (s *ChatService) MarkRead(ctx context.Context, userID, otherID string) (int64, error) {
	n, err := s.chats.MarkRead(ctx, userID, otherID, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("marking messages read: %w", err)
	}
	if n > 0 && s.cache != nil {
		s.cache.Invalidate(ctx, userID, otherID)
	}
	return n, nil
}

// UnreadCount returns the number of unread messages addressed to userID.
func (s *ChatService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	count, err := s.chats.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("counting unread messages: %w", err)
	}
	return count, nil
}
