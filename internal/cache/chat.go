// Package cache provides the Redis-backed conversation cache. The cache
// is strictly an accelerator: every operation is best-effort, failures
// are logged and reads fall through to the store.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arif/codepulse/internal/model"
)

const (
	conversationMaxLen = 50
	conversationTTL    = time.Hour
	opTimeout          = 2 * time.Second
)

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: connecting to redis at %s: %w", addr, err)
	}
	return client, nil
}

// ConversationCache keeps the most recent page of each conversation in a
// Redis list, newest message at the head. It implements
// service.ConversationCache.
type ConversationCache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewConversationCache creates a ConversationCache.
func NewConversationCache(client *redis.Client, logger *slog.Logger) *ConversationCache {
	return &ConversationCache{client: client, logger: logger}
}

// conversationKey is identical for both orderings of the pair.
func conversationKey(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return "chat:" + userA + ":" + userB + ":recent"
}

// Get returns the cached page, or ok=false on miss, on a Redis error, or
// when the caller wants more than the cache holds.
func (c *ConversationCache) Get(ctx context.Context, userA, userB string, limit int) ([]model.ChatMessage, bool) {
	if limit > conversationMaxLen {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	key := conversationKey(userA, userB)
	raw, err := c.client.LRange(ctx, key, 0, int64(limit)-1).Result()
	if err != nil || len(raw) == 0 {
		return nil, false
	}

	msgs := make([]model.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var m model.ChatMessage
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			// A corrupt entry poisons the whole page; drop it.
			c.Invalidate(ctx, userA, userB)
			return nil, false
		}
		msgs = append(msgs, m)
	}
	return msgs, true
}

// Push prepends a freshly stored message and re-trims the list.
func (c *ConversationCache) Push(ctx context.Context, msg model.ChatMessage) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	key := conversationKey(msg.FromUserID, msg.ToUserID)
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	pipe := c.client.Pipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, conversationMaxLen-1)
	pipe.Expire(ctx, key, conversationTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("conversation cache push failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// Warm replaces the cached page with a page read from the store. msgs
// arrive newest first, matching list order.
func (c *ConversationCache) Warm(ctx context.Context, userA, userB string, msgs []model.ChatMessage) {
	if len(msgs) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	key := conversationKey(userA, userB)
	pipe := c.client.Pipeline()
	pipe.Del(ctx, key)
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		pipe.RPush(ctx, key, data)
	}
	pipe.LTrim(ctx, key, 0, conversationMaxLen-1)
	pipe.Expire(ctx, key, conversationTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("conversation cache warm failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// Invalidate drops the cached page, e.g. after read receipts change.
func (c *ConversationCache) Invalidate(ctx context.Context, userA, userB string) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	key := conversationKey(userA, userB)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("conversation cache invalidate failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
