package model

import "time"

// ChatMessage is a direct message between two friends. Messages can only
// be created while a FriendEdge exists between the pair. ReadAt moves
// from unset to set exactly once and never reverts.
type ChatMessage struct {
	ID         string     `json:"id"`
	FromUserID string     `json:"fromUserId"`
	ToUserID   string     `json:"toUserId"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"createdAt"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
}
