package model

import "time"

// Friend request lifecycle. Pending is the only non-terminal state:
// accepted and rejected requests are immutable afterwards.
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestRejected = "rejected"
)

// FriendRequest is one directed invitation. At most one pending request
// may exist between any unordered pair of users at a time.
type FriendRequest struct {
	ID          string     `json:"id"`
	FromUserID  string     `json:"fromUserId"`
	ToUserID    string     `json:"toUserId"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
}

// FriendEdge is one direction of a symmetric friendship. The store always
// holds both (A,B) and (B,A), written in the same transaction.
type FriendEdge struct {
	UserID    string    `json:"userId"`
	FriendID  string    `json:"friendId"`
	CreatedAt time.Time `json:"createdAt"`
}

// FriendActivityView is one row of the friends-activity feed.
// For friends with ShareActivity=false everything except identity is
// blanked: status offline, zero seconds, no project or language.
type FriendActivityView struct {
	UserID        string `json:"userId"`
	Username      string `json:"username"`
	Avatar        string `json:"avatar"`
	Status        string `json:"status"`
	ActiveSeconds int64  `json:"activeSeconds"`
	Project       string `json:"project,omitempty"`
	Language      string `json:"language,omitempty"`
}
