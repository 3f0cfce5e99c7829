// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Usernames are unique case-insensitively (enforced by a COLLATE NOCASE
// unique index in the DB). APIKey is the opaque credential editors use on
// the activity-sync endpoint; it never expires but can be rotated.
//
// The Share* flags control what friends see in the activity feed:
// ShareActivity=false hides everything (the user still appears in a
// friend's feed, but blanked); ShareProjectName and ShareLanguage gate the
// per-item detail independently.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // never serialized
	APIKey       string    `json:"-"`
	Avatar       string    `json:"avatar"`
	CreatedAt    time.Time `json:"createdAt"`

	Settings Settings `json:"settings"`
}

// Settings holds a user's sharing preferences.
//
// PostThreshold is in hours and must stay within [1,24]; it controls when
// an automatic share post would be generated for a day's activity.
type Settings struct {
	ShareActivity    bool `json:"shareActivity"`
	ShareProjectName bool `json:"shareProjectName"`
	ShareLanguage    bool `json:"shareLanguage"`
	AutoPost         bool `json:"autoPost"`
	PostThreshold    int  `json:"postThreshold"`
}

// DefaultSettings are applied at registration.
func DefaultSettings() Settings {
	return Settings{
		ShareActivity:    true,
		ShareProjectName: true,
		ShareLanguage:    true,
		AutoPost:         false,
		PostThreshold:    4,
	}
}
