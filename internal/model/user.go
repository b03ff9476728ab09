// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered author.
//
// Accounts come from GitHub OAuth, so the external identifier is the GitHub
// user ID. We keep our own internal string ID (xid) for foreign keys and use
// the GitHub login as the public, unique Username that appears in URLs
// (/{username}/, /{username}/{post_id}/).
//
// The core never mutates a user after sign-in; posts, comments and follow
// edges reference it by ID and are removed with it (ON DELETE CASCADE).
type User struct {
	ID        string    `json:"id"        db:"id"`
	GitHubID  int64     `json:"-"         db:"github_id"`
	Username  string    `json:"username"  db:"username"` // GitHub login, e.g. "leo"
	Email     string    `json:"-"         db:"email"`    // Primary public email (may be empty)
	AvatarURL string    `json:"avatarUrl" db:"avatar_url"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
