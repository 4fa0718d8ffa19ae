package models

import "time"

// UserProfile represents an account within the Reelmates platform. Profiles are
// created on first successful phone verification and never deleted.
type UserProfile struct {
	ID              string
	PhoneNumber     string
	FullName        string
	Username        string
	PhotoURL        string
	Friends         []string
	ProfileComplete bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasFriend reports whether the given principal id is in the friends list.
func (p UserProfile) HasFriend(id string) bool {
	for _, f := range p.Friends {
		if f == id {
			return true
		}
	}
	return false
}

// FriendRequest represents the invitation workflow between two users. A record
// transitions from pending to exactly one terminal status and is never removed.
type FriendRequest struct {
	ID        string
	From      string
	To        string
	Status    string
	CreatedAt time.Time
}

const (
	RequestStatusPending   = "pending"
	RequestStatusAccepted  = "accepted"
	RequestStatusDeclined  = "declined"
	RequestStatusCancelled = "cancelled"
)

// Terminal reports whether the request can no longer transition.
func (r FriendRequest) Terminal() bool {
	return r.Status != "" && r.Status != RequestStatusPending
}

// Video stores the metadata record for one published clip. The clip bytes
// themselves live in blob storage at VideoURL.
type Video struct {
	ID        string
	UserID    string
	Username  string
	FullName  string
	VideoURL  string
	CreatedAt time.Time
	Duration  float64
	Likes     int
	LikedBy   []string
	Comments  int
	Reactions map[string][]string
}

// Comment is a single comment attached to a video.
type Comment struct {
	ID        string
	VideoID   string
	UserID    string
	Username  string
	Text      string
	CreatedAt time.Time
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
