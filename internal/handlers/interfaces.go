package handlers

import (
	"context"
	"io"

	"github.com/reelmates/backend/internal/feed"
	"github.com/reelmates/backend/internal/friends"
	"github.com/reelmates/backend/internal/models"
	"github.com/reelmates/backend/internal/profiles"
)

// PhoneVerifier starts and confirms SMS verification flows for the auth handlers.
type PhoneVerifier interface {
	Start(ctx context.Context, phone string) (string, error)
	Confirm(ctx context.Context, verificationID, code string) (models.UserProfile, error)
}

// SessionManager issues, refreshes, and validates authentication tokens.
type SessionManager interface {
	Issue(ctx context.Context, principalID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Revoke(ctx context.Context, refreshToken string)
	Authenticate(ctx context.Context, accessToken string) (string, error)
}

// ProfileService captures the profile operations required by the profile handlers.
type ProfileService interface {
	Get(ctx context.Context, id string) (models.UserProfile, error)
	Update(ctx context.Context, id string, patch profiles.Update) (models.UserProfile, error)
}

// FriendService captures the relationship mutations required by the friend handlers.
type FriendService interface {
	SearchByPhone(ctx context.Context, callerID, phone string) (models.UserProfile, error)
	SendRequest(ctx context.Context, callerID, targetID string) (string, error)
	AcceptRequest(ctx context.Context, callerID, requestID, fromID string) error
	DeclineRequest(ctx context.Context, requestID string) error
	CancelRequest(ctx context.Context, requestID string) error
	RemoveFriend(ctx context.Context, aID, bID string) error
	Reconcile(ctx context.Context, aID, bID string) error
	GetRequest(ctx context.Context, requestID string) (models.FriendRequest, error)
}

// FriendMonitor serves cached relationship snapshots and accepts invalidation hints.
type FriendMonitor interface {
	Snapshot(ctx context.Context, userID string) (friends.Snapshot, error)
	Invalidate(ctx context.Context, userID string)
}

// FeedComposer assembles video feeds for a viewer.
type FeedComposer interface {
	ForYou(ctx context.Context, viewerID string) ([]feed.View, error)
	FriendsOnly(ctx context.Context, viewerID string) ([]feed.View, error)
}

// EngagementService captures likes, reactions, and comments on videos.
type EngagementService interface {
	ToggleLike(ctx context.Context, viewerID, videoID string) (models.Video, error)
	ToggleReaction(ctx context.Context, viewerID, videoID, emoji string) (map[string][]string, error)
	AddComment(ctx context.Context, videoID string, author models.UserProfile, text string) (models.Comment, error)
	ListComments(ctx context.Context, videoID string) ([]models.Comment, error)
}

// VideoPublisher persists an uploaded clip and its metadata record.
type VideoPublisher interface {
	Publish(ctx context.Context, owner models.UserProfile, clip io.Reader, duration float64) (models.Video, error)
}
