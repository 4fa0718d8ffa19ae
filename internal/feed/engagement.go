package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reelmates/backend/internal/models"
	"github.com/reelmates/backend/internal/store"
)

const commentsCollection = "comments"

// ErrEmptyReaction indicates a reaction toggle without an emoji key.
var ErrEmptyReaction = errors.New("reaction emoji must be provided")

// Engagement handles likes, reactions, and comments on videos. The likedBy
// membership set is the source of truth for likes; the likes counter is
// rewritten from its length on every toggle so the two cannot drift apart.
type Engagement struct {
	store   store.DocumentStore
	nowFunc func() time.Time
}

// NewEngagement constructs an engagement service over the document store.
func NewEngagement(docs store.DocumentStore) *Engagement {
	return &Engagement{
		store:   docs,
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// WithNowFunc overrides the time source. Useful for tests.
func (e *Engagement) WithNowFunc(now func() time.Time) { e.nowFunc = now }

// ToggleLike flips the viewer's membership in the video's likedBy set and
// returns the updated video.
func (e *Engagement) ToggleLike(ctx context.Context, viewerID, videoID string) (models.Video, error) {
	doc, err := e.store.Get(ctx, videosCollection, videoID)
	if err != nil {
		return models.Video{}, err
	}

	likedBy := doc.StringSlice("likedBy")
	liked := false
	for _, id := range likedBy {
		if id == viewerID {
			liked = true
			break
		}
	}

	deltas := map[string]any{}
	if liked {
		deltas["likedBy"] = store.ArrayRemove(viewerID)
		deltas["likes"] = len(likedBy) - 1
	} else {
		deltas["likedBy"] = store.ArrayUnion(viewerID)
		deltas["likes"] = len(likedBy) + 1
	}

	if err := e.store.Update(ctx, videosCollection, videoID, deltas); err != nil {
		return models.Video{}, fmt.Errorf("toggle like: %w", err)
	}

	updated, err := e.store.Get(ctx, videosCollection, videoID)
	if err != nil {
		return models.Video{}, err
	}
	return VideoFromDocument(updated), nil
}

// ToggleReaction flips the viewer's membership in the per-emoji reaction set
// and returns the updated reaction map.
func (e *Engagement) ToggleReaction(ctx context.Context, viewerID, videoID, emoji string) (map[string][]string, error) {
	if emoji == "" {
		return nil, ErrEmptyReaction
	}

	doc, err := e.store.Get(ctx, videosCollection, videoID)
	if err != nil {
		return nil, err
	}

	reactions := doc.StringSets("reactions")
	if reactions == nil {
		reactions = make(map[string][]string)
	}

	set := reactions[emoji]
	reacted := false
	for _, id := range set {
		if id == viewerID {
			reacted = true
			break
		}
	}

	if reacted {
		kept := make([]string, 0, len(set))
		for _, id := range set {
			if id != viewerID {
				kept = append(kept, id)
			}
		}
		reactions[emoji] = kept
	} else {
		reactions[emoji] = append(set, viewerID)
	}

	if err := e.store.Update(ctx, videosCollection, videoID, map[string]any{
		"reactions": reactions,
	}); err != nil {
		return nil, fmt.Errorf("toggle reaction: %w", err)
	}
	return reactions, nil
}

// AddComment attaches a comment to a video and bumps its comment count.
func (e *Engagement) AddComment(ctx context.Context, videoID string, author models.UserProfile, text string) (models.Comment, error) {
	video, err := e.store.Get(ctx, videosCollection, videoID)
	if err != nil {
		return models.Comment{}, err
	}

	now := e.nowFunc()
	id, err := e.store.Add(ctx, commentsCollection, map[string]any{
		"videoId":   videoID,
		"userId":    author.ID,
		"username":  author.Username,
		"text":      text,
		"createdAt": now,
	})
	if err != nil {
		return models.Comment{}, fmt.Errorf("add comment: %w", err)
	}

	if err := e.store.Update(ctx, videosCollection, videoID, map[string]any{
		"comments": video.Int("comments") + 1,
	}); err != nil {
		return models.Comment{}, fmt.Errorf("bump comment count: %w", err)
	}

	return models.Comment{
		ID:        id,
		VideoID:   videoID,
		UserID:    author.ID,
		Username:  author.Username,
		Text:      text,
		CreatedAt: now,
	}, nil
}

// ListComments returns a video's comments oldest first.
func (e *Engagement) ListComments(ctx context.Context, videoID string) ([]models.Comment, error) {
	docs, err := e.store.Query(ctx, commentsCollection, store.Query{
		Filters: []store.Filter{{Field: "videoId", Op: store.OpEqual, Value: videoID}},
		OrderBy: "createdAt",
	})
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}

	out := make([]models.Comment, 0, len(docs))
	for _, doc := range docs {
		out = append(out, models.Comment{
			ID:        doc.ID,
			VideoID:   doc.String("videoId"),
			UserID:    doc.String("userId"),
			Username:  doc.String("username"),
			Text:      doc.String("text"),
			CreatedAt: doc.Time("createdAt"),
		})
	}
	return out, nil
}
