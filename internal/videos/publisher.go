package videos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/reelmates/backend/internal/models"
	"github.com/reelmates/backend/internal/store"
)

const videosCollection = "videos"

// ErrAssetStorageUnavailable indicates no blob storage binding is configured.
var ErrAssetStorageUnavailable = errors.New("asset storage unavailable")

// AssetStorage persists clip bytes and returns a public location for them.
type AssetStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// Publisher uploads a recorded clip to blob storage and writes its metadata
// record. Capture and encoding happen upstream; the publisher only sees the
// finished bytes. No photo URL is snapshotted onto the record: feeds resolve
// the owner's current photo at read time.
type Publisher struct {
	store   store.DocumentStore
	assets  AssetStorage
	nowFunc func() time.Time
}

// NewPublisher constructs a Publisher writing metadata to the document store.
func NewPublisher(docs store.DocumentStore, assets AssetStorage) *Publisher {
	return &Publisher{
		store:   docs,
		assets:  assets,
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// WithNowFunc overrides the time source. Useful for tests.
func (p *Publisher) WithNowFunc(now func() time.Time) { p.nowFunc = now }

// Publish stores the clip and its metadata for the owning profile.
func (p *Publisher) Publish(ctx context.Context, owner models.UserProfile, clip io.Reader, duration float64) (models.Video, error) {
	if p.assets == nil {
		return models.Video{}, ErrAssetStorageUnavailable
	}
	if owner.ID == "" {
		return models.Video{}, errors.New("owner id must be provided")
	}

	key := path.Join(owner.ID, uuid.NewString()+".webm")
	location, err := p.assets.Save(ctx, key, clip)
	if err != nil {
		return models.Video{}, fmt.Errorf("store clip: %w", err)
	}

	username := owner.Username
	if username == "" {
		username = "anonymous"
	}
	fullName := owner.FullName
	if fullName == "" {
		fullName = "Anonymous User"
	}

	now := p.nowFunc()
	id, err := p.store.Add(ctx, videosCollection, map[string]any{
		"userId":    owner.ID,
		"username":  username,
		"fullName":  fullName,
		"videoUrl":  location,
		"createdAt": now,
		"duration":  duration,
		"likes":     0,
		"likedBy":   []string{},
		"comments":  0,
		"reactions": map[string][]string{},
	})
	if err != nil {
		return models.Video{}, fmt.Errorf("store video metadata: %w", err)
	}

	return models.Video{
		ID:        id,
		UserID:    owner.ID,
		Username:  username,
		FullName:  fullName,
		VideoURL:  location,
		CreatedAt: now,
		Duration:  duration,
	}, nil
}
