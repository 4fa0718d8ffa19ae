package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/reelmates/backend/internal/logging"
	"github.com/reelmates/backend/internal/models"
	"github.com/reelmates/backend/internal/profiles"
	"github.com/reelmates/backend/internal/store"
)

const videosCollection = "videos"

// View is one row of a composed feed: the video record plus the owner's
// current profile photo, resolved at composition time so avatar changes
// apply retroactively across the owner's whole back-catalog.
type View struct {
	models.Video
	UserPhotoURL string
}

// Composer builds the ranked list of videos visible to a principal. The
// store's value-in-set filter caps out at store.MaxInValues ids, so wider
// audiences fan out into one query per chunk; chunks and photo lookups are
// independent reads and are issued concurrently.
type Composer struct {
	store     store.DocumentStore
	chunkSize int
	pageSize  int
}

// NewComposer constructs a Composer requesting up to pageSize videos per
// audience chunk.
func NewComposer(docs store.DocumentStore, pageSize int) *Composer {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Composer{
		store:     docs,
		chunkSize: store.MaxInValues,
		pageSize:  pageSize,
	}
}

// ForYou composes the feed of the viewer's own uploads plus their friends'.
func (c *Composer) ForYou(ctx context.Context, viewerID string) ([]View, error) {
	audience, err := c.audience(ctx, viewerID, true)
	if err != nil {
		return nil, err
	}
	return c.compose(ctx, audience)
}

// FriendsOnly composes the feed restricted to the viewer's friends.
func (c *Composer) FriendsOnly(ctx context.Context, viewerID string) ([]View, error) {
	audience, err := c.audience(ctx, viewerID, false)
	if err != nil {
		return nil, err
	}
	return c.compose(ctx, audience)
}

func (c *Composer) audience(ctx context.Context, viewerID string, includeSelf bool) ([]string, error) {
	if viewerID == "" {
		return nil, nil
	}

	doc, err := c.store.Get(ctx, profiles.Collection, viewerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load viewer profile: %w", err)
	}

	var audience []string
	if includeSelf {
		audience = append(audience, viewerID)
	}
	return append(audience, doc.StringSlice("friends")...), nil
}

// compose runs the full pipeline: chunked fan-in queries, a global re-sort,
// and parallel photo resolution. Any chunk failure fails the whole
// composition; partial-chunk results are never served.
func (c *Composer) compose(ctx context.Context, audience []string) ([]View, error) {
	if len(audience) == 0 {
		return nil, nil
	}

	chunks := chunkIDs(audience, c.chunkSize)
	results := make([][]models.Video, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			docs, err := c.store.Query(gctx, videosCollection, store.Query{
				Filters:    []store.Filter{{Field: "userId", Op: store.OpIn, Value: chunk}},
				OrderBy:    "createdAt",
				Descending: true,
				Limit:      c.pageSize,
			})
			if err != nil {
				return fmt.Errorf("query videos for chunk %d: %w", i, err)
			}
			videos := make([]models.Video, 0, len(docs))
			for _, doc := range docs {
				videos = append(videos, VideoFromDocument(doc))
			}
			results[i] = videos
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logging.FromContext(ctx).Error("feed composition failed", "audience", len(audience), "error", err)
		return nil, err
	}

	var merged []models.Video
	for _, videos := range results {
		merged = append(merged, videos...)
	}

	// Per-chunk ordering does not survive the merge; re-sort globally.
	// Equal timestamps keep merge order, a known weak tie-break.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})

	photos := c.currentPhotos(ctx, merged)

	views := make([]View, len(merged))
	for i, video := range merged {
		views[i] = View{Video: video, UserPhotoURL: photos[video.UserID]}
	}
	return views, nil
}

// currentPhotos fetches each distinct owner's current profile photo in
// parallel. A failed or missing lookup degrades to no photo; it never fails
// the composition.
func (c *Composer) currentPhotos(ctx context.Context, videos []models.Video) map[string]string {
	seen := make(map[string]struct{})
	var owners []string
	for _, v := range videos {
		if _, ok := seen[v.UserID]; ok {
			continue
		}
		seen[v.UserID] = struct{}{}
		owners = append(owners, v.UserID)
	}

	resolved := make([]string, len(owners))
	g, gctx := errgroup.WithContext(ctx)
	for i, owner := range owners {
		i, owner := i, owner
		g.Go(func() error {
			doc, err := c.store.Get(gctx, profiles.Collection, owner)
			if err != nil {
				logging.FromContext(ctx).Warn("fetch profile photo failed", "userId", owner, "error", err)
				return nil
			}
			resolved[i] = doc.String("photoURL")
			return nil
		})
	}
	_ = g.Wait()

	photos := make(map[string]string, len(owners))
	for i, owner := range owners {
		photos[owner] = resolved[i]
	}
	return photos
}

func chunkIDs(ids []string, size int) [][]string {
	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// VideoFromDocument converts a stored video document into a video model.
func VideoFromDocument(doc store.Document) models.Video {
	return models.Video{
		ID:        doc.ID,
		UserID:    doc.String("userId"),
		Username:  doc.String("username"),
		FullName:  doc.String("fullName"),
		VideoURL:  doc.String("videoUrl"),
		CreatedAt: doc.Time("createdAt"),
		Duration:  doc.Float("duration"),
		Likes:     doc.Int("likes"),
		LikedBy:   doc.StringSlice("likedBy"),
		Comments:  doc.Int("comments"),
		Reactions: doc.StringSets("reactions"),
	}
}
