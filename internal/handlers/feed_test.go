package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/reelmates/backend/internal/feed"
	"github.com/reelmates/backend/internal/videos"
)

func publishFor(t *testing.T, env *testEnv, userID string) string {
	t.Helper()
	owner, err := env.profiles.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("load owner: %v", err)
	}
	publisher := videos.NewPublisher(env.docs, &captureAssetStorage{})
	video, err := publisher.Publish(context.Background(), owner, bytes.NewReader([]byte("clip")), 4)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	return video.ID
}

func fetchFeed(t *testing.T, handler FeedHandler, path, token string, friendsOnly bool) []feed.View {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	if friendsOnly {
		handler.Friends(rec, req)
	} else {
		handler.ForYou(rec, req)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("feed status = %d (%s)", rec.Code, rec.Body)
	}

	var resp struct {
		Videos []feed.View `json:"videos"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode feed: %v", err)
	}
	return resp.Videos
}

func TestFeedHandlerForYouIncludesOwnAndFriendVideos(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "ana", "+31611111111")
	env.seedUser(t, "bob", "+31622222222")
	env.seedUser(t, "cara", "+31633333333")
	env.befriend(t, "ana", "bob")

	publishFor(t, env, "ana")
	publishFor(t, env, "bob")
	publishFor(t, env, "cara")

	handler := FeedHandler{Feed: env.deps.Feed, Sessions: env.sessions}
	views := fetchFeed(t, handler, "/api/v1/feed", env.token(t, "ana"), false)

	if len(views) != 2 {
		t.Fatalf("feed size = %d, want 2", len(views))
	}
	owners := map[string]bool{}
	for _, view := range views {
		owners[view.UserID] = true
	}
	if !owners["ana"] || !owners["bob"] || owners["cara"] {
		t.Fatalf("feed owners = %v", owners)
	}
}

func TestFeedHandlerFriendsExcludesViewer(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "ana", "+31611111111")
	env.seedUser(t, "bob", "+31622222222")
	env.befriend(t, "ana", "bob")

	publishFor(t, env, "ana")
	publishFor(t, env, "bob")

	handler := FeedHandler{Feed: env.deps.Feed, Sessions: env.sessions}
	views := fetchFeed(t, handler, "/api/v1/feed/friends", env.token(t, "ana"), true)

	if len(views) != 1 || views[0].UserID != "bob" {
		t.Fatalf("friends feed = %+v", views)
	}
}

func TestFeedHandlerRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	handler := FeedHandler{Feed: env.deps.Feed, Sessions: env.sessions}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/feed", nil)
	rec := httptest.NewRecorder()
	handler.ForYou(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
