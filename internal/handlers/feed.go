package handlers

import (
	"net/http"

	"github.com/reelmates/backend/internal/logging"
)

// FeedHandler serves composed video feeds.
type FeedHandler struct {
	Feed     FeedComposer
	Sessions SessionManager
}

// ForYou handles GET /api/v1/feed requests.
func (h FeedHandler) ForYou(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, false)
}

// Friends handles GET /api/v1/feed/friends requests.
func (h FeedHandler) Friends(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, true)
}

func (h FeedHandler) serve(w http.ResponseWriter, r *http.Request, friendsOnly bool) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Feed == nil {
		logger.Error("feed composer unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "feed service unavailable"})
		return
	}

	principalID, ok := authenticate(w, r, h.Sessions)
	if !ok {
		return
	}

	compose := h.Feed.ForYou
	if friendsOnly {
		compose = h.Feed.FriendsOnly
	}

	views, err := compose(ctx, principalID)
	if err != nil {
		logger.Error("compose feed", "error", err, "userId", principalID, "friendsOnly", friendsOnly)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load feed"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"videos": views})
}
