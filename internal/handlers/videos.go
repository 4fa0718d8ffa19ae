package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/reelmates/backend/internal/feed"
	"github.com/reelmates/backend/internal/logging"
	"github.com/reelmates/backend/internal/store"
	"github.com/reelmates/backend/internal/videos"
)

// maxUploadBytes bounds clip uploads at 64 MiB.
const maxUploadBytes = 64 << 20

// VideoHandler provides endpoints for publishing videos and engaging with them.
type VideoHandler struct {
	Publisher  VideoPublisher
	Engagement EngagementService
	Profiles   ProfileService
	Sessions   SessionManager
}

// Create handles POST /api/v1/videos multipart upload requests.
func (h VideoHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Publisher == nil || h.Profiles == nil {
		logger.Error("video dependencies unavailable", "hasPublisher", h.Publisher != nil, "hasProfiles", h.Profiles != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "video services unavailable"})
		return
	}

	principalID, ok := authenticate(w, r, h.Sessions)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		logger.Warn("invalid video upload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid multipart upload"})
		return
	}

	clip, _, err := r.FormFile("clip")
	if err != nil {
		logger.Warn("video upload missing clip", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "clip file is required"})
		return
	}
	defer clip.Close()

	duration := 0.0
	if raw := strings.TrimSpace(r.FormValue("duration")); raw != "" {
		duration, err = strconv.ParseFloat(raw, 64)
		if err != nil || duration < 0 {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "duration must be a non-negative number of seconds"})
			return
		}
	}

	owner, err := h.Profiles.Get(ctx, principalID)
	if err != nil {
		logger.Error("load uploader profile", "error", err, "userId", principalID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load profile"})
		return
	}

	video, err := h.Publisher.Publish(ctx, owner, clip, duration)
	if err != nil {
		if errors.Is(err, videos.ErrAssetStorageUnavailable) {
			logger.Error("asset storage unavailable", "error", err)
			respondJSON(ctx, w, http.StatusServiceUnavailable, map[string]string{"error": "video storage unavailable"})
			return
		}
		logger.Error("publish video", "error", err, "userId", principalID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to publish video"})
		return
	}

	respondJSON(ctx, w, http.StatusCreated, video)
}

// Like handles POST /api/v1/videos/like requests.
func (h VideoHandler) Like(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Engagement == nil {
		logger.Error("engagement service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "video services unavailable"})
		return
	}

	principalID, ok := authenticate(w, r, h.Sessions)
	if !ok {
		return
	}

	var req videoIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid like payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.VideoID = strings.TrimSpace(req.VideoID)
	if req.VideoID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "video id is required"})
		return
	}

	video, err := h.Engagement.ToggleLike(ctx, principalID, req.VideoID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "video not found"})
			return
		}
		logger.Error("toggle like", "error", err, "videoId", req.VideoID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to update like"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, video)
}

// React handles POST /api/v1/videos/react requests.
func (h VideoHandler) React(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Engagement == nil {
		logger.Error("engagement service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "video services unavailable"})
		return
	}

	principalID, ok := authenticate(w, r, h.Sessions)
	if !ok {
		return
	}

	var req reactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid react payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.VideoID = strings.TrimSpace(req.VideoID)
	if req.VideoID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "video id is required"})
		return
	}

	reactions, err := h.Engagement.ToggleReaction(ctx, principalID, req.VideoID, strings.TrimSpace(req.Emoji))
	if err != nil {
		switch {
		case errors.Is(err, feed.ErrEmptyReaction):
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "reaction emoji is required"})
		case errors.Is(err, store.ErrNotFound):
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "video not found"})
		default:
			logger.Error("toggle reaction", "error", err, "videoId", req.VideoID)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to update reaction"})
		}
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"reactions": reactions})
}

// Comment handles POST /api/v1/videos/comment requests.
func (h VideoHandler) Comment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Engagement == nil || h.Profiles == nil {
		logger.Error("engagement dependencies unavailable", "hasEngagement", h.Engagement != nil, "hasProfiles", h.Profiles != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "video services unavailable"})
		return
	}

	principalID, ok := authenticate(w, r, h.Sessions)
	if !ok {
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid comment payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.VideoID = strings.TrimSpace(req.VideoID)
	req.Text = strings.TrimSpace(req.Text)
	if req.VideoID == "" || req.Text == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "video id and text are required"})
		return
	}

	author, err := h.Profiles.Get(ctx, principalID)
	if err != nil {
		logger.Error("load commenter profile", "error", err, "userId", principalID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load profile"})
		return
	}

	comment, err := h.Engagement.AddComment(ctx, req.VideoID, author, req.Text)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "video not found"})
			return
		}
		logger.Error("add comment", "error", err, "videoId", req.VideoID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to add comment"})
		return
	}

	respondJSON(ctx, w, http.StatusCreated, comment)
}

// Comments handles GET /api/v1/videos/comments requests.
func (h VideoHandler) Comments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Engagement == nil {
		logger.Error("engagement service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "video services unavailable"})
		return
	}

	if _, ok := authenticate(w, r, h.Sessions); !ok {
		return
	}

	videoID := strings.TrimSpace(r.URL.Query().Get("videoId"))
	if videoID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "videoId query parameter is required"})
		return
	}

	comments, err := h.Engagement.ListComments(ctx, videoID)
	if err != nil {
		logger.Error("list comments", "error", err, "videoId", videoID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load comments"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"comments": comments})
}

type videoIDRequest struct {
	VideoID string `json:"videoId"`
}

type reactRequest struct {
	VideoID string `json:"videoId"`
	Emoji   string `json:"emoji"`
}

type commentRequest struct {
	VideoID string `json:"videoId"`
	Text    string `json:"text"`
}
