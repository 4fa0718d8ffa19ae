package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/reelmates/backend/internal/logging"
	"github.com/reelmates/backend/internal/profiles"
	"github.com/reelmates/backend/internal/store"
)

// ProfileHandler serves the authenticated principal's profile.
type ProfileHandler struct {
	Profiles ProfileService
	Sessions SessionManager
}

// Handle dispatches GET and PATCH /api/v1/profile requests.
func (h ProfileHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPatch:
		h.update(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h ProfileHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Profiles == nil {
		logger.Error("profile service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "profile service unavailable"})
		return
	}

	principalID, ok := authenticate(w, r, h.Sessions)
	if !ok {
		return
	}

	profile, err := h.Profiles.Get(ctx, principalID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "profile not found"})
			return
		}
		logger.Error("load profile", "error", err, "userId", principalID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load profile"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, profile)
}

func (h ProfileHandler) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Profiles == nil {
		logger.Error("profile service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "profile service unavailable"})
		return
	}

	principalID, ok := authenticate(w, r, h.Sessions)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid profile payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	patch := profiles.Update{}
	if req.FullName != nil {
		trimmed := strings.TrimSpace(*req.FullName)
		patch.FullName = &trimmed
	}
	if req.Username != nil {
		trimmed := strings.TrimSpace(*req.Username)
		patch.Username = &trimmed
	}
	if req.PhotoURL != nil {
		trimmed := strings.TrimSpace(*req.PhotoURL)
		patch.PhotoURL = &trimmed
	}

	profile, err := h.Profiles.Update(ctx, principalID, patch)
	if err != nil {
		switch {
		case errors.Is(err, profiles.ErrInvalidUsername):
			logger.Warn("profile update invalid username", "userId", principalID)
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": profiles.ErrInvalidUsername.Error()})
		case errors.Is(err, store.ErrNotFound):
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "profile not found"})
		default:
			logger.Error("profile update failed", "error", err, "userId", principalID)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to update profile"})
		}
		return
	}

	respondJSON(ctx, w, http.StatusOK, profile)
}

type updateProfileRequest struct {
	FullName *string `json:"fullName"`
	Username *string `json:"username"`
	PhotoURL *string `json:"photoUrl"`
}
