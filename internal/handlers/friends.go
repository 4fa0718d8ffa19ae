package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/reelmates/backend/internal/friends"
	"github.com/reelmates/backend/internal/logging"
	"github.com/reelmates/backend/internal/models"
	"github.com/reelmates/backend/internal/store"
)

// FriendHandler provides friend search, invite, and relationship endpoints.
type FriendHandler struct {
	Friends  FriendService
	Monitor  FriendMonitor
	Sessions SessionManager
}

// List handles GET /api/v1/friends requests.
func (h FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Monitor == nil {
		logger.Error("friend monitor unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend services unavailable"})
		return
	}

	principalID, ok := authenticate(w, r, h.Sessions)
	if !ok {
		return
	}

	snapshot, err := h.Monitor.Snapshot(ctx, principalID)
	if err != nil {
		logger.Error("load friend snapshot", "error", err, "userId", principalID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load friends"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, friendListResponse{
		Friends:     snapshot.Friends,
		RefreshedAt: snapshot.RefreshedAt,
	})
}

// Requests handles GET /api/v1/friends/requests requests.
func (h FriendHandler) Requests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Monitor == nil {
		logger.Error("friend monitor unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend services unavailable"})
		return
	}

	principalID, ok := authenticate(w, r, h.Sessions)
	if !ok {
		return
	}

	snapshot, err := h.Monitor.Snapshot(ctx, principalID)
	if err != nil {
		logger.Error("load friend snapshot", "error", err, "userId", principalID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load friend requests"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, friendRequestsResponse{
		Sent:     snapshot.Sent,
		Received: snapshot.Received,
	})
}

// Search handles POST /api/v1/friends/search requests.
func (h FriendHandler) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Friends == nil {
		logger.Error("friend service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend services unavailable"})
		return
	}

	principalID, ok := authenticate(w, r, h.Sessions)
	if !ok {
		return
	}

	var req friendSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid friend search payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	if req.PhoneNumber == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "phone number is required"})
		return
	}

	match, err := h.Friends.SearchByPhone(ctx, principalID, req.PhoneNumber)
	if err != nil {
		h.respondFriendError(w, r, err, "friend search failed")
		return
	}

	respondJSON(ctx, w, http.StatusOK, match)
}

// Invite handles POST /api/v1/friends/invite requests.
func (h FriendHandler) Invite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Friends == nil {
		logger.Error("friend service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend services unavailable"})
		return
	}

	principalID, ok := authenticate(w, r, h.Sessions)
	if !ok {
		return
	}

	var req friendInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid friend invite payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "user id is required"})
		return
	}

	requestID, err := h.Friends.SendRequest(ctx, principalID, req.UserID)
	if err != nil {
		h.respondFriendError(w, r, err, "friend invite failed")
		return
	}

	h.invalidate(r, principalID, req.UserID)
	respondJSON(ctx, w, http.StatusCreated, map[string]string{"requestId": requestID})
}

// Respond handles POST /api/v1/friends/respond requests.
func (h FriendHandler) Respond(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Friends == nil {
		logger.Error("friend service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend services unavailable"})
		return
	}

	principalID, ok := authenticate(w, r, h.Sessions)
	if !ok {
		return
	}

	var req friendRespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid friend respond payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.RequestID = strings.TrimSpace(req.RequestID)
	req.Action = strings.ToLower(strings.TrimSpace(req.Action))
	if req.RequestID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "request id is required"})
		return
	}

	request, err := h.Friends.GetRequest(ctx, req.RequestID)
	if err != nil {
		h.respondFriendError(w, r, err, "friend request lookup failed")
		return
	}
	if request.To != principalID {
		respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "only the recipient can respond to a request"})
		return
	}

	switch req.Action {
	case "accept":
		err = h.Friends.AcceptRequest(ctx, principalID, req.RequestID, request.From)
		var partial *friends.PartialError
		if errors.As(err, &partial) {
			logger.Warn("accept left relationship one-sided, reconciling", "requestId", req.RequestID, "step", partial.Step)
			if recErr := h.Friends.Reconcile(ctx, request.From, request.To); recErr != nil {
				logger.Error("reconcile after partial accept failed", "error", recErr, "requestId", req.RequestID)
			} else {
				err = nil
			}
		}
	case "decline":
		err = h.Friends.DeclineRequest(ctx, req.RequestID)
	default:
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "action must be accept or decline"})
		return
	}

	if err != nil {
		h.respondFriendError(w, r, err, "friend respond failed")
		return
	}

	h.invalidate(r, request.From, request.To)
	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

// Cancel handles POST /api/v1/friends/cancel requests.
func (h FriendHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Friends == nil {
		logger.Error("friend service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend services unavailable"})
		return
	}

	principalID, ok := authenticate(w, r, h.Sessions)
	if !ok {
		return
	}

	var req friendCancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid friend cancel payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.RequestID = strings.TrimSpace(req.RequestID)
	if req.RequestID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "request id is required"})
		return
	}

	request, err := h.Friends.GetRequest(ctx, req.RequestID)
	if err != nil {
		h.respondFriendError(w, r, err, "friend request lookup failed")
		return
	}
	if request.From != principalID {
		respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "only the sender can cancel a request"})
		return
	}

	if err := h.Friends.CancelRequest(ctx, req.RequestID); err != nil {
		h.respondFriendError(w, r, err, "friend cancel failed")
		return
	}

	h.invalidate(r, request.From, request.To)
	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

// Remove handles POST /api/v1/friends/remove requests.
func (h FriendHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Friends == nil {
		logger.Error("friend service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend services unavailable"})
		return
	}

	principalID, ok := authenticate(w, r, h.Sessions)
	if !ok {
		return
	}

	var req friendRemoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid friend remove payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "user id is required"})
		return
	}

	if err := h.Friends.RemoveFriend(ctx, principalID, req.UserID); err != nil {
		h.respondFriendError(w, r, err, "friend remove failed")
		return
	}

	h.invalidate(r, principalID, req.UserID)
	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h FriendHandler) invalidate(r *http.Request, userIDs ...string) {
	if h.Monitor == nil {
		return
	}
	for _, id := range userIDs {
		h.Monitor.Invalidate(r.Context(), id)
	}
}

func (h FriendHandler) respondFriendError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	switch {
	case errors.Is(err, friends.ErrSelfRequest):
		logger.Warn(msg, "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "cannot send a friend request to yourself"})
	case errors.Is(err, friends.ErrAlreadyFriends):
		logger.Warn(msg, "error", err)
		respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "already friends"})
	case errors.Is(err, friends.ErrRequestPending):
		logger.Warn(msg, "error", err)
		respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "a request is already pending"})
	case errors.Is(err, friends.ErrAlreadyTerminal):
		logger.Warn(msg, "error", err)
		respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "request has already been resolved"})
	case errors.Is(err, store.ErrNotFound):
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "not found"})
	default:
		logger.Error(msg, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend operation failed"})
	}
}

type friendSearchRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

type friendInviteRequest struct {
	UserID string `json:"userId"`
}

type friendRespondRequest struct {
	RequestID string `json:"requestId"`
	Action    string `json:"action"`
}

type friendCancelRequest struct {
	RequestID string `json:"requestId"`
}

type friendRemoveRequest struct {
	UserID string `json:"userId"`
}

type friendListResponse struct {
	Friends     []models.UserProfile `json:"friends"`
	RefreshedAt time.Time            `json:"refreshedAt"`
}

type friendRequestsResponse struct {
	Sent     []friends.RequestView `json:"sent"`
	Received []friends.RequestView `json:"received"`
}
