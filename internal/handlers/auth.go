package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/reelmates/backend/internal/identity"
	"github.com/reelmates/backend/internal/logging"
	"github.com/reelmates/backend/internal/models"
)

// AuthHandler implements phone-based authentication endpoints.
type AuthHandler struct {
	Verifier PhoneVerifier
	Sessions SessionManager
	Limiter  RateLimiter
}

// StartVerification handles POST /api/v1/auth/phone requests.
func (h AuthHandler) StartVerification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Verifier == nil {
		logger.Error("verification dependencies unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "verification services unavailable"})
		return
	}

	if !allowRequest(h.Limiter, r, "auth-phone") {
		logger.Warn("verification rate limited", "ip", clientIP(r))
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many verification attempts, try again later"})
		return
	}

	var req startVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid verification payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	phone := strings.TrimSpace(req.PhoneNumber)
	if req.CountryCode != "" && !strings.HasPrefix(identity.CanonicalizePhone(phone), "+") {
		phone = identity.PhoneFromLocal(phone, req.CountryCode)
	}
	if phone == "" {
		logger.Warn("verification missing phone number")
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "phone number is required"})
		return
	}

	verificationID, err := h.Verifier.Start(ctx, phone)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidPhone) {
			logger.Warn("verification invalid phone", "error", err)
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid phone number"})
			return
		}
		logger.Error("failed to start verification", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to start verification"})
		return
	}

	respondJSON(ctx, w, http.StatusAccepted, startVerificationResponse{VerificationID: verificationID})
}

// Verify handles POST /api/v1/auth/verify requests.
func (h AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Verifier == nil || h.Sessions == nil {
		logger.Error("authentication dependencies unavailable", "hasVerifier", h.Verifier != nil, "hasSessions", h.Sessions != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "authentication services unavailable"})
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid verify payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.VerificationID = strings.TrimSpace(req.VerificationID)
	req.Code = strings.TrimSpace(req.Code)
	if req.VerificationID == "" || req.Code == "" {
		logger.Warn("verify missing fields")
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "verification id and code are required"})
		return
	}

	profile, err := h.Verifier.Confirm(ctx, req.VerificationID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrVerificationNotFound), errors.Is(err, identity.ErrInvalidCode):
			logger.Warn("verify rejected", "verificationId", req.VerificationID, "error", err)
			respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid verification code"})
		case errors.Is(err, identity.ErrCodeExpired):
			logger.Warn("verify code expired", "verificationId", req.VerificationID)
			respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "verification code expired"})
		default:
			logger.Error("verify failed", "error", err)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to verify code"})
		}
		return
	}

	tokens, err := h.Sessions.Issue(ctx, profile.ID)
	if err != nil {
		logger.Error("failed to issue session", "error", err, "userId", profile.ID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to create session"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, authResponse{Tokens: tokens, Profile: &profile})
}

// Refresh exchanges a refresh token for a new session.
func (h AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Sessions == nil {
		logger.Error("session manager unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "session service unavailable"})
		return
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid refresh payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		logger.Warn("missing refresh token")
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "refresh token is required"})
		return
	}

	tokens, err := h.Sessions.Refresh(ctx, req.RefreshToken)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, identity.ErrRefreshTokenExpired) || errors.Is(err, identity.ErrSessionNotFound) {
			status = http.StatusUnauthorized
		}
		logger.Error("refresh failed", "error", err, "status", status)
		respondJSON(ctx, w, status, map[string]string{"error": "unable to refresh session"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, authResponse{Tokens: tokens})
}

// Logout handles POST /api/v1/auth/logout requests.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Sessions == nil {
		logger.Error("session manager unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "session service unavailable"})
		return
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid logout payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	h.Sessions.Revoke(ctx, strings.TrimSpace(req.RefreshToken))
	w.WriteHeader(http.StatusNoContent)
}

type startVerificationRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	CountryCode string `json:"countryCode"`
}

type startVerificationResponse struct {
	VerificationID string `json:"verificationId"`
}

type verifyRequest struct {
	VerificationID string `json:"verificationId"`
	Code           string `json:"code"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type authResponse struct {
	Tokens  models.SessionTokens `json:"tokens"`
	Profile *models.UserProfile  `json:"profile,omitempty"`
}
