package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/reelmates/backend/internal/identity"
)

type recordingSender struct {
	phone string
	code  string
}

func (r *recordingSender) Send(_ context.Context, phone, code string) error {
	r.phone = phone
	r.code = code
	return nil
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(string) bool { return false }

func newAuthEnv(t *testing.T) (*testEnv, *recordingSender, AuthHandler) {
	t.Helper()
	env := newTestEnv(t)
	sender := &recordingSender{}
	verifier := identity.NewVerifier(env.docs, env.profiles, sender, 5*time.Minute)
	handler := AuthHandler{Verifier: verifier, Sessions: env.sessions}
	return env, sender, handler
}

func TestAuthHandlerVerificationFlow(t *testing.T) {
	env, sender, handler := newAuthEnv(t)

	rec := doJSON(t, handler.StartVerification, http.MethodPost, "/api/v1/auth/phone", "", startVerificationRequest{PhoneNumber: "0612345678", CountryCode: "+31"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start status = %d, want %d (%s)", rec.Code, http.StatusAccepted, rec.Body)
	}
	if sender.phone != "+31612345678" {
		t.Fatalf("expected canonical phone with country code, got %q", sender.phone)
	}

	var started startVerificationResponse
	if err := json.NewDecoder(rec.Body).Decode(&started); err != nil {
		t.Fatalf("decode start response: %v", err)
	}
	if started.VerificationID == "" {
		t.Fatal("expected a verification id")
	}

	rec = doJSON(t, handler.Verify, http.MethodPost, "/api/v1/auth/verify", "", verifyRequest{VerificationID: started.VerificationID, Code: sender.code})
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status = %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body)
	}

	var resp authResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode verify response: %v", err)
	}
	if resp.Tokens.AccessToken == "" || resp.Tokens.RefreshToken == "" {
		t.Fatalf("expected tokens, got %+v", resp.Tokens)
	}
	if resp.Profile == nil || resp.Profile.PhoneNumber != "+31612345678" {
		t.Fatalf("expected a bootstrapped profile, got %+v", resp.Profile)
	}

	principal, err := env.sessions.Authenticate(context.Background(), resp.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("authenticate issued token: %v", err)
	}
	if principal != resp.Profile.ID {
		t.Fatalf("token principal = %q, want %q", principal, resp.Profile.ID)
	}
}

func TestAuthHandlerVerifyWrongCode(t *testing.T) {
	_, sender, handler := newAuthEnv(t)

	rec := doJSON(t, handler.StartVerification, http.MethodPost, "/api/v1/auth/phone", "", startVerificationRequest{PhoneNumber: "+31612345678"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start status = %d", rec.Code)
	}
	var started startVerificationResponse
	if err := json.NewDecoder(rec.Body).Decode(&started); err != nil {
		t.Fatalf("decode: %v", err)
	}

	wrong := "000000"
	if wrong == sender.code {
		wrong = "000001"
	}
	rec = doJSON(t, handler.Verify, http.MethodPost, "/api/v1/auth/verify", "", verifyRequest{VerificationID: started.VerificationID, Code: wrong})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("verify status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthHandlerStartInvalidPhone(t *testing.T) {
	_, _, handler := newAuthEnv(t)

	rec := doJSON(t, handler.StartVerification, http.MethodPost, "/api/v1/auth/phone", "", startVerificationRequest{PhoneNumber: "0612345678"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAuthHandlerStartRateLimited(t *testing.T) {
	_, _, handler := newAuthEnv(t)
	handler.Limiter = denyAllLimiter{}

	rec := doJSON(t, handler.StartVerification, http.MethodPost, "/api/v1/auth/phone", "", startVerificationRequest{PhoneNumber: "+31612345678"})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
}

func TestAuthHandlerRefreshAndLogout(t *testing.T) {
	env, _, handler := newAuthEnv(t)
	env.seedUser(t, "alice", "+31611111111")

	tokens, err := env.sessions.Issue(context.Background(), "alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	rec := doJSON(t, handler.Refresh, http.MethodPost, "/api/v1/auth/refresh", "", refreshRequest{RefreshToken: tokens.RefreshToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d (%s)", rec.Code, rec.Body)
	}
	var resp authResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode refresh: %v", err)
	}
	if resp.Tokens.RefreshToken == tokens.RefreshToken {
		t.Fatal("expected a rotated refresh token")
	}

	rec = doJSON(t, handler.Logout, http.MethodPost, "/api/v1/auth/logout", "", refreshRequest{RefreshToken: resp.Tokens.RefreshToken})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	rec = doJSON(t, handler.Refresh, http.MethodPost, "/api/v1/auth/refresh", "", refreshRequest{RefreshToken: resp.Tokens.RefreshToken})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthHandlerMethodNotAllowed(t *testing.T) {
	_, _, handler := newAuthEnv(t)

	rec := doJSON(t, handler.StartVerification, http.MethodGet, "/api/v1/auth/phone", "", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
