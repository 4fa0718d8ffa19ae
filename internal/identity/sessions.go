package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/reelmates/backend/internal/models"
	"github.com/reelmates/backend/internal/store"
)

const (
	sessionsCollection     = "sessions"
	accessTokensCollection = "accessTokens"
)

var (
	// ErrSessionNotFound indicates the provided refresh token does not map to an active session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRefreshTokenExpired indicates the refresh token has expired and cannot be used.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	// ErrAccessTokenInvalid indicates the access token is unknown or has expired.
	ErrAccessTokenInvalid = errors.New("access token invalid")
)

// SessionManager issues access/refresh token pairs for verified principals.
// Refresh tokens rotate on every use and live in the document store.
type SessionManager struct {
	accessTTL  time.Duration
	refreshTTL time.Duration
	store      store.DocumentStore
}

// NewSessionManager constructs a SessionManager with the provided TTLs.
func NewSessionManager(accessTTL, refreshTTL time.Duration, docs store.DocumentStore) *SessionManager {
	if docs == nil {
		panic("identity: session store must not be nil")
	}
	return &SessionManager{
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		store:      docs,
	}
}

// Issue creates a new token pair for the provided principal.
func (m *SessionManager) Issue(ctx context.Context, principalID string) (models.SessionTokens, error) {
	if principalID == "" {
		return models.SessionTokens{}, errors.New("principal id must be provided")
	}

	now := time.Now().UTC()
	accessToken, err := randomToken()
	if err != nil {
		return models.SessionTokens{}, err
	}
	refreshToken, err := randomToken()
	if err != nil {
		return models.SessionTokens{}, err
	}

	tokens := models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  now.Add(m.accessTTL),
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(m.refreshTTL),
	}

	if err := m.store.Set(ctx, sessionsCollection, refreshToken, map[string]any{
		"userId":    principalID,
		"expiresAt": tokens.RefreshExpiresAt,
	}, false); err != nil {
		return models.SessionTokens{}, fmt.Errorf("save session: %w", err)
	}
	if err := m.store.Set(ctx, accessTokensCollection, accessToken, map[string]any{
		"userId":    principalID,
		"expiresAt": tokens.AccessExpiresAt,
	}, false); err != nil {
		return models.SessionTokens{}, fmt.Errorf("save access token: %w", err)
	}
	return tokens, nil
}

// Authenticate resolves an access token to the principal it was issued for.
func (m *SessionManager) Authenticate(ctx context.Context, accessToken string) (string, error) {
	if accessToken == "" {
		return "", ErrAccessTokenInvalid
	}

	doc, err := m.store.Get(ctx, accessTokensCollection, accessToken)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrAccessTokenInvalid
		}
		return "", fmt.Errorf("load access token: %w", err)
	}

	if time.Now().UTC().After(doc.Time("expiresAt")) {
		_ = m.store.Delete(ctx, accessTokensCollection, accessToken)
		return "", ErrAccessTokenInvalid
	}

	return doc.String("userId"), nil
}

// Refresh rotates a refresh token for a new session token pair.
func (m *SessionManager) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	if refreshToken == "" {
		return models.SessionTokens{}, ErrSessionNotFound
	}

	doc, err := m.store.Get(ctx, sessionsCollection, refreshToken)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.SessionTokens{}, ErrSessionNotFound
		}
		return models.SessionTokens{}, fmt.Errorf("load session: %w", err)
	}

	if time.Now().UTC().After(doc.Time("expiresAt")) {
		_ = m.store.Delete(ctx, sessionsCollection, refreshToken)
		return models.SessionTokens{}, ErrRefreshTokenExpired
	}

	if err := m.store.Delete(ctx, sessionsCollection, refreshToken); err != nil && !errors.Is(err, store.ErrNotFound) {
		return models.SessionTokens{}, fmt.Errorf("rotate session: %w", err)
	}

	return m.Issue(ctx, doc.String("userId"))
}

// Revoke removes the provided refresh token from the active session store.
func (m *SessionManager) Revoke(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}
	_ = m.store.Delete(ctx, sessionsCollection, refreshToken)
}

func randomToken() (string, error) {
	const size = 32
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
