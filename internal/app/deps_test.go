package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/reelmates/backend/internal/config"
	"github.com/reelmates/backend/internal/store"
)

type discardAssets struct{}

func (discardAssets) Save(_ context.Context, name string, r io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	return "memory://" + name, nil
}

func TestBuildDependencies(t *testing.T) {
	cfg := config.Config{
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		VerificationTTL: 5 * time.Minute,
		FeedPageSize:    10,
		PollInterval:    time.Minute,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	deps, monitor := buildDependencies(store.NewMemoryStore(), discardAssets{}, cfg, logger)

	if monitor == nil {
		t.Fatal("expected friend monitor to be configured")
	}
	if deps.Verifier == nil {
		t.Fatal("expected phone verifier to be configured")
	}
	if deps.Sessions == nil {
		t.Fatal("expected session manager to be configured")
	}
	if deps.Profiles == nil {
		t.Fatal("expected profile service to be configured")
	}
	if deps.Friends == nil {
		t.Fatal("expected friend service to be configured")
	}
	if deps.FriendMonitor == nil {
		t.Fatal("expected friend monitor dependency to be configured")
	}
	if deps.Feed == nil {
		t.Fatal("expected feed composer to be configured")
	}
	if deps.Engagement == nil {
		t.Fatal("expected engagement service to be configured")
	}
	if deps.Publisher == nil {
		t.Fatal("expected video publisher to be configured")
	}
	if deps.AuthLimiter == nil {
		t.Fatal("expected auth rate limiter to be configured")
	}
}
