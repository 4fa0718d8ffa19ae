package app

import (
	"log/slog"
	"time"

	"github.com/reelmates/backend/internal/config"
	"github.com/reelmates/backend/internal/feed"
	"github.com/reelmates/backend/internal/friends"
	"github.com/reelmates/backend/internal/handlers"
	"github.com/reelmates/backend/internal/identity"
	"github.com/reelmates/backend/internal/middleware"
	"github.com/reelmates/backend/internal/profiles"
	"github.com/reelmates/backend/internal/store"
	"github.com/reelmates/backend/internal/videos"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned monitor must be started by the caller.
func buildDependencies(docs store.DocumentStore, assets videos.AssetStorage, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, *friends.Monitor) {
	profileSvc := profiles.NewService(docs)
	friendSvc := friends.NewService(docs)
	monitor := friends.NewMonitor(friendSvc, cfg.PollInterval, logger)

	deps := handlers.Dependencies{
		Verifier:      identity.NewVerifier(docs, profileSvc, identity.NewLogCodeSender(logger), cfg.VerificationTTL),
		Sessions:      identity.NewSessionManager(cfg.AccessTokenTTL, cfg.RefreshTokenTTL, docs),
		Profiles:      profileSvc,
		Friends:       friendSvc,
		FriendMonitor: monitor,
		Feed:          feed.NewComposer(docs, cfg.FeedPageSize),
		Engagement:    feed.NewEngagement(docs),
		Publisher:     videos.NewPublisher(docs, assets),
		AuthLimiter:   middleware.NewIPRateLimiter(5, time.Minute, 5, 10*time.Minute),
	}
	return deps, monitor
}
