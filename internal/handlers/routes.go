package handlers

import "net/http"

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	auth := AuthHandler{Verifier: deps.Verifier, Sessions: deps.Sessions, Limiter: deps.AuthLimiter}
	profile := ProfileHandler{Profiles: deps.Profiles, Sessions: deps.Sessions}
	friends := FriendHandler{Friends: deps.Friends, Monitor: deps.FriendMonitor, Sessions: deps.Sessions}
	feed := FeedHandler{Feed: deps.Feed, Sessions: deps.Sessions}
	videos := VideoHandler{Publisher: deps.Publisher, Engagement: deps.Engagement, Profiles: deps.Profiles, Sessions: deps.Sessions}

	mux.HandleFunc("/healthz", health.Handle)
	mux.HandleFunc("/api/v1/auth/phone", auth.StartVerification)
	mux.HandleFunc("/api/v1/auth/verify", auth.Verify)
	mux.HandleFunc("/api/v1/auth/refresh", auth.Refresh)
	mux.HandleFunc("/api/v1/auth/logout", auth.Logout)
	mux.HandleFunc("/api/v1/profile", profile.Handle)
	mux.HandleFunc("/api/v1/friends", friends.List)
	mux.HandleFunc("/api/v1/friends/requests", friends.Requests)
	mux.HandleFunc("/api/v1/friends/search", friends.Search)
	mux.HandleFunc("/api/v1/friends/invite", friends.Invite)
	mux.HandleFunc("/api/v1/friends/respond", friends.Respond)
	mux.HandleFunc("/api/v1/friends/cancel", friends.Cancel)
	mux.HandleFunc("/api/v1/friends/remove", friends.Remove)
	mux.HandleFunc("/api/v1/feed", feed.ForYou)
	mux.HandleFunc("/api/v1/feed/friends", feed.Friends)
	mux.HandleFunc("/api/v1/videos", videos.Create)
	mux.HandleFunc("/api/v1/videos/like", videos.Like)
	mux.HandleFunc("/api/v1/videos/react", videos.React)
	mux.HandleFunc("/api/v1/videos/comment", videos.Comment)
	mux.HandleFunc("/api/v1/videos/comments", videos.Comments)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Verifier      PhoneVerifier
	Sessions      SessionManager
	Profiles      ProfileService
	Friends       FriendService
	FriendMonitor FriendMonitor
	Feed          FeedComposer
	Engagement    EngagementService
	Publisher     VideoPublisher
	AuthLimiter   RateLimiter
}
