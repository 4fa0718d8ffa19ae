package friends

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reelmates/backend/internal/identity"
	"github.com/reelmates/backend/internal/logging"
	"github.com/reelmates/backend/internal/models"
	"github.com/reelmates/backend/internal/profiles"
	"github.com/reelmates/backend/internal/store"
)

const requestsCollection = "friendRequests"

// RequestView pairs a ledger record with the profile of the other party, the
// way request lists are presented to a user.
type RequestView struct {
	Request models.FriendRequest
	Peer    models.UserProfile
}

// Service mediates the friend relationship lifecycle between two principals.
// The backing store enforces none of the ledger invariants, so every guard
// lives in the operation contracts here. The store performs no multi-document
// transactions; multi-write operations rely on each write being idempotent.
type Service struct {
	store   store.DocumentStore
	nowFunc func() time.Time
}

// NewService constructs a friend service over the provided document store.
func NewService(docs store.DocumentStore) *Service {
	return &Service{
		store:   docs,
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// WithNowFunc overrides the time source. Useful for tests.
func (s *Service) WithNowFunc(now func() time.Time) { s.nowFunc = now }

// SearchByPhone resolves a prospective friend by canonical phone number. It
// rejects self-matches, existing friends, and targets with a request already
// pending from the caller. Read-only: three sequential lookups, no writes.
func (s *Service) SearchByPhone(ctx context.Context, callerID, phone string) (models.UserProfile, error) {
	canonical := identity.CanonicalizePhone(phone)

	docs, err := s.store.Query(ctx, profiles.Collection, store.Query{
		Filters: []store.Filter{{Field: "phoneNumber", Op: store.OpEqual, Value: canonical}},
		Limit:   1,
	})
	if err != nil {
		return models.UserProfile{}, fmt.Errorf("search by phone: %w", err)
	}
	if len(docs) == 0 {
		return models.UserProfile{}, store.ErrNotFound
	}
	target := profiles.FromDocument(docs[0])

	if target.ID == callerID {
		return models.UserProfile{}, ErrSelfRequest
	}

	caller, err := s.store.Get(ctx, profiles.Collection, callerID)
	if err != nil {
		return models.UserProfile{}, fmt.Errorf("load caller profile: %w", err)
	}
	if profiles.FromDocument(caller).HasFriend(target.ID) {
		return models.UserProfile{}, ErrAlreadyFriends
	}

	pending, err := s.hasPending(ctx, callerID, target.ID)
	if err != nil {
		return models.UserProfile{}, err
	}
	if pending {
		return models.UserProfile{}, ErrRequestPending
	}

	return target, nil
}

// SendRequest inserts a pending ledger record from caller to target. The
// no-pending precondition is re-checked at call time; the check-then-act gap
// against concurrent senders is a documented limitation, duplicate pendings
// from racing sessions are tolerated downstream.
func (s *Service) SendRequest(ctx context.Context, callerID, targetID string) (string, error) {
	if callerID == targetID {
		return "", ErrSelfRequest
	}

	pending, err := s.hasPending(ctx, callerID, targetID)
	if err != nil {
		return "", err
	}
	if pending {
		return "", ErrRequestPending
	}

	id, err := s.store.Add(ctx, requestsCollection, map[string]any{
		"from":      callerID,
		"to":        targetID,
		"status":    models.RequestStatusPending,
		"createdAt": s.nowFunc(),
	})
	if err != nil {
		return "", fmt.Errorf("create friend request: %w", err)
	}
	return id, nil
}

// AcceptRequest resolves a pending request and establishes the symmetric
// friendship: (1) flip the ledger record to accepted, (2) add the sender to
// the caller's friends, (3) add the caller to the sender's friends. The three
// writes are sequential and individually idempotent; a failure after step 1
// surfaces a PartialError and is recovered by Reconcile, never rolled back.
func (s *Service) AcceptRequest(ctx context.Context, callerID, requestID, fromID string) error {
	request, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if request.Terminal() {
		return ErrAlreadyTerminal
	}

	if err := s.store.Update(ctx, requestsCollection, requestID, map[string]any{
		"status": models.RequestStatusAccepted,
	}); err != nil {
		return fmt.Errorf("accept friend request: %w", err)
	}

	if err := s.store.Update(ctx, profiles.Collection, callerID, map[string]any{
		"friends": store.ArrayUnion(fromID),
	}); err != nil {
		logging.FromContext(ctx).Warn("friendship symmetry incomplete", "requestId", requestID, "error", err)
		return &PartialError{Op: "accept friend request", Step: "add sender to caller friends", Err: err}
	}

	if err := s.store.Update(ctx, profiles.Collection, fromID, map[string]any{
		"friends": store.ArrayUnion(callerID),
	}); err != nil {
		logging.FromContext(ctx).Warn("friendship symmetry incomplete", "requestId", requestID, "error", err)
		return &PartialError{Op: "accept friend request", Step: "add caller to sender friends", Err: err}
	}

	return nil
}

// Reconcile re-establishes the symmetric friends membership for an accepted
// pair. Both writes are set-adds, so re-running after a partial acceptance is
// safe no matter which side already committed.
func (s *Service) Reconcile(ctx context.Context, aID, bID string) error {
	errA := s.store.Update(ctx, profiles.Collection, aID, map[string]any{
		"friends": store.ArrayUnion(bID),
	})
	errB := s.store.Update(ctx, profiles.Collection, bID, map[string]any{
		"friends": store.ArrayUnion(aID),
	})
	if errA != nil || errB != nil {
		return fmt.Errorf("reconcile friendship: %w", errors.Join(errA, errB))
	}
	return nil
}

// DeclineRequest marks a pending request declined. Declining an already
// terminal record reports ErrAlreadyTerminal without touching state.
func (s *Service) DeclineRequest(ctx context.Context, requestID string) error {
	return s.resolve(ctx, requestID, models.RequestStatusDeclined)
}

// CancelRequest marks a pending request cancelled by its sender. Cancelling
// an already terminal record reports ErrAlreadyTerminal without touching state.
func (s *Service) CancelRequest(ctx context.Context, requestID string) error {
	return s.resolve(ctx, requestID, models.RequestStatusCancelled)
}

func (s *Service) resolve(ctx context.Context, requestID, status string) error {
	request, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if request.Terminal() {
		return ErrAlreadyTerminal
	}

	if err := s.store.Update(ctx, requestsCollection, requestID, map[string]any{
		"status": status,
	}); err != nil {
		return fmt.Errorf("resolve friend request: %w", err)
	}
	return nil
}

// RemoveFriend removes each principal from the other's friends set. The
// ledger is left untouched so the history of the original acceptance is
// preserved. Both removals are attempted even when the first fails.
func (s *Service) RemoveFriend(ctx context.Context, aID, bID string) error {
	errA := s.store.Update(ctx, profiles.Collection, aID, map[string]any{
		"friends": store.ArrayRemove(bID),
	})
	errB := s.store.Update(ctx, profiles.Collection, bID, map[string]any{
		"friends": store.ArrayRemove(aID),
	})

	if errA != nil || errB != nil {
		logging.FromContext(ctx).Warn("friend removal incomplete", "error", errors.Join(errA, errB))
		return &PartialError{Op: "remove friend", Step: "remove symmetric membership", Err: errors.Join(errA, errB)}
	}
	return nil
}

// GetRequest loads a single ledger record.
func (s *Service) GetRequest(ctx context.Context, requestID string) (models.FriendRequest, error) {
	doc, err := s.store.Get(ctx, requestsCollection, requestID)
	if err != nil {
		return models.FriendRequest{}, err
	}
	return requestFromDocument(doc), nil
}

// ListFriends resolves the caller's friends-id list into full profiles.
// Friend ids whose profile no longer resolves are skipped, not fatal.
func (s *Service) ListFriends(ctx context.Context, userID string) ([]models.UserProfile, error) {
	doc, err := s.store.Get(ctx, profiles.Collection, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	var out []models.UserProfile
	for _, friendID := range doc.StringSlice("friends") {
		friendDoc, err := s.store.Get(ctx, profiles.Collection, friendID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("load friend profile: %w", err)
		}
		out = append(out, profiles.FromDocument(friendDoc))
	}
	return out, nil
}

// ListRequests returns the caller's pending sent and received requests with
// the other party's profile attached. Requests whose peer profile is missing
// are skipped.
func (s *Service) ListRequests(ctx context.Context, userID string) (sent, received []RequestView, err error) {
	sent, err = s.pendingViews(ctx, "from", userID, "to")
	if err != nil {
		return nil, nil, err
	}
	received, err = s.pendingViews(ctx, "to", userID, "from")
	if err != nil {
		return nil, nil, err
	}
	return sent, received, nil
}

func (s *Service) pendingViews(ctx context.Context, matchField, userID, peerField string) ([]RequestView, error) {
	docs, err := s.store.Query(ctx, requestsCollection, store.Query{
		Filters: []store.Filter{
			{Field: matchField, Op: store.OpEqual, Value: userID},
			{Field: "status", Op: store.OpEqual, Value: models.RequestStatusPending},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query friend requests: %w", err)
	}

	var out []RequestView
	for _, doc := range docs {
		request := requestFromDocument(doc)
		peerID := doc.String(peerField)
		peerDoc, err := s.store.Get(ctx, profiles.Collection, peerID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("load request peer: %w", err)
		}
		out = append(out, RequestView{Request: request, Peer: profiles.FromDocument(peerDoc)})
	}
	return out, nil
}

func (s *Service) hasPending(ctx context.Context, fromID, toID string) (bool, error) {
	docs, err := s.store.Query(ctx, requestsCollection, store.Query{
		Filters: []store.Filter{
			{Field: "from", Op: store.OpEqual, Value: fromID},
			{Field: "to", Op: store.OpEqual, Value: toID},
			{Field: "status", Op: store.OpEqual, Value: models.RequestStatusPending},
		},
		Limit: 1,
	})
	if err != nil {
		return false, fmt.Errorf("query pending request: %w", err)
	}
	return len(docs) > 0, nil
}

func requestFromDocument(doc store.Document) models.FriendRequest {
	return models.FriendRequest{
		ID:        doc.ID,
		From:      doc.String("from"),
		To:        doc.String("to"),
		Status:    doc.String("status"),
		CreatedAt: doc.Time("createdAt"),
	}
}
