package profiles

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/reelmates/backend/internal/models"
	"github.com/reelmates/backend/internal/store"
)

// Collection is the document collection holding user profiles.
const Collection = "users"

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)

// ErrInvalidUsername indicates a username failing the format invariant.
var ErrInvalidUsername = errors.New("username must be 3-20 characters of letters, numbers, and underscores")

// NormalizeUsername validates a username and folds it to lowercase.
func NormalizeUsername(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if !usernamePattern.MatchString(trimmed) {
		return "", ErrInvalidUsername
	}
	return strings.ToLower(trimmed), nil
}

// Service reads and patches user profiles. Profiles are created on first
// verified login and never deleted here.
type Service struct {
	store   store.DocumentStore
	nowFunc func() time.Time
}

// NewService constructs a profile service over the provided document store.
func NewService(docs store.DocumentStore) *Service {
	return &Service{
		store:   docs,
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// WithNowFunc overrides the time source. Useful for tests.
func (s *Service) WithNowFunc(now func() time.Time) { s.nowFunc = now }

// Get loads a profile by principal id.
func (s *Service) Get(ctx context.Context, id string) (models.UserProfile, error) {
	doc, err := s.store.Get(ctx, Collection, id)
	if err != nil {
		return models.UserProfile{}, err
	}
	return FromDocument(doc), nil
}

// FindByPhone resolves a profile by canonical phone number. Reports
// store.ErrNotFound when no account uses the number.
func (s *Service) FindByPhone(ctx context.Context, phone string) (models.UserProfile, error) {
	docs, err := s.store.Query(ctx, Collection, store.Query{
		Filters: []store.Filter{{Field: "phoneNumber", Op: store.OpEqual, Value: phone}},
		Limit:   1,
	})
	if err != nil {
		return models.UserProfile{}, fmt.Errorf("query profile by phone: %w", err)
	}
	if len(docs) == 0 {
		return models.UserProfile{}, store.ErrNotFound
	}
	return FromDocument(docs[0]), nil
}

// CreateForPhone bootstraps the profile for a freshly verified phone number:
// empty friends list, profile not yet complete.
func (s *Service) CreateForPhone(ctx context.Context, phone string) (models.UserProfile, error) {
	id := uuid.NewString()
	now := s.nowFunc()

	if err := s.store.Set(ctx, Collection, id, map[string]any{
		"phoneNumber":     phone,
		"friends":         []string{},
		"profileComplete": false,
		"createdAt":       now,
	}, false); err != nil {
		return models.UserProfile{}, fmt.Errorf("create profile: %w", err)
	}

	return models.UserProfile{
		ID:          id,
		PhoneNumber: phone,
		CreatedAt:   now,
	}, nil
}

// Update is a partial profile patch. Empty fields are left untouched.
type Update struct {
	FullName *string
	Username *string
	PhotoURL *string
}

// Update patches the named profile fields, validating the username and
// flipping profileComplete once both the full name and username are set.
func (s *Service) Update(ctx context.Context, id string, patch Update) (models.UserProfile, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return models.UserProfile{}, err
	}

	fields := map[string]any{"updatedAt": s.nowFunc()}

	fullName := current.FullName
	if patch.FullName != nil {
		fullName = strings.TrimSpace(*patch.FullName)
		fields["fullName"] = fullName
	}

	username := current.Username
	if patch.Username != nil {
		username, err = NormalizeUsername(*patch.Username)
		if err != nil {
			return models.UserProfile{}, err
		}
		fields["username"] = username
	}

	if patch.PhotoURL != nil {
		fields["photoURL"] = *patch.PhotoURL
	}

	if fullName != "" && username != "" {
		fields["profileComplete"] = true
	}

	if err := s.store.Set(ctx, Collection, id, fields, true); err != nil {
		return models.UserProfile{}, fmt.Errorf("update profile: %w", err)
	}
	return s.Get(ctx, id)
}

// FromDocument converts a stored user document into a profile model.
func FromDocument(doc store.Document) models.UserProfile {
	return models.UserProfile{
		ID:              doc.ID,
		PhoneNumber:     doc.String("phoneNumber"),
		FullName:        doc.String("fullName"),
		Username:        doc.String("username"),
		PhotoURL:        doc.String("photoURL"),
		Friends:         doc.StringSlice("friends"),
		ProfileComplete: doc.Bool("profileComplete"),
		CreatedAt:       doc.Time("createdAt"),
		UpdatedAt:       doc.Time("updatedAt"),
	}
}
