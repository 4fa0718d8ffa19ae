package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/reelmates/backend/internal/models"
	"github.com/reelmates/backend/internal/store"
)

const verificationsCollection = "verifications"

var (
	// ErrVerificationNotFound indicates no verification exists for the id.
	ErrVerificationNotFound = errors.New("verification not found")
	// ErrCodeExpired indicates the verification window has closed or the
	// code was already consumed.
	ErrCodeExpired = errors.New("verification code expired")
	// ErrInvalidCode indicates the submitted code does not match.
	ErrInvalidCode = errors.New("invalid verification code")
)

// CodeSender delivers a verification code to a phone number, typically over
// SMS. Delivery is outside this package; tests use a recorder.
type CodeSender interface {
	Send(ctx context.Context, phone, code string) error
}

// ProfileDirectory resolves and bootstraps user profiles for verified phone
// numbers.
type ProfileDirectory interface {
	FindByPhone(ctx context.Context, phone string) (models.UserProfile, error)
	CreateForPhone(ctx context.Context, phone string) (models.UserProfile, error)
}

// Verifier runs the phone sign-in funnel: issue a short-lived code, then
// exchange the code for a principal, creating the profile on first login.
// Codes are stored only as bcrypt hashes.
type Verifier struct {
	store    store.DocumentStore
	profiles ProfileDirectory
	sender   CodeSender
	ttl      time.Duration
	nowFunc  func() time.Time
}

// NewVerifier constructs a Verifier issuing codes valid for the provided TTL.
func NewVerifier(docs store.DocumentStore, profiles ProfileDirectory, sender CodeSender, ttl time.Duration) *Verifier {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Verifier{
		store:    docs,
		profiles: profiles,
		sender:   sender,
		ttl:      ttl,
		nowFunc:  func() time.Time { return time.Now().UTC() },
	}
}

// WithNowFunc overrides the time source. Useful for tests.
func (v *Verifier) WithNowFunc(now func() time.Time) { v.nowFunc = now }

// Start validates and canonicalizes the phone number, issues a code, and
// hands it to the sender. It returns the verification id the caller must
// present together with the code.
func (v *Verifier) Start(ctx context.Context, phone string) (string, error) {
	if err := ValidatePhone(phone); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidPhone, err)
	}
	canonical := CanonicalizePhone(phone)

	code, err := randomCode()
	if err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash verification code: %w", err)
	}

	now := v.nowFunc()
	id, err := v.store.Add(ctx, verificationsCollection, map[string]any{
		"phoneNumber": canonical,
		"codeHash":    string(hash),
		"createdAt":   now,
		"expiresAt":   now.Add(v.ttl),
		"used":        false,
	})
	if err != nil {
		return "", fmt.Errorf("store verification: %w", err)
	}

	if v.sender != nil {
		if err := v.sender.Send(ctx, canonical, code); err != nil {
			return "", fmt.Errorf("send verification code: %w", err)
		}
	}
	return id, nil
}

// Confirm checks the submitted code against the stored hash and, on success,
// resolves the principal for the verified phone number. A profile is created
// with an empty friends list on first login; an existing profile is never
// overwritten.
func (v *Verifier) Confirm(ctx context.Context, verificationID, code string) (models.UserProfile, error) {
	doc, err := v.store.Get(ctx, verificationsCollection, verificationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.UserProfile{}, ErrVerificationNotFound
		}
		return models.UserProfile{}, fmt.Errorf("load verification: %w", err)
	}

	if doc.Bool("used") || v.nowFunc().After(doc.Time("expiresAt")) {
		return models.UserProfile{}, ErrCodeExpired
	}

	if err := bcrypt.CompareHashAndPassword([]byte(doc.String("codeHash")), []byte(code)); err != nil {
		return models.UserProfile{}, ErrInvalidCode
	}

	if err := v.store.Update(ctx, verificationsCollection, verificationID, map[string]any{"used": true}); err != nil {
		return models.UserProfile{}, fmt.Errorf("consume verification: %w", err)
	}

	phone := doc.String("phoneNumber")
	profile, err := v.profiles.FindByPhone(ctx, phone)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return models.UserProfile{}, fmt.Errorf("resolve principal: %w", err)
	}
	return v.profiles.CreateForPhone(ctx, phone)
}

func randomCode() (string, error) {
	const digits = 6
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n), nil
}
