package identity

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidPhone indicates the supplied phone number fails the
	// canonical-format invariant.
	ErrInvalidPhone = errors.New("invalid phone number")
)

// CanonicalizePhone reduces a raw phone number to canonical form: an optional
// leading "+" followed only by digits. Spaces, dashes, and stray plus signs
// are dropped so the same number always stores identically.
func CanonicalizePhone(raw string) string {
	if raw == "" {
		return raw
	}

	var b strings.Builder
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhoneFromLocal combines a locally formatted number with a country calling
// code: separators and the leading trunk zero are stripped before the code is
// prefixed. PhoneFromLocal("06 1234 5678", "+31") == "+31612345678".
func PhoneFromLocal(local, countryCode string) string {
	digits := CanonicalizePhone(local)
	digits = strings.TrimPrefix(digits, "+")
	digits = strings.TrimLeft(digits, "0")

	code := CanonicalizePhone(countryCode)
	if !strings.HasPrefix(code, "+") {
		code = "+" + code
	}
	return code + digits
}

// ValidatePhone checks a canonicalized phone number: it must carry a country
// code and fall within plausible length bounds.
func ValidatePhone(phone string) error {
	cleaned := CanonicalizePhone(phone)
	if !strings.HasPrefix(cleaned, "+") {
		return errors.New("phone number must start with a country code (e.g. +31)")
	}
	if len(cleaned) < 8 {
		return errors.New("phone number is too short")
	}
	if len(cleaned) > 16 {
		return errors.New("phone number is too long")
	}
	return nil
}
