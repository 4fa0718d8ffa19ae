package identity

import "testing"

func TestCanonicalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+31 6 1234 5678", "+31612345678"},
		{"+31-612-345-678", "+31612345678"},
		{"(06) 12 34 56 78", "0612345678"},
		{"+31+612345678", "+31612345678"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := CanonicalizePhone(tc.in); got != tc.want {
			t.Errorf("CanonicalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPhoneFromLocal(t *testing.T) {
	cases := []struct {
		local       string
		countryCode string
		want        string
	}{
		{"0612345678", "+31", "+31612345678"},
		{"06 1234 5678", "+31", "+31612345678"},
		{"612345678", "31", "+31612345678"},
		{"07911 123456", "+44", "+447911123456"},
	}

	for _, tc := range cases {
		if got := PhoneFromLocal(tc.local, tc.countryCode); got != tc.want {
			t.Errorf("PhoneFromLocal(%q, %q) = %q, want %q", tc.local, tc.countryCode, got, tc.want)
		}
	}
}

func TestValidatePhone(t *testing.T) {
	valid := []string{"+31612345678", "+4479111234", "+1 212 555 0100"}
	for _, phone := range valid {
		if err := ValidatePhone(phone); err != nil {
			t.Errorf("ValidatePhone(%q) = %v, want nil", phone, err)
		}
	}

	invalid := []string{"", "0612345678", "+3161", "+3161234567890123456"}
	for _, phone := range invalid {
		if err := ValidatePhone(phone); err == nil {
			t.Errorf("ValidatePhone(%q) = nil, want error", phone)
		}
	}
}
