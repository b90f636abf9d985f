package utils

import "testing"

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		name     string
		password string
		want     bool
	}{
		{"valid", "CorrectHorse99", true},
		{"minimum length", "Aa1aaaaaaaaa", true},
		{"too short", "Aa1aaaaaaaa", false},
		{"no uppercase", "aa1aaaaaaaaaa", false},
		{"no lowercase", "AA1AAAAAAAAAA", false},
		{"no digit", "AaAaAaAaAaAa", false},
		{"empty", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidatePassword(tc.password); got != tc.want {
				t.Errorf("ValidatePassword(%q) = %v, want %v", tc.password, got, tc.want)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	cases := []struct {
		name     string
		username string
		external bool
		want     bool
	}{
		{"valid", "alice_01", false, true},
		{"too short", "ab", false, false},
		{"too long", "abcdefghijklmnopqrstu", false, false},
		{"dot rejected locally", "alice.smith", false, false},
		{"dot allowed externally", "alice.smith", true, true},
		{"dash allowed externally", "alice-smith", true, true},
		{"spaces rejected", "alice smith", true, false},
		{"empty", "", false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidateUsername(tc.username, tc.external); got != tc.want {
				t.Errorf("ValidateUsername(%q, %v) = %v, want %v", tc.username, tc.external, got, tc.want)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	valid := []string{"a@b.co", "alice+tag@example.com"}
	invalid := []string{"", "no-at-sign", "a@", "@b.co"}

	for _, email := range valid {
		if !ValidateEmail(email) {
			t.Errorf("ValidateEmail(%q) = false, want true", email)
		}
	}
	for _, email := range invalid {
		if ValidateEmail(email) {
			t.Errorf("ValidateEmail(%q) = true, want false", email)
		}
	}
}

func TestSanitizeEmail(t *testing.T) {
	if got := SanitizeEmail("  Alice@Example.COM "); got != "alice@example.com" {
		t.Errorf("SanitizeEmail = %q, want %q", got, "alice@example.com")
	}
}

func TestNormalizeAnswer(t *testing.T) {
	if got := NormalizeAnswer("  Fluffy The Cat  "); got != "fluffy the cat" {
		t.Errorf("NormalizeAnswer = %q, want %q", got, "fluffy the cat")
	}
}
