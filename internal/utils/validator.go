package utils

import (
	"regexp"
	"strings"
)

var (
	emailRegex            = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	localUsernameRegex    = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	externalUsernameRegex = regexp.MustCompile(`^[a-zA-Z0-9._\-]+$`)
)

// ValidateEmail validates an email address
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidateUsername validates a username. Local accounts accept letters,
// digits and underscores; externally provisioned accounts additionally
// accept dots and dashes, since upstream providers generate those.
func ValidateUsername(username string, external bool) bool {
	if len(username) < 3 || len(username) > 20 {
		return false
	}
	if external {
		return externalUsernameRegex.MatchString(username)
	}
	return localUsernameRegex.MatchString(username)
}

// ValidatePassword validates a password.
// Minimum 12 characters, at least one uppercase letter, one lowercase
// letter, one digit.
func ValidatePassword(password string) bool {
	if len(password) < 12 {
		return false
	}

	hasUpper := false
	hasLower := false
	hasNumber := false

	for _, char := range password {
		switch {
		case 'A' <= char && char <= 'Z':
			hasUpper = true
		case 'a' <= char && char <= 'z':
			hasLower = true
		case '0' <= char && char <= '9':
			hasNumber = true
		}
	}

	return hasUpper && hasLower && hasNumber
}

// SanitizeEmail sanitizes an email address
func SanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeAnswer canonicalizes a security question answer before hashing
// or comparison: answers are matched case-insensitively with surrounding
// whitespace ignored.
func NormalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}
