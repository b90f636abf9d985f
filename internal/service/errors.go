package service

import "errors"

// Authentication error taxonomy. Handlers map these to HTTP statuses; the
// messages shown to users never reveal whether an account exists or why a
// credential was rejected beyond the status code.
var (
	// ErrValidation is returned for malformed or policy-violating input
	ErrValidation = errors.New("validation failed")

	// ErrInvalidCredentials covers both unknown users and wrong passwords,
	// deliberately indistinguishable in the response body
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountLocked is returned while the lockout window is active
	ErrAccountLocked = errors.New("account is temporarily locked")

	// ErrAccountInactive is returned for deactivated accounts
	ErrAccountInactive = errors.New("account is inactive")

	// ErrTokenInvalid is returned for malformed or badly signed tokens
	ErrTokenInvalid = errors.New("token is invalid")

	// ErrTokenExpired is returned for tokens past their expiry
	ErrTokenExpired = errors.New("token is expired")

	// ErrTokenReused is returned when a cryptographically valid refresh
	// token has already been rotated or revoked server-side
	ErrTokenReused = errors.New("token has already been used")

	// ErrReuseViolation is returned when a new password matches the current
	// one or any entry in the history
	ErrReuseViolation = errors.New("password was used recently")

	// ErrPolicyViolation is returned when a password is too young to change
	// or a recovery submission does not meet the minimum requirements
	ErrPolicyViolation = errors.New("operation violates security policy")

	// ErrNoSecurityQuestions is returned, generically, when a user does not
	// exist or has no questions configured
	ErrNoSecurityQuestions = errors.New("no security questions found")

	// ErrUnauthorized is returned when the caller is not authenticated
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the caller lacks the required role
	ErrForbidden = errors.New("forbidden")
)
