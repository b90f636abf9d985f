package domain

import "time"

// EventType is the closed enumeration of security-relevant events.
type EventType string

const (
	EventLoginSuccess       EventType = "LOGIN_SUCCESS"
	EventLoginFailure       EventType = "LOGIN_FAILURE"
	EventLogout             EventType = "LOGOUT"
	EventRegistration       EventType = "REGISTRATION"
	EventValidationFailure  EventType = "VALIDATION_FAILURE"
	EventAccountLocked      EventType = "ACCOUNT_LOCKED"
	EventAccountUnlocked    EventType = "ACCOUNT_UNLOCKED"
	EventOAuthLogin         EventType = "OAUTH_LOGIN"
	EventRoleUpdate         EventType = "ROLE_UPDATE"
	EventUnauthorizedRole   EventType = "UNAUTHORIZED_ROLE_CHANGE_ATTEMPT"
	EventUnauthorizedAccess EventType = "UNAUTHORIZED_ACCESS_ATTEMPT"
	EventQuestionsSet       EventType = "SECURITY_QUESTIONS_SET"
	EventQuestionsFailure   EventType = "SECURITY_QUESTIONS_FAILURE"
	EventQuestionsRequested EventType = "SECURITY_QUESTIONS_REQUESTED"
	EventQuestionsVerifyOK  EventType = "SECURITY_QUESTIONS_VERIFY_SUCCESS"
	EventQuestionsVerifyBad EventType = "SECURITY_QUESTIONS_VERIFY_FAILURE"
	EventPasswordChangeOK   EventType = "PASSWORD_CHANGE_SUCCESS"
	EventPasswordChangeBad  EventType = "PASSWORD_CHANGE_FAILURE"
	EventPasswordChangeHeld EventType = "PASSWORD_CHANGE_BLOCKED"
	EventPasswordResetOK    EventType = "PASSWORD_RESET_SUCCESS"
	EventPasswordResetBad   EventType = "PASSWORD_RESET_FAILURE"
	EventReauthSuccess      EventType = "REAUTH_SUCCESS"
	EventReauthFailure      EventType = "REAUTH_FAILURE"
	EventSystemError        EventType = "SYSTEM_ERROR"
)

// Severity is the coarse triage label on a security event.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// SecurityEvent is one append-only security log entry. UserID is nil when
// the actor is unauthenticated; Username is then recorded as "unknown" (or
// the claimed username on failed logins).
type SecurityEvent struct {
	ID        string         `json:"id" db:"id"`
	EventType EventType      `json:"event_type" db:"event_type"`
	UserID    *string        `json:"user_id" db:"user_id"`
	Username  string         `json:"username" db:"username"`
	IPAddress string         `json:"ip_address" db:"ip_address"`
	UserAgent string         `json:"user_agent" db:"user_agent"`
	Severity  Severity       `json:"severity" db:"severity"`
	Details   map[string]any `json:"details" db:"details"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}
