package domain

import "time"

// Role is the closed set of user roles.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleUser:
		return true
	}
	return false
}

// Privileged reports whether r may grant elevated roles.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleModerator
}

// User represents a user identity record. PasswordHash is empty for
// accounts provisioned through an external identity provider; such accounts
// carry OAuthProvider/OAuthSubject instead and never authenticate locally,
// but still participate in lockout and audit logging.
type User struct {
	ID                 string     `json:"id" db:"id"`
	Username           string     `json:"username" db:"username"`
	Email              string     `json:"email" db:"email"`
	PasswordHash       string     `json:"-" db:"password_hash"`
	Role               Role       `json:"role" db:"role"`
	IsActive           bool       `json:"is_active" db:"is_active"`
	FailedAttemptCount int        `json:"-" db:"failed_attempt_count"`
	LockedUntil        *time.Time `json:"-" db:"locked_until"`
	PasswordChangedAt  time.Time  `json:"-" db:"password_changed_at"`
	LastLoginAt        *time.Time `json:"last_login_at" db:"last_login_at"`
	PreviousLoginAt    *time.Time `json:"previous_login_at" db:"previous_login_at"`
	OAuthProvider      *string    `json:"-" db:"oauth_provider"`
	OAuthSubject       *string    `json:"-" db:"oauth_subject"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

// IsLocked reports whether the account is inside an active lockout window.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// IsExternal reports whether the account authenticates through an external
// identity provider rather than a local password.
func (u *User) IsExternal() bool {
	return u.OAuthProvider != nil && *u.OAuthProvider != ""
}

// PasswordHistoryEntry is a prior password hash retained for reuse checks.
type PasswordHistoryEntry struct {
	ID           string    `db:"id"`
	UserID       string    `db:"user_id"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

// SecurityQuestion is a configured challenge question. AnswerHash is a
// bcrypt hash of the lowercased, trimmed answer and is never exposed.
type SecurityQuestion struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"-" db:"user_id"`
	Question   string    `json:"question" db:"question"`
	AnswerHash string    `json:"-" db:"answer_hash"`
	CreatedAt  time.Time `json:"-" db:"created_at"`
}
