package repository

import (
	"context"
	"time"

	"github.com/forumhub/auth-service/internal/domain"
)

// FailureUpdate is the outcome of an atomic failed-attempt increment.
type FailureUpdate struct {
	Attempts    int
	LockedUntil *time.Time
}

// UserRepository defines methods for user identity operations.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByOAuth(ctx context.Context, provider, subject string) (*domain.User, error)
	UpdateRole(ctx context.Context, userID string, role domain.Role) error

	// RecordFailure atomically increments the failed-attempt counter and,
	// when the counter reaches threshold, sets the lock expiry to
	// now + min(maxLock, 2^(attempts-threshold)) minutes. A failure arriving
	// after a previous lock has elapsed starts a fresh window (counter = 1).
	RecordFailure(ctx context.Context, userID string, threshold int, maxLock time.Duration) (*FailureUpdate, error)

	// RecordSuccess atomically clears the counter and lock fields and
	// rotates previous_login_at <- last_login_at <- now.
	RecordSuccess(ctx context.Context, userID string) error

	// UpdatePassword sets the new hash, stamps password_changed_at, pushes
	// the outgoing hash onto the history and trims it to keep entries,
	// all within one transaction.
	UpdatePassword(ctx context.Context, userID, oldHash, newHash string, keep int) error
	ListPasswordHistory(ctx context.Context, userID string, limit int) ([]domain.PasswordHistoryEntry, error)

	ReplaceSecurityQuestions(ctx context.Context, userID string, questions []domain.SecurityQuestion) error
	GetSecurityQuestions(ctx context.Context, userID string) ([]domain.SecurityQuestion, error)
}

// TokenRepository defines methods for refresh token records.
type TokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)

	// Consume atomically deletes the record for tokenHash and returns it.
	// When two callers race on the same hash, exactly one receives the
	// record; the other gets ErrNotFound.
	Consume(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)

	DeleteAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) error
}

// SecurityLogRepository persists append-only security events.
type SecurityLogRepository interface {
	Insert(ctx context.Context, event *domain.SecurityEvent) error

	// CountRecentFailures counts LOGIN_FAILURE events matching identifier
	// (by IP address or username) within the trailing window.
	CountRecentFailures(ctx context.Context, identifier string, window time.Duration) (int, error)

	List(ctx context.Context, filter LogFilter) ([]domain.SecurityEvent, error)
}

// LogFilter narrows a security log listing.
type LogFilter struct {
	EventType domain.EventType
	Severity  domain.Severity
	Username  string
	Limit     int
	Offset    int
}
