package service

import (
	"context"
	"time"

	"github.com/forumhub/auth-service/internal/domain"
	"github.com/forumhub/auth-service/internal/repository"
)

// LockoutPolicy gates authentication based on accumulated failed attempts.
// Counting and locking happen in a single conditional store update, so
// concurrent failed attempts on the same account never lose an increment.
//
// Lock duration grows with the attempt count: min(max, 2^(attempts-threshold))
// minutes, so hammering an already locked account stretches the window up to
// the configured ceiling.
type LockoutPolicy struct {
	users     repository.UserRepository
	threshold int
	maxLock   time.Duration
}

// NewLockoutPolicy creates a new lockout policy
func NewLockoutPolicy(users repository.UserRepository, threshold int, maxLock time.Duration) *LockoutPolicy {
	return &LockoutPolicy{
		users:     users,
		threshold: threshold,
		maxLock:   maxLock,
	}
}

// IsLocked reports whether the account currently rejects all attempts. Pure
// function of the lock expiry against the clock.
func (p *LockoutPolicy) IsLocked(user *domain.User) bool {
	return user.IsLocked(time.Now())
}

// RecordFailure counts one failed attempt and returns the resulting state.
// Crossing the threshold sets the lock expiry; an attempt arriving after a
// previous lock elapsed starts a fresh window instead of accumulating.
func (p *LockoutPolicy) RecordFailure(ctx context.Context, user *domain.User) (*repository.FailureUpdate, error) {
	return p.users.RecordFailure(ctx, user.ID, p.threshold, p.maxLock)
}

// JustLocked reports whether this failure update is the one that locked the
// account.
func (p *LockoutPolicy) JustLocked(update *repository.FailureUpdate) bool {
	return update.LockedUntil != nil && update.LockedUntil.After(time.Now()) && update.Attempts >= p.threshold
}

// RecordSuccess clears the counter and lock and rotates the login
// timestamps.
func (p *LockoutPolicy) RecordSuccess(ctx context.Context, user *domain.User) error {
	return p.users.RecordSuccess(ctx, user.ID)
}

// Threshold returns the failure count at which the account locks.
func (p *LockoutPolicy) Threshold() int {
	return p.threshold
}
