package service

import (
	"context"
	"fmt"
	"time"

	"github.com/forumhub/auth-service/internal/domain"
	"github.com/forumhub/auth-service/internal/repository"
	"github.com/forumhub/auth-service/internal/utils"
)

// PasswordHistoryGuard enforces password age and reuse constraints. The
// history keeps the most recent prior hashes; reuse checks also cover the
// current password, so history+current form the blocked set.
type PasswordHistoryGuard struct {
	users        repository.UserRepository
	historyLimit int
	minAge       time.Duration
}

// NewPasswordHistoryGuard creates a new password history guard
func NewPasswordHistoryGuard(users repository.UserRepository, historyLimit int, minAge time.Duration) *PasswordHistoryGuard {
	return &PasswordHistoryGuard{
		users:        users,
		historyLimit: historyLimit,
		minAge:       minAge,
	}
}

// CanChangePassword reports whether the current password is old enough to be
// replaced. Applies to self-service change only; reset flows bypass the age
// gate but still go through IsReused.
func (g *PasswordHistoryGuard) CanChangePassword(user *domain.User) bool {
	return !user.PasswordChangedAt.After(time.Now().Add(-g.minAge))
}

// IsReused reports whether candidate matches the current password or any of
// the retained historical hashes.
func (g *PasswordHistoryGuard) IsReused(ctx context.Context, user *domain.User, candidate string) (bool, error) {
	if user.PasswordHash != "" && utils.CheckPasswordHash(candidate, user.PasswordHash) {
		return true, nil
	}

	history, err := g.users.ListPasswordHistory(ctx, user.ID, g.historyLimit)
	if err != nil {
		return false, fmt.Errorf("failed to load password history: %w", err)
	}

	for _, entry := range history {
		if utils.CheckPasswordHash(candidate, entry.PasswordHash) {
			return true, nil
		}
	}

	return false, nil
}

// RecordChange archives the outgoing hash, trims the history to the
// configured depth and installs the new hash with a fresh change timestamp.
func (g *PasswordHistoryGuard) RecordChange(ctx context.Context, user *domain.User, newHash string) error {
	return g.users.UpdatePassword(ctx, user.ID, user.PasswordHash, newHash, g.historyLimit)
}
