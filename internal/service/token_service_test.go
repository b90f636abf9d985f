package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forumhub/auth-service/internal/domain"
	"github.com/forumhub/auth-service/internal/utils"
)

func newTokenFixture(t *testing.T) (*TokenService, *fakeTokenRepo, *domain.User) {
	t.Helper()

	jwtManager := newTestJWTManager()
	tokens := newFakeTokenRepo()
	blacklist := NewTokenBlacklistService(newTestRedis(t))

	user := &domain.User{ID: "user-1", Username: "alice_01", Role: domain.RoleUser, IsActive: true}

	return NewTokenService(tokens, jwtManager, blacklist, 7*24*time.Hour), tokens, user
}

func TestIssueSession(t *testing.T) {
	svc, tokens, user := newTokenFixture(t)
	ctx := context.Background()

	pair, err := svc.IssueSession(ctx, user, RequestMeta{IPAddress: "10.0.0.1", UserAgent: "test-agent"})
	require.NoError(t, err)

	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int((15 * time.Minute).Seconds()), pair.ExpiresIn)
	assert.Equal(t, 1, tokens.count())

	claims, err := svc.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Username, claims.Username)
}

func TestSingleActiveSession(t *testing.T) {
	svc, tokens, user := newTokenFixture(t)
	ctx := context.Background()

	first, err := svc.IssueSession(ctx, user, RequestMeta{})
	require.NoError(t, err)
	second, err := svc.IssueSession(ctx, user, RequestMeta{})
	require.NoError(t, err)

	assert.Equal(t, 1, tokens.count(), "issuing a session invalidates prior ones")

	// The first session's refresh token no longer rotates.
	_, err = svc.RotateRefresh(ctx, first.RefreshToken, user, RequestMeta{})
	assert.ErrorIs(t, err, ErrTokenReused)

	_, err = svc.RotateRefresh(ctx, second.RefreshToken, user, RequestMeta{})
	assert.NoError(t, err)
}

func TestRotateRefresh(t *testing.T) {
	svc, tokens, user := newTokenFixture(t)
	ctx := context.Background()

	pair, err := svc.IssueSession(ctx, user, RequestMeta{})
	require.NoError(t, err)

	rotated, err := svc.RotateRefresh(ctx, pair.RefreshToken, user, RequestMeta{})
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)
	assert.Equal(t, 1, tokens.count())

	// The consumed token is dead, both via record deletion and blacklist.
	_, err = svc.RotateRefresh(ctx, pair.RefreshToken, user, RequestMeta{})
	assert.ErrorIs(t, err, ErrTokenReused)

	// The replacement still works.
	_, err = svc.RotateRefresh(ctx, rotated.RefreshToken, user, RequestMeta{})
	assert.NoError(t, err)
}

func TestRotateRefreshRejectsForeignUser(t *testing.T) {
	svc, _, user := newTokenFixture(t)
	ctx := context.Background()

	pair, err := svc.IssueSession(ctx, user, RequestMeta{})
	require.NoError(t, err)

	other := &domain.User{ID: "user-2", Username: "bob_99", Role: domain.RoleUser}
	_, err = svc.RotateRefresh(ctx, pair.RefreshToken, other, RequestMeta{})
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

// Two concurrent rotations of the same token: exactly one wins.
func TestConcurrentRotationSingleWinner(t *testing.T) {
	svc, _, user := newTokenFixture(t)
	ctx := context.Background()

	pair, err := svc.IssueSession(ctx, user, RequestMeta{})
	require.NoError(t, err)

	const racers = 8
	var wg sync.WaitGroup
	results := make(chan error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RotateRefresh(ctx, pair.RefreshToken, user, RequestMeta{})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins, reused := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case assert.ErrorIs(t, err, ErrTokenReused):
			reused++
		}
	}
	assert.Equal(t, 1, wins, "exactly one rotation must win")
	assert.Equal(t, racers-1, reused)
}

func TestRevoke(t *testing.T) {
	svc, tokens, user := newTokenFixture(t)
	ctx := context.Background()

	pair, err := svc.IssueSession(ctx, user, RequestMeta{})
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, pair.RefreshToken))
	assert.Equal(t, 0, tokens.count())

	_, err = svc.RotateRefresh(ctx, pair.RefreshToken, user, RequestMeta{})
	assert.ErrorIs(t, err, ErrTokenReused)

	// Revoking an unknown token is not an error.
	assert.NoError(t, svc.Revoke(ctx, pair.RefreshToken))
}

func TestRevokeAllForUser(t *testing.T) {
	svc, tokens, user := newTokenFixture(t)
	ctx := context.Background()

	pair, err := svc.IssueSession(ctx, user, RequestMeta{})
	require.NoError(t, err)

	require.NoError(t, svc.RevokeAllForUser(ctx, user.ID))
	assert.Equal(t, 0, tokens.count())

	_, err = svc.RotateRefresh(ctx, pair.RefreshToken, user, RequestMeta{})
	assert.ErrorIs(t, err, ErrTokenReused)
}

func TestVerifyAccessMapsErrors(t *testing.T) {
	svc, _, _ := newTokenFixture(t)

	_, err := svc.VerifyAccess("garbage")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	expired := utils.NewJWTManager(
		"test-secret-key-that-is-at-least-32-characters-long",
		-time.Minute, -time.Minute, -time.Minute, -time.Minute,
	)
	token, err := expired.GenerateAccessToken("user-1", "alice_01", domain.RoleUser)
	require.NoError(t, err)

	_, err = svc.VerifyAccess(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateRefreshRejectsAccessToken(t *testing.T) {
	svc, _, user := newTokenFixture(t)
	ctx := context.Background()

	pair, err := svc.IssueSession(ctx, user, RequestMeta{})
	require.NoError(t, err)

	_, err = svc.ValidateRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	userID, err := svc.ValidateRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}
