package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/forumhub/auth-service/internal/domain"
	"github.com/forumhub/auth-service/internal/repository"
	"github.com/forumhub/auth-service/internal/utils"
)

// TokenService issues, verifies and rotates session tokens. Access tokens
// are stateless; refresh tokens are additionally persisted (hashed) so they
// can be revoked and rotated at most once.
type TokenService struct {
	tokens             repository.TokenRepository
	jwtManager         *utils.JWTManager
	blacklist          *TokenBlacklistService
	refreshTokenExpiry time.Duration
}

// NewTokenService creates a new token service
func NewTokenService(tokens repository.TokenRepository, jwtManager *utils.JWTManager, blacklist *TokenBlacklistService, refreshTokenExpiry time.Duration) *TokenService {
	return &TokenService{
		tokens:             tokens,
		jwtManager:         jwtManager,
		blacklist:          blacklist,
		refreshTokenExpiry: refreshTokenExpiry,
	}
}

// IssueSession mints a fresh access/refresh pair for the user. All prior
// refresh records for the user are deleted first: one active session per
// user.
func (s *TokenService) IssueSession(ctx context.Context, user *domain.User, meta RequestMeta) (*domain.TokenPair, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if err := s.tokens.DeleteAllForUser(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to invalidate prior sessions: %w", err)
	}

	if err := s.persistRefreshToken(ctx, user.ID, refreshToken, meta); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.jwtManager.GetAccessTokenExpiry(),
	}, nil
}

// VerifyAccess validates an access token and returns its claims.
func (s *TokenService) VerifyAccess(tokenString string) (*domain.AccessClaims, error) {
	claims, err := s.jwtManager.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, mapTokenError(err)
	}
	return claims, nil
}

// RotateRefresh consumes the presented refresh token and issues a new pair.
// The token must both verify cryptographically and still exist in the
// persisted record set; the record is consumed atomically, so of two
// concurrent rotations with the same token exactly one succeeds and the
// other fails with ErrTokenReused.
func (s *TokenService) RotateRefresh(ctx context.Context, refreshToken string, user *domain.User, meta RequestMeta) (*domain.TokenPair, error) {
	blacklisted, err := s.blacklist.IsTokenBlacklisted(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	if blacklisted {
		return nil, ErrTokenReused
	}

	record, err := s.tokens.Consume(ctx, hashToken(refreshToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenReused
		}
		return nil, fmt.Errorf("failed to consume refresh token: %w", err)
	}

	if record.UserID != user.ID {
		return nil, ErrTokenInvalid
	}
	if time.Now().After(record.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	// Blacklisting the consumed token is belt-and-braces on top of record
	// deletion; a blacklist write failure must not fail the rotation.
	_ = s.blacklist.AddToken(ctx, refreshToken, s.refreshTokenExpiry)

	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	newRefreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if err := s.persistRefreshToken(ctx, user.ID, newRefreshToken, meta); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.jwtManager.GetAccessTokenExpiry(),
	}, nil
}

// ValidateRefresh verifies a refresh token cryptographically and returns the
// subject id. Record existence is checked separately during rotation.
func (s *TokenService) ValidateRefresh(tokenString string) (string, error) {
	userID, err := s.jwtManager.ValidateRefreshToken(tokenString)
	if err != nil {
		return "", mapTokenError(err)
	}
	return userID, nil
}

// RevokeAllForUser deletes every refresh record owned by the user.
func (s *TokenService) RevokeAllForUser(ctx context.Context, userID string) error {
	if err := s.tokens.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return nil
}

// Revoke best-effort invalidates a single presented refresh token.
func (s *TokenService) Revoke(ctx context.Context, refreshToken string) error {
	_ = s.blacklist.AddToken(ctx, refreshToken, s.refreshTokenExpiry)

	if _, err := s.tokens.Consume(ctx, hashToken(refreshToken)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// RefreshExpiresIn returns the refresh token lifetime in seconds.
func (s *TokenService) RefreshExpiresIn() int {
	return int(s.refreshTokenExpiry.Seconds())
}

func (s *TokenService) persistRefreshToken(ctx context.Context, userID, refreshToken string, meta RequestMeta) error {
	record := &domain.RefreshToken{
		UserID:    userID,
		TokenHash: hashToken(refreshToken),
		ExpiresAt: time.Now().Add(s.refreshTokenExpiry),
	}
	if meta.IPAddress != "" {
		record.IPAddress = &meta.IPAddress
	}
	if meta.UserAgent != "" {
		record.UserAgent = &meta.UserAgent
	}

	if err := s.tokens.Create(ctx, record); err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	return nil
}

// hashToken hashes a token using SHA256 for storage; raw refresh tokens are
// never written to the store.
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, utils.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, utils.ErrTokenInvalid):
		return ErrTokenInvalid
	default:
		return err
	}
}
