package service

import (
	"fmt"

	"github.com/forumhub/auth-service/internal/domain"
	"github.com/forumhub/auth-service/internal/utils"
)

// ReauthService issues short-lived step-up tokens proving the password was
// explicitly re-entered. Holding a still-valid session is not enough for
// sensitive mutations; a hijacked session alone cannot change the password.
type ReauthService struct {
	jwtManager *utils.JWTManager
}

// NewReauthService creates a new reauth service
func NewReauthService(jwtManager *utils.JWTManager) *ReauthService {
	return &ReauthService{jwtManager: jwtManager}
}

// IssueReauthToken verifies the supplied password against the current hash
// and mints a reauth-purpose token.
func (s *ReauthService) IssueReauthToken(user *domain.User, password string) (string, error) {
	if user.IsExternal() || !utils.CheckPasswordHash(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	token, err := s.jwtManager.GenerateReauthToken(user.ID, user.Username)
	if err != nil {
		return "", fmt.Errorf("failed to generate reauth token: %w", err)
	}

	return token, nil
}

// VerifyReauthToken checks a step-up token and confirms it belongs to the
// given user.
func (s *ReauthService) VerifyReauthToken(tokenString, userID string) error {
	sub, _, err := s.jwtManager.ValidatePurposeToken(tokenString, domain.PurposeReauth)
	if err != nil {
		return mapTokenError(err)
	}
	if sub != userID {
		return ErrTokenInvalid
	}
	return nil
}
