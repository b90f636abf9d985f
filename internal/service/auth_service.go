package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/forumhub/auth-service/internal/domain"
	"github.com/forumhub/auth-service/internal/dto"
	"github.com/forumhub/auth-service/internal/repository"
	"github.com/forumhub/auth-service/internal/utils"
)

// SessionResponse bundles the body returned to the client with the raw
// refresh token, which travels only in an httpOnly cookie.
type SessionResponse struct {
	AuthResponse     *dto.AuthResponse
	RefreshToken     string
	RefreshExpiresIn int
}

// AuthFacade orchestrates identity, lockout, password policy, recovery and
// token services into the externally visible authentication operations.
// Every authentication-relevant outcome produces exactly one security log
// entry.
type AuthFacade struct {
	users        repository.UserRepository
	tokens       *TokenService
	lockout      *LockoutPolicy
	passwords    *PasswordHistoryGuard
	recovery     *RecoveryFlow
	reauth       *ReauthService
	blacklist    *TokenBlacklistService
	secLog       *SecurityLogService
	jwtManager   *utils.JWTManager
	bcryptCost   int
	resetTokenTTL time.Duration
	logger       *zap.Logger
}

func NewAuthFacade(
	users repository.UserRepository,
	tokens *TokenService,
	lockout *LockoutPolicy,
	passwords *PasswordHistoryGuard,
	recovery *RecoveryFlow,
	reauth *ReauthService,
	blacklist *TokenBlacklistService,
	secLog *SecurityLogService,
	jwtManager *utils.JWTManager,
	bcryptCost int,
	resetTokenTTL time.Duration,
	logger *zap.Logger,
) *AuthFacade {
	return &AuthFacade{
		users:         users,
		tokens:        tokens,
		lockout:       lockout,
		passwords:     passwords,
		recovery:      recovery,
		reauth:        reauth,
		blacklist:     blacklist,
		secLog:        secLog,
		jwtManager:    jwtManager,
		bcryptCost:    bcryptCost,
		resetTokenTTL: resetTokenTTL,
		logger:        logger,
	}
}

// Register creates a local account and, on success, immediately issues a
// session. Requesting an elevated role requires an already-privileged actor.
func (s *AuthFacade) Register(ctx context.Context, req *dto.RegisterRequest, actor *domain.AccessClaims, meta RequestMeta) (*SessionResponse, error) {
	if !utils.ValidateUsername(req.Username, false) {
		return nil, ErrValidation
	}
	email := utils.SanitizeEmail(req.Email)
	if !utils.ValidateEmail(email) {
		return nil, ErrValidation
	}
	if !utils.ValidatePassword(req.Password) {
		s.secLog.Log(ctx, domain.EventValidationFailure, nil, req.Username, meta, domain.SeverityLow,
			map[string]any{"field": "password"})
		return nil, ErrValidation
	}

	role := domain.RoleUser
	if req.Role != "" && domain.Role(req.Role) != domain.RoleUser {
		if actor == nil || !actor.Role.Privileged() {
			s.secLog.Log(ctx, domain.EventUnauthorizedRole, nil, req.Username, meta, domain.SeverityHigh,
				map[string]any{"requested_role": req.Role})
			return nil, ErrForbidden
		}
		role = domain.Role(req.Role)
	}

	hash, err := utils.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     req.Username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.secLog.Log(ctx, domain.EventRegistration, &user.ID, user.Username, meta, domain.SeverityLow,
		map[string]any{"role": string(role)})

	resp, err := s.issueSession(ctx, user, meta)
	if err != nil {
		return nil, err
	}
	// New accounts have no recovery questions yet; the client is told to
	// prompt for them.
	resp.AuthResponse.RequiresSecuritySetup = true
	return resp, nil
}

// Login authenticates a local credential. The lockout window is checked
// before the password so a locked account rejects even the correct password,
// and a failure during an active lock is not counted again.
func (s *AuthFacade) Login(ctx context.Context, req *dto.LoginRequest, meta RequestMeta) (*SessionResponse, error) {
	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.secLog.Log(ctx, domain.EventLoginFailure, nil, req.Username, meta, domain.SeverityMedium,
				map[string]any{"reason": "unknown user"})
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if s.lockout.IsLocked(user) {
		s.secLog.Log(ctx, domain.EventLoginFailure, &user.ID, user.Username, meta, domain.SeverityMedium,
			map[string]any{"reason": "account locked", "locked_until": user.LockedUntil})
		return nil, ErrAccountLocked
	}

	if !user.IsActive {
		s.secLog.Log(ctx, domain.EventLoginFailure, &user.ID, user.Username, meta, domain.SeverityHigh,
			map[string]any{"reason": "account inactive"})
		return nil, ErrAccountInactive
	}

	if user.IsExternal() || !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, s.recordLoginFailure(ctx, user, meta)
	}

	if err := s.lockout.RecordSuccess(ctx, user); err != nil {
		return nil, err
	}
	s.secLog.Log(ctx, domain.EventLoginSuccess, &user.ID, user.Username, meta, domain.SeverityLow, nil)

	return s.issueSession(ctx, user, meta)
}

func (s *AuthFacade) recordLoginFailure(ctx context.Context, user *domain.User, meta RequestMeta) error {
	update, err := s.lockout.RecordFailure(ctx, user)
	if err != nil {
		return err
	}
	details := map[string]any{"reason": "invalid password", "failed_attempts": update.Attempts}
	if s.lockout.JustLocked(update) {
		s.secLog.Log(ctx, domain.EventAccountLocked, &user.ID, user.Username, meta, domain.SeverityHigh,
			map[string]any{"failed_attempts": update.Attempts, "locked_until": update.LockedUntil})
		return ErrAccountLocked
	}
	s.secLog.Log(ctx, domain.EventLoginFailure, &user.ID, user.Username, meta, domain.SeverityMedium, details)
	return ErrInvalidCredentials
}

// OAuthLogin issues a session for an upstream-verified identity, creating
// the local account on first sight.
func (s *AuthFacade) OAuthLogin(ctx context.Context, req *dto.OAuthLoginRequest, meta RequestMeta) (*SessionResponse, error) {
	user, err := s.users.GetByOAuth(ctx, req.Provider, req.Subject)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		user, err = s.provisionOAuthUser(ctx, req, meta)
		if err != nil {
			return nil, err
		}
	}

	if !user.IsActive {
		s.secLog.Log(ctx, domain.EventLoginFailure, &user.ID, user.Username, meta, domain.SeverityHigh,
			map[string]any{"reason": "account inactive", "provider": req.Provider})
		return nil, ErrAccountInactive
	}

	if err := s.lockout.RecordSuccess(ctx, user); err != nil {
		return nil, err
	}
	s.secLog.Log(ctx, domain.EventOAuthLogin, &user.ID, user.Username, meta, domain.SeverityLow,
		map[string]any{"provider": req.Provider})

	return s.issueSession(ctx, user, meta)
}

func (s *AuthFacade) provisionOAuthUser(ctx context.Context, req *dto.OAuthLoginRequest, meta RequestMeta) (*domain.User, error) {
	if !utils.ValidateUsername(req.Username, true) {
		return nil, ErrValidation
	}
	email := utils.SanitizeEmail(req.Email)
	if !utils.ValidateEmail(email) {
		return nil, ErrValidation
	}
	user := &domain.User{
		Username:      req.Username,
		Email:         email,
		Role:          domain.RoleUser,
		IsActive:      true,
		OAuthProvider: &req.Provider,
		OAuthSubject:  &req.Subject,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.secLog.Log(ctx, domain.EventRegistration, &user.ID, user.Username, meta, domain.SeverityLow,
		map[string]any{"provider": req.Provider})
	return user, nil
}

// Refresh rotates a refresh token and returns a fresh pair. A replayed
// token is treated as evidence of theft: the attempt is logged and the
// caller gets the same response as for any invalid token.
func (s *AuthFacade) Refresh(ctx context.Context, refreshToken string, meta RequestMeta) (*SessionResponse, error) {
	userID, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	pair, err := s.tokens.RotateRefresh(ctx, refreshToken, user, meta)
	if err != nil {
		if errors.Is(err, ErrTokenReused) {
			s.secLog.Log(ctx, domain.EventUnauthorizedAccess, &user.ID, user.Username, meta, domain.SeverityHigh,
				map[string]any{"reason": "refresh token replay"})
		}
		return nil, err
	}
	return s.sessionResponse(user, pair), nil
}

// Logout revokes the presented refresh token. It never fails: an absent or
// invalid token still produces a logout event and an empty success, so the
// response does not leak session state.
func (s *AuthFacade) Logout(ctx context.Context, refreshToken string, meta RequestMeta) {
	username := "unknown"
	var userID *string
	if refreshToken != "" {
		if uid, err := s.tokens.ValidateRefresh(refreshToken); err == nil {
			if user, uerr := s.users.GetByID(ctx, uid); uerr == nil {
				username = user.Username
				userID = &user.ID
			}
		}
		if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
			s.logger.Warn("failed to revoke refresh token on logout", zap.Error(err))
		}
	}
	s.secLog.Log(ctx, domain.EventLogout, userID, username, meta, domain.SeverityLow, nil)
}

// Reauth verifies the caller's password and mints a short-lived step-up
// token for sensitive operations.
func (s *AuthFacade) Reauth(ctx context.Context, userID, password string, meta RequestMeta) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	token, err := s.reauth.IssueReauthToken(user, password)
	if err != nil {
		s.secLog.Log(ctx, domain.EventReauthFailure, &user.ID, user.Username, meta, domain.SeverityMedium, nil)
		return "", err
	}
	s.secLog.Log(ctx, domain.EventReauthSuccess, &user.ID, user.Username, meta, domain.SeverityLow, nil)
	return token, nil
}

// ChangePassword performs a self-service password change. It requires a
// valid step-up token, the current password, a password old enough to
// change, and a new password that passes policy and history checks.
func (s *AuthFacade) ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest, meta RequestMeta) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}

	if err := s.reauth.VerifyReauthToken(req.ReauthToken, user.ID); err != nil {
		s.secLog.Log(ctx, domain.EventPasswordChangeBad, &user.ID, user.Username, meta, domain.SeverityHigh,
			map[string]any{"reason": "invalid reauth token"})
		return ErrUnauthorized
	}

	if !s.passwords.CanChangePassword(user) {
		s.secLog.Log(ctx, domain.EventPasswordChangeHeld, &user.ID, user.Username, meta, domain.SeverityMedium,
			map[string]any{"reason": "minimum password age not met"})
		return ErrPolicyViolation
	}

	if user.IsExternal() || !utils.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
		s.secLog.Log(ctx, domain.EventPasswordChangeBad, &user.ID, user.Username, meta, domain.SeverityHigh,
			map[string]any{"reason": "current password mismatch"})
		return ErrInvalidCredentials
	}

	if err := s.applyNewPassword(ctx, user, req.NewPassword, meta, domain.EventPasswordChangeBad); err != nil {
		return err
	}

	s.secLog.Log(ctx, domain.EventPasswordChangeOK, &user.ID, user.Username, meta, domain.SeverityLow, nil)
	return nil
}

// applyNewPassword runs policy and reuse checks, then persists the new hash.
// failureEvent names the event logged for a reuse rejection so change and
// reset flows report under their own types.
func (s *AuthFacade) applyNewPassword(ctx context.Context, user *domain.User, newPassword string, meta RequestMeta, failureEvent domain.EventType) error {
	if !utils.ValidatePassword(newPassword) {
		return ErrValidation
	}

	reused, err := s.passwords.IsReused(ctx, user, newPassword)
	if err != nil {
		return err
	}
	if reused {
		s.secLog.Log(ctx, failureEvent, &user.ID, user.Username, meta, domain.SeverityMedium,
			map[string]any{"reason": "password reuse"})
		return ErrReuseViolation
	}

	hash, err := utils.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	return s.passwords.RecordChange(ctx, user, hash)
}

// ListSecurityQuestions returns the questions configured for a username.
// Unknown users and users without questions are indistinguishable.
func (s *AuthFacade) ListSecurityQuestions(ctx context.Context, username string, meta RequestMeta) ([]dto.SecurityQuestionView, error) {
	views, user, err := s.recovery.ListQuestions(ctx, username)
	if err != nil {
		return nil, err
	}
	s.secLog.Log(ctx, domain.EventQuestionsRequested, &user.ID, user.Username, meta, domain.SeverityLow, nil)
	return views, nil
}

// SetSecurityQuestions replaces the caller's recovery questions.
func (s *AuthFacade) SetSecurityQuestions(ctx context.Context, userID string, req *dto.SetSecurityQuestionsRequest, meta RequestMeta) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}

	if err := s.recovery.SetQuestions(ctx, user, req.Questions); err != nil {
		if errors.Is(err, ErrValidation) || errors.Is(err, ErrPolicyViolation) {
			s.secLog.Log(ctx, domain.EventQuestionsFailure, &user.ID, user.Username, meta, domain.SeverityLow,
				map[string]any{"reason": "submission rejected"})
		}
		return err
	}

	s.secLog.Log(ctx, domain.EventQuestionsSet, &user.ID, user.Username, meta, domain.SeverityLow,
		map[string]any{"count": len(req.Questions)})
	return nil
}

// VerifySecurityQuestions checks recovery answers and, when every submitted
// answer is correct and meets the minimum, returns a single-purpose reset
// token.
func (s *AuthFacade) VerifySecurityQuestions(ctx context.Context, req *dto.VerifySecurityQuestionsRequest, meta RequestMeta) (string, error) {
	token, user, err := s.recovery.VerifyAnswers(ctx, req.Username, req.Answers)
	if err != nil {
		if user != nil {
			s.secLog.Log(ctx, domain.EventQuestionsVerifyBad, &user.ID, user.Username, meta, domain.SeverityHigh, nil)
		} else {
			s.secLog.Log(ctx, domain.EventQuestionsVerifyBad, nil, req.Username, meta, domain.SeverityMedium,
				map[string]any{"reason": "unknown user"})
		}
		return "", err
	}

	s.secLog.Log(ctx, domain.EventQuestionsVerifyOK, &user.ID, user.Username, meta, domain.SeverityMedium, nil)
	return token, nil
}

// ResetPassword consumes a reset token and sets a new password. The token
// is single-use: a successful reset blacklists it for its remaining
// lifetime. Reuse history still applies; minimum password age does not.
func (s *AuthFacade) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest, meta RequestMeta) error {
	userID, username, err := s.jwtManager.ValidatePurposeToken(req.ResetToken, domain.PurposePasswordReset)
	if err != nil {
		s.secLog.Log(ctx, domain.EventPasswordResetBad, nil, username, meta, domain.SeverityHigh,
			map[string]any{"reason": "invalid reset token"})
		return mapTokenError(err)
	}

	used, err := s.blacklist.IsTokenBlacklisted(ctx, req.ResetToken)
	if err != nil {
		return err
	}
	if used {
		s.secLog.Log(ctx, domain.EventPasswordResetBad, &userID, username, meta, domain.SeverityHigh,
			map[string]any{"reason": "reset token replay"})
		return ErrTokenReused
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTokenInvalid
		}
		return err
	}

	if err := s.applyNewPassword(ctx, user, req.NewPassword, meta, domain.EventPasswordResetBad); err != nil {
		return err
	}

	if err := s.blacklist.AddToken(ctx, req.ResetToken, s.resetTokenTTL); err != nil {
		s.logger.Warn("failed to blacklist consumed reset token", zap.Error(err))
	}
	// A reset proves the old credential may be compromised; drop every
	// outstanding session.
	if err := s.tokens.RevokeAllForUser(ctx, user.ID); err != nil {
		s.logger.Warn("failed to revoke sessions after password reset", zap.Error(err))
	}

	s.secLog.Log(ctx, domain.EventPasswordResetOK, &user.ID, user.Username, meta, domain.SeverityMedium, nil)
	return nil
}

// ChangeRole updates a user's role. Only admins may change roles.
func (s *AuthFacade) ChangeRole(ctx context.Context, actor *domain.AccessClaims, targetID string, role domain.Role, meta RequestMeta) error {
	if actor == nil {
		return ErrUnauthorized
	}
	if actor.Role != domain.RoleAdmin {
		s.secLog.Log(ctx, domain.EventUnauthorizedRole, &actor.UserID, actor.Username, meta, domain.SeverityHigh,
			map[string]any{"target_user_id": targetID, "requested_role": string(role)})
		return ErrForbidden
	}
	if !role.Valid() {
		return ErrValidation
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if err := s.users.UpdateRole(ctx, target.ID, role); err != nil {
		return err
	}

	s.secLog.Log(ctx, domain.EventRoleUpdate, &actor.UserID, actor.Username, meta, domain.SeverityMedium,
		map[string]any{"target_user_id": target.ID, "old_role": string(target.Role), "new_role": string(role)})
	return nil
}

// ListSecurityLog returns security events matching the filter.
func (s *AuthFacade) ListSecurityLog(ctx context.Context, filter repository.LogFilter) ([]domain.SecurityEvent, error) {
	return s.secLog.List(ctx, filter)
}

// ValidateAccess verifies an access token and returns its claims.
func (s *AuthFacade) ValidateAccess(ctx context.Context, token string) (*domain.AccessClaims, error) {
	return s.tokens.VerifyAccess(token)
}

// GetUser returns a user's profile.
func (s *AuthFacade) GetUser(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	resp := &dto.UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
	if user.LastLoginAt != nil {
		v := user.LastLoginAt.Format(time.RFC3339)
		resp.LastLoginAt = &v
	}
	if user.PreviousLoginAt != nil {
		v := user.PreviousLoginAt.Format(time.RFC3339)
		resp.PreviousLoginAt = &v
	}
	return resp, nil
}

func (s *AuthFacade) issueSession(ctx context.Context, user *domain.User, meta RequestMeta) (*SessionResponse, error) {
	pair, err := s.tokens.IssueSession(ctx, user, meta)
	if err != nil {
		return nil, err
	}
	return s.sessionResponse(user, pair), nil
}

func (s *AuthFacade) sessionResponse(user *domain.User, pair *domain.TokenPair) *SessionResponse {
	return &SessionResponse{
		AuthResponse: &dto.AuthResponse{
			AccessToken: pair.AccessToken,
			TokenType:   pair.TokenType,
			ExpiresIn:   pair.ExpiresIn,
			User: dto.UserInfo{
				ID:       user.ID,
				Username: user.Username,
				Role:     string(user.Role),
			},
		},
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresIn: s.tokens.RefreshExpiresIn(),
	}
}
