package service

import (
	"context"

	"github.com/forumhub/auth-service/internal/domain"
	"github.com/forumhub/auth-service/internal/dto"
	"github.com/forumhub/auth-service/internal/repository"
)

// AuthService defines the externally visible authentication operations.
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest, actor *domain.AccessClaims, meta RequestMeta) (*SessionResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest, meta RequestMeta) (*SessionResponse, error)
	OAuthLogin(ctx context.Context, req *dto.OAuthLoginRequest, meta RequestMeta) (*SessionResponse, error)
	Refresh(ctx context.Context, refreshToken string, meta RequestMeta) (*SessionResponse, error)
	Logout(ctx context.Context, refreshToken string, meta RequestMeta)

	Reauth(ctx context.Context, userID, password string, meta RequestMeta) (string, error)
	ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest, meta RequestMeta) error

	ListSecurityQuestions(ctx context.Context, username string, meta RequestMeta) ([]dto.SecurityQuestionView, error)
	SetSecurityQuestions(ctx context.Context, userID string, req *dto.SetSecurityQuestionsRequest, meta RequestMeta) error
	VerifySecurityQuestions(ctx context.Context, req *dto.VerifySecurityQuestionsRequest, meta RequestMeta) (string, error)
	ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest, meta RequestMeta) error

	ChangeRole(ctx context.Context, actor *domain.AccessClaims, targetID string, role domain.Role, meta RequestMeta) error
	ListSecurityLog(ctx context.Context, filter repository.LogFilter) ([]domain.SecurityEvent, error)

	ValidateAccess(ctx context.Context, token string) (*domain.AccessClaims, error)
	GetUser(ctx context.Context, userID string) (*dto.UserResponse, error)
}
