package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/forumhub/auth-service/internal/domain"
	"github.com/forumhub/auth-service/internal/dto"
	"github.com/forumhub/auth-service/internal/service"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"

	// The refresh cookie is scoped to the refresh endpoint so it is not
	// replayed on every request.
	refreshCookiePath = "/api/v1/auth/refresh"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

func requestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

func (h *AuthHandler) setSessionCookies(c *gin.Context, resp *service.SessionResponse) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(accessTokenCookie, resp.AuthResponse.AccessToken, resp.AuthResponse.ExpiresIn, "/", "", true, true)
	c.SetCookie(refreshTokenCookie, resp.RefreshToken, resp.RefreshExpiresIn, refreshCookiePath, "", true, true)
}

func (h *AuthHandler) clearSessionCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(accessTokenCookie, "", -1, "/", "", true, true)
	c.SetCookie(refreshTokenCookie, "", -1, refreshCookiePath, "", true, true)
}

// actorClaims returns the authenticated caller's claims, when present.
func actorClaims(c *gin.Context) *domain.AccessClaims {
	v, exists := c.Get("claims")
	if !exists {
		return nil
	}
	claims, ok := v.(*domain.AccessClaims)
	if !ok {
		return nil
	}
	return claims
}

// Register handles user registration
// @Summary Register a new user
// @Description Register a new user and immediately issue a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration request"
// @Success 201 {object} dto.AuthResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	response, err := h.authService.Register(c.Request.Context(), &req, actorClaims(c), requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}

	h.setSessionCookies(c, response)
	c.JSON(http.StatusCreated, response.AuthResponse)
}

// Login handles user login
// @Summary Login user
// @Description Authenticate user with username and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login request"
// @Success 200 {object} dto.AuthResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 423 {object} dto.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	response, err := h.authService.Login(c.Request.Context(), &req, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}

	h.setSessionCookies(c, response)
	c.JSON(http.StatusOK, response.AuthResponse)
}

// OAuthLogin handles login with an upstream-verified identity
// @Summary Login via external identity provider
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.OAuthLoginRequest true "OAuth login request"
// @Success 200 {object} dto.AuthResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /auth/oauth [post]
func (h *AuthHandler) OAuthLogin(c *gin.Context) {
	var req dto.OAuthLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	response, err := h.authService.OAuthLogin(c.Request.Context(), &req, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}

	h.setSessionCookies(c, response)
	c.JSON(http.StatusOK, response.AuthResponse)
}

// Refresh handles token refresh
// @Summary Refresh tokens
// @Description Rotate the refresh token and issue a new pair
// @Tags auth
// @Produce json
// @Success 200 {object} dto.AuthResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshTokenCookie)
	if err != nil {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "Refresh token not found in cookie",
		})
		return
	}

	response, err := h.authService.Refresh(c.Request.Context(), refreshToken, requestMeta(c))
	if err != nil {
		h.clearSessionCookies(c)
		respondError(c, err)
		return
	}

	h.setSessionCookies(c, response)
	c.JSON(http.StatusOK, response.AuthResponse)
}

// Logout handles user logout
// @Summary Logout user
// @Description Revoke the refresh token and clear session cookies
// @Tags auth
// @Produce json
// @Success 200 {object} dto.SuccessResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken, _ := c.Cookie(refreshTokenCookie)

	h.authService.Logout(c.Request.Context(), refreshToken, requestMeta(c))

	h.clearSessionCookies(c)
	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Logged out successfully",
	})
}

// Reauth handles step-up re-authentication
// @Summary Re-authenticate for a sensitive operation
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.ReauthRequest true "Reauth request"
// @Success 200 {object} dto.ReauthResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/reauth [post]
func (h *AuthHandler) Reauth(c *gin.Context) {
	claims := actorClaims(c)
	if claims == nil {
		respondError(c, service.ErrUnauthorized)
		return
	}

	var req dto.ReauthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	token, err := h.authService.Reauth(c.Request.Context(), claims.UserID, req.Password, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ReauthResponse{
		Message:     "Re-authentication successful",
		ReauthToken: token,
	})
}

// ChangePassword handles self-service password change
// @Summary Change the current user's password
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.ChangePasswordRequest true "Change password request"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims := actorClaims(c)
	if claims == nil {
		respondError(c, service.ErrUnauthorized)
		return
	}

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), claims.UserID, &req, requestMeta(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Password changed successfully",
	})
}

// GetSecurityQuestions lists a user's recovery questions
// @Summary Get security questions for a username
// @Tags auth
// @Produce json
// @Param username query string true "Username"
// @Success 200 {object} dto.SecurityQuestionsResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /auth/security-questions [get]
func (h *AuthHandler) GetSecurityQuestions(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: "username query parameter is required",
		})
		return
	}

	questions, err := h.authService.ListSecurityQuestions(c.Request.Context(), username, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SecurityQuestionsResponse{Questions: questions})
}

// SetSecurityQuestions replaces the current user's recovery questions
// @Summary Configure security questions
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.SetSecurityQuestionsRequest true "Security questions"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /auth/security-questions [post]
func (h *AuthHandler) SetSecurityQuestions(c *gin.Context) {
	claims := actorClaims(c)
	if claims == nil {
		respondError(c, service.ErrUnauthorized)
		return
	}

	var req dto.SetSecurityQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.authService.SetSecurityQuestions(c.Request.Context(), claims.UserID, &req, requestMeta(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Security questions updated",
	})
}

// VerifySecurityQuestions checks recovery answers and issues a reset token
// @Summary Verify security question answers
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.VerifySecurityQuestionsRequest true "Recovery answers"
// @Success 200 {object} dto.ResetTokenResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/verify-security-questions [post]
func (h *AuthHandler) VerifySecurityQuestions(c *gin.Context) {
	var req dto.VerifySecurityQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	token, err := h.authService.VerifySecurityQuestions(c.Request.Context(), &req, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ResetTokenResponse{
		Message:    "Security questions verified",
		ResetToken: token,
	})
}

// ResetPassword sets a new password using a reset token
// @Summary Reset password with a recovery token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.ResetPasswordRequest true "Reset request"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), &req, requestMeta(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Password reset successfully",
	})
}

// GetMe handles getting current user profile
// @Summary Get current user profile
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.UserResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	claims := actorClaims(c)
	if claims == nil {
		respondError(c, service.ErrUnauthorized)
		return
	}

	user, err := h.authService.GetUser(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
