package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/forumhub/auth-service/internal/domain"
)

// Token verification errors. Expiry is reported separately from every other
// defect so callers can surface it distinctly.
var (
	ErrTokenExpired = errors.New("token is expired")
	ErrTokenInvalid = errors.New("token is invalid")
)

// JWTManager mints and verifies the purpose-tagged HS256 tokens used across
// the service: access, refresh, reauth and password_reset.
type JWTManager struct {
	secret             []byte
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	reauthTokenExpiry  time.Duration
	resetTokenExpiry   time.Duration
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secret string, accessExpiry, refreshExpiry, reauthExpiry, resetExpiry time.Duration) *JWTManager {
	return &JWTManager{
		secret:             []byte(secret),
		accessTokenExpiry:  accessExpiry,
		refreshTokenExpiry: refreshExpiry,
		reauthTokenExpiry:  reauthExpiry,
		resetTokenExpiry:   resetExpiry,
	}
}

// GenerateAccessToken generates a new access token with claims
// {sub, username, role, purpose}
func (j *JWTManager) GenerateAccessToken(userID, username string, role domain.Role) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      userID,
		"username": username,
		"role":     string(role),
		"purpose":  string(domain.PurposeAccess),
		"iat":      now.Unix(),
		"exp":      now.Add(j.accessTokenExpiry).Unix(),
	})

	tokenString, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// GenerateRefreshToken generates a new refresh token with claims
// {sub, purpose} and a unique jti so two tokens for the same user never
// collide byte-for-byte
func (j *JWTManager) GenerateRefreshToken(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     userID,
		"purpose": string(domain.PurposeRefresh),
		"iat":     now.Unix(),
		"exp":     now.Add(j.refreshTokenExpiry).Unix(),
		"jti":     uuid.New().String(),
	})

	tokenString, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return tokenString, nil
}

// GenerateReauthToken generates a short-lived step-up token proving the
// password was re-entered
func (j *JWTManager) GenerateReauthToken(userID, username string) (string, error) {
	return j.generatePurposeToken(userID, username, domain.PurposeReauth, j.reauthTokenExpiry)
}

// GenerateResetToken generates the time-boxed credential produced by
// security question verification
func (j *JWTManager) GenerateResetToken(userID, username string) (string, error) {
	return j.generatePurposeToken(userID, username, domain.PurposePasswordReset, j.resetTokenExpiry)
}

func (j *JWTManager) generatePurposeToken(userID, username string, purpose domain.TokenPurpose, expiry time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      userID,
		"username": username,
		"purpose":  string(purpose),
		"iat":      now.Unix(),
		"exp":      now.Add(expiry).Unix(),
	})

	tokenString, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", purpose, err)
	}

	return tokenString, nil
}

// ValidateAccessToken validates an access token and returns its claims
func (j *JWTManager) ValidateAccessToken(tokenString string) (*domain.AccessClaims, error) {
	claims, err := j.parse(tokenString, domain.PurposeAccess)
	if err != nil {
		return nil, err
	}

	username, ok := claims["username"].(string)
	if !ok {
		return nil, fmt.Errorf("missing username claim: %w", ErrTokenInvalid)
	}

	role, ok := claims["role"].(string)
	if !ok || !domain.Role(role).Valid() {
		return nil, fmt.Errorf("missing or unknown role claim: %w", ErrTokenInvalid)
	}

	sub, _ := claims["sub"].(string)
	exp, _ := claims["exp"].(float64)
	iat, _ := claims["iat"].(float64)

	return &domain.AccessClaims{
		UserID:   sub,
		Username: username,
		Role:     domain.Role(role),
		Exp:      int64(exp),
		Iat:      int64(iat),
	}, nil
}

// ValidateRefreshToken validates a refresh token and returns the subject id
func (j *JWTManager) ValidateRefreshToken(tokenString string) (string, error) {
	claims, err := j.parse(tokenString, domain.PurposeRefresh)
	if err != nil {
		return "", err
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("missing sub claim: %w", ErrTokenInvalid)
	}

	return sub, nil
}

// ValidatePurposeToken validates a reauth or password_reset token and
// returns the subject id and username
func (j *JWTManager) ValidatePurposeToken(tokenString string, purpose domain.TokenPurpose) (string, string, error) {
	claims, err := j.parse(tokenString, purpose)
	if err != nil {
		return "", "", err
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", "", fmt.Errorf("missing sub claim: %w", ErrTokenInvalid)
	}

	username, _ := claims["username"].(string)

	return sub, username, nil
}

func (j *JWTManager) parse(tokenString string, purpose domain.TokenPurpose) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("failed to parse token: %w", ErrTokenExpired)
		}
		return nil, fmt.Errorf("failed to parse token: %w", ErrTokenInvalid)
	}

	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type: %w", ErrTokenInvalid)
	}

	if got, _ := claims["purpose"].(string); got != string(purpose) {
		return nil, fmt.Errorf("wrong token purpose: %w", ErrTokenInvalid)
	}

	return claims, nil
}

// GetAccessTokenExpiry returns the access token expiry duration in seconds
func (j *JWTManager) GetAccessTokenExpiry() int {
	return int(j.accessTokenExpiry.Seconds())
}

// GetRefreshTokenExpiry returns the refresh token expiry duration in seconds
func (j *JWTManager) GetRefreshTokenExpiry() int {
	return int(j.refreshTokenExpiry.Seconds())
}
