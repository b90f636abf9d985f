package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/forumhub/auth-service/internal/domain"
)

const testSecret = "test-secret-key-that-is-at-least-32-characters-long"

func newTestManager() *JWTManager {
	return NewJWTManager(testSecret, 15*time.Minute, 7*24*time.Hour, 5*time.Minute, 15*time.Minute)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := newTestManager()

	token, err := m.GenerateAccessToken("user-1", "alice_01", domain.RoleModerator)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	claims, err := m.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", claims.UserID, "user-1")
	}
	if claims.Username != "alice_01" {
		t.Errorf("Username = %q, want %q", claims.Username, "alice_01")
	}
	if claims.Role != domain.RoleModerator {
		t.Errorf("Role = %q, want %q", claims.Role, domain.RoleModerator)
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	m := newTestManager()

	token, err := m.GenerateRefreshToken("user-1")
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	userID, err := m.ValidateRefreshToken(token)
	if err != nil {
		t.Fatalf("ValidateRefreshToken: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("userID = %q, want %q", userID, "user-1")
	}
}

func TestRefreshTokensAreUnique(t *testing.T) {
	m := newTestManager()

	a, _ := m.GenerateRefreshToken("user-1")
	b, _ := m.GenerateRefreshToken("user-1")
	if a == b {
		t.Error("two refresh tokens for the same user should not be identical")
	}
}

// A token minted for one purpose must be rejected by every other verifier.
func TestPurposeIsEnforced(t *testing.T) {
	m := newTestManager()

	access, _ := m.GenerateAccessToken("user-1", "alice_01", domain.RoleUser)
	refresh, _ := m.GenerateRefreshToken("user-1")
	reauth, _ := m.GenerateReauthToken("user-1", "alice_01")
	reset, _ := m.GenerateResetToken("user-1", "alice_01")

	if _, err := m.ValidateAccessToken(refresh); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("access verifier accepted a refresh token: %v", err)
	}
	if _, err := m.ValidateRefreshToken(access); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("refresh verifier accepted an access token: %v", err)
	}
	if _, _, err := m.ValidatePurposeToken(reset, domain.PurposeReauth); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("reauth verifier accepted a reset token: %v", err)
	}
	if _, _, err := m.ValidatePurposeToken(reauth, domain.PurposePasswordReset); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("reset verifier accepted a reauth token: %v", err)
	}
	if _, err := m.ValidateAccessToken(reauth); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("access verifier accepted a reauth token: %v", err)
	}
}

func TestExpiredTokenIsRejected(t *testing.T) {
	m := NewJWTManager(testSecret, -time.Minute, -time.Minute, -time.Minute, -time.Minute)

	token, err := m.GenerateAccessToken("user-1", "alice_01", domain.RoleUser)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	if _, err := newTestManager().ValidateAccessToken(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTamperedTokenIsRejected(t *testing.T) {
	m := newTestManager()
	other := NewJWTManager("another-secret-key-that-is-long-enough-too", 15*time.Minute, time.Hour, time.Minute, time.Minute)

	token, _ := other.GenerateAccessToken("user-1", "alice_01", domain.RoleUser)
	if _, err := m.ValidateAccessToken(token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid for foreign signature, got %v", err)
	}

	if _, err := m.ValidateAccessToken("not.a.token"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid for garbage, got %v", err)
	}
}

func TestValidatePurposeTokenReturnsSubject(t *testing.T) {
	m := newTestManager()

	token, _ := m.GenerateResetToken("user-9", "bob_99")
	userID, username, err := m.ValidatePurposeToken(token, domain.PurposePasswordReset)
	if err != nil {
		t.Fatalf("ValidatePurposeToken: %v", err)
	}
	if userID != "user-9" || username != "bob_99" {
		t.Errorf("got (%q, %q), want (user-9, bob_99)", userID, username)
	}
}
