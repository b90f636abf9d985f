package domain

import "time"

// TokenPurpose tags what a signed token may be used for. Every verifier
// checks the purpose claim, so an otherwise valid token cannot cross flows.
type TokenPurpose string

const (
	PurposeAccess        TokenPurpose = "access"
	PurposeRefresh       TokenPurpose = "refresh"
	PurposeReauth        TokenPurpose = "reauth"
	PurposePasswordReset TokenPurpose = "password_reset"
)

// AccessClaims are the claims embedded in an access token.
type AccessClaims struct {
	UserID   string `json:"sub"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Exp      int64  `json:"exp"`
	Iat      int64  `json:"iat"`
}

// IsExpired reports whether the claims are past their expiry.
func (c AccessClaims) IsExpired() bool {
	return time.Now().Unix() > c.Exp
}

// TokenPair is a freshly issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// RefreshToken is the persisted record backing a refresh token. The raw JWT
// is never stored; TokenHash is its SHA-256 hex digest. At most one valid
// record exists per user: issuing a session deletes all prior records.
type RefreshToken struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	TokenHash string    `json:"-" db:"token_hash"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	IPAddress *string   `json:"ip_address" db:"ip_address"`
	UserAgent *string   `json:"user_agent" db:"user_agent"`
}
