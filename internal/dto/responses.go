package dto

// AuthResponse represents an authentication response
type AuthResponse struct {
	AccessToken           string   `json:"access_token"`
	TokenType             string   `json:"token_type"`
	ExpiresIn             int      `json:"expires_in"`
	User                  UserInfo `json:"user"`
	RequiresSecuritySetup bool     `json:"requires_security_setup,omitempty"`
}

// UserInfo represents user information in an auth response
type UserInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// UserResponse represents a user profile response
type UserResponse struct {
	ID              string  `json:"id"`
	Username        string  `json:"username"`
	Email           string  `json:"email"`
	Role            string  `json:"role"`
	CreatedAt       string  `json:"created_at"`
	LastLoginAt     *string `json:"last_login_at"`
	PreviousLoginAt *string `json:"previous_login_at"`
}

// SecurityQuestionView is a question exposed during recovery; answers are
// never included
type SecurityQuestionView struct {
	ID       string `json:"id"`
	Question string `json:"question"`
}

// SecurityQuestionsResponse lists a user's configured questions
type SecurityQuestionsResponse struct {
	Questions []SecurityQuestionView `json:"questions"`
}

// ReauthResponse carries a freshly minted step-up token
type ReauthResponse struct {
	Message     string `json:"message"`
	ReauthToken string `json:"reauthToken"`
}

// ResetTokenResponse carries the reset credential produced by recovery
type ResetTokenResponse struct {
	Message    string `json:"message"`
	ResetToken string `json:"resetToken"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}
