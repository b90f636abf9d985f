package dto

// RegisterRequest represents a registration request. Role is honored only
// when the caller is already privileged; otherwise requesting an elevated
// role fails and is security-logged.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=20"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=12"`
	Role     string `json:"role" binding:"omitempty,oneof=admin moderator user"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// OAuthLoginRequest carries an upstream identity assertion. Verifying the
// assertion against the provider happens before this service; here it is an
// alternate credential-issuance path.
type OAuthLoginRequest struct {
	Provider string `json:"provider" binding:"required"`
	Subject  string `json:"subject" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,min=3,max=20"`
}

// ReauthRequest represents a step-up re-authentication request
type ReauthRequest struct {
	Password string `json:"password" binding:"required"`
}

// ChangePasswordRequest represents a self-service password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=12"`
	ReauthToken     string `json:"reauthToken" binding:"required"`
}

// SecurityQuestionSubmission is one question/answer pair during setup
type SecurityQuestionSubmission struct {
	Question string `json:"question" binding:"required"`
	Answer   string `json:"answer" binding:"required"`
}

// SetSecurityQuestionsRequest configures a user's recovery questions
type SetSecurityQuestionsRequest struct {
	Questions []SecurityQuestionSubmission `json:"questions" binding:"required,min=2,max=3,dive"`
}

// SecurityAnswerSubmission is one answer during recovery verification
type SecurityAnswerSubmission struct {
	QuestionID string `json:"questionId" binding:"required"`
	Answer     string `json:"answer" binding:"required"`
}

// VerifySecurityQuestionsRequest represents a recovery challenge response
type VerifySecurityQuestionsRequest struct {
	Username string                     `json:"username" binding:"required"`
	Answers  []SecurityAnswerSubmission `json:"answers" binding:"required,dive"`
}

// ResetPasswordRequest represents a password reset using a reset token
type ResetPasswordRequest struct {
	ResetToken  string `json:"resetToken" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=12"`
}

// RoleChangeRequest represents an administrative role change
type RoleChangeRequest struct {
	Role string `json:"role" binding:"required,oneof=admin moderator user"`
}
