package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/forumhub/auth-service/internal/domain"
	"github.com/forumhub/auth-service/internal/dto"
	"github.com/forumhub/auth-service/internal/repository"
	"github.com/forumhub/auth-service/internal/utils"
)

// PredefinedQuestions is the fixed vocabulary of recovery questions.
// Free-text questions are not accepted: user-invented questions tend to have
// guessable answers.
var PredefinedQuestions = []string{
	"What is a specific childhood memory that stands out to you?",
	"What was the name of your first childhood friend?",
	"What is your oldest sibling's middle name?",
	"What street did you live on when you were 10 years old?",
	"What was your childhood nickname that only family used?",
}

// commonAnswers are rejected outright during setup.
var commonAnswers = map[string]struct{}{
	"john": {}, "mary": {}, "mike": {}, "sarah": {}, "david": {},
	"main": {}, "first": {}, "mom": {}, "dad": {}, "none": {},
	"n/a": {}, "na": {}, "idk": {}, "unknown": {}, "123": {},
	"abc": {}, "test": {},
}

// RecoveryFlow runs the security-question challenge that produces a
// time-boxed password reset credential, independent of the password itself.
type RecoveryFlow struct {
	users        repository.UserRepository
	jwtManager   *utils.JWTManager
	bcryptCost   int
	minQuestions int
	minAnswerLen int
}

// NewRecoveryFlow creates a new recovery flow
func NewRecoveryFlow(users repository.UserRepository, jwtManager *utils.JWTManager, bcryptCost, minQuestions, minAnswerLen int) *RecoveryFlow {
	return &RecoveryFlow{
		users:        users,
		jwtManager:   jwtManager,
		bcryptCost:   bcryptCost,
		minQuestions: minQuestions,
		minAnswerLen: minAnswerLen,
	}
}

// SetQuestions validates and installs a user's recovery questions. Requires
// at least minQuestions entries drawn from the predefined list, each with a
// normalized answer of minAnswerLen characters that is not trivially common.
// Answers are hashed with the same cost factor as passwords and never
// returned once set.
func (f *RecoveryFlow) SetQuestions(ctx context.Context, user *domain.User, submissions []dto.SecurityQuestionSubmission) error {
	if len(submissions) < f.minQuestions {
		return fmt.Errorf("at least %d security questions are required: %w", f.minQuestions, ErrPolicyViolation)
	}
	if len(submissions) > 3 {
		return fmt.Errorf("at most 3 security questions are allowed: %w", ErrPolicyViolation)
	}

	seen := make(map[string]struct{}, len(submissions))
	questions := make([]domain.SecurityQuestion, 0, len(submissions))

	for _, sub := range submissions {
		if !f.isPredefined(sub.Question) {
			return fmt.Errorf("unknown security question: %w", ErrValidation)
		}
		if _, dup := seen[sub.Question]; dup {
			return fmt.Errorf("duplicate security question: %w", ErrValidation)
		}
		seen[sub.Question] = struct{}{}

		answer := utils.NormalizeAnswer(sub.Answer)
		if len(answer) < f.minAnswerLen {
			return fmt.Errorf("answers must be at least %d characters long: %w", f.minAnswerLen, ErrValidation)
		}
		if _, common := commonAnswers[answer]; common {
			return fmt.Errorf("answer is too common: %w", ErrValidation)
		}

		hash, err := utils.HashPassword(answer, f.bcryptCost)
		if err != nil {
			return fmt.Errorf("failed to hash answer: %w", err)
		}

		questions = append(questions, domain.SecurityQuestion{
			UserID:     user.ID,
			Question:   sub.Question,
			AnswerHash: hash,
		})
	}

	if err := f.users.ReplaceSecurityQuestions(ctx, user.ID, questions); err != nil {
		return fmt.Errorf("failed to store security questions: %w", err)
	}

	return nil
}

// ListQuestions returns the question text for a user who has configured
// enough questions to run recovery. A missing user and a user without
// questions are indistinguishable to the caller.
func (f *RecoveryFlow) ListQuestions(ctx context.Context, username string) ([]dto.SecurityQuestionView, *domain.User, error) {
	user, err := f.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrNoSecurityQuestions
		}
		return nil, nil, fmt.Errorf("failed to look up user: %w", err)
	}

	questions, err := f.users.GetSecurityQuestions(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load security questions: %w", err)
	}
	if len(questions) < f.minQuestions {
		return nil, nil, ErrNoSecurityQuestions
	}

	views := make([]dto.SecurityQuestionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, dto.SecurityQuestionView{ID: q.ID, Question: q.Question})
	}

	return views, user, nil
}

// VerifyAnswers checks a recovery submission. Every submitted answer must
// match its stored hash and at least minQuestions matches are required, so
// partial or empty submissions fail closed. On success it returns a
// password_reset token bound to the user.
func (f *RecoveryFlow) VerifyAnswers(ctx context.Context, username string, answers []dto.SecurityAnswerSubmission) (string, *domain.User, error) {
	user, err := f.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to look up user: %w", err)
	}

	questions, err := f.users.GetSecurityQuestions(ctx, user.ID)
	if err != nil {
		return "", user, fmt.Errorf("failed to load security questions: %w", err)
	}
	if len(questions) == 0 || len(answers) == 0 {
		return "", user, ErrInvalidCredentials
	}

	byID := make(map[string]domain.SecurityQuestion, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	correct := 0
	for _, answer := range answers {
		question, ok := byID[answer.QuestionID]
		if !ok {
			continue
		}
		if utils.CheckPasswordHash(utils.NormalizeAnswer(answer.Answer), question.AnswerHash) {
			correct++
		}
	}

	if correct != len(answers) || correct < f.minQuestions {
		return "", user, ErrInvalidCredentials
	}

	resetToken, err := f.jwtManager.GenerateResetToken(user.ID, user.Username)
	if err != nil {
		return "", user, fmt.Errorf("failed to generate reset token: %w", err)
	}

	return resetToken, user, nil
}

func (f *RecoveryFlow) isPredefined(question string) bool {
	for _, q := range PredefinedQuestions {
		if q == question {
			return true
		}
	}
	return false
}
