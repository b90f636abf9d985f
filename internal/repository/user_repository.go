package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/forumhub/auth-service/internal/domain"
	"github.com/forumhub/auth-service/pkg/database"
)

const userColumns = `id, username, email, password_hash, role, is_active,
		failed_attempt_count, locked_until, password_changed_at,
		last_login_at, previous_login_at, oauth_provider, oauth_subject,
		created_at, updated_at`

// userRepository implements UserRepository interface
type userRepository struct {
	db *database.Postgres
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.Postgres) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, role, is_active,
			oauth_provider, oauth_subject, password_changed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}
	if user.PasswordChangedAt.IsZero() {
		user.PasswordChangedAt = now
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.IsActive,
		user.OAuthProvider,
		user.OAuthSubject,
		user.PasswordChangedAt,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		// Unique constraint violations carry the index name, which tells
		// apart username and email conflicts.
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			if pqErr.Constraint == "users_email_key" {
				return fmt.Errorf("user with email %s already exists: %w", user.Email, ErrDuplicateEmail)
			}
			return fmt.Errorf("user with username %s already exists: %w", user.Username, ErrDuplicateUsername)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByUsername retrieves a user by username
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE username = $1`, userColumns)
	return r.scanUser(r.db.DB.QueryRowContext(ctx, query, username))
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	return r.scanUser(r.db.DB.QueryRowContext(ctx, query, id))
}

// GetByOAuth retrieves a user by its external identity linkage
func (r *userRepository) GetByOAuth(ctx context.Context, provider, subject string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE oauth_provider = $1 AND oauth_subject = $2`, userColumns)
	return r.scanUser(r.db.DB.QueryRowContext(ctx, query, provider, subject))
}

func (r *userRepository) scanUser(row *sql.Row) (*domain.User, error) {
	user := &domain.User{}
	var lockedUntil, lastLogin, previousLogin sql.NullTime
	var oauthProvider, oauthSubject sql.NullString

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.IsActive,
		&user.FailedAttemptCount,
		&lockedUntil,
		&user.PasswordChangedAt,
		&lastLogin,
		&previousLogin,
		&oauthProvider,
		&oauthSubject,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if lockedUntil.Valid {
		user.LockedUntil = &lockedUntil.Time
	}
	if lastLogin.Valid {
		user.LastLoginAt = &lastLogin.Time
	}
	if previousLogin.Valid {
		user.PreviousLoginAt = &previousLogin.Time
	}
	if oauthProvider.Valid {
		user.OAuthProvider = &oauthProvider.String
	}
	if oauthSubject.Valid {
		user.OAuthSubject = &oauthSubject.String
	}

	return user, nil
}

// UpdateRole changes a user's role
func (r *userRepository) UpdateRole(ctx context.Context, userID string, role domain.Role) error {
	query := `UPDATE users SET role = $2, updated_at = now() WHERE id = $1`

	result, err := r.db.DB.ExecContext(ctx, query, userID, role)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user with id %s not found: %w", userID, ErrNotFound)
	}

	return nil
}

// RecordFailure performs the increment-and-conditionally-lock update as a
// single statement, so concurrent failed attempts never lose an increment.
// A failure arriving after a lock has already elapsed starts a fresh window.
func (r *userRepository) RecordFailure(ctx context.Context, userID string, threshold int, maxLock time.Duration) (*FailureUpdate, error) {
	query := `
		UPDATE users SET
			failed_attempt_count = CASE
				WHEN locked_until IS NOT NULL AND locked_until <= now() THEN 1
				ELSE failed_attempt_count + 1
			END,
			locked_until = CASE
				WHEN locked_until IS NOT NULL AND locked_until <= now() THEN NULL
				WHEN failed_attempt_count + 1 >= $2 THEN
					now() + make_interval(mins => LEAST($3, power(2, failed_attempt_count + 1 - $2)::int))
				ELSE locked_until
			END,
			updated_at = now()
		WHERE id = $1
		RETURNING failed_attempt_count, locked_until
	`

	update := &FailureUpdate{}
	var lockedUntil sql.NullTime

	err := r.db.DB.QueryRowContext(ctx, query, userID, threshold, int(maxLock.Minutes())).
		Scan(&update.Attempts, &lockedUntil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with id %s not found: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to record login failure: %w", err)
	}

	if lockedUntil.Valid {
		update.LockedUntil = &lockedUntil.Time
	}

	return update, nil
}

// RecordSuccess clears the failure counter and lock and rotates the login
// timestamps in one statement.
func (r *userRepository) RecordSuccess(ctx context.Context, userID string) error {
	query := `
		UPDATE users SET
			failed_attempt_count = 0,
			locked_until = NULL,
			previous_login_at = last_login_at,
			last_login_at = now(),
			updated_at = now()
		WHERE id = $1
	`

	result, err := r.db.DB.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to record login success: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user with id %s not found: %w", userID, ErrNotFound)
	}

	return nil
}

// UpdatePassword swaps in the new hash, archives the outgoing one and trims
// the history, all inside one transaction.
func (r *userRepository) UpdatePassword(ctx context.Context, userID, oldHash, newHash string, keep int) error {
	tx, err := r.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if oldHash != "" {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO password_history (id, user_id, password_hash, created_at) VALUES ($1, $2, $3, now())`,
			uuid.New().String(), userID, oldHash,
		)
		if err != nil {
			return fmt.Errorf("failed to archive password: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM password_history
		WHERE user_id = $1 AND id NOT IN (
			SELECT id FROM password_history
			WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		)`, userID, keep)
	if err != nil {
		return fmt.Errorf("failed to trim password history: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, password_changed_at = now(), updated_at = now() WHERE id = $1`,
		userID, newHash,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user with id %s not found: %w", userID, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit password update: %w", err)
	}

	return nil
}

// ListPasswordHistory returns the most recent archived hashes, newest first
func (r *userRepository) ListPasswordHistory(ctx context.Context, userID string, limit int) ([]domain.PasswordHistoryEntry, error) {
	query := `
		SELECT id, user_id, password_hash, created_at
		FROM password_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.DB.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list password history: %w", err)
	}
	defer rows.Close()

	var entries []domain.PasswordHistoryEntry
	for rows.Next() {
		var entry domain.PasswordHistoryEntry
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.PasswordHash, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan password history entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate password history: %w", err)
	}

	return entries, nil
}

// ReplaceSecurityQuestions swaps the user's configured questions atomically
func (r *userRepository) ReplaceSecurityQuestions(ctx context.Context, userID string, questions []domain.SecurityQuestion) error {
	tx, err := r.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM security_questions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear security questions: %w", err)
	}

	for _, q := range questions {
		id := q.ID
		if id == "" {
			id = uuid.New().String()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO security_questions (id, user_id, question, answer_hash, created_at) VALUES ($1, $2, $3, $4, now())`,
			id, userID, q.Question, q.AnswerHash,
		)
		if err != nil {
			return fmt.Errorf("failed to insert security question: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit security questions: %w", err)
	}

	return nil
}

// GetSecurityQuestions returns the user's configured questions, oldest first
func (r *userRepository) GetSecurityQuestions(ctx context.Context, userID string) ([]domain.SecurityQuestion, error) {
	query := `
		SELECT id, user_id, question, answer_hash, created_at
		FROM security_questions
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get security questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.SecurityQuestion
	for rows.Next() {
		var q domain.SecurityQuestion
		if err := rows.Scan(&q.ID, &q.UserID, &q.Question, &q.AnswerHash, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan security question: %w", err)
		}
		questions = append(questions, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate security questions: %w", err)
	}

	return questions, nil
}
