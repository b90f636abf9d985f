package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/forumhub/auth-service/internal/domain"
	"github.com/forumhub/auth-service/pkg/database"
)

// securityLogRepository implements SecurityLogRepository interface
type securityLogRepository struct {
	db *database.Postgres
}

// NewSecurityLogRepository creates a new security log repository
func NewSecurityLogRepository(db *database.Postgres) SecurityLogRepository {
	return &securityLogRepository{db: db}
}

// Insert appends one security event. The table has no UPDATE or DELETE path
// in this codebase; entries are immutable once written.
func (r *securityLogRepository) Insert(ctx context.Context, event *domain.SecurityEvent) error {
	query := `
		INSERT INTO security_log (id, event_type, user_id, username, ip_address, user_agent, severity, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	if event.Details == nil {
		event.Details = map[string]any{}
	}

	details, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal event details: %w", err)
	}

	_, err = r.db.DB.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.UserID,
		event.Username,
		event.IPAddress,
		event.UserAgent,
		event.Severity,
		details,
		event.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert security event: %w", err)
	}

	return nil
}

// CountRecentFailures counts LOGIN_FAILURE events by IP or username within
// the trailing window
func (r *securityLogRepository) CountRecentFailures(ctx context.Context, identifier string, window time.Duration) (int, error) {
	query := `
		SELECT count(*)
		FROM security_log
		WHERE event_type = $1
		  AND created_at >= $2
		  AND (ip_address = $3 OR username = $3)
	`

	var count int
	err := r.db.DB.QueryRowContext(ctx, query,
		domain.EventLoginFailure,
		time.Now().Add(-window),
		identifier,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count recent failures: %w", err)
	}

	return count, nil
}

// List returns events matching the filter, newest first
func (r *securityLogRepository) List(ctx context.Context, filter LogFilter) ([]domain.SecurityEvent, error) {
	query := `
		SELECT id, event_type, user_id, username, ip_address, user_agent, severity, details, created_at
		FROM security_log
		WHERE ($1 = '' OR event_type = $1)
		  AND ($2 = '' OR severity = $2)
		  AND ($3 = '' OR username = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.DB.QueryContext(ctx, query,
		string(filter.EventType),
		string(filter.Severity),
		filter.Username,
		limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list security events: %w", err)
	}
	defer rows.Close()

	var events []domain.SecurityEvent
	for rows.Next() {
		var event domain.SecurityEvent
		var userID sql.NullString
		var details []byte

		err := rows.Scan(
			&event.ID,
			&event.EventType,
			&userID,
			&event.Username,
			&event.IPAddress,
			&event.UserAgent,
			&event.Severity,
			&details,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan security event: %w", err)
		}

		if userID.Valid {
			event.UserID = &userID.String
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &event.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal event details: %w", err)
			}
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate security events: %w", err)
	}

	return events, nil
}
