package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/forumhub/auth-service/internal/domain"
	"github.com/forumhub/auth-service/internal/repository"
)

// RequestMeta carries the request origin recorded with every security event.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// SecurityLogService writes the append-only security event log. Writes are
// best-effort: a store failure is reported through the logger and never
// surfaced to the caller, so a broken log can not fail or roll back the
// primary operation.
type SecurityLogService struct {
	repo   repository.SecurityLogRepository
	logger *zap.Logger
}

// NewSecurityLogService creates a new security log service
func NewSecurityLogService(repo repository.SecurityLogRepository, logger *zap.Logger) *SecurityLogService {
	return &SecurityLogService{repo: repo, logger: logger}
}

// Log appends one security event. userID may be nil for unauthenticated
// actors; username falls back to "unknown" so every entry names an actor.
func (s *SecurityLogService) Log(ctx context.Context, eventType domain.EventType, userID *string, username string, meta RequestMeta, severity domain.Severity, details map[string]any) {
	if username == "" {
		username = "unknown"
	}

	event := &domain.SecurityEvent{
		EventType: eventType,
		UserID:    userID,
		Username:  username,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Severity:  severity,
		Details:   details,
	}

	if err := s.repo.Insert(ctx, event); err != nil {
		s.logger.Error("failed to write security event",
			zap.String("event_type", string(eventType)),
			zap.String("username", username),
			zap.Error(err),
		)
	}
}

// RecentFailures counts LOGIN_FAILURE events by IP or username within the
// trailing window, usable as a secondary rate-limiting signal.
func (s *SecurityLogService) RecentFailures(ctx context.Context, identifier string, window time.Duration) (int, error) {
	return s.repo.CountRecentFailures(ctx, identifier, window)
}

// List returns security events matching the filter, newest first.
func (s *SecurityLogService) List(ctx context.Context, filter repository.LogFilter) ([]domain.SecurityEvent, error) {
	return s.repo.List(ctx, filter)
}
