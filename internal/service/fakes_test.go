package service

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"

	"github.com/forumhub/auth-service/internal/domain"
	"github.com/forumhub/auth-service/internal/repository"
	"github.com/forumhub/auth-service/internal/utils"
	"github.com/forumhub/auth-service/pkg/database"
)

// fakeUserRepo is an in-memory UserRepository with the same atomicity
// semantics as the SQL implementation: failure counting, history trimming
// and login timestamp rotation all happen under one lock.
type fakeUserRepo struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	history   map[string][]domain.PasswordHistoryEntry
	questions map[string][]domain.SecurityQuestion
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:     make(map[string]*domain.User),
		history:   make(map[string][]domain.PasswordHistoryEntry),
		questions: make(map[string][]domain.SecurityQuestion),
	}
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	if u.LockedUntil != nil {
		t := *u.LockedUntil
		c.LockedUntil = &t
	}
	return &c
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Username == user.Username {
			return repository.ErrDuplicateUsername
		}
		if existing.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}

	user.ID = uuid.New().String()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.PasswordChangedAt = now
	r.users[user.ID] = copyUser(user)
	return nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyUser(u), nil
}

func (r *fakeUserRepo) GetByOAuth(_ context.Context, provider, subject string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.OAuthProvider != nil && *u.OAuthProvider == provider &&
			u.OAuthSubject != nil && *u.OAuthSubject == subject {
			return copyUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) UpdateRole(_ context.Context, userID string, role domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.Role = role
	return nil
}

func (r *fakeUserRepo) RecordFailure(_ context.Context, userID string, threshold int, maxLock time.Duration) (*repository.FailureUpdate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}

	now := time.Now()
	if u.LockedUntil != nil && !u.LockedUntil.After(now) {
		// Previous lock elapsed: this failure starts a fresh window.
		u.FailedAttemptCount = 1
		u.LockedUntil = nil
	} else {
		u.FailedAttemptCount++
		if u.FailedAttemptCount >= threshold {
			mins := math.Pow(2, float64(u.FailedAttemptCount-threshold))
			lock := time.Duration(mins) * time.Minute
			if lock > maxLock {
				lock = maxLock
			}
			until := now.Add(lock)
			u.LockedUntil = &until
		}
	}

	update := &repository.FailureUpdate{Attempts: u.FailedAttemptCount}
	if u.LockedUntil != nil {
		t := *u.LockedUntil
		update.LockedUntil = &t
	}
	return update, nil
}

func (r *fakeUserRepo) RecordSuccess(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}

	now := time.Now()
	u.FailedAttemptCount = 0
	u.LockedUntil = nil
	u.PreviousLoginAt = u.LastLoginAt
	u.LastLoginAt = &now
	return nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, userID, oldHash, newHash string, keep int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}

	if oldHash != "" {
		entry := domain.PasswordHistoryEntry{
			ID:           uuid.New().String(),
			UserID:       userID,
			PasswordHash: oldHash,
			CreatedAt:    time.Now(),
		}
		r.history[userID] = append([]domain.PasswordHistoryEntry{entry}, r.history[userID]...)
		if len(r.history[userID]) > keep {
			r.history[userID] = r.history[userID][:keep]
		}
	}

	u.PasswordHash = newHash
	u.PasswordChangedAt = time.Now()
	return nil
}

func (r *fakeUserRepo) ListPasswordHistory(_ context.Context, userID string, limit int) ([]domain.PasswordHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	history := r.history[userID]
	if len(history) > limit {
		history = history[:limit]
	}
	out := make([]domain.PasswordHistoryEntry, len(history))
	copy(out, history)
	return out, nil
}

func (r *fakeUserRepo) ReplaceSecurityQuestions(_ context.Context, userID string, questions []domain.SecurityQuestion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := make([]domain.SecurityQuestion, len(questions))
	for i, q := range questions {
		q.ID = uuid.New().String()
		q.CreatedAt = time.Now()
		stored[i] = q
	}
	r.questions[userID] = stored
	return nil
}

func (r *fakeUserRepo) GetSecurityQuestions(_ context.Context, userID string) ([]domain.SecurityQuestion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.SecurityQuestion, len(r.questions[userID]))
	copy(out, r.questions[userID])
	return out, nil
}

// setLockedUntil rewinds or advances the lock expiry directly, for tests.
func (r *fakeUserRepo) setLockedUntil(userID string, t *time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[userID].LockedUntil = t
}

// setPasswordChangedAt backdates the change timestamp, for age gate tests.
func (r *fakeUserRepo) setPasswordChangedAt(userID string, t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[userID].PasswordChangedAt = t
}

// fakeTokenRepo is an in-memory TokenRepository. Consume removes the record
// under the lock, so exactly one of two racing callers wins.
type fakeTokenRepo struct {
	mu      sync.Mutex
	records map[string]*domain.RefreshToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{records: make(map[string]*domain.RefreshToken)}
}

func (r *fakeTokenRepo) Create(_ context.Context, token *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[token.TokenHash]; exists {
		return repository.ErrDuplicateToken
	}
	token.ID = uuid.New().String()
	token.CreatedAt = time.Now()
	stored := *token
	r.records[token.TokenHash] = &stored
	return nil
}

func (r *fakeTokenRepo) GetByTokenHash(_ context.Context, tokenHash string) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[tokenHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *record
	return &out, nil
}

func (r *fakeTokenRepo) Consume(_ context.Context, tokenHash string) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[tokenHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(r.records, tokenHash)
	out := *record
	return &out, nil
}

func (r *fakeTokenRepo) DeleteAllForUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for hash, record := range r.records {
		if record.UserID == userID {
			delete(r.records, hash)
		}
	}
	return nil
}

func (r *fakeTokenRepo) DeleteExpired(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for hash, record := range r.records {
		if record.ExpiresAt.Before(now) {
			delete(r.records, hash)
		}
	}
	return nil
}

func (r *fakeTokenRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// fakeSecurityLogRepo records events in memory; insertErr simulates a
// broken store for best-effort tests.
type fakeSecurityLogRepo struct {
	mu        sync.Mutex
	events    []domain.SecurityEvent
	insertErr error
}

func newFakeSecurityLogRepo() *fakeSecurityLogRepo {
	return &fakeSecurityLogRepo{}
}

func (r *fakeSecurityLogRepo) Insert(_ context.Context, event *domain.SecurityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.insertErr != nil {
		return r.insertErr
	}

	stored := *event
	stored.ID = uuid.New().String()
	stored.CreatedAt = time.Now()
	r.events = append(r.events, stored)
	return nil
}

func (r *fakeSecurityLogRepo) CountRecentFailures(_ context.Context, identifier string, window time.Duration) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-window)
	count := 0
	for _, e := range r.events {
		if e.EventType == domain.EventLoginFailure && e.CreatedAt.After(cutoff) &&
			(e.IPAddress == identifier || e.Username == identifier) {
			count++
		}
	}
	return count, nil
}

func (r *fakeSecurityLogRepo) List(_ context.Context, filter repository.LogFilter) ([]domain.SecurityEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.SecurityEvent
	for i := len(r.events) - 1; i >= 0; i-- {
		e := r.events[i]
		if filter.EventType != "" && e.EventType != filter.EventType {
			continue
		}
		if filter.Severity != "" && e.Severity != filter.Severity {
			continue
		}
		if filter.Username != "" && !strings.EqualFold(e.Username, filter.Username) {
			continue
		}
		out = append(out, e)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// byType returns recorded events of one type, oldest first.
func (r *fakeSecurityLogRepo) byType(eventType domain.EventType) []domain.SecurityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.SecurityEvent
	for _, e := range r.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (r *fakeSecurityLogRepo) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// newTestJWTManager returns a manager with production-shaped lifetimes.
func newTestJWTManager() *utils.JWTManager {
	return utils.NewJWTManager(
		"test-secret-key-that-is-at-least-32-characters-long",
		15*time.Minute, 7*24*time.Hour, 5*time.Minute, 15*time.Minute,
	)
}

// newTestRedis returns a Redis client backed by an in-process server.
func newTestRedis(t *testing.T) *database.Redis {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb, err := database.NewRedis(mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("failed to connect to miniredis: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}
