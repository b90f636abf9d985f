package repository

import (
	"github.com/forumhub/auth-service/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	User        UserRepository
	Token       TokenRepository
	SecurityLog SecurityLogRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		User:        NewUserRepository(db),
		Token:       NewTokenRepository(db),
		SecurityLog: NewSecurityLogRepository(db),
	}
}
