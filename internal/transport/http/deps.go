package http

import (
	"context"

	"github.com/jobportal-api/internal/domain"
)

// UserRepository is the minimal interface the router requires from an account store.
// Both the DynamoDB and PostgreSQL adapters satisfy it.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	SetPasswordHash(ctx context.Context, userID, hash string) error
}
