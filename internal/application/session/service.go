package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/jobportal-api/internal/domain"
	"github.com/jobportal-api/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

type LoginResult struct {
	Bearer string       `json:"bearer"`
	User   *domain.User `json:"user"`
}

type Service interface {
	Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error)
}

type userStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type jwtSigner interface {
	Sign(userID, role string) (string, error)
}

type ServiceDeps struct {
	UserRepo    userStore
	JWTProvider jwtSigner
}

type service struct {
	userRepo    userStore
	jwtProvider jwtSigner
}

func NewService(deps ServiceDeps) Service {
	return &service{userRepo: deps.UserRepo, jwtProvider: deps.JWTProvider}
}

// Login accepts a username or an email address. Unknown accounts and wrong passwords
// produce the same error.
func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, err
	}
	login := strings.ToLower(strings.TrimSpace(req.Login))
	u, err := s.userRepo.GetByUsername(ctx, login)
	if err != nil {
		u, err = s.userRepo.GetByEmail(ctx, login)
		if err != nil {
			return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
		}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	bearer, err := s.jwtProvider.Sign(u.UserID, u.Role)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Bearer: bearer, User: u}, nil
}
