package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jobportal-api/internal/domain"
	"github.com/jobportal-api/internal/pkg/id"
	"github.com/jobportal-api/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
}

type userStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	SetPasswordHash(ctx context.Context, userID, hash string) error
}

type service struct {
	repo   userStore
	admins map[string]struct{}
	now    func() time.Time
}

type ServiceDeps struct {
	UserRepo userStore
	// AdminUsernames are granted the admin role at registration.
	AdminUsernames []string
	Clock          func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		repo:   deps.UserRepo,
		admins: make(map[string]struct{}, len(deps.AdminUsernames)),
		now:    deps.Clock,
	}
	for _, name := range deps.AdminUsernames {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			s.admins[name] = struct{}{}
		}
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// unclaimed turns a lookup result into nil when nothing was found, ErrConflict when
// something was, and passes any other store error through.
func unclaimed(_ *domain.User, err error) error {
	switch {
	case err == nil:
		return fmt.Errorf("already registered: %w", domain.ErrConflict)
	case errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return err
	}
}

// Register creates a job-seeker account. Usernames and emails are unique case-insensitively.
func (s *service) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(&req); err != nil {
		return nil, err
	}
	if err := unclaimed(s.repo.GetByUsername(ctx, req.Username)); err != nil {
		return nil, fmt.Errorf("username: %w", err)
	}
	if err := unclaimed(s.repo.GetByEmail(ctx, req.Email)); err != nil {
		return nil, fmt.Errorf("email: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	role := domain.RoleUser
	if _, ok := s.admins[req.Username]; ok {
		role = domain.RoleAdmin
	}
	now := s.now()
	u := &domain.User{
		UserID:       id.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         role,
		AccountType:  domain.AccountTypeJobSeeker,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, u); err != nil {
		return nil, err
	}
	slog.Info("account registered", "user_id", u.UserID, "role", u.Role)
	return u, nil
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if len(newPassword) < 8 || len(newPassword) > 72 {
		return fmt.Errorf("password must be 8 to 72 bytes: %w", domain.ErrInvalidFormat)
	}
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(currentPassword)); err != nil {
		return fmt.Errorf("current password is incorrect: %w", domain.ErrUnauthorized)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.SetPasswordHash(ctx, userID, string(hash))
}
