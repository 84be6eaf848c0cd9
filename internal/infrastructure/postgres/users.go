package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jobportal-api/internal/domain"
)

const uniqueViolation = "23505"

const userColumns = `user_id, username, email, password_hash, role, first_name, last_name,
	account_type, company_name, company_email, company_website, company_email_verified,
	created_at, updated_at`

// UserRepo stores accounts in the users table.
type UserRepo struct {
	db DB
}

func NewUserRepo(db DB) *UserRepo {
	return &UserRepo{db: db}
}

// Put inserts a new user. Duplicate ids, usernames or emails are reported as ErrConflict.
func (r *UserRepo) Put(ctx context.Context, u *domain.User) error {
	_, err := r.db.Exec(ctx, `INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		u.UserID, u.Username, u.Email, u.PasswordHash, u.Role, u.FirstName, u.LastName,
		u.AccountType, u.CompanyName, u.CompanyEmail, u.CompanyWebsite, u.CompanyEmailVerified,
		u.CreatedAt, u.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("user already exists (%s): %w", pgErr.ConstraintName, domain.ErrConflict)
	}
	return err
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	return r.getBy(ctx, "user_id", userID)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getBy(ctx, "username", username)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *UserRepo) SetPasswordHash(ctx context.Context, userID, hash string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = $3 WHERE user_id = $1`,
		userID, hash, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return nil
}

// getBy looks a user up by one of the fixed unique columns above.
func (r *UserRepo) getBy(ctx context.Context, column, value string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value)
	var u domain.User
	err := row.Scan(&u.UserID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.FirstName, &u.LastName,
		&u.AccountType, &u.CompanyName, &u.CompanyEmail, &u.CompanyWebsite, &u.CompanyEmailVerified,
		&u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by %s: %w", column, err)
	}
	return &u, nil
}
