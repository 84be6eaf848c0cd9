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

const verificationColumns = `request_id, account_id, candidate_email, candidate_company_name,
	candidate_website, derived_company_name, token_hash, status, created_at, expires_at,
	completed_at, updated_at`

// CompanyVerificationRepo stores company-email challenges. Status transitions are
// guarded by "status = 'pending'" in the UPDATE itself.
type CompanyVerificationRepo struct {
	db DB
}

func NewCompanyVerificationRepo(db DB) *CompanyVerificationRepo {
	return &CompanyVerificationRepo{db: db}
}

func (r *CompanyVerificationRepo) Create(ctx context.Context, v *domain.CompanyVerification) error {
	_, err := r.db.Exec(ctx, `INSERT INTO company_verifications (`+verificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		v.RequestID, v.AccountID, v.CandidateEmail, v.CandidateCompanyName,
		v.CandidateWebsite, v.DerivedCompanyName, v.TokenHash, v.Status, v.CreatedAt, v.ExpiresAt,
		v.CompletedAt, v.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("verification %s already exists: %w", v.RequestID, domain.ErrConflict)
	}
	return err
}

func (r *CompanyVerificationRepo) Get(ctx context.Context, requestID string) (*domain.CompanyVerification, error) {
	row := r.db.QueryRow(ctx, `SELECT `+verificationColumns+` FROM company_verifications WHERE request_id = $1`, requestID)
	v, err := scanVerification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get verification: %w", err)
	}
	return v, nil
}

func (r *CompanyVerificationRepo) ListPendingByAccount(ctx context.Context, accountID string) ([]domain.CompanyVerification, error) {
	return r.list(ctx, `SELECT `+verificationColumns+` FROM company_verifications
		WHERE account_id = $1 AND status = 'pending' ORDER BY created_at, request_id`, accountID)
}

func (r *CompanyVerificationRepo) ListExpiredPending(ctx context.Context, now time.Time) ([]domain.CompanyVerification, error) {
	return r.list(ctx, `SELECT `+verificationColumns+` FROM company_verifications
		WHERE status = 'pending' AND expires_at < $1 ORDER BY expires_at`, now)
}

func (r *CompanyVerificationRepo) Expire(ctx context.Context, requestID string, now time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE company_verifications SET status = 'expired', updated_at = $2
		WHERE request_id = $1 AND status = 'pending'`, requestID, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("verification %s is not pending: %w", requestID, domain.ErrConflict)
	}
	return nil
}

// Complete settles the request and promotes the account in one transaction.
func (r *CompanyVerificationRepo) Complete(ctx context.Context, requestID string, now time.Time, p domain.Promotion) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, `UPDATE company_verifications
		SET status = 'completed', completed_at = $2, updated_at = $2
		WHERE request_id = $1 AND status = 'pending' AND expires_at >= $2`, requestID, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("verification %s cannot be completed: %w", requestID, domain.ErrExpiredRequest)
	}

	tag, err = tx.Exec(ctx, `UPDATE users
		SET account_type = 'recruiter', company_name = $2, company_email = $3,
		    company_website = $4, company_email_verified = TRUE, updated_at = $5
		WHERE user_id = $1`, p.AccountID, p.CompanyName, p.CompanyEmail, p.CompanyWebsite, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("account %s: %w", p.AccountID, domain.ErrNotFound)
	}
	return tx.Commit(ctx)
}

func (r *CompanyVerificationRepo) list(ctx context.Context, sql string, args ...any) ([]domain.CompanyVerification, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list verifications: %w", err)
	}
	defer rows.Close()

	var out []domain.CompanyVerification
	for rows.Next() {
		v, err := scanVerification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan verification: %w", err)
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func scanVerification(row pgx.Row) (*domain.CompanyVerification, error) {
	var v domain.CompanyVerification
	err := row.Scan(&v.RequestID, &v.AccountID, &v.CandidateEmail, &v.CandidateCompanyName,
		&v.CandidateWebsite, &v.DerivedCompanyName, &v.TokenHash, &v.Status, &v.CreatedAt, &v.ExpiresAt,
		&v.CompletedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
