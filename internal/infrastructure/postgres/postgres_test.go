package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jobportal-api/internal/domain"
	"github.com/jobportal-api/internal/pkg/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFiles_LexicalOrder(t *testing.T) {
	names, err := migrationFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_users.sql", "0002_company_verifications.sql"}, names)
}

// openTestDB connects to TEST_DATABASE_URL; the integration tests are skipped without it.
func openTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := Open(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, Migrate(ctx, pool))
	require.NoError(t, Migrate(ctx, pool), "migrations must be re-runnable")
	return pool
}

func seedUser(t *testing.T, users *UserRepo) *domain.User {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	u := &domain.User{
		UserID:       id.New(),
		PasswordHash: "x",
		Role:         domain.RoleUser,
		AccountType:  domain.AccountTypeJobSeeker,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	u.Username = "user-" + u.UserID
	u.Email = u.UserID + "@example.com"
	require.NoError(t, users.Put(context.Background(), u))
	return u
}

func seedPending(t *testing.T, repo *CompanyVerificationRepo, accountID string, ttl time.Duration) *domain.CompanyVerification {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	v := &domain.CompanyVerification{
		RequestID:            id.New(),
		AccountID:            accountID,
		CandidateEmail:       "john@acme.com",
		CandidateCompanyName: "Acme",
		DerivedCompanyName:   "Acme",
		TokenHash:            "hash",
		Status:               domain.VerificationPending,
		CreatedAt:            now,
		ExpiresAt:            now.Add(ttl),
		UpdatedAt:            now,
	}
	require.NoError(t, repo.Create(context.Background(), v))
	return v
}

func TestUserRepo_Integration(t *testing.T) {
	pool := openTestDB(t)
	users := NewUserRepo(pool)
	ctx := context.Background()

	u := seedUser(t, users)
	got, err := users.GetByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.UserID, got.UserID)

	dup := *u
	dup.UserID = id.New()
	assert.True(t, errors.Is(users.Put(ctx, &dup), domain.ErrConflict))

	_, err = users.GetByUsername(ctx, "nobody-"+id.New())
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestCompanyVerificationRepo_ExpireIsConditional(t *testing.T) {
	pool := openTestDB(t)
	users := NewUserRepo(pool)
	repo := NewCompanyVerificationRepo(pool)
	ctx := context.Background()

	u := seedUser(t, users)
	v := seedPending(t, repo, u.UserID, time.Hour)

	require.NoError(t, repo.Expire(ctx, v.RequestID, time.Now()))
	assert.True(t, errors.Is(repo.Expire(ctx, v.RequestID, time.Now()), domain.ErrConflict))

	pending, err := repo.ListPendingByAccount(ctx, u.UserID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCompanyVerificationRepo_CompleteOnce(t *testing.T) {
	pool := openTestDB(t)
	users := NewUserRepo(pool)
	repo := NewCompanyVerificationRepo(pool)
	ctx := context.Background()

	u := seedUser(t, users)
	v := seedPending(t, repo, u.UserID, time.Hour)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Complete(ctx, v.RequestID, time.Now().UTC(), domain.Promotion{
				AccountID:    u.UserID,
				CompanyName:  "Acme",
				CompanyEmail: "john@acme.com",
			})
			if err == nil {
				wins.Add(1)
				return
			}
			assert.True(t, errors.Is(err, domain.ErrExpiredRequest), err.Error())
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins.Load())

	promoted, err := users.Get(ctx, u.UserID)
	require.NoError(t, err)
	assert.True(t, promoted.IsVerifiedRecruiter())
	assert.Equal(t, "Acme", *promoted.CompanyName)
}

func TestCompanyVerificationRepo_CompleteAfterExpiry(t *testing.T) {
	pool := openTestDB(t)
	users := NewUserRepo(pool)
	repo := NewCompanyVerificationRepo(pool)
	ctx := context.Background()

	u := seedUser(t, users)
	v := seedPending(t, repo, u.UserID, time.Minute)

	err := repo.Complete(ctx, v.RequestID, time.Now().Add(2*time.Minute), domain.Promotion{AccountID: u.UserID})
	assert.True(t, errors.Is(err, domain.ErrExpiredRequest))

	stale, err := repo.ListExpiredPending(ctx, time.Now().Add(2*time.Minute))
	require.NoError(t, err)
	var found bool
	for _, s := range stale {
		found = found || s.RequestID == v.RequestID
	}
	assert.True(t, found)
}
