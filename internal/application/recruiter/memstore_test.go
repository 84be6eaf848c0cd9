package recruiter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jobportal-api/internal/domain"
)

// memStore is an in-memory account + verification store with the same conditional
// semantics as the DynamoDB and PostgreSQL adapters.
type memStore struct {
	mu            sync.Mutex
	users         map[string]domain.User
	verifications map[string]domain.CompanyVerification
	promotions    int
}

func newMemStore(users ...domain.User) *memStore {
	s := &memStore{
		users:         make(map[string]domain.User),
		verifications: make(map[string]domain.CompanyVerification),
	}
	for _, u := range users {
		s.users[u.UserID] = u
	}
	return s
}

func (s *memStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return &u, nil
}

type memVerifications struct{ *memStore }

func (s memVerifications) Create(ctx context.Context, v *domain.CompanyVerification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.verifications[v.RequestID]; ok {
		return fmt.Errorf("duplicate request id: %w", domain.ErrConflict)
	}
	s.verifications[v.RequestID] = *v
	return nil
}

func (s memVerifications) Get(ctx context.Context, requestID string) (*domain.CompanyVerification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.verifications[requestID]
	if !ok {
		return nil, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	return &v, nil
}

func (s memVerifications) ListPendingByAccount(ctx context.Context, accountID string) ([]domain.CompanyVerification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CompanyVerification
	for _, v := range s.verifications {
		if v.AccountID == accountID && v.Status == domain.VerificationPending {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s memVerifications) ListExpiredPending(ctx context.Context, now time.Time) ([]domain.CompanyVerification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CompanyVerification
	for _, v := range s.verifications {
		if v.Status == domain.VerificationPending && v.ExpiresAt.Before(now) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s memVerifications) Expire(ctx context.Context, requestID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.verifications[requestID]
	if !ok || v.Status != domain.VerificationPending {
		return fmt.Errorf("request %s not pending: %w", requestID, domain.ErrConflict)
	}
	v.Status = domain.VerificationExpired
	v.UpdatedAt = now
	s.verifications[requestID] = v
	return nil
}

func (s memVerifications) Complete(ctx context.Context, requestID string, now time.Time, p domain.Promotion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.verifications[requestID]
	if !ok || v.Status != domain.VerificationPending || now.After(v.ExpiresAt) {
		return fmt.Errorf("request %s cannot be completed: %w", requestID, domain.ErrExpiredRequest)
	}
	u, ok := s.users[p.AccountID]
	if !ok {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	v.Status = domain.VerificationCompleted
	v.CompletedAt = &now
	v.UpdatedAt = now
	name, email := p.CompanyName, p.CompanyEmail
	u.AccountType = domain.AccountTypeRecruiter
	u.CompanyName = &name
	u.CompanyEmail = &email
	u.CompanyWebsite = p.CompanyWebsite
	u.CompanyEmailVerified = true
	s.verifications[requestID] = v
	s.users[p.AccountID] = u
	s.promotions++
	return nil
}

// laggingVerifications hides the most recently created request from
// ListPendingByAccount, the way a secondary index trails the base table.
type laggingVerifications struct {
	memVerifications
	latest string
}

func (s *laggingVerifications) Create(ctx context.Context, v *domain.CompanyVerification) error {
	if err := s.memVerifications.Create(ctx, v); err != nil {
		return err
	}
	s.mu.Lock()
	s.latest = v.RequestID
	s.mu.Unlock()
	return nil
}

func (s *laggingVerifications) ListPendingByAccount(ctx context.Context, accountID string) ([]domain.CompanyVerification, error) {
	all, err := s.memVerifications.ListPendingByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	latest := s.latest
	s.mu.Unlock()
	out := all[:0]
	for _, v := range all {
		if v.RequestID != latest {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *memStore) pendingFor(accountID string) []domain.CompanyVerification {
	out, _ := memVerifications{s}.ListPendingByAccount(context.Background(), accountID)
	return out
}

func (s *memStore) status(requestID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verifications[requestID].Status
}

func (s *memStore) promotionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.promotions
}

// fakeClock is a settable clock shared by a test and the service under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// outbox records dispatched messages and can be told to fail.
type outbox struct {
	mu   sync.Mutex
	sent []domain.OutboundMessage
	fail error
}

func (o *outbox) Dispatch(ctx context.Context, msg domain.OutboundMessage) (domain.DeliveryResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail != nil {
		return domain.DeliveryResult{}, o.fail
	}
	o.sent = append(o.sent, msg)
	return domain.DeliveryResult{Channel: "test"}, nil
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sent)
}

func (o *outbox) last() domain.OutboundMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sent[len(o.sent)-1]
}

var errSMTPDown = errors.New("smtp: connection refused")
