package recruiter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jobportal-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	store *memStore
	clock *fakeClock
	out   *outbox
	svc   Service
}

func newHarness(t *testing.T, deps ServiceDeps) *harness {
	t.Helper()
	h := &harness{
		store: newMemStore(*seeker("u1"), *seeker("u2")),
		clock: newFakeClock(),
		out:   &outbox{},
	}
	deps.Accounts = h.store
	deps.Verifications = memVerifications{h.store}
	deps.Dispatcher = h.out
	deps.Clock = h.clock.Now
	h.svc = NewService(deps)
	return h
}

func (h *harness) submit(t *testing.T, accountID, email, name string) (*SubmitResult, string) {
	t.Helper()
	res, err := h.svc.Submit(context.Background(), accountID, domain.CompanyVerificationRequest{
		CompanyEmail: email,
		CompanyName:  name,
	})
	require.NoError(t, err)
	return res, h.out.last().Payload["token"]
}

func TestWorkflow_HappyPath(t *testing.T) {
	h := newHarness(t, ServiceDeps{})

	res, tok := h.submit(t, "u1", "john@acme.com", "Acme Inc.")
	assert.Equal(t, "Acme", res.DerivedCompanyName)

	h.clock.Advance(time.Hour)
	done, err := h.svc.CompleteChallenge(context.Background(), res.RequestID, tok)
	require.NoError(t, err)
	assert.Equal(t, "Acme Inc.", done.CompanyName)

	u, _ := h.store.Get(context.Background(), "u1")
	assert.Equal(t, domain.AccountTypeRecruiter, u.AccountType)
	assert.True(t, u.CompanyEmailVerified)
	assert.Equal(t, "Acme Inc.", *u.CompanyName)
	assert.Equal(t, "john@acme.com", *u.CompanyEmail)
	assert.Equal(t, domain.VerificationCompleted, h.store.status(res.RequestID))
	assert.Equal(t, 1, h.store.promotionCount())
}

func TestWorkflow_ResubmitSupersedesPrior(t *testing.T) {
	h := newHarness(t, ServiceDeps{})

	first, firstTok := h.submit(t, "u1", "john@acme.com", "Acme")
	h.clock.Advance(time.Minute)
	second, secondTok := h.submit(t, "u1", "john@acme.com", "Acme")

	pending := h.store.pendingFor("u1")
	require.Len(t, pending, 1)
	assert.Equal(t, second.RequestID, pending[0].RequestID)
	assert.Equal(t, domain.VerificationExpired, h.store.status(first.RequestID))

	_, err := h.svc.CompleteChallenge(context.Background(), first.RequestID, firstTok)
	assert.True(t, errors.Is(err, domain.ErrExpiredRequest))

	_, err = h.svc.CompleteChallenge(context.Background(), second.RequestID, secondTok)
	assert.NoError(t, err)
}

func TestWorkflow_ConsumerRejectionLeavesPriorPending(t *testing.T) {
	h := newHarness(t, ServiceDeps{})

	first, _ := h.submit(t, "u1", "john@acme.com", "Acme")
	_, err := h.svc.Submit(context.Background(), "u1", domain.CompanyVerificationRequest{
		CompanyEmail: "john@gmail.com",
		CompanyName:  "Acme",
	})

	assert.True(t, errors.Is(err, domain.ErrRejectedConsumerDomain))
	pending := h.store.pendingFor("u1")
	require.Len(t, pending, 1)
	assert.Equal(t, first.RequestID, pending[0].RequestID)
	assert.Equal(t, 1, h.out.count())
}

func TestWorkflow_CompleteIsSingleUse(t *testing.T) {
	h := newHarness(t, ServiceDeps{})
	res, tok := h.submit(t, "u1", "john@acme.com", "Acme")

	_, err := h.svc.CompleteChallenge(context.Background(), res.RequestID, tok)
	require.NoError(t, err)

	_, err = h.svc.CompleteChallenge(context.Background(), res.RequestID, tok)
	assert.True(t, errors.Is(err, domain.ErrExpiredRequest))
	assert.Equal(t, 1, h.store.promotionCount())
}

func TestWorkflow_CompleteAfterExpiry(t *testing.T) {
	h := newHarness(t, ServiceDeps{TTL: time.Hour})
	res, tok := h.submit(t, "u1", "john@acme.com", "Acme")

	h.clock.Advance(time.Hour + time.Second)
	_, err := h.svc.CompleteChallenge(context.Background(), res.RequestID, tok)

	assert.True(t, errors.Is(err, domain.ErrExpiredRequest))
	u, _ := h.store.Get(context.Background(), "u1")
	assert.Equal(t, domain.AccountTypeJobSeeker, u.AccountType)
	assert.False(t, u.CompanyEmailVerified)
}

func TestWorkflow_WrongTokenThenRightToken(t *testing.T) {
	h := newHarness(t, ServiceDeps{})
	res, tok := h.submit(t, "u1", "john@acme.com", "Acme")

	_, err := h.svc.CompleteChallenge(context.Background(), res.RequestID, "not-the-token")
	assert.True(t, errors.Is(err, domain.ErrTokenMismatch))
	assert.Equal(t, domain.VerificationPending, h.store.status(res.RequestID))

	_, err = h.svc.CompleteChallenge(context.Background(), res.RequestID, tok)
	assert.NoError(t, err)
}

func TestWorkflow_VerifiedAccountDoesNotDispatch(t *testing.T) {
	h := newHarness(t, ServiceDeps{})
	res, tok := h.submit(t, "u1", "john@acme.com", "Acme")
	_, err := h.svc.CompleteChallenge(context.Background(), res.RequestID, tok)
	require.NoError(t, err)

	again, err := h.svc.Submit(context.Background(), "u1", domain.CompanyVerificationRequest{
		CompanyEmail: "jane@other.io",
		CompanyName:  "Other",
	})
	require.NoError(t, err)
	assert.True(t, again.AlreadyVerified)
	assert.Equal(t, 1, h.out.count())
	assert.Empty(t, h.store.pendingFor("u1"))
}

func TestWorkflow_DeliveryFailureStillCompletable(t *testing.T) {
	h := newHarness(t, ServiceDeps{})
	h.out.fail = errSMTPDown

	res, err := h.svc.Submit(context.Background(), "u1", domain.CompanyVerificationRequest{
		CompanyEmail: "john@acme.com",
		CompanyName:  "Acme",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.DeliveryWarning)
	assert.Equal(t, domain.VerificationPending, h.store.status(res.RequestID))

	// A resend after the outage supersedes the undeliverable request.
	h.out.fail = nil
	h.clock.Advance(time.Minute)
	resent, tok := h.submit(t, "u1", "john@acme.com", "Acme")
	assert.Equal(t, domain.VerificationExpired, h.store.status(res.RequestID))
	_, err = h.svc.CompleteChallenge(context.Background(), resent.RequestID, tok)
	assert.NoError(t, err)
}

func TestWorkflow_ConcurrentSubmitsLeaveOnePending(t *testing.T) {
	h := newHarness(t, ServiceDeps{})

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := h.svc.Submit(context.Background(), "u1", domain.CompanyVerificationRequest{
				CompanyEmail: "john@acme.com",
				CompanyName:  "Acme",
			})
			if err != nil {
				assert.True(t, errors.Is(err, domain.ErrConflict), err.Error())
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, len(h.store.pendingFor("u1")), 1)

	// Once the burst settles a fresh submission always leaves exactly one.
	h.clock.Advance(time.Minute)
	last, _ := h.submit(t, "u1", "john@acme.com", "Acme")
	pending := h.store.pendingFor("u1")
	require.Len(t, pending, 1)
	assert.Equal(t, last.RequestID, pending[0].RequestID)
}

func TestWorkflow_LaggingIndexDoesNotRejectOwnRequest(t *testing.T) {
	h := newHarness(t, ServiceDeps{})
	lagging := &laggingVerifications{memVerifications: memVerifications{h.store}}
	h.svc = NewService(ServiceDeps{
		Accounts:      h.store,
		Verifications: lagging,
		Dispatcher:    h.out,
		Clock:         h.clock.Now,
	})

	first, _ := h.submit(t, "u1", "john@acme.com", "Acme")
	assert.Equal(t, 1, h.out.count())
	assert.Equal(t, domain.VerificationPending, h.store.status(first.RequestID))
	require.Len(t, h.store.pendingFor("u1"), 1)

	// The next submission sees the first once the index catches up.
	h.clock.Advance(time.Minute)
	second, tok := h.submit(t, "u1", "john@acme.com", "Acme")
	assert.Equal(t, 2, h.out.count())
	assert.Equal(t, domain.VerificationExpired, h.store.status(first.RequestID))
	pending := h.store.pendingFor("u1")
	require.Len(t, pending, 1)
	assert.Equal(t, second.RequestID, pending[0].RequestID)

	_, err := h.svc.CompleteChallenge(context.Background(), second.RequestID, tok)
	assert.NoError(t, err)
}

func TestWorkflow_ConcurrentCompletesPromoteOnce(t *testing.T) {
	h := newHarness(t, ServiceDeps{})
	res, tok := h.submit(t, "u1", "john@acme.com", "Acme")

	const n = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := h.svc.CompleteChallenge(context.Background(), res.RequestID, tok)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, domain.ErrExpiredRequest), err.Error())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, h.store.promotionCount())
}

func TestWorkflow_AccountsAreIndependent(t *testing.T) {
	h := newHarness(t, ServiceDeps{})
	a, _ := h.submit(t, "u1", "john@acme.com", "Acme")
	b, _ := h.submit(t, "u2", "jane@globex.com", "Globex")

	assert.Equal(t, domain.VerificationPending, h.store.status(a.RequestID))
	assert.Equal(t, domain.VerificationPending, h.store.status(b.RequestID))
}

func TestWorkflow_ReconcileExpiresOnlyStale(t *testing.T) {
	h := newHarness(t, ServiceDeps{TTL: time.Hour})
	stale, _ := h.submit(t, "u1", "john@acme.com", "Acme")
	h.clock.Advance(30 * time.Minute)
	fresh, _ := h.submit(t, "u2", "jane@globex.com", "Globex")

	h.clock.Advance(45 * time.Minute)
	n, err := h.svc.ReconcileExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, domain.VerificationExpired, h.store.status(stale.RequestID))
	assert.Equal(t, domain.VerificationPending, h.store.status(fresh.RequestID))

	n, err = h.svc.ReconcileExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWorkflow_DerivedNamePolicy(t *testing.T) {
	h := newHarness(t, ServiceDeps{NamePolicy: NamePolicyDerived})
	res, tok := h.submit(t, "u1", "ops@acme-corp.com", "ACME Corporation International")

	done, err := h.svc.CompleteChallenge(context.Background(), res.RequestID, tok)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", done.CompanyName)
}
