package recruiter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jobportal-api/internal/domain"
	"github.com/jobportal-api/internal/pkg/companydomain"
	"github.com/jobportal-api/internal/pkg/id"
	pkgtoken "github.com/jobportal-api/internal/pkg/token"
	"github.com/jobportal-api/internal/pkg/validate"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTTL             = 24 * time.Hour
	DefaultDispatchTimeout = 10 * time.Second

	// Settled records stay readable this long after expiry before the store may purge them.
	retention = 30 * 24 * time.Hour

	reconcileConcurrency = 8

	deliveryWarning = "verification message could not be delivered; submit again to resend"
)

// NamePolicy selects which company name is written to the account on promotion.
type NamePolicy string

const (
	NamePolicyDeclared NamePolicy = "declared"
	NamePolicyDerived  NamePolicy = "derived"
)

type SubmitResult struct {
	RequestID          string    `json:"request_id,omitempty"`
	Message            string    `json:"message"`
	DerivedCompanyName string    `json:"derived_company_name,omitempty"`
	ExpiresAt          time.Time `json:"expires_at,omitzero"`
	AlreadyVerified    bool      `json:"already_verified"`
	DeliveryWarning    string    `json:"delivery_warning,omitempty"`
}

type CompleteResult struct {
	AccountID   string `json:"account_id"`
	CompanyName string `json:"company_name"`
}

type Service interface {
	Submit(ctx context.Context, accountID string, req domain.CompanyVerificationRequest) (*SubmitResult, error)
	CompleteChallenge(ctx context.Context, requestID, token string) (*CompleteResult, error)
	ReconcileExpired(ctx context.Context) (int, error)
	Pending(ctx context.Context, accountID string) (*domain.CompanyVerification, error)
}

// AccountStore reads accounts. Promotion is written through VerificationStore.Complete
// so the status transition and the account mutation commit together.
type AccountStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

// VerificationStore persists company verification requests. Expire and Complete are
// conditional on the stored status still being pending.
type VerificationStore interface {
	Create(ctx context.Context, v *domain.CompanyVerification) error
	Get(ctx context.Context, requestID string) (*domain.CompanyVerification, error)
	ListPendingByAccount(ctx context.Context, accountID string) ([]domain.CompanyVerification, error)
	ListExpiredPending(ctx context.Context, now time.Time) ([]domain.CompanyVerification, error)
	// Expire returns an error wrapping domain.ErrConflict when the request is no longer pending.
	Expire(ctx context.Context, requestID string, now time.Time) error
	// Complete returns an error wrapping domain.ErrExpiredRequest when the request is no
	// longer pending or has passed its expiry; nothing is written in that case.
	Complete(ctx context.Context, requestID string, now time.Time, p domain.Promotion) error
}

// Dispatcher delivers templated messages. Failures never fail the workflow.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg domain.OutboundMessage) (domain.DeliveryResult, error)
}

// PromotionPublisher announces completed promotions to other services.
type PromotionPublisher interface {
	PublishPromotion(ctx context.Context, e domain.PromotionEvent) error
}

type ServiceDeps struct {
	Accounts        AccountStore
	Verifications   VerificationStore
	Classifier      *companydomain.Classifier
	Dispatcher      Dispatcher
	Publisher       PromotionPublisher // optional
	TTL             time.Duration
	DispatchTimeout time.Duration
	VerificationURL string
	NamePolicy      NamePolicy
	Clock           func() time.Time
}

type service struct {
	accounts        AccountStore
	verifications   VerificationStore
	classifier      *companydomain.Classifier
	dispatcher      Dispatcher
	publisher       PromotionPublisher
	ttl             time.Duration
	dispatchTimeout time.Duration
	verificationURL string
	namePolicy      NamePolicy
	now             func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		accounts:        deps.Accounts,
		verifications:   deps.Verifications,
		classifier:      deps.Classifier,
		dispatcher:      deps.Dispatcher,
		publisher:       deps.Publisher,
		ttl:             deps.TTL,
		dispatchTimeout: deps.DispatchTimeout,
		verificationURL: deps.VerificationURL,
		namePolicy:      deps.NamePolicy,
		now:             deps.Clock,
	}
	if s.classifier == nil {
		s.classifier = companydomain.NewClassifier(nil)
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.dispatchTimeout <= 0 {
		s.dispatchTimeout = DefaultDispatchTimeout
	}
	if s.namePolicy == "" {
		s.namePolicy = NamePolicyDeclared
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

func (s *service) Submit(ctx context.Context, accountID string, req domain.CompanyVerificationRequest) (*SubmitResult, error) {
	if accountID == "" {
		return nil, fmt.Errorf("account id required: %w", domain.ErrUnauthorized)
	}
	req = normalizeRequest(req)
	if err := validate.Struct(&req); err != nil {
		return nil, err
	}

	cls, err := s.classifier.Classify(req.CompanyEmail)
	if err != nil {
		return nil, err
	}
	if !cls.IsCompanyDomain {
		return nil, fmt.Errorf("%s is a public mail provider: %w", cls.Domain, domain.ErrRejectedConsumerDomain)
	}

	acct, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acct.IsVerifiedRecruiter() {
		return &SubmitResult{
			Message:         "company email already verified",
			AlreadyVerified: true,
		}, nil
	}

	now := s.now()
	if err := s.supersede(ctx, accountID, nil, now); err != nil {
		return nil, err
	}

	challenge, err := pkgtoken.NewChallenge()
	if err != nil {
		return nil, err
	}
	v := &domain.CompanyVerification{
		RequestID:            id.New(),
		AccountID:            accountID,
		CandidateEmail:       req.CompanyEmail,
		CandidateCompanyName: req.CompanyName,
		CandidateWebsite:     req.CompanyWebsite,
		DerivedCompanyName:   cls.DerivedCompanyName,
		TokenHash:            pkgtoken.Hash(challenge),
		Status:               domain.VerificationPending,
		CreatedAt:            now,
		ExpiresAt:            now.Add(s.ttl),
		UpdatedAt:            now,
		TTL:                  now.Add(s.ttl + retention).Unix(),
	}
	if err := s.verifications.Create(ctx, v); err != nil {
		return nil, err
	}
	if err := s.supersede(ctx, accountID, v, now); err != nil {
		return nil, err
	}

	res := &SubmitResult{
		RequestID:          v.RequestID,
		Message:            "verification email sent to " + v.CandidateEmail,
		DerivedCompanyName: v.DerivedCompanyName,
		ExpiresAt:          v.ExpiresAt,
	}
	if err := s.dispatch(ctx, v, challenge); err != nil {
		slog.Warn("company verification delivery failed", "request_id", v.RequestID, "account_id", accountID, "err", err)
		res.Message = "verification request created"
		res.DeliveryWarning = deliveryWarning
	}
	return res, nil
}

// supersede expires pending requests for accountID. With keep == nil every pending
// request is expired. Otherwise only the newest pending request survives; when that is
// not keep, keep itself is expired and ErrConflict is returned. The listing may lag
// behind writes, so keep counts as pending even when it is not listed yet.
func (s *service) supersede(ctx context.Context, accountID string, keep *domain.CompanyVerification, now time.Time) error {
	pending, err := s.verifications.ListPendingByAccount(ctx, accountID)
	if err != nil {
		return err
	}
	var newest *domain.CompanyVerification
	if keep != nil {
		newest = keep
		for i := range pending {
			if pending[i].Newer(newest) {
				newest = &pending[i]
			}
		}
	}
	for i := range pending {
		if newest != nil && pending[i].RequestID == newest.RequestID {
			continue
		}
		if err := s.expire(ctx, pending[i].RequestID, now); err != nil {
			return err
		}
	}
	if keep != nil && newest.RequestID != keep.RequestID {
		if err := s.expire(ctx, keep.RequestID, now); err != nil {
			return err
		}
		return fmt.Errorf("superseded by a newer submission: %w", domain.ErrConflict)
	}
	return nil
}

func (s *service) expire(ctx context.Context, requestID string, now time.Time) error {
	err := s.verifications.Expire(ctx, requestID, now)
	if errors.Is(err, domain.ErrConflict) {
		return nil
	}
	return err
}

// dispatch sends the challenge without holding any store state; it is bounded by the
// dispatch timeout.
func (s *service) dispatch(ctx context.Context, v *domain.CompanyVerification, challenge string) error {
	if s.dispatcher == nil {
		return errors.New("no dispatcher configured")
	}
	ctx, cancel := context.WithTimeout(ctx, s.dispatchTimeout)
	defer cancel()

	payload := map[string]string{
		"request_id":           v.RequestID,
		"token":                challenge,
		"company_name":         v.CandidateCompanyName,
		"derived_company_name": v.DerivedCompanyName,
		"expires_at":           v.ExpiresAt.Format(time.RFC3339),
	}
	if link := s.link(v.RequestID, challenge); link != "" {
		payload["verification_url"] = link
	}
	out, err := s.dispatcher.Dispatch(ctx, domain.OutboundMessage{
		To:         v.CandidateEmail,
		TemplateID: domain.TemplateCompanyEmailVerification,
		Payload:    payload,
	})
	if err != nil {
		return err
	}
	slog.Info("company verification dispatched", "request_id", v.RequestID, "channel", out.Channel, "message_id", out.MessageID)
	return nil
}

func (s *service) link(requestID, challenge string) string {
	if s.verificationURL == "" {
		return ""
	}
	u, err := url.Parse(s.verificationURL)
	if err != nil {
		slog.Warn("invalid verification url", "url", s.verificationURL, "err", err)
		return ""
	}
	q := u.Query()
	q.Set("request_id", requestID)
	q.Set("token", challenge)
	u.RawQuery = q.Encode()
	return u.String()
}

func (s *service) CompleteChallenge(ctx context.Context, requestID, token string) (*CompleteResult, error) {
	if requestID == "" {
		return nil, fmt.Errorf("verification request: %w", domain.ErrNotFound)
	}
	v, err := s.verifications.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if v.IsExpired(now) {
		return nil, fmt.Errorf("request %s is %s: %w", requestID, v.Status, domain.ErrExpiredRequest)
	}
	if !pkgtoken.Matches(token, v.TokenHash) {
		slog.Warn("company verification token mismatch", "request_id", requestID, "account_id", v.AccountID)
		return nil, fmt.Errorf("invalid token: %w", domain.ErrTokenMismatch)
	}

	name := v.CandidateCompanyName
	if s.namePolicy == NamePolicyDerived && v.DerivedCompanyName != "" {
		name = v.DerivedCompanyName
	}
	err = s.verifications.Complete(ctx, v.RequestID, now, domain.Promotion{
		AccountID:      v.AccountID,
		CompanyName:    name,
		CompanyEmail:   v.CandidateEmail,
		CompanyWebsite: v.CandidateWebsite,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("account promoted to recruiter", "account_id", v.AccountID, "request_id", v.RequestID, "company_name", name)

	if s.publisher != nil {
		e := domain.PromotionEvent{
			AccountID:    v.AccountID,
			RequestID:    v.RequestID,
			CompanyName:  name,
			CompanyEmail: v.CandidateEmail,
			PromotedAt:   now,
		}
		if err := s.publisher.PublishPromotion(ctx, e); err != nil {
			slog.Warn("failed to publish promotion event", "account_id", v.AccountID, "err", err)
		}
	}
	return &CompleteResult{AccountID: v.AccountID, CompanyName: name}, nil
}

func (s *service) ReconcileExpired(ctx context.Context) (int, error) {
	now := s.now()
	stale, err := s.verifications.ListExpiredPending(ctx, now)
	if err != nil {
		return 0, err
	}
	var expired atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileConcurrency)
	for _, v := range stale {
		g.Go(func() error {
			err := s.verifications.Expire(gctx, v.RequestID, now)
			if errors.Is(err, domain.ErrConflict) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("expire %s: %w", v.RequestID, err)
			}
			expired.Add(1)
			return nil
		})
	}
	err = g.Wait()
	n := int(expired.Load())
	if n > 0 {
		slog.Info("expired stale company verifications", "count", n)
	}
	return n, err
}

func (s *service) Pending(ctx context.Context, accountID string) (*domain.CompanyVerification, error) {
	pending, err := s.verifications.ListPendingByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var newest *domain.CompanyVerification
	for i := range pending {
		if pending[i].IsExpired(now) {
			continue
		}
		if newest == nil || pending[i].Newer(newest) {
			newest = &pending[i]
		}
	}
	if newest == nil {
		return nil, fmt.Errorf("no pending verification: %w", domain.ErrNotFound)
	}
	return newest, nil
}

func normalizeRequest(req domain.CompanyVerificationRequest) domain.CompanyVerificationRequest {
	req.CompanyEmail = strings.TrimSpace(req.CompanyEmail)
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	if req.CompanyWebsite != nil {
		site := strings.TrimSpace(*req.CompanyWebsite)
		if site == "" {
			req.CompanyWebsite = nil
		} else {
			req.CompanyWebsite = &site
		}
	}
	return req
}
