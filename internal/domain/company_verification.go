package domain

import "time"

// Verification request statuses. Failed is reported synchronously and never stored.
const (
	VerificationPending   = "pending"
	VerificationCompleted = "completed"
	VerificationExpired   = "expired"
	VerificationFailed    = "failed"
)

// CompanyVerification is a pending or settled company-email challenge.
// PK: request_id. GSIs: account_id, status + expires_at.
// TTL is a Unix timestamp after which DynamoDB may purge the settled record.
type CompanyVerification struct {
	RequestID            string     `json:"id" dynamodbav:"request_id"`
	AccountID            string     `json:"account_id" dynamodbav:"account_id"`
	CandidateEmail       string     `json:"company_email" dynamodbav:"candidate_email"`
	CandidateCompanyName string     `json:"company_name" dynamodbav:"candidate_company_name"`
	CandidateWebsite     *string    `json:"company_website,omitempty" dynamodbav:"candidate_website"`
	DerivedCompanyName   string     `json:"derived_company_name" dynamodbav:"derived_company_name"`
	TokenHash            string     `json:"-" dynamodbav:"token_hash"`
	Status               string     `json:"status" dynamodbav:"status"`
	CreatedAt            time.Time  `json:"created" dynamodbav:"created_at"`
	ExpiresAt            time.Time  `json:"expires_at" dynamodbav:"expires_at,unixtime"`
	CompletedAt          *time.Time `json:"completed_at,omitempty" dynamodbav:"completed_at"`
	UpdatedAt            time.Time  `json:"updated" dynamodbav:"updated_at"`
	TTL                  int64      `json:"-" dynamodbav:"ttl"`
}

// IsExpired reports whether the request can no longer be completed at now.
func (v *CompanyVerification) IsExpired(now time.Time) bool {
	return v.Status != VerificationPending || now.After(v.ExpiresAt)
}

// Newer orders requests by creation time, breaking ties on the sortable request id.
func (v *CompanyVerification) Newer(other *CompanyVerification) bool {
	if !v.CreatedAt.Equal(other.CreatedAt) {
		return v.CreatedAt.After(other.CreatedAt)
	}
	return v.RequestID > other.RequestID
}

type CompanyVerificationRequest struct {
	CompanyEmail   string  `json:"company_email" validate:"required"`
	CompanyName    string  `json:"company_name" validate:"required"`
	CompanyWebsite *string `json:"company_website" validate:"omitempty,url"`
}

type CompleteVerificationRequest struct {
	RequestID string `json:"request_id" validate:"required"`
	Token     string `json:"token" validate:"required"`
}
