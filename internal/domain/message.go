package domain

import "time"

// Template identifiers understood by every dispatcher.
const (
	TemplateCompanyEmailVerification = "company_email_verification"
)

// OutboundMessage is a templated message addressed to one recipient.
type OutboundMessage struct {
	To         string            `json:"to"`
	TemplateID string            `json:"template_id"`
	Payload    map[string]string `json:"payload"`
}

// DeliveryResult describes how a message left the process.
type DeliveryResult struct {
	Channel   string `json:"channel"` // "smtp" | "nats"
	MessageID string `json:"message_id,omitempty"`
}

// PromotionEvent is published after an account becomes a verified recruiter.
type PromotionEvent struct {
	AccountID    string    `json:"account_id"`
	RequestID    string    `json:"request_id"`
	CompanyName  string    `json:"company_name"`
	CompanyEmail string    `json:"company_email"`
	PromotedAt   time.Time `json:"promoted_at"`
}
