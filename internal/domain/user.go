package domain

import "time"

// Access roles carried in bearer tokens.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account types. An account only ever moves from job seeker to recruiter.
const (
	AccountTypeJobSeeker = "job_seeker"
	AccountTypeRecruiter = "recruiter"
)

type User struct {
	UserID               string    `json:"id" dynamodbav:"user_id"`
	Username             string    `json:"username" dynamodbav:"username"`
	Email                string    `json:"email" dynamodbav:"email"`
	PasswordHash         string    `json:"-" dynamodbav:"password_hash"`
	Role                 string    `json:"role" dynamodbav:"role"`
	FirstName            string    `json:"first_name" dynamodbav:"first_name"`
	LastName             string    `json:"last_name" dynamodbav:"last_name"`
	AccountType          string    `json:"account_type" dynamodbav:"account_type"`
	CompanyName          *string   `json:"company_name,omitempty" dynamodbav:"company_name"`
	CompanyEmail         *string   `json:"company_email,omitempty" dynamodbav:"company_email"`
	CompanyWebsite       *string   `json:"company_website,omitempty" dynamodbav:"company_website"`
	CompanyEmailVerified bool      `json:"company_email_verified" dynamodbav:"company_email_verified"`
	CreatedAt            time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt            time.Time `json:"updated" dynamodbav:"updated_at"`
}

// IsVerifiedRecruiter reports whether the account has completed company-email verification.
func (u *User) IsVerifiedRecruiter() bool {
	return u.AccountType == AccountTypeRecruiter && u.CompanyEmailVerified
}

type CreateUserRequest struct {
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

type LoginRequest struct {
	Login    string `json:"login" validate:"required"` // username or email
	Password string `json:"password" validate:"required"`
}

// Promotion is the account mutation applied when a company-email challenge completes.
type Promotion struct {
	AccountID      string
	CompanyName    string
	CompanyEmail   string
	CompanyWebsite *string
}
