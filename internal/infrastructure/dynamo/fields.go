package dynamo

// DynamoDB attribute and index names shared by the repos and Bootstrap.
const (
	fieldUserID               = "user_id"
	fieldUsername             = "username"
	fieldEmail                = "email"
	fieldPasswordHash         = "password_hash"
	fieldAccountType          = "account_type"
	fieldCompanyName          = "company_name"
	fieldCompanyEmail         = "company_email"
	fieldCompanyWebsite       = "company_website"
	fieldCompanyEmailVerified = "company_email_verified"
	fieldUpdatedAt            = "updated_at"

	fieldRequestID   = "request_id"
	fieldAccountID   = "account_id"
	fieldStatus      = "status"
	fieldExpiresAt   = "expires_at"
	fieldCompletedAt = "completed_at"
	fieldTTL         = "ttl"

	indexUsername      = "username-index"
	indexEmail         = "email-index"
	indexAccount       = "account_id-index"
	indexStatusExpires = "status-expires_at-index"
)
