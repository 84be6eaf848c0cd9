package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store and dispatch driver names.
const (
	StoreDynamo   = "dynamo"
	StorePostgres = "postgres"

	DispatchSMTP = "smtp"
	DispatchNATS = "nats"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string `env:"APP_PORT" envDefault:"3000"`
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"dynamo"`

	AWSRegion      string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSEndpointURL string `env:"AWS_ENDPOINT_URL"` // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey   string `env:"AWS_SECRET_ACCESS_KEY"`
	DynamoTables   DynamoTables

	DatabaseURL string `env:"DATABASE_URL"`

	JWTPrivateKeyPath string        `env:"JWT_PRIVATE_KEY_PATH" envDefault:"./private_key.pem"`
	JWTPublicKeyPath  string        `env:"JWT_PUBLIC_KEY_PATH" envDefault:"./public_key.pem"`
	JWTIssuer         string        `env:"JWT_ISSUER" envDefault:"jobportal-api"`
	JWTExpiry         time.Duration `env:"JWT_EXPIRY" envDefault:"168h"`

	SMTPHost     string `env:"SMTP_HOST" envDefault:"localhost"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"1025"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"noreply@example.com"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`

	DispatchDriver  string        `env:"DISPATCH_DRIVER" envDefault:"smtp"`
	DispatchTimeout time.Duration `env:"DISPATCH_TIMEOUT" envDefault:"10s"`
	NATSURL         string        `env:"NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	NATSMailSubject string        `env:"NATS_MAIL_SUBJECT" envDefault:"mail.send"`

	SNSRegion         string `env:"SNS_REGION" envDefault:"us-east-1"`
	PromotionTopicARN string `env:"PROMOTION_TOPIC_ARN"`

	VerificationTTL     time.Duration `env:"VERIFICATION_TTL" envDefault:"24h"`
	VerificationURL     string        `env:"VERIFICATION_URL"`
	CompanyNamePolicy   string        `env:"COMPANY_NAME_POLICY" envDefault:"declared"`
	ConsumerDomains     []string      `env:"CONSUMER_DOMAINS" envSeparator:","`
	ConsumerDomainsFile string        `env:"CONSUMER_DOMAINS_FILE"` // local path or s3://bucket/key

	AdminUsernames []string `env:"ADMIN_USERNAMES" envSeparator:","`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"` // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users                string `env:"DYNAMO_TABLE_USERS" envDefault:"users"`
	CompanyVerifications string `env:"DYNAMO_TABLE_COMPANY_VERIFICATIONS" envDefault:"company_verifications"`
}

// Load reads all configuration from environment variables.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDynamo:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s", StorePostgres)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.DispatchDriver {
	case DispatchSMTP, DispatchNATS:
	default:
		return fmt.Errorf("unknown DISPATCH_DRIVER %q", c.DispatchDriver)
	}
	switch c.CompanyNamePolicy {
	case "declared", "derived":
	default:
		return fmt.Errorf("COMPANY_NAME_POLICY must be declared or derived, got %q", c.CompanyNamePolicy)
	}
	if c.VerificationTTL <= 0 {
		return fmt.Errorf("VERIFICATION_TTL must be positive")
	}
	return nil
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// SlogLevel maps LOG_LEVEL onto a slog level; unknown values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
