// Package app assembles the configured infrastructure for the binaries under cmd/.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jobportal-api/internal/application/recruiter"
	"github.com/jobportal-api/internal/config"
	"github.com/jobportal-api/internal/infrastructure/dynamo"
	"github.com/jobportal-api/internal/infrastructure/natsmail"
	"github.com/jobportal-api/internal/infrastructure/postgres"
	s3infra "github.com/jobportal-api/internal/infrastructure/s3"
	"github.com/jobportal-api/internal/infrastructure/smtp"
	"github.com/jobportal-api/internal/infrastructure/sns"
	"github.com/jobportal-api/internal/pkg/companydomain"
	transporthttp "github.com/jobportal-api/internal/transport/http"
)

// NewLogger returns a JSON logger in production and a text logger elsewhere.
func NewLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Stores are the account and verification repositories for the configured driver.
type Stores struct {
	Users         transporthttp.UserRepository
	Verifications recruiter.VerificationStore
	Close         func()
}

// OpenStores connects to the store named by STORE_DRIVER and prepares its schema.
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &Stores{
			Users:         postgres.NewUserRepo(pool),
			Verifications: postgres.NewCompanyVerificationRepo(pool),
			Close:         pool.Close,
		}, nil
	default:
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		users := dynamo.NewUserRepo(client, cfg.DynamoTables.Users)
		return &Stores{
			Users:         users,
			Verifications: dynamo.NewCompanyVerificationRepo(client, cfg.DynamoTables.CompanyVerifications, users),
			Close:         func() {},
		}, nil
	}
}

// NewDispatcher returns the message dispatcher named by DISPATCH_DRIVER and a
// function releasing its connection.
func NewDispatcher(cfg *config.Config) (recruiter.Dispatcher, func(), error) {
	if cfg.DispatchDriver == config.DispatchNATS {
		conn, err := natsmail.Connect(cfg)
		if err != nil {
			return nil, nil, err
		}
		return natsmail.NewDispatcher(conn, cfg.NATSMailSubject), func() { _ = conn.Drain() }, nil
	}
	m, err := smtp.NewMailer(cfg)
	if err != nil {
		return nil, nil, err
	}
	return m, func() {}, nil
}

// NewPublisher returns nil when no promotion topic is configured.
func NewPublisher(ctx context.Context, cfg *config.Config) (recruiter.PromotionPublisher, error) {
	if cfg.PromotionTopicARN == "" {
		return nil, nil
	}
	client, err := sns.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return sns.NewPromotionPublisher(client, cfg.PromotionTopicARN), nil
}

// NewClassifier combines the built-in consumer providers, CONSUMER_DOMAINS and
// the list at CONSUMER_DOMAINS_FILE (a local path or s3://bucket/key).
func NewClassifier(ctx context.Context, cfg *config.Config) (*companydomain.Classifier, error) {
	extra := append([]string(nil), cfg.ConsumerDomains...)
	if cfg.ConsumerDomainsFile != "" {
		listed, err := loadDomainFile(ctx, cfg)
		if err != nil {
			return nil, err
		}
		extra = append(extra, listed...)
	}
	bl := companydomain.DefaultBlocklist(extra...)
	slog.Info("consumer domain block-list loaded", "domains", bl.Len(), "source", cfg.ConsumerDomainsFile)
	return companydomain.NewClassifier(bl), nil
}

func loadDomainFile(ctx context.Context, cfg *config.Config) ([]string, error) {
	var (
		rc  io.ReadCloser
		err error
	)
	if s3infra.IsURI(cfg.ConsumerDomainsFile) {
		client, cerr := s3infra.NewClient(ctx, cfg)
		if cerr != nil {
			return nil, cerr
		}
		rc, err = s3infra.Open(ctx, client, cfg.ConsumerDomainsFile)
	} else {
		rc, err = os.Open(cfg.ConsumerDomainsFile)
	}
	if err != nil {
		return nil, fmt.Errorf("open consumer domain list: %w", err)
	}
	defer rc.Close()
	return companydomain.ParseYAML(rc)
}
