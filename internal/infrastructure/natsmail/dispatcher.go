package natsmail

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jobportal-api/internal/config"
	"github.com/jobportal-api/internal/domain"
	"github.com/jobportal-api/internal/pkg/id"
	"github.com/nats-io/nats.go"
)

// Publisher is the subset of *nats.Conn used by the dispatcher.
type Publisher interface {
	PublishMsg(m *nats.Msg) error
	FlushWithContext(ctx context.Context) error
}

// MailJob is the message consumed by the mail worker.
type MailJob struct {
	JobID      string            `json:"job_id"`
	To         string            `json:"to"`
	TemplateID string            `json:"template_id"`
	Payload    map[string]string `json:"payload"`
}

// Dispatcher hands templated messages to a mail worker over NATS.
type Dispatcher struct {
	conn    Publisher
	subject string
}

func Connect(cfg *config.Config) (*nats.Conn, error) {
	conn, err := nats.Connect(cfg.NATSURL, nats.Name("jobportal-api"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	slog.Info("connected to NATS", "url", cfg.NATSURL)
	return conn, nil
}

func NewDispatcher(conn Publisher, subject string) *Dispatcher {
	return &Dispatcher{conn: conn, subject: subject}
}

// Dispatch publishes the job and waits for the server to acknowledge the flush, so a
// nil error means the job reached the broker.
func (d *Dispatcher) Dispatch(ctx context.Context, msg domain.OutboundMessage) (domain.DeliveryResult, error) {
	job := MailJob{
		JobID:      id.New(),
		To:         msg.To,
		TemplateID: msg.TemplateID,
		Payload:    msg.Payload,
	}
	data, err := json.Marshal(job)
	if err != nil {
		return domain.DeliveryResult{}, fmt.Errorf("marshal mail job: %w", err)
	}
	out := nats.NewMsg(d.subject)
	out.Data = data
	out.Header.Set(nats.MsgIdHdr, job.JobID)
	if err := d.conn.PublishMsg(out); err != nil {
		return domain.DeliveryResult{}, fmt.Errorf("publish mail job: %w", err)
	}
	if err := d.conn.FlushWithContext(ctx); err != nil {
		return domain.DeliveryResult{}, fmt.Errorf("flush mail job: %w", err)
	}
	return domain.DeliveryResult{Channel: config.DispatchNATS, MessageID: job.JobID}, nil
}
