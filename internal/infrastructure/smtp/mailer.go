package smtp

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/jobportal-api/internal/config"
	"github.com/jobportal-api/internal/domain"
	"gopkg.in/gomail.v2"
)

//go:embed templates/*
var templateFS embed.FS

var subjects = map[string]string{
	domain.TemplateCompanyEmailVerification: "Confirm your company email",
}

// Sender delivers a composed message. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// maxInFlight caps sends still running after their caller gave up.
const maxInFlight = 4

// Mailer renders templated messages and delivers them over SMTP.
type Mailer struct {
	from     string
	sender   Sender
	html     *htmltemplate.Template
	text     *texttemplate.Template
	inflight chan struct{}
}

func NewMailer(cfg *config.Config) (*Mailer, error) {
	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	return NewMailerWithSender(cfg.SMTPFrom, d)
}

func NewMailerWithSender(from string, sender Sender) (*Mailer, error) {
	html, err := htmltemplate.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}
	text, err := texttemplate.ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}
	return &Mailer{
		from:     from,
		sender:   sender,
		html:     html,
		text:     text,
		inflight: make(chan struct{}, maxInFlight),
	}, nil
}

// Dispatch sends msg. gomail has no context support, so the send runs in its own
// goroutine and Dispatch returns when ctx is done; the send itself is not interrupted.
// At most maxInFlight sends run at once. When all slots are held by stalled sends,
// Dispatch waits for one to free up until ctx is done.
func (m *Mailer) Dispatch(ctx context.Context, msg domain.OutboundMessage) (domain.DeliveryResult, error) {
	compiled, err := m.compose(msg)
	if err != nil {
		return domain.DeliveryResult{}, err
	}
	select {
	case m.inflight <- struct{}{}:
	case <-ctx.Done():
		return domain.DeliveryResult{}, fmt.Errorf("smtp send: all %d connections busy: %w", maxInFlight, ctx.Err())
	}
	done := make(chan error, 1)
	go func() {
		defer func() { <-m.inflight }()
		done <- m.sender.DialAndSend(compiled)
	}()

	select {
	case err := <-done:
		if err != nil {
			return domain.DeliveryResult{}, fmt.Errorf("smtp send: %w", err)
		}
		return domain.DeliveryResult{Channel: config.DispatchSMTP}, nil
	case <-ctx.Done():
		return domain.DeliveryResult{}, fmt.Errorf("smtp send: %w", ctx.Err())
	}
}

func (m *Mailer) compose(msg domain.OutboundMessage) (*gomail.Message, error) {
	subject, ok := subjects[msg.TemplateID]
	if !ok {
		return nil, fmt.Errorf("unknown template %q", msg.TemplateID)
	}
	var html, text bytes.Buffer
	if err := m.html.ExecuteTemplate(&html, msg.TemplateID+".html", msg.Payload); err != nil {
		return nil, fmt.Errorf("render %s html: %w", msg.TemplateID, err)
	}
	if err := m.text.ExecuteTemplate(&text, msg.TemplateID+".txt", msg.Payload); err != nil {
		return nil, fmt.Errorf("render %s text: %w", msg.TemplateID, err)
	}

	out := gomail.NewMessage()
	out.SetHeader("From", m.from)
	out.SetHeader("To", msg.To)
	out.SetHeader("Subject", subject)
	out.SetBody("text/plain", text.String())
	out.AddAlternative("text/html", html.String())
	return out, nil
}
