package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmlTemplate "html/template"
	"strings"
	textTemplate "text/template"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/campus-market/backend/internal/config"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Template names.
const (
	TemplateActivationCode = "activation_code.tmpl"
	TemplateLoginCode      = "login_code.tmpl"
	TemplateKYCApproved    = "kyc_approved.tmpl"
	TemplateKYCDeclined    = "kyc_declined.tmpl"
)

const defaultTimeout = 10 * time.Second

// Sender delivers one templated email.
type Sender interface {
	Send(ctx context.Context, recipient string, data any, template string) error
}

// MailClient is the part of *mail.Client the mailer uses.
type MailClient interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Mailer renders embedded templates and sends them through an SMTP relay.
// Retries are left to the caller.
type Mailer struct {
	client MailClient
	from   string
}

// NewMailer builds an SMTP backed mailer.
func NewMailer(cfg config.NotificationConfig) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithTimeout(defaultTimeout),
		mail.WithPort(cfg.SMTPPort),
	}
	if cfg.SMTPTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if cfg.SMTPUsername != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUsername),
			mail.WithPassword(cfg.SMTPPassword),
		)
	}

	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return NewWithClient(client, cfg.EmailFrom), nil
}

// NewWithClient wires an existing client.
func NewWithClient(client MailClient, from string) *Mailer {
	return &Mailer{client: client, from: from}
}

func (m *Mailer) Send(ctx context.Context, recipient string, data any, template string) error {
	subject, plain, html, err := render(template, data)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.To(recipient); err != nil {
		return err
	}
	if err := msg.From(m.from); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, plain)
	if html != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, html)
	}

	return m.client.DialAndSendWithContext(ctx, msg)
}

func render(name string, data any) (subject, plain, html string, err error) {
	pattern := "templates/" + name

	ts, err := textTemplate.New("").ParseFS(templateFS, pattern)
	if err != nil {
		return "", "", "", err
	}

	buf := new(bytes.Buffer)
	if err := ts.ExecuteTemplate(buf, "subject", data); err != nil {
		return "", "", "", err
	}
	subject = strings.TrimSpace(buf.String())

	buf.Reset()
	if err := ts.ExecuteTemplate(buf, "plainBody", data); err != nil {
		return "", "", "", err
	}
	plain = strings.TrimSpace(buf.String())

	if ts.Lookup("htmlBody") != nil {
		hts, err := htmlTemplate.New("").ParseFS(templateFS, pattern)
		if err != nil {
			return "", "", "", err
		}
		buf.Reset()
		if err := hts.ExecuteTemplate(buf, "htmlBody", data); err != nil {
			return "", "", "", err
		}
		html = buf.String()
	}
	return subject, plain, html, nil
}

// LogSender renders the email and logs it instead of sending. Used when no
// SMTP relay is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender builds a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger.Named("mailer")}
}

func (s *LogSender) Send(_ context.Context, recipient string, data any, template string) error {
	subject, plain, _, err := render(template, data)
	if err != nil {
		return err
	}
	s.logger.Info("email not sent, smtp disabled",
		zap.String("to", recipient),
		zap.String("subject", subject),
		zap.String("body", plain))
	return nil
}
