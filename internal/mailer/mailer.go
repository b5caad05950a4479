// Package mailer delivers rendered invoices over SMTP.
package mailer

import (
	"bytes"
	"context"

	"github.com/go-faster/errors"
	gomail "github.com/wneessen/go-mail"
)

// Config holds the mail relay connection settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTP sends mail through a relay using STARTTLS and plain authentication.
type SMTP struct {
	cfg Config
}

// NewSMTP returns an SMTP sender for the given relay configuration.
func NewSMTP(cfg Config) *SMTP {
	return &SMTP{cfg: cfg}
}

// Send delivers a plain-text message with a single PDF attachment to the
// recipient. The connection is opened per send; the shop register sends a
// handful of invoices per hour, so pooling is not worth the state.
func (s *SMTP) Send(ctx context.Context, recipient, subject, body string, attachment []byte, filename string) error {
	msg := gomail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return errors.Wrap(err, "set from address")
	}
	if err := msg.To(recipient); err != nil {
		return errors.Wrap(err, "set recipient")
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)
	if err := msg.AttachReader(filename, bytes.NewReader(attachment),
		gomail.WithFileContentType(gomail.ContentType("application/pdf"))); err != nil {
		return errors.Wrap(err, "attach invoice")
	}

	client, err := gomail.NewClient(s.cfg.Host,
		gomail.WithPort(s.cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.cfg.Username),
		gomail.WithPassword(s.cfg.Password),
	)
	if err != nil {
		return errors.Wrap(err, "create smtp client")
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return errors.Wrap(err, "send mail")
	}
	return nil
}
