package smtp

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/otp-api-nosql/internal/config"
	"github.com/otp-api-nosql/internal/domain"
)

// Channel delivers a verification code to a recipient out-of-band.
// Configured distinguishes a live channel from the Disabled variant so
// the issuance service can take the degraded path explicitly instead
// of probing for credentials at send time.
type Channel interface {
	Send(ctx context.Context, to, subject, body string) error
	Configured() bool
}

type mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
}

// NewChannel returns an SMTP-backed Channel, or the Disabled variant
// when no host/sender is configured.
func NewChannel(cfg *config.Config) Channel {
	if cfg.SMTPHost == "" || cfg.SMTPFrom == "" {
		return Disabled{}
	}
	return &mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
	}
}

func (m *mailer) Configured() bool { return true }

func (m *mailer) Send(ctx context.Context, to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	// smtp.SendMail has no context support; run it aside so the caller's
	// deadline still bounds the delivery leg.
	errCh := make(chan error, 1)
	go func() {
		errCh <- smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg))
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Disabled is the degraded delivery capability: nothing is sent, and
// callers that see Configured() == false are expected to surface the
// code to the requester directly instead.
type Disabled struct{}

func (Disabled) Configured() bool { return false }

func (Disabled) Send(context.Context, string, string, string) error {
	return fmt.Errorf("no delivery channel configured: %w", domain.ErrDeliveryFailed)
}
