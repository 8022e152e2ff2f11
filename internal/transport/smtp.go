package transport

import (
	"context"

	"github.com/ignite/bulk-dispatch/internal/dispatch"
	"github.com/ignite/bulk-dispatch/internal/pkg/logger"
	"gopkg.in/gomail.v2"
)

// SMTPSender submits mail over authenticated SMTP. The dialing mailbox is
// the credential's identity, so every rotation switches the submission
// account, not just the envelope sender.
type SMTPSender struct {
	host string
	port int
}

// NewSMTPSender creates an SMTP sender for the given submission endpoint.
func NewSMTPSender(host string, port int) *SMTPSender {
	if host == "" {
		host = "smtp.gmail.com"
	}
	if port == 0 {
		port = 587
	}
	return &SMTPSender{host: host, port: port}
}

// Send delivers one message using cred as the SMTP login.
func (s *SMTPSender) Send(ctx context.Context, cred dispatch.Credential, msg *dispatch.Message) (*dispatch.SendResult, error) {
	// gomail has no context support; honor cancellation before dialing.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(cred.Identity, msg.FromName))
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	if msg.Text != "" {
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	} else {
		m.SetBody("text/html", msg.HTML)
	}

	d := gomail.NewDialer(s.host, s.port, cred.Identity, cred.Secret)
	if err := d.DialAndSend(m); err != nil {
		logger.Warn("smtp send failed",
			"recipient", msg.To,
			"identity", cred.Identity,
			"host", s.host,
			"error", err.Error(),
		)
		return &dispatch.SendResult{
			Success: false,
			Err:     &dispatch.DeliveryError{Recipient: msg.To, Credential: cred.Identity, Err: err},
		}, nil
	}

	logger.Debug("smtp send accepted", "recipient", msg.To, "identity", cred.Identity)
	return &dispatch.SendResult{Success: true}, nil
}
