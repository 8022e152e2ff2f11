// Package transport contains the outbound delivery adapters.
//
// Adapters are split into individual files:
//   - smtp.go: direct SMTP submission via gomail (credential = mailbox login)
//   - ses.go:  AWS SES v2 (credential = access key pair)
//
// Each adapter implements dispatch.Sender. A failed send is returned as an
// unsuccessful SendResult, never a panic; the engine decides whether to
// rotate credentials or mark the recipient failed.
package transport

import (
	"fmt"

	"github.com/ignite/bulk-dispatch/internal/dispatch"
)

// Kinds of configured transport.
const (
	KindSMTP = "smtp"
	KindSES  = "ses"
)

// New constructs the sender for the configured transport kind.
func New(kind string, smtpHost string, smtpPort int, sesRegion, sesFromEmail string) (dispatch.Sender, error) {
	switch kind {
	case KindSMTP:
		return NewSMTPSender(smtpHost, smtpPort), nil
	case KindSES:
		return NewSESSender(sesRegion, sesFromEmail), nil
	}
	return nil, fmt.Errorf("unknown transport kind %q", kind)
}
