package dispatch

import (
	"errors"
	"fmt"
)

// Sentinel errors returned before or during a dispatch run. Callers map
// these onto the HTTP error surface: ErrNoRecipients is a client error,
// ErrNoCredentials a server error, ErrPoolExhausted is recovered in-run
// and never escapes Run.
var (
	ErrNoRecipients  = errors.New("no valid recipients after normalization")
	ErrNoCredentials = errors.New("no credentials configured")
	ErrPoolExhausted = errors.New("all credentials disabled")
)

// DeliveryError reports a single failed send attempt. It is recovered
// locally by credential rotation and never aborts the run.
type DeliveryError struct {
	Recipient  string
	Credential string
	Err        error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s via %s failed: %v", e.Recipient, e.Credential, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
