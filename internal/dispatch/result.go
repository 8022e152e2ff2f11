package dispatch

// Failure reasons recorded per recipient in the final result.
const (
	ReasonDeliveryFailed = "delivery failed"
	ReasonPoolExhausted  = "all credentials exhausted"
	ReasonCancelled      = "cancelled"
)

// FailedRecipient pairs a terminally failed address with its reason.
type FailedRecipient struct {
	Address string `json:"address"`
	Reason  string `json:"reason"`
}

// Result is the immutable summary of one dispatch run.
// Invariant: Sent + Failed == number of normalized recipients.
type Result struct {
	RunID            string            `json:"run_id"`
	Sent             int               `json:"sent"`
	Failed           int               `json:"failed"`
	FailedRecipients []FailedRecipient `json:"failed_addresses,omitempty"`
}

func (r *Result) markSent() { r.Sent++ }

func (r *Result) markFailed(addr, reason string) {
	r.Failed++
	r.FailedRecipients = append(r.FailedRecipients, FailedRecipient{Address: addr, Reason: reason})
}
