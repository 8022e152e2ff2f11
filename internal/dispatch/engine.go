package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/bulk-dispatch/internal/pkg/logger"
)

// Batch size bounds. Provider-side rate limiters punish large bursts, so
// the ceiling stays low regardless of configuration.
const (
	MinBatchSize     = 2
	MaxBatchSize     = 30
	DefaultBatchSize = 10
)

// Message is one outbound email. The engine clones it per recipient; the
// rendered content is shared across the run.
type Message struct {
	To       string
	FromName string
	Subject  string
	HTML     string
	Text     string
}

// SendResult reports the outcome of a single transport call.
type SendResult struct {
	Success   bool
	MessageID string
	Err       error
}

// Sender is the delivery transport boundary, the run's only true I/O.
// Adapters live in internal/transport.
type Sender interface {
	Send(ctx context.Context, cred Credential, msg *Message) (*SendResult, error)
}

// Limiter is an optional shared throughput ceiling consulted before each
// batch. Reserve returns how long to wait before n sends under identity
// are allowed; zero means go now.
type Limiter interface {
	Reserve(ctx context.Context, identity string, n int) (time.Duration, error)
}

// Engine runs one bulk dispatch: partitions the normalized recipient set
// into batches, paces them, rotates credentials on failure, and aggregates
// per-recipient outcomes. Single logical thread of control; delivery
// attempts are never parallelized within a run.
type Engine struct {
	sender     Sender
	pool       *CredentialPool
	batchSize  int
	batchDelay time.Duration
	clock      Clock
	limiter    Limiter
}

// NewEngine builds an engine for a single run. batchSize is clamped to
// [MinBatchSize, MaxBatchSize]; zero selects the default.
func NewEngine(sender Sender, pool *CredentialPool, batchSize int, batchDelay time.Duration) *Engine {
	if batchSize == 0 {
		batchSize = DefaultBatchSize
	}
	if batchSize < MinBatchSize {
		batchSize = MinBatchSize
	}
	if batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	return &Engine{
		sender:     sender,
		pool:       pool,
		batchSize:  batchSize,
		batchDelay: batchDelay,
		clock:      NewClock(),
	}
}

// WithClock replaces the wall clock, for tests.
func (e *Engine) WithClock(c Clock) *Engine {
	e.clock = c
	return e
}

// WithLimiter attaches a shared throughput ceiling.
func (e *Engine) WithLimiter(l Limiter) *Engine {
	e.limiter = l
	return e
}

// Run delivers msg to every recipient and returns the aggregated result.
// Recipients must already be normalized. The run never aborts on delivery
// failures; cancellation is honored at batch boundaries, and unattempted
// recipients are reported failed with ReasonCancelled.
func (e *Engine) Run(ctx context.Context, recipients []string, msg *Message) *Result {
	res := &Result{RunID: uuid.New().String()}
	batches := partition(recipients, e.batchSize)

	logger.Info("dispatch run started",
		"run_id", res.RunID,
		"recipients", len(recipients),
		"batches", len(batches),
		"pool_size", e.pool.Size(),
	)

	// Identities each recipient has already failed on. Guards the bounded
	// retry invariant: never the same credential twice for one recipient.
	tried := make(map[string]map[string]bool)

	exhausted := false
	for bi, batch := range batches {
		if exhausted {
			for _, rcpt := range batch {
				res.markFailed(rcpt, ReasonPoolExhausted)
			}
			continue
		}

		// Pacing delay before every batch except the first. Rotation inside
		// a batch never waits here; this is normal-throughput pacing only.
		if bi > 0 {
			if err := e.clock.Sleep(ctx, e.batchDelay); err != nil {
				e.cancelFrom(res, batches[bi:])
				return res
			}
		}
		if ctx.Err() != nil {
			e.cancelFrom(res, batches[bi:])
			return res
		}

		cred, err := e.pool.Next()
		if err != nil {
			exhausted = true
			for _, rcpt := range batch {
				res.markFailed(rcpt, ReasonPoolExhausted)
			}
			continue
		}

		e.waitForCeiling(ctx, cred.Identity, len(batch))

		for ri, rcpt := range batch {
			outcome, reason := e.attempt(ctx, &cred, rcpt, msg, tried)
			switch outcome {
			case outcomeSent:
				res.markSent()
			case outcomeFailed:
				res.markFailed(rcpt, reason)
			case outcomeExhausted:
				res.markFailed(rcpt, ReasonPoolExhausted)
				exhausted = true
			case outcomeCancelled:
				e.cancelFrom(res, append([][]string{batch[ri:]}, batches[bi+1:]...))
				return res
			}
			if exhausted {
				for _, rest := range batch[ri+1:] {
					res.markFailed(rest, ReasonPoolExhausted)
				}
				break
			}
		}
	}

	logger.Info("dispatch run finished",
		"run_id", res.RunID,
		"sent", res.Sent,
		"failed", res.Failed,
		"active_credentials", e.pool.Active(),
	)
	return res
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeFailed
	outcomeExhausted
	outcomeCancelled
)

// attempt delivers to one recipient, rotating credentials on failure.
// State machine: Attempting -> Sent | RotateCredential -> Attempting | Failed.
// cred is updated in place so the rest of the batch continues on the
// replacement credential after a rotation.
func (e *Engine) attempt(ctx context.Context, cred *Credential, rcpt string, msg *Message, tried map[string]map[string]bool) (outcome, string) {
	attemptNo := 0
	for {
		if ctx.Err() != nil {
			return outcomeCancelled, ReasonCancelled
		}
		if tried[rcpt] == nil {
			tried[rcpt] = make(map[string]bool)
		}
		if tried[rcpt][cred.Identity] {
			// Already failed on this credential in this run; rotation below
			// disables failing credentials, so this only trips if the pool
			// handed back a credential the recipient has seen.
			return outcomeFailed, ReasonDeliveryFailed
		}
		tried[rcpt][cred.Identity] = true
		attemptNo++

		m := *msg
		m.To = rcpt
		sr, err := e.sender.Send(ctx, *cred, &m)
		if err == nil && sr != nil && sr.Success {
			logger.Debug("delivered",
				"recipient", rcpt,
				"identity", cred.Identity,
				"attempt", attemptNo,
				"message_id", sr.MessageID,
			)
			return outcomeSent, ""
		}
		if ctx.Err() != nil {
			return outcomeCancelled, ReasonCancelled
		}

		failure := err
		if failure == nil && sr != nil {
			failure = sr.Err
		}
		logger.Warn("delivery failed, rotating credential",
			"recipient", rcpt,
			"identity", cred.Identity,
			"attempt", attemptNo,
			"error", errString(failure),
		)

		// Skip the credential for the remainder of the run and retry the
		// same recipient immediately on the next active one.
		e.pool.Disable(*cred)
		next, perr := e.pool.Next()
		if perr != nil {
			return outcomeExhausted, ReasonPoolExhausted
		}
		*cred = next
	}
}

// waitForCeiling blocks until the shared per-credential minute ceiling
// admits n sends. Limiter errors are logged and treated as admission, the
// in-run pacing still applies.
func (e *Engine) waitForCeiling(ctx context.Context, identity string, n int) {
	if e.limiter == nil {
		return
	}
	for {
		wait, err := e.limiter.Reserve(ctx, identity, n)
		if err != nil {
			logger.Warn("throughput ceiling check failed", "identity", identity, "error", err.Error())
			return
		}
		if wait <= 0 {
			return
		}
		if e.clock.Sleep(ctx, wait) != nil {
			return
		}
	}
}

func (e *Engine) cancelFrom(res *Result, remaining [][]string) {
	for _, batch := range remaining {
		for _, rcpt := range batch {
			res.markFailed(rcpt, ReasonCancelled)
		}
	}
	logger.Warn("dispatch run cancelled", "run_id", res.RunID, "sent", res.Sent, "failed", res.Failed)
}

func partition(recipients []string, size int) [][]string {
	var batches [][]string
	for start := 0; start < len(recipients); start += size {
		end := start + size
		if end > len(recipients) {
			end = len(recipients)
		}
		batches = append(batches, recipients[start:end])
	}
	return batches
}

func errString(err error) string {
	if err == nil {
		return "send reported failure"
	}
	return err.Error()
}
