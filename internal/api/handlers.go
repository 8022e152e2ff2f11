package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ignite/bulk-dispatch/internal/config"
	"github.com/ignite/bulk-dispatch/internal/dispatch"
	"github.com/ignite/bulk-dispatch/internal/message"
	"github.com/ignite/bulk-dispatch/internal/pkg/httputil"
)

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	cfg      *config.Config
	sender   dispatch.Sender
	renderer *message.Renderer
	limiter  dispatch.Limiter
}

// NewHandlers creates the handler set.
func NewHandlers(cfg *config.Config, sender dispatch.Sender, renderer *message.Renderer, limiter dispatch.Limiter) *Handlers {
	return &Handlers{cfg: cfg, sender: sender, renderer: renderer, limiter: limiter}
}

// EmailList accepts either a JSON string (possibly delimited) or an array
// of strings for the "emails" field.
type EmailList []string

// UnmarshalJSON implements the string-or-array decoding.
func (e *EmailList) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*e = EmailList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("emails must be a string or an array of strings")
	}
	*e = EmailList(many)
	return nil
}

// DispatchRequest is the POST /bulk-dispatch body.
type DispatchRequest struct {
	Emails   EmailList    `json:"emails"`
	Template string       `json:"template"`
	Data     message.Data `json:"data"`
	Subject  string       `json:"subject"`
}

// DispatchResponse is the success envelope with the aggregated counts.
type DispatchResponse struct {
	Success         bool                       `json:"success"`
	Sent            int                        `json:"sent"`
	Failed          int                        `json:"failed"`
	FailedAddresses []dispatch.FailedRecipient `json:"failedAddresses,omitempty"`
}

// HealthCheck is the liveness probe.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}

// BulkDispatch validates the request, renders the message once, then runs
// the dispatch engine synchronously and returns the aggregated result.
// Partial delivery failure is still a 200; only pre-dispatch rejection
// produces an error status.
func (h *Handlers) BulkDispatch(w http.ResponseWriter, r *http.Request) {
	var req DispatchRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	kind, err := message.ParseKind(req.Template)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err := kind.Validate(req.Data); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	recipients, err := dispatch.Normalize(req.Emails)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	markup, err := h.renderer.Render(kind, req.Data)
	if err != nil {
		httputil.InternalError(w, "template rendering failed", err)
		return
	}

	subject := req.Subject
	if subject == "" {
		subject = kind.DefaultSubject(req.Data)
		if subject == "" {
			subject = h.cfg.Dispatch.DefaultSubject
		}
	}

	// Each request owns its pool: credentials disabled during one run do
	// not leak into concurrent or later runs.
	pool, err := dispatch.NewCredentialPool(poolCredentials(h.cfg.Dispatch.Credentials))
	if err != nil {
		httputil.InternalError(w, err.Error(), err)
		return
	}

	engine := dispatch.NewEngine(h.sender, pool, h.cfg.Dispatch.BatchSize, h.cfg.Dispatch.BatchDelay())
	if h.limiter != nil {
		engine.WithLimiter(h.limiter)
	}

	result := engine.Run(r.Context(), recipients, &dispatch.Message{
		FromName: h.cfg.Dispatch.FromName,
		Subject:  subject,
		HTML:     markup,
		Text:     h.renderer.PlainText(kind, req.Data),
	})

	httputil.OK(w, DispatchResponse{
		Success:         true,
		Sent:            result.Sent,
		Failed:          result.Failed,
		FailedAddresses: result.FailedRecipients,
	})
}

func poolCredentials(creds []config.Credential) []dispatch.Credential {
	out := make([]dispatch.Credential, len(creds))
	for i, c := range creds {
		out[i] = dispatch.Credential{Identity: c.Identity, Secret: c.Secret}
	}
	return out
}
