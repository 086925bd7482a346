// Package delivery sends outbound messages to customers through the
// Graph messaging API. Transport-level failures are reported as typed
// outcomes rather than errors so callers can branch without unwrapping.
package delivery

// Outcome classifies the result of one send attempt.
type Outcome string

const (
	// OutcomeSent means the provider accepted the message.
	OutcomeSent Outcome = "sent"
	// OutcomeNoCredential means no page token is configured; no attempt made.
	OutcomeNoCredential Outcome = "no_credential"
	// OutcomeInvalidCredential means the configured token is unusable; no attempt made.
	OutcomeInvalidCredential Outcome = "invalid_credential"
	// OutcomeWindowClosed means the 24h messaging window for the recipient has lapsed.
	OutcomeWindowClosed Outcome = "window_closed"
	// OutcomeRateLimited covers both the local per-page limiter and provider 429s.
	OutcomeRateLimited Outcome = "rate_limited"
	// OutcomeForbidden means the provider rejected the send with 403.
	OutcomeForbidden Outcome = "forbidden"
	// OutcomeBadRequest means the provider rejected the payload with 400.
	OutcomeBadRequest Outcome = "bad_request"
	// OutcomeFailed covers transport errors and unexpected provider statuses.
	OutcomeFailed Outcome = "failed"
)

// Result is the typed outcome of a send attempt. MessageID is set only
// when Outcome is OutcomeSent.
type Result struct {
	Outcome   Outcome
	MessageID string
}

// Delivered reports whether the provider accepted the message.
func (r Result) Delivered() bool { return r.Outcome == OutcomeSent }
