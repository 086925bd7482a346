package delivery

import (
	"context"

	"igcommerce_backend/platform/apperr"
)

// TextSender adapts the coordinator to callers that want a plain error
// surface, such as the manual agent-message path.
type TextSender struct {
	coordinator *Coordinator
}

// NewTextSender wraps a coordinator.
func NewTextSender(coordinator *Coordinator) *TextSender {
	return &TextSender{coordinator: coordinator}
}

// SendText delivers a message and converts non-sent outcomes into domain
// errors so HTTP handlers can surface them.
func (s *TextSender) SendText(ctx context.Context, pageID, recipientID, text string) error {
	result := s.coordinator.Send(ctx, pageID, recipientID, text)
	switch result.Outcome {
	case OutcomeSent:
		return nil
	case OutcomeWindowClosed:
		return apperr.Conflict("messaging window has closed for this customer")
	case OutcomeNoCredential, OutcomeInvalidCredential:
		return apperr.Internal("messaging credential unavailable for page")
	case OutcomeRateLimited:
		return apperr.Conflict("message rate limit reached, try again shortly")
	default:
		return apperr.Internal("message delivery failed: " + string(result.Outcome))
	}
}
