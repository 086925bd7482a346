// Package domain holds the conversation control-ownership state machine.
// A conversation is owned either by the AI or by a human agent; every
// transition between the two goes through an explicit handover request.
package domain

// Conversation control states. Resolved is the closed state: conversations
// are never deleted, an explicit close moves them here and a new customer
// message reopens them as ai_active.
const (
	StateAIActive        = "ai_active"
	StateHandoverPending = "handover_pending"
	StateHumanActive     = "human_active"
	StateResolved        = "resolved"
)

// Handover request lifecycle states.
const (
	HandoverPending  = "pending"
	HandoverAccepted = "accepted"
	HandoverResolved = "resolved"
	HandoverTimedOut = "timeout"
)

// Handover trigger reasons.
const (
	ReasonNegativeSentiment = "negative_sentiment"
	ReasonComplexIssue      = "complex_issue"
	ReasonManualRequest     = "manual_request"
	ReasonEscalation        = "escalation"
)

// Handover priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// validTransitions defines the allowed conversation state changes.
var validTransitions = map[string][]string{
	StateAIActive:        {StateHandoverPending, StateResolved},
	StateHandoverPending: {StateHumanActive, StateAIActive, StateResolved},
	StateHumanActive:     {StateAIActive, StateResolved},
	StateResolved:        {StateAIActive},
}

// CanTransition reports whether a conversation may move between two states.
func CanTransition(from, to string) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsAIPaused reports whether the AI must stay silent in the given state.
// The AI is paused from the moment a handover is requested, not only once a
// human accepts; a customer must never get an AI reply while waiting for an
// agent.
func IsAIPaused(state string) bool {
	return state == StateHandoverPending || state == StateHumanActive
}

// IsValidReason reports whether a handover reason is one of the known set.
func IsValidReason(reason string) bool {
	switch reason {
	case ReasonNegativeSentiment, ReasonComplexIssue, ReasonManualRequest, ReasonEscalation:
		return true
	}
	return false
}

// PriorityFor derives the priority of a handover request from its trigger
// reason and the sentiment score of the triggering message. Scores run from
// -1 (hostile) to 1 (delighted); manual requests are always medium because a
// human explicitly asked, regardless of tone.
func PriorityFor(reason string, sentimentScore float64) string {
	if reason == ReasonManualRequest {
		return PriorityMedium
	}
	if sentimentScore < -0.8 {
		return PriorityUrgent
	}
	if sentimentScore < -0.5 {
		return PriorityHigh
	}

	switch reason {
	case ReasonEscalation:
		return PriorityUrgent
	case ReasonNegativeSentiment:
		return PriorityHigh
	case ReasonComplexIssue:
		return PriorityMedium
	default:
		return PriorityLow
	}
}
