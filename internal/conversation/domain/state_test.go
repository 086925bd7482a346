package domain

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StateAIActive, StateHandoverPending, true},
		{StateHandoverPending, StateHumanActive, true},
		{StateHandoverPending, StateAIActive, true},
		{StateHumanActive, StateAIActive, true},
		{StateAIActive, StateResolved, true},
		{StateHandoverPending, StateResolved, true},
		{StateHumanActive, StateResolved, true},
		{StateResolved, StateAIActive, true},

		{StateAIActive, StateHumanActive, false},
		{StateHumanActive, StateHandoverPending, false},
		{StateAIActive, StateAIActive, false},
		{StateResolved, StateHumanActive, false},
		{StateResolved, StateHandoverPending, false},
		{"unknown", StateAIActive, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestIsAIPaused(t *testing.T) {
	if IsAIPaused(StateAIActive) {
		t.Error("AI must not be paused while it owns the conversation")
	}
	if !IsAIPaused(StateHandoverPending) {
		t.Error("AI must be paused as soon as a handover is requested")
	}
	if !IsAIPaused(StateHumanActive) {
		t.Error("AI must be paused while a human owns the conversation")
	}
	if IsAIPaused(StateResolved) {
		t.Error("a closed conversation has no handover holding the AI")
	}
}

func TestPriorityFor(t *testing.T) {
	tests := []struct {
		name      string
		reason    string
		sentiment float64
		want      string
	}{
		{"manual request ignores sentiment", ReasonManualRequest, -0.95, PriorityMedium},
		{"hostile sentiment is urgent", ReasonComplexIssue, -0.85, PriorityUrgent},
		{"very negative sentiment is high", ReasonComplexIssue, -0.6, PriorityHigh},
		{"escalation with mild sentiment is urgent", ReasonEscalation, -0.1, PriorityUrgent},
		{"negative sentiment reason is high", ReasonNegativeSentiment, 0, PriorityHigh},
		{"complex issue is medium", ReasonComplexIssue, 0.2, PriorityMedium},
		{"unknown reason is low", "other", 0.5, PriorityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PriorityFor(tt.reason, tt.sentiment); got != tt.want {
				t.Errorf("PriorityFor(%q, %v) = %q, want %q", tt.reason, tt.sentiment, got, tt.want)
			}
		})
	}
}

func TestIsValidReason(t *testing.T) {
	for _, r := range []string{ReasonNegativeSentiment, ReasonComplexIssue, ReasonManualRequest, ReasonEscalation} {
		if !IsValidReason(r) {
			t.Errorf("IsValidReason(%q) = false, want true", r)
		}
	}
	if IsValidReason("because") {
		t.Error("IsValidReason should reject unknown reasons")
	}
}
