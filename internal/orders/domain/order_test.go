package domain

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusPendingConfirmation, StatusConfirmed, true},
		{StatusConfirmed, StatusProcessing, true},
		{StatusProcessing, StatusShipped, true},
		{StatusShipped, StatusDelivered, true},

		{StatusPendingConfirmation, StatusCancelled, true},
		{StatusShipped, StatusRefunded, true},

		{StatusPendingConfirmation, StatusProcessing, false},
		{StatusConfirmed, StatusPendingConfirmation, false},
		{StatusDelivered, StatusRefunded, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusRefunded, StatusCancelled, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []string{StatusDelivered, StatusCancelled, StatusRefunded} {
		if !IsTerminal(s) {
			t.Errorf("IsTerminal(%q) = false, want true", s)
		}
	}
	for _, s := range []string{StatusPendingConfirmation, StatusConfirmed, StatusProcessing, StatusShipped} {
		if IsTerminal(s) {
			t.Errorf("IsTerminal(%q) = true, want false", s)
		}
	}
}
