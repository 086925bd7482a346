// Package domain holds the order lifecycle rules.
package domain

// Order statuses. Fulfillment is linear; cancellation and refund are terminal
// exits available before delivery completes.
const (
	StatusPendingConfirmation = "pending_confirmation"
	StatusConfirmed           = "confirmed"
	StatusProcessing          = "processing"
	StatusShipped             = "shipped"
	StatusDelivered           = "delivered"
	StatusCancelled           = "cancelled"
	StatusRefunded            = "refunded"
)

var nextStatus = map[string]string{
	StatusPendingConfirmation: StatusConfirmed,
	StatusConfirmed:           StatusProcessing,
	StatusProcessing:          StatusShipped,
	StatusShipped:             StatusDelivered,
}

// IsTerminal reports whether an order can no longer change status.
func IsTerminal(status string) bool {
	switch status {
	case StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// IsValidStatus reports whether the status is one of the known set.
func IsValidStatus(status string) bool {
	switch status {
	case StatusPendingConfirmation, StatusConfirmed, StatusProcessing,
		StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// CanTransition reports whether an order may move between two statuses:
// one step forward along the fulfillment sequence, or out to cancelled or
// refunded from any non-terminal state.
func CanTransition(from, to string) bool {
	if IsTerminal(from) {
		return false
	}
	if to == StatusCancelled || to == StatusRefunded {
		return true
	}
	return nextStatus[from] == to
}
