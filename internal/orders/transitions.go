package orders

import "github.com/gaslink-africa/gaslink-backend/pkg/enums"

// allowedTransitions is the single authoritative lifecycle table. An order in
// pending_payment leaves it only through payment verification or cancellation
// of the unpaid order.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPendingPayment: {
		enums.OrderStatusPending,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusPending: {
		enums.OrderStatusConfirmed,
		enums.OrderStatusRejected,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusConfirmed: {
		enums.OrderStatusProcessing,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusProcessing: {
		enums.OrderStatusDispatched,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusDispatched: {
		enums.OrderStatusDelivered,
	},
}

// CanTransition reports whether the lifecycle table allows from -> to.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// AllowedTargets returns the statuses reachable from the given status.
func AllowedTargets(from enums.OrderStatus) []enums.OrderStatus {
	targets := allowedTransitions[from]
	out := make([]enums.OrderStatus, len(targets))
	copy(out, targets)
	return out
}
