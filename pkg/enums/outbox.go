package enums

import "fmt"

// OutboxEventType is the canonical event_type emitted through the outbox.
type OutboxEventType string

const (
	EventOrderPlaced        OutboxEventType = "order.placed"
	EventOrderStatusChanged OutboxEventType = "order.status_changed"
	EventOrderCancelled     OutboxEventType = "order.cancelled"
	EventPaymentCompleted   OutboxEventType = "payment.completed"
	EventPaymentFailed      OutboxEventType = "payment.failed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderPlaced,
	EventOrderStatusChanged,
	EventOrderCancelled,
	EventPaymentCompleted,
	EventPaymentFailed,
}

// IsValid reports whether the value matches the canonical outbox event enum.
func (t OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregatePayment OutboxAggregateType = "payment"
)

var validOutboxAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregatePayment,
}

// IsValid reports whether the value matches the canonical aggregate enum.
func (t OutboxAggregateType) IsValid() bool {
	for _, candidate := range validOutboxAggregateTypes {
		if candidate == t {
			return true
		}
	}
	return false
}
