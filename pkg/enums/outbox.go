package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrderRequest     OutboxAggregateType = "order_request"
	AggregateSellerAllocation OutboxAggregateType = "seller_allocation"
	AggregateInventoryRecord  OutboxAggregateType = "inventory_record"
	AggregateNotification     OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrderRequest,
	AggregateSellerAllocation,
	AggregateInventoryRecord,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderSubmitted          OutboxEventType = "order_submitted"
	EventOrderAllocated          OutboxEventType = "order_allocated"
	EventOrderPartiallyAllocated OutboxEventType = "order_partially_allocated"
	EventOrderProcessing         OutboxEventType = "order_processing"
	EventOrderCompleted          OutboxEventType = "order_completed"
	EventOrderCancelled          OutboxEventType = "order_cancelled"
	EventAllocationCreated       OutboxEventType = "allocation_created"
	EventAllocationAccepted      OutboxEventType = "allocation_accepted"
	EventAllocationRejected      OutboxEventType = "allocation_rejected"
	EventAllocationTimedOut      OutboxEventType = "allocation_timed_out"
	EventReservationReleased     OutboxEventType = "reservation_released"
	EventStockUpdated            OutboxEventType = "stock_updated"
	EventNotificationRequested   OutboxEventType = "notification_requested"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderSubmitted,
	EventOrderAllocated,
	EventOrderPartiallyAllocated,
	EventOrderProcessing,
	EventOrderCompleted,
	EventOrderCancelled,
	EventAllocationCreated,
	EventAllocationAccepted,
	EventAllocationRejected,
	EventAllocationTimedOut,
	EventReservationReleased,
	EventStockUpdated,
	EventNotificationRequested,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
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
	return "", fmt.Errorf("invalid event type %q", value)
}
