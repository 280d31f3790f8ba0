package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Rajput612/mandihouse-backend/pkg/enums"
)

// OrderSubmittedEvent signals a new order request entered the pipeline.
type OrderSubmittedEvent struct {
	OrderID      uuid.UUID `json:"order_id"`
	BuyerID      uuid.UUID `json:"buyer_id"`
	ProductCount int       `json:"product_count"`
}

// OrderAllocatedEvent reports that every line of the order is fully covered.
type OrderAllocatedEvent struct {
	OrderID uuid.UUID         `json:"order_id"`
	Status  enums.OrderStatus `json:"status"`
}

// ProductShortfall describes the uncovered portion of one order line.
type ProductShortfall struct {
	OrderProductID uuid.UUID       `json:"order_product_id"`
	ProductID      string          `json:"product_id"`
	RemainingQty   decimal.Decimal `json:"remaining_qty"`
}

// OrderPartiallyAllocatedEvent reports lines left uncovered after allocation.
type OrderPartiallyAllocatedEvent struct {
	OrderID    uuid.UUID          `json:"order_id"`
	Shortfalls []ProductShortfall `json:"shortfalls"`
}

// OrderProcessingEvent is emitted when all allocations are seller-accepted.
type OrderProcessingEvent struct {
	OrderID uuid.UUID `json:"order_id"`
	BuyerID uuid.UUID `json:"buyer_id"`
}

// OrderCompletedEvent marks delivery confirmation.
type OrderCompletedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	BuyerID     uuid.UUID `json:"buyer_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// OrderCancelledEvent is emitted when a buyer cancels the order.
type OrderCancelledEvent struct {
	OrderID               uuid.UUID `json:"order_id"`
	BuyerID               uuid.UUID `json:"buyer_id"`
	CancelledAt           time.Time `json:"cancelled_at"`
	Reason                string    `json:"reason,omitempty"`
	ReturnApprovalsNeeded int       `json:"return_approvals_needed"`
}

// AllocationCreatedEvent notifies a seller of a proposed allocation.
type AllocationCreatedEvent struct {
	AllocationID   uuid.UUID       `json:"allocation_id"`
	OrderID        uuid.UUID       `json:"order_id"`
	OrderProductID uuid.UUID       `json:"order_product_id"`
	SellerID       uuid.UUID       `json:"seller_id"`
	ProductID      string          `json:"product_id"`
	Qty            decimal.Decimal `json:"qty"`
	UnitPricePaise int64           `json:"unit_price_paise"`
	Round          int             `json:"round"`
	RespondBy      time.Time       `json:"respond_by"`
}

// AllocationAcceptedEvent records a seller's commitment to fulfill.
type AllocationAcceptedEvent struct {
	AllocationID uuid.UUID `json:"allocation_id"`
	OrderID      uuid.UUID `json:"order_id"`
	SellerID     uuid.UUID `json:"seller_id"`
	RespondedAt  time.Time `json:"responded_at"`
}

// AllocationRejectedEvent records a seller's refusal, including timeouts.
type AllocationRejectedEvent struct {
	AllocationID uuid.UUID          `json:"allocation_id"`
	OrderID      uuid.UUID          `json:"order_id"`
	SellerID     uuid.UUID          `json:"seller_id"`
	Reason       enums.RejectReason `json:"reason"`
	Round        int                `json:"round"`
}

// AllocationTimedOutEvent is emitted by the timeout sweep before the
// rejection path runs.
type AllocationTimedOutEvent struct {
	AllocationID uuid.UUID `json:"allocation_id"`
	OrderID      uuid.UUID `json:"order_id"`
	SellerID     uuid.UUID `json:"seller_id"`
	RespondBy    time.Time `json:"respond_by"`
}

// ReservationReleasedEvent reports stock returned to a seller's available pool.
type ReservationReleasedEvent struct {
	ReservationID uuid.UUID       `json:"reservation_id"`
	AllocationID  uuid.UUID       `json:"allocation_id"`
	SellerID      uuid.UUID       `json:"seller_id"`
	ProductID     string          `json:"product_id"`
	Qty           decimal.Decimal `json:"qty"`
}

// StockUpdatedEvent is emitted when a seller posts new stock or price.
type StockUpdatedEvent struct {
	SellerID       uuid.UUID       `json:"seller_id"`
	ProductID      string          `json:"product_id"`
	AvailableQty   decimal.Decimal `json:"available_qty"`
	UnitPricePaise int64           `json:"unit_price_paise"`
}

// NotificationRequestedEvent tells the notification consumer to materialize
// an in-app notification.
type NotificationRequestedEvent struct {
	RecipientID uuid.UUID              `json:"recipient_id"`
	Type        enums.NotificationType `json:"type"`
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	Link        *string                `json:"link,omitempty"`
}
