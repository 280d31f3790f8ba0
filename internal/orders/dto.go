package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Rajput612/mandihouse-backend/pkg/enums"
	"github.com/Rajput612/mandihouse-backend/pkg/outbox"
	"github.com/Rajput612/mandihouse-backend/pkg/types"
)

// SubmitOrderInput is a buyer's purchase request.
type SubmitOrderInput struct {
	BuyerID         uuid.UUID
	DeliveryAddress *types.Address
	Notes           *string
	Products        []SubmitOrderProductInput
	Actor           *outbox.ActorRef
}

// SubmitOrderProductInput is one demand line of the request.
type SubmitOrderProductInput struct {
	ProductID     string
	Qty           decimal.Decimal
	MaxPricePaise *int64
}

// DecisionInput carries a seller's response to one allocation.
type DecisionInput struct {
	AllocationID uuid.UUID
	SellerID     uuid.UUID
	Decision     enums.AllocationDecision
	Reason       *enums.RejectReason
	Actor        *outbox.ActorRef
}

// OrderFilters describe the inputs supported by the buyer order list.
type OrderFilters struct {
	Status   *enums.OrderStatus
	DateFrom *time.Time
	DateTo   *time.Time
}

// OrderSummary exposes the aggregated fields returned in the list.
type OrderSummary struct {
	OrderID       uuid.UUID         `json:"order_id"`
	Status        enums.OrderStatus `json:"status"`
	SubtotalPaise int64             `json:"subtotal_paise"`
	ProductCount  int               `json:"product_count"`
	CreatedAt     time.Time         `json:"created_at"`
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
