package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderProduct is one commodity line within an order request.
// RemainingQty is the portion not yet covered by a live allocation;
// the conservation invariant RequestedQty = remaining + pending +
// accepted allocation quantities holds at all times.
type OrderProduct struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID      string             `gorm:"column:product_id;type:text;not null"`
	RequestedQty   decimal.Decimal    `gorm:"column:requested_qty;type:numeric(14,3);not null"`
	RemainingQty   decimal.Decimal    `gorm:"column:remaining_qty;type:numeric(14,3);not null"`
	MaxPricePaise  *int64             `gorm:"column:max_price_paise"`
	ReallocRounds  int                `gorm:"column:realloc_rounds;not null;default:0"`
	Allocations    []SellerAllocation `gorm:"foreignKey:OrderProductID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
