package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Rajput612/mandihouse-backend/pkg/enums"
)

// SellerAllocation is a proposed assignment of quantity from one seller
// to one order product, awaiting the seller's accept/reject response.
type SellerAllocation struct {
	ID                  uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID             uuid.UUID               `gorm:"column:order_id;type:uuid;not null;index"`
	OrderProductID      uuid.UUID               `gorm:"column:order_product_id;type:uuid;not null;index"`
	SellerID            uuid.UUID               `gorm:"column:seller_id;type:uuid;not null;index"`
	ProductID           string                  `gorm:"column:product_id;type:text;not null"`
	Qty                 decimal.Decimal         `gorm:"column:qty;type:numeric(14,3);not null"`
	UnitPricePaise      int64                   `gorm:"column:unit_price_paise;not null"`
	Status              enums.AllocationStatus  `gorm:"column:status;type:allocation_status;not null;default:'pending'"`
	RejectReason        *enums.RejectReason     `gorm:"column:reject_reason;type:reject_reason"`
	Round               int                     `gorm:"column:round;not null;default:0"`
	RespondBy           time.Time               `gorm:"column:respond_by;not null"`
	RespondedAt         *time.Time              `gorm:"column:responded_at"`
	NeedsReturnApproval bool                    `gorm:"column:needs_return_approval;not null;default:false"`
	CreatedAt           time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
