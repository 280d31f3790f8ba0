package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Rajput612/mandihouse-backend/pkg/enums"
)

// InventoryReservation is the audit row backing a ledger hold. One
// active reservation exists per pending allocation.
type InventoryReservation struct {
	ID           uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AllocationID uuid.UUID               `gorm:"column:allocation_id;type:uuid;not null;uniqueIndex:idx_reservations_allocation"`
	SellerID     uuid.UUID               `gorm:"column:seller_id;type:uuid;not null;index"`
	ProductID    string                  `gorm:"column:product_id;type:text;not null"`
	Qty          decimal.Decimal         `gorm:"column:qty;type:numeric(14,3);not null"`
	Status       enums.ReservationStatus `gorm:"column:status;type:reservation_status;not null;default:'active'"`
	ResolvedAt   *time.Time              `gorm:"column:resolved_at"`
	CreatedAt    time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
