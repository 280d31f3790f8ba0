package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Rajput612/mandihouse-backend/pkg/enums"
	"github.com/Rajput612/mandihouse-backend/pkg/types"
)

// OrderRequest is a buyer's multi-product order. Its status is derived
// from the allocation state of its products.
type OrderRequest struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID         uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null"`
	Status          enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	DeliveryAddress *types.Address    `gorm:"column:delivery_address;type:jsonb;serializer:json"`
	SubtotalPaise   int64             `gorm:"column:subtotal_paise;not null;default:0"`
	Notes           *string           `gorm:"column:notes"`
	Products        []OrderProduct    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CompletedAt     *time.Time        `gorm:"column:completed_at"`
	CancelledAt     *time.Time        `gorm:"column:cancelled_at"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
