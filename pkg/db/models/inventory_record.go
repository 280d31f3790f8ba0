package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryRecord tracks one seller's stock and asking price for a
// commodity. AvailableQty never goes negative; reservations move
// quantity from available to reserved until resolved.
type InventoryRecord struct {
	SellerID       uuid.UUID       `gorm:"column:seller_id;type:uuid;primaryKey"`
	ProductID      string          `gorm:"column:product_id;type:text;primaryKey"`
	AvailableQty   decimal.Decimal `gorm:"column:available_qty;type:numeric(14,3);not null;default:0"`
	ReservedQty    decimal.Decimal `gorm:"column:reserved_qty;type:numeric(14,3);not null;default:0"`
	UnitPricePaise int64           `gorm:"column:unit_price_paise;not null"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
