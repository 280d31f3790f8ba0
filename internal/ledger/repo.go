package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Rajput612/mandihouse-backend/pkg/db/models"
	"github.com/Rajput612/mandihouse-backend/pkg/enums"
)

// Repository manages persistence for inventory records and reservations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindRecord(ctx context.Context, sellerID uuid.UUID, productID string) (*models.InventoryRecord, error)
	ListAvailable(ctx context.Context, productID string, excludeSellers []uuid.UUID) ([]models.InventoryRecord, error)
	UpsertStock(ctx context.Context, record *models.InventoryRecord) error
	ReserveQty(ctx context.Context, sellerID uuid.UUID, productID string, qty decimal.Decimal) (bool, error)
	ReleaseQty(ctx context.Context, sellerID uuid.UUID, productID string, qty decimal.Decimal) (bool, error)
	CommitQty(ctx context.Context, sellerID uuid.UUID, productID string, qty decimal.Decimal) (bool, error)
	CreateReservation(ctx context.Context, reservation *models.InventoryReservation) error
	FindReservationByAllocation(ctx context.Context, allocationID uuid.UUID) (*models.InventoryReservation, error)
	ResolveReservation(ctx context.Context, reservationID uuid.UUID, status enums.ReservationStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindRecord(ctx context.Context, sellerID uuid.UUID, productID string) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	err := r.db.WithContext(ctx).
		Where("seller_id = ? AND product_id = ?", sellerID, productID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) ListAvailable(ctx context.Context, productID string, excludeSellers []uuid.UUID) ([]models.InventoryRecord, error) {
	query := r.db.WithContext(ctx).
		Where("product_id = ? AND available_qty > 0", productID)
	if len(excludeSellers) > 0 {
		query = query.Where("seller_id NOT IN ?", excludeSellers)
	}

	var records []models.InventoryRecord
	err := query.
		Order("unit_price_paise ASC").
		Order("updated_at DESC").
		Order("seller_id ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) UpsertStock(ctx context.Context, record *models.InventoryRecord) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "seller_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"available_qty",
				"unit_price_paise",
				"updated_at",
			}),
		}).
		Create(record).Error
}

func (r *repository) ReserveQty(ctx context.Context, sellerID uuid.UUID, productID string, qty decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_records
		SET available_qty = available_qty - ?,
			reserved_qty = reserved_qty + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE seller_id = ? AND product_id = ? AND available_qty >= ?
	`, qty, qty, sellerID, productID, qty)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ReleaseQty(ctx context.Context, sellerID uuid.UUID, productID string, qty decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_records
		SET available_qty = available_qty + ?,
			reserved_qty = reserved_qty - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE seller_id = ? AND product_id = ? AND reserved_qty >= ?
	`, qty, qty, sellerID, productID, qty)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CommitQty(ctx context.Context, sellerID uuid.UUID, productID string, qty decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_records
		SET reserved_qty = reserved_qty - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE seller_id = ? AND product_id = ? AND reserved_qty >= ?
	`, qty, sellerID, productID, qty)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CreateReservation(ctx context.Context, reservation *models.InventoryReservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

func (r *repository) FindReservationByAllocation(ctx context.Context, allocationID uuid.UUID) (*models.InventoryReservation, error) {
	var reservation models.InventoryReservation
	err := r.db.WithContext(ctx).
		Where("allocation_id = ?", allocationID).
		First(&reservation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) ResolveReservation(ctx context.Context, reservationID uuid.UUID, status enums.ReservationStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.InventoryReservation{}).
		Where("id = ?", reservationID).
		Updates(map[string]any{
			"status":      status,
			"resolved_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}
