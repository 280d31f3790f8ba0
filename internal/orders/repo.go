package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Rajput612/mandihouse-backend/pkg/db/models"
	"github.com/Rajput612/mandihouse-backend/pkg/enums"
	"github.com/Rajput612/mandihouse-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

type listOrdersParams struct {
	Limit   int
	Cursor  *pagination.Cursor
	Filters OrderFilters
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.OrderRequest) (*models.OrderRequest, error) {
	if err := r.db.WithContext(ctx).Omit("Products").Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) CreateOrderProducts(ctx context.Context, products []models.OrderProduct) error {
	if len(products) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Allocations").Create(&products).Error
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.OrderRequest, error) {
	var order models.OrderRequest
	err := r.db.WithContext(ctx).
		Preload("Products", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_products.created_at ASC")
		}).
		Preload("Products.Allocations", func(db *gorm.DB) *gorm.DB {
			return db.Order("seller_allocations.created_at ASC")
		}).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindLine(ctx context.Context, lineID uuid.UUID) (*models.OrderProduct, error) {
	var line models.OrderProduct
	err := r.db.WithContext(ctx).Where("id = ?", lineID).First(&line).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &line, nil
}

func (r *repository) ListOrders(ctx context.Context, buyerID uuid.UUID, params listOrdersParams) ([]models.OrderRequest, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Model(&models.OrderRequest{}).
		Preload("Products").
		Where("buyer_id = ?", buyerID)
	if params.Filters.Status != nil {
		query = query.Where("status = ?", *params.Filters.Status)
	}
	if params.Filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *params.Filters.DateFrom)
	}
	if params.Filters.DateTo != nil {
		query = query.Where("created_at <= ?", *params.Filters.DateTo)
	}
	if params.Cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID,
		)
	}

	var orders []models.OrderRequest
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&orders).Error; err != nil {
		return nil, nil, err
	}

	if len(orders) > normalized {
		next := orders[normalized]
		orders = orders[:normalized]
		return orders, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return orders, nil, nil
}

func (r *repository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, stampedAt *time.Time) error {
	updates := map[string]any{"status": status}
	switch status {
	case enums.OrderStatusCompleted:
		updates["completed_at"] = stampedAt
	case enums.OrderStatusCancelled:
		updates["cancelled_at"] = stampedAt
	}
	return r.db.WithContext(ctx).
		Model(&models.OrderRequest{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

func (r *repository) UpdateOrderSubtotal(ctx context.Context, orderID uuid.UUID, subtotalPaise int64) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderRequest{}).
		Where("id = ?", orderID).
		Update("subtotal_paise", subtotalPaise).Error
}
