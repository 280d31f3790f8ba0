package allocation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Rajput612/mandihouse-backend/pkg/db/models"
	"github.com/Rajput612/mandihouse-backend/pkg/enums"
)

// Repository manages persistence for seller allocations and the
// remaining-quantity bookkeeping on their order lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, allocation *models.SellerAllocation) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.SellerAllocation, error)
	ListByOrderProduct(ctx context.Context, orderProductID uuid.UUID) ([]models.SellerAllocation, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.SellerAllocation, error)
	ListRejectedSellers(ctx context.Context, orderProductID uuid.UUID) ([]uuid.UUID, error)
	ApplyDecision(ctx context.Context, id uuid.UUID, status enums.AllocationStatus, reason *enums.RejectReason, respondedAt time.Time) (bool, error)
	FlagReturnApproval(ctx context.Context, id uuid.UUID) error
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]models.SellerAllocation, error)
	ListPendingBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.SellerAllocation, error)
	UpdateLineRemaining(ctx context.Context, orderProductID uuid.UUID, remaining decimal.Decimal) error
	IncrementLineRound(ctx context.Context, orderProductID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an allocation repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, allocation *models.SellerAllocation) error {
	return r.db.WithContext(ctx).Create(allocation).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.SellerAllocation, error) {
	var allocation models.SellerAllocation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&allocation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &allocation, nil
}

func (r *repository) ListByOrderProduct(ctx context.Context, orderProductID uuid.UUID) ([]models.SellerAllocation, error) {
	var allocations []models.SellerAllocation
	err := r.db.WithContext(ctx).
		Where("order_product_id = ?", orderProductID).
		Order("created_at ASC").
		Find(&allocations).Error
	if err != nil {
		return nil, err
	}
	return allocations, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.SellerAllocation, error) {
	var allocations []models.SellerAllocation
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&allocations).Error
	if err != nil {
		return nil, err
	}
	return allocations, nil
}

func (r *repository) ListRejectedSellers(ctx context.Context, orderProductID uuid.UUID) ([]uuid.UUID, error) {
	var sellers []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.SellerAllocation{}).
		Where("order_product_id = ? AND status = ?", orderProductID, enums.AllocationStatusRejected).
		Distinct().
		Pluck("seller_id", &sellers).Error
	if err != nil {
		return nil, err
	}
	return sellers, nil
}

// ApplyDecision transitions a pending allocation; the status guard in
// the WHERE clause makes concurrent decisions lose cleanly.
func (r *repository) ApplyDecision(ctx context.Context, id uuid.UUID, status enums.AllocationStatus, reason *enums.RejectReason, respondedAt time.Time) (bool, error) {
	updates := map[string]any{
		"status":       status,
		"responded_at": respondedAt,
	}
	if reason != nil {
		updates["reject_reason"] = *reason
	}
	res := r.db.WithContext(ctx).
		Model(&models.SellerAllocation{}).
		Where("id = ? AND status = ?", id, enums.AllocationStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FlagReturnApproval(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.SellerAllocation{}).
		Where("id = ?", id).
		Update("needs_return_approval", true).Error
}

func (r *repository) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]models.SellerAllocation, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND respond_by < ?", enums.AllocationStatusPending, cutoff).
		Order("respond_by ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var allocations []models.SellerAllocation
	if err := query.Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

// ListPendingBySeller returns a seller's open offers, most urgent first.
func (r *repository) ListPendingBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.SellerAllocation, error) {
	query := r.db.WithContext(ctx).
		Where("seller_id = ? AND status = ?", sellerID, enums.AllocationStatusPending).
		Order("respond_by ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var allocations []models.SellerAllocation
	if err := query.Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

func (r *repository) UpdateLineRemaining(ctx context.Context, orderProductID uuid.UUID, remaining decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderProduct{}).
		Where("id = ?", orderProductID).
		Update("remaining_qty", remaining).Error
}

func (r *repository) IncrementLineRound(ctx context.Context, orderProductID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderProduct{}).
		Where("id = ?", orderProductID).
		Update("realloc_rounds", gorm.Expr("realloc_rounds + 1")).Error
}
