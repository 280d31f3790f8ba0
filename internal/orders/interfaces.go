package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Rajput612/mandihouse-backend/pkg/db/models"
	"github.com/Rajput612/mandihouse-backend/pkg/enums"
	"github.com/Rajput612/mandihouse-backend/pkg/pagination"
)

// Repository defines persistence operations for order requests and
// their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.OrderRequest) (*models.OrderRequest, error)
	CreateOrderProducts(ctx context.Context, products []models.OrderProduct) error
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.OrderRequest, error)
	FindLine(ctx context.Context, lineID uuid.UUID) (*models.OrderProduct, error)
	ListOrders(ctx context.Context, buyerID uuid.UUID, params listOrdersParams) ([]models.OrderRequest, *pagination.Cursor, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, stampedAt *time.Time) error
	UpdateOrderSubtotal(ctx context.Context, orderID uuid.UUID, subtotalPaise int64) error
}
