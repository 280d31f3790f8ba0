package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Rajput612/mandihouse-backend/internal/allocation"
	"github.com/Rajput612/mandihouse-backend/pkg/db/models"
	"github.com/Rajput612/mandihouse-backend/pkg/enums"
	pkgerrors "github.com/Rajput612/mandihouse-backend/pkg/errors"
	"github.com/Rajput612/mandihouse-backend/pkg/logger"
	"github.com/Rajput612/mandihouse-backend/pkg/outbox"
	"github.com/Rajput612/mandihouse-backend/pkg/outbox/payloads"
	"github.com/Rajput612/mandihouse-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ledgerAPI interface {
	Commit(ctx context.Context, tx *gorm.DB, allocationID uuid.UUID) error
	Release(ctx context.Context, tx *gorm.DB, allocationID uuid.UUID) (*models.InventoryReservation, error)
}

// Service owns the order lifecycle: submission with the initial
// allocation pass, seller decisions, timeouts, cancellation, and
// delivery confirmation.
type Service interface {
	Submit(ctx context.Context, input SubmitOrderInput) (*models.OrderRequest, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.OrderRequest, error)
	List(ctx context.Context, buyerID uuid.UUID, params ListParams) (*OrderList, error)
	Decide(ctx context.Context, input DecisionInput) (*models.SellerAllocation, error)
	HandleTimeout(ctx context.Context, allocationID uuid.UUID) (bool, error)
	Cancel(ctx context.Context, orderID uuid.UUID, actor *outbox.ActorRef) (enums.OrderStatus, error)
	Complete(ctx context.Context, orderID uuid.UUID, actor *outbox.ActorRef) error
}

// ListParams configures pagination for the buyer order list.
type ListParams struct {
	Limit   int
	Cursor  string
	Filters OrderFilters
}

const maxOrderLines = 50

type service struct {
	repo        Repository
	allocations allocation.Repository
	engine      allocation.Engine
	ledger      ledgerAPI
	tx          txRunner
	outbox      outboxPublisher
	logg        *logger.Logger
	maxRounds   int
}

// NewService wires the order lifecycle service.
func NewService(
	repo Repository,
	allocations allocation.Repository,
	engine allocation.Engine,
	ledgerSvc ledgerAPI,
	tx txRunner,
	publisher outboxPublisher,
	logg *logger.Logger,
	maxRounds int,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if allocations == nil {
		return nil, fmt.Errorf("allocation repository required")
	}
	if engine == nil {
		return nil, fmt.Errorf("allocation engine required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if maxRounds <= 0 {
		maxRounds = 3
	}
	return &service{
		repo:        repo,
		allocations: allocations,
		engine:      engine,
		ledger:      ledgerSvc,
		tx:          tx,
		outbox:      publisher,
		logg:        logg,
		maxRounds:   maxRounds,
	}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitOrderInput) (*models.OrderRequest, error) {
	if err := validateSubmit(input); err != nil {
		return nil, err
	}
	if input.DeliveryAddress != nil {
		input.DeliveryAddress.Normalize()
	}

	var result *models.OrderRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order := &models.OrderRequest{
			ID:              uuid.New(),
			BuyerID:         input.BuyerID,
			Status:          enums.OrderStatusPending,
			DeliveryAddress: input.DeliveryAddress,
			Notes:           input.Notes,
		}
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		products := make([]models.OrderProduct, len(input.Products))
		for i, line := range input.Products {
			products[i] = models.OrderProduct{
				ID:            uuid.New(),
				OrderID:       order.ID,
				ProductID:     line.ProductID,
				RequestedQty:  line.Qty,
				RemainingQty:  line.Qty,
				MaxPricePaise: line.MaxPricePaise,
			}
		}
		if err := repo.CreateOrderProducts(ctx, products); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order products")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderSubmitted,
			AggregateType: enums.AggregateOrderRequest,
			AggregateID:   order.ID,
			Actor:         input.Actor,
			Version:       1,
			Data: payloads.OrderSubmittedEvent{
				OrderID:      order.ID,
				BuyerID:      order.BuyerID,
				ProductCount: len(products),
			},
		}); err != nil {
			return err
		}

		for i := range products {
			if _, err := s.engine.AllocateLine(ctx, tx, &products[i], nil); err != nil {
				return err
			}
		}

		updated, err := s.refreshAggregate(ctx, tx, order.ID, input.Actor)
		if err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.OrderRequest, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, buyerID uuid.UUID, params ListParams) (*OrderList, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if params.Filters.Status != nil && !params.Filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status filter")
	}

	query := listOrdersParams{
		Limit:   params.Limit,
		Filters: params.Filters,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListOrders(ctx, buyerID, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	list := &OrderList{Orders: make([]OrderSummary, 0, len(rows))}
	for _, order := range rows {
		list.Orders = append(list.Orders, OrderSummary{
			OrderID:       order.ID,
			Status:        order.Status,
			SubtotalPaise: order.SubtotalPaise,
			ProductCount:  len(order.Products),
			CreatedAt:     order.CreatedAt,
		})
	}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

// refreshAggregate recomputes the derived order status and subtotal
// inside the caller's transaction, emitting the matching event when
// the status moves.
func (s *service) refreshAggregate(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actor *outbox.ActorRef) (*models.OrderRequest, error) {
	repo := s.repo.WithTx(tx)
	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	subtotal := subtotalPaise(order.Products)
	if subtotal != order.SubtotalPaise {
		if err := repo.UpdateOrderSubtotal(ctx, order.ID, subtotal); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update subtotal")
		}
		order.SubtotalPaise = subtotal
	}

	next := deriveStatus(order.Status, order.Products)
	if next == order.Status {
		return order, nil
	}
	if err := repo.UpdateOrderStatus(ctx, order.ID, next, nil); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	order.Status = next

	if err := s.emitStatusEvent(ctx, tx, order, actor); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) emitStatusEvent(ctx context.Context, tx *gorm.DB, order *models.OrderRequest, actor *outbox.ActorRef) error {
	event := outbox.DomainEvent{
		AggregateType: enums.AggregateOrderRequest,
		AggregateID:   order.ID,
		Actor:         actor,
		Version:       1,
	}
	switch order.Status {
	case enums.OrderStatusAllocated:
		event.EventType = enums.EventOrderAllocated
		event.Data = payloads.OrderAllocatedEvent{OrderID: order.ID, Status: order.Status}
	case enums.OrderStatusPartiallyAllocated:
		short := shortfalls(order.Products)
		data := payloads.OrderPartiallyAllocatedEvent{OrderID: order.ID}
		for _, line := range short {
			data.Shortfalls = append(data.Shortfalls, payloads.ProductShortfall{
				OrderProductID: line.ID,
				ProductID:      line.ProductID,
				RemainingQty:   line.RemainingQty,
			})
		}
		event.EventType = enums.EventOrderPartiallyAllocated
		event.Data = data
	case enums.OrderStatusProcessing:
		event.EventType = enums.EventOrderProcessing
		event.Data = payloads.OrderProcessingEvent{OrderID: order.ID, BuyerID: order.BuyerID}
	default:
		return nil
	}
	return s.outbox.Emit(ctx, tx, event)
}

func validateSubmit(input SubmitOrderInput) error {
	if input.BuyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if len(input.Products) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order contains no products")
	}
	if len(input.Products) > maxOrderLines {
		return pkgerrors.New(pkgerrors.CodeValidation, "too many order lines")
	}
	if input.DeliveryAddress != nil && !input.DeliveryAddress.Valid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "incomplete delivery address")
	}
	seen := make(map[string]struct{}, len(input.Products))
	for _, line := range input.Products {
		if line.ProductID == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id required on every line")
		}
		if !line.Qty.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		if line.MaxPricePaise != nil && *line.MaxPricePaise <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "price cap must be positive")
		}
		if _, dup := seen[line.ProductID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate product line")
		}
		seen[line.ProductID] = struct{}{}
	}
	return nil
}
