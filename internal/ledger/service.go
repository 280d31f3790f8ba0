package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	retry "github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/Rajput612/mandihouse-backend/pkg/db"
	"github.com/Rajput612/mandihouse-backend/pkg/db/models"
	"github.com/Rajput612/mandihouse-backend/pkg/enums"
	pkgerrors "github.com/Rajput612/mandihouse-backend/pkg/errors"
	"github.com/Rajput612/mandihouse-backend/pkg/logger"
	"github.com/Rajput612/mandihouse-backend/pkg/outbox"
	"github.com/Rajput612/mandihouse-backend/pkg/outbox/payloads"
)

const conflictRetryDelay = 25 * time.Millisecond

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the authoritative interface over seller inventory. Reserve
// moves quantity from available to reserved, Commit consumes a
// reservation permanently, and Release returns it to the pool. All
// mutations on one (seller, product) key are serialized.
type Service interface {
	SetStock(ctx context.Context, tx *gorm.DB, input SetStockInput) (*models.InventoryRecord, error)
	Candidates(ctx context.Context, tx *gorm.DB, productID string, excludeSellers []uuid.UUID) ([]models.InventoryRecord, error)
	Reserve(ctx context.Context, tx *gorm.DB, input ReserveInput) (*models.InventoryReservation, error)
	Commit(ctx context.Context, tx *gorm.DB, allocationID uuid.UUID) error
	Release(ctx context.Context, tx *gorm.DB, allocationID uuid.UUID) (*models.InventoryReservation, error)
}

// SetStockInput replaces a seller's posted quantity and asking price
// for one commodity.
type SetStockInput struct {
	SellerID       uuid.UUID
	ProductID      string
	AvailableQty   decimal.Decimal
	UnitPricePaise int64
	Actor          *outbox.ActorRef
}

// ReserveInput places a hold backing one pending allocation.
type ReserveInput struct {
	AllocationID uuid.UUID
	SellerID     uuid.UUID
	ProductID    string
	Qty          decimal.Decimal
}

type service struct {
	repo            Repository
	outbox          outboxPublisher
	logg            *logger.Logger
	locks           *keyLocks
	conflictRetries int
}

// NewService wires the inventory ledger with the provided repository.
func NewService(repo Repository, publisher outboxPublisher, logg *logger.Logger, conflictRetries int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if conflictRetries <= 0 {
		conflictRetries = 3
	}
	return &service{
		repo:            repo,
		outbox:          publisher,
		logg:            logg,
		locks:           newKeyLocks(),
		conflictRetries: conflictRetries,
	}, nil
}

func (s *service) SetStock(ctx context.Context, tx *gorm.DB, input SetStockInput) (*models.InventoryRecord, error) {
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if input.ProductID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.AvailableQty.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "available quantity must not be negative")
	}
	if input.UnitPricePaise <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must be positive")
	}

	unlock := s.locks.Lock(input.SellerID, input.ProductID)
	defer unlock()

	repo := s.repo.WithTx(tx)
	record := &models.InventoryRecord{
		SellerID:       input.SellerID,
		ProductID:      input.ProductID,
		AvailableQty:   input.AvailableQty,
		UnitPricePaise: input.UnitPricePaise,
	}
	if err := s.withConflictRetry(ctx, tx, func() error {
		return repo.UpsertStock(ctx, record)
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert stock")
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventStockUpdated,
		AggregateType: enums.AggregateInventoryRecord,
		AggregateID:   input.SellerID,
		Actor:         input.Actor,
		Version:       1,
		Data: payloads.StockUpdatedEvent{
			SellerID:       input.SellerID,
			ProductID:      input.ProductID,
			AvailableQty:   input.AvailableQty,
			UnitPricePaise: input.UnitPricePaise,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *service) Candidates(ctx context.Context, tx *gorm.DB, productID string, excludeSellers []uuid.UUID) ([]models.InventoryRecord, error) {
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	return s.repo.WithTx(tx).ListAvailable(ctx, productID, excludeSellers)
}

func (s *service) Reserve(ctx context.Context, tx *gorm.DB, input ReserveInput) (*models.InventoryReservation, error) {
	if input.AllocationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "allocation id required")
	}
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if input.ProductID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if !input.Qty.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reserve quantity must be positive")
	}

	unlock := s.locks.Lock(input.SellerID, input.ProductID)
	defer unlock()

	repo := s.repo.WithTx(tx)
	var reserved bool
	err := s.withConflictRetry(ctx, tx, func() error {
		var rerr error
		reserved, rerr = repo.ReserveQty(ctx, input.SellerID, input.ProductID, input.Qty)
		return rerr
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve inventory")
	}
	if !reserved {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientInventory, "insufficient inventory")
	}

	reservation := &models.InventoryReservation{
		ID:           uuid.New(),
		AllocationID: input.AllocationID,
		SellerID:     input.SellerID,
		ProductID:    input.ProductID,
		Qty:          input.Qty,
		Status:       enums.ReservationStatusActive,
	}
	if err := repo.CreateReservation(ctx, reservation); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record reservation")
	}
	return reservation, nil
}

func (s *service) Commit(ctx context.Context, tx *gorm.DB, allocationID uuid.UUID) error {
	if allocationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "allocation id required")
	}

	repo := s.repo.WithTx(tx)
	reservation, err := repo.FindReservationByAllocation(ctx, allocationID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
	}
	if reservation == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
	}
	switch reservation.Status {
	case enums.ReservationStatusCommitted:
		return nil
	case enums.ReservationStatusReleased:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "reservation already released")
	}

	unlock := s.locks.Lock(reservation.SellerID, reservation.ProductID)
	defer unlock()

	var committed bool
	err = s.withConflictRetry(ctx, tx, func() error {
		var cerr error
		committed, cerr = repo.CommitQty(ctx, reservation.SellerID, reservation.ProductID, reservation.Qty)
		return cerr
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commit inventory")
	}
	if !committed {
		return pkgerrors.New(pkgerrors.CodeInternal, "reserved quantity does not cover reservation")
	}
	return repo.ResolveReservation(ctx, reservation.ID, enums.ReservationStatusCommitted)
}

// Release is idempotent: a missing or already resolved reservation
// returns nil without touching the ledger.
func (s *service) Release(ctx context.Context, tx *gorm.DB, allocationID uuid.UUID) (*models.InventoryReservation, error) {
	if allocationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "allocation id required")
	}

	repo := s.repo.WithTx(tx)
	reservation, err := repo.FindReservationByAllocation(ctx, allocationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
	}
	if reservation == nil || reservation.Status != enums.ReservationStatusActive {
		return nil, nil
	}

	unlock := s.locks.Lock(reservation.SellerID, reservation.ProductID)
	defer unlock()

	var released bool
	err = s.withConflictRetry(ctx, tx, func() error {
		var rerr error
		released, rerr = repo.ReleaseQty(ctx, reservation.SellerID, reservation.ProductID, reservation.Qty)
		return rerr
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release inventory")
	}
	if !released {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reserved quantity does not cover reservation")
	}
	if err := repo.ResolveReservation(ctx, reservation.ID, enums.ReservationStatusReleased); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve reservation")
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventReservationReleased,
		AggregateType: enums.AggregateSellerAllocation,
		AggregateID:   reservation.AllocationID,
		Version:       1,
		Data: payloads.ReservationReleasedEvent{
			ReservationID: reservation.ID,
			AllocationID:  reservation.AllocationID,
			SellerID:      reservation.SellerID,
			ProductID:     reservation.ProductID,
			Qty:           reservation.Qty,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, err
	}
	reservation.Status = enums.ReservationStatusReleased
	return reservation, nil
}

// withConflictRetry re-runs fn on serialization failures. Inside a
// caller-owned transaction the statement cannot be retried: Postgres
// aborts the whole transaction, so the error propagates and the retry
// happens at the transaction boundary instead.
func (s *service) withConflictRetry(ctx context.Context, tx *gorm.DB, fn func() error) error {
	if tx != nil {
		return fn()
	}
	backoff := retry.WithMaxRetries(uint64(s.conflictRetries), retry.NewConstant(conflictRetryDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn()
		if err != nil && dbpkg.IsSerializationFailure(err) {
			if s.logg != nil {
				s.logg.Warn(ctx, "ledger conflict, retrying")
			}
			return retry.RetryableError(err)
		}
		return err
	})
}
