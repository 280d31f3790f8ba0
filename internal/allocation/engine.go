package allocation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Rajput612/mandihouse-backend/internal/ledger"
	"github.com/Rajput612/mandihouse-backend/pkg/config"
	"github.com/Rajput612/mandihouse-backend/pkg/db/models"
	"github.com/Rajput612/mandihouse-backend/pkg/enums"
	pkgerrors "github.com/Rajput612/mandihouse-backend/pkg/errors"
	"github.com/Rajput612/mandihouse-backend/pkg/logger"
	"github.com/Rajput612/mandihouse-backend/pkg/metrics"
	"github.com/Rajput612/mandihouse-backend/pkg/outbox"
	"github.com/Rajput612/mandihouse-backend/pkg/outbox/payloads"
)

// Outcome labels reported to metrics after each engine pass.
const (
	OutcomeFull    = "full"
	OutcomePartial = "partial"
	OutcomeNone    = "none"
)

type ledgerAPI interface {
	Candidates(ctx context.Context, tx *gorm.DB, productID string, excludeSellers []uuid.UUID) ([]models.InventoryRecord, error)
	Reserve(ctx context.Context, tx *gorm.DB, input ledger.ReserveInput) (*models.InventoryReservation, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// LineResult summarizes one engine pass over a single order line.
type LineResult struct {
	Created      []models.SellerAllocation
	RemainingQty decimal.Decimal
	Outcome      string
}

// Engine covers one order line's remaining demand with pending
// allocations, cheapest sellers first. A shortfall is a reportable
// outcome, not an error.
type Engine interface {
	AllocateLine(ctx context.Context, tx *gorm.DB, line *models.OrderProduct, excludeSellers []uuid.UUID) (*LineResult, error)
}

type engine struct {
	repo      Repository
	ledger    ledgerAPI
	outbox    outboxPublisher
	logg      *logger.Logger
	metrics   *metrics.AllocationMetrics
	window    time.Duration
	maxRounds int
}

// NewEngine wires the allocation engine.
func NewEngine(repo Repository, ledgerSvc ledgerAPI, publisher outboxPublisher, logg *logger.Logger, met *metrics.AllocationMetrics, cfg config.AllocationConfig) (Engine, error) {
	if repo == nil {
		return nil, fmt.Errorf("allocation repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	window := cfg.ResponseWindow
	if window <= 0 {
		window = 24 * time.Hour
	}
	maxRounds := cfg.MaxReallocRounds
	if maxRounds <= 0 {
		maxRounds = 3
	}
	return &engine{
		repo:      repo,
		ledger:    ledgerSvc,
		outbox:    publisher,
		logg:      logg,
		metrics:   met,
		window:    window,
		maxRounds: maxRounds,
	}, nil
}

func (e *engine) AllocateLine(ctx context.Context, tx *gorm.DB, line *models.OrderProduct, excludeSellers []uuid.UUID) (*LineResult, error) {
	if line == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order line required")
	}
	if line.ID == uuid.Nil || line.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order line is not persisted")
	}

	started := time.Now()
	result := &LineResult{RemainingQty: line.RemainingQty}
	if !line.RemainingQty.IsPositive() {
		result.Outcome = OutcomeFull
		return result, nil
	}
	if line.ReallocRounds > e.maxRounds {
		result.Outcome = OutcomeNone
		return result, nil
	}

	repo := e.repo.WithTx(tx)
	rejected, err := repo.ListRejectedSellers(ctx, line.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rejected sellers")
	}
	exclude := mergeSellers(excludeSellers, rejected)

	candidates, err := e.ledger.Candidates(ctx, tx, line.ProductID, exclude)
	if err != nil {
		return nil, err
	}

	remaining := line.RemainingQty
	respondBy := time.Now().UTC().Add(e.window)
	for _, candidate := range candidates {
		if line.MaxPricePaise != nil && candidate.UnitPricePaise > *line.MaxPricePaise {
			// Candidates are sorted by price, nothing cheaper follows.
			break
		}

		take := decimal.Min(remaining, candidate.AvailableQty)
		if !take.IsPositive() {
			continue
		}

		allocationID := uuid.New()
		if _, err := e.ledger.Reserve(ctx, tx, ledger.ReserveInput{
			AllocationID: allocationID,
			SellerID:     candidate.SellerID,
			ProductID:    line.ProductID,
			Qty:          take,
		}); err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeInsufficientInventory {
				continue
			}
			return nil, err
		}

		allocation := models.SellerAllocation{
			ID:             allocationID,
			OrderID:        line.OrderID,
			OrderProductID: line.ID,
			SellerID:       candidate.SellerID,
			ProductID:      line.ProductID,
			Qty:            take,
			UnitPricePaise: candidate.UnitPricePaise,
			Status:         enums.AllocationStatusPending,
			Round:          line.ReallocRounds,
			RespondBy:      respondBy,
		}
		if err := repo.Create(ctx, &allocation); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create allocation")
		}
		if err := e.emitAllocationCreated(ctx, tx, allocation); err != nil {
			return nil, err
		}

		result.Created = append(result.Created, allocation)
		remaining = remaining.Sub(take)
		if !remaining.IsPositive() {
			break
		}
	}

	if err := repo.UpdateLineRemaining(ctx, line.ID, remaining); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update remaining quantity")
	}
	line.RemainingQty = remaining
	result.RemainingQty = remaining
	result.Outcome = outcomeFor(remaining, len(result.Created))

	e.metrics.IncOutcome(result.Outcome)
	e.metrics.ObserveRounds(line.ProductID, line.ReallocRounds)
	e.metrics.ObserveDuration(result.Outcome, time.Since(started))
	if e.logg != nil {
		lctx := e.logg.WithFields(ctx, map[string]any{
			"order_id":   line.OrderID.String(),
			"product_id": line.ProductID,
			"outcome":    result.Outcome,
			"created":    len(result.Created),
			"remaining":  remaining.String(),
		})
		e.logg.Info(lctx, "allocation pass finished")
	}
	return result, nil
}

func (e *engine) emitAllocationCreated(ctx context.Context, tx *gorm.DB, allocation models.SellerAllocation) error {
	event := outbox.DomainEvent{
		EventType:     enums.EventAllocationCreated,
		AggregateType: enums.AggregateSellerAllocation,
		AggregateID:   allocation.ID,
		Version:       1,
		Data: payloads.AllocationCreatedEvent{
			AllocationID:   allocation.ID,
			OrderID:        allocation.OrderID,
			OrderProductID: allocation.OrderProductID,
			SellerID:       allocation.SellerID,
			ProductID:      allocation.ProductID,
			Qty:            allocation.Qty,
			UnitPricePaise: allocation.UnitPricePaise,
			Round:          allocation.Round,
			RespondBy:      allocation.RespondBy,
		},
	}
	return e.outbox.Emit(ctx, tx, event)
}

func outcomeFor(remaining decimal.Decimal, created int) string {
	switch {
	case !remaining.IsPositive():
		return OutcomeFull
	case created > 0:
		return OutcomePartial
	default:
		return OutcomeNone
	}
}

func mergeSellers(groups ...[]uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var merged []uuid.UUID
	for _, group := range groups {
		for _, id := range group {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			merged = append(merged, id)
		}
	}
	return merged
}
