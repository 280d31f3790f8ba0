package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Rajput612/mandihouse-backend/pkg/db/models"
	"github.com/Rajput612/mandihouse-backend/pkg/enums"
	pkgerrors "github.com/Rajput612/mandihouse-backend/pkg/errors"
	"github.com/Rajput612/mandihouse-backend/pkg/outbox"
	"github.com/Rajput612/mandihouse-backend/pkg/outbox/payloads"
)

func (s *service) Decide(ctx context.Context, input DecisionInput) (*models.SellerAllocation, error) {
	if input.AllocationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "allocation id required")
	}
	if !input.Decision.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "decision must be accept or reject")
	}
	if input.Reason != nil && !input.Reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid reject reason")
	}

	var result *models.SellerAllocation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		allocRepo := s.allocations.WithTx(tx)
		allocation, err := allocRepo.FindByID(ctx, input.AllocationID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load allocation")
		}
		if allocation == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "allocation not found")
		}
		if input.SellerID != uuid.Nil && allocation.SellerID != input.SellerID {
			return pkgerrors.New(pkgerrors.CodeConflict, "allocation does not belong to seller")
		}
		if allocation.Status != enums.AllocationStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "allocation already settled")
		}

		now := time.Now().UTC()
		switch input.Decision {
		case enums.AllocationDecisionAccept:
			if err := s.acceptAllocation(ctx, tx, allocation, now); err != nil {
				return err
			}
		case enums.AllocationDecisionReject:
			reason := enums.RejectReasonOther
			if input.Reason != nil {
				reason = *input.Reason
			}
			if err := s.rejectAllocation(ctx, tx, allocation, reason, now, true); err != nil {
				return err
			}
		}

		if _, err := s.refreshAggregate(ctx, tx, allocation.OrderID, input.Actor); err != nil {
			return err
		}
		result = allocation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// HandleTimeout degrades one expired pending allocation through the
// rejection path. It reports whether anything was expired; an already
// settled allocation is a no-op.
func (s *service) HandleTimeout(ctx context.Context, allocationID uuid.UUID) (bool, error) {
	if allocationID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "allocation id required")
	}

	expired := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		allocRepo := s.allocations.WithTx(tx)
		allocation, err := allocRepo.FindByID(ctx, allocationID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load allocation")
		}
		if allocation == nil || allocation.Status != enums.AllocationStatusPending {
			return nil
		}
		now := time.Now().UTC()
		if allocation.RespondBy.After(now) {
			return nil
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAllocationTimedOut,
			AggregateType: enums.AggregateSellerAllocation,
			AggregateID:   allocation.ID,
			Version:       1,
			Data: payloads.AllocationTimedOutEvent{
				AllocationID: allocation.ID,
				OrderID:      allocation.OrderID,
				SellerID:     allocation.SellerID,
				RespondBy:    allocation.RespondBy,
			},
		}); err != nil {
			return err
		}

		if err := s.rejectAllocation(ctx, tx, allocation, enums.RejectReasonTimeout, now, true); err != nil {
			return err
		}
		if _, err := s.refreshAggregate(ctx, tx, allocation.OrderID, nil); err != nil {
			return err
		}
		expired = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return expired, nil
}

func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, actor *outbox.ActorRef) (enums.OrderStatus, error) {
	if orderID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var status enums.OrderStatus
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		allocRepo := s.allocations.WithTx(tx)

		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status.IsTerminal() {
			status = order.Status
			return nil
		}

		now := time.Now().UTC()
		reason := enums.RejectReasonOther
		returnApprovals := 0
		releasedByLine := make(map[uuid.UUID]decimal.Decimal)
		for _, line := range order.Products {
			for _, allocation := range line.Allocations {
				switch allocation.Status {
				case enums.AllocationStatusPending:
					applied, err := allocRepo.ApplyDecision(ctx, allocation.ID, enums.AllocationStatusRejected, &reason, now)
					if err != nil {
						return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject pending allocation")
					}
					if !applied {
						continue
					}
					if _, err := s.ledger.Release(ctx, tx, allocation.ID); err != nil {
						return err
					}
					releasedByLine[line.ID] = releasedByLine[line.ID].Add(allocation.Qty)
				case enums.AllocationStatusAccepted:
					// Committed inventory cannot be silently restored.
					if err := allocRepo.FlagReturnApproval(ctx, allocation.ID); err != nil {
						return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flag return approval")
					}
					returnApprovals++
				}
			}
		}

		for _, line := range order.Products {
			released, ok := releasedByLine[line.ID]
			if !ok {
				continue
			}
			if err := allocRepo.UpdateLineRemaining(ctx, line.ID, line.RemainingQty.Add(released)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore remaining quantity")
			}
		}

		if err := repo.UpdateOrderStatus(ctx, order.ID, enums.OrderStatusCancelled, &now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrderRequest,
			AggregateID:   order.ID,
			Actor:         actor,
			Version:       1,
			Data: payloads.OrderCancelledEvent{
				OrderID:               order.ID,
				BuyerID:               order.BuyerID,
				CancelledAt:           now,
				ReturnApprovalsNeeded: returnApprovals,
			},
		}); err != nil {
			return err
		}
		status = enums.OrderStatusCancelled
		return nil
	})
	if err != nil {
		return "", err
	}
	return status, nil
}

// Complete records the external delivery confirmation. Only orders
// whose fulfillment commitment is settled can complete.
func (s *service) Complete(ctx context.Context, orderID uuid.UUID, actor *outbox.ActorRef) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status == enums.OrderStatusCompleted {
			return nil
		}
		if order.Status != enums.OrderStatusProcessing {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not ready for completion")
		}

		now := time.Now().UTC()
		if err := repo.UpdateOrderStatus(ctx, order.ID, enums.OrderStatusCompleted, &now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete order")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCompleted,
			AggregateType: enums.AggregateOrderRequest,
			AggregateID:   order.ID,
			Actor:         actor,
			Version:       1,
			Data: payloads.OrderCompletedEvent{
				OrderID:     order.ID,
				BuyerID:     order.BuyerID,
				CompletedAt: now,
			},
		})
	})
}

func (s *service) acceptAllocation(ctx context.Context, tx *gorm.DB, allocation *models.SellerAllocation, now time.Time) error {
	allocRepo := s.allocations.WithTx(tx)
	applied, err := allocRepo.ApplyDecision(ctx, allocation.ID, enums.AllocationStatusAccepted, nil, now)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept allocation")
	}
	if !applied {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "allocation already settled")
	}
	if err := s.ledger.Commit(ctx, tx, allocation.ID); err != nil {
		return err
	}
	allocation.Status = enums.AllocationStatusAccepted
	allocation.RespondedAt = &now

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventAllocationAccepted,
		AggregateType: enums.AggregateSellerAllocation,
		AggregateID:   allocation.ID,
		Version:       1,
		Data: payloads.AllocationAcceptedEvent{
			AllocationID: allocation.ID,
			OrderID:      allocation.OrderID,
			SellerID:     allocation.SellerID,
			RespondedAt:  now,
		},
	})
}

// rejectAllocation settles a pending allocation as rejected, returns
// its reservation to the ledger, restores the line's remaining
// quantity, and optionally re-offers the freed demand.
func (s *service) rejectAllocation(ctx context.Context, tx *gorm.DB, allocation *models.SellerAllocation, reason enums.RejectReason, now time.Time, reallocate bool) error {
	allocRepo := s.allocations.WithTx(tx)
	applied, err := allocRepo.ApplyDecision(ctx, allocation.ID, enums.AllocationStatusRejected, &reason, now)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject allocation")
	}
	if !applied {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "allocation already settled")
	}
	if _, err := s.ledger.Release(ctx, tx, allocation.ID); err != nil {
		return err
	}

	line, err := s.repo.WithTx(tx).FindLine(ctx, allocation.OrderProductID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order line")
	}
	if line == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "allocation references a missing line")
	}

	line.RemainingQty = line.RemainingQty.Add(allocation.Qty)
	if err := allocRepo.UpdateLineRemaining(ctx, line.ID, line.RemainingQty); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore remaining quantity")
	}
	if err := allocRepo.IncrementLineRound(ctx, line.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance re-allocation round")
	}
	line.ReallocRounds++

	allocation.Status = enums.AllocationStatusRejected
	allocation.RejectReason = &reason
	allocation.RespondedAt = &now

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventAllocationRejected,
		AggregateType: enums.AggregateSellerAllocation,
		AggregateID:   allocation.ID,
		Version:       1,
		Data: payloads.AllocationRejectedEvent{
			AllocationID: allocation.ID,
			OrderID:      allocation.OrderID,
			SellerID:     allocation.SellerID,
			Reason:       reason,
			Round:        allocation.Round,
		},
	}); err != nil {
		return err
	}

	if !reallocate {
		return nil
	}
	_, err = s.engine.AllocateLine(ctx, tx, line, []uuid.UUID{allocation.SellerID})
	return err
}
