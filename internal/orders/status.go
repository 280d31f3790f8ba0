package orders

import (
	"github.com/shopspring/decimal"

	"github.com/Rajput612/mandihouse-backend/pkg/db/models"
	"github.com/Rajput612/mandihouse-backend/pkg/enums"
)

// deriveStatus projects an order's aggregate status from its lines.
// Terminal states are sticky; everything else is recomputed from the
// allocation state after each line-level event.
func deriveStatus(current enums.OrderStatus, lines []models.OrderProduct) enums.OrderStatus {
	if current.IsTerminal() {
		return current
	}

	anyAllocation := false
	pendingAllocations := 0
	acceptedAllocations := 0
	anyShortfall := false
	for _, line := range lines {
		if line.RemainingQty.IsPositive() {
			anyShortfall = true
		}
		for _, allocation := range line.Allocations {
			anyAllocation = true
			switch allocation.Status {
			case enums.AllocationStatusPending:
				pendingAllocations++
			case enums.AllocationStatusAccepted:
				acceptedAllocations++
			}
		}
	}

	// Pending means untouched. Once any allocation exists, even a fully
	// rejected one, an uncovered remainder is a shortfall.
	switch {
	case !anyAllocation:
		return enums.OrderStatusPending
	case anyShortfall || pendingAllocations+acceptedAllocations == 0:
		return enums.OrderStatusPartiallyAllocated
	case pendingAllocations == 0:
		return enums.OrderStatusProcessing
	default:
		return enums.OrderStatusAllocated
	}
}

// subtotalPaise sums allocation-time prices over every live allocation.
func subtotalPaise(lines []models.OrderProduct) int64 {
	total := decimal.Zero
	for _, line := range lines {
		for _, allocation := range line.Allocations {
			if allocation.Status == enums.AllocationStatusRejected {
				continue
			}
			price := decimal.NewFromInt(allocation.UnitPricePaise)
			total = total.Add(allocation.Qty.Mul(price))
		}
	}
	return total.Round(0).IntPart()
}

// shortfalls collects the uncovered portion of each line.
func shortfalls(lines []models.OrderProduct) []models.OrderProduct {
	var short []models.OrderProduct
	for _, line := range lines {
		if line.RemainingQty.IsPositive() {
			short = append(short, line)
		}
	}
	return short
}
