package allocation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Rajput612/mandihouse-backend/pkg/db/models"
	"github.com/Rajput612/mandihouse-backend/pkg/enums"
)

func seedAllocation(t *testing.T, db *gorm.DB, orderProductID uuid.UUID, sellerID uuid.UUID, status enums.AllocationStatus, respondBy time.Time) *models.SellerAllocation {
	t.Helper()
	allocation := &models.SellerAllocation{
		ID:             uuid.New(),
		OrderID:        uuid.New(),
		OrderProductID: orderProductID,
		SellerID:       sellerID,
		ProductID:      "tomato",
		Qty:            decimal.RequireFromString("10"),
		UnitPricePaise: 4000,
		Status:         status,
		RespondBy:      respondBy,
	}
	require.NoError(t, db.Create(allocation).Error)
	return allocation
}

func TestApplyDecisionGuardsPending(t *testing.T) {
	t.Parallel()

	db := setupAllocationTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	allocation := seedAllocation(t, db, uuid.New(), uuid.New(), enums.AllocationStatusPending, now.Add(time.Hour))

	applied, err := repo.ApplyDecision(ctx, allocation.ID, enums.AllocationStatusAccepted, nil, now)
	require.NoError(t, err)
	assert.True(t, applied)

	stored, err := repo.FindByID(ctx, allocation.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, enums.AllocationStatusAccepted, stored.Status)
	assert.NotNil(t, stored.RespondedAt)

	// A concurrent decision on a settled allocation must lose.
	reason := enums.RejectReasonTimeout
	applied, err = repo.ApplyDecision(ctx, allocation.ID, enums.AllocationStatusRejected, &reason, now)
	require.NoError(t, err)
	assert.False(t, applied)

	stored, err = repo.FindByID(ctx, allocation.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.AllocationStatusAccepted, stored.Status)
	assert.Nil(t, stored.RejectReason)
}

func TestApplyDecisionStoresRejectReason(t *testing.T) {
	t.Parallel()

	db := setupAllocationTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	allocation := seedAllocation(t, db, uuid.New(), uuid.New(), enums.AllocationStatusPending, now.Add(time.Hour))

	reason := enums.RejectReasonPriceChanged
	applied, err := repo.ApplyDecision(ctx, allocation.ID, enums.AllocationStatusRejected, &reason, now)
	require.NoError(t, err)
	assert.True(t, applied)

	stored, err := repo.FindByID(ctx, allocation.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.RejectReason)
	assert.Equal(t, enums.RejectReasonPriceChanged, *stored.RejectReason)
}

func TestListExpiredPending(t *testing.T) {
	t.Parallel()

	db := setupAllocationTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	expiredOld := seedAllocation(t, db, uuid.New(), uuid.New(), enums.AllocationStatusPending, now.Add(-2*time.Hour))
	expiredNew := seedAllocation(t, db, uuid.New(), uuid.New(), enums.AllocationStatusPending, now.Add(-time.Hour))
	seedAllocation(t, db, uuid.New(), uuid.New(), enums.AllocationStatusPending, now.Add(time.Hour))
	seedAllocation(t, db, uuid.New(), uuid.New(), enums.AllocationStatusAccepted, now.Add(-3*time.Hour))

	expired, err := repo.ListExpiredPending(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, expired, 2)
	assert.Equal(t, expiredOld.ID, expired[0].ID, "oldest deadline first")
	assert.Equal(t, expiredNew.ID, expired[1].ID)

	limited, err := repo.ListExpiredPending(ctx, now, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, expiredOld.ID, limited[0].ID)
}

func TestListRejectedSellersDistinct(t *testing.T) {
	t.Parallel()

	db := setupAllocationTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	lineID := uuid.New()
	seller := uuid.New()
	seedAllocation(t, db, lineID, seller, enums.AllocationStatusRejected, now)
	seedAllocation(t, db, lineID, seller, enums.AllocationStatusRejected, now)
	seedAllocation(t, db, lineID, uuid.New(), enums.AllocationStatusPending, now.Add(time.Hour))
	seedAllocation(t, db, uuid.New(), uuid.New(), enums.AllocationStatusRejected, now)

	sellers, err := repo.ListRejectedSellers(ctx, lineID)
	require.NoError(t, err)
	require.Len(t, sellers, 1)
	assert.Equal(t, seller, sellers[0])
}

func TestLineBookkeeping(t *testing.T) {
	t.Parallel()

	db := setupAllocationTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	line := &models.OrderProduct{
		ID:           uuid.New(),
		OrderID:      uuid.New(),
		ProductID:    "onion",
		RequestedQty: decimal.RequireFromString("40"),
		RemainingQty: decimal.RequireFromString("40"),
	}
	require.NoError(t, db.Create(line).Error)

	require.NoError(t, repo.UpdateLineRemaining(ctx, line.ID, decimal.RequireFromString("15")))
	require.NoError(t, repo.IncrementLineRound(ctx, line.ID))
	require.NoError(t, repo.IncrementLineRound(ctx, line.ID))

	var stored models.OrderProduct
	require.NoError(t, db.First(&stored, "id = ?", line.ID).Error)
	assert.True(t, stored.RemainingQty.Equal(decimal.RequireFromString("15")))
	assert.Equal(t, 2, stored.ReallocRounds)
}

func TestFlagReturnApproval(t *testing.T) {
	t.Parallel()

	db := setupAllocationTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	allocation := seedAllocation(t, db, uuid.New(), uuid.New(), enums.AllocationStatusAccepted, time.Now().UTC())
	require.NoError(t, repo.FlagReturnApproval(ctx, allocation.ID))

	stored, err := repo.FindByID(ctx, allocation.ID)
	require.NoError(t, err)
	assert.True(t, stored.NeedsReturnApproval)
}

func TestListPendingBySeller(t *testing.T) {
	t.Parallel()

	db := setupAllocationTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	seller := uuid.New()
	now := time.Now().UTC()

	urgent := seedAllocation(t, db, uuid.New(), seller, enums.AllocationStatusPending, now.Add(time.Hour))
	later := seedAllocation(t, db, uuid.New(), seller, enums.AllocationStatusPending, now.Add(3*time.Hour))
	seedAllocation(t, db, uuid.New(), seller, enums.AllocationStatusAccepted, now.Add(time.Hour))
	seedAllocation(t, db, uuid.New(), uuid.New(), enums.AllocationStatusPending, now.Add(time.Hour))

	queue, err := repo.ListPendingBySeller(ctx, seller, 0)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, urgent.ID, queue[0].ID)
	assert.Equal(t, later.ID, queue[1].ID)

	queue, err = repo.ListPendingBySeller(ctx, seller, 1)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, urgent.ID, queue[0].ID)
}
