package allocation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Rajput612/mandihouse-backend/internal/ledger"
	"github.com/Rajput612/mandihouse-backend/pkg/config"
	"github.com/Rajput612/mandihouse-backend/pkg/db/models"
	"github.com/Rajput612/mandihouse-backend/pkg/enums"
	"github.com/Rajput612/mandihouse-backend/pkg/outbox"
)

type stubPublisher struct {
	events []outbox.DomainEvent
}

func (p *stubPublisher) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	p.events = append(p.events, event)
	return nil
}

func (p *stubPublisher) countByType(eventType enums.OutboxEventType) int {
	count := 0
	for _, event := range p.events {
		if event.EventType == eventType {
			count++
		}
	}
	return count
}

func setupAllocationTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:allocation_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS inventory_records (
  seller_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  available_qty NUMERIC NOT NULL DEFAULT 0,
  reserved_qty NUMERIC NOT NULL DEFAULT 0,
  unit_price_paise INTEGER NOT NULL,
  updated_at DATETIME,
  PRIMARY KEY (seller_id, product_id)
);`, `
CREATE TABLE IF NOT EXISTS inventory_reservations (
  id TEXT PRIMARY KEY,
  allocation_id TEXT NOT NULL UNIQUE,
  seller_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  qty NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  resolved_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_products (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  requested_qty NUMERIC NOT NULL,
  remaining_qty NUMERIC NOT NULL,
  max_price_paise INTEGER,
  realloc_rounds INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS seller_allocations (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  order_product_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  qty NUMERIC NOT NULL,
  unit_price_paise INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  reject_reason TEXT,
  round INTEGER NOT NULL DEFAULT 0,
  respond_by DATETIME NOT NULL,
  responded_at DATETIME,
  needs_return_approval INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newTestEngine(t *testing.T, db *gorm.DB) (Engine, *stubPublisher) {
	t.Helper()
	publisher := &stubPublisher{}
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(db), publisher, nil, 3)
	require.NoError(t, err)
	eng, err := NewEngine(NewRepository(db), ledgerSvc, publisher, nil, nil, config.AllocationConfig{
		ResponseWindow:   time.Hour,
		MaxReallocRounds: 3,
	})
	require.NoError(t, err)
	return eng, publisher
}

func seedInventory(t *testing.T, db *gorm.DB, sellerID uuid.UUID, productID, available string, price int64, updatedAt time.Time) {
	t.Helper()
	record := models.InventoryRecord{
		SellerID:       sellerID,
		ProductID:      productID,
		AvailableQty:   decimal.RequireFromString(available),
		UnitPricePaise: price,
		UpdatedAt:      updatedAt,
	}
	require.NoError(t, db.Create(&record).Error)
}

func seedLine(t *testing.T, db *gorm.DB, productID, requested string) *models.OrderProduct {
	t.Helper()
	line := &models.OrderProduct{
		ID:           uuid.New(),
		OrderID:      uuid.New(),
		ProductID:    productID,
		RequestedQty: decimal.RequireFromString(requested),
		RemainingQty: decimal.RequireFromString(requested),
	}
	require.NoError(t, db.Create(line).Error)
	return line
}

func inventoryFor(t *testing.T, db *gorm.DB, sellerID uuid.UUID, productID string) models.InventoryRecord {
	t.Helper()
	var record models.InventoryRecord
	require.NoError(t, db.Where("seller_id = ? AND product_id = ?", sellerID, productID).First(&record).Error)
	return record
}

func TestAllocateLineExactCover(t *testing.T) {
	t.Parallel()

	db := setupAllocationTestDB(t)
	eng, publisher := newTestEngine(t, db)
	ctx := context.Background()
	now := time.Now().UTC()

	sellerX := uuid.New()
	sellerY := uuid.New()
	seedInventory(t, db, sellerX, "tomato", "60", 4000, now)
	seedInventory(t, db, sellerY, "tomato", "80", 4200, now)
	line := seedLine(t, db, "tomato", "100")

	result, err := eng.AllocateLine(ctx, db, line, nil)
	require.NoError(t, err)
	require.Len(t, result.Created, 2)
	assert.Equal(t, OutcomeFull, result.Outcome)
	assert.True(t, result.RemainingQty.IsZero())

	first, second := result.Created[0], result.Created[1]
	assert.Equal(t, sellerX, first.SellerID, "cheapest seller first")
	assert.True(t, first.Qty.Equal(decimal.RequireFromString("60")))
	assert.Equal(t, int64(4000), first.UnitPricePaise)
	assert.Equal(t, sellerY, second.SellerID)
	assert.True(t, second.Qty.Equal(decimal.RequireFromString("40")))
	assert.Equal(t, enums.AllocationStatusPending, first.Status)
	assert.WithinDuration(t, now.Add(time.Hour), first.RespondBy, time.Minute)

	recordX := inventoryFor(t, db, sellerX, "tomato")
	assert.True(t, recordX.AvailableQty.IsZero())
	assert.True(t, recordX.ReservedQty.Equal(decimal.RequireFromString("60")))
	recordY := inventoryFor(t, db, sellerY, "tomato")
	assert.True(t, recordY.AvailableQty.Equal(decimal.RequireFromString("40")))

	var stored models.OrderProduct
	require.NoError(t, db.First(&stored, "id = ?", line.ID).Error)
	assert.True(t, stored.RemainingQty.IsZero())

	assert.Equal(t, 2, publisher.countByType(enums.EventAllocationCreated))
}

func TestAllocateLineShortfall(t *testing.T) {
	t.Parallel()

	db := setupAllocationTestDB(t)
	eng, _ := newTestEngine(t, db)
	ctx := context.Background()
	now := time.Now().UTC()

	sellerA := uuid.New()
	sellerB := uuid.New()
	seedInventory(t, db, sellerA, "tomato", "50", 4100, now)
	seedInventory(t, db, sellerB, "tomato", "40", 4300, now)
	line := seedLine(t, db, "tomato", "100")

	result, err := eng.AllocateLine(ctx, db, line, nil)
	require.NoError(t, err)
	require.Len(t, result.Created, 2)
	assert.Equal(t, OutcomePartial, result.Outcome)
	assert.True(t, result.RemainingQty.Equal(decimal.RequireFromString("10")))
	assert.True(t, line.RemainingQty.Equal(decimal.RequireFromString("10")))
}

func TestAllocateLineNoStock(t *testing.T) {
	t.Parallel()

	db := setupAllocationTestDB(t)
	eng, publisher := newTestEngine(t, db)
	line := seedLine(t, db, "tomato", "100")

	result, err := eng.AllocateLine(context.Background(), db, line, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Created)
	assert.Equal(t, OutcomeNone, result.Outcome)
	assert.True(t, result.RemainingQty.Equal(decimal.RequireFromString("100")))
	assert.Zero(t, publisher.countByType(enums.EventAllocationCreated))
}

func TestAllocateLineRoundsExhausted(t *testing.T) {
	t.Parallel()

	db := setupAllocationTestDB(t)
	eng, _ := newTestEngine(t, db)
	now := time.Now().UTC()

	seller := uuid.New()
	seedInventory(t, db, seller, "tomato", "100", 4000, now)
	line := seedLine(t, db, "tomato", "50")
	line.ReallocRounds = 4

	result, err := eng.AllocateLine(context.Background(), db, line, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Created)
	assert.Equal(t, OutcomeNone, result.Outcome)

	record := inventoryFor(t, db, seller, "tomato")
	assert.True(t, record.AvailableQty.Equal(decimal.RequireFromString("100")), "exhausted line must not touch inventory")
}

func TestAllocateLineSkipsExcludedAndRejectedSellers(t *testing.T) {
	t.Parallel()

	db := setupAllocationTestDB(t)
	eng, _ := newTestEngine(t, db)
	ctx := context.Background()
	now := time.Now().UTC()

	cheapest := uuid.New()
	rejected := uuid.New()
	fallback := uuid.New()
	seedInventory(t, db, cheapest, "tomato", "100", 3800, now)
	seedInventory(t, db, rejected, "tomato", "100", 3900, now)
	seedInventory(t, db, fallback, "tomato", "100", 4100, now)
	line := seedLine(t, db, "tomato", "60")

	reason := enums.RejectReasonOutOfStock
	require.NoError(t, db.Create(&models.SellerAllocation{
		ID:             uuid.New(),
		OrderID:        line.OrderID,
		OrderProductID: line.ID,
		SellerID:       rejected,
		ProductID:      "tomato",
		Qty:            decimal.RequireFromString("60"),
		UnitPricePaise: 3900,
		Status:         enums.AllocationStatusRejected,
		RejectReason:   &reason,
		RespondBy:      now,
	}).Error)

	result, err := eng.AllocateLine(ctx, db, line, []uuid.UUID{cheapest})
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	assert.Equal(t, fallback, result.Created[0].SellerID, "excluded and previously rejecting sellers must be skipped")
}

func TestAllocateLineRespectsPriceCap(t *testing.T) {
	t.Parallel()

	db := setupAllocationTestDB(t)
	eng, _ := newTestEngine(t, db)
	now := time.Now().UTC()

	affordable := uuid.New()
	expensive := uuid.New()
	seedInventory(t, db, affordable, "tomato", "30", 4000, now)
	seedInventory(t, db, expensive, "tomato", "100", 5000, now)

	line := seedLine(t, db, "tomato", "100")
	cap := int64(4500)
	line.MaxPricePaise = &cap
	require.NoError(t, db.Model(&models.OrderProduct{}).Where("id = ?", line.ID).Update("max_price_paise", cap).Error)

	result, err := eng.AllocateLine(context.Background(), db, line, nil)
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	assert.Equal(t, affordable, result.Created[0].SellerID)
	assert.Equal(t, OutcomePartial, result.Outcome)
	assert.True(t, result.RemainingQty.Equal(decimal.RequireFromString("70")))
}

func TestAllocateLineAlreadyCovered(t *testing.T) {
	t.Parallel()

	db := setupAllocationTestDB(t)
	eng, _ := newTestEngine(t, db)

	line := seedLine(t, db, "tomato", "20")
	line.RemainingQty = decimal.Zero

	result, err := eng.AllocateLine(context.Background(), db, line, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Created)
	assert.Equal(t, OutcomeFull, result.Outcome)
}

// setupConstrainedTestDB mirrors the migrated schema: foreign keys are
// enforced and the reservation row may only outlive the transaction when
// its backing allocation exists.
func setupConstrainedTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:allocation_fk_" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS inventory_records (
  seller_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  available_qty NUMERIC NOT NULL DEFAULT 0,
  reserved_qty NUMERIC NOT NULL DEFAULT 0,
  unit_price_paise INTEGER NOT NULL,
  updated_at DATETIME,
  PRIMARY KEY (seller_id, product_id)
);`, `
CREATE TABLE IF NOT EXISTS order_products (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  requested_qty NUMERIC NOT NULL,
  remaining_qty NUMERIC NOT NULL,
  max_price_paise INTEGER,
  realloc_rounds INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS seller_allocations (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  order_product_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  qty NUMERIC NOT NULL,
  unit_price_paise INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  reject_reason TEXT,
  round INTEGER NOT NULL DEFAULT 0,
  respond_by DATETIME NOT NULL,
  responded_at DATETIME,
  needs_return_approval INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS inventory_reservations (
  id TEXT PRIMARY KEY,
  allocation_id TEXT NOT NULL UNIQUE,
  seller_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  qty NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  resolved_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  FOREIGN KEY (allocation_id) REFERENCES seller_allocations(id)
    ON DELETE CASCADE DEFERRABLE INITIALLY DEFERRED
);`}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func TestAllocateLineHonorsReservationForeignKey(t *testing.T) {
	t.Parallel()

	db := setupConstrainedTestDB(t)
	eng, _ := newTestEngine(t, db)
	seller := uuid.New()
	seedInventory(t, db, seller, "tomato", "50", 4000, time.Now().UTC())
	line := seedLine(t, db, "tomato", "30")

	var result *LineResult
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = eng.AllocateLine(context.Background(), tx, line, nil)
		return err
	}))
	require.Len(t, result.Created, 1)
	assert.Equal(t, OutcomeFull, result.Outcome)

	var reservation models.InventoryReservation
	require.NoError(t, db.First(&reservation, "allocation_id = ?", result.Created[0].ID).Error)
	assert.Equal(t, enums.ReservationStatusActive, reservation.Status)
}
