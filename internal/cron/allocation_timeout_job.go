package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/Rajput612/mandihouse-backend/pkg/db/models"
	"github.com/Rajput612/mandihouse-backend/pkg/logger"
)

const (
	defaultSweepBatchSize = 200
	maxSweepPasses        = 10
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type expiredAllocationReader interface {
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]models.SellerAllocation, error)
}

type timeoutHandler interface {
	HandleTimeout(ctx context.Context, allocationID uuid.UUID) (bool, error)
}

// AllocationTimeoutJobParams configure the expired allocation sweep.
type AllocationTimeoutJobParams struct {
	Logger    *logger.Logger
	Reader    expiredAllocationReader
	Orders    timeoutHandler
	BatchSize int
}

// NewAllocationTimeoutJob builds the cron job that expires pending
// allocations whose response window has lapsed.
func NewAllocationTimeoutJob(params AllocationTimeoutJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("allocation reader required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("timeout handler required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultSweepBatchSize
	}
	return &allocationTimeoutJob{
		logg:      params.Logger,
		reader:    params.Reader,
		orders:    params.Orders,
		batchSize: batchSize,
		now:       time.Now,
	}, nil
}

type allocationTimeoutJob struct {
	logg      *logger.Logger
	reader    expiredAllocationReader
	orders    timeoutHandler
	batchSize int
	now       func() time.Time
}

func (j *allocationTimeoutJob) Name() string { return "allocation-timeout" }

func (j *allocationTimeoutJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC()
	var (
		expired int
		skipped int
		errs    error
	)
	for pass := 0; pass < maxSweepPasses; pass++ {
		batch, err := j.reader.ListExpiredPending(ctx, cutoff, j.batchSize)
		if err != nil {
			return fmt.Errorf("list expired allocations: %w", err)
		}
		if len(batch) == 0 {
			break
		}
		progressed := 0
		for _, allocation := range batch {
			handled, err := j.orders.HandleTimeout(ctx, allocation.ID)
			if err != nil {
				itemCtx := j.logg.WithField(ctx, "allocation_id", allocation.ID.String())
				j.logg.Error(itemCtx, "failed to expire allocation", err)
				errs = multierr.Append(errs, fmt.Errorf("allocation %s: %w", allocation.ID, err))
				continue
			}
			progressed++
			if handled {
				expired++
			} else {
				skipped++
			}
		}
		// A batch where nothing settled means every remaining row is
		// erroring; stop rather than re-reading the same page.
		if progressed == 0 {
			break
		}
		if len(batch) < j.batchSize {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"expired": expired,
		"skipped": skipped,
	})
	j.logg.Info(logCtx, "allocation timeout sweep complete")
	return errs
}
