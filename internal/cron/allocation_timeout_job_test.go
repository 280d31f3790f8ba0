package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Rajput612/mandihouse-backend/pkg/db/models"
	"github.com/Rajput612/mandihouse-backend/pkg/logger"
)

type fakeExpiredReader struct {
	pages [][]models.SellerAllocation
	calls int
	err   error
}

func (f *fakeExpiredReader) ListExpiredPending(_ context.Context, _ time.Time, _ int) ([]models.SellerAllocation, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.pages) {
		return nil, nil
	}
	page := f.pages[f.calls]
	f.calls++
	return page, nil
}

type fakeTimeoutHandler struct {
	handled []uuid.UUID
	expired map[uuid.UUID]bool
	errFor  map[uuid.UUID]error
}

func (f *fakeTimeoutHandler) HandleTimeout(_ context.Context, allocationID uuid.UUID) (bool, error) {
	if err, ok := f.errFor[allocationID]; ok {
		return false, err
	}
	f.handled = append(f.handled, allocationID)
	return f.expired[allocationID], nil
}

func newTimeoutJob(t *testing.T, reader *fakeExpiredReader, handler *fakeTimeoutHandler, batchSize int) *allocationTimeoutJob {
	t.Helper()
	jobIface, err := NewAllocationTimeoutJob(AllocationTimeoutJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		Reader:    reader,
		Orders:    handler,
		BatchSize: batchSize,
	})
	if err != nil {
		t.Fatalf("NewAllocationTimeoutJob: %v", err)
	}
	job, ok := jobIface.(*allocationTimeoutJob)
	if !ok {
		t.Fatalf("expected allocationTimeoutJob, got %T", jobIface)
	}
	return job
}

func allocationPage(n int) []models.SellerAllocation {
	page := make([]models.SellerAllocation, n)
	for i := range page {
		page[i] = models.SellerAllocation{ID: uuid.New()}
	}
	return page
}

func TestAllocationTimeoutJobSweepsAllExpired(t *testing.T) {
	page := allocationPage(3)
	reader := &fakeExpiredReader{pages: [][]models.SellerAllocation{page}}
	handler := &fakeTimeoutHandler{expired: map[uuid.UUID]bool{
		page[0].ID: true,
		page[1].ID: true,
		page[2].ID: false,
	}}
	job := newTimeoutJob(t, reader, handler, 10)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(handler.handled) != 3 {
		t.Fatalf("expected 3 allocations handled, got %d", len(handler.handled))
	}
	if reader.calls != 1 {
		t.Fatalf("expected a single page read, got %d", reader.calls)
	}
}

func TestAllocationTimeoutJobDrainsFullPages(t *testing.T) {
	first := allocationPage(2)
	second := allocationPage(1)
	reader := &fakeExpiredReader{pages: [][]models.SellerAllocation{first, second}}
	handler := &fakeTimeoutHandler{expired: map[uuid.UUID]bool{}}
	for _, allocation := range first {
		handler.expired[allocation.ID] = true
	}
	handler.expired[second[0].ID] = true
	job := newTimeoutJob(t, reader, handler, 2)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(handler.handled) != 3 {
		t.Fatalf("expected 3 allocations handled, got %d", len(handler.handled))
	}
	if reader.calls != 2 {
		t.Fatalf("expected 2 page reads, got %d", reader.calls)
	}
}

func TestAllocationTimeoutJobContinuesPastItemErrors(t *testing.T) {
	page := allocationPage(3)
	reader := &fakeExpiredReader{pages: [][]models.SellerAllocation{page}}
	handler := &fakeTimeoutHandler{
		expired: map[uuid.UUID]bool{page[0].ID: true, page[2].ID: true},
		errFor:  map[uuid.UUID]error{page[1].ID: errors.New("boom")},
	}
	job := newTimeoutJob(t, reader, handler, 10)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if len(handler.handled) != 2 {
		t.Fatalf("expected remaining allocations handled, got %d", len(handler.handled))
	}
}

func TestAllocationTimeoutJobStopsWhenNothingProgresses(t *testing.T) {
	page := allocationPage(1)
	reader := &fakeExpiredReader{pages: [][]models.SellerAllocation{page, page, page}}
	handler := &fakeTimeoutHandler{errFor: map[uuid.UUID]error{page[0].ID: errors.New("boom")}}
	job := newTimeoutJob(t, reader, handler, 1)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected aggregated error")
	}
	if reader.calls != 1 {
		t.Fatalf("expected sweep to stop after a stalled page, got %d reads", reader.calls)
	}
}

func TestAllocationTimeoutJobListError(t *testing.T) {
	reader := &fakeExpiredReader{err: errors.New("db down")}
	handler := &fakeTimeoutHandler{}
	job := newTimeoutJob(t, reader, handler, 10)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
