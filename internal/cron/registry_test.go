package cron

import (
	"context"
	"testing"
	"time"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryStoresJobs(t *testing.T) {
	registry := NewRegistry()
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	registry.Register(jobA)
	registry.Register(jobB)
	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != jobA || jobs[1] != jobB {
		t.Fatalf("jobs returned out of order")
	}
	// ensure caller cannot mutate internal slice
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}

type countingJob struct {
	runs int
}

func (c *countingJob) Name() string              { return "counting" }
func (c *countingJob) Run(context.Context) error { c.runs++; return nil }

func TestThrottledJobSkipsCloseRuns(t *testing.T) {
	inner := &countingJob{}
	job := Throttled(inner, time.Hour)
	ctx := context.Background()
	if err := job.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := job.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if inner.runs != 1 {
		t.Fatalf("expected 1 run within the interval, got %d", inner.runs)
	}
}
