package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	return entry
}

func TestInfoCarriesServiceName(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{ServiceName: "allocation-worker", Output: &buf})

	log.Info(context.Background(), "hello")

	entry := decodeLine(t, &buf)
	if entry["service"] != "allocation-worker" {
		t.Fatalf("expected service field, got %v", entry["service"])
	}
	if entry["message"] != "hello" {
		t.Fatalf("expected message, got %v", entry["message"])
	}
}

func TestContextFieldsAccumulate(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{ServiceName: "api", Output: &buf})

	ctx := log.WithOrderID(context.Background(), "ord-1")
	ctx = log.WithSellerID(ctx, "sel-9")
	log.Info(ctx, "allocated")

	entry := decodeLine(t, &buf)
	if entry["order_id"] != "ord-1" {
		t.Fatalf("expected order_id, got %v", entry["order_id"])
	}
	if entry["seller_id"] != "sel-9" {
		t.Fatalf("expected seller_id, got %v", entry["seller_id"])
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{ServiceName: "api", Level: zerolog.WarnLevel, Output: &buf})

	log.Info(context.Background(), "dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info below warn level to be dropped, got %q", buf.String())
	}
}

func TestErrorIncludesStack(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{ServiceName: "api", Output: &buf})

	log.Error(context.Background(), "boom", context.Canceled)

	entry := decodeLine(t, &buf)
	if entry["error"] != context.Canceled.Error() {
		t.Fatalf("expected error field, got %v", entry["error"])
	}
	if entry["stack"] == nil || entry["stack"] == "" {
		t.Fatal("expected stack field on error logs")
	}
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	if lvl := ParseLevel("nonsense"); lvl != zerolog.InfoLevel {
		t.Fatalf("expected info fallback, got %v", lvl)
	}
	if lvl := ParseLevel("debug"); lvl != zerolog.DebugLevel {
		t.Fatalf("expected debug, got %v", lvl)
	}
}
