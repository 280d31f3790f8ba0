package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOrderMigrationsContainSchemas(t *testing.T) {
	cases := map[string][]string{
		"*_create_order_requests.sql": {
			"CREATE TYPE order_status AS ENUM",
			"CREATE TABLE IF NOT EXISTS order_requests",
			"CREATE TABLE IF NOT EXISTS order_products",
			"CHECK (requested_qty > 0)",
			"CHECK (remaining_qty >= 0)",
			"FOREIGN KEY (order_id) REFERENCES order_requests(id) ON DELETE CASCADE",
		},
		"*_create_seller_allocations.sql": {
			"CREATE TYPE allocation_status AS ENUM",
			"CREATE TYPE reject_reason AS ENUM",
			"CREATE TABLE IF NOT EXISTS seller_allocations",
			"WHERE status = 'pending'",
		},
		"*_create_outbox.sql": {
			"CREATE TABLE IF NOT EXISTS outbox_events",
			"CREATE TABLE IF NOT EXISTS outbox_dlq",
			"WHERE published_at IS NULL",
		},
	}

	for pattern, checks := range cases {
		matches, err := filepath.Glob(filepath.Join("migrations", pattern))
		if err != nil {
			t.Fatalf("glob %s: %v", pattern, err)
		}
		if len(matches) == 0 {
			t.Fatalf("no migration matching %s found", pattern)
		}
		data, err := os.ReadFile(matches[0])
		if err != nil {
			t.Fatalf("read migration file: %v", err)
		}
		content := string(data)
		for _, sub := range checks {
			if !strings.Contains(content, sub) {
				t.Errorf("%s: missing expected statement %q", matches[0], sub)
			}
		}
	}
}
