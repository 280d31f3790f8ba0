package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInventoryMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_inventory.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no inventory migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS inventory_records",
		"CHECK (available_qty >= 0)",
		"CHECK (reserved_qty >= 0)",
		"PRIMARY KEY (seller_id, product_id)",
		"CREATE TABLE IF NOT EXISTS inventory_reservations",
		"FOREIGN KEY (allocation_id) REFERENCES seller_allocations(id)",
		"DEFERRABLE INITIALLY DEFERRED",
		"DROP TABLE IF EXISTS inventory_records",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
