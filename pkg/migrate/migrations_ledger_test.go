package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file matching %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestLedgerMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_ledger_entries.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS ledger_entries",
		"CHECK (qty <> 0)",
		"ux_ledger_entries_key_seq",
		"ux_ledger_entries_ref",
		"WHERE ref_id IS NOT NULL",
		"DROP TABLE IF EXISTS ledger_entries",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestReservationMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_stock_reservations.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS stock_reservations",
		"ux_stock_reservations_ref",
		"CHECK (qty > 0)",
		"CHECK (threshold >= 0)",
		"DROP TABLE IF EXISTS stock_reservations",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestVoucherMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_inventory_vouchers.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS inventory_vouchers",
		"ux_inventory_vouchers_code",
		"CHECK (version >= 1)",
		"FOREIGN KEY (voucher_id) REFERENCES inventory_vouchers(id) ON DELETE CASCADE",
		"CREATE TABLE IF NOT EXISTS voucher_sequences",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
