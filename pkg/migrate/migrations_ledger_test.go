package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWalletEventsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_wallet_events.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no wallet events migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS wallet_events",
		"seq BIGINT GENERATED ALWAYS AS IDENTITY",
		"status wallet_event_status NOT NULL DEFAULT 'pending'",
		"CHECK (amount >= 0)",
		"CREATE INDEX IF NOT EXISTS idx_wallet_events_user_created",
		"DROP TABLE IF EXISTS wallet_events",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestAuditMigrationCascadesOnEventDelete(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_status_audit_entries.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no audit migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS status_audit_entries",
		"FOREIGN KEY (event_id) REFERENCES wallet_events(id) ON DELETE CASCADE",
		"race_detected BOOLEAN NOT NULL DEFAULT FALSE",
		"DROP TABLE IF EXISTS status_audit_entries",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
