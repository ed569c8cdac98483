package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Ledger.MaxEntriesPerLedger != 50000 {
		t.Fatalf("max entries per ledger default")
	}
	if cfg.Cursor.MaxUnackedRangesToPersistInMeta != 1000 {
		t.Fatalf("max unacked ranges default")
	}
	if cfg.Storage.Fsync != "batch" {
		t.Fatalf("fsync default")
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "mledger.json")
	data := []byte(`{"ledger":{"maxEntriesPerLedger":1000,"retentionTime":"24h"},"cursor":{"throttleMarkDelete":"1s"}}`)
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Ledger.MaxEntriesPerLedger != 1000 {
		t.Fatalf("expected 1000, got %d", cfg.Ledger.MaxEntriesPerLedger)
	}
	if time.Duration(cfg.Ledger.RetentionTime) != 24*time.Hour {
		t.Fatalf("expected 24h retention, got %v", time.Duration(cfg.Ledger.RetentionTime))
	}
	if time.Duration(cfg.Cursor.ThrottleMarkDelete) != time.Second {
		t.Fatalf("expected 1s throttle, got %v", time.Duration(cfg.Cursor.ThrottleMarkDelete))
	}
}

func TestFromEnv(t *testing.T) {
	cfg := Default()
	os.Setenv("MLEDGER_MAX_ENTRIES_PER_LEDGER", "2500")
	os.Setenv("MLEDGER_THROTTLE_MARK_DELETE", "500ms")
	os.Setenv("MLEDGER_DATA_DIR", "/tmp/mledger-test")
	t.Cleanup(func() {
		os.Unsetenv("MLEDGER_MAX_ENTRIES_PER_LEDGER")
		os.Unsetenv("MLEDGER_THROTTLE_MARK_DELETE")
		os.Unsetenv("MLEDGER_DATA_DIR")
	})
	FromEnv(&cfg)
	if cfg.Ledger.MaxEntriesPerLedger != 2500 {
		t.Fatalf("env override max entries")
	}
	if time.Duration(cfg.Cursor.ThrottleMarkDelete) != 500*time.Millisecond {
		t.Fatalf("env override throttle")
	}
	if cfg.Storage.DataDir != "/tmp/mledger-test" {
		t.Fatalf("env override data dir")
	}
}
