package config

import (
	"os"
	"strconv"
	"time"
)

// FromEnv overlays MLEDGER_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("MLEDGER_MAX_ENTRIES_PER_LEDGER"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Ledger.MaxEntriesPerLedger = n
		}
	}
	if v := os.Getenv("MLEDGER_MAX_CACHE_SIZE_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Ledger.MaxCacheSizeBytes = n
		}
	}
	if v := os.Getenv("MLEDGER_RETENTION_SIZE_MB"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Ledger.RetentionSizeMB = n
		}
	}
	if v := os.Getenv("MLEDGER_RETENTION_TIME"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Ledger.RetentionTime = Duration(d)
		}
	}
	if v := os.Getenv("MLEDGER_THROTTLE_MARK_DELETE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cursor.ThrottleMarkDelete = Duration(d)
		}
	}
	if v := os.Getenv("MLEDGER_MAX_UNACKED_RANGES_TO_PERSIST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cursor.MaxUnackedRangesToPersistInMeta = n
		}
	}
	if v := os.Getenv("MLEDGER_METADATA_MAX_ENTRIES_PER_LEDGER"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Cursor.MetadataMaxEntriesPerLedger = n
		}
	}
	if v := os.Getenv("MLEDGER_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("MLEDGER_FSYNC"); v != "" {
		cfg.Storage.Fsync = v
	}
}
