package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// Config is the top-level configuration loaded from file/env, covering the
// per-log and per-cursor tunables.
type Config struct {
	Ledger  LedgerDefaults  `json:"ledger"`
	Cursor  CursorDefaults  `json:"cursor"`
	Storage StorageSettings `json:"storage"`
}

// LedgerDefaults bounds a single segmented log's growth and caching.
type LedgerDefaults struct {
	MaxEntriesPerLedger uint64 `json:"maxEntriesPerLedger"`
	MaxCacheSizeBytes   int64  `json:"maxCacheSizeBytes"`
	RetentionSizeMB     int64  `json:"retentionSizeMb"`
	RetentionTime       Duration `json:"retentionTime"`
}

// CursorDefaults bounds how aggressively a cursor persists and how much
// unacked state it keeps in the metadata store before spilling to a
// dedicated cursor ledger.
type CursorDefaults struct {
	ThrottleMarkDelete                Duration `json:"throttleMarkDelete"`
	MaxUnackedRangesToPersistInMeta   int      `json:"maxUnackedRangesToPersistInMetastore"`
	MetadataMaxEntriesPerLedger       uint64   `json:"metadataMaxEntriesPerLedger"`
}

// StorageSettings configures the embedded Pebble engine backing both the
// log view and cursor persistence.
type StorageSettings struct {
	DataDir string `json:"dataDir"`
	Fsync   string `json:"fsync"` // "always" | "never" | "batch"
}

// Duration wraps time.Duration with JSON marshaling as a Go duration string
// ("30s", "1h"), matching the convention operators expect in config files.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Default returns the built-in option defaults.
func Default() Config {
	return Config{
		Ledger: LedgerDefaults{
			MaxEntriesPerLedger: 50000,
			MaxCacheSizeBytes:   128 << 20,
			RetentionSizeMB:     0,
			RetentionTime:       Duration(0),
		},
		Cursor: CursorDefaults{
			ThrottleMarkDelete:              Duration(0),
			MaxUnackedRangesToPersistInMeta: 1000,
			MetadataMaxEntriesPerLedger:     1000,
		},
		Storage: StorageSettings{
			DataDir: DefaultDataDir(),
			Fsync:   "batch",
		},
	}
}

// Load reads configuration from a JSON file. If path is empty, returns
// defaults. YAML is intentionally not supported yet.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return Config{}, errors.New("yaml config not supported yet; use JSON for now")
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}
