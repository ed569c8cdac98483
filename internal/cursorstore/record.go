// Package cursorstore implements the durable persistence backend for
// internal/cursor's Store seam: a two-representation design (a small
// inline record in the metadata store, or a large form spilled to a
// dedicated per-cursor ledger once the individually-deleted set grows past
// a threshold), CAS-guarded switch-over with orphan-ledger cleanup, and
// mark-delete throttling/coalescing.
//
// It reuses internal/storage/pebble.DB as the metadata store and
// internal/ledger/pebblelog as the dedicated cursor ledger engine — a
// cursor ledger is itself just a LogView with one logical partition.
package cursorstore

import (
	"encoding/json"

	"github.com/rzbill/mledger/internal/cursor"
)

// form names the representation a cursor's durable state is currently
// stored in.
type form string

const (
	formInline form = "inline"
	formLedger form = "ledger"
)

// ledgerRef locates the entry in a dedicated cursor ledger holding the
// large-form individually-deleted set.
type ledgerRef struct {
	LedgerName string `json:"ledgerName"`
	Epoch      int64  `json:"epoch"`
	Segment    uint64 `json:"segment"`
	Entry      int64  `json:"entry"`
}

// metaRecord is the JSON document stored at a cursor's metadata store key.
// Version is bumped on every successful write and used for the CAS check
// on the next write.
type metaRecord struct {
	Version       int64                     `json:"version"`
	MarkDelete    posRecord                 `json:"markDelete"`
	LastActive    int64                     `json:"lastActive"`
	Form          form                      `json:"form"`
	Inline        []cursor.IntervalSnapshot `json:"inline,omitempty"`
	Ledger        *ledgerRef                `json:"ledger,omitempty"`
}

type posRecord struct {
	Segment uint64 `json:"segment"`
	Entry   int64  `json:"entry"`
}

func encodeRecord(r metaRecord) ([]byte, error) {
	return json.Marshal(r)
}

func decodeRecord(b []byte) (metaRecord, error) {
	var r metaRecord
	err := json.Unmarshal(b, &r)
	return r, err
}

// largeFormPayload is what gets appended to the dedicated cursor ledger
// when a cursor's individually-deleted set outgrows the inline threshold.
type largeFormPayload struct {
	IndividuallyDeleted []cursor.IntervalSnapshot `json:"individuallyDeleted"`
}
