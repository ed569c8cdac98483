// Package ledger declares the read-only surface a cursor consumes over a
// segmented, append-only log. Concrete storage engines (see the pebblelog
// subpackage) implement LogView; the cursor, find-newest, and persistence
// packages depend only on this interface.
package ledger

import (
	"context"

	"github.com/rzbill/mledger/internal/position"
)

// Entry is a single opaque log record. Payload lifetime is bounded by an
// explicit Release: callers that obtain an Entry from a cache-backed
// LogView must call Release when done so the cache can reclaim it.
type Entry struct {
	Position position.Position
	Payload  []byte

	release func()
}

// Release returns the entry's payload to its owner, if any. It is safe to
// call multiple times and safe to call on a zero-value Entry.
func (e Entry) Release() {
	if e.release != nil {
		e.release()
	}
}

// NewEntry constructs an Entry with an explicit release callback. A nil
// release is legal and makes Release a no-op, for entries with no shared
// backing store (e.g. read directly off the wire, not through the cache).
func NewEntry(p position.Position, payload []byte, release func()) Entry {
	return Entry{Position: p, Payload: payload, release: release}
}

// AppendListener is notified once per successful append, after the new
// position is durable.
type AppendListener func(newest position.Position)

// Unsubscribe removes a previously registered AppendListener.
type Unsubscribe func()

// LogView is the read-only surface a cursor needs from the underlying
// segmented log. Errors are propagated unchanged to the cursor, which masks
// only a small set of expected not-found cases.
type LogView interface {
	// ReadEntries returns at most max live entries starting at from, in
	// order, and the position immediately after the last entry returned
	// (which may be beyond what currently exists).
	ReadEntries(ctx context.Context, from position.Position, max int) ([]Entry, position.Position, error)

	// ReadEntry reads the single entry at p.
	ReadEntry(ctx context.Context, p position.Position) (Entry, error)

	// HasMoreAfter reports whether any position strictly after p has been
	// assigned by an append, whether or not its entry has since been trimmed.
	HasMoreAfter(ctx context.Context, p position.Position) (bool, error)

	// PositionAfterN returns the position that sits n live entries after
	// start, honoring bound (whether start itself counts as the first of
	// the n entries).
	PositionAfterN(ctx context.Context, start position.Position, n int64, bound position.Bound) (position.Position, error)

	// TotalEntriesFrom returns the count of live entries at or after p.
	TotalEntriesFrom(ctx context.Context, p position.Position) (int64, error)

	// EarliestPosition returns the position immediately before the oldest
	// retained entry in the log, i.e. the exclusive start position
	// search_all binds "the entire log" to.
	EarliestPosition(ctx context.Context) (position.Position, error)

	// LastPosition returns the position of the most recently appended
	// entry, or a before-first position if the log is empty.
	LastPosition(ctx context.Context) (position.Position, error)

	// SubscribeAppend registers a listener invoked on every successful
	// append. The returned Unsubscribe removes it.
	SubscribeAppend(listener AppendListener) Unsubscribe
}
