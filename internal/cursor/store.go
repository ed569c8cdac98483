package cursor

import "context"

// Store is the durability seam a Cursor uses to persist and recover its
// mark-delete position and individually-deleted set. Its implementation
// (see the cursorstore package) owns the small-form/
// large-form representation choice, the CAS switch-over between them, and
// mark-delete throttling/coalescing; Cursor only ever sees Snapshot values.
type Store interface {
	// Load recovers the last persisted snapshot for (logName, cursorName).
	// found is false when no record exists yet (a brand new cursor).
	Load(ctx context.Context, logName, cursorName string) (snap Snapshot, found bool, err error)

	// ScheduleSave requests that snap eventually become durable, subject to
	// the store's throttling policy. It never blocks the caller and never
	// reports an error; a later ScheduleSave/SaveAsync for the same cursor
	// with a newer snapshot supersedes this one before it is written.
	ScheduleSave(logName, cursorName string, snap Snapshot)

	// SaveAsync persists snap, invoking cb exactly once with the outcome.
	// It participates in the same coalescing/throttling and per-cursor
	// ordering guarantees as ScheduleSave: cb invocations for the same
	// cursor are delivered in submission order, and a later higher-value
	// snapshot may be written on behalf of an earlier still-pending call.
	SaveAsync(logName, cursorName string, snap Snapshot, cb func(error))

	// Delete erases all durable state for (logName, cursorName).
	Delete(logName, cursorName string) error
}
