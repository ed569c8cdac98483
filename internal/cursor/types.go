package cursor

import (
	"github.com/rzbill/mledger/internal/ledger"
	"github.com/rzbill/mledger/internal/position"
)

// State is the cursor lifecycle: Uninitialized -> Active -> (Closed | Deleted).
type State int

const (
	StateUninitialized State = iota
	StateActive
	StateClosed
	StateDeleted
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	case StateDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// SkipPolicy controls whether individually-deleted positions count toward
// the n entries skip_entries advances over.
type SkipPolicy int

const (
	// SkipIncludeIndividuallyDeleted counts already-acked positions toward n.
	SkipIncludeIndividuallyDeleted SkipPolicy = iota
	// SkipExcludeIndividuallyDeleted only counts positions not yet acked.
	SkipExcludeIndividuallyDeleted
)

// FindNewestSearchPolicy selects what position find_newest_matching binds
// the start of its search to.
type FindNewestSearchPolicy int

const (
	// SearchActiveRange starts the search at read_pos, only ever examining
	// entries this cursor has not yet delivered.
	SearchActiveRange FindNewestSearchPolicy = iota
	// SearchAll starts the search at the log's earliest retained position,
	// examining every live entry regardless of this cursor's progress.
	SearchAll
)

// NthEntryPolicy controls whether get_nth_entry may return an
// individually-deleted position.
type NthEntryPolicy int

const (
	// NthEntryIncludeIndividuallyDeleted lets deleted positions count and be returned.
	NthEntryIncludeIndividuallyDeleted NthEntryPolicy = iota
	// NthEntryExcludeIndividuallyDeleted skips deleted positions entirely.
	NthEntryExcludeIndividuallyDeleted
)

// pendingRead is the at-most-one outstanding async_read_entries_or_wait
// registration for a cursor.
type pendingRead struct {
	max int
	cb  func([]ledger.Entry, error)
}

// Snapshot is an immutable, point-in-time view of the durable fields of a
// cursor's state, used to hand off to the persistence layer without holding
// the cursor's lock during I/O (§5: "the in-memory state is snapshotted
// atomically at the moment persistence begins").
type Snapshot struct {
	MarkDeletePos       position.Position
	IndividuallyDeleted []IntervalSnapshot
	LastActive          int64
}

// IntervalSnapshot is the persisted form of a rangeset.Interval.
type IntervalSnapshot struct {
	LoSegment uint64
	LoEntry   int64
	HiSegment uint64
	HiEntry   int64
}
