// Package position implements the totally ordered (segment, entry) pair used
// throughout mledger to identify a single log entry.
package position

import "fmt"

// Bound selects whether a start position is included or excluded when
// counting entries with PositionAfterN.
type Bound int

const (
	// StartIncluded counts the start position itself as the first of the n entries.
	StartIncluded Bound = iota
	// StartExcluded counts n entries strictly after the start position.
	StartExcluded
)

// Position identifies a single entry in a segmented, append-only log.
//
// Entry == -1 is the distinguished "before the first entry of Segment"
// value, used as the initial mark-delete position of a freshly opened
// cursor. It is not an error value; Next() maps it to Entry == 0.
type Position struct {
	Segment uint64
	Entry   int64
}

// BeforeFirst returns the "nothing read yet" position for the given segment.
func BeforeFirst(segment uint64) Position {
	return Position{Segment: segment, Entry: -1}
}

// Next returns the position immediately following p within the same segment.
// Segment rollover is resolved lazily by the log view, not here.
func (p Position) Next() Position {
	return Position{Segment: p.Segment, Entry: p.Entry + 1}
}

// Prev returns the position immediately preceding p within the same segment.
// Prev of a before-first position is not meaningful and is not guarded here;
// callers (reset_cursor) only call it on positions known to have a predecessor.
func (p Position) Prev() Position {
	return Position{Segment: p.Segment, Entry: p.Entry - 1}
}

// Compare returns -1, 0, or 1 as p is less than, equal to, or greater than o,
// using lexicographic order on (Segment, Entry).
func (p Position) Compare(o Position) int {
	switch {
	case p.Segment < o.Segment:
		return -1
	case p.Segment > o.Segment:
		return 1
	case p.Entry < o.Entry:
		return -1
	case p.Entry > o.Entry:
		return 1
	default:
		return 0
	}
}

// Less reports whether p sorts strictly before o.
func (p Position) Less(o Position) bool { return p.Compare(o) < 0 }

// LessOrEqual reports whether p sorts at or before o.
func (p Position) LessOrEqual(o Position) bool { return p.Compare(o) <= 0 }

// Equal reports whether p and o denote the same position.
func (p Position) Equal(o Position) bool { return p.Compare(o) == 0 }

// IsBeforeFirst reports whether p is the "before the first entry" sentinel
// for its segment.
func (p Position) IsBeforeFirst() bool { return p.Entry == -1 }

// String renders p as "seg:entry" for logs and error messages.
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Segment, p.Entry)
}

// Max returns whichever of a, b sorts last.
func Max(a, b Position) Position {
	if a.Less(b) {
		return b
	}
	return a
}

// Min returns whichever of a, b sorts first.
func Min(a, b Position) Position {
	if b.Less(a) {
		return b
	}
	return a
}
