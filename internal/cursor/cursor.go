// Package cursor implements the durable per-consumer cursor state machine:
// read position, mark-delete position, and the set of individually-deleted
// entries above the mark-delete watermark, maintained under concurrent
// reads, acknowledgments, rewinds, seeks, resets, and skips.
//
// A Cursor's public methods acquire its internal critical section for the
// in-memory mutation and issue any I/O (persistence, log reads) against a
// snapshot captured while still holding it, guarding shared state with one
// mutex per instance and delegating durability to a separate store.
package cursor

import (
	"context"
	"sync"
	"time"

	"github.com/rzbill/mledger/internal/ledger"
	"github.com/rzbill/mledger/internal/position"
	"github.com/rzbill/mledger/internal/rangeset"
	"github.com/rzbill/mledger/internal/waiter"
	"github.com/rzbill/mledger/pkg/log"
)

// Cursor is a durable, named pointer into a log's position space, tracking
// one consumer's read progress and acknowledgment state.
type Cursor struct {
	name    string
	logName string
	log     ledger.LogView
	store   Store
	logger  log.Logger

	waiters   *waiter.Registry
	waiterKey string
	unsub     ledger.Unsubscribe

	mu                  sync.Mutex
	state               State
	readPos             position.Position
	markDeletePos       position.Position
	individuallyDeleted rangeset.Set
}

// Options configures Open.
type Options struct {
	Logger log.Logger
}

// Open opens (or, if unknown, initializes) a cursor named name over log,
// durable in store: an unknown cursor starts at
// mark_delete_pos = (current_last_segment, -1) with read_pos its successor.
func Open(ctx context.Context, logName, name string, lv ledger.LogView, store Store, waiters *waiter.Registry, opts Options) (*Cursor, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewLogger()
	}
	logger = logger.WithComponent("cursor").WithField("cursor", name).WithField("log", logName)

	c := &Cursor{
		name:      name,
		logName:   logName,
		log:       lv,
		store:     store,
		logger:    logger,
		waiters:   waiters,
		waiterKey: logName + "/" + name,
	}

	snap, found, err := store.Load(ctx, logName, name)
	if err != nil {
		return nil, newErr(KindBrokenCursor, err)
	}

	if !found {
		last, err := lv.LastPosition(ctx)
		if err != nil {
			return nil, newErr(KindLogReadError, err)
		}
		c.markDeletePos = position.BeforeFirst(last.Segment)
		c.readPos = c.markDeletePos.Next()
		c.state = StateActive
		logger.WithField("mark_delete", c.markDeletePos.String()).Info("initialized new cursor")
		return c, nil
	}

	c.markDeletePos = snap.MarkDeletePos
	c.readPos = c.markDeletePos.Next()
	for _, iv := range snap.IndividuallyDeleted {
		c.individuallyDeleted.InsertInterval(
			position.Position{Segment: iv.LoSegment, Entry: iv.LoEntry},
			position.Position{Segment: iv.HiSegment, Entry: iv.HiEntry},
		)
	}
	c.state = StateActive
	logger.WithField("mark_delete", c.markDeletePos.String()).
		WithField("individually_deleted", c.individuallyDeleted.Size()).
		Info("recovered cursor")
	return c, nil
}

// Name returns the cursor's name.
func (c *Cursor) Name() string { return c.name }

// State returns the cursor's current lifecycle state.
func (c *Cursor) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// snapshotLocked captures the durable fields under the lock, for handing to
// the store without holding it during I/O (§5).
func (c *Cursor) snapshotLocked() Snapshot {
	ivs := c.individuallyDeleted.Iter()
	out := make([]IntervalSnapshot, len(ivs))
	for i, iv := range ivs {
		out[i] = IntervalSnapshot{
			LoSegment: iv.Lo.Segment, LoEntry: iv.Lo.Entry,
			HiSegment: iv.Hi.Segment, HiEntry: iv.Hi.Entry,
		}
	}
	return Snapshot{
		MarkDeletePos:       c.markDeletePos,
		IndividuallyDeleted: out,
		LastActive:          time.Now().UnixMilli(),
	}
}

// checkOpenLocked returns ErrAlreadyClosed unless the cursor is active.
func (c *Cursor) checkOpenLocked() error {
	switch c.state {
	case StateActive:
		return nil
	case StateClosed:
		return ErrAlreadyClosed
	case StateDeleted:
		return newErr(KindAlreadyClosed, errDeletedCursor)
	default:
		return newErr(KindBrokenCursor, errUninitialized)
	}
}

// absorbLocked repeatedly merges the lowest individually-deleted interval
// into markDeletePos while it starts exactly at markDeletePos.Next(), so the
// watermark always advances over any contiguous run of acked positions.
func (c *Cursor) absorbLocked() {
	newMark, absorbed := c.individuallyDeleted.AbsorbFrom(c.markDeletePos)
	if absorbed {
		c.markDeletePos = newMark
	}
}

// Close transitions the cursor to Closed. Durable state is preserved; the
// cursor stops accepting reads/acks.
func (c *Cursor) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateDeleted {
		return nil
	}
	c.state = StateClosed
	if c.unsub != nil {
		c.unsub()
		c.unsub = nil
	}
	c.waiters.Cancel(c.waiterKey)
	return nil
}

// DeleteCursor permanently removes the cursor's durable state. The cursor
// becomes terminal and unusable.
func (c *Cursor) DeleteCursor() error {
	c.mu.Lock()
	if c.unsub != nil {
		c.unsub()
		c.unsub = nil
	}
	c.waiters.Cancel(c.waiterKey)
	c.state = StateDeleted
	c.mu.Unlock()
	return c.store.Delete(c.logName, c.name)
}

// NumberOfEntries returns the count of live entries from read_pos to the
// end of the log, per invariant 5's read-availability accounting but
// without subtracting individually-deleted positions (this is the raw
// "entries remaining from here" count used by rewind()/tests; see
// NumberOfEntriesAvailableToRead for the ack-aware count).
func (c *Cursor) NumberOfEntries(ctx context.Context) (int64, error) {
	c.mu.Lock()
	readPos := c.readPos
	c.mu.Unlock()
	n, err := c.log.TotalEntriesFrom(ctx, readPos)
	if err != nil {
		return 0, newErr(KindLogReadError, err)
	}
	return n, nil
}

// NumberOfEntriesAvailableToRead implements invariant 5:
// total_live_entries_in [read_pos, inf) - |individually_deleted ∩ [read_pos, inf)|.
func (c *Cursor) NumberOfEntriesAvailableToRead(ctx context.Context) (int64, error) {
	c.mu.Lock()
	readPos := c.readPos
	acked := c.individuallyDeleted.IntersectCount(readPos, position.Position{Segment: ^uint64(0), Entry: 1<<62 - 1})
	c.mu.Unlock()
	total, err := c.log.TotalEntriesFrom(ctx, readPos)
	if err != nil {
		return 0, newErr(KindLogReadError, err)
	}
	n := total - acked
	if n < 0 {
		n = 0
	}
	return n, nil
}

// NumberOfEntriesInBacklog implements invariant 4:
// total_live_entries_in (mark_delete_pos, inf) - |individually_deleted|.
func (c *Cursor) NumberOfEntriesInBacklog(ctx context.Context) (int64, error) {
	c.mu.Lock()
	from := c.markDeletePos.Next()
	acked := c.individuallyDeleted.Size()
	c.mu.Unlock()
	total, err := c.log.TotalEntriesFrom(ctx, from)
	if err != nil {
		return 0, newErr(KindLogReadError, err)
	}
	n := total - acked
	if n < 0 {
		n = 0
	}
	return n, nil
}

// IsIndividuallyDeletedEntriesEmpty reports whether the individually-deleted
// set currently has no intervals.
func (c *Cursor) IsIndividuallyDeletedEntriesEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.individuallyDeleted.Empty()
}

// MarkDeletePosition returns the cursor's current mark-delete watermark.
func (c *Cursor) MarkDeletePosition() position.Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.markDeletePos
}

// ReadPosition returns the position of the next entry read_entries would
// hand out.
func (c *Cursor) ReadPosition() position.Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readPos
}
