package cursor

import (
	"context"

	"github.com/rzbill/mledger/internal/ledger"
	"github.com/rzbill/mledger/internal/position"
)

// ReadEntries returns at most max unread entries starting at read_pos and
// advances read_pos past them. Entries whose position is in the
// individually-deleted set are filtered out of the result: they don't count
// against max, but read_pos still advances past them so they are never
// handed back on a later call. It never blocks: if no entries are currently
// available it returns an empty slice and nil error, leaving the caller to
// fall back to AsyncReadEntriesOrWait.
func (c *Cursor) ReadEntries(ctx context.Context, max int) ([]ledger.Entry, error) {
	c.mu.Lock()
	if err := c.checkOpenLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	from := c.readPos
	c.mu.Unlock()

	if max <= 0 {
		return nil, newErr(KindInvalidArgument, errInvalidMax)
	}

	out := make([]ledger.Entry, 0, max)
	scan := from
	for len(out) < max {
		entries, next, err := c.log.ReadEntries(ctx, scan, max-len(out))
		if err != nil {
			return nil, newErr(KindLogReadError, err)
		}
		if len(entries) == 0 {
			break
		}
		for _, e := range entries {
			c.mu.Lock()
			deleted := c.individuallyDeleted.Contains(e.Position)
			c.mu.Unlock()
			if !deleted {
				out = append(out, e)
			}
		}
		scan = next
	}

	c.mu.Lock()
	if c.readPos.Equal(from) {
		c.readPos = scan
	}
	c.mu.Unlock()

	return out, nil
}

// AsyncReadEntriesOrWait registers cb to be invoked once, either immediately
// (if entries are already available) or the next time the log receives an
// append that makes some available. Only one such registration may be
// pending per cursor at a time; a second call returns ErrPendingReadExists.
func (c *Cursor) AsyncReadEntriesOrWait(ctx context.Context, max int, cb func([]ledger.Entry, error)) error {
	if max <= 0 {
		return newErr(KindInvalidArgument, errInvalidMax)
	}

	c.mu.Lock()
	if err := c.checkOpenLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	from := c.readPos
	c.mu.Unlock()

	hasMore, err := c.log.HasMoreAfter(ctx, from.Prev())
	if err != nil {
		return newErr(KindLogReadError, err)
	}
	if hasMore {
		entries, rerr := c.ReadEntries(ctx, max)
		cb(entries, rerr)
		return nil
	}

	fire := func() {
		entries, rerr := c.ReadEntries(ctx, max)
		cb(entries, rerr)
	}
	if !c.waiters.Register(c.waiterKey, fire) {
		return ErrPendingReadExists
	}

	c.mu.Lock()
	if c.unsub == nil {
		c.unsub = c.log.SubscribeAppend(func(newest position.Position) {
			c.waiters.Fire(c.waiterKey)
		})
	}
	c.mu.Unlock()
	return nil
}

// CancelPendingRead cancels a pending AsyncReadEntriesOrWait registration
// without invoking its callback, reporting whether one was pending.
func (c *Cursor) CancelPendingRead() bool {
	return c.waiters.Cancel(c.waiterKey)
}

// GetNthEntry returns the position n live entries after mark_delete_pos
// (1-indexed), honoring policy's treatment of individually-deleted
// positions. If fewer than n eligible entries remain, it returns
// ErrNotEnoughEntries rather than a position, with no side effects.
func (c *Cursor) GetNthEntry(ctx context.Context, n int64, policy NthEntryPolicy) (position.Position, error) {
	if n <= 0 {
		return position.Position{}, newErr(KindInvalidArgument, errInvalidN)
	}

	c.mu.Lock()
	from := c.markDeletePos
	c.mu.Unlock()

	if policy == NthEntryIncludeIndividuallyDeleted {
		pos, err := c.log.PositionAfterN(ctx, from, n, position.StartExcluded)
		if err != nil {
			return position.Position{}, newErr(KindLogReadError, err)
		}
		last, err := c.log.LastPosition(ctx)
		if err != nil {
			return position.Position{}, newErr(KindLogReadError, err)
		}
		if !pos.Less(last.Next()) {
			// PositionAfterN clamps to just past the log's end when fewer
			// than n entries remained; no live entry can sit at or beyond
			// last.Next(), so this is that sentinel, not a real position.
			return position.Position{}, ErrNotEnoughEntries
		}
		return pos, nil
	}

	// Excluding individually-deleted positions requires walking forward,
	// skipping any position already covered by individuallyDeleted, until n
	// eligible positions have been counted.
	last, err := c.log.LastPosition(ctx)
	if err != nil {
		return position.Position{}, newErr(KindLogReadError, err)
	}
	cur := from
	var count int64
	for count < n {
		next, err := c.log.PositionAfterN(ctx, cur, 1, position.StartExcluded)
		if err != nil {
			return position.Position{}, newErr(KindLogReadError, err)
		}
		if !next.Less(last.Next()) {
			return position.Position{}, ErrNotEnoughEntries
		}
		cur = next
		c.mu.Lock()
		deleted := c.individuallyDeleted.Contains(cur)
		c.mu.Unlock()
		if !deleted {
			count++
		}
	}
	return cur, nil
}

// ReplayEntries reads and returns the entries at the given positions, in
// the order requested, ignoring read_pos and individually-deleted state.
// Positions at or before mark_delete_pos are already acknowledged and are
// silently omitted from the result rather than replayed.
func (c *Cursor) ReplayEntries(ctx context.Context, positions []position.Position) ([]ledger.Entry, error) {
	c.mu.Lock()
	mark := c.markDeletePos
	c.mu.Unlock()

	out := make([]ledger.Entry, 0, len(positions))
	for _, p := range positions {
		if !mark.Less(p) {
			continue
		}
		e, err := c.log.ReadEntry(ctx, p)
		if err != nil {
			return nil, newErr(KindLogReadError, err)
		}
		out = append(out, e)
	}
	return out, nil
}
