package cursor

import (
	"context"

	"github.com/rzbill/mledger/internal/position"
)

// Seek moves read_pos to p without touching mark_delete_pos or the
// individually-deleted set. It fails with ErrPositionBeforeReady if p is
// before mark_delete_pos.Next(): a cursor can only seek forward from its
// acknowledgment watermark, never back into already-acked territory.
func (c *Cursor) Seek(p position.Position) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpenLocked(); err != nil {
		return err
	}
	if p.Less(c.markDeletePos.Next()) {
		return ErrPositionBeforeReady
	}
	c.readPos = p
	return nil
}

// Rewind resets read_pos back to mark_delete_pos.Next(), replaying every
// entry above the watermark including any already individually-deleted.
func (c *Cursor) Rewind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readPos = c.markDeletePos.Next()
}

// ResetCursor moves read_pos to exactly p and mark_delete_pos to p.Prev(),
// clearing the individually-deleted set and discarding all acknowledgment
// progress above p. Unlike MarkDelete, p may move the watermark backward as
// well as forward. read_pos ends up equal to p itself, not its successor:
// the next read delivers the entry at p.
func (c *Cursor) ResetCursor(ctx context.Context, p position.Position) error {
	c.mu.Lock()
	if err := c.checkOpenLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.markDeletePos = p.Prev()
	c.readPos = p
	c.individuallyDeleted.Clear()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.store.ScheduleSave(c.logName, c.name, snap)
	return nil
}

// AsyncResetCursor behaves like ResetCursor but persists in the background,
// invoking cb exactly once with the outcome.
func (c *Cursor) AsyncResetCursor(ctx context.Context, p position.Position, cb func(error)) {
	c.mu.Lock()
	if err := c.checkOpenLocked(); err != nil {
		c.mu.Unlock()
		cb(err)
		return
	}
	c.markDeletePos = p.Prev()
	c.readPos = p
	c.individuallyDeleted.Clear()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.store.SaveAsync(c.logName, c.name, snap, cb)
}

// ClearBacklog moves mark_delete_pos to the current end of the log and
// clears the individually-deleted set, making the cursor report zero
// backlog. read_pos is advanced alongside it.
func (c *Cursor) ClearBacklog(ctx context.Context) error {
	c.mu.Lock()
	if err := c.checkOpenLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	last, err := c.log.LastPosition(ctx)
	if err != nil {
		return newErr(KindLogReadError, err)
	}

	c.mu.Lock()
	c.markDeletePos = last
	c.readPos = last.Next()
	c.individuallyDeleted.Clear()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.store.ScheduleSave(c.logName, c.name, snap)
	return nil
}

// SkipEntries advances read_pos by n live entries, honoring policy's
// treatment of individually-deleted positions. Skipping implies
// acknowledging: mark_delete_pos advances to cover the skipped range and
// absorbs any individually-deleted positions within it, exactly as a
// MarkDelete up through the last skipped position would.
func (c *Cursor) SkipEntries(ctx context.Context, n int64, policy SkipPolicy) error {
	if n <= 0 {
		return newErr(KindInvalidArgument, errInvalidN)
	}

	c.mu.Lock()
	if err := c.checkOpenLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	from := c.readPos
	c.mu.Unlock()

	// Step one live entry at a time regardless of policy, so counting and
	// the individually-deleted lookup share one code path with
	// GetNthEntry's walk; only whether a deleted position counts toward n
	// differs between the two policies.
	last, err := c.log.LastPosition(ctx)
	if err != nil {
		return newErr(KindLogReadError, err)
	}
	cur := from.Prev()
	var count int64
	for count < n {
		next, err := c.log.PositionAfterN(ctx, cur, 1, position.StartExcluded)
		if err != nil {
			return newErr(KindLogReadError, err)
		}
		if !next.Less(last.Next()) {
			break
		}
		cur = next
		if policy == SkipExcludeIndividuallyDeleted {
			c.mu.Lock()
			deleted := c.individuallyDeleted.Contains(cur)
			c.mu.Unlock()
			if deleted {
				continue
			}
		}
		count++
	}
	upTo := cur

	c.mu.Lock()
	if c.markDeletePos.Less(upTo) {
		c.markDeletePos = upTo
		c.individuallyDeleted.RemoveBelow(c.markDeletePos.Next())
		c.absorbLocked()
	}
	if c.readPos.Less(c.markDeletePos.Next()) {
		c.readPos = c.markDeletePos.Next()
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.store.ScheduleSave(c.logName, c.name, snap)
	return nil
}
