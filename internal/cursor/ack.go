package cursor

import (
	"context"

	"github.com/rzbill/mledger/internal/position"
)

// MarkDelete advances the mark-delete watermark to p synchronously,
// discarding any individually-deleted intervals now covered by it, per
// invariant 1 (mark_delete_pos only moves forward) and invariant 3
// (absorption). It returns ErrInvalidMarkDelete if p does not sit at or
// after the current watermark.
func (c *Cursor) MarkDelete(ctx context.Context, p position.Position) error {
	c.mu.Lock()
	if err := c.checkOpenLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if p.Less(c.markDeletePos) {
		c.mu.Unlock()
		return ErrInvalidMarkDelete
	}
	c.markDeletePos = p
	c.individuallyDeleted.RemoveBelow(p.Next())
	c.absorbLocked()
	if c.readPos.Less(c.markDeletePos.Next()) {
		c.readPos = c.markDeletePos.Next()
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.store.ScheduleSave(c.logName, c.name, snap)
	return nil
}

// AsyncMarkDelete behaves like MarkDelete but persists in the background,
// invoking cb exactly once with the outcome. Persistence is throttled and
// coalesced by the store; the in-memory watermark is updated synchronously
// before cb can fire.
func (c *Cursor) AsyncMarkDelete(ctx context.Context, p position.Position, cb func(error)) {
	c.mu.Lock()
	if err := c.checkOpenLocked(); err != nil {
		c.mu.Unlock()
		cb(err)
		return
	}
	if p.Less(c.markDeletePos) {
		c.mu.Unlock()
		cb(ErrInvalidMarkDelete)
		return
	}
	c.markDeletePos = p
	c.individuallyDeleted.RemoveBelow(p.Next())
	c.absorbLocked()
	if c.readPos.Less(c.markDeletePos.Next()) {
		c.readPos = c.markDeletePos.Next()
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.store.SaveAsync(c.logName, c.name, snap, cb)
}

// Delete acknowledges the single position p, inserting it into the
// individually-deleted set and absorbing it into the watermark immediately
// if it is contiguous with mark_delete_pos, per invariant 3. A position at
// or before the current mark-delete position is already acked, so it
// silently succeeds without mutating any state.
func (c *Cursor) Delete(ctx context.Context, p position.Position) error {
	c.mu.Lock()
	if err := c.checkOpenLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if !c.markDeletePos.Less(p) {
		c.mu.Unlock()
		return nil
	}
	c.individuallyDeleted.Insert(p)
	c.absorbLocked()
	if c.readPos.Less(c.markDeletePos.Next()) {
		c.readPos = c.markDeletePos.Next()
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.store.ScheduleSave(c.logName, c.name, snap)
	return nil
}
