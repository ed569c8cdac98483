package cursor

import (
	"context"

	"github.com/rzbill/mledger/internal/findnewest"
	"github.com/rzbill/mledger/internal/position"
)

// FindNewestMatching locates the newest entry still matching cond, starting
// the search at the position policy selects: SearchActiveRange binds it to
// read_pos, SearchAll binds it to the log's earliest retained position. It
// returns (position, true, nil) on a match and (zero, false, nil) if nothing
// from the start position onward matches; a non-nil error only reflects a
// log read failure.
func (c *Cursor) FindNewestMatching(ctx context.Context, policy FindNewestSearchPolicy, cond findnewest.Predicate) (position.Position, bool, error) {
	c.mu.Lock()
	if err := c.checkOpenLocked(); err != nil {
		c.mu.Unlock()
		return position.Position{}, false, err
	}
	readPos := c.readPos
	c.mu.Unlock()

	start, err := c.findNewestStart(ctx, policy, readPos)
	if err != nil {
		return position.Position{}, false, newErr(KindLogReadError, err)
	}

	total, err := c.log.TotalEntriesFrom(ctx, start.Next())
	if err != nil {
		return position.Position{}, false, newErr(KindLogReadError, err)
	}

	pos, found, err := findnewest.Find(ctx, c.log, start, total, cond)
	if err != nil {
		return position.Position{}, false, newErr(KindLogReadError, err)
	}
	return pos, found, nil
}

// AsyncFindNewestMatching behaves like FindNewestMatching but runs the
// search in the background, invoking cb exactly once with the outcome:
// useful since the underlying binary search can take a bounded but
// multi-read walk over the log.
func (c *Cursor) AsyncFindNewestMatching(ctx context.Context, policy FindNewestSearchPolicy, cond findnewest.Predicate, cb func(position.Position, bool, error)) {
	go func() {
		pos, found, err := c.FindNewestMatching(ctx, policy, cond)
		cb(pos, found, err)
	}()
}

// findNewestStart resolves policy to the exclusive start position
// findnewest.Find expects: the position immediately before the first
// candidate it should examine. EarliestPosition is already such a position
// (the log view keeps it one before the oldest retained live entry), so
// SearchAll passes it through untouched; SearchActiveRange derives the same
// shape from read_pos with Prev.
func (c *Cursor) findNewestStart(ctx context.Context, policy FindNewestSearchPolicy, readPos position.Position) (position.Position, error) {
	if policy == SearchAll {
		return c.log.EarliestPosition(ctx)
	}
	return readPos.Prev(), nil
}
