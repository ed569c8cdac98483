package pebblelog

import (
	"context"

	"github.com/rzbill/mledger/internal/ledger"
	"github.com/rzbill/mledger/internal/position"
)

// ReadEntries returns at most max live entries starting at from (inclusive)
// and the position immediately after the last one returned. If fewer than
// max entries exist, next is the position just past the log's current end.
func (l *Log) ReadEntries(ctx context.Context, from position.Position, max int) ([]ledger.Entry, position.Position, error) {
	if max <= 0 {
		return nil, from, nil
	}
	entries := make([]ledger.Entry, 0, max)
	next := from
	err := l.forEachLiveEntry(ctx, from, func(le liveEntry) (bool, error) {
		if payload, ok := l.opts.Cache.Get(le.Position); ok {
			entries = append(entries, ledger.NewEntry(le.Position, payload, nil))
		} else {
			l.opts.Cache.Put(le.Position, le.Payload)
			entries = append(entries, ledger.NewEntry(le.Position, le.Payload, nil))
		}
		next = le.Position.Next()
		return len(entries) < max, nil
	})
	if err != nil {
		return nil, from, err
	}
	if len(entries) == 0 {
		return entries, from, nil
	}
	return entries, next, nil
}

// ReadEntry reads a single entry at p.
func (l *Log) ReadEntry(ctx context.Context, p position.Position) (ledger.Entry, error) {
	if payload, ok := l.opts.Cache.Get(p); ok {
		return ledger.NewEntry(p, payload, nil), nil
	}
	var found ledger.Entry
	hit := false
	err := l.forEachLiveEntry(ctx, p, func(le liveEntry) (bool, error) {
		if le.Position.Equal(p) {
			l.opts.Cache.Put(le.Position, le.Payload)
			found = ledger.NewEntry(le.Position, le.Payload, nil)
			hit = true
		}
		return false, nil
	})
	if err != nil {
		return ledger.Entry{}, err
	}
	if !hit {
		return ledger.Entry{}, ErrNotFound
	}
	return found, nil
}

// HasMoreAfter reports whether any position beyond p has ever been assigned,
// regardless of whether that entry has since been trimmed. This matches the
// managed-ledger semantics of "is there somewhere further to look", used by
// find-newest to decide whether to issue another read.
func (l *Log) HasMoreAfter(ctx context.Context, p position.Position) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.hasLast {
		return false, nil
	}
	return p.Less(l.lastPos), nil
}

// LastPosition returns the position of the most recent append, or a
// before-first position if the log has never been appended to.
func (l *Log) LastPosition(ctx context.Context) (position.Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.hasLast {
		return position.BeforeFirst(l.curSeg), nil
	}
	return l.lastPos, nil
}

// EarliestPosition returns the position immediately before the oldest
// retained live entry (i.e. a valid initial mark-delete for a fresh
// cursor asked to see the entire retained log).
func (l *Log) EarliestPosition(ctx context.Context) (position.Position, error) {
	l.mu.Lock()
	fp := l.firstPos
	l.mu.Unlock()
	return fp, nil
}

// TotalEntriesFrom returns the number of live entries at or after p.
func (l *Log) TotalEntriesFrom(ctx context.Context, p position.Position) (int64, error) {
	var n int64
	err := l.forEachLiveEntry(ctx, p, func(le liveEntry) (bool, error) {
		n++
		return true, nil
	})
	return n, err
}

// PositionAfterN returns the position that sits n live entries after start,
// per bound. With StartIncluded, start itself counts as the first of the n
// entries if it is live; with StartExcluded, counting begins strictly after
// start. If fewer than n live entries remain, the position just past the
// last live entry examined is returned (equivalently, the log's current
// end for the purposes of PositionAfterN).
func (l *Log) PositionAfterN(ctx context.Context, start position.Position, n int64, bound position.Bound) (position.Position, error) {
	if n <= 0 {
		if bound == position.StartIncluded {
			return start, nil
		}
		return start.Next(), nil
	}

	from := start
	if bound == position.StartExcluded {
		from = start.Next()
	}

	var count int64
	var last position.Position
	haveLast := false
	err := l.forEachLiveEntry(ctx, from, func(le liveEntry) (bool, error) {
		count++
		last = le.Position
		haveLast = true
		return count < n, nil
	})
	if err != nil {
		return position.Position{}, err
	}
	if haveLast && count >= n {
		return last, nil
	}
	// Fewer than n entries remained: clamp to just past the log's end.
	end, err := l.LastPosition(ctx)
	if err != nil {
		return position.Position{}, err
	}
	return end.Next(), nil
}
