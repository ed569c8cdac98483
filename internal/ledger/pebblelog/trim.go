package pebblelog

import (
	"context"
	"time"

	"github.com/rzbill/mledger/internal/position"
)

// TimestampExtractor extracts a write timestamp (ms) from a record header.
// Returns (ms, true) if present and valid. HeaderTimestamp implements this
// for the default 8-byte big-endian header convention.
type TimestampExtractor func(header []byte) (int64, bool)

// TrimOlderThan deletes live entries with header timestamp < cutoffMs,
// scanning from the earliest retained position forward and stopping at the
// first entry that is not older than cutoffMs (retention is defined over a
// contiguous prefix of the log). Deletes commit in batches of up to
// batchLimit keys with an optional throttle between commits. Returns the
// number of entries deleted and the last position deleted.
func (l *Log) TrimOlderThan(ctx context.Context, cutoffMs int64, batchLimit int, throttle time.Duration, tsx TimestampExtractor) (int, position.Position, error) {
	if batchLimit <= 0 {
		batchLimit = 1024
	}
	if tsx == nil {
		tsx = HeaderTimestamp
	}

	l.mu.Lock()
	from := l.firstPos.Next()
	l.mu.Unlock()

	deleted := 0
	var lastDeleted position.Position
	for {
		batchDeleted, last, done, err := l.trimBatch(ctx, from, batchLimit, func(header []byte) bool {
			ms, ok := tsx(header)
			return ok && ms < cutoffMs
		})
		if err != nil {
			return deleted, lastDeleted, err
		}
		deleted += batchDeleted
		if batchDeleted > 0 {
			lastDeleted = last
			from = last.Next()
		}
		if done {
			break
		}
		if throttle > 0 {
			time.Sleep(throttle)
		}
	}

	if deleted > 0 {
		l.mu.Lock()
		l.firstPos = lastDeleted
		l.mu.Unlock()
	}
	return deleted, lastDeleted, nil
}

// trimBatch deletes up to batchLimit consecutive live entries starting at
// from for which shouldDelete(header) is true, stopping at the first entry that
// should be kept or when the log is exhausted. done reports whether the
// caller should stop calling trimBatch (either the log ended or a kept
// entry was hit).
func (l *Log) trimBatch(ctx context.Context, from position.Position, batchLimit int, shouldDelete func(header []byte) bool) (int, position.Position, bool, error) {
	b := l.db.NewBatch()
	defer b.Close()

	n := 0
	var last position.Position
	stopped := false
	err := l.forEachLiveEntry(ctx, from, func(le liveEntry) (bool, error) {
		if n >= batchLimit || !shouldDelete(le.Header) {
			stopped = true
			return false, nil
		}
		if err := b.Delete(keyEntry(l.name, le.Position.Segment, uint64(le.Position.Entry)), nil); err != nil {
			return false, err
		}
		l.opts.Cache.Invalidate(le.Position)
		last = le.Position
		n++
		return n < batchLimit, nil
	})
	if err != nil {
		return 0, position.Position{}, true, err
	}
	if n == 0 {
		return 0, position.Position{}, true, nil
	}
	if err := l.db.CommitBatch(ctx, b); err != nil {
		return 0, position.Position{}, true, err
	}
	done := stopped || n < batchLimit
	return n, last, done, nil
}
