package pebblelog

import (
	"context"
	"encoding/binary"

	"github.com/cockroachdb/pebble"

	"github.com/rzbill/mledger/internal/position"
)

// liveEntry is a decoded on-disk record together with its position.
type liveEntry struct {
	Position position.Position
	Header   []byte
	Payload  []byte
}

// forEachLiveEntry walks live (undeleted) entries in ascending position
// order starting at from (inclusive), across as many segments as exist up
// to the log's last known segment, invoking fn for each. fn returns false
// to stop early.
func (l *Log) forEachLiveEntry(ctx context.Context, from position.Position, fn func(liveEntry) (cont bool, err error)) error {
	l.mu.Lock()
	hasLast := l.hasLast
	lastSeg := l.lastPos.Segment
	l.mu.Unlock()
	if !hasLast {
		return nil
	}

	seg := from.Segment
	startEntry := from.Entry
	for {
		cont, err := l.scanSegment(seg, startEntry, fn)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
		if seg >= lastSeg {
			return nil
		}
		seg++
		startEntry = -1
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// scanSegment iterates the given segment starting at entry startEntry
// (inclusive), or at the segment's first entry when startEntry is negative.
// It returns cont=false if
// fn requested a stop.
func (l *Log) scanSegment(seg uint64, startEntry int64, fn func(liveEntry) (bool, error)) (bool, error) {
	low, high := keySegmentEntryBounds(l.name, seg)
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: high})
	if err != nil {
		return false, err
	}
	defer iter.Close()

	var ok bool
	if startEntry < 0 {
		ok = iter.First()
	} else {
		ok = iter.SeekGE(keyEntry(l.name, seg, uint64(startEntry)))
	}
	for ok {
		entryID := binary.BigEndian.Uint64(iter.Key()[len(iter.Key())-8:])
		dec, valid := DecodeRecord(iter.Value())
		if valid {
			le := liveEntry{
				Position: position.Position{Segment: seg, Entry: int64(entryID)},
				Header:   dec.Header,
				Payload:  dec.Payload,
			}
			cont, err := fn(le)
			if err != nil || !cont {
				return false, err
			}
		}
		ok = iter.Next()
	}
	return true, nil
}

// firstLiveEntry returns the earliest live entry across the whole log.
func (l *Log) firstLiveEntry(ctx context.Context) (position.Position, bool, error) {
	var found position.Position
	var ok bool
	err := l.forEachLiveEntry(ctx, position.Position{Segment: 0, Entry: -1}, func(le liveEntry) (bool, error) {
		found = le.Position
		ok = true
		return false, nil
	})
	return found, ok, err
}
