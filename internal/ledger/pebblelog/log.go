// Package pebblelog is a Pebble-backed implementation of ledger.LogView over
// a segmented (segment, entry) position space: each segment is a distinct
// contiguous Pebble key range, and a new segment is opened once the
// configured entry count is reached.
package pebblelog

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"

	pebblestore "github.com/rzbill/mledger/internal/storage/pebble"

	"github.com/rzbill/mledger/internal/entrycache"
	"github.com/rzbill/mledger/internal/ledger"
	"github.com/rzbill/mledger/internal/position"
)

// ErrNotFound is returned when a requested entry does not exist (never
// written, or already trimmed).
var ErrNotFound = errors.New("pebblelog: entry not found")

// AppendRecord is a single record to append: an optional header (consumed
// only by trims/find-newest, never by the log view) and an opaque payload.
type AppendRecord struct {
	Header  []byte
	Payload []byte
}

// Options configures a Log.
type Options struct {
	// MaxEntriesPerSegment bounds how many entries a single segment holds
	// before Append rolls over to a new segment. Zero means unbounded (a
	// single, ever-growing segment 0).
	MaxEntriesPerSegment uint64
	// Cache, if non-nil, is consulted before falling back to Pebble on
	// ReadEntry and populated on every entry read from storage.
	Cache *entrycache.Cache
}

// Log is a Pebble-backed segmented, append-only log implementing ledger.LogView.
type Log struct {
	db   *pebblestore.DB
	name string
	opts Options

	mu       sync.Mutex
	curSeg   uint64
	nextSeq  uint64 // next entry id to assign within curSeg
	lastPos  position.Position
	hasLast  bool
	firstPos position.Position // earliest retained position (advances on trim)
	hasFirst bool

	listenersMu sync.Mutex
	listeners   map[int]ledger.AppendListener
	nextLID     int
}

var _ ledger.LogView = (*Log)(nil)

// Open initializes a Log, loading its last-written and earliest-retained
// positions from Pebble if present.
func Open(db *pebblestore.DB, name string, opts Options) (*Log, error) {
	l := &Log{
		db:        db,
		name:      name,
		opts:      opts,
		listeners: make(map[int]ledger.AppendListener),
	}

	if raw, err := db.Get(keyLast(name)); err == nil && len(raw) >= 16 {
		l.lastPos = position.Position{
			Segment: binary.BigEndian.Uint64(raw[0:8]),
			Entry:   int64(binary.BigEndian.Uint64(raw[8:16])),
		}
		l.hasLast = true
		l.curSeg = l.lastPos.Segment
		l.nextSeq = uint64(l.lastPos.Entry) + 1
	}

	l.firstPos = position.BeforeFirst(0)
	l.hasFirst = true
	if l.hasLast {
		if p, ok, err := l.firstLiveEntry(context.Background()); err == nil && ok {
			l.firstPos = position.Position{Segment: p.Segment, Entry: p.Entry - 1}
		}
	}

	return l, nil
}

// Append appends recs as a single atomic batch, returning the assigned
// positions in order. It notifies append listeners after the batch commits.
func (l *Log) Append(ctx context.Context, recs []AppendRecord) ([]position.Position, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.db.NewBatch()
	defer b.Close()

	positions := make([]position.Position, len(recs))
	for i, r := range recs {
		if l.opts.MaxEntriesPerSegment > 0 && l.nextSeq >= l.opts.MaxEntriesPerSegment && l.hasLast {
			l.curSeg++
			l.nextSeq = 0
		}
		seq := l.nextSeq
		l.nextSeq++
		val := EncodeRecord(r.Header, r.Payload)
		if err := b.Set(keyEntry(l.name, l.curSeg, seq), val, nil); err != nil {
			return nil, err
		}
		positions[i] = position.Position{Segment: l.curSeg, Entry: int64(seq)}
	}

	last := positions[len(positions)-1]
	var lastVal [16]byte
	binary.BigEndian.PutUint64(lastVal[0:8], last.Segment)
	binary.BigEndian.PutUint64(lastVal[8:16], uint64(last.Entry))
	if err := b.Set(keyLast(l.name), lastVal[:], nil); err != nil {
		return nil, err
	}

	if err := l.db.CommitBatch(ctx, b); err != nil {
		return nil, err
	}

	l.lastPos = last
	l.hasLast = true
	if !l.hasFirst || l.firstPos.IsBeforeFirst() {
		l.hasFirst = true
	}

	l.notifyAppend(last)
	return positions, nil
}

func (l *Log) notifyAppend(newest position.Position) {
	l.listenersMu.Lock()
	snapshot := make([]ledger.AppendListener, 0, len(l.listeners))
	for _, fn := range l.listeners {
		snapshot = append(snapshot, fn)
	}
	l.listenersMu.Unlock()
	for _, fn := range snapshot {
		fn(newest)
	}
}

// SubscribeAppend registers fn to be invoked after every successful append.
func (l *Log) SubscribeAppend(fn ledger.AppendListener) ledger.Unsubscribe {
	l.listenersMu.Lock()
	id := l.nextLID
	l.nextLID++
	l.listeners[id] = fn
	l.listenersMu.Unlock()
	return func() {
		l.listenersMu.Lock()
		delete(l.listeners, id)
		l.listenersMu.Unlock()
	}
}
