package cursorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/rzbill/mledger/internal/cursor"
	"github.com/rzbill/mledger/internal/ledger/pebblelog"
	"github.com/rzbill/mledger/internal/position"
	pebblestore "github.com/rzbill/mledger/internal/storage/pebble"
	"github.com/rzbill/mledger/pkg/log"
)

// LedgerOpener opens (creating if needed) the dedicated cursor ledger named
// name, used only for the large-form individually-deleted set.
type LedgerOpener func(name string) (*pebblelog.Log, error)

// Options configures a Store.
type Options struct {
	// MaxInlineRanges is the number of individually-deleted intervals a
	// cursor may carry inline before its state spills to a dedicated
	// cursor ledger.
	MaxInlineRanges int

	// ThrottleMarkDelete coalesces bursts of ScheduleSave/SaveAsync calls
	// for the same cursor into one write every interval; zero persists
	// immediately.
	ThrottleMarkDelete time.Duration

	Logger log.Logger
}

// Store is the Pebble-backed implementation of cursor.Store.
type Store struct {
	db      *pebblestore.DB
	openLdg LedgerOpener
	opts    Options
	logger  log.Logger

	mu    sync.Mutex
	queue map[string]*coalescer
}

var _ cursor.Store = (*Store)(nil)

// New constructs a Store persisting small-form records to db and spilling
// large-form individually-deleted sets to ledgers opened via openLedger.
func New(db *pebblestore.DB, openLedger LedgerOpener, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewLogger()
	}
	if opts.MaxInlineRanges <= 0 {
		opts.MaxInlineRanges = 1000
	}
	return &Store{
		db:      db,
		openLdg: openLedger,
		opts:    opts,
		logger:  logger.WithComponent("cursorstore"),
		queue:   make(map[string]*coalescer),
	}
}

func cursorKey(logName, cursorName string) []byte {
	return []byte("meta/cursor/" + logName + "/" + cursorName)
}

func ledgerName(logName, cursorName string, epoch int64) string {
	return fmt.Sprintf("cursor-ledger/%s/%s/%d", logName, cursorName, epoch)
}

// Load implements cursor.Store, recovering the last persisted snapshot: read
// the metadata record; if it references a dedicated ledger, open that
// ledger and read the large-form payload from the recorded position;
// otherwise use the inline set directly.
func (s *Store) Load(ctx context.Context, logName, cursorName string) (cursor.Snapshot, bool, error) {
	raw, err := s.db.Get(cursorKey(logName, cursorName))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return cursor.Snapshot{}, false, nil
		}
		return cursor.Snapshot{}, false, err
	}
	rec, err := decodeRecord(raw)
	if err != nil {
		return cursor.Snapshot{}, false, err
	}

	snap := cursor.Snapshot{
		MarkDeletePos: position.Position{Segment: rec.MarkDelete.Segment, Entry: rec.MarkDelete.Entry},
		LastActive:    rec.LastActive,
	}

	switch rec.Form {
	case formLedger:
		if rec.Ledger == nil {
			return cursor.Snapshot{}, false, errors.New("cursorstore: ledger-form record missing ledger reference")
		}
		l, err := s.openLdg(rec.Ledger.LedgerName)
		if err != nil {
			return cursor.Snapshot{}, false, err
		}
		entry, err := l.ReadEntry(ctx, position.Position{Segment: rec.Ledger.Segment, Entry: rec.Ledger.Entry})
		if err != nil {
			return cursor.Snapshot{}, false, err
		}
		var payload largeFormPayload
		if err := json.Unmarshal(entry.Payload, &payload); err != nil {
			return cursor.Snapshot{}, false, err
		}
		snap.IndividuallyDeleted = payload.IndividuallyDeleted
	default:
		snap.IndividuallyDeleted = rec.Inline
	}

	return snap, true, nil
}

// Delete implements cursor.Store, removing the small-form record. Any
// dedicated cursor ledger is left in place; it is unreferenced and left to
// be reclaimed by the same retention path as any other log rather than a
// dedicated GC pass for orphaned cursor ledgers.
func (s *Store) Delete(logName, cursorName string) error {
	return s.db.Delete(cursorKey(logName, cursorName))
}

// ScheduleSave implements cursor.Store.
func (s *Store) ScheduleSave(logName, cursorName string, snap cursor.Snapshot) {
	s.SaveAsync(logName, cursorName, snap, func(err error) {
		if err != nil {
			s.logger.WithError(err).WithField("cursor", cursorName).WithField("log", logName).
				Warn("scheduled cursor save failed")
		}
	})
}

// SaveAsync implements cursor.Store, coalescing bursts of calls for the
// same (logName, cursorName) into one physical write per
// ThrottleMarkDelete interval: the latest snapshot at fire time wins, and
// every callback queued since the last physical write is invoked with that
// write's outcome, in submission order.
func (s *Store) SaveAsync(logName, cursorName string, snap cursor.Snapshot, cb func(error)) {
	c := s.coalescerFor(logName, cursorName)
	c.submit(snap, cb, s.opts.ThrottleMarkDelete, func(sn cursor.Snapshot) error {
		return s.persist(logName, cursorName, sn)
	})
}

func (s *Store) coalescerFor(logName, cursorName string) *coalescer {
	key := logName + "/" + cursorName
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.queue[key]
	if !ok {
		c = &coalescer{}
		s.queue[key] = c
	}
	return c
}

// persist performs one physical write of snap, choosing inline vs ledger
// form and CAS-guarding the metadata record write.
func (s *Store) persist(logName, cursorName string, snap cursor.Snapshot) error {
	key := cursorKey(logName, cursorName)

	var prevVersion, prevEpoch int64
	if raw, err := s.db.Get(key); err == nil {
		if prev, derr := decodeRecord(raw); derr == nil {
			prevVersion = prev.Version
			if prev.Form == formLedger && prev.Ledger != nil {
				prevEpoch = prev.Ledger.Epoch
			}
		}
	} else if !errors.Is(err, pebble.ErrNotFound) {
		return err
	}

	rec := metaRecord{
		Version: prevVersion + 1,
		MarkDelete: posRecord{
			Segment: snap.MarkDeletePos.Segment,
			Entry:   snap.MarkDeletePos.Entry,
		},
		LastActive: snap.LastActive,
	}

	if len(snap.IndividuallyDeleted) <= s.opts.MaxInlineRanges {
		rec.Form = formInline
		rec.Inline = snap.IndividuallyDeleted
		return s.casWrite(key, prevVersion, rec)
	}

	name := ledgerName(logName, cursorName, prevEpoch+1)
	l, err := s.openLdg(name)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(largeFormPayload{IndividuallyDeleted: snap.IndividuallyDeleted})
	if err != nil {
		return err
	}
	header := pebblelog.EncodeTimestampHeader(time.Now().UnixMilli())
	positions, err := l.Append(context.Background(), []pebblelog.AppendRecord{{Header: header, Payload: payload}})
	if err != nil {
		return err
	}
	pos := positions[0]

	rec.Form = formLedger
	rec.Ledger = &ledgerRef{LedgerName: name, Epoch: prevEpoch + 1, Segment: pos.Segment, Entry: pos.Entry}

	if err := s.casWrite(key, prevVersion, rec); err != nil {
		s.dropOrphanLedger(l)
		return err
	}
	return nil
}

// casWrite writes rec only if the record currently stored under key still
// has version expectVersion, guarding against a concurrent writer for the
// same cursor. Callers of Store already serialize per-cursor writes via
// coalescer, so this mainly protects against a second Store instance
// sharing the same metadata store.
func (s *Store) casWrite(key []byte, expectVersion int64, rec metaRecord) error {
	raw, err := s.db.Get(key)
	switch {
	case err == nil:
		cur, derr := decodeRecord(raw)
		if derr != nil {
			return derr
		}
		if cur.Version != expectVersion {
			return fmt.Errorf("cursorstore: cas conflict: expected version %d, found %d", expectVersion, cur.Version)
		}
	case errors.Is(err, pebble.ErrNotFound):
		if expectVersion != 0 {
			return fmt.Errorf("cursorstore: cas conflict: expected version %d, found none", expectVersion)
		}
	default:
		return err
	}

	encoded, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return s.db.Set(key, encoded)
}

// dropOrphanLedger trims a just-created cursor ledger back to empty when
// its CAS write lost the race, so a failed switch-over doesn't leak a
// dangling ledger nobody references.
func (s *Store) dropOrphanLedger(l *pebblelog.Log) {
	cutoff := time.Now().Add(time.Second).UnixMilli()
	if _, _, err := l.TrimOlderThan(context.Background(), cutoff, 0, 0, nil); err != nil {
		s.logger.WithError(err).Warn("failed to clean up orphaned cursor ledger after cas conflict")
	}
}
