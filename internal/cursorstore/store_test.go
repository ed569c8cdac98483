package cursorstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rzbill/mledger/internal/cursor"
	"github.com/rzbill/mledger/internal/ledger/pebblelog"
	"github.com/rzbill/mledger/internal/position"
	pebblestore "github.com/rzbill/mledger/internal/storage/pebble"
)

func newTestStore(t *testing.T, opts Options) (*Store, *pebblestore.DB) {
	t.Helper()
	dir := t.TempDir()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	var mu sync.Mutex
	logs := make(map[string]*pebblelog.Log)
	opener := func(name string) (*pebblelog.Log, error) {
		mu.Lock()
		defer mu.Unlock()
		if l, ok := logs[name]; ok {
			return l, nil
		}
		l, err := pebblelog.Open(db, name, pebblelog.Options{})
		if err != nil {
			return nil, err
		}
		logs[name] = l
		return l, nil
	}

	return New(db, opener, opts), db
}

func snapshotWithRanges(n int) cursor.Snapshot {
	ivs := make([]cursor.IntervalSnapshot, n)
	for i := 0; i < n; i++ {
		seg := uint64(i / 100)
		entry := int64(i % 100)
		ivs[i] = cursor.IntervalSnapshot{LoSegment: seg, LoEntry: entry, HiSegment: seg, HiEntry: entry + 1}
	}
	return cursor.Snapshot{
		MarkDeletePos:       position.Position{Segment: 0, Entry: -1},
		IndividuallyDeleted: ivs,
		LastActive:          1000,
	}
}

func TestLoadMissingCursorReportsNotFound(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	_, found, err := s.Load(context.Background(), "orders", "c1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if found {
		t.Fatalf("expected not found")
	}
}

func TestScheduleSaveAndLoadRoundTripInline(t *testing.T) {
	s, _ := newTestStore(t, Options{MaxInlineRanges: 100, ThrottleMarkDelete: 0})
	snap := snapshotWithRanges(3)

	done := make(chan error, 1)
	s.SaveAsync("orders", "c1", snap, func(err error) { done <- err })
	if err := <-done; err != nil {
		t.Fatalf("save: %v", err)
	}

	got, found, err := s.Load(context.Background(), "orders", "c1")
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if len(got.IndividuallyDeleted) != 3 {
		t.Fatalf("expected 3 ranges, got %d", len(got.IndividuallyDeleted))
	}
	if !got.MarkDeletePos.Equal(snap.MarkDeletePos) {
		t.Fatalf("mark delete = %v, want %v", got.MarkDeletePos, snap.MarkDeletePos)
	}
}

func TestPersistSwitchesToLedgerFormPastThreshold(t *testing.T) {
	s, _ := newTestStore(t, Options{MaxInlineRanges: 5, ThrottleMarkDelete: 0})
	snap := snapshotWithRanges(50)

	done := make(chan error, 1)
	s.SaveAsync("orders", "c1", snap, func(err error) { done <- err })
	if err := <-done; err != nil {
		t.Fatalf("save: %v", err)
	}

	got, found, err := s.Load(context.Background(), "orders", "c1")
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if len(got.IndividuallyDeleted) != 50 {
		t.Fatalf("expected 50 ranges recovered from ledger form, got %d", len(got.IndividuallyDeleted))
	}
}

func TestScheduleSaveCoalescesBurst(t *testing.T) {
	s, _ := newTestStore(t, Options{MaxInlineRanges: 100, ThrottleMarkDelete: 50 * time.Millisecond})

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 1; i <= 5; i++ {
		wg.Add(1)
		snap := snapshotWithRanges(i)
		go func() {
			defer wg.Done()
			s.SaveAsync("orders", "c1", snap, func(err error) { errs <- err })
		}()
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	got, found, err := s.Load(context.Background(), "orders", "c1")
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if len(got.IndividuallyDeleted) < 1 || len(got.IndividuallyDeleted) > 5 {
		t.Fatalf("expected a coalesced write of between 1 and 5 ranges, got %d", len(got.IndividuallyDeleted))
	}
}

func TestDeleteRemovesRecord(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	snap := snapshotWithRanges(1)

	done := make(chan error, 1)
	s.SaveAsync("orders", "c1", snap, func(err error) { done <- err })
	<-done

	if err := s.Delete("orders", "c1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, found, err := s.Load(context.Background(), "orders", "c1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if found {
		t.Fatalf("expected record gone after delete")
	}
}
