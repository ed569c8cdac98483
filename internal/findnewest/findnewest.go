// Package findnewest implements the resumable binary search that locates
// the newest entry after a start position still matching a predicate,
// grounded 1:1 on Apache Pulsar's DlogBasedOpFindNewest state machine: try
// the first candidate, try the last, then binary search the interval in
// between. The binary search can read a candidate it has already read, so
// the number of reads is not bounded by ceil(log2 n)+2: a five-entry range
// in which only the last entry fails the predicate takes six reads.
package findnewest

import (
	"context"
	"errors"

	"github.com/rzbill/mledger/internal/ledger"
	"github.com/rzbill/mledger/internal/position"
)

// Predicate reports whether entry still matches a search condition, e.g.
// "not yet expired" for a retention cutoff.
type Predicate func(ledger.Entry) bool

// ErrNoLiveEntries describes an empty search range: there is nothing after
// start to search. Find itself does not return it; it reports a
// totalEntries of zero as no match with a nil error.
var ErrNoLiveEntries = errors.New("findnewest: no entries to search")

type state int

const (
	stateCheckFirst state = iota
	stateCheckLast
	stateSearching
)

// engine carries the mutable search fields exactly as
// DlogBasedOpFindNewest's instance fields do, one field per concern rather
// than folded into local variables, so the state transitions read the same
// way as the Java original.
type engine struct {
	ctx   context.Context
	lv    ledger.LogView
	start position.Position
	cond  Predicate

	min, max int64
	state    state
	lastOK   position.Position
	haveOK   bool
}

func (e *engine) mid() int64 {
	d := (e.max - e.min) / 2
	if d < 1 {
		d = 1
	}
	return e.min + d
}

// Find locates the newest position strictly after start that still matches
// cond, scanning at most totalEntries live entries after start (start
// itself is treated as a before-first marker, per position.BeforeFirst's
// convention: the first candidate examined is start's immediate
// successor). It returns (position, true, nil) on a match, (zero, false,
// nil) if nothing after start matches, and a non-nil error only on a log
// read failure.
func Find(ctx context.Context, lv ledger.LogView, start position.Position, totalEntries int64, cond Predicate) (position.Position, bool, error) {
	if totalEntries <= 0 {
		return position.Position{}, false, nil
	}

	e := &engine{ctx: ctx, lv: lv, start: start, cond: cond, min: 0, max: totalEntries, state: stateCheckFirst}

	search, err := lv.PositionAfterN(ctx, start, 1, position.StartExcluded)
	if err != nil {
		return position.Position{}, false, err
	}
	for {
		hasMore, err := lv.HasMoreAfter(ctx, search.Prev())
		if err != nil {
			return position.Position{}, false, err
		}
		if !hasMore {
			return e.lastOK, e.haveOK, nil
		}
		entry, err := lv.ReadEntry(ctx, search)
		if err != nil {
			return position.Position{}, false, err
		}
		matched := cond(entry)

		done, nextSearch, err := e.step(search, matched)
		if err != nil {
			return position.Position{}, false, err
		}
		if done {
			return e.lastOK, e.haveOK, nil
		}
		search = nextSearch
	}
}

// step advances the state machine for the entry just read at pos, matching
// or not per matched, and returns whether the search is finished along with
// the position of the next entry to read if not.
func (e *engine) step(pos position.Position, matched bool) (done bool, next position.Position, err error) {
	switch e.state {
	case stateCheckFirst:
		if !matched {
			return true, position.Position{}, nil
		}
		e.lastOK, e.haveOK = pos, true
		e.state = stateCheckLast
		next, err = e.lv.PositionAfterN(e.ctx, e.start, e.max, position.StartExcluded)
		return false, next, err

	case stateCheckLast:
		if matched {
			e.lastOK, e.haveOK = pos, true
			return true, position.Position{}, nil
		}
		e.state = stateSearching
		next, err = e.lv.PositionAfterN(e.ctx, e.start, e.mid(), position.StartExcluded)
		return false, next, err

	default: // stateSearching
		if matched {
			e.lastOK, e.haveOK = pos, true
			e.min = e.mid()
		} else {
			e.max = e.mid() - 1
		}
		if e.max <= e.min {
			return true, position.Position{}, nil
		}
		next, err = e.lv.PositionAfterN(e.ctx, e.start, e.mid(), position.StartExcluded)
		return false, next, err
	}
}
