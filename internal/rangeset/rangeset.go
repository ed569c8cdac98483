// Package rangeset implements a compact, mergeable set of half-open position
// intervals, used by cursors to track individually-acknowledged entries that
// lie beyond the mark-delete watermark.
package rangeset

import (
	"sort"

	"github.com/rzbill/mledger/internal/position"
)

// Interval is a half-open range [Lo, Hi) of positions. Lo == Hi is illegal
// and never constructed by this package.
type Interval struct {
	Lo position.Position
	Hi position.Position
}

// contains reports whether p falls within [Lo, Hi).
func (iv Interval) contains(p position.Position) bool {
	return !p.Less(iv.Lo) && p.Less(iv.Hi)
}

// Set is a canonical (sorted, disjoint, coalesced) collection of intervals.
// The zero value is an empty set ready to use.
type Set struct {
	intervals []Interval
	size      int64 // cached count of positions covered
}

// intervalSize returns the number of positions covered by iv.
func intervalSize(iv Interval) int64 {
	if iv.Hi.Segment == iv.Lo.Segment {
		return iv.Hi.Entry - iv.Lo.Entry
	}
	// Cross-segment intervals only ever arise from InsertInterval callers
	// that already know the entry counts on each side; rangeset itself
	// only ever builds and merges single-segment intervals from Insert.
	// Fall back to treating segment as the dominant axis is undefined, so
	// conservatively report the entry delta as if contiguous. Callers that
	// need cross-segment counting supply already-normalized intervals.
	return iv.Hi.Entry - iv.Lo.Entry
}

// Insert adds the single position p, i.e. the interval [p, p.Next()).
func (s *Set) Insert(p position.Position) {
	s.InsertInterval(p, p.Next())
}

// InsertInterval adds [lo, hi), merging with any overlapping or adjacent
// existing intervals. It panics if lo is not strictly less than hi, since an
// empty interval is never a legal member of the set.
func (s *Set) InsertInterval(lo, hi position.Position) {
	if !lo.Less(hi) {
		panic("rangeset: empty or inverted interval")
	}
	newIv := Interval{Lo: lo, Hi: hi}

	// Binary search for the first interval whose Hi is >= lo (candidate for merge).
	i := sort.Search(len(s.intervals), func(i int) bool {
		return !s.intervals[i].Hi.Less(lo)
	})

	j := i
	for j < len(s.intervals) && !hi.Less(s.intervals[j].Lo) {
		if s.intervals[j].Lo.Less(newIv.Lo) {
			newIv.Lo = s.intervals[j].Lo
		}
		if newIv.Hi.Less(s.intervals[j].Hi) {
			newIv.Hi = s.intervals[j].Hi
		}
		s.size -= intervalSize(s.intervals[j])
		j++
	}

	s.intervals = append(s.intervals[:i], append([]Interval{newIv}, s.intervals[j:]...)...)
	s.size += intervalSize(newIv)
}

// Contains reports whether p is a member of the set.
func (s *Set) Contains(p position.Position) bool {
	i := sort.Search(len(s.intervals), func(i int) bool {
		return p.Less(s.intervals[i].Hi)
	})
	return i < len(s.intervals) && s.intervals[i].contains(p)
}

// Size returns the total number of positions covered by the set.
func (s *Set) Size() int64 { return s.size }

// Empty reports whether the set has no intervals.
func (s *Set) Empty() bool { return len(s.intervals) == 0 }

// Lowest returns the first (lowest) interval in the set, if any.
func (s *Set) Lowest() (Interval, bool) {
	if len(s.intervals) == 0 {
		return Interval{}, false
	}
	return s.intervals[0], true
}

// Iter returns a snapshot copy of the intervals, in ascending order.
func (s *Set) Iter() []Interval {
	out := make([]Interval, len(s.intervals))
	copy(out, s.intervals)
	return out
}

// IntersectCount returns the number of positions in the set that also fall
// within the half-open range [lo, hi).
func (s *Set) IntersectCount(lo, hi position.Position) int64 {
	if !lo.Less(hi) {
		return 0
	}
	var total int64
	for _, iv := range s.intervals {
		start := position.Max(iv.Lo, lo)
		end := position.Min(iv.Hi, hi)
		if start.Less(end) {
			total += intervalSize(Interval{Lo: start, Hi: end})
		}
	}
	return total
}

// RemoveBelow drops (or truncates) every interval that lies at or below p,
// i.e. it keeps only the part of the set covering positions >= p. It is
// used when a mark-delete advances past previously individually-deleted
// positions, which must not double-count against the new watermark.
func (s *Set) RemoveBelow(p position.Position) {
	i := 0
	for i < len(s.intervals) && !p.Less(s.intervals[i].Hi) {
		s.size -= intervalSize(s.intervals[i])
		i++
	}
	s.intervals = s.intervals[i:]
	if len(s.intervals) > 0 && s.intervals[0].Lo.Less(p) {
		s.size -= intervalSize(Interval{Lo: s.intervals[0].Lo, Hi: p})
		s.intervals[0].Lo = p
	}
	// copy to avoid retaining the backing array of the original slice
	if len(s.intervals) > 0 {
		cp := make([]Interval, len(s.intervals))
		copy(cp, s.intervals)
		s.intervals = cp
	} else {
		s.intervals = nil
	}
}

// AbsorbFrom repeatedly merges the lowest interval into mark, as long as it
// starts exactly at mark.Next(), returning the new mark-delete position and
// reporting whether any absorption occurred. This implements invariant 3 of
// the cursor state machine: an ack chain immediately above the watermark
// collapses into the watermark itself.
func (s *Set) AbsorbFrom(mark position.Position) (position.Position, bool) {
	absorbed := false
	for {
		lo, ok := s.Lowest()
		if !ok {
			break
		}
		if !lo.Lo.Equal(mark.Next()) {
			break
		}
		mark = position.Position{Segment: lo.Hi.Segment, Entry: lo.Hi.Entry - 1}
		s.size -= intervalSize(lo)
		s.intervals = s.intervals[1:]
		absorbed = true
	}
	if absorbed {
		cp := make([]Interval, len(s.intervals))
		copy(cp, s.intervals)
		s.intervals = cp
	}
	return mark, absorbed
}

// Clear empties the set.
func (s *Set) Clear() {
	s.intervals = nil
	s.size = 0
}
