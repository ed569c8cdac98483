package rangeset

import (
	"testing"

	"github.com/rzbill/mledger/internal/position"
)

func p(seg uint64, e int64) position.Position { return position.Position{Segment: seg, Entry: e} }

func TestInsertAndMerge(t *testing.T) {
	var s Set
	s.Insert(p(0, 3))
	s.Insert(p(0, 1))
	if s.Size() != 2 {
		t.Fatalf("size = %d, want 2", s.Size())
	}
	// insert the gap between them; expect a single merged interval [1,4)
	s.Insert(p(0, 2))
	if s.Size() != 3 {
		t.Fatalf("size after merge = %d, want 3", s.Size())
	}
	ivs := s.Iter()
	if len(ivs) != 1 {
		t.Fatalf("expected 1 merged interval, got %d: %+v", len(ivs), ivs)
	}
	if ivs[0].Lo != p(0, 1) || ivs[0].Hi != p(0, 4) {
		t.Fatalf("unexpected merged interval: %+v", ivs[0])
	}
}

func TestContains(t *testing.T) {
	var s Set
	s.InsertInterval(p(0, 5), p(0, 10))
	for e := int64(5); e < 10; e++ {
		if !s.Contains(p(0, e)) {
			t.Fatalf("expected contains(%d)", e)
		}
	}
	if s.Contains(p(0, 4)) || s.Contains(p(0, 10)) {
		t.Fatalf("half-open bounds violated")
	}
}

func TestAbsorbFromContiguous(t *testing.T) {
	var s Set
	mark := p(0, 0) // mark-delete at entry 0; next unacked candidate is entry 1
	s.Insert(p(0, 2))
	s.Insert(p(0, 1))
	newMark, absorbed := s.AbsorbFrom(mark)
	if !absorbed {
		t.Fatalf("expected absorption")
	}
	if newMark != p(0, 2) {
		t.Fatalf("newMark = %+v, want {0 2}", newMark)
	}
	if !s.Empty() {
		t.Fatalf("expected empty set after full absorption, got %+v", s.Iter())
	}
}

func TestAbsorbFromNonContiguousNoOp(t *testing.T) {
	var s Set
	mark := p(0, 0)
	s.Insert(p(0, 5)) // gap between mark.Next()=1 and 5
	newMark, absorbed := s.AbsorbFrom(mark)
	if absorbed {
		t.Fatalf("did not expect absorption across a gap")
	}
	if newMark != mark {
		t.Fatalf("mark should be unchanged, got %+v", newMark)
	}
}

func TestRemoveBelowTruncates(t *testing.T) {
	var s Set
	s.InsertInterval(p(0, 0), p(0, 10))
	s.RemoveBelow(p(0, 4))
	if s.Contains(p(0, 3)) {
		t.Fatalf("expected entry 3 to be removed")
	}
	if !s.Contains(p(0, 4)) {
		t.Fatalf("expected entry 4 to remain")
	}
	if s.Size() != 6 {
		t.Fatalf("size = %d, want 6", s.Size())
	}
}

func TestIntersectCount(t *testing.T) {
	var s Set
	s.InsertInterval(p(0, 0), p(0, 5))
	s.InsertInterval(p(0, 10), p(0, 15))
	if got := s.IntersectCount(p(0, 3), p(0, 12)); got != 4 {
		t.Fatalf("IntersectCount = %d, want 4", got)
	}
}

func TestInsertIntervalRejectsEmpty(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on empty interval")
		}
	}()
	var s Set
	s.InsertInterval(p(0, 5), p(0, 5))
}
