package findnewest

import (
	"context"

	"github.com/rzbill/mledger/internal/ledger"
	"github.com/rzbill/mledger/internal/position"
)

// Result is the outcome of an AsyncFind call.
type Result struct {
	Position position.Position
	Found    bool
}

// AsyncFind runs Find and invokes cb exactly once with the outcome. The
// underlying log view resolves synchronously, so cb is invoked before
// AsyncFind returns; callers that need genuine background execution should
// run AsyncFind itself in a goroutine.
func AsyncFind(ctx context.Context, lv ledger.LogView, start position.Position, totalEntries int64, cond Predicate, cb func(Result, error)) {
	pos, found, err := Find(ctx, lv, start, totalEntries, cond)
	if err != nil {
		cb(Result{}, err)
		return
	}
	cb(Result{Position: pos, Found: found}, nil)
}
