package findnewest

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/rzbill/mledger/internal/ledger"
)

// CompilePredicate compiles expr into a Predicate over ledger.Entry, exposing
// the same partition/sequence/ts_ms/size/text/json/headers/now_ms variable
// surface used elsewhere for CEL-based filtering, so retention cutoffs can
// be written declaratively, e.g. "ts_ms < now_ms - 604800000". An empty expr
// compiles to a predicate that always matches. ts_ms is always zero; use
// CompilePredicateWithTimestamp for log views that can recover one.
func CompilePredicate(expr string) (Predicate, error) {
	return CompilePredicateWithTimestamp(expr, nil)
}

// CompilePredicateWithTimestamp is CompilePredicate for LogView
// implementations that can recover a per-entry timestamp, e.g. pebblelog
// logs whose header carries one (see pebblelog.HeaderTimestamp); tsOf is
// applied to each entry to populate the ts_ms variable. A nil tsOf leaves
// ts_ms at zero.
func CompilePredicateWithTimestamp(expr string, tsOf func(ledger.Entry) int64) (Predicate, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return func(ledger.Entry) bool { return true }, nil
	}
	if tsOf == nil {
		tsOf = func(ledger.Entry) int64 { return 0 }
	}

	env, err := cel.NewEnv(
		cel.Variable("partition", cel.IntType),
		cel.Variable("sequence", cel.IntType),
		cel.Variable("ts_ms", cel.IntType),
		cel.Variable("size", cel.IntType),
		cel.Variable("text", cel.StringType),
		cel.Variable("json", cel.DynType),
		cel.Variable("headers", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return nil, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return nil, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return nil, err
	}

	return func(e ledger.Entry) bool {
		var jsonObj any
		_ = json.Unmarshal(e.Payload, &jsonObj)
		out, _, err := prog.Eval(map[string]any{
			"partition": int64(e.Position.Segment),
			"sequence":  e.Position.Entry,
			"ts_ms":     tsOf(e),
			"size":      int64(len(e.Payload)),
			"text":      string(e.Payload),
			"json":      jsonObj,
			"headers":   map[string]string{},
			"now_ms":    time.Now().UnixMilli(),
		})
		if err != nil {
			return false
		}
		b, ok := out.Value().(bool)
		return ok && b
	}, nil
}
