// Package pebblelog implements ledger.LogView on top of Pebble.
//
// # Overview
//
// A Log is identified by name and partitioned into segments, each a
// contiguous Pebble key range:
//
//	log/{name}/seg/{segment_be8}/e/{entry_be8}  (entries)
//	log/{name}/last                              (last written position)
//
// Records are framed as: varint(headerLen) | header | payload | crc32c(header|payload).
//
// # Usage
//
//	l, _ := pebblelog.Open(db, "orders", pebblelog.Options{MaxEntriesPerSegment: 100000})
//	positions, _ := l.Append(ctx, []pebblelog.AppendRecord{{Payload: []byte("hello")}})
//	entries, next, _ := l.ReadEntries(ctx, position.BeforeFirst(0).Next(), 10)
//	_ = next
//
// A segment rolls over once MaxEntriesPerSegment entries have been assigned
// within it; a value of zero keeps everything in a single, ever-growing
// segment 0.
package pebblelog
