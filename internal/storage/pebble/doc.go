// Package pebblestore wraps a single Pebble instance as the shared
// key-value engine underneath a log's segment index and entry bodies
// (internal/ledger/pebblelog) and a cursor's durable state
// (internal/cursorstore), both keyed under their own prefixes in the same
// database so a log and its cursors share one set of SSTables and one WAL.
//
// Usage:
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: "./data",
//	    Fsync:   pebblestore.FsyncModeInterval,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	// Atomic multi-key updates, as pebblelog uses when appending a batch
//	// of entries alongside the log's updated last-written-position key.
//	b := db.NewBatch()
//	_ = b.Set([]byte("log/orders/last"), []byte("..."), nil)
//	_ = db.CommitBatch(context.Background(), b)
//	b.Close()
//
//	// Point ops, as cursorstore uses for a cursor's small-form record.
//	_ = db.Set([]byte("meta/cursor/orders/billing"), []byte("..."))
//	v, _ := db.Get([]byte("meta/cursor/orders/billing"))
package pebblestore
