// Command ledgerinspect is an operator CLI over a mledger data directory:
// inspecting ledgers, listing cursors, and locating the newest entry still
// matching a retention predicate, without going through a running server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rzbill/mledger/internal/config"
	"github.com/rzbill/mledger/internal/cursor"
	"github.com/rzbill/mledger/internal/cursorstore"
	"github.com/rzbill/mledger/internal/findnewest"
	"github.com/rzbill/mledger/internal/ledger/pebblelog"
	"github.com/rzbill/mledger/internal/position"
	pebblestore "github.com/rzbill/mledger/internal/storage/pebble"
	"github.com/rzbill/mledger/internal/waiter"
	logpkg "github.com/rzbill/mledger/pkg/log"
)

func main() {
	level, err := logpkg.ParseLevel(os.Getenv("MLEDGER_LOG_LEVEL"))
	if err != nil {
		level = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(level),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:   "ledgerinspect",
		Short: "Inspect mledger logs and cursors",
		Long:  "ledgerinspect opens a mledger data directory directly and reports on ledgers and cursors without a running server.",
	}
	rootCmd.PersistentFlags().String("data-dir", "", "Data directory (defaults to the OS-specific application data directory)")
	rootCmd.PersistentFlags().String("fsync", "batch", "Fsync mode: always|interval|batch|never")

	rootCmd.AddCommand(newInspectCmd(logger))
	rootCmd.AddCommand(newListCursorsCmd())
	rootCmd.AddCommand(newFindNewestCmd())
	rootCmd.AddCommand(newCompactCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openDB(cmd *cobra.Command) (*pebblestore.DB, config.Config, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	fsyncFlag, _ := cmd.Flags().GetString("fsync")

	cfg := config.Default()
	config.FromEnv(&cfg)
	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}
	if fsyncFlag != "" {
		cfg.Storage.Fsync = fsyncFlag
	}

	mode := fsyncModeOf(cfg.Storage.Fsync)
	db, err := pebblestore.Open(pebblestore.Options{DataDir: cfg.Storage.DataDir, Fsync: mode})
	if err != nil {
		return nil, cfg, fmt.Errorf("open data dir %s: %w", cfg.Storage.DataDir, err)
	}
	return db, cfg, nil
}

func fsyncModeOf(s string) pebblestore.FsyncMode {
	switch s {
	case "always":
		return pebblestore.FsyncModeAlways
	case "never":
		return pebblestore.FsyncModeNever
	case "interval", "batch":
		return pebblestore.FsyncModeInterval
	default:
		return pebblestore.FsyncModeInterval
	}
}

func newInspectCmd(logger logpkg.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <log-name>",
		Short: "Print the entry range and size of a log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cfg, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			logName := args[0]
			l, err := pebblelog.Open(db, logName, pebblelog.Options{
				MaxEntriesPerSegment: cfg.Ledger.MaxEntriesPerLedger,
			})
			if err != nil {
				return err
			}

			ctx := context.Background()
			first, err := l.EarliestPosition(ctx)
			if err != nil {
				return err
			}
			last, err := l.LastPosition(ctx)
			if err != nil {
				return err
			}
			total, err := l.TotalEntriesFrom(ctx, position.BeforeFirst(first.Segment))
			if err != nil {
				return err
			}

			fmt.Printf("log:     %s\n", logName)
			fmt.Printf("first:   %s\n", first)
			fmt.Printf("last:    %s\n", last)
			fmt.Printf("entries: %d\n", total)
			return nil
		},
	}
	return cmd
}

func newListCursorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list-cursor <log-name> <cursor-name>",
		Short: "Print a cursor's mark-delete position and backlog size",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cfg, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			logName, cursorName := args[0], args[1]
			l, err := pebblelog.Open(db, logName, pebblelog.Options{
				MaxEntriesPerSegment: cfg.Ledger.MaxEntriesPerLedger,
			})
			if err != nil {
				return err
			}

			store := cursorstore.New(db, ledgerOpenerFor(db, cfg), cursorstore.Options{
				MaxInlineRanges:    cfg.Cursor.MaxUnackedRangesToPersistInMeta,
				ThrottleMarkDelete: time.Duration(cfg.Cursor.ThrottleMarkDelete),
			})

			ctx := context.Background()
			c, err := cursor.Open(ctx, logName, cursorName, l, store, waiter.NewRegistry(), cursor.Options{})
			if err != nil {
				return err
			}
			defer c.Close()

			backlog, err := c.NumberOfEntriesInBacklog(ctx)
			if err != nil {
				return err
			}
			available, err := c.NumberOfEntriesAvailableToRead(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("cursor:            %s\n", cursorName)
			fmt.Printf("mark_delete:       %s\n", c.MarkDeletePosition())
			fmt.Printf("read_pos:          %s\n", c.ReadPosition())
			fmt.Printf("backlog:           %d\n", backlog)
			fmt.Printf("available_to_read: %d\n", available)
			return nil
		},
	}
	return cmd
}

func newFindNewestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find-newest <log-name>",
		Short: "Find the newest entry after --from-segment/--from-entry still matching --expr",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr, _ := cmd.Flags().GetString("expr")
			fromSeg, _ := cmd.Flags().GetUint64("from-segment")
			fromEntry, _ := cmd.Flags().GetInt64("from-entry")

			db, cfg, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			logName := args[0]
			l, err := pebblelog.Open(db, logName, pebblelog.Options{
				MaxEntriesPerSegment: cfg.Ledger.MaxEntriesPerLedger,
			})
			if err != nil {
				return err
			}

			pred, err := findnewest.CompilePredicate(expr)
			if err != nil {
				return fmt.Errorf("compile --expr: %w", err)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			start := position.Position{Segment: fromSeg, Entry: fromEntry}
			total, err := l.TotalEntriesFrom(ctx, start.Next())
			if err != nil {
				return err
			}

			pos, found, err := findnewest.Find(ctx, l, start, total, pred)
			if err != nil {
				return err
			}
			if !found {
				fmt.Println("no matching entry")
				return nil
			}
			fmt.Printf("newest matching entry: %s\n", pos)
			return nil
		},
	}
	cmd.Flags().String("expr", "", "CEL expression evaluated per entry (partition, sequence, ts_ms, size, text, json, headers, now_ms)")
	cmd.Flags().Uint64("from-segment", 0, "Segment of the position to search from")
	cmd.Flags().Int64("from-entry", -1, "Entry of the position to search from (-1 means before the segment's first entry)")
	return cmd
}

func newCompactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compact <log-name>",
		Short: "Compact a log's key range, reclaiming space a trim has left behind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			low := []byte("log/" + args[0] + "/")
			high := append(append([]byte{}, low...), 0xff)
			if err := db.CompactRange(low, high); err != nil {
				return fmt.Errorf("compact: %w", err)
			}
			fmt.Println("compaction complete")
			return nil
		},
	}
	return cmd
}

func ledgerOpenerFor(db *pebblestore.DB, cfg config.Config) cursorstore.LedgerOpener {
	return func(name string) (*pebblelog.Log, error) {
		return pebblelog.Open(db, name, pebblelog.Options{
			MaxEntriesPerSegment: cfg.Cursor.MetadataMaxEntriesPerLedger,
		})
	}
}
