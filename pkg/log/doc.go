// Package log provides mledger's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// Field type for structured context. It is backed by the standard
// library's slog via a bridge handler that routes records through the same
// formatter/output pipeline as calls made directly against a Logger, so
// output from a component that only holds a stdlib *log.Logger (Pebble's
// internal logging, redirected via RedirectStdLog) looks identical to
// output from a component holding a Logger directly.
//
// Quick start:
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.WithComponent("cursorstore").WithField("cursor", name)
//	l.Info("recovered cursor")
//
// # Interop
//
// RedirectStdLog points the standard library's default *log.Logger output
// at a Logger, so packages such as internal/storage/pebble that receive
// diagnostics from Pebble's own internal logging surface them through the
// same structured pipeline as everything else.
package log
