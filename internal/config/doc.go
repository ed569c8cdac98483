// Package config provides loading and environment overlay for mledger's
// per-log and per-cursor tunables. It exposes a Default() baseline and
// helpers to overlay a JSON config file and MLEDGER_* environment
// variables.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("/etc/mledger.json"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
package config
