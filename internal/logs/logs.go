// Package logs is the central logging backend for lattice. Every
// package registers its own subsystem logger here, mirroring kaspad's
// per-package "var log = logs.Logger(...)" convention: each component
// of the core (dagstore, ghostdag, tipselect, chainselect, vrf) gets an
// independently-levelled, named logger sharing one backend.
package logs

import (
	"os"

	"github.com/btcsuite/btclog"
)

var backend = btclog.NewBackend(os.Stdout)

var subsystems = make(map[string]btclog.Logger)

var defaultLevel = btclog.LevelInfo

// Logger returns (creating if necessary) the named subsystem logger.
// Subsystem names are short, all-caps tags in the kaspad tradition
// (e.g. "DAGS", "GSTD", "TIPS", "CHSL", "VRF ").
func Logger(subsystem string) btclog.Logger {
	if l, ok := subsystems[subsystem]; ok {
		return l
	}
	l := backend.Logger(subsystem)
	l.SetLevel(defaultLevel)
	subsystems[subsystem] = l
	return l
}

// SetLevel sets the logging level for every registered subsystem, and
// for subsystems registered afterwards. Used by cmd/latticed to apply
// a single --loglevel flag across the whole process.
func SetLevel(level btclog.Level) {
	for _, l := range subsystems {
		l.SetLevel(level)
	}
	defaultLevel = level
}

// ParseLevel parses a textual log level (trace/debug/info/warn/error/
// critical/off), defaulting to info on an unrecognized string.
func ParseLevel(s string) btclog.Level {
	switch s {
	case "trace":
		return btclog.LevelTrace
	case "debug":
		return btclog.LevelDebug
	case "info":
		return btclog.LevelInfo
	case "warn":
		return btclog.LevelWarn
	case "error":
		return btclog.LevelError
	case "critical":
		return btclog.LevelCritical
	case "off":
		return btclog.LevelOff
	default:
		return btclog.LevelInfo
	}
}
