// Package tlog is cryptvol's leveled logger, in the shape of gocryptfs's
// internal/tlog: a handful of package-level functions (Debug, Info, Warn,
// Fatal) rather than a logger object threaded through every call, backed
// here by zerolog instead of plain os.Stderr writes.
package tlog

import (
	"os"

	"github.com/rs/zerolog"
)

// Log is the process-wide logger. Switching its level or output (e.g. to
// JSON for a supervised deployment) only touches this package.
var Log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()

// SetDebug toggles debug-level output, mirroring gocryptfs's "-d" flag.
func SetDebug(on bool) {
	if on {
		Log = Log.Level(zerolog.DebugLevel)
		return
	}
	Log = Log.Level(zerolog.InfoLevel)
}

// SetQuiet suppresses everything below warnings, mirroring gocryptfs's "-q".
func SetQuiet(on bool) {
	if on {
		Log = Log.Level(zerolog.WarnLevel)
	}
}

func Debug(format string, args ...interface{}) { Log.Debug().Msgf(format, args...) }
func Info(format string, args ...interface{})  { Log.Info().Msgf(format, args...) }
func Warn(format string, args ...interface{})  { Log.Warn().Msgf(format, args...) }

// Fatal logs at error level and exits 1, mirroring gocryptfs's tlog.Fatal
// (which always terminates the process — never call it from a library path
// that might be embedded, only from cmd/cryptvolctl).
func Fatal(format string, args ...interface{}) {
	Log.Error().Msgf(format, args...)
	os.Exit(1)
}
