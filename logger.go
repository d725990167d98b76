package txn

import (
	"log/slog"
	"os"
)

var logLevel = new(slog.LevelVar)

// ConfigureLogging sets up the package's default logger with a TextHandler and
// configures the log level based on the TXN_LOG_LEVEL environment variable. It
// defaults to Info when unset.
//
// Host applications that want the coordinator's default logging behavior should
// call this at startup; it is never called implicitly.
func ConfigureLogging() {
	logLevel.Set(slog.LevelInfo)

	switch os.Getenv("TXN_LOG_LEVEL") {
	case "DEBUG":
		logLevel.Set(slog.LevelDebug)
	case "WARN":
		logLevel.Set(slog.LevelWarn)
	case "ERROR":
		logLevel.Set(slog.LevelError)
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// SetLogLevel overrides the level configured by ConfigureLogging.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}

// moduleLogger returns the package's fallback logger, scoped with a component tag so
// its lines are distinguishable from the host application's own logging.
func moduleLogger() *slog.Logger {
	return slog.Default().With("component", "transaction")
}

// resolveLogger picks the logger a scope entry point should use for a transaction:
// the caller-supplied logger, else the ambient run logger, else the module logger.
func resolveLogger(provided *slog.Logger, runLogger func() (*slog.Logger, bool)) *slog.Logger {
	if provided != nil {
		return provided
	}
	if runLogger != nil {
		if l, ok := runLogger(); ok && l != nil {
			return l
		}
	}
	return moduleLogger()
}
