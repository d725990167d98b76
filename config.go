package txn

import (
	"os"
	"strconv"
	"time"
)

// LoadDefaults reads the package's tunables from the environment, falling back to
// defaultDefaults for anything unset or malformed. This is the library's equivalent of
// the teacher's JSON-file Configuration: a host process has no JSON config file of its
// own to hand this package, so environment variables are the zero-ceremony default,
// consistent with the teacher's own SOP_LOG_LEVEL convention in logger.go.
func LoadDefaults() Defaults {
	d := defaultDefaults

	switch os.Getenv("TXN_DEFAULT_COMMIT_MODE") {
	case "EAGER":
		d.CommitMode = Eager
	case "LAZY":
		d.CommitMode = Lazy
	case "OFF":
		d.CommitMode = Off
	}

	switch os.Getenv("TXN_DEFAULT_ISOLATION_LEVEL") {
	case "READ_COMMITTED":
		d.IsolationLevel = ReadCommitted
	case "SERIALIZABLE":
		d.IsolationLevel = Serializable
	}

	if v := os.Getenv("TXN_LOCK_TTL"); v != "" {
		if dur, err := time.ParseDuration(v); err == nil && dur > 0 {
			d.LockTTL = dur
		}
	}

	if v := os.Getenv("TXN_LOCK_RETRIES"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			d.LockRetries = n
		}
	}

	return d
}
