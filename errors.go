package txn

import "fmt"

// ErrorCode enumerates the error categories the coordinator surfaces.
type ErrorCode int

const (
	// Unknown represents an unspecified error condition.
	Unknown ErrorCode = iota
	// Reentry marks an attempt to enter a transaction that has already been entered.
	Reentry
	// AsymmetricExit marks an exit call whose matching entry token is missing.
	AsymmetricExit
	// Configuration marks a requested isolation level the store does not support.
	Configuration
	// MissingContext marks the absence of an ambient run logger when none was provided.
	MissingContext
	// UnknownKey marks a stored-value lookup with no local value, no parent, and no default.
	UnknownKey
	// Serialization marks a staged value the store could not serialize.
	Serialization
	// HookFailure marks an on-commit or on-rollback hook that returned an error.
	HookFailure
	// CallerFailure marks an error raised by caller code running inside a scope.
	CallerFailure
	// LockAcquisitionFailure marks failure to acquire a store's serializable lock.
	LockAcquisitionFailure
)

func (c ErrorCode) String() string {
	switch c {
	case Reentry:
		return "reentry"
	case AsymmetricExit:
		return "asymmetric-exit"
	case Configuration:
		return "configuration"
	case MissingContext:
		return "missing-context"
	case UnknownKey:
		return "unknown-key"
	case Serialization:
		return "serialization"
	case HookFailure:
		return "hook-failure"
	case CallerFailure:
		return "caller-failure"
	case LockAcquisitionFailure:
		return "lock-acquisition-failure"
	default:
		return "unknown"
	}
}

// Error is a coordinator-specific error carrying a code, the wrapped cause and optional
// user data useful to callers that need to branch on the failure (e.g. the key that
// could not be resolved).
type Error struct {
	Code     ErrorCode
	Err      error
	UserData any
}

// Error implements the error interface.
func (e Error) Error() string {
	return fmt.Errorf("%s: user data: %v, details: %w", e.Code, e.UserData, e.Err).Error()
}

// Unwrap allows errors.Is/errors.As to see through to the wrapped cause.
func (e Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, userData any, err error) Error {
	return Error{Code: code, Err: err, UserData: userData}
}
