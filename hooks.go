package txn

import (
	"context"
	"fmt"
)

// HookFunc is the signature a commit or rollback callback must satisfy.
type HookFunc func(ctx context.Context, tx *Transaction) error

// Hook pairs a callback with the metadata the coordinator needs to run and log it.
// Cooperative controls, when a Pool is attached to the context (WithPool), whether the
// callback runs inline (true) or is offloaded to that pool (false, the default) so a
// blocking hook body cannot starve the scheduler. Quiet suppresses the around-hook log lines,
// the Go equivalent of the source's undocumented `log_on_run` attribute.
type Hook struct {
	Name        string
	Fn          HookFunc
	Cooperative bool
	Quiet       bool
}

// NewHook builds a Hook with a name used only for logging.
func NewHook(name string, fn HookFunc) Hook {
	return Hook{Name: name, Fn: fn}
}

func (h Hook) hookName() string {
	if h.Name != "" {
		return h.Name
	}
	return "anonymous"
}

// runHook executes a hook, logging its start/success/failure unless suppressed, and
// wraps any returned error with the kind ("commit" or "rollback") for the caller. A
// hook not declared Cooperative is offloaded to the pool attached to ctx, if any, so a
// blocking hook body cannot starve a cooperative scope's scheduler; with no pool
// attached to ctx it always runs inline, whichever scope entry point was used.
func (t *Transaction) runHook(ctx context.Context, h Hook, kind string) error {
	name := h.hookName()
	if !h.Quiet {
		t.logger.Info(fmt.Sprintf("running %s hook %q", kind, name))
	}
	var err error
	if h.Cooperative {
		err = h.Fn(ctx, t)
	} else {
		err = runOffloaded(ctx, func() error { return h.Fn(ctx, t) })
	}
	if err != nil {
		if !h.Quiet {
			t.logger.Error(fmt.Sprintf("%s hook %q failed", kind, name), "error", err)
		}
		return newError(HookFailure, name, err)
	}
	if !h.Quiet {
		t.logger.Info(fmt.Sprintf("%s hook %q finished running successfully", kind, name))
	}
	return nil
}
