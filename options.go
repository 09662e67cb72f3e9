package procpool

import (
	"os"

	"go.uber.org/zap"

	"github.com/procpool/procpool/internal/procdaemon"
)

// config mirrors the teacher's Config: a plain struct built up by
// functional options.
type config struct {
	longLived    bool
	useWrapper   bool
	entryState   procdaemon.EntryState
	controllerFD *os.File
	logger       *zap.Logger
}

func defaultConfig() config {
	return config{
		longLived: true,
		logger:    zap.NewNop(),
	}
}

// Option configures a Pool at construction time.
type Option func(*config)

// WithClonePerCall switches the pool to clone-per-call mode: every job
// runs in a freshly spawned, throwaway child instead of a pre-spawned
// long-lived one (spec §3, §4.6).
func WithClonePerCall() Option {
	return func(c *config) { c.longLived = false }
}

// WithCallWrapper marks every call as passing through the process-global
// wrapper installed in the child at spawn time (spec §9 Design Notes on
// the call wrapper). The wrapper implementation itself lives with the
// embedding binary's internal/child.Main call, not here — the pool only
// needs to know whether to set the wire-level flag.
func WithCallWrapper() Option {
	return func(c *config) { c.useWrapper = true }
}

// WithEntryState sets the opaque EntryState relayed to every spawned
// child (spec §3): application state, GC control blob, and shared-heap
// handle. The core never inspects the contents.
func WithEntryState(state procdaemon.EntryState) Option {
	return func(c *config) { c.entryState = state }
}

// WithControllerFD passes an open file the child inherits at fd 3 for
// liveness observation (spec §3, WorkerParams.controller_fd). The caller
// retains ownership and must keep it open for the pool's lifetime.
func WithControllerFD(f *os.File) Option {
	return func(c *config) { c.controllerFD = f }
}

// WithLogger sets the *zap.Logger the pool uses for lifecycle events
// (spawn, dispatch, failed send, force-quit). Defaults to a no-op logger, matching the
// teacher's default-quiet PanicHandler behavior.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}
