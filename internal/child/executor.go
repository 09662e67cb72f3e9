// Package child implements the job executor (component C4): the loop that
// runs inside a spawned worker process. It reads one request at a time off
// its stdin, resolves the registered entry point, executes the job, and
// writes exactly one response to its stdout.
//
// A long-lived worker's Run loops until its input pipe is closed. A
// clone-per-call worker's Run processes exactly one request (Mode ==
// wire.ModeClonePerCall on that request) and returns so its caller can
// exit the process, leaving the parent controller's address space
// untouched by whatever the job did.
package child

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/procpool/procpool/entrypoint"
	"github.com/procpool/procpool/internal/procdaemon"
	"github.com/procpool/procpool/wire"
)

// Wrapper is the call-wrapper design note (spec §9) rendered as
// process-global state: installed once at child startup, applied around
// every job whose request has UseWrapper set. It cannot cross the process
// boundary as a live closure, so the embedding binary passes it directly
// to Main (or Run); the controller only sets the per-request UseWrapper
// flag. A nil Wrapper means jobs always run unwrapped.
type Wrapper func(entrypoint.Func) entrypoint.Func

// Run executes the child main loop against in/out. params is accepted for
// the worker's identity but is not consulted by the loop itself; the
// wrapper is the one passed in here. It returns nil when the input channel
// closes cleanly (normal shutdown of a long-lived worker) or after the
// single request it processed for a clone-per-call worker.
func Run(in io.Reader, out io.Writer, params procdaemon.WorkerParams, wrapper Wrapper) error {
	for {
		req, err := wire.ReadRequest(in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("child: read request: %w", err)
		}

		resp := execute(req, wrapper)
		if err := wire.WriteResponse(out, resp); err != nil {
			return fmt.Errorf("child: write response: %w", err)
		}

		if req.Mode == wire.ModeClonePerCall {
			return nil
		}
	}
}

func execute(req *wire.Request, wrapper Wrapper) *wire.Response {
	fn, ok := entrypoint.Lookup(req.EntryTag)
	if !ok {
		return &wire.Response{
			OK: false,
			Failure: &wire.Failure{
				Kind:   wire.FailureUser,
				Detail: fmt.Sprintf("child: no entry point registered for %q", req.EntryTag),
			},
		}
	}

	if req.UseWrapper && wrapper != nil {
		fn = wrapper(fn)
	}

	value, err := runRecovered(fn, req.Arg)
	if err != nil {
		return &wire.Response{
			OK: false,
			Failure: &wire.Failure{
				Kind:   wire.FailureUser,
				Detail: err.Error(),
			},
		}
	}

	return &wire.Response{OK: true, Value: value}
}

// runRecovered catches a panicking job at the executor boundary and turns
// it into a failed response rather than letting it crash the child
// (spec §4.3 point 4).
func runRecovered(fn entrypoint.Func, arg []byte) (result []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v\n%s", r, debug.Stack())
		}
	}()
	return fn(arg)
}

// Main is the entry point an embedding binary's main() calls when
// procdaemon.ChildModeEnvVar is set. It reads WorkerParams from the
// environment, runs the executor loop against os.Stdin/os.Stdout, and
// exits the process with a status appropriate to how the loop ended.
func Main(wrapper Wrapper) {
	encoded := os.Getenv(procdaemon.ChildEnvVar)
	params, err := procdaemon.DecodeParams(encoded)
	if err != nil {
		fmt.Fprintln(os.Stderr, "child: decode worker params:", err)
		os.Exit(1)
	}

	if err := Run(os.Stdin, os.Stdout, params, wrapper); err != nil {
		fmt.Fprintln(os.Stderr, "child: executor loop:", err)
		os.Exit(1)
	}

	os.Exit(0)
}
