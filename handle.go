package procpool

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/procpool/procpool/entrypoint"
	"github.com/procpool/procpool/internal/procdaemon"
	"github.com/procpool/procpool/wire"
)

// resultState tracks Handle.resultSlot's lazy-fill lifecycle (spec §3):
// it starts absent and transitions at most once, forward only.
type resultState int32

const (
	resultAbsent resultState = iota
	resultReady
	resultFailed
)

// Handle is a future bound to one outstanding call on a specific worker
// (component C5). It is single-consumer: Result may be called from many
// goroutines, but only the first caller actually reads the wire; everyone
// else observes the cached outcome (spec §4.4).
type Handle[Arg, Result any] struct {
	pool     *Pool
	workerID int
	callID   int64
	jobArg   Arg
	process  *procdaemon.Process
	mode     wire.Mode

	mu        sync.Mutex
	once      sync.Once
	state     resultState
	value     Result
	failErr   error
	cancelled atomic.Bool
}

// CallID returns the caller-supplied correlation tag verbatim (spec §4.4,
// round-trip law: the call_id passed to Call comes back unchanged here).
func (h *Handle[Arg, Result]) CallID() int64 { return h.callID }

// Job returns the original argument, retained so a scheduler can requeue
// on failure (spec §3).
func (h *Handle[Arg, Result]) Job() Arg { return h.jobArg }

// WorkerID returns the id of the worker this call is pinned to. The
// handle stores the id rather than a strong reference to the worker,
// breaking the worker↔handle cycle described in spec §9; use Pool.Worker
// to resolve it back to the live record.
func (h *Handle[Arg, Result]) WorkerID() int { return h.workerID }

// Cancelled reports whether Cancel has been called on this handle.
func (h *Handle[Arg, Result]) Cancelled() bool { return h.cancelled.Load() }

// Result blocks until the call's outcome is known. On success it returns
// the decoded value and frees the worker. On failure — child death or an
// explicit failed response — it returns a *WorkerFailure identifying the
// PID and failure kind, and marks the worker force-quit. Once the outcome
// is known, further calls return the cached result without touching the
// channel again (spec §4.4, invariant 2 of §8).
func (h *Handle[Arg, Result]) Result() (Result, error) {
	h.once.Do(h.resolve)

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.value, h.failErr
}

func (h *Handle[Arg, Result]) resolve() {
	worker, ok := h.pool.worker(h.workerID)
	if !ok {
		h.fail(&WorkerFailure{Kind: FailureUser, Inner: errors.New("worker no longer tracked by pool")})
		return
	}

	resp, err := wire.ReadResponse(h.process.Channel)
	if err != nil {
		failure := h.classifyChannelError(worker)
		h.fail(failure)
		worker.markForceQuit()
		_ = h.process.Close()
		return
	}

	if !resp.OK {
		h.fail(&WorkerFailure{
			PID:   h.process.PID,
			Kind:  mapFailureKind(resp.Failure.Kind),
			Inner: errors.New(resp.Failure.Detail),
		})
		worker.markForceQuit()
		_ = h.process.Close()
		return
	}

	value, err := entrypoint.DecodeResult[Result](resp.Value)
	if err != nil {
		h.fail(&WorkerFailure{PID: h.process.PID, Kind: FailureUser, Inner: err})
		worker.markForceQuit()
		return
	}

	h.mu.Lock()
	h.value = value
	h.state = resultReady
	h.mu.Unlock()

	worker.markFree()
	if !worker.longLived {
		_ = h.process.Close()
	}
}

func (h *Handle[Arg, Result]) classifyChannelError(worker *Worker) *WorkerFailure {
	status := h.process.Wait()

	if status.OOMKilled {
		return &WorkerFailure{PID: h.process.PID, Kind: FailureOOMed}
	}
	if !status.Exited {
		return &WorkerFailure{PID: h.process.PID, Kind: FailureSignaled, Signal: int(status.Signal)}
	}
	return &WorkerFailure{PID: h.process.PID, Kind: FailureExited, ExitCode: status.Code}
}

func (h *Handle[Arg, Result]) fail(err error) {
	h.mu.Lock()
	h.failErr = err
	h.state = resultFailed
	h.mu.Unlock()
}

// Cancel marks the handle cancelled and severs its channel so any
// in-flight Result call returns promptly rather than blocking on a slow
// job (spec §4.6 cancel, §5 cancellation semantics). It is best-effort: a
// child mid-computation may still run to completion, but its result will
// never reach the caller.
func (h *Handle[Arg, Result]) Cancel() {
	if !h.cancelled.CompareAndSwap(false, true) {
		return
	}

	worker, ok := h.pool.worker(h.workerID)
	if ok {
		worker.markForceQuit()
	}

	_ = h.process.Kill()
	_ = h.process.Close()
}

// pollFD exposes the underlying channel's read descriptor for the
// readiness multiplexer (component C6). It never hands back anything
// that would let a caller read bytes directly — only the fd number to
// poll.
func (h *Handle[Arg, Result]) pollFD() (uintptr, bool) {
	if h.cancelled.Load() {
		return 0, false
	}
	if w, ok := h.pool.worker(h.workerID); ok && w.IsForceQuit() {
		return 0, false
	}
	return h.process.Channel.Fd(), true
}

func mapFailureKind(k wire.FailureKind) FailureKind {
	if k == wire.FailureOOM {
		return FailureOOMed
	}
	return FailureUser
}

var _ io.Closer = (*procdaemon.Process)(nil)
