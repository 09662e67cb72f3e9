package procpool

import (
	"sync"

	"github.com/procpool/procpool/internal/procdaemon"
)

// Worker is the in-controller bookkeeping record for one subprocess
// (component C3). It is exclusively owned by the Pool that created it;
// callers outside this package observe it only through the pure queries
// below plus the type-erased handle accessor (spec §4.2, §9).
//
// The teacher's Worker was a goroutine wrapper around two lock-free task
// queues. This Worker keeps the same narrow role — id, busy/free, current
// job — but nothing it owns is a goroutine: the actual parallelism lives
// in the subprocess that process holds a channel to.
type Worker struct {
	id        int
	longLived bool

	mu        sync.Mutex
	busy      bool
	forceQuit bool
	current   HandleMeta          // type-erased, metadata-only (spec §9)
	process   *procdaemon.Process // long-lived child, or the most recent clone-per-call child
}

// ID returns the worker's unique, pool-scoped identifier. Pure query.
func (w *Worker) ID() int {
	return w.id
}

// LongLived reports whether this worker services many jobs sequentially
// (true) or is cloned fresh for every call (false).
func (w *Worker) LongLived() bool {
	return w.longLived
}

// IsBusy is a pure query on the worker's current state.
func (w *Worker) IsBusy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.busy
}

// IsForceQuit is a pure query; true is terminal.
func (w *Worker) IsForceQuit() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.forceQuit
}

// markBusy transitions idle -> busy. Precondition: ¬busy ∧ ¬force_quit.
// Violating ¬busy is an assertion-class bug (spec §4.2) and never a
// runtime condition worth retrying on.
func (w *Worker) markBusy() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.forceQuit {
		return &SendJobError{Cause: &SendFailureCause{AlreadyExited: true}}
	}
	if w.busy {
		return ErrWorkerBusy
	}
	w.busy = true
	return nil
}

// markFree transitions busy -> idle. Precondition: busy.
func (w *Worker) markFree() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.busy = false
	w.current = nil
}

// markForceQuit flips the terminal bit. Idempotent: calling it more than
// once (e.g. from both a failed send and a later cancel) is a no-op past
// the first call.
func (w *Worker) markForceQuit() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.forceQuit = true
	w.busy = false
}

// setHandle records the outstanding handle for this worker. Internal to
// the pool controller — callers reach a handle's metadata only through
// getHandleUnsafe.
func (w *Worker) setHandle(h HandleMeta) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.current = h
}

// getHandleUnsafe returns the worker's current handle with its job/result
// types erased. This is a deliberate escape hatch (spec §9 Design Notes):
// a higher-level scheduler may need to inspect an in-flight call without
// knowing its generic parameters, for bookkeeping or cancellation. Per the
// Open Question in §9, only metadata is exposed here — CallID, WorkerID,
// and Cancelled — never the result channel, so the single-consumer
// discipline on the handle's result is never at risk from this accessor.
func (w *Worker) getHandleUnsafe() (HandleMeta, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return nil, false
	}
	return w.current, true
}

// HandleMeta is the type-erased, read-only view of an in-flight handle
// exposed by Worker.getHandleUnsafe / Pool.HandleUnsafe. See the Open
// Question discussion in spec §9: this interface intentionally does not
// expose anything that would let a caller read the handle's result,
// preserving single-consumer semantics.
type HandleMeta interface {
	CallID() int64
	WorkerID() int
	Cancelled() bool
}
