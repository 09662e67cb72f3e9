package procpool

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/procpool/procpool/entrypoint"
	"github.com/procpool/procpool/internal/group"
	"github.com/procpool/procpool/internal/procdaemon"
	"github.com/procpool/procpool/wire"
)

// Pool is the controller (component C7): a fixed-size array of Worker
// records and the subprocesses backing them. Every mutating method is
// safe to call from multiple goroutines; the worker array itself never
// grows or shrinks after New returns (spec §1 Non-goals: no dynamic
// resizing).
type Pool struct {
	cfg     config
	workers []*Worker

	nextCallID atomic.Int64
	shutdown   atomic.Bool
}

// New allocates numWorkers worker records. Unless WithClonePerCall was
// given, it spawns a long-lived child for every one of them immediately
// (spec §4.2 make); clone-per-call records stay dormant until their first
// Call. If any spawn fails, every worker spawned so far is closed and New
// returns the error — a Pool is either fully up or not created at all.
func New(numWorkers int, opts ...Option) (*Pool, error) {
	if numWorkers <= 0 {
		return nil, &Error{msg: "numWorkers must be positive"}
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Pool{cfg: cfg, workers: make([]*Worker, numWorkers)}

	for i := 0; i < numWorkers; i++ {
		w := &Worker{id: i, longLived: cfg.longLived}
		p.workers[i] = w

		if !cfg.longLived {
			continue
		}

		proc, err := procdaemon.Spawn(procdaemon.WorkerParams{
			LongLived:  true,
			WorkerID:   i,
			EntryState: cfg.entryState,
		}, cfg.controllerFD)
		if err != nil {
			p.closeSpawned(i)
			return nil, fmt.Errorf("procpool: spawn worker %d: %w", i, err)
		}
		w.process = proc
		cfg.logger.Info("spawned long-lived worker", zap.Int("worker_id", i), zap.Int("pid", proc.PID))
	}

	return p, nil
}

// closeSpawned tears down workers [0, upTo) after a failed New.
func (p *Pool) closeSpawned(upTo int) {
	for i := 0; i < upTo; i++ {
		if p.workers[i].process != nil {
			_ = p.workers[i].process.Close()
		}
	}
}

// NumWorkers returns the fixed size of the pool.
func (p *Pool) NumWorkers() int { return len(p.workers) }

// Worker returns the worker record at id, or false if id is out of range.
func (p *Pool) Worker(id int) (*Worker, bool) { return p.worker(id) }

func (p *Pool) worker(id int) (*Worker, bool) {
	if id < 0 || id >= len(p.workers) {
		return nil, false
	}
	return p.workers[id], true
}

// HandleUnsafe returns the type-erased metadata of worker id's in-flight
// call, if any (spec §9 Design Notes, the Open Question on exposing a
// handle without its generic parameters).
func (p *Pool) HandleUnsafe(workerID int) (HandleMeta, bool) {
	w, ok := p.worker(workerID)
	if !ok {
		return nil, false
	}
	return w.getHandleUnsafe()
}

// Spawn ensures w has a live process, spawning one if it doesn't already
// (spec §4.2 spawn). It is idempotent: calling it on a worker that already
// has a process just returns that process. Long-lived workers normally
// never need this — New spawns them — but it gives a clone-per-call
// worker record a way to be pre-warmed ahead of its first Call.
func (p *Pool) Spawn(w *Worker) (*procdaemon.Process, error) {
	if w.IsForceQuit() {
		return nil, ErrWorkerForceQuit
	}

	w.mu.Lock()
	if w.process != nil {
		proc := w.process
		w.mu.Unlock()
		return proc, nil
	}
	w.mu.Unlock()

	proc, err := procdaemon.Spawn(procdaemon.WorkerParams{
		LongLived:  w.longLived,
		WorkerID:   w.id,
		EntryState: p.cfg.entryState,
	}, p.cfg.controllerFD)
	if err != nil {
		return nil, fmt.Errorf("procpool: spawn worker %d: %w", w.id, err)
	}

	w.mu.Lock()
	w.process = proc
	w.mu.Unlock()
	return proc, nil
}

// Close severs channel and, if it is still w's tracked process, clears
// that tracking (spec §4.2 close). Idempotent: a second Close with the
// same channel observes it already untracked and returns nil without
// touching the fd twice.
func (p *Pool) Close(w *Worker, channel *procdaemon.Process) error {
	if channel == nil {
		return nil
	}

	w.mu.Lock()
	if w.process != channel {
		w.mu.Unlock()
		return nil
	}
	w.process = nil
	w.mu.Unlock()

	return channel.Close()
}

// CallOption configures a single Call.
type CallOption func(*callConfig)

type callConfig struct {
	callID *int64
}

// WithCallID supplies an explicit correlation tag instead of letting the
// pool assign one (spec §4.6: call_id is caller-optional).
func WithCallID(id int64) CallOption {
	return func(c *callConfig) { c.callID = &id }
}

// Call dispatches arg to worker w under the registered entry point
// entryTag and returns a Handle future for its result (spec §4.6 call).
// It is a package-level generic function rather than a Pool method
// because Go does not allow a method to carry its own type parameters.
//
// Preconditions enforced here mirror spec §4.2: the worker must be
// neither busy nor force-quit, or Call fails without touching the
// channel. For a clone-per-call worker, a fresh child is spawned as part
// of this call and torn down once its single response has been read.
func Call[Arg, Result any](p *Pool, w *Worker, entryTag string, arg Arg, opts ...CallOption) (*Handle[Arg, Result], error) {
	if p.shutdown.Load() {
		return nil, &SendJobError{Cause: &SendFailureCause{AlreadyExited: true}}
	}
	if entryTag == "" {
		return nil, ErrNilJob
	}

	cc := callConfig{}
	for _, opt := range opts {
		opt(&cc)
	}
	callID := p.nextCallID.Add(1)
	if cc.callID != nil {
		callID = *cc.callID
	}

	if err := w.markBusy(); err != nil {
		return nil, err
	}

	process := w.process
	if !w.longLived {
		spawned, err := procdaemon.Spawn(procdaemon.WorkerParams{
			LongLived:  false,
			WorkerID:   w.id,
			EntryState: p.cfg.entryState,
		}, p.cfg.controllerFD)
		if err != nil {
			w.markForceQuit()
			return nil, &SendJobError{Cause: &SendFailureCause{Inner: err}}
		}
		process = spawned
		w.mu.Lock()
		w.process = process
		w.mu.Unlock()
	}

	argBytes, err := entrypoint.EncodeArg(arg)
	if err != nil {
		w.markForceQuit()
		return nil, fmt.Errorf("procpool: encode argument: %w", err)
	}

	mode := wire.ModeImmediate
	if !w.longLived {
		mode = wire.ModeClonePerCall
	}

	req := &wire.Request{
		EntryTag:   entryTag,
		Arg:        argBytes,
		UseWrapper: p.cfg.useWrapper,
		Mode:       mode,
	}

	traceID := uuid.NewString()

	if err := wire.WriteRequest(process.Channel, req); err != nil {
		w.markForceQuit()
		status := process.Wait()
		_ = process.Close()
		p.cfg.logger.Warn("failed to send job",
			zap.Int("worker_id", w.id), zap.String("trace_id", traceID), zap.Error(err))
		return nil, &SendJobError{Cause: &SendFailureCause{
			AlreadyExited: true,
			ExitStatus:    status.Code,
			Inner:         err,
		}}
	}

	h := &Handle[Arg, Result]{
		pool:     p,
		workerID: w.id,
		callID:   callID,
		jobArg:   arg,
		process:  process,
		mode:     mode,
	}
	w.setHandle(h)

	p.cfg.logger.Debug("dispatched call",
		zap.Int("worker_id", w.id), zap.Int64("call_id", callID),
		zap.String("trace_id", traceID), zap.String("entry_tag", entryTag))

	return h, nil
}

// ForceQuitAll force-quits every worker in the pool, signals its child to
// terminate, and severs its channel (spec §4.2 force_quit_all, §5: every
// channel, process, and busy-mark is released on all exit paths). It is
// idempotent and safe to call more than once: a worker already force-quit
// contributes nothing to the returned count or the aggregated error. Fan-out
// runs through internal/group so one stuck worker's Close never blocks the
// others.
func (p *Pool) ForceQuitAll() (quit int, err error) {
	p.shutdown.Store(true)

	var transitioned atomic.Int64
	g := group.New(context.Background())

	for _, w := range p.workers {
		w := w
		g.Go(func(ctx context.Context) error {
			if w.IsForceQuit() {
				return nil
			}
			w.markForceQuit()

			w.mu.Lock()
			proc := w.process
			w.process = nil
			w.mu.Unlock()

			if proc != nil {
				_ = proc.Kill()
				if cerr := proc.Close(); cerr != nil {
					return fmt.Errorf("worker %d: %w", w.id, cerr)
				}
			}
			transitioned.Add(1)
			return nil
		})
	}

	waitErr := g.Wait()
	quit = int(transitioned.Load())

	p.cfg.logger.Info("force quit all", zap.Int("workers_transitioned", quit))
	return quit, waitErr
}

// PoolMetrics is a point-in-time snapshot of pool health, mirroring the
// teacher's Pool.Stats() — generalized from queue depth to subprocess
// worker state (spec is silent on an introspection API; additive per
// SPEC_FULL's supplemented features).
type PoolMetrics struct {
	Total     int
	Busy      int
	ForceQuit int
	LongLived int
}

// Metrics returns a PoolMetrics snapshot. It takes a brief lock on every
// worker in turn and is safe to call concurrently with Call/Cancel.
func (p *Pool) Metrics() PoolMetrics {
	m := PoolMetrics{Total: len(p.workers)}
	for _, w := range p.workers {
		if w.IsBusy() {
			m.Busy++
		}
		if w.IsForceQuit() {
			m.ForceQuit++
		}
		if w.LongLived() {
			m.LongLived++
		}
	}
	return m
}
