// Package group provides bounded, structured fan-out for operations that
// must run against every worker concurrently (force-quit, bulk close) and
// report a single aggregated error.
//
// It is a direct descendant of the teacher's errgroup-style Group: same
// goroutine-per-job plus panic recovery shape, retargeted from arbitrary
// caller functions to the narrow job the pool controller actually needs —
// running a cleanup action against every worker record without one slow or
// failing worker blocking the rest.
package group

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Group runs a fixed batch of jobs concurrently and collects every error
// (it never fails fast: a stuck or erroring worker must not stop the pool
// from closing every other worker during force-quit).
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	errs *multierror.Error
}

// New creates a Group bound to ctx. Cancelling ctx is advisory only: jobs
// already running are not interrupted, but Go checks ctx before starting a
// new one.
func New(ctx context.Context) *Group {
	ctx, cancel := context.WithCancel(ctx)
	return &Group{ctx: ctx, cancel: cancel}
}

// Go runs fn in its own goroutine, recovering panics and collecting errors.
func (g *Group) Go(fn func(context.Context) error) {
	select {
	case <-g.ctx.Done():
		return
	default:
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				g.addErr(&PanicError{Value: r, Stack: string(debug.Stack())})
			}
		}()

		if err := fn(g.ctx); err != nil {
			g.addErr(err)
		}
	}()
}

func (g *Group) addErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.errs = multierror.Append(g.errs, err)
}

// Wait blocks until every job started with Go has returned and reports the
// aggregated error, or nil if every job succeeded.
func (g *Group) Wait() error {
	g.wg.Wait()
	g.cancel()

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.errs == nil {
		return nil
	}
	return g.errs.ErrorOrNil()
}

// PanicError wraps a recovered panic from a job run through Group.Go.
type PanicError struct {
	Value any
	Stack string
}

func (p *PanicError) Error() string {
	return "group: job panicked: " + errString(p.Value)
}

func errString(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return "non-error panic value"
}
