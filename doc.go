// Package procpool runs a fixed-size pool of OS subprocess workers that
// execute registered functions in parallel, handing back future-like
// handles for their results.
//
// # Quick start
//
//	entrypoint.Register("double", func(n int) (int, error) { return n * 2, nil })
//
//	pool, err := procpool.New(4)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.ForceQuitAll()
//
//	w, _ := pool.Worker(0)
//	h, err := procpool.Call[int, int](pool, w, "double", 21)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := h.Result()
//
// # Long-lived vs clone-per-call
//
// By default every worker is a long-lived child spawned once at New and
// reused for every subsequent Call. WithClonePerCall switches to spawning
// a disposable child for each individual call, trading spawn overhead for
// complete isolation between calls on the same worker slot.
//
// # Readiness
//
// Select lets a caller wait on many outstanding handles at once and learn
// which are ready without blocking on any single one, mirroring a
// `select` over channels.
//
// # Closure shipping
//
// Go cannot serialize a function value across a process boundary. Instead
// of shipping a closure, callers register named entry points ahead of
// time via the entrypoint package and Call refers to one by its string
// tag; the child looks it up in its own copy of the same table.
package procpool
