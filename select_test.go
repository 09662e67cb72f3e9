package procpool

import (
	"testing"
	"time"
)

func TestSelectPartitionsReadyAndWaiting(t *testing.T) {
	pool, err := New(2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer pool.ForceQuitAll()

	w0, _ := pool.Worker(0)
	w1, _ := pool.Worker(1)

	hFast, err := Call[int, int](pool, w0, "double", 3)
	if err != nil {
		t.Fatalf("fast Call: %v", err)
	}
	hSlow, err := Call[int, int](pool, w1, "sleep_ms", 300)
	if err != nil {
		t.Fatalf("slow Call: %v", err)
	}

	// Give the fast worker time to finish and write its response before we
	// poll, without touching either handle's channel directly.
	time.Sleep(100 * time.Millisecond)

	result, err := Select([]Selectable{hFast, hSlow}, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}

	if len(result.Readys) != 1 || result.Readys[0] != Selectable(hFast) {
		t.Fatalf("Readys = %v, want just hFast", result.Readys)
	}
	if len(result.Waiters) != 1 || result.Waiters[0] != Selectable(hSlow) {
		t.Fatalf("Waiters = %v, want just hSlow", result.Waiters)
	}

	if _, err := hFast.Result(); err != nil {
		t.Fatalf("hFast.Result: %v", err)
	}
	if _, err := hSlow.Result(); err != nil {
		t.Fatalf("hSlow.Result: %v", err)
	}
}

func TestSelectTreatsCancelledHandlesAsReady(t *testing.T) {
	pool, err := New(1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer pool.ForceQuitAll()

	w, _ := pool.Worker(0)
	h, err := Call[int, int](pool, w, "sleep_ms", 2000)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	h.Cancel()

	result, err := Select([]Selectable{h}, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(result.Readys) != 1 || len(result.Waiters) != 0 {
		t.Fatalf("expected a cancelled handle to be immediately ready, got %+v", result)
	}
}
