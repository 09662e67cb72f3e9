package procpool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandleResultIsCachedAfterFirstCall(t *testing.T) {
	pool, err := New(1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer pool.ForceQuitAll()

	w, _ := pool.Worker(0)
	h, err := Call[int, int](pool, w, "double", 5)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}

	r1, err1 := h.Result()
	r2, err2 := h.Result()
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v, %v", err1, err2)
	}
	if r1 != r2 {
		t.Fatalf("cached result mismatch: %d != %d", r1, r2)
	}
}

func TestHandleJobReturnsOriginalArgument(t *testing.T) {
	pool, err := New(1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer pool.ForceQuitAll()

	w, _ := pool.Worker(0)
	h, err := Call[int, int](pool, w, "double", 17)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if h.Job() != 17 {
		t.Fatalf("Job() = %d, want 17", h.Job())
	}
	if _, err := h.Result(); err != nil {
		t.Fatalf("Result: %v", err)
	}
}

func TestHandleCancelForceQuitsWorker(t *testing.T) {
	pool, err := New(1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer pool.ForceQuitAll()

	w, _ := pool.Worker(0)
	h, err := Call[int, int](pool, w, "sleep_ms", 5000)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}

	h.Cancel()
	if !h.Cancelled() {
		t.Fatal("expected Cancelled to report true after Cancel")
	}
	if !w.IsForceQuit() {
		t.Fatal("worker should be force-quit after its handle is cancelled")
	}

	// Cancel must be safe to call more than once.
	h.Cancel()
}

func TestHandleWithCallIDRoundTrips(t *testing.T) {
	pool, err := New(1)
	require.NoError(t, err)
	defer pool.ForceQuitAll()

	w, ok := pool.Worker(0)
	require.True(t, ok)

	h, err := Call[int, int](pool, w, "double", 3, WithCallID(99))
	require.NoError(t, err)
	require.Equal(t, int64(99), h.CallID())

	result, err := h.Result()
	require.NoError(t, err)
	require.Equal(t, 6, result)
}
