package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestSnapshotUpdatesGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.Snapshot(Snapshot{Busy: 2, Idle: 3, ForceQuit: 1})

	if got := gaugeValue(t, c.WorkersBusy); got != 2 {
		t.Fatalf("WorkersBusy = %v, want 2", got)
	}
	if got := gaugeValue(t, c.WorkersIdle); got != 3 {
		t.Fatalf("WorkersIdle = %v, want 3", got)
	}
	if got := gaugeValue(t, c.WorkersForceQuit); got != 1 {
		t.Fatalf("WorkersForceQuit = %v, want 1", got)
	}
}

func TestObserveLatencyRecordsSample(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveLatency(time.Now().Add(-10 * time.Millisecond))

	var m dto.Metric
	if err := c.CallLatency.(prometheus.Metric).Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if m.Histogram.GetSampleCount() != 1 {
		t.Fatalf("expected 1 sample, got %d", m.Histogram.GetSampleCount())
	}
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return m.Gauge.GetValue()
}
