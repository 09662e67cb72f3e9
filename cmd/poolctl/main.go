// Command poolctl is a small demonstration harness for procpool: it loads
// a YAML config, stands up a pool, dispatches one call per worker against
// a registered entry point, waits for every result, and reports metrics.
//
// Built from the same binary that runs the workers themselves — procpool
// re-execs the running executable in child mode (spec §1), so poolctl
// checks procdaemon.ChildModeEnvVar first thing in main, exactly as the
// doc comments on procdaemon.ChildModeEnvVar and internal/child.Main
// instruct any embedding binary to do.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/procpool/procpool"
	"github.com/procpool/procpool/config"
	"github.com/procpool/procpool/entrypoint"
	"github.com/procpool/procpool/internal/child"
	"github.com/procpool/procpool/internal/procdaemon"
	"github.com/procpool/procpool/metrics"
)

func init() {
	entrypoint.Register("square", func(n int) (int, error) {
		return n * n, nil
	})
}

func main() {
	if os.Getenv(procdaemon.ChildModeEnvVar) == "1" {
		child.Main(nil)
		return
	}

	var configPath string
	flag.StringVar(&configPath, "config", "", "path to a pool.yaml config file")
	flag.Parse()

	cfg := config.DefaultPoolConfig()
	if configPath != "" {
		if err := config.LoadYAML(configPath, &cfg); err != nil {
			fmt.Fprintln(os.Stderr, "poolctl: load config:", err)
			os.Exit(1)
		}
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "poolctl: invalid config:", err)
		os.Exit(1)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "poolctl: create logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	collectors := metrics.New(prometheus.DefaultRegisterer)

	opts := []procpool.Option{procpool.WithLogger(logger)}
	if !cfg.LongLived {
		opts = append(opts, procpool.WithClonePerCall())
	}
	if cfg.UseCallWrapper {
		opts = append(opts, procpool.WithCallWrapper())
	}

	pool, err := procpool.New(cfg.NumWorkers, opts...)
	if err != nil {
		logger.Fatal("create pool", zap.Error(err))
	}

	type dispatched struct {
		handle *procpool.Handle[int, int]
		start  time.Time
	}

	var calls []dispatched
	for i := 0; i < cfg.NumWorkers; i++ {
		w, ok := pool.Worker(i)
		if !ok {
			continue
		}
		start := time.Now()
		h, err := procpool.Call[int, int](pool, w, "square", i)
		if err != nil {
			logger.Error("call failed", zap.Int("worker_id", i), zap.Error(err))
			continue
		}
		calls = append(calls, dispatched{handle: h, start: start})
	}

	for _, c := range calls {
		result, err := c.handle.Result()
		collectors.ObserveLatency(c.start)
		if err != nil {
			logger.Error("call result", zap.Int64("call_id", c.handle.CallID()), zap.Error(err))
			continue
		}
		fmt.Printf("worker %d: square(%d) = %d\n", c.handle.WorkerID(), c.handle.Job(), result)
	}

	snap := pool.Metrics()
	collectors.Snapshot(metrics.Snapshot{
		Busy:      snap.Busy,
		Idle:      snap.Total - snap.Busy - snap.ForceQuit,
		ForceQuit: snap.ForceQuit,
	})
	logger.Info("pool metrics",
		zap.Int("total", snap.Total), zap.Int("busy", snap.Busy), zap.Int("force_quit", snap.ForceQuit))

	quit, err := pool.ForceQuitAll()
	if err != nil {
		logger.Warn("force quit all reported errors", zap.Error(err))
	}
	logger.Info("shut down", zap.Int("workers_transitioned", quit))
}
