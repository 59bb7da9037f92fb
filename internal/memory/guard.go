package memory

import (
	"context"
	"math"
	"runtime"
	"runtime/debug"
	rtmetrics "runtime/metrics"
	"sync"
	"time"

	"media-hub/internal/logging"
	"media-hub/internal/metrics"
)

const heapObjectsMetric = "/memory/classes/heap/objects:bytes"

// GuardConfig sets the thresholds of an UploadGuard.
type GuardConfig struct {
	// LimitBytes is the heap budget. Zero uses the runtime memory limit,
	// and no limit at all disables the guard.
	LimitBytes int64
	// PauseAt is the usage ratio at which uploads are held back.
	PauseAt float64
	// ResumeAt is the usage ratio below which held uploads continue.
	ResumeAt float64
	// Interval is how often heap usage is sampled.
	Interval time.Duration
}

// DefaultGuardConfig returns the thresholds used by the server.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		PauseAt:  0.85,
		ResumeAt: 0.7,
		Interval: 5 * time.Second,
	}
}

// UploadGuard holds uploads back while the heap is close to its limit. An
// upload keeps the whole file and its data URL in memory.
type UploadGuard struct {
	config GuardConfig
	limit  int64
	sample func() uint64

	mu      sync.Mutex
	usage   float64
	paused  bool
	resumed chan struct{}
}

// NewUploadGuard creates a guard. Call Run to start sampling.
func NewUploadGuard(config GuardConfig) *UploadGuard {
	limit := config.LimitBytes
	if limit == 0 {
		if current := debug.SetMemoryLimit(-1); current > 0 && current < math.MaxInt64 {
			limit = current
		}
	}
	if limit == 0 {
		logging.Warn("No memory limit configured, upload backpressure disabled")
	}

	return &UploadGuard{
		config:  config,
		limit:   limit,
		sample:  liveHeapBytes,
		resumed: make(chan struct{}),
	}
}

// Enabled reports whether the guard has a limit to enforce.
func (g *UploadGuard) Enabled() bool {
	return g.limit > 0
}

// Run samples heap usage until ctx is done.
func (g *UploadGuard) Run(ctx context.Context) {
	if !g.Enabled() {
		return
	}

	ticker := time.NewTicker(g.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.check()
		case <-ctx.Done():
			return
		}
	}
}

func (g *UploadGuard) check() {
	if !g.Enabled() {
		return
	}
	heap := g.sample()

	g.mu.Lock()
	defer g.mu.Unlock()

	g.usage = float64(heap) / float64(g.limit)
	metrics.MemoryUsageRatio.Set(g.usage)

	switch {
	case !g.paused && g.usage >= g.config.PauseAt:
		logging.Warn("Memory critical (%.1f%% of limit), pausing uploads", g.usage*100)
		g.paused = true
		metrics.UploadsPaused.Set(1)
		metrics.UploadPauses.Inc()
		go runtime.GC()
	case g.paused && g.usage < g.config.ResumeAt:
		logging.Info("Memory recovered (%.1f%% of limit), resuming uploads", g.usage*100)
		g.paused = false
		metrics.UploadsPaused.Set(0)
		close(g.resumed)
		g.resumed = make(chan struct{})
	}
}

// Wait blocks while uploads are paused. It returns ctx.Err() if ctx ends
// first.
func (g *UploadGuard) Wait(ctx context.Context) error {
	g.mu.Lock()
	if !g.paused {
		g.mu.Unlock()
		return nil
	}
	resumed := g.resumed
	g.mu.Unlock()

	logging.Debug("Upload waiting for memory to recover")
	select {
	case <-resumed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Usage returns the last sampled heap usage as a fraction of the limit.
func (g *UploadGuard) Usage() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.usage
}

// Paused reports whether uploads are currently held back.
func (g *UploadGuard) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

func liveHeapBytes() uint64 {
	samples := []rtmetrics.Sample{{Name: heapObjectsMetric}}
	rtmetrics.Read(samples)
	if samples[0].Value.Kind() != rtmetrics.KindUint64 {
		return 0
	}
	return samples[0].Value.Uint64()
}
