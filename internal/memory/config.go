package memory

import (
	"fmt"
	"math"
	"os"
	"runtime/debug"
	"strconv"
	"strings"

	"media-hub/internal/logging"
)

// DefaultMemoryRatio is the share of the container limit given to the Go
// heap. The rest is left for ffmpeg and image decoding buffers.
const DefaultMemoryRatio = 0.85

// Limit sources reported by ConfigureFromEnv.
const (
	SourceGOMEMLIMIT  = "GOMEMLIMIT"
	SourceMemoryLimit = "MEMORY_LIMIT"
	SourceNone        = "none"
)

// Limit describes the heap limit in effect after ConfigureFromEnv.
type Limit struct {
	Source         string
	ContainerBytes int64
	HeapBytes      int64
	Ratio          float64
}

// ConfigureFromEnv sets the runtime memory limit. GOMEMLIMIT wins when set;
// otherwise MEMORY_LIMIT (bytes, usually from the Kubernetes Downward API)
// is scaled by MEMORY_RATIO. Call it before the store loads its state.
func ConfigureFromEnv() Limit {
	if env := os.Getenv("GOMEMLIMIT"); env != "" {
		if limit, ok := applyGoMemLimit(env); ok {
			return limit
		}
	}

	raw := os.Getenv("MEMORY_LIMIT")
	if raw == "" {
		logging.Debug("MEMORY_LIMIT not set, leaving the heap unlimited")
		return Limit{Source: SourceNone}
	}

	containerBytes, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || containerBytes <= 0 {
		logging.Warn("Ignoring invalid MEMORY_LIMIT %q", raw)
		return Limit{Source: SourceNone}
	}

	ratio := parseRatio(os.Getenv("MEMORY_RATIO"))
	heapBytes := int64(float64(containerBytes) * ratio)
	debug.SetMemoryLimit(heapBytes)

	logging.Info("Configured GOMEMLIMIT: %s (%.0f%% of %s container limit)",
		formatBytes(heapBytes), ratio*100, formatBytes(containerBytes))

	return Limit{
		Source:         SourceMemoryLimit,
		ContainerBytes: containerBytes,
		HeapBytes:      heapBytes,
		Ratio:          ratio,
	}
}

// applyGoMemLimit reports the limit the runtime took from GOMEMLIMIT at
// start. A value that only appeared later, e.g. from .env, is parsed and
// applied here. ok is false when the value cannot be parsed.
func applyGoMemLimit(env string) (limit Limit, ok bool) {
	limit.Source = SourceGOMEMLIMIT
	if current := debug.SetMemoryLimit(-1); current > 0 && current < math.MaxInt64 {
		limit.HeapBytes = current
		logging.Info("GOMEMLIMIT set via environment: %s", env)
		return limit, true
	}

	if strings.EqualFold(strings.TrimSpace(env), "off") {
		logging.Info("GOMEMLIMIT=off, leaving the heap unlimited")
		return limit, true
	}

	heapBytes, err := parseGoMemLimit(env)
	if err != nil {
		logging.Warn("Ignoring invalid GOMEMLIMIT %q: %v", env, err)
		return Limit{}, false
	}
	debug.SetMemoryLimit(heapBytes)
	limit.HeapBytes = heapBytes
	logging.Info("Applied GOMEMLIMIT: %s", formatBytes(heapBytes))
	return limit, true
}

// parseGoMemLimit accepts the runtime's GOMEMLIMIT syntax: a byte count
// with an optional B, KiB, MiB, GiB or TiB suffix.
func parseGoMemLimit(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	multiplier := int64(1)
	for _, unit := range []struct {
		suffix string
		factor int64
	}{
		{"KiB", 1 << 10},
		{"MiB", 1 << 20},
		{"GiB", 1 << 30},
		{"TiB", 1 << 40},
		{"B", 1},
	} {
		if strings.HasSuffix(raw, unit.suffix) {
			raw = strings.TrimSuffix(raw, unit.suffix)
			multiplier = unit.factor
			break
		}
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if n <= 0 || n > math.MaxInt64/multiplier {
		return 0, fmt.Errorf("value %d out of range", n)
	}
	return n * multiplier, nil
}

func parseRatio(raw string) float64 {
	if raw == "" {
		return DefaultMemoryRatio
	}
	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil || ratio <= 0 || ratio > 1 {
		logging.Warn("MEMORY_RATIO %q must be in (0, 1], using %.2f", raw, DefaultMemoryRatio)
		return DefaultMemoryRatio
	}
	return ratio
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
