// Package workers sizes the pools that run ffmpeg frame extraction.
//
// Sizes are derived from GOMAXPROCS rather than runtime.NumCPU so that
// container CPU limits are respected, and can be pinned with the
// THUMBNAIL_WORKERS environment variable.
package workers

import (
	"os"
	"runtime"
	"strconv"

	"media-hub/internal/logging"
)

// OverrideEnv pins the worker count when set to a positive integer.
const OverrideEnv = "THUMBNAIL_WORKERS"

// Count returns multiplier workers per available CPU, at least one and at
// most limit (0 means unlimited). A valid OverrideEnv value takes
// precedence but is still capped by limit.
func Count(multiplier float64, limit int) int {
	workers := 0

	if override := os.Getenv(OverrideEnv); override != "" {
		count, err := strconv.Atoi(override)
		if err == nil && count > 0 {
			workers = count
		} else {
			logging.Warn("Ignoring invalid %s=%q", OverrideEnv, override)
		}
	}

	if workers == 0 {
		workers = int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	}

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}
	return workers
}

// ForCPU returns one worker per available CPU, capped at limit. Frame
// extraction is dominated by decoding, so it is sized this way.
func ForCPU(limit int) int {
	return Count(1.0, limit)
}
