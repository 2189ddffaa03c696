package workers

import (
	"os"
	"runtime"
	"strconv"
)

// OverrideEnv pins the worker count regardless of available CPUs.
const OverrideEnv = "TRANSCODE_WORKERS"

// Available returns the number of CPUs the process may use.
func Available() int {
	return runtime.GOMAXPROCS(0)
}

// Count returns multiplier workers per available CPU, at least 1 and at
// most limit (0 means no cap). A positive integer in TRANSCODE_WORKERS
// replaces the computed value but is still capped by limit.
func Count(multiplier float64, limit int) int {
	if count, ok := Override(); ok {
		if limit > 0 && count > limit {
			return limit
		}
		return count
	}

	workers := int(float64(Available()) * multiplier)
	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}
	return workers
}

// ForCPU returns one worker per CPU, capped at limit.
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// Override returns the TRANSCODE_WORKERS value when it is a positive integer.
func Override() (int, bool) {
	raw := os.Getenv(OverrideEnv)
	if raw == "" {
		return 0, false
	}
	count, err := strconv.Atoi(raw)
	if err != nil || count < 1 {
		return 0, false
	}
	return count, true
}
