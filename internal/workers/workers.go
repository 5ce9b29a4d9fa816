package workers

import (
	"os"
	"runtime"
	"strconv"
)

// OverrideEnv is the environment variable that pins the digest pool size.
const OverrideEnv = "HASH_WORKERS"

// Count returns the number of workers for a pool whose per-worker load is
// described by multiplier (1.0 for CPU-bound hashing). It respects container
// CPU limits via GOMAXPROCS.
//
// The limit parameter caps the worker count. Use 0 for no limit.
//
// Can be overridden with the HASH_WORKERS environment variable.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(OverrideEnv); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	// GOMAXPROCS follows the container CPU limit
	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU), which is how
// the digest pool is sized: one hashing goroutine per available core.
func ForCPU(limit int) int {
	return Count(1.0, limit)
}
