package rendergraph

import "time"

// profilerNow returns a start timestamp when profiling is enabled, and the
// zero time otherwise — callers skip the time.Now() syscall entirely on
// the hot path when profiling is off, mirroring the Rust sibling's
// profiling_enabled-gated Instant::now() call.
func profilerNow(enabled bool) time.Time {
	if !enabled {
		return time.Time{}
	}
	return time.Now()
}

// profilerElapsed returns nanoseconds since start, or 0 if profiling is
// disabled.
func profilerElapsed(start time.Time, enabled bool) int64 {
	if !enabled {
		return 0
	}
	return time.Since(start).Nanoseconds()
}
