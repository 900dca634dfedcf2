package memlimit

import (
	"os"
	"strconv"
	"strings"
)

// cgroup memory-limit file candidates, v2 first then v1. Reading a path
// that doesn't exist (not Linux, or no cgroup) simply falls through to the
// next candidate, and eventually to the free-memory basis.
var cgroupMemoryPaths = []string{
	"/sys/fs/cgroup/memory.max",                   // cgroup v2, unified hierarchy
	"/sys/fs/cgroup/memory/memory.limit_in_bytes", // cgroup v1
}

// containerMemoryBytes reads the kernel-enforced cgroup memory ceiling.
// cgroup v2 reports "max" for no limit, and v1 reports a value close to
// the architecture's maximum signed integer for no limit — both are
// treated as "no limit" and fall through to the next path/basis.
func containerMemoryBytes() (int64, bool) {
	for _, path := range cgroupMemoryPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		raw := strings.TrimSpace(string(data))
		if raw == "" || raw == "max" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 || isUnbounded(v) {
			continue
		}
		return v, true
	}
	return 0, false
}

// isUnbounded reports whether v is one of the sentinel "no limit" values
// cgroup v1 kernels report (close to math.MaxInt64, rounded down to a page
// boundary).
func isUnbounded(v int64) bool {
	const unboundedThreshold = int64(1) << 62
	return v >= unboundedThreshold
}
