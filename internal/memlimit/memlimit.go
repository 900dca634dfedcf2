// Package memlimit implements the memory detection and query-limit sizing
// described in spec.md §5: on start, detect the memory basis available to
// this process (an explicit override, an operator-set reservation, a
// cgroup-enforced container limit, or — failing all of those — free system
// memory) and derive maxQueryLimit from it, so a single `find`/`similar`
// call cannot return so many results that it evicts the HNSW node cache the
// query itself depends on.
package memlimit

import (
	"os"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v4/mem"
)

// Basis names the source maxQueryLimit was derived from (spec.md §5).
type Basis string

const (
	BasisOverride  Basis = "override"
	BasisReserved  Basis = "reservedMemory"
	BasisContainer Basis = "containerMemory"
	BasisFree      Basis = "freeMemory"
)

const (
	bytesPerMB        = 1024 * 1024
	queryLimitUnit    = 100 * bytesPerMB // one unit of maxQueryLimit per 100MB
	queryLimitPerUnit = 1000
	minQueryLimit     = 1000
	reservedFraction  = 0.25
)

// Memory reports the detected totals, in bytes.
type Memory struct {
	TotalBytes     int64
	AvailableBytes int64
}

// Limits reports the derived basis and query-result ceiling.
type Limits struct {
	Basis         Basis
	MaxQueryLimit int
}

// Config echoes back the override this detection run was given, if any.
type Config struct {
	OverrideBytes int64
}

// Stats is the shape getMemoryStats() exposes (spec.md §5/§6).
type Stats struct {
	Memory          Memory
	Limits          Limits
	Config          Config
	Recommendations []string
}

// Detect resolves the memory basis in priority order — override, then the
// CLOUD_RUN_MEMORY/MEMORY_LIMIT environment advisories, then a cgroup
// memory limit, then free system memory via gopsutil — and derives
// maxQueryLimit from whichever basis won.
//
// overrideBytes, when > 0, always wins: it is the caller's own config
// telling memlimit not to bother probing the environment.
func Detect(overrideBytes int64) (Stats, error) {
	if overrideBytes > 0 {
		return build(BasisOverride, overrideBytes, overrideBytes, overrideBytes), nil
	}

	if reserved, ok := reservedMemoryBytes(); ok {
		return build(BasisReserved, reserved, reserved, overrideBytes), nil
	}

	if container, ok := containerMemoryBytes(); ok {
		return build(BasisContainer, container, container, overrideBytes), nil
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return Stats{}, err
	}
	return build(BasisFree, int64(vm.Total), int64(vm.Available), overrideBytes), nil
}

func build(basis Basis, total, available, overrideBytes int64) Stats {
	limit := maxQueryLimit(total)
	stats := Stats{
		Memory: Memory{TotalBytes: total, AvailableBytes: available},
		Limits: Limits{Basis: basis, MaxQueryLimit: limit},
		Config: Config{OverrideBytes: overrideBytes},
	}
	stats.Recommendations = recommendations(basis, total, available)
	return stats
}

// maxQueryLimit implements spec.md §5's formula: with container memory C,
// maxQueryLimit ≈ floor(C * 0.25 / 100MB) * 1000, clamped to a floor of
// 1000 so a tiny or misreported limit never makes find()/similar() return
// nothing useful.
func maxQueryLimit(totalBytes int64) int {
	units := int64(float64(totalBytes) * reservedFraction / float64(queryLimitUnit))
	limit := int(units) * queryLimitPerUnit
	if limit < minQueryLimit {
		return minQueryLimit
	}
	return limit
}

func recommendations(basis Basis, total, available int64) []string {
	var recs []string
	if basis == BasisFree {
		recs = append(recs, "no container memory limit detected; sizing off free system memory, which can change without notice")
	}
	if total > 0 && available > 0 && available < total/4 {
		recs = append(recs, "less than 25% of detected memory is currently available; consider lowering the configured memory basis override")
	}
	return recs
}

// reservedMemoryBytes reads the operator-set CLOUD_RUN_MEMORY/MEMORY_LIMIT
// advisories (spec.md §6 Environment variables), both expressed as a raw
// byte count to match the unit cgroup limits already use.
func reservedMemoryBytes() (int64, bool) {
	for _, name := range []string{"CLOUD_RUN_MEMORY", "MEMORY_LIMIT"} {
		raw := strings.TrimSpace(os.Getenv(name))
		if raw == "" {
			continue
		}
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil && v > 0 {
			return v, true
		}
	}
	return 0, false
}
