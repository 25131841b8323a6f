// Package rlimit is the registry of POSIX resource limits the fuzzer
// searches over: their canonical names, their search granularity, and the
// monotonic-lowering limit vector passed to every spawn.
//
// Grounded on original_source/rlim.c's limit_to_str/get_limit_granularity
// tables (the fuller sixteen-member variant, including RLIMIT_MSGQUEUE and
// RLIMIT_RTTIME, which the older limits.c/stracelimits.c tables lack).
package rlimit

import (
	"os"

	"golang.org/x/sys/unix"
)

// ResourceKind identifies one POSIX resource limit.
type ResourceKind int

const (
	CPU ResourceKind = iota
	FSIZE
	DATA
	STACK
	CORE
	RSS
	NOFILE
	AS
	NPROC
	MEMLOCK
	LOCKS
	SIGPENDING
	MSGQUEUE
	NICE
	RTPRIO
	RTTIME

	numKinds
)

type entry struct {
	name string
	sys  int
}

// registry is immutable process-wide state: name and syscall resource
// number per kind. Granularity is computed separately since page size
// kinds depend on os.Getpagesize() at init time.
var registry = [numKinds]entry{
	CPU:        {"RLIMIT_CPU", unix.RLIMIT_CPU},
	FSIZE:      {"RLIMIT_FSIZE", unix.RLIMIT_FSIZE},
	DATA:       {"RLIMIT_DATA", unix.RLIMIT_DATA},
	STACK:      {"RLIMIT_STACK", unix.RLIMIT_STACK},
	CORE:       {"RLIMIT_CORE", unix.RLIMIT_CORE},
	RSS:        {"RLIMIT_RSS", unix.RLIMIT_RSS},
	NOFILE:     {"RLIMIT_NOFILE", unix.RLIMIT_NOFILE},
	AS:         {"RLIMIT_AS", unix.RLIMIT_AS},
	NPROC:      {"RLIMIT_NPROC", unix.RLIMIT_NPROC},
	MEMLOCK:    {"RLIMIT_MEMLOCK", unix.RLIMIT_MEMLOCK},
	LOCKS:      {"RLIMIT_LOCKS", unix.RLIMIT_LOCKS},
	SIGPENDING: {"RLIMIT_SIGPENDING", unix.RLIMIT_SIGPENDING},
	MSGQUEUE:   {"RLIMIT_MSGQUEUE", unix.RLIMIT_MSGQUEUE},
	NICE:       {"RLIMIT_NICE", unix.RLIMIT_NICE},
	RTPRIO:     {"RLIMIT_RTPRIO", unix.RLIMIT_RTPRIO},
	RTTIME:     {"RLIMIT_RTTIME", unix.RLIMIT_RTTIME},
}

var granularities [numKinds]uint64

func init() {
	pageSize := uint64(os.Getpagesize())
	granularities = [numKinds]uint64{
		CPU:        1,
		FSIZE:      1,
		DATA:       pageSize,
		STACK:      pageSize,
		CORE:       0,
		RSS:        pageSize,
		NOFILE:     1,
		AS:         pageSize,
		NPROC:      0,
		MEMLOCK:    pageSize,
		LOCKS:      1,
		SIGPENDING: 1,
		MSGQUEUE:   1,
		NICE:       1,
		RTPRIO:     1,
		RTTIME:     1,
	}
}

// Name returns the canonical RLIMIT_* identifier for k.
func Name(k ResourceKind) string {
	if k < 0 || k >= numKinds {
		return ""
	}
	return registry[k].name
}

// Sys returns the underlying syscall resource number for k, as used by
// golang.org/x/sys/unix.Setrlimit/Getrlimit.
func Sys(k ResourceKind) int {
	return registry[k].sys
}

// Parse is the exact inverse of Name on the canonical identifier.
func Parse(name string) (ResourceKind, bool) {
	for i := ResourceKind(0); i < numKinds; i++ {
		if registry[i].name == name {
			return i, true
		}
	}
	return 0, false
}

// Granularity returns the minimum meaningful decrement for k. Zero means
// the limit is never searched.
func Granularity(k ResourceKind) uint64 {
	if k < 0 || k >= numKinds {
		return 0
	}
	return granularities[k]
}

// All returns every registered kind, in registry order.
func All() []ResourceKind {
	kinds := make([]ResourceKind, numKinds)
	for i := range kinds {
		kinds[i] = ResourceKind(i)
	}
	return kinds
}

// Searchable returns every kind with a nonzero granularity, in registry
// order. This unifies the exclusion of CORE (forced to {0,0}) and NPROC
// (affects the searcher itself) under the single "granularity 0" rule.
func Searchable() []ResourceKind {
	var kinds []ResourceKind
	for i := ResourceKind(0); i < numKinds; i++ {
		if granularities[i] > 0 {
			kinds = append(kinds, i)
		}
	}
	return kinds
}
