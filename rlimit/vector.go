package rlimit

import "golang.org/x/sys/unix"

// Pair is a soft/hard resource limit pair.
type Pair struct {
	Soft uint64
	Hard uint64
}

// LimitVector is a total function from ResourceKind to Pair, carrying the
// soft/hard setting the Child Spawner will apply to a spawned child.
type LimitVector map[ResourceKind]Pair

// DefaultVector builds a LimitVector seeded from the calling process's
// current limits for every registered kind, with CORE forced to {0,0}
// (never let a fuzzed child produce a core file).
func DefaultVector() (LimitVector, error) {
	v := make(LimitVector, numKinds)
	for _, k := range All() {
		var rlim unix.Rlimit
		if err := unix.Getrlimit(Sys(k), &rlim); err != nil {
			return nil, err
		}
		v[k] = Pair{Soft: rlim.Cur, Hard: rlim.Max}
	}
	v[CORE] = Pair{Soft: 0, Hard: 0}
	return v, nil
}

// Clone returns an independent copy of v.
func (v LimitVector) Clone() LimitVector {
	out := make(LimitVector, len(v))
	for k, p := range v {
		out[k] = p
	}
	return out
}

// Lower sets the value of k to newVal, enforcing the monotonic-lowering
// invariant: both soft and hard drop to newVal, never just one. It is the
// caller's responsibility to never call Lower with a value greater than
// the current soft limit; Lower does not raise.
func (v LimitVector) Lower(k ResourceKind, newVal uint64) {
	cur := v[k]
	if newVal < cur.Soft {
		cur.Soft = newVal
	}
	if newVal < cur.Hard {
		cur.Hard = newVal
	}
	v[k] = cur
}

// Apply clamps and applies one kind's pair to the calling process via
// setrlimit, matching original_source/proc.c's configure_child_limits:
// hard is clamped to the current hard limit, then soft is clamped to the
// (possibly lowered) hard limit, immediately before the syscall.
func (v LimitVector) Apply(k ResourceKind) error {
	pair := v[k]

	var cur unix.Rlimit
	if err := unix.Getrlimit(Sys(k), &cur); err != nil {
		return err
	}

	hard := pair.Hard
	if hard > cur.Max {
		hard = cur.Max
	}
	soft := pair.Soft
	if soft > hard {
		soft = hard
	}

	rlim := unix.Rlimit{Cur: soft, Max: hard}
	return unix.Setrlimit(Sys(k), &rlim)
}

// ApplyAll applies every entry of v, in registry order, stopping at the
// first error.
func (v LimitVector) ApplyAll() error {
	for _, k := range All() {
		if err := v.Apply(k); err != nil {
			return err
		}
	}
	return nil
}
