package search

import (
	"context"
	"testing"

	"limitfuzz/filter"
	"limitfuzz/fingerprint"
	"limitfuzz/rlimit"
	"limitfuzz/spawn"
)

func TestFingerprintSetInsertReportsNovelty(t *testing.T) {
	s := NewFingerprintSet()
	k := fingerprint.OutputKey{TermKind: 0, TermCode: 0}

	if !s.Insert(k) {
		t.Error("Insert() on first occurrence should report true")
	}
	if s.Insert(k) {
		t.Error("Insert() on repeat occurrence should report false")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestFingerprintSetDistinguishesKeys(t *testing.T) {
	s := NewFingerprintSet()
	a := fingerprint.OutputKey{TermKind: 0, TermCode: 0}
	b := fingerprint.OutputKey{TermKind: 0, TermCode: 1}

	s.Insert(a)
	s.Insert(b)

	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestNewEngineDefaultsCoarsenDivisor(t *testing.T) {
	e := NewEngine(Config{}, NewFingerprintSet())
	if e.cfg.CoarsenDivisor != DefaultCoarsenDivisor {
		t.Errorf("CoarsenDivisor = %d, want %d", e.cfg.CoarsenDivisor, DefaultCoarsenDivisor)
	}
}

func TestNewEnginePreservesExplicitCoarsenDivisor(t *testing.T) {
	e := NewEngine(Config{CoarsenDivisor: 8}, NewFingerprintSet())
	if e.cfg.CoarsenDivisor != 8 {
		t.Errorf("CoarsenDivisor = %d, want 8", e.cfg.CoarsenDivisor)
	}
}

// stepSpawner fakes a child whose termination code changes at each
// threshold in descending order: it reports len(thresholds) below the
// lowest threshold the trial value falls under, 0 at or above every
// threshold. This drives the bisect/sweep state machine without forking
// any real child.
func stepSpawner(k rlimit.ResourceKind, thresholds ...uint64) spawnFunc {
	return func(ctx context.Context, cfg spawn.Config) (spawn.Result, error) {
		val := cfg.Limits[k].Soft
		code := 0
		for _, th := range thresholds {
			if val < th {
				code++
			}
		}
		return spawn.Result{Term: spawn.TerminationInfo{Kind: spawn.Exited, Code: code}}, nil
	}
}

func TestBisectBacksUpJustAboveDivergencePoint(t *testing.T) {
	const k = rlimit.NOFILE
	const divergeAt = uint64(37)

	e := NewEngine(Config{Filters: filter.Empty(), spawnFn: stepSpawner(k, divergeAt)}, NewFingerprintSet())

	limits := rlimit.LimitVector{k: {Soft: 1000, Hard: 1000}}
	baselineKey, err := e.spawnAndKey(context.Background(), limits)
	if err != nil {
		t.Fatalf("spawnAndKey() error = %v", err)
	}

	ex := exploration{curValue: 1000, baselineKey: baselineKey}
	if err := e.bisect(context.Background(), k, limits, &ex); err != nil {
		t.Fatalf("bisect() error = %v", err)
	}

	// Halving from 1000 lands on 31 as the first diverging trial (62 is
	// the last non-diverging one); bisect should back up to 63.
	if ex.curValue != 63 {
		t.Errorf("curValue after bisect = %d, want 63", ex.curValue)
	}
}

func TestBisectStopsAtZeroWhenNoDivergence(t *testing.T) {
	const k = rlimit.NOFILE
	e := NewEngine(Config{Filters: filter.Empty(), spawnFn: stepSpawner(k)}, NewFingerprintSet())

	limits := rlimit.LimitVector{k: {Soft: 8, Hard: 8}}
	baselineKey, err := e.spawnAndKey(context.Background(), limits)
	if err != nil {
		t.Fatalf("spawnAndKey() error = %v", err)
	}

	ex := exploration{curValue: 8, baselineKey: baselineKey}
	if err := e.bisect(context.Background(), k, limits, &ex); err != nil {
		t.Fatalf("bisect() error = %v", err)
	}
	if ex.curValue != 0 {
		t.Errorf("curValue after bisect = %d, want 0", ex.curValue)
	}
}

func TestSweepRecordsEveryDistinctBehavior(t *testing.T) {
	const k = rlimit.NOFILE
	// Two thresholds: output changes below 37, then again below 10.
	spawnFn := stepSpawner(k, 37, 10)

	set := NewFingerprintSet()
	e := NewEngine(Config{Filters: filter.Empty(), spawnFn: spawnFn}, set)

	limits := rlimit.LimitVector{k: {Soft: 63, Hard: 63}}
	baselineKey, err := e.spawnAndKey(context.Background(), limits)
	if err != nil {
		t.Fatalf("spawnAndKey() error = %v", err)
	}
	set.Insert(baselineKey)

	ex := exploration{curValue: 63, baselineKey: baselineKey}
	if err := e.sweep(context.Background(), k, limits, &ex); err != nil {
		t.Fatalf("sweep() error = %v", err)
	}

	// baseline (code 0) + code 1 (below 37) + code 2 (below 10) = 3 keys.
	if set.Len() != 3 {
		t.Errorf("FingerprintSet.Len() after sweep = %d, want 3", set.Len())
	}
}

func TestSweepTerminatesBelowGranularity(t *testing.T) {
	const k = rlimit.NOFILE
	calls := 0
	spawnFn := func(ctx context.Context, cfg spawn.Config) (spawn.Result, error) {
		calls++
		return spawn.Result{Term: spawn.TerminationInfo{Kind: spawn.Exited, Code: 0}}, nil
	}

	set := NewFingerprintSet()
	e := NewEngine(Config{Filters: filter.Empty(), spawnFn: spawnFn}, set)

	limits := rlimit.LimitVector{k: {Soft: 3, Hard: 3}}
	ex := exploration{curValue: 3, baselineKey: fingerprint.OutputKey{}}
	set.Insert(fingerprint.OutputKey{})

	if err := e.sweep(context.Background(), k, limits, &ex); err != nil {
		t.Fatalf("sweep() error = %v", err)
	}

	// granularity(NOFILE) == 1, so the sweep should test 2, 1, 0: 3 calls.
	if calls != 3 {
		t.Errorf("spawn call count = %d, want 3", calls)
	}
}
