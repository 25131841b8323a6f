// Package search is the Search Engine: for each searchable resource
// limit it establishes a baseline, bisects downward to find the first
// divergence point, then sweeps by granularity to enumerate every
// distinct behavior, recording newly observed output keys in a shared
// fingerprint set and handing each one to the Script Emitter.
//
// Grounded on original_source/rlim.c and original_source/proc.c for the
// two-phase bisect-then-sweep algorithm. The vestigial second bisection
// restart found in original_source/limits.c/stracelimits.c (a
// decrement-by-page-then-restart-bisection block left over from an
// earlier revision of the tool) is deliberately not reproduced.
package search

import (
	"context"
	"os"
	"sync"
	"time"

	"limitfuzz/filter"
	"limitfuzz/fingerprint"
	flog "limitfuzz/logging"
	"limitfuzz/rlimit"
	"limitfuzz/script"
	"limitfuzz/spawn"
)

// spawnFunc is the seam between the Search Engine and the Child Spawner,
// letting tests substitute a fake that returns canned keys per trial
// value without forking any real child.
type spawnFunc func(context.Context, spawn.Config) (spawn.Result, error)

// DefaultCoarsenDivisor is the tuning constant from spec.md §9: after this
// many sweep steps without a new key, the sweep starts taking
// proportionally larger steps.
const DefaultCoarsenDivisor = 32

// manyOutputsWarning is issued once, the first time the shared fingerprint
// set reaches this size.
const manyOutputsWarning = 128

// FingerprintSet tracks every distinct output key observed so far across
// the whole run. A mutex guards it even though the engine is single
// threaded, matching the teacher's habit of protecting any state handed
// across package boundaries.
type FingerprintSet struct {
	mu   sync.Mutex
	seen map[fingerprint.OutputKey]struct{}
}

// NewFingerprintSet returns an empty set.
func NewFingerprintSet() *FingerprintSet {
	return &FingerprintSet{seen: make(map[fingerprint.OutputKey]struct{})}
}

// Insert adds k to the set and reports whether it was new.
func (s *FingerprintSet) Insert(k fingerprint.OutputKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[k]; ok {
		return false
	}
	s.seen[k] = struct{}{}
	return true
}

// Len reports the number of distinct keys recorded so far.
func (s *FingerprintSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// Config bundles a search run's fixed parameters.
type Config struct {
	Argv    []string
	Env     []string
	Timeout time.Duration
	Filters *filter.Set
	Emitter *script.Emitter
	// Stdin is reused across every spawn in the run; Spawn seeks it to 0
	// before each child runs.
	Stdin *os.File
	// StdinPath is the path Stdin was opened from, used only for the
	// replay-script text emitted alongside each newly observed key.
	StdinPath      string
	CoarsenDivisor uint64

	// spawnFn overrides how a child is spawned; nil defaults to
	// spawn.Spawn. Exposed only to this package's tests.
	spawnFn spawnFunc
}

// Engine drives the bisect-then-sweep search across every searchable
// resource kind, sharing one FingerprintSet for the whole run.
type Engine struct {
	cfg Config
	set *FingerprintSet
}

// NewEngine builds an Engine. If cfg.CoarsenDivisor is zero it defaults to
// DefaultCoarsenDivisor.
func NewEngine(cfg Config, set *FingerprintSet) *Engine {
	if cfg.CoarsenDivisor == 0 {
		cfg.CoarsenDivisor = DefaultCoarsenDivisor
	}
	if cfg.spawnFn == nil {
		cfg.spawnFn = spawn.Spawn
	}
	return &Engine{cfg: cfg, set: set}
}

// exploration is the per-limit transient state threaded through bisect
// and sweep.
type exploration struct {
	curValue    uint64
	baselineKey fingerprint.OutputKey
	distance    uint64
}

// Run iterates every searchable resource kind in registry order, bisecting
// and sweeping each one in turn.
func (e *Engine) Run(ctx context.Context) error {
	for _, k := range rlimit.Searchable() {
		if err := e.runOne(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) runOne(ctx context.Context, k rlimit.ResourceKind) error {
	limits, err := rlimit.DefaultVector()
	if err != nil {
		return err
	}

	baselineKey, err := e.spawnAndKey(ctx, limits)
	if err != nil {
		return err
	}
	e.set.Insert(baselineKey)

	ex := exploration{
		curValue:    limits[k].Soft,
		baselineKey: baselineKey,
	}

	if err := e.bisect(ctx, k, limits, &ex); err != nil {
		return err
	}
	return e.sweep(ctx, k, limits, &ex)
}

// bisect repeatedly halves the limit's current value until the output key
// diverges from baseline or the value reaches 0, then backs up one step so
// the sweep phase starts just above the divergence point.
func (e *Engine) bisect(ctx context.Context, k rlimit.ResourceKind, limits rlimit.LimitVector, ex *exploration) error {
	for ex.curValue > 0 {
		shifted := ex.curValue >> 1
		trial := limits.Clone()
		trial.Lower(k, shifted)

		key, err := e.spawnAndKey(ctx, trial)
		if err != nil {
			return err
		}

		if key != ex.baselineKey {
			ex.curValue = (shifted << 1) + 1
			return nil
		}
		ex.curValue = shifted
	}
	return nil
}

// sweep decrements by granularity (with adaptive coarsening after
// prolonged silence) from curValue, stopping once the value drops below
// the limit's granularity, recording and emitting every newly observed key.
func (e *Engine) sweep(ctx context.Context, k rlimit.ResourceKind, limits rlimit.LimitVector, ex *exploration) error {
	g := rlimit.Granularity(k)
	cur := ex.curValue

	for cur >= g {
		step := g + g*(ex.distance/e.cfg.CoarsenDivisor)
		if step > cur {
			cur = 0
		} else {
			cur -= step
		}

		trial := limits.Clone()
		trial.Lower(k, cur)

		key, err := e.spawnAndKey(ctx, trial)
		if err != nil {
			return err
		}

		if e.set.Insert(key) {
			ex.distance = 0
			if e.cfg.Emitter != nil {
				if err := e.cfg.Emitter.Emit(k, cur, e.cfg.Argv, e.cfg.StdinPath); err != nil {
					return err
				}
			}
			if e.set.Len() == manyOutputsWarning {
				flog.Warn("many distinct outputs observed; consider a filter file", "count", e.set.Len())
			}
		} else {
			ex.distance++
		}
	}
	return nil
}

func (e *Engine) spawnAndKey(ctx context.Context, limits rlimit.LimitVector) (fingerprint.OutputKey, error) {
	res, err := e.cfg.spawnFn(ctx, spawn.Config{
		Argv:    e.cfg.Argv,
		Env:     e.cfg.Env,
		Limits:  limits,
		Stdin:   e.cfg.Stdin,
		Timeout: e.cfg.Timeout,
	})
	if err != nil {
		return fingerprint.OutputKey{}, err
	}
	outDigest := fingerprint.Digest(e.cfg.Filters.Apply(res.Stdout))
	errDigest := fingerprint.Digest(e.cfg.Filters.Apply(res.Stderr))
	return fingerprint.Key(res.Term, outDigest, errDigest), nil
}
