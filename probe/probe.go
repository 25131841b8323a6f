// Package probe is the Environment Prober: before limit search starts, it
// permutes the environment vector one entry at a time to identify which
// variables influence a command's fingerprint, and reports them to the
// operator. Its findings are informational only; the search itself always
// runs with the full environment.
//
// Grounded on spec.md §4.E directly — the original C implementation never
// probed the environment, so this behavior is expressed in the teacher's
// idiom (a context.Context-aware function returning a small result struct,
// the way container.Load/container.New are shaped) rather than ported from
// original_source.
package probe

import (
	"context"
	"os"
	"strings"
	"time"

	"limitfuzz/filter"
	"limitfuzz/fingerprint"
	"limitfuzz/rlimit"
	"limitfuzz/spawn"
)

// Result reports which environment variables, when removed, changed the
// command's fingerprint.
type Result struct {
	Influential []string
}

// Probe computes the baseline fingerprint with the full environment, then
// for each entry removes just that one variable and recomputes. A variable
// is reported as influential if removing it changes the fingerprint. stdin
// is reused across every spawn exactly as the Search Engine reuses it,
// seeked to 0 before each run.
func Probe(ctx context.Context, argv []string, env []string, stdin *os.File, timeout time.Duration, filters *filter.Set) (Result, error) {
	limits, err := rlimit.DefaultVector()
	if err != nil {
		return Result{}, err
	}

	baseline, err := keyFor(ctx, argv, env, stdin, limits, timeout, filters)
	if err != nil {
		return Result{}, err
	}

	var influential []string
	for i, entry := range env {
		name, ok := splitName(entry)
		if !ok {
			continue
		}
		variant := withoutIndex(env, i)
		key, err := keyFor(ctx, argv, variant, stdin, limits, timeout, filters)
		if err != nil {
			return Result{}, err
		}
		if key != baseline {
			influential = append(influential, name)
		}
	}

	return Result{Influential: influential}, nil
}

func keyFor(ctx context.Context, argv []string, env []string, stdin *os.File, limits rlimit.LimitVector, timeout time.Duration, filters *filter.Set) (fingerprint.OutputKey, error) {
	res, err := spawn.Spawn(ctx, spawn.Config{
		Argv:    argv,
		Env:     env,
		Limits:  limits,
		Stdin:   stdin,
		Timeout: timeout,
	})
	if err != nil {
		return fingerprint.OutputKey{}, err
	}
	outDigest := fingerprint.Digest(filters.Apply(res.Stdout))
	errDigest := fingerprint.Digest(filters.Apply(res.Stderr))
	return fingerprint.Key(res.Term, outDigest, errDigest), nil
}

// splitName returns the name portion of a "NAME=VALUE" environment entry.
func splitName(entry string) (string, bool) {
	i := strings.IndexByte(entry, '=')
	if i < 0 {
		return "", false
	}
	return entry[:i], true
}

// withoutIndex returns a copy of env with the entry at i removed, leaving
// env itself untouched.
func withoutIndex(env []string, i int) []string {
	out := make([]string, 0, len(env)-1)
	out = append(out, env[:i]...)
	out = append(out, env[i+1:]...)
	return out
}
