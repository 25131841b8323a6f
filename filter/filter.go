// Package filter compiles user-supplied regex patterns and the fuzzer's
// built-in output normalizations, used to erase noise (timestamps, pids,
// addresses) from child output before fingerprinting.
//
// Grounded on original_source/proc.c's filter-apply loop
// (g_regex_replace_literal over each pattern) and on
// original_source/limits.c's spawn_process tail for the two original
// built-ins (MEMORY-ERROR collapse, "(process:...)" blanking), supplemented
// by original_source/stracelimits.c's /proc/<pid> and si_addr= masking
// (see SPEC_FULL.md §9).
package filter

import (
	"bufio"
	"bytes"
	"os"
	"regexp"
	"strconv"
	"strings"

	ferrors "limitfuzz/errors"
)

// Pattern is a compiled regex plus its original source string.
type Pattern struct {
	Source string
	re     *regexp.Regexp
}

// Set is an ordered list of user-supplied patterns plus the always-on
// built-in normalizations, owned by the Filter Set for the process
// lifetime.
type Set struct {
	patterns []Pattern
}

var (
	memoryErrorMarker = []byte("MEMORY-ERROR")
	processOpen       = []byte("(process:")
	procPathRe        = regexp.MustCompile(`/proc/[0-9]+`)
	siAddrRe          = regexp.MustCompile(`si_addr=(0x)?[0-9a-fA-F]+`)
)

// Load reads path, one pattern per line, skipping empty lines and lines
// beginning with '#'. Each remaining line is compiled as a regex;
// compilation failure is fatal with a diagnostic naming the offending
// line.
func Load(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ferrors.WrapWithDetail(err, ferrors.ErrConfiguration, "load filter file", path)
	}
	defer f.Close()

	s := &Set{}
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		re, err := regexp.Compile(line)
		if err != nil {
			return nil, ferrors.WrapWithDetail(err, ferrors.ErrConfiguration, "compile filter pattern",
				path+": line "+strconv.Itoa(lineNo)+": "+line)
		}
		s.patterns = append(s.patterns, Pattern{Source: line, re: re})
	}
	if err := scanner.Err(); err != nil {
		return nil, ferrors.WrapWithDetail(err, ferrors.ErrConfiguration, "read filter file", path)
	}
	return s, nil
}

// Empty returns a Set with no user patterns; the built-in normalizations
// still apply.
func Empty() *Set {
	return &Set{}
}

// Apply substitutes the empty string for every non-overlapping match of
// each user pattern, in load order, then runs the always-on built-in
// normalizations.
func (s *Set) Apply(b []byte) []byte {
	out := b
	if s != nil {
		for _, p := range s.patterns {
			out = p.re.ReplaceAll(out, nil)
		}
	}
	return applyBuiltins(out)
}

func applyBuiltins(b []byte) []byte {
	if bytes.Contains(b, memoryErrorMarker) {
		return append([]byte(nil), memoryErrorMarker...)
	}

	out := append([]byte(nil), b...)
	out = blankProcessParen(out)
	out = procPathRe.ReplaceAll(out, []byte("?"))
	out = siAddrRe.ReplaceAll(out, []byte("si_addr=?"))
	return out
}

// blankProcessParen overwrites every substring from "(process:" to the
// next ')' with spaces, preserving length and removing the pid, matching
// original_source/limits.c exactly.
func blankProcessParen(b []byte) []byte {
	for {
		start := bytes.Index(b, processOpen)
		if start == -1 {
			return b
		}
		rel := bytes.IndexByte(b[start:], ')')
		if rel == -1 {
			return b
		}
		end := start + rel
		for i := start; i < end; i++ {
			b[i] = ' '
		}
	}
}
