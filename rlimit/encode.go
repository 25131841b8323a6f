package rlimit

import (
	"fmt"
	"strconv"
	"strings"
)

// EnvKey is the environment variable name used to smuggle a LimitVector
// across the spawn package's re-exec of itself as the rlimit-init helper.
const EnvKey = "LIMITFUZZ_RLIMIT_VECTOR"

// Encode renders v as a single environment-variable-safe string:
// "NAME:soft:hard,NAME:soft:hard,...", in registry order. Used by the
// spawn package's re-exec path; cmd/runlimit's "NAME VALUE" argv contract
// does not reuse this encoding, though both resolve names through Parse.
func Encode(v LimitVector) string {
	var b strings.Builder
	first := true
	for _, k := range All() {
		pair, ok := v[k]
		if !ok {
			continue
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		fmt.Fprintf(&b, "%s:%d:%d", Name(k), pair.Soft, pair.Hard)
	}
	return b.String()
}

// Decode parses the string produced by Encode back into a LimitVector.
func Decode(s string) (LimitVector, error) {
	v := make(LimitVector)
	if s == "" {
		return v, nil
	}
	for _, entry := range strings.Split(s, ",") {
		fields := strings.Split(entry, ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("malformed limit vector entry %q", entry)
		}
		k, ok := Parse(fields[0])
		if !ok {
			return nil, fmt.Errorf("unknown resource limit %q", fields[0])
		}
		soft, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid soft value in %q: %w", entry, err)
		}
		hard, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid hard value in %q: %w", entry, err)
		}
		v[k] = Pair{Soft: soft, Hard: hard}
	}
	return v, nil
}
