// runlimit is the external replay helper emitted by the Script Emitter: it
// applies a sequence of NAME VALUE resource-limit pairs, then execs the
// remaining argv.
//
// Grounded directly on original_source/runlimit.c: no flag parsing
// library, no logging, matching the four-line C original's texture.
package main

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/unix"

	"limitfuzz/rlimit"
)

func main() {
	argv := os.Args[1:]

	for len(argv) >= 2 {
		kind, ok := rlimit.Parse(argv[0])
		if !ok {
			break
		}
		value, err := strconv.ParseUint(argv[1], 0, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "runlimit: invalid value for %s: %v\n", argv[0], err)
			os.Exit(1)
		}

		rlim := unix.Rlimit{Cur: value, Max: value}
		if err := unix.Setrlimit(rlimit.Sys(kind), &rlim); err != nil {
			fmt.Fprintf(os.Stderr, "runlimit: setrlimit for %s failed: %v\n", argv[0], err)
			os.Exit(1)
		}

		argv = argv[2:]
	}

	if len(argv) == 0 {
		fmt.Fprintln(os.Stderr, "runlimit: no command given")
		os.Exit(1)
	}

	path, err := resolvePath(argv[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "runlimit: %s not found: %v\n", argv[0], err)
		os.Exit(1)
	}

	if err := unix.Exec(path, argv, os.Environ()); err != nil {
		fmt.Fprintf(os.Stderr, "runlimit: exec %s failed: %v\n", argv[0], err)
		os.Exit(1)
	}
}

// resolvePath mimics execvpe's PATH search for a bare command name.
func resolvePath(name string) (string, error) {
	for _, c := range name {
		if c == '/' {
			return name, nil
		}
	}
	path := os.Getenv("PATH")
	if path == "" {
		path = "/usr/bin:/bin"
	}
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == ':' {
			dir := path[start:i]
			start = i + 1
			if dir == "" {
				dir = "."
			}
			candidate := dir + "/" + name
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
	}
	return "", os.ErrNotExist
}
