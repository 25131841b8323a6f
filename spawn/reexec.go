package spawn

import (
	"os"

	"golang.org/x/sys/unix"

	ferrors "limitfuzz/errors"
	"limitfuzz/rlimit"
)

// ReexecFlag is the hidden subcommand argument cmd/limits recognizes and
// dispatches to RunInit, before any cobra flag parsing happens. It must be
// checked first thing in main(), since by the time it appears the process
// has already been re-exec'd by Spawn and is expected to apply its limits
// and exec the real target immediately.
const ReexecFlag = reexecFlag

// RunInit is the entry point for the re-exec'd helper process. Go's
// syscall.SysProcAttr has no hook for arbitrary code between fork and
// exec, so Spawn re-execs its own binary with ReexecFlag to get a fresh,
// single-threaded process in which it is safe to call setrlimit per
// resource before handing off to the real target via execve. This mirrors
// original_source/proc.c's configure_child_limits, run here as the first
// thing a brand new process does rather than as a pre-exec hook.
//
// argv is os.Args with ReexecFlag already stripped: argv[0] is the target
// command, argv[1:] its arguments.
func RunInit(argv []string) error {
	if len(argv) == 0 {
		return ferrors.New(ferrors.ErrChild, "rlimit init", "no target command given")
	}

	vector, err := rlimit.Decode(os.Getenv(rlimit.EnvKey))
	if err != nil {
		return ferrors.Wrap(err, ferrors.ErrChild, "decode rlimit vector")
	}

	if err := vector.ApplyAll(); err != nil {
		return ferrors.Wrap(err, ferrors.ErrChild, "apply rlimit vector")
	}

	os.Unsetenv(rlimit.EnvKey)
	env := os.Environ()
	path, err := resolvePath(argv[0])
	if err != nil {
		return ferrors.WrapWithDetail(err, ferrors.ErrChild, "resolve target command", argv[0])
	}

	if err := unix.Exec(path, argv, env); err != nil {
		return ferrors.WrapWithDetail(err, ferrors.ErrChild, "exec target command", argv[0])
	}
	return nil // unreachable on success; unix.Exec only returns on failure
}

// resolvePath mimics execvpe's PATH search for a bare command name,
// falling back to the name itself when it already contains a slash.
func resolvePath(name string) (string, error) {
	if containsSlash(name) {
		return name, nil
	}
	return findInPath(name)
}

func containsSlash(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			return true
		}
	}
	return false
}

func findInPath(name string) (string, error) {
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
